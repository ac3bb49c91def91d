// The dataset package persists competition artifacts in their published
// encodings: CSV edge lists, fixed-width feature matrices, node lists and
// the private ground truth, plus the JSON submission metadata and results.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/citebench/coldstart/pkg/graph"
	"github.com/citebench/coldstart/pkg/split"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyFile     = errors.New("dataset: file has no header row")
	ErrMissingColumn = errors.New("dataset: missing required column")
)

// Layout is the on-disk layout of one competition instance: public artifacts
// shared with participants, private ones reserved to the organizers.
type Layout struct {
	Dir string
}

func (l Layout) PublicDir() string  { return filepath.Join(l.Dir, "public") }
func (l Layout) PrivateDir() string { return filepath.Join(l.Dir, "private") }

func (l Layout) TrainGraph() string    { return filepath.Join(l.PublicDir(), "train_graph.csv") }
func (l Layout) TrainFeatures() string { return filepath.Join(l.PublicDir(), "train_features.csv") }
func (l Layout) TestFeatures() string  { return filepath.Join(l.PublicDir(), "test_features.csv") }
func (l Layout) TestNodes() string     { return filepath.Join(l.PublicDir(), "test_nodes.csv") }
func (l Layout) TestLabels() string    { return filepath.Join(l.PrivateDir(), "test_labels.csv") }

// WriteSplit persists all the artifacts of a partitioned instance.
// The feature matrix is indexed by global node ID, as produced by synthesis.
func WriteSplit(layout Layout, s split.Split, features *mat.Dense) error {
	for _, dir := range []string{layout.PublicDir(), layout.PrivateDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := WriteEdges(layout.TrainGraph(), s.TrainEdges); err != nil {
		return err
	}

	if err := WriteFeatures(layout.TrainFeatures(), s.TrainNodes, features); err != nil {
		return err
	}

	if err := WriteFeatures(layout.TestFeatures(), s.TestNodes, features); err != nil {
		return err
	}

	if err := WriteNodes(layout.TestNodes(), s.TestNodes); err != nil {
		return err
	}

	return WriteGroundTruth(layout.TestLabels(), s.Truth)
}

// WriteEdges writes a (source,target) edge list.
func WriteEdges(path string, edges []graph.Edge) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"source", "target"}); err != nil {
			return err
		}

		for _, e := range edges {
			row := []string{itoa(e.Source), itoa(e.Target)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadEdges reads a (source,target) edge list.
func ReadEdges(path string) ([]graph.Edge, error) {
	rows, _, err := readCSV(path, "source", "target")
	if err != nil {
		return nil, err
	}

	edges := make([]graph.Edge, len(rows))
	for i, row := range rows {
		source, err := atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: row %d: %w", path, i+1, err)
		}

		target, err := atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: row %d: %w", path, i+1, err)
		}

		edges[i] = graph.Edge{Source: source, Target: target}
	}

	return edges, nil
}

// WriteFeatures writes the feature rows of the specified nodes, one row per
// node: node_id followed by the f0..f{d-1} components.
func WriteFeatures(path string, nodes []graph.ID, features *mat.Dense) error {
	_, dim := features.Dims()

	return writeCSV(path, func(w *csv.Writer) error {
		header := make([]string, 0, dim+1)
		header = append(header, "node_id")
		for j := range dim {
			header = append(header, "f"+strconv.Itoa(j))
		}

		if err := w.Write(header); err != nil {
			return err
		}

		row := make([]string, dim+1)
		for _, node := range nodes {
			row[0] = itoa(node)
			for j, v := range features.RawRowView(int(node)) {
				row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}

			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadFeatures reads a feature file back into the node list and a dense
// matrix whose i-th row holds the features of the i-th returned node.
func ReadFeatures(path string) ([]graph.ID, *mat.Dense, error) {
	rows, header, err := readCSV(path, "node_id")
	if err != nil {
		return nil, nil, err
	}

	dim := len(header) - 1
	if dim < 1 {
		return nil, nil, fmt.Errorf("failed to read %s: %w: no feature columns", path, ErrMissingColumn)
	}

	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("failed to read %s: no feature rows", path)
	}

	nodes := make([]graph.ID, len(rows))
	features := mat.NewDense(len(rows), dim, nil)

	for i, row := range rows {
		nodes[i], err = atoi(row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: row %d: %w", path, i+1, err)
		}

		for j, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read %s: row %d: %w", path, i+1, err)
			}
			features.Set(i, j, v)
		}
	}

	return nodes, features, nil
}

// WriteNodes writes a node_id list.
func WriteNodes(path string, nodes []graph.ID) error {
	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"node_id"}); err != nil {
			return err
		}

		for _, node := range nodes {
			if err := w.Write([]string{itoa(node)}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadNodes reads a node_id list.
func ReadNodes(path string) ([]graph.ID, error) {
	rows, _, err := readCSV(path, "node_id")
	if err != nil {
		return nil, err
	}

	nodes := make([]graph.ID, len(rows))
	for i, row := range rows {
		nodes[i], err = atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: row %d: %w", path, i+1, err)
		}
	}

	return nodes, nil
}

// WriteGroundTruth writes the private labels as (source,target,label) rows
// with label 1, sorted by source then target for stable output.
func WriteGroundTruth(path string, truth split.GroundTruth) error {
	sources := make([]graph.ID, 0, len(truth))
	for source := range truth {
		sources = append(sources, source)
	}
	slices.Sort(sources)

	return writeCSV(path, func(w *csv.Writer) error {
		if err := w.Write([]string{"source", "target", "label"}); err != nil {
			return err
		}

		for _, source := range sources {
			for _, target := range truth[source] {
				if err := w.Write([]string{itoa(source), itoa(target), "1"}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ReadGroundTruth reads the private labels. Test nodes without edges are not
// represented in the file: callers that need their empty entries must add
// them back from the test node list (see [split.GroundTruth]).
func ReadGroundTruth(path string) (split.GroundTruth, error) {
	rows, _, err := readCSV(path, "source", "target")
	if err != nil {
		return nil, err
	}

	truth := make(split.GroundTruth)
	for i, row := range rows {
		source, err := atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: row %d: %w", path, i+1, err)
		}

		target, err := atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: row %d: %w", path, i+1, err)
		}

		truth[source] = append(truth[source], target)
	}

	for source := range truth {
		slices.Sort(truth[source])
	}

	return truth, nil
}

func writeCSV(path string, write func(w *csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := write(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return file.Close()
}

// readCSV reads all records of the file, checks that the header carries the
// required columns, and returns the data rows re-ordered so that the required
// columns come first.
func readCSV(path string, required ...string) ([][]string, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, ErrEmptyFile)
	}

	header := records[0]
	indexes := make([]int, len(required))
	for i, col := range required {
		indexes[i] = slices.Index(header, col)
		if indexes[i] == -1 {
			return nil, nil, fmt.Errorf("failed to read %s: %w: %s", path, ErrMissingColumn, col)
		}
	}

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]string, 0, len(record))
		for _, idx := range indexes {
			row = append(row, record[idx])
		}

		for i, cell := range record {
			if !slices.Contains(indexes, i) {
				row = append(row, cell)
			}
		}
		rows = append(rows, row)
	}

	return rows, header, nil
}

func itoa(id graph.ID) string {
	return strconv.Itoa(int(id))
}

func atoi(s string) (graph.ID, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer node id", s)
	}
	return graph.ID(v), nil
}
