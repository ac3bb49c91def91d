package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/citebench/coldstart/pkg/submission"
)

// Submission file names inside a submission directory.
const (
	PredictionsFile = "predictions.csv"
	MetadataFile    = "metadata.json"
	ResultsFile     = "results.json"
)

// ReadSubmission reads a submission directory and assigns it a run ID.
// Malformed cell values are not an error here: they are kept raw and
// reported by the validator.
func ReadSubmission(dir string) (submission.Submission, error) {
	meta, err := ReadMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return submission.Submission{}, err
	}

	file, err := ReadPredictions(filepath.Join(dir, PredictionsFile))
	if err != nil {
		return submission.Submission{}, err
	}

	return submission.New(meta, file), nil
}

// ReadPredictions parses a predictions file into its raw records.
// Columns beyond source, target and score are ignored. A missing column
// yields empty cells, so the validator can name it in its report.
func ReadPredictions(path string) (submission.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return submission.File{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are a validation concern, not an I/O failure

	records, err := reader.ReadAll()
	if err != nil {
		return submission.File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(records) == 0 {
		return submission.File{}, fmt.Errorf("failed to read %s: %w", path, ErrEmptyFile)
	}

	header := records[0]
	source := slices.Index(header, "source")
	target := slices.Index(header, "target")
	score := slices.Index(header, "score")

	file := submission.File{
		Columns: header,
		Records: make([]submission.Record, 0, len(records)-1),
	}

	for _, record := range records[1:] {
		file.Records = append(file.Records, submission.Record{
			Source: cell(record, source),
			Target: cell(record, target),
			Score:  cell(record, score),
		})
	}

	return file, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// ReadMetadata parses a metadata.json file.
func ReadMetadata(path string) (submission.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return submission.Metadata{}, fmt.Errorf("failed to open %s: %w", path, err)
	}

	var meta submission.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return submission.Metadata{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return meta, nil
}

// WriteResults writes the judging outcome of a submission as indented JSON,
// stable across reruns of the same inputs.
func WriteResults(path string, results any) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
