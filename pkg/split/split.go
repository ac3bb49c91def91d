// The split package partitions a synthetic graph into train nodes and
// cold-start test nodes, masking every edge that touches a test node.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/citebench/coldstart/pkg/graph"
)

var (
	ErrInvalidTestRatio = errors.New("split: test ratio must be within (0,1)")
	ErrEmptySide        = errors.New("split: both train and test sides must be non-empty")

	// ErrColdStartViolated means a published train edge touches a test node.
	// It is a generation defect: nothing must be persisted when it occurs.
	ErrColdStartViolated = errors.New("split: published train edge touches a test node")
)

// GroundTruth maps each test node to the sorted train nodes it was connected
// to before masking. It stays private until judging. A test node that had no
// edges is present with an empty entry.
type GroundTruth map[graph.ID][]graph.ID

// NumEdges returns the total number of ground truth edges.
func (gt GroundTruth) NumEdges() int {
	var count int
	for _, targets := range gt {
		count += len(targets)
	}
	return count
}

// NumSources returns the number of test nodes with at least one true edge.
func (gt GroundTruth) NumSources() int {
	var count int
	for _, targets := range gt {
		if len(targets) > 0 {
			count++
		}
	}
	return count
}

type Config struct {
	TestRatio float64 // fraction of nodes withheld as cold-start test nodes
	Seed      uint64  // seed of the node selection
}

func NewConfig() Config {
	return Config{
		TestRatio: 0.2,
		Seed:      2026,
	}
}

func (c Config) Validate() error {
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		return fmt.Errorf("%w: got %f", ErrInvalidTestRatio, c.TestRatio)
	}
	return nil
}

func (c Config) Print() {
	fmt.Println("Split:")
	fmt.Printf("  TestRatio: %f\n", c.TestRatio)
	fmt.Printf("  Seed: %d\n", c.Seed)
}

// Split is the published partition of a graph plus its private ground truth.
type Split struct {
	TrainNodes []graph.ID   // sorted
	TestNodes  []graph.ID   // sorted
	TrainEdges []graph.Edge // no endpoint in TestNodes
	Truth      GroundTruth
}

// Partition selects round(TestRatio * n) nodes as cold-start test nodes and
// removes every edge touching them from the published train graph, recording
// the removed edges as ground truth keyed by their test endpoint. An edge
// between two test nodes is recorded under both and never published.
//
// The cold-start invariant is asserted before returning; on violation the
// split is discarded and [ErrColdStartViolated] is returned.
func Partition(g graph.Graph, config Config) (Split, error) {
	if err := config.Validate(); err != nil {
		return Split{}, fmt.Errorf("Partition: %w", err)
	}

	if err := g.Validate(); err != nil {
		return Split{}, fmt.Errorf("Partition: %w", err)
	}

	numTest := int(math.Round(config.TestRatio * float64(g.NumNodes)))
	if numTest == 0 || numTest == g.NumNodes {
		return Split{}, fmt.Errorf("Partition: %w: %d test nodes out of %d", ErrEmptySide, numTest, g.NumNodes)
	}

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed))
	order := rng.Perm(g.NumNodes)

	isTest := make([]bool, g.NumNodes)
	testNodes := make([]graph.ID, numTest)
	trainNodes := make([]graph.ID, 0, g.NumNodes-numTest)

	for i, node := range order[:numTest] {
		isTest[node] = true
		testNodes[i] = graph.ID(node)
	}
	for node := range g.NumNodes {
		if !isTest[node] {
			trainNodes = append(trainNodes, graph.ID(node))
		}
	}
	slices.Sort(testNodes)

	truth := make(GroundTruth, numTest)
	for _, node := range testNodes {
		truth[node] = []graph.ID{}
	}

	trainEdges := make([]graph.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		switch {
		case isTest[e.Source] && isTest[e.Target]:
			truth[e.Source] = append(truth[e.Source], e.Target)
			truth[e.Target] = append(truth[e.Target], e.Source)

		case isTest[e.Source]:
			truth[e.Source] = append(truth[e.Source], e.Target)

		case isTest[e.Target]:
			truth[e.Target] = append(truth[e.Target], e.Source)

		default:
			trainEdges = append(trainEdges, e)
		}
	}

	for node := range truth {
		slices.Sort(truth[node])
	}

	split := Split{
		TrainNodes: trainNodes,
		TestNodes:  testNodes,
		TrainEdges: trainEdges,
		Truth:      truth,
	}

	if err := checkColdStart(split, isTest); err != nil {
		return Split{}, fmt.Errorf("Partition: %w", err)
	}

	return split, nil
}

// checkColdStart asserts the invariants of the split: the two node sets are
// disjoint and exhaustive, and no published edge touches a test node.
func checkColdStart(s Split, isTest []bool) error {
	if len(s.TrainNodes)+len(s.TestNodes) != len(isTest) {
		return fmt.Errorf("%w: %d train + %d test nodes out of %d",
			ErrEmptySide, len(s.TrainNodes), len(s.TestNodes), len(isTest))
	}

	for _, node := range s.TrainNodes {
		if isTest[node] {
			return fmt.Errorf("%w: node %d on both sides", ErrColdStartViolated, node)
		}
	}

	for _, e := range s.TrainEdges {
		if isTest[e.Source] || isTest[e.Target] {
			return fmt.Errorf("%w: edge (%d,%d)", ErrColdStartViolated, e.Source, e.Target)
		}
	}

	return nil
}
