// The synth package grows synthetic citation graphs with a preferential
// attachment process and samples a feature vector for every node.
package synth

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/citebench/coldstart/pkg/graph"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrTooFewNodes       = errors.New("synth: nodes must be greater than attachment")
	ErrInvalidFeatures   = errors.New("synth: features must be positive")
	ErrInvalidAttachment = errors.New("synth: attachment must be positive")
)

type Config struct {
	Nodes      int    // total number of nodes
	Features   int    // feature vector dimensionality
	Attachment int    // edges added per arriving node
	Seed       uint64 // seed of the generation; same seed, same output
}

func NewConfig() Config {
	return Config{
		Nodes:      1000,
		Features:   128,
		Attachment: 4,
		Seed:       2026,
	}
}

func (c Config) Validate() error {
	if c.Attachment < 1 {
		return ErrInvalidAttachment
	}

	if c.Nodes <= c.Attachment {
		return fmt.Errorf("%w: %d nodes, attachment %d", ErrTooFewNodes, c.Nodes, c.Attachment)
	}

	if c.Features < 1 {
		return ErrInvalidFeatures
	}
	return nil
}

func (c Config) Print() {
	fmt.Println("Synth:")
	fmt.Printf("  Nodes: %d\n", c.Nodes)
	fmt.Printf("  Features: %d\n", c.Features)
	fmt.Printf("  Attachment: %d\n", c.Attachment)
	fmt.Printf("  Seed: %d\n", c.Seed)
}

// Synthesize builds the base citation graph and its feature matrix.
// Growth follows the Barabasi-Albert model: each arriving node connects to
// [Config.Attachment] distinct existing nodes, chosen with probability
// proportional to their current degree, which produces the long-tailed
// degree distribution of real citation networks.
func Synthesize(config Config) (graph.Graph, *mat.Dense, error) {
	if err := config.Validate(); err != nil {
		return graph.Graph{}, nil, fmt.Errorf("Synthesize: %w", err)
	}

	rng := rand.New(rand.NewPCG(config.Seed, config.Seed))
	g := attach(rng, config.Nodes, config.Attachment)
	features := sampleFeatures(rng, config.Nodes, config.Features)

	if err := g.Validate(); err != nil {
		return graph.Graph{}, nil, fmt.Errorf("Synthesize: %w", err)
	}

	return g, features, nil
}

// attach grows the graph one arrival at a time. The degree-weighted choice is
// done by sampling uniformly from the list of all edge endpoints seen so far,
// in which each node appears once per unit of degree. This keeps every draw
// O(1) instead of recomputing the degree distribution at each step.
func attach(rng *rand.Rand, nodes, m int) graph.Graph {
	edges := make([]graph.Edge, 0, (nodes-m)*m)
	endpoints := make([]graph.ID, 0, 2*(nodes-m)*m)

	// the first arrival connects to all of the m initial nodes
	targets := make([]graph.ID, m)
	for i := range m {
		targets[i] = graph.ID(i)
	}

	for source := graph.ID(m); int(source) < nodes; source++ {
		for _, target := range targets {
			edges = append(edges, graph.NewEdge(source, target))
			endpoints = append(endpoints, source, target)
		}

		if int(source) == nodes-1 {
			break
		}
		targets = sampleDistinct(rng, endpoints, m)
	}

	return graph.Graph{NumNodes: nodes, Edges: edges}
}

// sampleDistinct draws m distinct IDs uniformly from the endpoints list.
// Repeated draws of an already chosen ID are rejected, which terminates
// because the list always holds at least m distinct IDs.
func sampleDistinct(rng *rand.Rand, endpoints []graph.ID, m int) []graph.ID {
	seen := make(map[graph.ID]struct{}, m)
	targets := make([]graph.ID, 0, m)

	for len(targets) < m {
		id := endpoints[rng.IntN(len(endpoints))]
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		targets = append(targets, id)
	}

	return targets
}

// sampleFeatures draws a gaussian feature vector per node and normalizes it
// to unit L2 norm, giving feature-based baselines a weak content signal.
func sampleFeatures(rng *rand.Rand, nodes, dim int) *mat.Dense {
	features := mat.NewDense(nodes, dim, nil)

	for i := range nodes {
		row := features.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}

		norm := floats.Norm(row, 2)
		floats.Scale(1/(norm+1e-10), row)
	}

	return features
}
