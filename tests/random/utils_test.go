package random_test

import (
	"math/rand/v2"
	"testing"

	"github.com/citebench/coldstart/pkg/graph"
	"github.com/citebench/coldstart/pkg/split"
	"github.com/citebench/coldstart/pkg/submission"
	"github.com/citebench/coldstart/pkg/synth"

	"github.com/pippellia-btc/slicex"
)

type Setup struct {
	synth synth.Config
	split split.Config
}

// RandomSetup returns a small random instance. Both seeds derive from the
// same draw, mirroring how an instance file pins one seed for the pipeline.
func RandomSetup() Setup {
	m := 1 + rand.IntN(6)
	seed := rand.Uint64()

	return Setup{
		synth: synth.Config{
			Nodes:      20 + m + rand.IntN(200),
			Features:   4 + rand.IntN(16),
			Attachment: m,
			Seed:       seed,
		},
		split: split.Config{
			TestRatio: 0.1 + 0.4*rand.Float64(),
			Seed:      seed,
		},
	}
}

// Generate synthesizes and partitions the setup, failing the test on error.
func Generate(t *testing.T, setup Setup) (graph.Graph, split.Split) {
	t.Helper()

	g, _, err := synth.Synthesize(setup.synth)
	if err != nil {
		t.Fatalf("failed to synthesize %+v: %v", setup.synth, err)
	}

	s, err := split.Partition(g, setup.split)
	if err != nil {
		t.Fatalf("failed to partition %+v: %v", setup.split, err)
	}

	return g, s
}

// NodeSet returns the test nodes of the split as a set.
func NodeSet(s split.Split) map[graph.ID]struct{} {
	set := make(map[graph.ID]struct{}, len(s.TestNodes))
	for _, node := range s.TestNodes {
		set[node] = struct{}{}
	}
	return set
}

// RandomPredictions returns up to eight random predictions per test node:
// some drawn from the recoverable ground truth, some from the train nodes,
// all scored. Targets are always train nodes, like in a valid submission.
func RandomPredictions(s split.Split) []submission.Prediction {
	preds := make([]submission.Prediction, 0, 8*len(s.TestNodes))

	for _, source := range s.TestNodes {
		for range rand.IntN(8) {
			target := slicex.RandomElement(s.TrainNodes)
			if truth := TrainTargets(s, source); len(truth) > 0 && rand.Float64() < 0.3 {
				target = slicex.RandomElement(truth)
			}

			preds = append(preds, submission.Prediction{
				Source:   source,
				Target:   target,
				Score:    rand.Float64(),
				HasScore: true,
			})
		}
	}

	return preds
}

// TrainTargets returns the truth targets of source that are train nodes.
// Targets that are themselves test nodes come from masked test-test edges
// and cannot appear in a valid submission.
func TrainTargets(s split.Split, source graph.ID) []graph.ID {
	targets := make([]graph.ID, 0, len(s.Truth[source]))
	for _, target := range s.Truth[source] {
		if _, ok := s.Truth[target]; ok {
			continue
		}
		targets = append(targets, target)
	}
	return targets
}
