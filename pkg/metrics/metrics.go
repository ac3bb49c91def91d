// The metrics package scores link predictions against the withheld ground
// truth. Scoring is a pure function of its inputs: the same predictions,
// truth and cutoffs always produce the same report, so submissions can be
// judged concurrently with no shared mutable state.
package metrics

import (
	"slices"
	"sort"

	"github.com/citebench/coldstart/pkg/graph"
	"github.com/citebench/coldstart/pkg/split"
	"github.com/citebench/coldstart/pkg/submission"
)

// Averaging mode of the F1 score. Edge sets are pooled globally; per-class
// macro averaging over the candidate pair space is a different competition
// variant and is not implemented here.
const AveragingMicro = "micro"

// Report is the stable, re-derivable scoring output for one submission.
type Report struct {
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1_score"`
	HitAtK    map[int]float64 `json:"hit_at_k"`

	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`

	NumPredictions int `json:"num_predictions"`
	NumGroundTruth int `json:"num_ground_truth"`
	NumTestNodes   int `json:"num_test_nodes"` // test nodes with at least one scorable true edge

	Averaging string `json:"averaging"`
}

type pair struct {
	source graph.ID
	target graph.ID
}

// Score computes precision, recall, F1 and Hit@K between the predicted and
// true edge sets. Degenerate inputs (no predictions, no true edges) produce
// explicit zero-valued metrics, never an error: a competition must be able
// to rank even a trivial submission.
//
// Only (test node, train node) pairs are scored. The partitioner records an
// edge between two test nodes under both endpoints, but no valid prediction
// can name a test node as target, so such pairs are excluded from the true
// edge set and from the Hit@K denominator rather than counted as
// unrecoverable misses.
//
// Predictions are deduplicated by (source,target) before scoring, keeping the
// highest score of each duplicate group. For Hit@K the predictions of a node
// are ranked by descending score, with ties and score-less predictions broken
// by ascending target ID, so that rankings are reproducible.
func Score(preds []submission.Prediction, truth split.GroundTruth, ks []int) Report {
	unique := dedup(preds)
	truth = predictable(truth)

	trueSet := make(map[pair]struct{}, truth.NumEdges())
	for source, targets := range truth {
		for _, target := range targets {
			trueSet[pair{source, target}] = struct{}{}
		}
	}

	var tp int
	for _, p := range unique {
		if _, ok := trueSet[pair{p.Source, p.Target}]; ok {
			tp++
		}
	}

	fp := len(unique) - tp
	fn := len(trueSet) - tp

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)

	var f1 float64
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	report := Report{
		Precision:      precision,
		Recall:         recall,
		F1:             f1,
		HitAtK:         hitAtK(unique, truth, ks),
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
		NumPredictions: len(unique),
		NumGroundTruth: len(trueSet),
		NumTestNodes:   truth.NumSources(),
		Averaging:      AveragingMicro,
	}

	return report
}

// predictable keeps only the truth targets that are train nodes. Every test
// node has an entry in the ground truth, so a target that is itself a key is
// a test node and cannot be the target of a valid prediction.
func predictable(truth split.GroundTruth) split.GroundTruth {
	filtered := make(split.GroundTruth, len(truth))
	for source, targets := range truth {
		kept := make([]graph.ID, 0, len(targets))
		for _, target := range targets {
			if _, ok := truth[target]; ok {
				continue
			}
			kept = append(kept, target)
		}
		filtered[source] = kept
	}
	return filtered
}

// dedup removes duplicate (source,target) pairs, keeping the highest score
// seen for each pair.
func dedup(preds []submission.Prediction) []submission.Prediction {
	index := make(map[pair]int, len(preds))
	unique := make([]submission.Prediction, 0, len(preds))

	for _, p := range preds {
		key := pair{p.Source, p.Target}
		i, ok := index[key]
		if !ok {
			index[key] = len(unique)
			unique = append(unique, p)
			continue
		}

		if p.HasScore && (!unique[i].HasScore || p.Score > unique[i].Score) {
			unique[i] = p
		}
	}

	return unique
}

// hitAtK computes, for each cutoff k, the fraction of test nodes with at
// least one true edge whose top-k ranked predictions contain a true target.
// Test nodes without true edges are excluded from the denominator: they
// cannot be hit in any meaningful sense.
func hitAtK(preds []submission.Prediction, truth split.GroundTruth, ks []int) map[int]float64 {
	hits := make(map[int]float64, len(ks))
	if len(ks) == 0 {
		return hits
	}

	bysource := make(map[graph.ID][]submission.Prediction)
	for _, p := range preds {
		bysource[p.Source] = append(bysource[p.Source], p)
	}

	for _, ranked := range bysource {
		sort.Slice(ranked, func(i, j int) bool { return before(ranked[i], ranked[j]) })
	}

	evaluated := truth.NumSources()
	for _, k := range ks {
		if evaluated == 0 {
			hits[k] = 0
			continue
		}

		var hit int
		for source, targets := range truth {
			if len(targets) == 0 {
				continue
			}

			ranked := bysource[source]
			if len(ranked) > k {
				ranked = ranked[:k]
			}

			for _, p := range ranked {
				if slices.Contains(targets, p.Target) {
					hit++
					break
				}
			}
		}

		hits[k] = float64(hit) / float64(evaluated)
	}

	return hits
}

// before is the ranking order of predictions within one source node:
// scored before unscored, higher score first, then ascending target ID.
func before(a, b submission.Prediction) bool {
	if a.HasScore != b.HasScore {
		return a.HasScore
	}

	if a.HasScore && a.Score != b.Score {
		return a.Score > b.Score
	}

	return a.Target < b.Target
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
