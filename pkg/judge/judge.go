// The judge package runs submissions through validation and scoring.
// Each submission is judged independently: scoring is a pure function of the
// predictions, the ground truth and the cutoffs, so submissions can be
// processed by concurrent workers sharing only the read-only truth store.
package judge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/citebench/coldstart/pkg/graph"
	"github.com/citebench/coldstart/pkg/metrics"
	"github.com/citebench/coldstart/pkg/split"
	"github.com/citebench/coldstart/pkg/submission"
)

var (
	ErrInvalidCutoffs = errors.New("judge: cutoffs must be positive")
	ErrInvalidWorkers = errors.New("judge: workers must be positive")
)

type Config struct {
	Ks           []int // Hit@K cutoffs
	MaxFanOut    int   // predictions per node above which a warning is raised
	RequireScore bool  // reject submissions without a score column
	Workers      int   // concurrent judging workers
}

func NewConfig() Config {
	return Config{
		Ks:        []int{1, 3, 5, 10},
		MaxFanOut: 50,
		Workers:   4,
	}
}

func (c Config) Validate() error {
	for _, k := range c.Ks {
		if k < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidCutoffs, k)
		}
	}

	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	return nil
}

func (c Config) Print() {
	fmt.Println("Judge:")
	fmt.Printf("  Ks: %v\n", c.Ks)
	fmt.Printf("  MaxFanOut: %d\n", c.MaxFanOut)
	fmt.Printf("  RequireScore: %v\n", c.RequireScore)
	fmt.Printf("  Workers: %d\n", c.Workers)
}

// TruthStore is the private side of a competition instance. Implementations
// must never mutate during judging.
type TruthStore interface {
	// TestNodes returns the sorted cold-start test nodes.
	TestNodes(ctx context.Context) ([]graph.ID, error)

	// TrainNodes returns the sorted train nodes.
	TrainNodes(ctx context.Context) ([]graph.ID, error)

	// GroundTruth returns the withheld edges, keyed by test node,
	// including empty entries for test nodes without edges.
	GroundTruth(ctx context.Context) (split.GroundTruth, error)
}

// StaticTruth is the in-memory implementation of [TruthStore].
type StaticTruth struct {
	testNodes  []graph.ID
	trainNodes []graph.ID
	truth      split.GroundTruth
}

func NewStaticTruth(testNodes, trainNodes []graph.ID, truth split.GroundTruth) *StaticTruth {
	return &StaticTruth{
		testNodes:  testNodes,
		trainNodes: trainNodes,
		truth:      truth,
	}
}

func (s *StaticTruth) TestNodes(ctx context.Context) ([]graph.ID, error)  { return s.testNodes, nil }
func (s *StaticTruth) TrainNodes(ctx context.Context) ([]graph.ID, error) { return s.trainNodes, nil }
func (s *StaticTruth) GroundTruth(ctx context.Context) (split.GroundTruth, error) {
	return s.truth, nil
}

// Outcome is the judging result of one submission. Report is nil when
// validation failed: no partial scoring is ever attempted.
type Outcome struct {
	RunID      string              `json:"run_id"`
	Metadata   submission.Metadata `json:"metadata"`
	Validation submission.Result   `json:"validation"`
	Report     *metrics.Report     `json:"report,omitempty"`
}

// Judge validates the submission and, if it passes, scores it against the
// ground truth. Validation failures are a property of the outcome, not an
// error; errors are reserved for a broken truth store.
func Judge(ctx context.Context, config Config, store TruthStore, sub submission.Submission) (Outcome, error) {
	if err := config.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("Judge: %w", err)
	}

	testNodes, err := store.TestNodes(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("Judge: failed to fetch the test nodes: %w", err)
	}

	trainNodes, err := store.TrainNodes(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("Judge: failed to fetch the train nodes: %w", err)
	}

	domain := submission.NewDomain(testNodes, trainNodes, config.MaxFanOut)
	domain.RequireScore = config.RequireScore

	outcome := Outcome{
		RunID:    sub.RunID,
		Metadata: sub.Metadata,
	}

	outcome.Validation = submission.Validate(sub, domain)
	if !outcome.Validation.OK {
		return outcome, nil
	}

	preds, err := sub.File.Predictions()
	if err != nil {
		// unreachable after a passing validation, but never score partially
		return Outcome{}, fmt.Errorf("Judge: failed to parse predictions: %w", err)
	}

	truth, err := store.GroundTruth(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("Judge: failed to fetch the ground truth: %w", err)
	}

	report := metrics.Score(preds, truth, config.Ks)
	outcome.Report = &report
	return outcome, nil
}

// Run drains the submissions channel with [Config.Workers] workers, sending
// each outcome downstream. The truth store is loaded once and shared
// read-only. Run returns when the channel is closed or the context canceled.
func Run(
	ctx context.Context,
	config Config,
	store TruthStore,
	subs chan submission.Submission,
	send func(Outcome) error) error {

	if err := config.Validate(); err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	shared, err := load(ctx, store)
	if err != nil {
		return fmt.Errorf("Run: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(config.Workers)

	for range config.Workers {
		go func() {
			defer wg.Done()
			worker(ctx, config, shared, subs, send)
		}()
	}

	wg.Wait()
	return nil
}

func worker(
	ctx context.Context,
	config Config,
	store TruthStore,
	subs chan submission.Submission,
	send func(Outcome) error) {

	for {
		select {
		case <-ctx.Done():
			return

		case sub, ok := <-subs:
			if !ok {
				return
			}

			outcome, err := Judge(ctx, config, store, sub)
			if err != nil {
				log.Printf("Judge: run %s by %s: %v", sub.RunID, sub.Metadata.TeamName, err)
				continue
			}

			if err := send(outcome); err != nil {
				log.Printf("Judge: run %s by %s: %v", sub.RunID, sub.Metadata.TeamName, err)
			}
		}
	}
}

// load snapshots the truth store into memory, so that workers never hit the
// backing store concurrently.
func load(ctx context.Context, store TruthStore) (*StaticTruth, error) {
	testNodes, err := store.TestNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the test nodes: %w", err)
	}

	trainNodes, err := store.TrainNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the train nodes: %w", err)
	}

	truth, err := store.GroundTruth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the ground truth: %w", err)
	}

	return NewStaticTruth(testNodes, trainNodes, truth), nil
}
