// The package redb defines the redis implementation of the private judging
// store, which holds the withheld ground truth, the score reports and the
// leaderboard. During judging the store is read-only: scoring never writes,
// only the final report publication does.
package redb

import (
	"context"
	"errors"
	"fmt"

	"github.com/citebench/coldstart/pkg/graph"
	"github.com/citebench/coldstart/pkg/metrics"
	"github.com/citebench/coldstart/pkg/split"

	"github.com/redis/go-redis/v9"
)

const (
	// redis variable names
	KeyTestNodes    = "test_nodes"
	KeyTrainNodes   = "train_nodes"
	KeyLeaderboard  = "leaderboard"
	KeyTeamIndex    = "team_index"
	KeyTruthPrefix  = "truth:"
	KeyReportPrefix = "report:"

	// redis report HASH fields
	ReportTeam           = "team"
	ReportPrecision      = "precision"
	ReportRecall         = "recall"
	ReportF1             = "f1"
	ReportHitPrefix      = "hit@"
	ReportTruePositives  = "true_positives"
	ReportFalsePositives = "false_positives"
	ReportFalseNegatives = "false_negatives"
)

var (
	ErrStoreNotEmpty        = errors.New("redb: the store already holds a competition instance")
	ErrStoreEmpty           = errors.New("redb: the store holds no competition instance")
	ErrTeamAlreadySubmitted = errors.New("redb: team has already submitted; only one submission per team is allowed")
)

type RedisDB struct {
	Client *redis.Client
}

func New(opt *redis.Options) RedisDB {
	return RedisDB{Client: redis.NewClient(opt)}
}

// Empty returns whether the store holds no competition instance.
func (db RedisDB) Empty(ctx context.Context) (bool, error) {
	count, err := db.Client.Exists(ctx, KeyTestNodes).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check the store: %w", err)
	}
	return count == 0, nil
}

// LoadSplit loads the partition of a competition instance into the store:
// node membership sets plus one truth set per test node with edges.
// It refuses to overwrite an existing instance.
func (db RedisDB) LoadSplit(ctx context.Context, s split.Split) error {
	empty, err := db.Empty(ctx)
	if err != nil {
		return fmt.Errorf("failed to load the split: %w", err)
	}

	if !empty {
		return fmt.Errorf("failed to load the split: %w", ErrStoreNotEmpty)
	}

	pipe := db.Client.TxPipeline()
	pipe.SAdd(ctx, KeyTestNodes, toMembers(s.TestNodes)...)
	pipe.SAdd(ctx, KeyTrainNodes, toMembers(s.TrainNodes)...)

	for node, targets := range s.Truth {
		if len(targets) == 0 {
			// empty entries are reconstructed from the test_nodes set
			continue
		}
		pipe.SAdd(ctx, truth(node), toMembers(targets)...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to load the split: pipeline failed: %w", err)
	}

	return nil
}

// TestNodes returns the sorted test nodes of the stored instance.
func (db RedisDB) TestNodes(ctx context.Context) ([]graph.ID, error) {
	return db.members(ctx, KeyTestNodes)
}

// TrainNodes returns the sorted train nodes of the stored instance.
func (db RedisDB) TrainNodes(ctx context.Context) ([]graph.ID, error) {
	return db.members(ctx, KeyTrainNodes)
}

func (db RedisDB) members(ctx context.Context, key string) ([]graph.ID, error) {
	members, err := db.Client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, ErrStoreEmpty)
	}

	return toIDs(members)
}

// GroundTruth fetches the whole ground truth, including the empty entries of
// test nodes that had no edges.
func (db RedisDB) GroundTruth(ctx context.Context) (split.GroundTruth, error) {
	nodes, err := db.TestNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the ground truth: %w", err)
	}

	pipe := db.Client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(nodes))
	for i, node := range nodes {
		cmds[i] = pipe.SMembers(ctx, truth(node))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch %d truth sets: %w", len(nodes), err)
	}

	gt := make(split.GroundTruth, len(nodes))
	for i, cmd := range cmds {
		targets, err := toIDs(cmd.Val())
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", truth(nodes[i]), err)
		}

		if targets == nil {
			targets = []graph.ID{}
		}
		gt[nodes[i]] = targets
	}

	return gt, nil
}

// RegisterTeam claims the one submission slot of the team, case-insensitively.
func (db RedisDB) RegisterTeam(ctx context.Context, team, runID string) error {
	ok, err := db.Client.HSetNX(ctx, KeyTeamIndex, teamKey(team), runID).Result()
	if err != nil {
		return fmt.Errorf("failed to register team %s: %w", team, err)
	}

	if !ok {
		return fmt.Errorf("failed to register team %s: %w", team, ErrTeamAlreadySubmitted)
	}

	return nil
}

// SaveReport persists the score report of a run and ranks the team on the
// leaderboard by its F1 score.
func (db RedisDB) SaveReport(ctx context.Context, runID, team string, rep metrics.Report) error {
	fields := reportFields(team, rep)

	pipe := db.Client.TxPipeline()
	pipe.HSet(ctx, report(runID), fields)
	pipe.ZAdd(ctx, KeyLeaderboard, redis.Z{Score: rep.F1, Member: team})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save the report of run %s: %w", runID, err)
	}

	return nil
}

// Report fetches the stored score report of a run.
func (db RedisDB) Report(ctx context.Context, runID string) (metrics.Report, error) {
	fields, err := db.Client.HGetAll(ctx, report(runID)).Result()
	if err != nil {
		return metrics.Report{}, fmt.Errorf("failed to fetch %s: %w", report(runID), err)
	}

	if len(fields) == 0 {
		return metrics.Report{}, fmt.Errorf("failed to fetch %s: %w", report(runID), ErrStoreEmpty)
	}

	return parseReport(fields)
}

// Entry is one leaderboard row.
type Entry struct {
	Team string
	F1   float64
}

// Leaderboard returns up to limit teams ranked by descending F1.
// If limit is -1, all teams are returned.
func (db RedisDB) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	stop := int64(limit) - 1
	if limit == -1 {
		stop = -1
	}

	ranked, err := db.Client.ZRevRangeWithScores(ctx, KeyLeaderboard, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the leaderboard: %w", err)
	}

	entries := make([]Entry, len(ranked))
	for i, z := range ranked {
		team, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("failed to fetch the leaderboard: unexpected member %v", z.Member)
		}
		entries[i] = Entry{Team: team, F1: z.Score}
	}

	return entries, nil
}
