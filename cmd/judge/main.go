package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/citebench/coldstart/pkg/config"
	"github.com/citebench/coldstart/pkg/dataset"
	"github.com/citebench/coldstart/pkg/graph"
	"github.com/citebench/coldstart/pkg/judge"
	"github.com/citebench/coldstart/pkg/redb"
	"github.com/citebench/coldstart/pkg/submission"

	_ "github.com/joho/godotenv/autoload" // autoloading .env
	"github.com/redis/go-redis/v9"
)

/*
This program judges one or more submission directories against the private
ground truth: each submission is validated, scored, and its results.json is
written next to its predictions. With redis configured, reports are persisted
and teams are ranked on the leaderboard, one submission per team.

Usage:

	judge <submission_dir> [<submission_dir> ...]
*/

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		fmt.Println("usage: judge <submission_dir> [<submission_dir> ...]")
		os.Exit(1)
	}
	dirs := os.Args[1:]

	config, err := config.Load()
	if err != nil {
		panic(err)
	}

	var db redb.RedisDB
	var store judge.TruthStore

	switch config.UseRedis {
	case true:
		db = redb.New(&redis.Options{Addr: config.RedisAddress})
		store = db

	case false:
		store, err = fileStore(dataset.Layout{Dir: config.DataDir})
		if err != nil {
			panic(err)
		}
	}

	subs := make(chan submission.Submission, len(dirs))
	dirByRun := make(map[string]string, len(dirs))

	for _, dir := range dirs {
		sub, err := dataset.ReadSubmission(dir)
		if err != nil {
			log.Printf("skipping %s: %v", dir, err)
			continue
		}

		dirByRun[sub.RunID] = dir
		subs <- sub
	}
	close(subs)

	var mu sync.Mutex
	publish := func(outcome judge.Outcome) error {
		mu.Lock()
		defer mu.Unlock()
		return report(ctx, config, db, dirByRun[outcome.RunID], outcome)
	}

	if err := judge.Run(ctx, config.Judge, store, subs, publish); err != nil {
		panic(err)
	}

	if config.UseRedis {
		printLeaderboard(ctx, db)
	}
}

// fileStore builds the in-memory truth store from the on-disk instance.
func fileStore(layout dataset.Layout) (judge.TruthStore, error) {
	testNodes, err := dataset.ReadNodes(layout.TestNodes())
	if err != nil {
		return nil, err
	}

	trainNodes, _, err := dataset.ReadFeatures(layout.TrainFeatures())
	if err != nil {
		return nil, err
	}

	truth, err := dataset.ReadGroundTruth(layout.TestLabels())
	if err != nil {
		return nil, err
	}

	// restore the empty entries of test nodes without edges
	for _, node := range testNodes {
		if _, ok := truth[node]; !ok {
			truth[node] = []graph.ID{}
		}
	}

	return judge.NewStaticTruth(testNodes, trainNodes, truth), nil
}

// report writes the outcome next to the submission and, with redis in use,
// persists the score and ranks the team.
func report(ctx context.Context, config config.Config, db redb.RedisDB, dir string, outcome judge.Outcome) error {
	path := filepath.Join(dir, dataset.ResultsFile)
	if err := dataset.WriteResults(path, outcome); err != nil {
		return err
	}

	for _, warning := range outcome.Validation.Warnings {
		log.Printf("%s: warning: %s", dir, warning)
	}

	if !outcome.Validation.OK {
		log.Printf("%s: REJECTED", dir)
		for _, failure := range outcome.Validation.Errors {
			log.Printf("%s: error: %s", dir, failure)
		}
		return nil
	}

	rep := outcome.Report
	log.Printf("%s: team %s: precision %.4f, recall %.4f, f1 %.4f",
		dir, outcome.Metadata.TeamName, rep.Precision, rep.Recall, rep.F1)
	for _, k := range config.Judge.Ks {
		log.Printf("%s: hit@%d: %.4f", dir, k, rep.HitAtK[k])
	}

	if !config.UseRedis {
		return nil
	}

	err := db.RegisterTeam(ctx, outcome.Metadata.TeamName, outcome.RunID)
	if errors.Is(err, redb.ErrTeamAlreadySubmitted) {
		log.Printf("%s: REJECTED: %v", dir, err)
		return nil
	}
	if err != nil {
		return err
	}

	return db.SaveReport(ctx, outcome.RunID, outcome.Metadata.TeamName, *rep)
}

func printLeaderboard(ctx context.Context, db redb.RedisDB) {
	entries, err := db.Leaderboard(ctx, 10)
	if err != nil {
		log.Printf("failed to fetch the leaderboard: %v", err)
		return
	}

	fmt.Println("Leaderboard:")
	for i, e := range entries {
		fmt.Printf("  %2d. %-24s f1=%.4f\n", i+1, e.Team, e.F1)
	}
}
