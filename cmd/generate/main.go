package main

import (
	"context"
	"log"

	"github.com/citebench/coldstart/pkg/config"
	"github.com/citebench/coldstart/pkg/dataset"
	"github.com/citebench/coldstart/pkg/redb"
	"github.com/citebench/coldstart/pkg/split"
	"github.com/citebench/coldstart/pkg/synth"

	_ "github.com/joho/godotenv/autoload" // autoloading .env
	"github.com/redis/go-redis/v9"
)

/*
This program generates one competition instance: it synthesizes the citation
graph, partitions it into train and cold-start test nodes, and persists the
public artifacts for participants and the private ground truth for judging.
An invariant violation aborts the run before anything is persisted.
*/

func main() {
	ctx := context.Background()

	config, err := config.Load()
	if err != nil {
		panic(err)
	}
	config.Print()

	log.Println("synthesizing the citation graph...")
	graph, features, err := synth.Synthesize(config.Synth)
	if err != nil {
		panic(err)
	}
	log.Printf("generated %d nodes and %d edges", graph.NumNodes, len(graph.Edges))

	log.Println("partitioning into train and cold-start test nodes...")
	s, err := split.Partition(graph, config.Split)
	if err != nil {
		panic(err)
	}
	log.Printf("train nodes: %d, test nodes: %d", len(s.TrainNodes), len(s.TestNodes))
	log.Printf("train edges: %d, ground truth edges: %d", len(s.TrainEdges), s.Truth.NumEdges())

	layout := dataset.Layout{Dir: config.DataDir}
	if err := dataset.WriteSplit(layout, s, features); err != nil {
		panic(err)
	}
	log.Printf("wrote public artifacts to %s", layout.PublicDir())
	log.Printf("wrote private ground truth to %s (do not publish)", layout.PrivateDir())

	if config.UseRedis {
		db := redb.New(&redis.Options{Addr: config.RedisAddress})
		if err := db.LoadSplit(ctx, s); err != nil {
			panic(err)
		}
		log.Printf("loaded the instance into redis at %s", config.RedisAddress)
	}
}
