package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	config, err := Load()
	if err != nil {
		t.Fatalf("failed to load the config: %v", err)
	}

	if config.Synth.Nodes != 1000 {
		t.Errorf("expected 1000 nodes, got %d", config.Synth.Nodes)
	}

	if config.Split.TestRatio != 0.2 {
		t.Errorf("expected test ratio 0.2, got %f", config.Split.TestRatio)
	}
}

func TestLoadInstanceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.yaml")

	content := "nodes: 500\ntest_ratio: 0.3\nseed: 7\nks: [1, 5]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("INSTANCE_FILE", path)

	config, err := Load()
	if err != nil {
		t.Fatalf("failed to load the config: %v", err)
	}

	if config.Synth.Nodes != 500 {
		t.Errorf("expected 500 nodes, got %d", config.Synth.Nodes)
	}

	// defaults not mentioned in the file survive
	if config.Synth.Features != 128 {
		t.Errorf("expected 128 features, got %d", config.Synth.Features)
	}

	if config.Split.TestRatio != 0.3 {
		t.Errorf("expected test ratio 0.3, got %f", config.Split.TestRatio)
	}

	// a single seed drives both synthesis and partitioning
	if config.Synth.Seed != 7 || config.Split.Seed != 7 {
		t.Errorf("expected seed 7, got %d and %d", config.Synth.Seed, config.Split.Seed)
	}

	if len(config.Judge.Ks) != 2 || config.Judge.Ks[0] != 1 || config.Judge.Ks[1] != 5 {
		t.Errorf("expected ks [1 5], got %v", config.Judge.Ks)
	}
}

func TestLoadInvalidInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance.yaml")

	// ratio of 1 leaves no train nodes
	if err := os.WriteFile(path, []byte("test_ratio: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("INSTANCE_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an invalid test ratio")
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("SYNTH_NODES", "250")
	t.Setenv("USE_REDIS", "true")
	t.Setenv("REDIS_ADDRESS", "localhost:7000")

	config, err := Load()
	if err != nil {
		t.Fatalf("failed to load the config: %v", err)
	}

	if config.Synth.Nodes != 250 {
		t.Errorf("expected 250 nodes, got %d", config.Synth.Nodes)
	}

	if !config.UseRedis || config.RedisAddress != "localhost:7000" {
		t.Errorf("unexpected redis settings: %+v", config.SystemConfig)
	}
}
