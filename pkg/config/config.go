// The config package loads and validates the variables in the enviroment,
// and optionally a per-instance yaml file, into a [Config]
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/citebench/coldstart/pkg/judge"
	"github.com/citebench/coldstart/pkg/split"
	"github.com/citebench/coldstart/pkg/synth"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	_ "github.com/joho/godotenv/autoload" // autoloading .env
)

type SystemConfig struct {
	RedisAddress string `envconfig:"REDIS_ADDRESS"`
	UseRedis     bool   `envconfig:"USE_REDIS"`
	DataDir      string `envconfig:"DATA_DIR"`
	InstanceFile string `envconfig:"INSTANCE_FILE"`
}

func NewSystemConfig() SystemConfig {
	return SystemConfig{
		RedisAddress: "localhost:6379",
		DataDir:      "data",
	}
}

func (c SystemConfig) Validate() error {
	if c.DataDir == "" {
		return errors.New("data dir: value cannot be empty")
	}

	if c.UseRedis && c.RedisAddress == "" {
		return errors.New("redis address: value cannot be empty when redis is in use")
	}
	return nil
}

func (c SystemConfig) Print() {
	fmt.Println("System:")
	fmt.Printf("  RedisAddress: %s\n", c.RedisAddress)
	fmt.Printf("  UseRedis: %v\n", c.UseRedis)
	fmt.Printf("  DataDir: %s\n", c.DataDir)
	fmt.Printf("  InstanceFile: %s\n", c.InstanceFile)
}

// The configuration parameters for the system and the main processes
type Config struct {
	SystemConfig
	Synth synth.Config
	Split split.Config
	Judge judge.Config
}

// New returns a config with default parameters
func New() Config {
	return Config{
		SystemConfig: NewSystemConfig(),
		Synth:        synth.NewConfig(),
		Split:        split.NewConfig(),
		Judge:        judge.NewConfig(),
	}
}

func (c Config) Validate() error {
	if err := c.SystemConfig.Validate(); err != nil {
		return fmt.Errorf("System: %w", err)
	}

	if err := c.Synth.Validate(); err != nil {
		return fmt.Errorf("Synth: %w", err)
	}

	if err := c.Split.Validate(); err != nil {
		return fmt.Errorf("Split: %w", err)
	}

	if err := c.Judge.Validate(); err != nil {
		return fmt.Errorf("Judge: %w", err)
	}
	return nil
}

func (c Config) Print() {
	c.SystemConfig.Print()
	c.Synth.Print()
	c.Split.Print()
	c.Judge.Print()
}

// Instance is the published yaml description of one competition instance.
// Both generation and judging read the same file, so the two sides can
// never disagree on the parameters.
type Instance struct {
	Nodes      *int     `yaml:"nodes"`
	Features   *int     `yaml:"features"`
	Attachment *int     `yaml:"attachment"`
	TestRatio  *float64 `yaml:"test_ratio"`
	Seed       *uint64  `yaml:"seed"`
	Ks         []int    `yaml:"ks"`
}

// apply overwrites the config with the parameters set in the instance file.
func (c *Config) apply(inst Instance) {
	if inst.Nodes != nil {
		c.Synth.Nodes = *inst.Nodes
	}

	if inst.Features != nil {
		c.Synth.Features = *inst.Features
	}

	if inst.Attachment != nil {
		c.Synth.Attachment = *inst.Attachment
	}

	if inst.TestRatio != nil {
		c.Split.TestRatio = *inst.TestRatio
	}

	if inst.Seed != nil {
		c.Synth.Seed = *inst.Seed
		c.Split.Seed = *inst.Seed
	}

	if len(inst.Ks) > 0 {
		c.Judge.Ks = inst.Ks
	}
}

// Load creates a new [Config] with default parameters. Then, if the
// corresponding environment variable is set, it overwrites them; the
// instance file, when configured, is applied last.
func Load() (Config, error) {
	config := New()

	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}

	if config.InstanceFile != "" {
		data, err := os.ReadFile(config.InstanceFile)
		if err != nil {
			return Config{}, fmt.Errorf("config.Load: %w", err)
		}

		var inst Instance
		if err := yaml.Unmarshal(data, &inst); err != nil {
			return Config{}, fmt.Errorf("config.Load: failed to parse %s: %w", config.InstanceFile, err)
		}

		config.apply(inst)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}

	return config, nil
}
