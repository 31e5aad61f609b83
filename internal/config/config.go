package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/reimbursement-engine/internal/eval"
	"github.com/danielpatrickdp/reimbursement-engine/internal/gate"
	"github.com/danielpatrickdp/reimbursement-engine/internal/optimizer"
	"github.com/danielpatrickdp/reimbursement-engine/internal/params"
	"github.com/danielpatrickdp/reimbursement-engine/internal/pipeline"
)

// #region config
// Config is the full runtime configuration of the reimburse tool.
type Config struct {
	Corpus    string           `yaml:"corpus" validate:"required"`
	DBPath    string           `yaml:"db" validate:"required"`
	Pipeline  PipelineConfig   `yaml:"pipeline"`
	Score     eval.ScoreConfig `yaml:"score"`
	Optimizer OptimizerConfig  `yaml:"optimizer"`
	Gate      gate.GateConfig  `yaml:"gate"`
}

// PipelineConfig picks the starting pipeline.
type PipelineConfig struct {
	Preset           string     `yaml:"preset" validate:"oneof=nominal hypothesis"`
	ClampNonNegative bool       `yaml:"clamp_non_negative"`
	QuirkTriggers    []int64    `yaml:"quirk_triggers" validate:"dive,gte=0,lte=99"`
	Parameters       params.Set `yaml:"parameters"` // applied over the preset
}

// OptimizerConfig configures a calibration run.
type OptimizerConfig struct {
	Strategy        string           `yaml:"strategy" validate:"oneof=grid hill_climb genetic"`
	Budget          optimizer.Budget `yaml:"budget"`
	Seed            uint64           `yaml:"seed"`
	Workers         int              `yaml:"workers" validate:"gte=0"`      // candidates scored at once
	EvalWorkers     int              `yaml:"eval_workers" validate:"gte=0"` // goroutines per evaluator pass; 0 = GOMAXPROCS
	HoldoutFraction float64          `yaml:"holdout_fraction" validate:"gte=0,lt=1"`
	Names           []string         `yaml:"names"`
	Bounds          params.Bounds    `yaml:"bounds"`

	optimizer.StrategyOptions `yaml:",inline"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	return &Config{
		Corpus: "public_cases.json",
		DBPath: "reimbursement.db",
		Pipeline: PipelineConfig{
			Preset:        pipeline.PresetNominal,
			QuirkTriggers: append([]int64(nil), pipeline.DefaultQuirkTriggers...),
		},
		Score: eval.DefaultScoreConfig(),
		Optimizer: OptimizerConfig{
			Strategy:        optimizer.StrategyHillClimb,
			Budget:          optimizer.DefaultConfig().Budget,
			Seed:            optimizer.DefaultConfig().Seed,
			Workers:         1,
			HoldoutFraction: 0.2,
		},
		Gate: gate.DefaultGateConfig(),
	}
}

// #endregion config

// #region load
// Load builds the configuration: defaults, then the optional .env file, then the
// YAML file at path (if non-empty), then REIMBURSE_* environment overrides.
// The result is validated.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays the REIMBURSE_* variables.
func applyEnv(cfg *Config) error {
	cfg.Corpus = envOr("REIMBURSE_CORPUS", cfg.Corpus)
	cfg.DBPath = envOr("REIMBURSE_DB", cfg.DBPath)
	cfg.Optimizer.Strategy = envOr("REIMBURSE_STRATEGY", cfg.Optimizer.Strategy)

	if v := os.Getenv("REIMBURSE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("REIMBURSE_SEED: %w", err)
		}
		cfg.Optimizer.Seed = seed
	}
	if v := os.Getenv("REIMBURSE_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REIMBURSE_WORKERS: %w", err)
		}
		cfg.Optimizer.Workers = workers
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion load

// #region validate
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the bound ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Optimizer.Bounds.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Pipeline.Parameters.CheckFinite(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion validate

// #region builders
// BuildPipeline constructs the configured starting pipeline.
func (c *Config) BuildPipeline() (*pipeline.Pipeline, error) {
	p, err := pipeline.NewPreset(c.Pipeline.Preset, c.Pipeline.QuirkTriggers,
		pipeline.Options{ClampNonNegative: c.Pipeline.ClampNonNegative})
	if err != nil {
		return nil, err
	}
	if len(c.Pipeline.Parameters) > 0 {
		if err := p.SetParameters(c.Pipeline.Parameters); err != nil {
			return nil, fmt.Errorf("pipeline parameters: %w", err)
		}
	}
	return p, nil
}

// OptimizerSettings converts the optimizer section into an optimizer.Config.
func (c *Config) OptimizerSettings() optimizer.Config {
	return optimizer.Config{
		Budget:  c.Optimizer.Budget,
		Seed:    c.Optimizer.Seed,
		Workers: c.Optimizer.Workers,
		Names:   c.Optimizer.Names,
		Bounds:  c.Optimizer.Bounds,
	}
}

// Strategy builds the configured search strategy.
func (c *Config) Strategy() (optimizer.Strategy, error) {
	return optimizer.NewStrategy(c.Optimizer.Strategy, c.Optimizer.StrategyOptions)
}

// #endregion builders
