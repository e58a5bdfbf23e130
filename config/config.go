// Package config holds the YAML-backed settings of the trigramlm tools.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ieee0824/trigramlm/internal/errs"
)

// ErrInvalidParameter is returned by Validate.
var ErrInvalidParameter = errs.ErrInvalidParameter

// Config is the full settings tree of the trigramlm command.
type Config struct {
	Model ModelConfig `yaml:"model"`
	Train TrainConfig `yaml:"train"`
	Log   LogConfig   `yaml:"log"`
}

// ModelConfig selects the model family and its hyperparameters.
// Vocab is a word list; when empty the vocabulary is every corpus word
// seen at least MinCount times.
type ModelConfig struct {
	Family          string  `yaml:"family"`
	Lambda          float64 `yaml:"lambda"`
	L2              float64 `yaml:"l2"`
	Vocab           string  `yaml:"vocab"`
	MinCount        int     `yaml:"min_count"`
	Lexicon         string  `yaml:"lexicon"`
	NormalizerCache int     `yaml:"normalizer_cache"`
}

// TrainConfig controls SGD training of the log-linear model.
type TrainConfig struct {
	LearningRate float64 `yaml:"learning_rate"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	Randomize    bool    `yaml:"randomize"`
	Seed         int64   `yaml:"seed"`
	Progress     bool    `yaml:"progress"`
}

// LogConfig configures the slog handler built by NewLogger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

var families = map[string]bool{
	"uniform":            true,
	"add-lambda":         true,
	"backoff-add-lambda": true,
	"log-linear":         true,
}

// Default returns the settings used when no file overrides them.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Family:          "backoff-add-lambda",
			Lambda:          0.01,
			MinCount:        1,
			NormalizerCache: 4096,
		},
		Train: TrainConfig{
			LearningRate: 0.1,
			Epochs:       10,
			BatchSize:    1,
			Seed:         1,
			Progress:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and applies TRIGRAMLM_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvironment() error {
	if v := os.Getenv("TRIGRAMLM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("TRIGRAMLM_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("TRIGRAMLM_EPOCHS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRIGRAMLM_EPOCHS %q: %w", v, ErrInvalidParameter)
		}
		c.Train.Epochs = n
	}
	return nil
}

// Save writes c as YAML.
func (c *Config) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Validate reports the first out-of-range setting, wrapping
// ErrInvalidParameter.
func (c *Config) Validate() error {
	if !families[c.Model.Family] {
		return fmt.Errorf("model family %q: %w", c.Model.Family, ErrInvalidParameter)
	}
	if c.Model.Lambda < 0 {
		return fmt.Errorf("lambda %v: %w", c.Model.Lambda, ErrInvalidParameter)
	}
	if c.Model.L2 < 0 {
		return fmt.Errorf("l2 %v: %w", c.Model.L2, ErrInvalidParameter)
	}
	if c.Model.Vocab == "" && c.Model.MinCount < 1 {
		return fmt.Errorf("min count %d: %w", c.Model.MinCount, ErrInvalidParameter)
	}
	if c.Model.Family == "log-linear" && c.Model.Lexicon == "" {
		return fmt.Errorf("log-linear model needs a lexicon path: %w", ErrInvalidParameter)
	}
	if c.Train.LearningRate <= 0 || c.Train.Epochs < 1 || c.Train.BatchSize < 1 {
		return fmt.Errorf("training schedule lr=%v epochs=%d batch=%d: %w",
			c.Train.LearningRate, c.Train.Epochs, c.Train.BatchSize, ErrInvalidParameter)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("log format %q: %w", c.Log.Format, ErrInvalidParameter)
	}
	return nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, ErrInvalidParameter)
	}
	return lv, nil
}

// NewLogger builds a logger writing to w.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	lv, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lv}
	if strings.ToLower(l.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
