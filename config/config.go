// Package config loads the toolkit configuration with layered sources:
// built-in defaults, then an optional YAML file, then environment
// variables. Precedence is ENV > file > defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"

	"github.com/atsumi000105/RecBole/dataloader"
)

// EnvPrefix is stripped from environment variables before they are
// mapped onto config keys. A double underscore separates nesting
// levels: RECBOLE_LOADER__BATCH_SIZE -> loader.batch_size.
const EnvPrefix = "RECBOLE_"

// Config is the root configuration.
type Config struct {
	Dataset DatasetConfig `koanf:"dataset"`
	Loader  LoaderConfig  `koanf:"loader"`
	Sampler SamplerConfig `koanf:"sampler"`
	Logging LoggingConfig `koanf:"logging"`
}

// DatasetConfig locates the atomic files and names the id fields.
type DatasetConfig struct {
	Dir         string `koanf:"dir" validate:"required"`
	Name        string `koanf:"name" validate:"required"`
	UserIDField string `koanf:"user_id_field" validate:"required"`
	ItemIDField string `koanf:"item_id_field" validate:"required"`
	// Seed fixes shuffling; 0 means time-seeded.
	Seed int64 `koanf:"seed"`
}

// LoaderConfig configures batch iteration and negative sampling.
type LoaderConfig struct {
	BatchSize  int             `koanf:"batch_size" validate:"gt=0"`
	Format     string          `koanf:"format" validate:"oneof=pointwise pairwise"`
	Shuffle    bool            `koanf:"shuffle"`
	LabelField string          `koanf:"label_field" validate:"required"`
	NegPrefix  string          `koanf:"neg_prefix" validate:"required"`
	NegSample  NegSampleConfig `koanf:"neg_sample"`
}

// NegSampleConfig mirrors dataloader.NegSampleArgs.
type NegSampleConfig struct {
	Strategy     string `koanf:"strategy" validate:"oneof=none by to"`
	RealTime     bool   `koanf:"real_time"`
	By           int    `koanf:"by" validate:"gte=0"`
	To           int    `koanf:"to" validate:"gte=-1"`
	Distribution string `koanf:"distribution" validate:"oneof=uniform popularity"`
}

// SamplerConfig seeds the sampler rng; 0 means time-seeded.
type SamplerConfig struct {
	Seed int64 `koanf:"seed"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the built-in defaults; Load layers file and env on
// top of them.
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Dir:         ".",
			Name:        "dataset",
			UserIDField: "user_id",
			ItemIDField: "item_id",
		},
		Loader: LoaderConfig{
			BatchSize:  2048,
			Format:     "pointwise",
			Shuffle:    true,
			LabelField: "label",
			NegPrefix:  "neg_",
			NegSample: NegSampleConfig{
				Strategy:     "by",
				RealTime:     true,
				By:           1,
				To:           -1,
				Distribution: "uniform",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. path may be empty to skip the file
// layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the struct tags plus the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	ns := c.Loader.NegSample
	if ns.Strategy == "by" && ns.By < 1 {
		return fmt.Errorf("neg_sample.by must be at least 1 under strategy by")
	}
	if ns.Strategy == "to" && ns.To != -1 && ns.To < 2 {
		return fmt.Errorf("neg_sample.to must be -1 or at least 2 under strategy to")
	}
	if c.Loader.Format == "pairwise" && ns.Strategy == "to" {
		return fmt.Errorf("pairwise format cannot neg sample to")
	}
	return nil
}

// LoaderOptions translates the loader section into dataloader Options.
func (c *Config) LoaderOptions(log *zerolog.Logger) dataloader.Options {
	return dataloader.Options{
		BatchSize:  c.Loader.BatchSize,
		Format:     dataloader.Format(c.Loader.Format),
		Shuffle:    c.Loader.Shuffle,
		LabelField: c.Loader.LabelField,
		NegPrefix:  c.Loader.NegPrefix,
		NegSample: dataloader.NegSampleArgs{
			Strategy:     dataloader.Strategy(c.Loader.NegSample.Strategy),
			RealTime:     c.Loader.NegSample.RealTime,
			By:           c.Loader.NegSample.By,
			To:           c.Loader.NegSample.To,
			Distribution: c.Loader.NegSample.Distribution,
		},
		Logger: log,
	}
}
