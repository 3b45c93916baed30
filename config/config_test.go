package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atsumi000105/RecBole/dataloader"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Loader.BatchSize != 2048 {
		t.Fatalf("default batch size = %d, want 2048", cfg.Loader.BatchSize)
	}
	if cfg.Loader.NegSample.Strategy != "by" {
		t.Fatalf("default strategy = %q, want by", cfg.Loader.NegSample.Strategy)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("default log format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
dataset:
  dir: /data
  name: ml-100k
loader:
  batch_size: 512
  format: pairwise
  neg_sample:
    strategy: by
    by: 1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Loader.BatchSize != 512 {
		t.Fatalf("batch size = %d, want 512", cfg.Loader.BatchSize)
	}
	if cfg.Dataset.Name != "ml-100k" {
		t.Fatalf("dataset name = %q, want ml-100k", cfg.Dataset.Name)
	}
	// Untouched keys keep their defaults.
	if cfg.Loader.LabelField != "label" {
		t.Fatalf("label field = %q, want default", cfg.Loader.LabelField)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("loader:\n  batch_size: 512\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECBOLE_LOADER__BATCH_SIZE", "64")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Loader.BatchSize != 64 {
		t.Fatalf("batch size = %d, want env override 64", cfg.Loader.BatchSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateCrossFieldRules(t *testing.T) {
	base := func() *Config { return Default() }

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}

	cfg = base()
	cfg.Loader.NegSample.Strategy = "by"
	cfg.Loader.NegSample.By = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for by strategy without negatives")
	}

	cfg = base()
	cfg.Loader.NegSample.Strategy = "to"
	cfg.Loader.NegSample.To = 1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for candidate set of one")
	}

	cfg = base()
	cfg.Loader.Format = "pairwise"
	cfg.Loader.NegSample.Strategy = "to"
	cfg.Loader.NegSample.To = 4
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for pairwise with grouped sampling")
	}

	cfg = base()
	cfg.Loader.Format = "listwise"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected tag validation error for unknown format")
	}
}

func TestLoaderOptions(t *testing.T) {
	cfg := Default()
	cfg.Loader.BatchSize = 128
	cfg.Loader.NegSample.Strategy = "to"
	cfg.Loader.NegSample.To = 10
	opts := cfg.LoaderOptions(nil)
	if opts.BatchSize != 128 {
		t.Fatalf("options batch size = %d, want 128", opts.BatchSize)
	}
	if opts.NegSample.Strategy != dataloader.StrategyTo || opts.NegSample.To != 10 {
		t.Fatalf("options strategy = %+v", opts.NegSample)
	}
	if opts.Format != dataloader.Pointwise {
		t.Fatalf("options format = %q, want pointwise", opts.Format)
	}
}
