// loaderbench loads a dataset from atomic files, builds one data loader
// per phase from the YAML/env configuration, runs an epoch through each
// and reports throughput. Optionally it writes a JSON report and a
// histogram of per-user positive counts.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/atsumi000105/RecBole/config"
	"github.com/atsumi000105/RecBole/data"
	"github.com/atsumi000105/RecBole/dataloader"
	"github.com/atsumi000105/RecBole/sampler"
)

var phases = []string{"train", "valid", "test"}

// phaseReport is one phase's epoch statistics.
type phaseReport struct {
	Phase       string  `json:"phase"`
	Batches     int     `json:"batches"`
	Rows        int     `json:"rows"`
	Positive    int     `json:"positive"`
	Negative    int     `json:"negative"`
	Seconds     float64 `json:"seconds"`
	RowsPerSec  float64 `json:"rows_per_sec"`
	BatchSize   int     `json:"batch_size"`
	RequestedBS int     `json:"requested_batch_size"`
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	reportPath := flag.String("report", "", "write a JSON epoch report to this path")
	plotPath := flag.String("plot", "", "write a per-user positives histogram PNG to this path")
	epochs := flag.Int("epochs", 1, "epochs to run per phase")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)

	ds, err := data.LoadDataset(cfg.Dataset.Dir, cfg.Dataset.Name,
		cfg.Dataset.UserIDField, cfg.Dataset.ItemIDField,
		data.WithSeed(datasetSeed(cfg)))
	if err != nil {
		log.Fatal().Err(err).Msg("loading dataset")
	}
	log.Info().
		Int("rows", ds.Len()).
		Int("users", ds.UserNum()).
		Int("items", ds.ItemNum()).
		Msg("dataset loaded")

	var samOpts []sampler.Option
	if cfg.Sampler.Seed != 0 {
		samOpts = append(samOpts, sampler.WithSamplerSeed(cfg.Sampler.Seed))
	}

	reports := make([]*phaseReport, len(phases))
	var g errgroup.Group
	for i, phase := range phases {
		g.Go(func() error {
			// Each goroutine owns its dataset and sampler: loaders are
			// single-goroutine by contract and eager materialization
			// swaps the interaction table.
			pds, err := data.LoadDataset(cfg.Dataset.Dir, cfg.Dataset.Name,
				cfg.Dataset.UserIDField, cfg.Dataset.ItemIDField,
				data.WithSeed(datasetSeed(cfg)))
			if err != nil {
				return fmt.Errorf("phase %s: %w", phase, err)
			}
			// All phases share the one split here; the bench exercises
			// the loader paths, not a train/valid/test protocol.
			sam, err := sampler.New(phases, []*data.Dataset{pds, pds, pds},
				sampler.Distribution(cfg.Loader.NegSample.Distribution), samOpts...)
			if err != nil {
				return fmt.Errorf("phase %s: %w", phase, err)
			}
			plog := log.With().Str("phase", phase).Logger()
			loader, err := dataloader.New(pds, sam, phase, cfg.LoaderOptions(&plog))
			if err != nil {
				return fmt.Errorf("phase %s: %w", phase, err)
			}
			rep, err := runEpochs(loader, cfg.Loader.LabelField, *epochs)
			if err != nil {
				return fmt.Errorf("phase %s: %w", phase, err)
			}
			rep.Phase = phase
			rep.RequestedBS = cfg.Loader.BatchSize
			reports[i] = rep
			plog.Info().
				Int("batches", rep.Batches).
				Int("rows", rep.Rows).
				Float64("rows_per_sec", rep.RowsPerSec).
				Msg("epoch done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("bench failed")
	}

	if *reportPath != "" {
		if err := writeReport(*reportPath, reports); err != nil {
			log.Fatal().Err(err).Msg("writing report")
		}
		log.Info().Str("path", *reportPath).Msg("report written")
	}
	if *plotPath != "" {
		if err := plotPositives(ds, *plotPath); err != nil {
			log.Fatal().Err(err).Msg("writing histogram")
		}
		log.Info().Str("path", *plotPath).Msg("histogram written")
	}
}

func newLogger(lc config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var out io.Writer = os.Stderr
	if lc.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func datasetSeed(cfg *config.Config) int64 {
	if cfg.Dataset.Seed != 0 {
		return cfg.Dataset.Seed
	}
	return time.Now().UnixNano()
}

// runEpochs drains the loader the requested number of times and counts
// what came out.
func runEpochs(loader *dataloader.DataLoader, labelField string, epochs int) (*phaseReport, error) {
	rep := &phaseReport{BatchSize: loader.BatchSize()}
	start := time.Now()
	for range epochs {
		for {
			batch, err := loader.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			rep.Batches++
			rep.Rows += batch.Len()
			if col, err := batch.Get(labelField); err == nil {
				for _, l := range col.FloatValues() {
					if l > 0.5 {
						rep.Positive++
					} else {
						rep.Negative++
					}
				}
			}
		}
	}
	rep.Seconds = time.Since(start).Seconds()
	if rep.Seconds > 0 {
		rep.RowsPerSec = float64(rep.Rows) / rep.Seconds
	}
	return rep, nil
}

func writeReport(path string, reports []*phaseReport) error {
	buf, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

// plotPositives draws a histogram of per-user positive-item counts.
func plotPositives(ds *data.Dataset, outPath string) error {
	groups := ds.UIDItems()
	vals := make(plotter.Values, groups.Len())
	for i := range groups.Len() {
		vals[i] = float64(len(groups.Items(i)))
	}

	p := plot.New()
	p.Title.Text = "Positive interactions per user"
	p.X.Label.Text = "positives"
	p.Y.Label.Text = "users"

	h, err := plotter.NewHist(vals, 20)
	if err != nil {
		return err
	}
	p.Add(h)

	return p.Save(8*vg.Inch, 6*vg.Inch, outPath)
}
