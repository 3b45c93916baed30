// Package dataloader implements batch iteration with negative sampling
// over recommendation datasets. A loader pulls a slice of source rows,
// optionally expands it with sampled negatives, converts the result to
// an Interaction and yields it; io.EOF marks the end of a pass, after
// which the next call starts a fresh (optionally reshuffled) epoch.
package dataloader

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/atsumi000105/RecBole/data"
)

// Format describes how training examples are labeled.
type Format string

const (
	// Pointwise labels each row independently: 1 positive, 0 negative.
	Pointwise Format = "pointwise"
	// Pairwise keeps one row per positive and attaches the negative
	// item as an extra column for direct score comparison.
	Pairwise Format = "pairwise"
)

// Strategy selects the negative-sampling scheme.
type Strategy string

const (
	// StrategyNone yields the source rows untouched.
	StrategyNone Strategy = "none"
	// StrategyBy samples a fixed number of negatives per positive row.
	StrategyBy Strategy = "by"
	// StrategyTo fills each user's candidate set up to a fixed size,
	// or with every item when To is -1.
	StrategyTo Strategy = "to"
)

// NegSampleArgs configures negative sampling.
type NegSampleArgs struct {
	Strategy Strategy
	// RealTime draws negatives per batch at iteration time; otherwise
	// the whole dataset is expanded once at construction.
	RealTime bool
	// By is the number of negatives per positive row (strategy "by").
	By int
	// To is the candidate-set size per user (strategy "to"); -1 means
	// every item.
	To int
	// Distribution names the sampler weighting; informational here,
	// the sampler itself is constructed with it.
	Distribution string
}

// Sampler is the statistical collaborator loaders draw negatives from.
type Sampler interface {
	// SampleByUserIDs draws num negatives per user, laid out round by
	// round (index k*len(uids)+j belongs to uids[j]).
	SampleByUserIDs(phase string, uids []int64, num int) ([]int64, error)
	// SampleByUserID draws up to num distinct negatives for one user.
	SampleByUserID(phase string, uid int64, num int) ([]int64, error)
	// SampleFullByUserID enumerates the user's whole complement set.
	SampleFullByUserID(phase string, uid int64) ([]int64, error)
}

// ErrMidPass is returned by SetBatchSize while a pass is underway.
var ErrMidPass = errors.New("cannot change batch size during a pass")

// Options configures a loader.
type Options struct {
	BatchSize int
	Format    Format
	Shuffle   bool
	NegSample NegSampleArgs

	// LabelField names the synthetic 0/1 column written by pointwise
	// and grouped sampling. Default "label".
	LabelField string
	// NegPrefix prefixes the negative-item column and its joined
	// feature columns in pairwise format. Default "neg_".
	NegPrefix string

	// Logger receives structured diagnostics; defaults to a no-op.
	Logger *zerolog.Logger
}

func (o *Options) fillDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 1
	}
	if o.Format == "" {
		o.Format = Pointwise
	}
	if o.LabelField == "" {
		o.LabelField = "label"
	}
	if o.NegPrefix == "" {
		o.NegPrefix = "neg_"
	}
}

func (o *Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return zerolog.Nop()
}

// source is the per-strategy half of a loader. The variant set is
// closed: plain, interaction-based ("by") and grouped ("to").
type source interface {
	// end returns the number of cursor positions in one full pass.
	end() int
	// next returns the raw rows for the batch starting at pr and the
	// cursor for the following batch.
	next(pr, step int) (*data.Table, int, error)
	// shuffle re-orders the underlying rows between passes.
	shuffle()
	// adapt recomputes the stride for a requested batch size and
	// returns it with the batch size actually adopted.
	adapt(batchSize int) (step, adjusted int)
}

// DataLoader drives the iteration protocol over one strategy source.
// Loaders are single-goroutine: the cursor is unguarded on purpose.
type DataLoader struct {
	ds        *data.Dataset
	schema    data.Schema
	src       source
	batchSize int
	step      int
	shuffle   bool
	pr        int
	log       zerolog.Logger
}

// New builds a loader for the strategy named in opts.NegSample. The
// sampler may be nil for StrategyNone.
func New(ds *data.Dataset, sam Sampler, phase string, opts Options) (*DataLoader, error) {
	opts.fillDefaults()
	switch opts.NegSample.Strategy {
	case StrategyNone, "":
		return newPlain(ds, opts)
	case StrategyBy:
		return NewInteractionBased(ds, sam, phase, opts)
	case StrategyTo:
		return NewGrouped(ds, sam, phase, opts)
	}
	return nil, fmt.Errorf("neg_sample strategy %q has not been implemented", opts.NegSample.Strategy)
}

func newLoader(ds *data.Dataset, schema data.Schema, src source, opts Options) *DataLoader {
	l := &DataLoader{
		ds:      ds,
		schema:  schema,
		src:     src,
		shuffle: opts.Shuffle,
		log:     opts.logger(),
	}
	l.step, l.batchSize = src.adapt(opts.BatchSize)
	if l.batchSize != opts.BatchSize {
		l.log.Warn().
			Int("requested", opts.BatchSize).
			Int("adapted", l.batchSize).
			Msg("batch size adapted to fit sampling multiplier")
	}
	return l
}

// BatchSize returns the batch size in effect, after adaptation.
func (l *DataLoader) BatchSize() int { return l.batchSize }

// Step returns the number of cursor positions consumed per batch.
func (l *DataLoader) Step() int { return l.step }

// End returns the number of cursor positions in one full pass.
func (l *DataLoader) End() int { return l.src.end() }

// SetBatchSize adopts a new batch size. It fails between the first and
// last batch of a pass; calling it with the current value is a no-op.
func (l *DataLoader) SetBatchSize(n int) error {
	if l.pr != 0 {
		return ErrMidPass
	}
	if n <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", n)
	}
	if n == l.batchSize {
		return nil
	}
	l.step, l.batchSize = l.src.adapt(n)
	if l.batchSize != n {
		l.log.Warn().
			Int("requested", n).
			Int("adapted", l.batchSize).
			Msg("batch size adapted to fit sampling multiplier")
	}
	return nil
}

// Next yields the next batch. At the end of a pass it resets the
// cursor, reshuffles when shuffling is enabled, and returns io.EOF
// without a batch; the following call starts the next epoch.
func (l *DataLoader) Next() (*data.Interaction, error) {
	if l.pr >= l.src.end() {
		l.pr = 0
		if l.shuffle {
			l.src.shuffle()
		}
		return nil, io.EOF
	}
	tbl, npr, err := l.src.next(l.pr, l.step)
	if err != nil {
		return nil, err
	}
	l.pr = npr
	inter, err := data.TableToInteraction(tbl, l.schema)
	if err != nil {
		return nil, fmt.Errorf("batch at cursor %d: %w", l.pr, err)
	}
	return inter, nil
}

// plainSource iterates the dataset rows without sampling.
type plainSource struct {
	ds *data.Dataset
}

func newPlain(ds *data.Dataset, opts Options) (*DataLoader, error) {
	return newLoader(ds, ds.Schema(), &plainSource{ds: ds}, opts), nil
}

func (p *plainSource) end() int { return p.ds.Len() }

func (p *plainSource) next(pr, step int) (*data.Table, int, error) {
	return p.ds.Join(p.ds.Slice(pr, pr+step)), pr + step, nil
}

func (p *plainSource) shuffle() { p.ds.Shuffle() }

func (p *plainSource) adapt(batchSize int) (int, int) {
	return batchSize, batchSize
}

// validateNegSample is the shared construction-time check for the
// sampling loaders.
func validateNegSample(format Format, args NegSampleArgs) error {
	if format != Pointwise && format != Pairwise {
		return fmt.Errorf("dl_format %q has not been implemented", format)
	}
	if args.Strategy != StrategyBy && args.Strategy != StrategyTo {
		return fmt.Errorf("neg_sample strategy %q has not been implemented", args.Strategy)
	}
	return nil
}
