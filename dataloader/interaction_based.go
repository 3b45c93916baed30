package dataloader

import (
	"fmt"

	"github.com/atsumi000105/RecBole/data"
)

// bySource implements the "by" strategy: k sampled negatives per
// positive interaction. Pointwise format replicates each positive row
// 1+k times and labels the copies; pairwise format keeps the row count
// and attaches the negative item (and its features) as extra columns.
type bySource struct {
	ds     *data.Dataset
	sam    Sampler
	phase  string
	format Format

	by       int
	times    int
	realTime bool

	labelField   string
	negItemField string
	negPrefix    string
}

// NewInteractionBased builds a "by"-strategy loader.
func NewInteractionBased(ds *data.Dataset, sam Sampler, phase string, opts Options) (*DataLoader, error) {
	opts.fillDefaults()
	if err := validateNegSample(opts.Format, opts.NegSample); err != nil {
		return nil, err
	}
	args := opts.NegSample
	if args.Strategy != StrategyBy {
		return nil, fmt.Errorf("interaction-based loader requires strategy %q, got %q", StrategyBy, args.Strategy)
	}
	if args.By < 1 {
		return nil, fmt.Errorf("neg_sample by must be at least 1, got %d", args.By)
	}
	if opts.Format == Pairwise && args.By != 1 {
		return nil, fmt.Errorf("pairwise loader can only neg sample by 1, got %d", args.By)
	}
	if sam == nil {
		return nil, fmt.Errorf("interaction-based loader requires a sampler")
	}

	src := &bySource{
		ds:           ds,
		sam:          sam,
		phase:        phase,
		format:       opts.Format,
		by:           args.By,
		times:        1 + args.By,
		realTime:     args.RealTime,
		labelField:   opts.LabelField,
		negItemField: opts.NegPrefix + ds.IIDField(),
		negPrefix:    opts.NegPrefix,
	}

	schema := ds.Schema()
	switch opts.Format {
	case Pointwise:
		if ds.Inter().Column(opts.LabelField) != nil {
			return nil, fmt.Errorf("label field %q collides with an existing column", opts.LabelField)
		}
		schema = schema.WithField(opts.LabelField, data.Float, 1)
	case Pairwise:
		schema = schema.WithField(src.negItemField, data.Token, 1)
		if feat := ds.ItemFeat(); feat != nil {
			for _, name := range feat.Fields() {
				if name == ds.IIDField() {
					continue
				}
				ftype, ok := schema.Type(name)
				if !ok {
					return nil, fmt.Errorf("item feature field %q has no registered type", name)
				}
				schema = schema.WithField(opts.NegPrefix+name, ftype, schema.SeqLen(name))
			}
		}
	}

	l := newLoader(ds, schema, src, opts)
	if !src.realTime {
		expanded, err := src.negSampling(ds.Inter())
		if err != nil {
			return nil, fmt.Errorf("pre-materializing negatives: %w", err)
		}
		ds.ReplaceInter(expanded)
	}
	return l, nil
}

// adapt: pointwise batches must hold whole groups of `times` rows, so
// the stride is the number of source rows whose expansion fills the
// batch. Pairwise rows do not multiply; the batch size passes through.
func (s *bySource) adapt(batchSize int) (int, int) {
	if s.format == Pairwise {
		return batchSize, batchSize
	}
	step := batchSize / s.times
	if step == 0 {
		step = 1
	}
	adjusted := step * s.times
	if !s.realTime {
		// Pre-materialized rows are already expanded; one cursor
		// position is one output row.
		return adjusted, adjusted
	}
	return step, adjusted
}

func (s *bySource) end() int { return s.ds.Len() }

func (s *bySource) shuffle() { s.ds.Shuffle() }

func (s *bySource) next(pr, step int) (*data.Table, int, error) {
	cur := s.ds.Slice(pr, pr+step)
	if s.realTime {
		expanded, err := s.negSampling(cur)
		if err != nil {
			return nil, 0, err
		}
		return expanded, pr + step, nil
	}
	return cur, pr + step, nil
}

// negSampling expands a slice of positive rows with drawn negatives.
func (s *bySource) negSampling(tbl *data.Table) (*data.Table, error) {
	uids := tbl.Column(s.ds.UIDField()).TokenValues()
	negIDs, err := s.sam.SampleByUserIDs(s.phase, uids, s.by)
	if err != nil {
		return nil, err
	}
	switch s.format {
	case Pointwise:
		return s.pointwise(tbl, negIDs)
	case Pairwise:
		return s.pairwise(tbl, negIDs)
	}
	return nil, fmt.Errorf("neg sampling by with dl_format %q not been implemented", s.format)
}

// pointwise replicates the n source rows `times` times, overwrites the
// item id of the trailing n*by copies with the drawn negatives, and
// appends a 0/1 label column: the leading n rows keep label 1.
func (s *bySource) pointwise(tbl *data.Table, negIDs []int64) (*data.Table, error) {
	n := tbl.Len()
	out := tbl.Repeat(s.times)
	copy(out.Column(s.ds.IIDField()).TokenValues()[n:], negIDs)

	labels := make([]float32, n*s.times)
	for i := range n {
		labels[i] = 1
	}
	out.WithColumn(s.labelField, data.Floats(labels))

	if s.realTime {
		return s.ds.Join(out), nil
	}
	return out, nil
}

// pairwise attaches the negative item id column and, when an item
// feature table exists, left-joins the negative item's features under
// the negative prefix. Row count is unchanged.
func (s *bySource) pairwise(tbl *data.Table, negIDs []int64) (*data.Table, error) {
	out := data.NewTable()
	for _, name := range tbl.Fields() {
		out.WithColumn(name, tbl.Column(name))
	}
	out.WithColumn(s.negItemField, data.Tokens(negIDs))
	out = s.ds.JoinItemFeatPrefixed(out, s.negItemField, s.negPrefix)
	if s.realTime {
		return s.ds.Join(out), nil
	}
	return out, nil
}
