package dataloader

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/atsumi000105/RecBole/data"
)

// toSource implements the "to" strategy: every user group is expanded
// into a candidate set of its positive items plus sampled negatives,
// either sized exactly `to` or covering every item when To is -1
// ("full"). Group widths vary, so pre-materialized iteration paginates
// through a next-cursor map instead of a fixed stride.
type toSource struct {
	ds    *data.Dataset
	sam   Sampler
	phase string

	to       int
	full     bool
	realTime bool
	step     int

	labelField string

	groups *data.GroupTable

	// Pre-materialized state. groupOffsets[i] is the flat row where
	// group i starts; nextMap jumps batch start offsets to the next
	// batch's start so pagination lands on group boundaries.
	groupOffsets []int
	totalRows    int
	nextMap      map[int]int

	rng *rand.Rand
}

// NewGrouped builds a "to"-strategy loader.
//
// Truncation policy: a user with more than to-1 positive items keeps
// only the first to-1 of them; the rest are dropped from the candidate
// set. This mirrors the reference behavior and is intentional.
func NewGrouped(ds *data.Dataset, sam Sampler, phase string, opts Options) (*DataLoader, error) {
	opts.fillDefaults()
	if err := validateNegSample(opts.Format, opts.NegSample); err != nil {
		return nil, err
	}
	args := opts.NegSample
	if args.Strategy != StrategyTo {
		return nil, fmt.Errorf("grouped loader requires strategy %q, got %q", StrategyTo, args.Strategy)
	}
	if opts.Format == Pairwise {
		return nil, fmt.Errorf("pairwise dataloader cannot neg sample to")
	}
	if args.To != -1 && args.To < 2 {
		return nil, fmt.Errorf("neg_sample to must be -1 or at least 2, got %d", args.To)
	}
	if sam == nil {
		return nil, fmt.Errorf("grouped loader requires a sampler")
	}
	if ds.Inter().Column(opts.LabelField) != nil {
		return nil, fmt.Errorf("label field %q collides with an existing column", opts.LabelField)
	}

	src := &toSource{
		ds:         ds,
		sam:        sam,
		phase:      phase,
		to:         args.To,
		full:       args.To == -1,
		realTime:   args.RealTime,
		labelField: opts.LabelField,
		groups:     ds.UIDItems(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if src.full {
		src.to = ds.ItemNum()
	}

	schema := ds.Schema().WithField(opts.LabelField, data.Float, 1)
	l := newLoader(ds, schema, src, opts)
	if !src.realTime {
		expanded, err := src.negSampling(src.groups, true)
		if err != nil {
			return nil, fmt.Errorf("pre-materializing negatives: %w", err)
		}
		ds.ReplaceInter(expanded)
		src.rebuildNext()
	}
	return l, nil
}

// adapt: batches hold whole candidate sets, so the stride is the number
// of groups whose expansion fits the batch, and the adopted batch size
// is that many full sets.
func (s *toSource) adapt(batchSize int) (int, int) {
	step := batchSize/s.to + 1
	s.step = step
	if s.groupOffsets != nil {
		s.rebuildNext()
	}
	return step, step * s.to
}

func (s *toSource) end() int {
	if s.realTime {
		return s.groups.Len()
	}
	return s.totalRows
}

func (s *toSource) shuffle() {
	if s.realTime {
		s.groups.Shuffle(s.rng)
		return
	}
	// The flat table is already expanded; reshuffling it would tear
	// candidate sets apart, so shuffle whole groups and rebuild the
	// flat layout.
	perm := s.rng.Perm(len(s.groupOffsets))
	idx := make([]int, 0, s.totalRows)
	for _, g := range perm {
		lo := s.groupOffsets[g]
		hi := s.totalRows
		if g+1 < len(s.groupOffsets) {
			hi = s.groupOffsets[g+1]
		}
		for r := lo; r < hi; r++ {
			idx = append(idx, r)
		}
	}
	s.ds.ReplaceInter(s.ds.Inter().Gather(idx))
	offsets := make([]int, len(s.groupOffsets))
	at := 0
	for i, g := range perm {
		lo := s.groupOffsets[g]
		hi := s.totalRows
		if g+1 < len(s.groupOffsets) {
			hi = s.groupOffsets[g+1]
		}
		offsets[i] = at
		at += hi - lo
	}
	s.groupOffsets = offsets
	s.rebuildNext()
}

func (s *toSource) next(pr, step int) (*data.Table, int, error) {
	if s.realTime {
		tbl, err := s.negSampling(s.groups.Slice(pr, pr+step), false)
		if err != nil {
			return nil, 0, err
		}
		return s.ds.Join(tbl), pr + step, nil
	}
	npr, ok := s.nextMap[pr]
	if !ok {
		return nil, 0, fmt.Errorf("no batch boundary recorded at cursor %d", pr)
	}
	return s.ds.Slice(pr, npr), npr, nil
}

// rebuildNext recomputes the batch-boundary map from the retained group
// offsets: every batch covers `step` whole groups regardless of how
// many flat rows each group expanded into.
func (s *toSource) rebuildNext() {
	s.nextMap = map[int]int{}
	n := len(s.groupOffsets)
	for g := 0; g < n; g += s.step {
		from := s.groupOffsets[g]
		to := s.totalRows
		if g+s.step < n {
			to = s.groupOffsets[g+s.step]
		}
		s.nextMap[from] = to
	}
}

// negSampling expands user groups into labeled candidate sets written
// into one pre-sized flat buffer. With recordOffsets it also notes
// where each group starts, for pre-materialized pagination.
func (s *toSource) negSampling(groups *data.GroupTable, recordOffsets bool) (*data.Table, error) {
	n := groups.Len()
	uidField := s.ds.UIDField()
	iidField := s.ds.IIDField()

	// n*to is only a capacity hint: in full mode the sampler's item
	// universe may be larger than this split's, so groups can outgrow
	// it and the buffers must be able to grow with them.
	uids := make([]int64, 0, n*s.to)
	iids := make([]int64, 0, n*s.to)
	labels := make([]float32, 0, n*s.to)
	if recordOffsets {
		s.groupOffsets = make([]int, 0, n)
	}

	for g := range n {
		uid := groups.UID(g)
		var pos, neg []int64
		var err error
		if s.full {
			pos = groups.Items(g)
			neg, err = s.sam.SampleFullByUserID(s.phase, uid)
		} else {
			pos = groups.Items(g)
			if len(pos) > s.to-1 {
				pos = pos[:s.to-1]
			}
			neg, err = s.sam.SampleByUserID(s.phase, uid, s.to-len(pos))
		}
		if err != nil {
			return nil, fmt.Errorf("sampling for user %d: %w", uid, err)
		}
		if recordOffsets {
			s.groupOffsets = append(s.groupOffsets, len(uids))
		}
		for _, iid := range pos {
			uids = append(uids, uid)
			iids = append(iids, iid)
			labels = append(labels, 1)
		}
		for _, iid := range neg {
			uids = append(uids, uid)
			iids = append(iids, iid)
			labels = append(labels, 0)
		}
	}

	if recordOffsets {
		s.totalRows = len(uids)
	}
	tbl := data.NewTable().
		WithColumn(uidField, data.Tokens(uids)).
		WithColumn(iidField, data.Tokens(iids)).
		WithColumn(s.labelField, data.Floats(labels))
	return tbl, nil
}
