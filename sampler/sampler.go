// Package sampler draws negative item ids for recommender training.
// Negatives are items a user has not interacted with in any split;
// excluding the union of splits keeps evaluation negatives untainted by
// training positives.
package sampler

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/atsumi000105/RecBole/data"
)

// Distribution selects how candidate items are weighted.
type Distribution string

const (
	// Uniform draws every item with equal probability.
	Uniform Distribution = "uniform"
	// Popularity draws items proportionally to their smoothed
	// interaction count (count^0.75, word2vec style).
	Popularity Distribution = "popularity"
)

// popularityPower is the smoothing exponent for Popularity sampling.
const popularityPower = 0.75

// maxRejects bounds rejection sampling per draw before falling back to
// scanning the complement set.
const maxRejects = 100

// Sampler draws negative item ids for users. Safe to share across
// loaders of different phases; not safe for concurrent use (it owns a
// single rng).
type Sampler struct {
	phases  map[string]bool
	used    map[int64]map[int64]struct{}
	itemNum int64

	dist  Distribution
	alias []aliasCell

	// repeatable samplers ignore the used sets, drawing any non-pad
	// item; sequential pipelines use this.
	repeatable bool

	rng *rand.Rand
}

// Option tweaks sampler construction.
type Option func(*Sampler)

// WithSamplerSeed fixes the rng, for reproducible draws.
func WithSamplerSeed(seed int64) Option {
	return func(s *Sampler) { s.rng = rand.New(rand.NewSource(seed)) }
}

// New builds a sampler over the given phase datasets. The used-item set
// of every user is the union over all datasets, and the popularity
// distribution counts interactions across all of them. Phase names are
// positional: phases[i] names datasets[i].
func New(phases []string, datasets []*data.Dataset, dist Distribution, opts ...Option) (*Sampler, error) {
	return build(phases, datasets, dist, false, opts...)
}

// NewRepeatable builds a sampler that draws any non-padding item,
// ignoring what the user has interacted with.
func NewRepeatable(phases []string, datasets []*data.Dataset, dist Distribution, opts ...Option) (*Sampler, error) {
	return build(phases, datasets, dist, true, opts...)
}

func build(phases []string, datasets []*data.Dataset, dist Distribution, repeatable bool, opts ...Option) (*Sampler, error) {
	if len(phases) == 0 || len(phases) != len(datasets) {
		return nil, fmt.Errorf("sampler needs matching phases and datasets, got %d and %d", len(phases), len(datasets))
	}
	if dist != Uniform && dist != Popularity {
		return nil, fmt.Errorf("unknown sampling distribution %q", dist)
	}
	s := &Sampler{
		phases:     map[string]bool{},
		used:       map[int64]map[int64]struct{}{},
		dist:       dist,
		repeatable: repeatable,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i, phase := range phases {
		if s.phases[phase] {
			return nil, fmt.Errorf("duplicate phase %q", phase)
		}
		s.phases[phase] = true
		ds := datasets[i]
		if int64(ds.ItemNum()) > s.itemNum {
			s.itemNum = int64(ds.ItemNum())
		}
		uids := ds.Inter().Column(ds.UIDField()).TokenValues()
		iids := ds.Inter().Column(ds.IIDField()).TokenValues()
		for j, uid := range uids {
			set, ok := s.used[uid]
			if !ok {
				set = map[int64]struct{}{}
				s.used[uid] = set
			}
			set[iids[j]] = struct{}{}
		}
	}
	if s.itemNum < 2 {
		return nil, fmt.Errorf("sampler needs at least one non-padding item")
	}
	if dist == Popularity {
		counts := make([]float64, s.itemNum)
		for _, set := range s.used {
			for iid := range set {
				counts[iid]++
			}
		}
		counts[0] = 0 // never draw padding
		s.alias = buildAlias(counts, popularityPower)
	}
	return s, nil
}

// ItemNum returns the item id space size, padding included.
func (s *Sampler) ItemNum() int64 { return s.itemNum }

func (s *Sampler) checkPhase(phase string) error {
	if !s.phases[phase] {
		return fmt.Errorf("unknown sampling phase %q", phase)
	}
	return nil
}

// draw returns one raw candidate item id, ignoring used sets.
func (s *Sampler) draw() int64 {
	if s.alias != nil {
		if id := sampleAlias(s.alias, s.rng); id > 0 {
			return id
		}
		// Alias landed on padding; fall through to a uniform draw.
	}
	return 1 + s.rng.Int63n(s.itemNum-1)
}

// sampleOne draws one negative for uid: an item outside the user's used
// set (and outside `taken`, when distinct draws are wanted). Returns 0
// when no such item exists.
func (s *Sampler) sampleOne(uid int64, taken map[int64]struct{}) int64 {
	used := s.used[uid]
	ok := func(id int64) bool {
		if !s.repeatable {
			if _, bad := used[id]; bad {
				return false
			}
		}
		if taken != nil {
			if _, bad := taken[id]; bad {
				return false
			}
		}
		return true
	}
	for range maxRejects {
		if id := s.draw(); ok(id) {
			return id
		}
	}
	// Dense user: scan the complement from a random offset so the
	// fallback does not bias toward low ids.
	start := 1 + s.rng.Int63n(s.itemNum-1)
	for off := int64(0); off < s.itemNum-1; off++ {
		id := 1 + (start-1+off)%(s.itemNum-1)
		if ok(id) {
			return id
		}
	}
	return 0
}

// SampleByUserIDs draws num negatives per user with replacement. The
// result is laid out round by round: index k*len(uids)+j holds the k-th
// negative of uids[j], matching the row order of a table tiled
// (1+num) times.
func (s *Sampler) SampleByUserIDs(phase string, uids []int64, num int) ([]int64, error) {
	if err := s.checkPhase(phase); err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(uids)*num)
	for range num {
		for _, uid := range uids {
			id := s.sampleOne(uid, nil)
			if id == 0 {
				return nil, fmt.Errorf("user %d has no negative items left", uid)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// SampleByUserID draws up to num distinct negatives for one user. It
// returns fewer ids when the user's complement set is smaller than num.
func (s *Sampler) SampleByUserID(phase string, uid int64, num int) ([]int64, error) {
	if err := s.checkPhase(phase); err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, num)
	out := make([]int64, 0, num)
	for range num {
		id := s.sampleOne(uid, taken)
		if id == 0 {
			break
		}
		taken[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// SampleFullByUserID enumerates every non-padding item the user has not
// interacted with, in ascending id order.
func (s *Sampler) SampleFullByUserID(phase string, uid int64) ([]int64, error) {
	if err := s.checkPhase(phase); err != nil {
		return nil, err
	}
	used := s.used[uid]
	out := make([]int64, 0, s.itemNum-1-int64(len(used)))
	for id := int64(1); id < s.itemNum; id++ {
		if !s.repeatable {
			if _, bad := used[id]; bad {
				continue
			}
		}
		out = append(out, id)
	}
	return out, nil
}
