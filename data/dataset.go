package data

import (
	"fmt"
	"math/rand"
	"time"
)

// GroupTable is the per-user grouping of an interaction table: one row
// per user holding that user's positive item ids in interaction order.
// Grouped loaders iterate over it instead of the flat table.
type GroupTable struct {
	uids  []int64
	items [][]int64
}

// Len returns the number of user groups.
func (g *GroupTable) Len() int { return len(g.uids) }

// UID returns the user id of group i.
func (g *GroupTable) UID(i int) int64 { return g.uids[i] }

// Items returns the positive item ids of group i.
func (g *GroupTable) Items(i int) []int64 { return g.items[i] }

// Slice returns a view over groups [lo, hi), clamped.
func (g *GroupTable) Slice(lo, hi int) *GroupTable {
	if hi > len(g.uids) {
		hi = len(g.uids)
	}
	if lo > hi {
		lo = hi
	}
	return &GroupTable{uids: g.uids[lo:hi], items: g.items[lo:hi]}
}

// Shuffle permutes the groups in place.
func (g *GroupTable) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(g.uids), func(i, j int) {
		g.uids[i], g.uids[j] = g.uids[j], g.uids[i]
		g.items[i], g.items[j] = g.items[j], g.items[i]
	})
}

// Dataset owns one split's interaction table plus the optional user and
// item feature tables, the schema describing every field, and the user
// and item counts the samplers and loaders need. It lives for the whole
// training or evaluation phase; loaders hold a reference and never copy
// it.
type Dataset struct {
	schema   Schema
	inter    *Table
	userFeat *Table
	itemFeat *Table

	uidField string
	iidField string

	userNum int
	itemNum int

	vocabs map[string]*Vocab

	rng *rand.Rand
}

// DatasetOption tweaks dataset construction.
type DatasetOption func(*Dataset)

// WithItemFeat attaches an item feature table. The table must carry the
// item id field as a token column.
func WithItemFeat(tbl *Table) DatasetOption {
	return func(d *Dataset) { d.itemFeat = tbl }
}

// WithUserFeat attaches a user feature table keyed by the user id
// field.
func WithUserFeat(tbl *Table) DatasetOption {
	return func(d *Dataset) { d.userFeat = tbl }
}

// WithSeed fixes the shuffle rng, for reproducible epochs.
func WithSeed(seed int64) DatasetOption {
	return func(d *Dataset) { d.rng = rand.New(rand.NewSource(seed)) }
}

// WithCounts overrides the user and item counts. Without it the counts
// are derived from the largest id seen, plus one for the padding id 0.
func WithCounts(userNum, itemNum int) DatasetOption {
	return func(d *Dataset) {
		d.userNum = userNum
		d.itemNum = itemNum
	}
}

func withVocabs(v map[string]*Vocab) DatasetOption {
	return func(d *Dataset) { d.vocabs = v }
}

// NewDataset builds a dataset over an interaction table. The table must
// hold uidField and iidField as token columns, and every field must be
// registered in the schema.
func NewDataset(inter *Table, schema Schema, uidField, iidField string, opts ...DatasetOption) (*Dataset, error) {
	d := &Dataset{
		schema:   schema,
		inter:    inter,
		uidField: uidField,
		iidField: iidField,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(d)
	}
	uc := inter.Column(uidField)
	ic := inter.Column(iidField)
	if uc == nil || uc.Type() != Token {
		return nil, fmt.Errorf("user id field %q missing or not a token column", uidField)
	}
	if ic == nil || ic.Type() != Token {
		return nil, fmt.Errorf("item id field %q missing or not a token column", iidField)
	}
	if err := schema.Check(inter); err != nil {
		return nil, fmt.Errorf("interaction table: %w", err)
	}
	if d.userNum == 0 {
		d.userNum = int(maxToken(uc.TokenValues())) + 1
	}
	if d.itemNum == 0 {
		d.itemNum = int(maxToken(ic.TokenValues())) + 1
	}
	return d, nil
}

func maxToken(vals []int64) int64 {
	var m int64
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

// Len returns the number of interaction rows.
func (d *Dataset) Len() int { return d.inter.Len() }

// Schema returns the dataset's field registry.
func (d *Dataset) Schema() Schema { return d.schema }

// UIDField returns the user id field name.
func (d *Dataset) UIDField() string { return d.uidField }

// IIDField returns the item id field name.
func (d *Dataset) IIDField() string { return d.iidField }

// UserNum returns the number of user ids, padding included.
func (d *Dataset) UserNum() int { return d.userNum }

// ItemNum returns the number of item ids, padding included.
func (d *Dataset) ItemNum() int { return d.itemNum }

// Inter returns the interaction table.
func (d *Dataset) Inter() *Table { return d.inter }

// ItemFeat returns the item feature table, or nil.
func (d *Dataset) ItemFeat() *Table { return d.itemFeat }

// ReplaceInter swaps the interaction table. Loaders use this for eager
// negative-sample materialization: the expanded table takes the place
// of the source rows for the rest of the loader's life.
func (d *Dataset) ReplaceInter(tbl *Table) { d.inter = tbl }

// Slice returns rows [lo, hi) of the interaction table.
func (d *Dataset) Slice(lo, hi int) *Table { return d.inter.Slice(lo, hi) }

// Shuffle permutes the interaction rows in place, all columns moving
// together.
func (d *Dataset) Shuffle() {
	n := d.inter.Len()
	perm := d.rng.Perm(n)
	d.inter = d.inter.Gather(perm)
}

// Vocab returns the token vocabulary of a field if the dataset was
// loaded from atomic files, nil otherwise.
func (d *Dataset) Vocab(field string) *Vocab {
	if d.vocabs == nil {
		return nil
	}
	return d.vocabs[field]
}

// UIDItems groups the interaction rows by user, preserving first-seen
// user order and per-user interaction order.
func (d *Dataset) UIDItems() *GroupTable {
	uids := d.inter.Column(d.uidField).TokenValues()
	iids := d.inter.Column(d.iidField).TokenValues()
	pos := map[int64]int{}
	g := &GroupTable{}
	for i, uid := range uids {
		p, ok := pos[uid]
		if !ok {
			p = len(g.uids)
			pos[uid] = p
			g.uids = append(g.uids, uid)
			g.items = append(g.items, nil)
		}
		g.items[p] = append(g.items[p], iids[i])
	}
	return g
}

// Join attaches the user and item feature columns to tbl, matched on
// the id fields. Fields already present in tbl are left alone. Rows
// whose id has no feature row get zero values.
func (d *Dataset) Join(tbl *Table) *Table {
	out := tbl
	if d.userFeat != nil {
		out = joinFeat(out, d.userFeat, d.uidField, "", "")
	}
	if d.itemFeat != nil {
		out = joinFeat(out, d.itemFeat, d.iidField, "", "")
	}
	return out
}

// JoinItemFeatPrefixed left-joins the item feature table on the `on`
// column of tbl, renaming every attached feature column with the given
// prefix. When a prefixed name collides with an existing column the
// pair is disambiguated with _inter and _item suffixes. Pairwise
// loaders use this to attach negative-item features.
func (d *Dataset) JoinItemFeatPrefixed(tbl *Table, on, prefix string) *Table {
	if d.itemFeat == nil {
		return tbl
	}
	return joinFeat(tbl, d.itemFeat, on, d.iidField, prefix)
}

// joinFeat left-joins feat onto tbl. The join key in tbl is named
// `on`; in feat it is `featKey` (empty means same as `on`). Attached
// columns are renamed with prefix; colliding names get the _inter /
// _item suffix pair.
func joinFeat(tbl, feat *Table, on, featKey, prefix string) *Table {
	if featKey == "" {
		featKey = on
	}
	keyCol := tbl.Column(on)
	if keyCol == nil || keyCol.Type() != Token {
		return tbl
	}
	featIDs := feat.Column(featKey)
	if featIDs == nil || featIDs.Len() == 0 {
		return tbl
	}
	rowOf := map[int64]int{}
	for i, id := range featIDs.TokenValues() {
		rowOf[id] = i
	}
	// Ids with no feature row get zero-valued cells; the feature table
	// itself has no padding row to fall back on.
	idx := make([]int, keyCol.Len())
	var missing []int
	for i, id := range keyCol.TokenValues() {
		if r, ok := rowOf[id]; ok {
			idx[i] = r
		} else {
			missing = append(missing, i)
		}
	}
	out := NewTable()
	attached := map[string]*Column{}
	names := []string{}
	for _, name := range feat.Fields() {
		if name == featKey {
			continue
		}
		outName := prefix + name
		attached[outName] = zeroRows(feat.Column(name).Gather(idx), missing)
		names = append(names, outName)
	}
	for _, name := range tbl.Fields() {
		if _, clash := attached[name]; clash {
			out.WithColumn(name+"_inter", tbl.Column(name))
			continue
		}
		out.WithColumn(name, tbl.Column(name))
	}
	for _, name := range names {
		if tbl.Column(name) != nil {
			out.WithColumn(name+"_item", attached[name])
			continue
		}
		out.WithColumn(name, attached[name])
	}
	return out
}

// zeroRows blanks the given rows of a freshly gathered column. Gather
// returned new storage, so mutating in place is safe.
func zeroRows(col *Column, rows []int) *Column {
	for _, r := range rows {
		switch col.Type() {
		case Token:
			col.TokenValues()[r] = 0
		case Float:
			col.FloatValues()[r] = 0
		case TokenSeq:
			col.TokenSeqValues()[r] = nil
		case FloatSeq:
			col.FloatSeqValues()[r] = nil
		}
	}
	return col
}
