package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Atomic-file loading. A dataset is a directory of TSV files named
// <name>.inter, <name>.item and <name>.user whose header cells carry
// the field type inline, e.g.:
//
//	user_id:token	item_id:token	rating:float	tag_seq:token_seq
//
// Sequence cells separate their elements with single spaces. Token
// values are remapped to contiguous ids starting at 1; id 0 is reserved
// for padding. Every field ends up registered in the dataset schema
// with its type and, for sequence fields, the longest row seen.

// Vocab maps raw string tokens to contiguous ids and back. Index 0 is
// the padding token.
type Vocab struct {
	id  map[string]int64
	tok []string
}

// NewVocab returns a vocabulary holding only the padding token.
func NewVocab() *Vocab {
	return &Vocab{id: map[string]int64{}, tok: []string{"[PAD]"}}
}

// ID returns the id of tok, assigning the next free id on first sight.
func (v *Vocab) ID(tok string) int64 {
	if id, ok := v.id[tok]; ok {
		return id
	}
	id := int64(len(v.tok))
	v.id[tok] = id
	v.tok = append(v.tok, tok)
	return id
}

// Token returns the raw token for an id, or the padding token for ids
// out of range.
func (v *Vocab) Token(id int64) string {
	if id < 0 || id >= int64(len(v.tok)) {
		return v.tok[0]
	}
	return v.tok[id]
}

// Size returns the number of ids, padding included.
func (v *Vocab) Size() int { return len(v.tok) }

// LoadDataset reads <dir>/<name>.inter plus the optional .item and
// .user side tables and assembles a Dataset. uidField and iidField name
// the id columns of the .inter file.
func LoadDataset(dir, name, uidField, iidField string, opts ...DatasetOption) (*Dataset, error) {
	vocabs := map[string]*Vocab{}
	schema := NewSchema()

	interPath := filepath.Join(dir, name+".inter")
	inter, schema, err := loadAtomicFile(interPath, schema, vocabs)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", interPath, err)
	}

	all := append([]DatasetOption{}, opts...)
	itemPath := filepath.Join(dir, name+".item")
	if _, statErr := os.Stat(itemPath); statErr == nil {
		itemFeat, s, err := loadAtomicFile(itemPath, schema, vocabs)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", itemPath, err)
		}
		schema = s
		all = append(all, WithItemFeat(itemFeat))
	}
	userPath := filepath.Join(dir, name+".user")
	if _, statErr := os.Stat(userPath); statErr == nil {
		userFeat, s, err := loadAtomicFile(userPath, schema, vocabs)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", userPath, err)
		}
		schema = s
		all = append(all, WithUserFeat(userFeat))
	}

	all = append(all, withVocabs(vocabs))
	if uv, iv := vocabs[uidField], vocabs[iidField]; uv != nil && iv != nil {
		all = append(all, WithCounts(uv.Size(), iv.Size()))
	}
	return NewDataset(inter, schema, uidField, iidField, all...)
}

type fieldHeader struct {
	name  string
	ftype FieldType
}

func parseHeader(cells []string) ([]fieldHeader, error) {
	headers := make([]fieldHeader, len(cells))
	for i, cell := range cells {
		name, tname, ok := strings.Cut(strings.TrimSpace(cell), ":")
		if !ok {
			return nil, fmt.Errorf("header cell %q lacks a :type suffix", cell)
		}
		ftype := FieldType(tname)
		if !ftype.Valid() {
			return nil, fmt.Errorf("header cell %q has unknown type %q", cell, tname)
		}
		headers[i] = fieldHeader{name: name, ftype: ftype}
	}
	return headers, nil
}

// loadAtomicFile reads one TSV atomic file into a table, extending the
// schema with every field it declares and the vocabularies with every
// token it sees. Vocabularies are shared across files so an item id in
// .inter and .item maps to the same integer.
func loadAtomicFile(path string, schema Schema, vocabs map[string]*Vocab) (*Table, Schema, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, schema, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err != nil {
		return nil, schema, fmt.Errorf("failed to read header: %w", err)
	}
	headers, err := parseHeader(head)
	if err != nil {
		return nil, schema, err
	}

	tokens := map[string][]int64{}
	floats := map[string][]float32{}
	tokenSeqs := map[string][][]int64{}
	floatSeqs := map[string][][]float32{}
	seqLens := map[string]int{}

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, schema, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		if len(record) != len(headers) {
			return nil, schema, fmt.Errorf("row %d has %d cells, want %d", row, len(record), len(headers))
		}
		for i, h := range headers {
			cell := strings.TrimSpace(record[i])
			switch h.ftype {
			case Token:
				v := vocabs[h.name]
				if v == nil {
					v = NewVocab()
					vocabs[h.name] = v
				}
				tokens[h.name] = append(tokens[h.name], v.ID(cell))
			case Float:
				f, err := parseFloat32(cell)
				if err != nil {
					return nil, schema, fmt.Errorf("row %d field %q: %w", row, h.name, err)
				}
				floats[h.name] = append(floats[h.name], f)
			case TokenSeq:
				v := vocabs[h.name]
				if v == nil {
					v = NewVocab()
					vocabs[h.name] = v
				}
				var seq []int64
				for _, t := range strings.Fields(cell) {
					seq = append(seq, v.ID(t))
				}
				tokenSeqs[h.name] = append(tokenSeqs[h.name], seq)
				if len(seq) > seqLens[h.name] {
					seqLens[h.name] = len(seq)
				}
			case FloatSeq:
				var seq []float32
				for _, t := range strings.Fields(cell) {
					f, err := parseFloat32(t)
					if err != nil {
						return nil, schema, fmt.Errorf("row %d field %q: %w", row, h.name, err)
					}
					seq = append(seq, f)
				}
				floatSeqs[h.name] = append(floatSeqs[h.name], seq)
				if len(seq) > seqLens[h.name] {
					seqLens[h.name] = len(seq)
				}
			}
		}
		row++
	}

	tbl := NewTable()
	for _, h := range headers {
		switch h.ftype {
		case Token:
			tbl.WithColumn(h.name, Tokens(tokens[h.name]))
			schema = schema.WithField(h.name, Token, 1)
		case Float:
			tbl.WithColumn(h.name, Floats(floats[h.name]))
			schema = schema.WithField(h.name, Float, 1)
		case TokenSeq:
			tbl.WithColumn(h.name, TokenSeqs(tokenSeqs[h.name]))
			schema = schema.WithField(h.name, TokenSeq, seqLens[h.name])
		case FloatSeq:
			tbl.WithColumn(h.name, FloatSeqs(floatSeqs[h.name]))
			schema = schema.WithField(h.name, FloatSeq, seqLens[h.name])
		}
	}
	return tbl, schema, nil
}

func parseFloat32(s string) (float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}
