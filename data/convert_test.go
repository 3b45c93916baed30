package data

import "testing"

func TestTableToInteraction(t *testing.T) {
	schema := NewSchema().
		WithField("user_id", Token, 1).
		WithField("rating", Float, 1)
	tbl := NewTable().
		WithColumn("user_id", Tokens([]int64{1, 2})).
		WithColumn("rating", Floats([]float32{5, 3}))
	in, err := TableToInteraction(tbl, schema)
	if err != nil {
		t.Fatalf("TableToInteraction error: %v", err)
	}
	if in.Len() != 2 {
		t.Fatalf("length = %d, want 2", in.Len())
	}
}

func TestTableToInteractionUnregisteredField(t *testing.T) {
	schema := NewSchema().WithField("user_id", Token, 1)
	tbl := NewTable().
		WithColumn("user_id", Tokens([]int64{1})).
		WithColumn("rating", Floats([]float32{5}))
	if _, err := TableToInteraction(tbl, schema); err == nil {
		t.Fatalf("expected illegal ftype error for unregistered field")
	}
}

func TestTableToInteractionTruncatesAndPadsSequences(t *testing.T) {
	schema := NewSchema().
		WithField("user_id", Token, 1).
		WithField("item_list", TokenSeq, 3)
	tbl := NewTable().
		WithColumn("user_id", Tokens([]int64{1, 2})).
		WithColumn("item_list", TokenSeqs([][]int64{
			{7, 8, 9, 10, 11}, // longer than the registered max
			{5},
		}))
	in, err := TableToInteraction(tbl, schema)
	if err != nil {
		t.Fatalf("TableToInteraction error: %v", err)
	}
	col, err := in.Get("item_list")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	rows := col.TokenSeqValues()
	if len(rows[0]) != 3 || len(rows[1]) != 3 {
		t.Fatalf("rows not normalized to max length: %v", rows)
	}
	if rows[0][0] != 7 || rows[0][2] != 9 {
		t.Fatalf("long row not right-truncated: %v", rows[0])
	}
	if rows[1][0] != 5 || rows[1][1] != 0 || rows[1][2] != 0 {
		t.Fatalf("short row not zero-padded: %v", rows[1])
	}
}
