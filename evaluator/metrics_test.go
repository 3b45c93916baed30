package evaluator

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTopKMetrics(t *testing.T) {
	// Two users: the first hits at ranks 1 and 3 out of 2 positives, the
	// second misses everything within the cutoff.
	posIndex := [][]bool{
		{true, false, true, false},
		{false, false, false, false},
	}
	posLen := []int{2, 1}

	idcg := 1/math.Log2(2) + 1/math.Log2(3)
	dcg := 1/math.Log2(2) + 1/math.Log2(4)
	cases := []struct {
		metric string
		want   float64
	}{
		{Hit, 0.5},
		{MRR, 0.5},
		{Precision, 0.25},
		{Recall, 0.5},
		{NDCG, (dcg / idcg) / 2},
		{MAP, (1.0 + 2.0/3.0) / 2 / 2},
	}
	for _, tc := range cases {
		got, err := TopK(tc.metric, posIndex, posLen, 4)
		if err != nil {
			t.Fatalf("%s error: %v", tc.metric, err)
		}
		if !almostEqual(got, tc.want) {
			t.Fatalf("%s = %v, want %v", tc.metric, got, tc.want)
		}
	}
}

func TestTopKErrors(t *testing.T) {
	if _, err := TopK(Hit, nil, nil, 5); err == nil {
		t.Fatalf("expected error for no users")
	}
	if _, err := TopK("coverage", [][]bool{{true}}, []int{1}, 1); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
	if _, err := TopK(Hit, [][]bool{{true}}, []int{1}, 5); err == nil {
		t.Fatalf("expected error for a ranking shallower than k")
	}
	if _, err := TopK(Hit, [][]bool{{true}}, []int{1, 2}, 1); err == nil {
		t.Fatalf("expected error for mismatched posLen")
	}
}

func TestLossMetrics(t *testing.T) {
	trues := []float64{1, 0, 1, 0}
	preds := []float64{0.9, 0.1, 0.6, 0.4}

	mae, err := Loss(MAE, trues, preds)
	if err != nil {
		t.Fatalf("MAE error: %v", err)
	}
	if !almostEqual(mae, (0.1+0.1+0.4+0.4)/4) {
		t.Fatalf("MAE = %v", mae)
	}

	rmse, err := Loss(RMSE, trues, preds)
	if err != nil {
		t.Fatalf("RMSE error: %v", err)
	}
	if !almostEqual(rmse, math.Sqrt((0.01+0.01+0.16+0.16)/4)) {
		t.Fatalf("RMSE = %v", rmse)
	}

	// Every positive outranks every negative.
	aucVal, err := Loss(AUC, trues, preds)
	if err != nil {
		t.Fatalf("AUC error: %v", err)
	}
	if !almostEqual(aucVal, 1) {
		t.Fatalf("AUC = %v, want 1", aucVal)
	}

	// A tie between one positive and one negative counts half.
	aucTied, err := Loss(AUC, []float64{1, 0}, []float64{0.5, 0.5})
	if err != nil {
		t.Fatalf("AUC error: %v", err)
	}
	if !almostEqual(aucTied, 0.5) {
		t.Fatalf("tied AUC = %v, want 0.5", aucTied)
	}

	logloss, err := Loss(LogLoss, []float64{1, 0}, []float64{0.8, 0.2})
	if err != nil {
		t.Fatalf("LogLoss error: %v", err)
	}
	if !almostEqual(logloss, -math.Log(0.8)) {
		t.Fatalf("LogLoss = %v, want %v", logloss, -math.Log(0.8))
	}
}

func TestLossErrors(t *testing.T) {
	if _, err := Loss(MAE, nil, nil); err == nil {
		t.Fatalf("expected error for empty slices")
	}
	if _, err := Loss(MAE, []float64{1}, []float64{1, 2}); err == nil {
		t.Fatalf("expected error for mismatched slices")
	}
	if _, err := Loss("hinge", []float64{1}, []float64{1}); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
	if _, err := Loss(AUC, []float64{1, 1}, []float64{0.5, 0.6}); err == nil {
		t.Fatalf("expected error when one class is absent")
	}
}

func TestTruncAndCutoff(t *testing.T) {
	scores := []float64{0.2, 0.5, 0.8}
	ceiled, err := Trunc(scores, "ceil")
	if err != nil {
		t.Fatalf("Trunc error: %v", err)
	}
	if ceiled[0] != 1 || ceiled[2] != 1 {
		t.Fatalf("ceil = %v", ceiled)
	}
	floored, err := Trunc(scores, "floor")
	if err != nil {
		t.Fatalf("Trunc error: %v", err)
	}
	if floored[0] != 0 || floored[2] != 0 {
		t.Fatalf("floor = %v", floored)
	}
	if _, err := Trunc(scores, "nearest-even"); err == nil {
		t.Fatalf("expected error for unknown method")
	}

	cut := Cutoff(scores, 0.5)
	if cut[0] != 0 || cut[1] != 0 || cut[2] != 1 {
		t.Fatalf("cutoff = %v, want strict threshold", cut)
	}
}
