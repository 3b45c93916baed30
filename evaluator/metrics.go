// Package evaluator computes ranking and loss metrics for recommender
// evaluation. Top-k metrics consume per-user hit masks: position j of a
// user's mask is true when the item ranked j-th for that user is a held
// out positive.
package evaluator

import (
	"fmt"
	"math"
)

// Top-k metric names.
const (
	NDCG      = "ndcg"
	MRR       = "mrr"
	MAP       = "map"
	Hit       = "hit"
	Recall    = "recall"
	Precision = "precision"
)

// Loss metric names.
const (
	MAE     = "mae"
	RMSE    = "rmse"
	LogLoss = "logloss"
	AUC     = "auc"
)

// TopK averages the named metric at cutoff k over all users. posIndex
// holds one ranked hit mask per user (at least k entries each); posLen
// holds each user's number of held-out positives.
func TopK(metric string, posIndex [][]bool, posLen []int, k int) (float64, error) {
	if len(posIndex) == 0 {
		return 0, fmt.Errorf("no users to evaluate")
	}
	if len(posIndex) != len(posLen) {
		return 0, fmt.Errorf("posIndex has %d users but posLen has %d", len(posIndex), len(posLen))
	}
	var perUser func(mask []bool, posLen int) float64
	switch metric {
	case Hit:
		perUser = hitAt
	case MRR:
		perUser = mrrAt
	case Precision:
		perUser = precisionAt
	case Recall:
		perUser = recallAt
	case NDCG:
		perUser = ndcgAt
	case MAP:
		perUser = mapAt
	default:
		return 0, fmt.Errorf("unknown top-k metric %q", metric)
	}
	sum := 0.0
	for i, mask := range posIndex {
		if len(mask) < k {
			return 0, fmt.Errorf("user %d has a %d-deep ranking, want at least %d", i, len(mask), k)
		}
		sum += perUser(mask[:k], posLen[i])
	}
	return sum / float64(len(posIndex)), nil
}

func hitAt(mask []bool, _ int) float64 {
	for _, hit := range mask {
		if hit {
			return 1
		}
	}
	return 0
}

func mrrAt(mask []bool, _ int) float64 {
	for j, hit := range mask {
		if hit {
			return 1 / float64(j+1)
		}
	}
	return 0
}

func precisionAt(mask []bool, _ int) float64 {
	hits := 0
	for _, hit := range mask {
		if hit {
			hits++
		}
	}
	return float64(hits) / float64(len(mask))
}

func recallAt(mask []bool, posLen int) float64 {
	if posLen == 0 {
		return 0
	}
	hits := 0
	for _, hit := range mask {
		if hit {
			hits++
		}
	}
	return float64(hits) / float64(posLen)
}

func ndcgAt(mask []bool, posLen int) float64 {
	ideal := posLen
	if ideal > len(mask) {
		ideal = len(mask)
	}
	if ideal == 0 {
		return 0
	}
	idcg := 0.0
	for j := range ideal {
		idcg += 1 / math.Log2(float64(j)+2)
	}
	dcg := 0.0
	for j, hit := range mask {
		if hit {
			dcg += 1 / math.Log2(float64(j)+2)
		}
	}
	return dcg / idcg
}

func mapAt(mask []bool, posLen int) float64 {
	norm := posLen
	if norm > len(mask) {
		norm = len(mask)
	}
	if norm == 0 {
		return 0
	}
	hits := 0
	sum := 0.0
	for j, hit := range mask {
		if hit {
			hits++
			sum += float64(hits) / float64(j+1)
		}
	}
	return sum / float64(norm)
}

// Loss computes the named loss metric over parallel truth/prediction
// slices. Truths are 0/1 for LogLoss and AUC.
func Loss(metric string, trues, preds []float64) (float64, error) {
	if len(trues) == 0 || len(trues) != len(preds) {
		return 0, fmt.Errorf("need matching non-empty slices, got %d and %d", len(trues), len(preds))
	}
	switch metric {
	case MAE:
		sum := 0.0
		for i := range trues {
			sum += math.Abs(trues[i] - preds[i])
		}
		return sum / float64(len(trues)), nil
	case RMSE:
		sum := 0.0
		for i := range trues {
			d := trues[i] - preds[i]
			sum += d * d
		}
		return math.Sqrt(sum / float64(len(trues))), nil
	case LogLoss:
		const eps = 1e-15
		sum := 0.0
		for i := range trues {
			p := math.Min(math.Max(preds[i], eps), 1-eps)
			sum += -(trues[i]*math.Log(p) + (1-trues[i])*math.Log(1-p))
		}
		return sum / float64(len(trues)), nil
	case AUC:
		return auc(trues, preds)
	}
	return 0, fmt.Errorf("unknown loss metric %q", metric)
}

// auc is the rank-statistic formulation: the probability a random
// positive scores above a random negative, ties counting half.
func auc(trues, preds []float64) (float64, error) {
	var pos, neg int
	for _, t := range trues {
		if t > 0.5 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0, fmt.Errorf("auc needs both positive and negative examples")
	}
	sum := 0.0
	for i, t := range trues {
		if t <= 0.5 {
			continue
		}
		for j, u := range trues {
			if u > 0.5 {
				continue
			}
			switch {
			case preds[i] > preds[j]:
				sum++
			case preds[i] == preds[j]:
				sum += 0.5
			}
		}
	}
	return sum / float64(pos*neg), nil
}

// Trunc rounds scores with the named method: ceil, floor or round.
func Trunc(scores []float64, method string) ([]float64, error) {
	var f func(float64) float64
	switch method {
	case "ceil":
		f = math.Ceil
	case "floor":
		f = math.Floor
	case "round":
		f = math.Round
	default:
		return nil, fmt.Errorf("unknown trunc method %q", method)
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = f(s)
	}
	return out, nil
}

// Cutoff binarizes scores against a threshold: strictly above maps to
// 1, the rest to 0.
func Cutoff(scores []float64, threshold float64) []float64 {
	out := make([]float64, len(scores))
	for i, s := range scores {
		if s > threshold {
			out[i] = 1
		}
	}
	return out
}
