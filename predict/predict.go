// Package predict ranks a score vector and joins the best classes with the
// label tables.
package predict

import (
	"fmt"
	"math"
	"sort"

	"github.com/JRCondeNast/dataset/labels"
	"github.com/pkg/errors"
)

// Prediction is one ranked class.
type Prediction struct {
	Index       int     `json:"index"`
	MID         string  `json:"mid"`
	DisplayName string  `json:"display_name"`
	Score       float32 `json:"score"`
}

func (p Prediction) String() string {
	return fmt.Sprintf("%d: %s - %s (score = %.2f)", p.Index, p.MID, p.DisplayName, p.Score)
}

type byScore struct {
	idx    []int
	scores []float32
}

func (a byScore) Len() int      { return len(a.idx) }
func (a byScore) Swap(i, j int) { a.idx[i], a.idx[j] = a.idx[j], a.idx[i] }

// Less orders by descending score, NaN last, and on equal scores puts the
// higher index first.
func (a byScore) Less(i, j int) bool {
	si, sj := a.scores[a.idx[i]], a.scores[a.idx[j]]
	ni, nj := math.IsNaN(float64(si)), math.IsNaN(float64(sj))
	switch {
	case ni && nj:
		return a.idx[i] > a.idx[j]
	case ni:
		return false
	case nj:
		return true
	case si != sj:
		return si > sj
	}
	return a.idx[i] > a.idx[j]
}

// TopK returns the indices of the k highest scores, best first.
func TopK(scores []float32, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return []int{}
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Sort(byScore{idx: idx, scores: scores})
	return idx[:k]
}

// Sigmoid maps logits to independent per-class probabilities.
func Sigmoid(logits []float32) []float32 {
	out := make([]float32, len(logits))
	for i, v := range logits {
		out[i] = float32(1 / (1 + math.Exp(-float64(v))))
	}
	return out
}

// Build ranks scores and resolves the k best classes against the label map
// and the dictionary.
func Build(scores []float32, k int, labelmap []string, dict labels.Dict) ([]Prediction, error) {
	top := TopK(scores, k)
	predictions := make([]Prediction, 0, len(top))
	for _, idx := range top {
		if idx >= len(labelmap) {
			return nil, errors.Errorf("class index %d outside of label map with %d entries", idx, len(labelmap))
		}
		mid := labelmap[idx]
		predictions = append(predictions, Prediction{
			Index:       idx,
			MID:         mid,
			DisplayName: dict.DisplayName(mid),
			Score:       scores[idx],
		})
	}
	return predictions, nil
}
