package predict

import (
	"math"
	"testing"

	"github.com/JRCondeNast/dataset/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK(t *testing.T) {
	scores := []float32{0.1, 0.9, 0.3, 0.75, 0.5}
	assert.Equal(t, []int{1, 3, 4}, TopK(scores, 3))
	assert.Equal(t, []int{1, 3, 4, 2, 0}, TopK(scores, 10))
	assert.Empty(t, TopK(scores, 0))
	assert.Empty(t, TopK(scores, -1))
	assert.Empty(t, TopK(nil, 5))
}

func TestTopKTiesPreferHigherIndex(t *testing.T) {
	scores := []float32{0.5, 0.2, 0.5, 0.5}
	assert.Equal(t, []int{3, 2, 0}, TopK(scores, 3))
}

func TestTopKNaNRanksLast(t *testing.T) {
	nan := float32(math.NaN())
	scores := []float32{nan, 0.1, 0.2}
	assert.Equal(t, []int{2, 1, 0}, TopK(scores, 3))
}

func TestTopKDoesNotModifyScores(t *testing.T) {
	scores := []float32{0.3, 0.1, 0.2}
	TopK(scores, 2)
	assert.Equal(t, []float32{0.3, 0.1, 0.2}, scores)
}

func TestTopKIsDeterministic(t *testing.T) {
	scores := make([]float32, 500)
	for i := range scores {
		scores[i] = float32(i%7) / 7
	}
	first := TopK(scores, 20)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, TopK(scores, 20))
	}
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, scores[first[i-1]], scores[first[i]])
	}
}

func TestSigmoid(t *testing.T) {
	out := Sigmoid([]float32{0, 100, -100})
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, 1.0, out[1], 1e-6)
	assert.InDelta(t, 0.0, out[2], 1e-6)
}

func TestBuild(t *testing.T) {
	labelmap := []string{"/m/01yrx", "/m/0jbk", "/m/zzz"}
	dict := labels.Dict{"/m/01yrx": "cat", "/m/0jbk": "animal"}

	predictions, err := Build([]float32{0.90, 0.94, 0.4}, 3, labelmap, dict)
	require.NoError(t, err)
	require.Len(t, predictions, 3)
	assert.Equal(t, Prediction{Index: 1, MID: "/m/0jbk", DisplayName: "animal", Score: 0.94}, predictions[0])
	assert.Equal(t, "cat", predictions[1].DisplayName)
	assert.Equal(t, labels.Unknown, predictions[2].DisplayName)
}

func TestBuildIndexOutsideLabelMap(t *testing.T) {
	_, err := Build([]float32{0.1, 0.9}, 2, []string{"/m/a"}, labels.Dict{})
	assert.Error(t, err)
}

func TestPredictionString(t *testing.T) {
	p := Prediction{Index: 5723, MID: "/m/0jbk", DisplayName: "animal", Score: 0.9412}
	assert.Equal(t, "5723: /m/0jbk - animal (score = 0.94)", p.String())
}
