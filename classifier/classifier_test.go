package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JRCondeNast/dataset/labels"
	"github.com/JRCondeNast/dataset/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScorer struct {
	scores []float32
	err    error
	seen   [][]byte
	closed bool
}

func (f *fakeScorer) Score(image []byte) ([]float32, error) {
	f.seen = append(f.seen, image)
	return f.scores, f.err
}

func (f *fakeScorer) Close() error {
	f.closed = true
	return nil
}

var (
	testLabelmap = []string{"/m/01yrx", "/m/0jbk", "/m/04rky", "/m/02cqfm"}
	testDict     = labels.Dict{"/m/01yrx": "cat", "/m/0jbk": "animal", "/m/04rky": "mammal"}
)

func TestClassify(t *testing.T) {
	scorer := &fakeScorer{scores: []float32{0.90, 0.94, 0.93, 0.45}}
	c, err := New(scorer, testLabelmap, testDict, 3)
	require.NoError(t, err)

	result, err := c.Classify([]byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("jpeg")}, scorer.seen)
	require.Len(t, result.Labels, 3)
	assert.Equal(t, "1: /m/0jbk - animal (score = 0.94)", result.Labels[0].String())
	assert.Equal(t, "2: /m/04rky - mammal (score = 0.93)", result.Labels[1].String())
	assert.Equal(t, "0: /m/01yrx - cat (score = 0.90)", result.Labels[2].String())
	assert.Equal(t, "animal", result.Label)
	assert.InDelta(t, 94, result.Conf, 1)
}

func TestClassifyUnknownDisplayName(t *testing.T) {
	c, err := New(&fakeScorer{scores: []float32{0, 0, 0, 1}}, testLabelmap, testDict, 1)
	require.NoError(t, err)

	result, err := c.Classify(nil)
	require.NoError(t, err)
	assert.Equal(t, labels.Unknown, result.Labels[0].DisplayName)
}

func TestClassifyShapeMismatch(t *testing.T) {
	c, err := New(&fakeScorer{scores: []float32{0.1, 0.2}}, testLabelmap, testDict, 1)
	require.NoError(t, err)

	_, err = c.Classify(nil)
	assert.Equal(t, model.ErrShape, errors.Cause(err))
}

func TestClassifyScorerError(t *testing.T) {
	boom := errors.New("boom")
	c, err := New(&fakeScorer{err: boom}, testLabelmap, testDict, 1)
	require.NoError(t, err)

	_, err = c.Classify(nil)
	assert.Equal(t, boom, err)
}

func TestClassifyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.jpg")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0644))

	scorer := &fakeScorer{scores: []float32{0.9, 0.1, 0.1, 0.1}}
	c, err := New(scorer, testLabelmap, testDict, 2)
	require.NoError(t, err)

	result, err := c.ClassifyFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, result.Filename)
	assert.Equal(t, uint64(5), result.FileSize)
	assert.Equal(t, "cat", result.Label)

	_, err = c.ClassifyFile(filepath.Join(dir, "missing.jpg"))
	require.Error(t, err)
	assert.Equal(t, ErrImageNotFound, errors.Cause(err))
	assert.Contains(t, err.Error(), "missing.jpg")
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, testLabelmap, testDict, 1)
	assert.Error(t, err)
	_, err = New(&fakeScorer{}, nil, testDict, 1)
	assert.Error(t, err)
	_, err = New(&fakeScorer{}, testLabelmap, testDict, -1)
	assert.Error(t, err)
}

func TestClassifyZeroMeansAll(t *testing.T) {
	c, err := New(&fakeScorer{scores: []float32{0.90, 0.94, 0.93, 0.45}}, testLabelmap, testDict, 0)
	require.NoError(t, err)

	result, err := c.Classify(nil)
	require.NoError(t, err)
	require.Len(t, result.Labels, len(testLabelmap))
	assert.Equal(t, 1, result.Labels[0].Index)
	assert.Equal(t, 3, result.Labels[3].Index)
}

func TestClose(t *testing.T) {
	scorer := &fakeScorer{}
	c, err := New(scorer, testLabelmap, testDict, 1)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.True(t, scorer.closed)
}
