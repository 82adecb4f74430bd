package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	ckpt := filepath.Join(dir, "model.pb")
	require.NoError(t, os.WriteFile(ckpt, []byte("graph"), 0644))

	cfg := Config{Checkpoint: ckpt, ImageSize: 299, NumClasses: 6012}
	assert.NoError(t, cfg.Validate())

	missing := cfg
	missing.Checkpoint = filepath.Join(dir, "missing.pb")
	err := missing.Validate()
	require.Error(t, err)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	assert.Contains(t, err.Error(), "missing.pb")

	bad := cfg
	bad.ImageSize = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.NumClasses = -1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Backend = "caffe"
	assert.Error(t, bad.Validate())

	assert.Error(t, (&Config{}).Validate())
}

func TestDetectBackend(t *testing.T) {
	assert.Equal(t, ONNX, DetectBackend("/models/inception.ONNX"))
	assert.Equal(t, TensorFlow, DetectBackend("/models/frozen.pb"))
	assert.Equal(t, TensorFlow, DetectBackend("/models/saved"))

	cfg := Config{Checkpoint: "a.onnx", Backend: TensorFlow}
	assert.Equal(t, TensorFlow, cfg.ResolvedBackend())
	cfg.Backend = ""
	assert.Equal(t, ONNX, cfg.ResolvedBackend())
}

func TestIsSavedModel(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsSavedModel(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "saved_model.pb"), nil, 0644))
	assert.True(t, IsSavedModel(dir))
	assert.False(t, IsSavedModel(filepath.Join(dir, "saved_model.pb")))
}

func TestCheckShape(t *testing.T) {
	assert.NoError(t, CheckShape(make([]float32, 3), 3))
	err := CheckShape(make([]float32, 2), 3)
	assert.Equal(t, ErrShape, errors.Cause(err))
}
