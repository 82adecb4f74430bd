// Package model describes a pretrained multi-label classifier independently
// of the runtime that executes it.
package model

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Backend names.
const (
	TensorFlow = "tensorflow"
	ONNX       = "onnx"
)

var (
	// ErrNotFound is returned when the checkpoint path does not exist.
	ErrNotFound = errors.New("checkpoint does not exist")
	// ErrShape is returned when a model emits a score vector of the wrong length.
	ErrShape = errors.New("unexpected output shape")
)

// Scorer runs one forward pass and returns a score per class.
type Scorer interface {
	Score(image []byte) ([]float32, error)
	Close() error
}

// Config selects and parameterizes a checkpoint.
type Config struct {
	Checkpoint string
	ImageSize  int
	NumClasses int
	// InputOp and OutputOp name the graph endpoints (ONNX: tensor names).
	InputOp  string
	OutputOp string
	// Logits is set when OutputOp emits raw logits instead of sigmoid scores.
	Logits bool
	// Backend forces a runtime; empty means detect from Checkpoint.
	Backend string
	// RuntimeLib is the path to the onnxruntime shared library.
	RuntimeLib string
}

// Validate checks the config before any runtime is touched.
func (c *Config) Validate() error {
	if c.Checkpoint == "" {
		return errors.New("no checkpoint given")
	}
	if _, err := os.Stat(c.Checkpoint); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "checkpoint %s", c.Checkpoint)
		}
		return errors.Wrapf(err, "checkpoint %s", c.Checkpoint)
	}
	if c.ImageSize <= 0 {
		return errors.Errorf("image size has to be a positive integer, got %d", c.ImageSize)
	}
	if c.NumClasses <= 0 {
		return errors.Errorf("number of classes has to be a positive integer, got %d", c.NumClasses)
	}
	switch c.Backend {
	case "", TensorFlow, ONNX:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

// ResolvedBackend returns Backend, or the backend detected from Checkpoint.
func (c *Config) ResolvedBackend() string {
	if c.Backend != "" {
		return c.Backend
	}
	return DetectBackend(c.Checkpoint)
}

// DetectBackend maps `.onnx` files to ONNX and everything else (frozen
// GraphDef files, SavedModel directories) to TensorFlow.
func DetectBackend(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".onnx" {
		return ONNX
	}
	return TensorFlow
}

// IsSavedModel reports whether path is a SavedModel directory.
func IsSavedModel(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(path, "saved_model.pb"))
	return err == nil
}

// CheckShape verifies the score vector has one entry per class.
func CheckShape(scores []float32, numClasses int) error {
	if len(scores) != numClasses {
		return errors.Wrapf(ErrShape, "got %d scores, expected %d", len(scores), numClasses)
	}
	return nil
}
