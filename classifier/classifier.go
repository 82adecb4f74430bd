// Package classifier glues a model to the label tables: image bytes in,
// ranked and named predictions out.
package classifier

import (
	"io/ioutil"
	"os"
	"sync"
	"time"

	"github.com/JRCondeNast/dataset/labels"
	"github.com/JRCondeNast/dataset/model"
	"github.com/JRCondeNast/dataset/predict"
	"github.com/pkg/errors"
)

// ErrImageNotFound is returned by ClassifyFile for a missing input image.
var ErrImageNotFound = errors.New("input image does not exist")

// Result is the outcome for one image.
type Result struct {
	Filename    string               `json:"filename,omitempty"`
	Label       string               `json:"label"`
	Conf        int                  `json:"conf"`
	FileSize    uint64               `json:"filesize,omitempty"`
	FileIOTime  time.Duration        `json:"fileiotime,omitempty"`
	ComputeTime time.Duration        `json:"computetime"`
	Labels      []predict.Prediction `json:"labels"`
}

// Classifier is safe for concurrent use; calls into the scorer are
// serialized.
type Classifier struct {
	mu       sync.Mutex
	scorer   model.Scorer
	labelmap []string
	dict     labels.Dict
	top      int
}

// New returns a classifier reporting the top n classes, or every class when
// n is 0.
func New(scorer model.Scorer, labelmap []string, dict labels.Dict, n int) (*Classifier, error) {
	if scorer == nil {
		return nil, errors.New("no model given")
	}
	if len(labelmap) == 0 {
		return nil, errors.New("empty label map")
	}
	if n < 0 {
		return nil, errors.Errorf("number of top predictions cannot be negative, got %d", n)
	}
	if n == 0 {
		n = len(labelmap)
	}
	return &Classifier{scorer: scorer, labelmap: labelmap, dict: dict, top: n}, nil
}

// Classify runs the model on encoded image data.
func (c *Classifier) Classify(image []byte) (*Result, error) {
	t := time.Now()
	c.mu.Lock()
	scores, err := c.scorer.Score(image)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	computeTime := time.Since(t)

	if err := model.CheckShape(scores, len(c.labelmap)); err != nil {
		return nil, err
	}

	predictions, err := predict.Build(scores, c.top, c.labelmap, c.dict)
	if err != nil {
		return nil, err
	}

	result := &Result{ComputeTime: computeTime, Labels: predictions}
	if len(predictions) > 0 {
		result.Label = predictions[0].DisplayName
		result.Conf = int(predictions[0].Score * 100)
	}
	return result, nil
}

// ClassifyFile reads and classifies the image at path.
func (c *Classifier) ClassifyFile(path string) (*Result, error) {
	t := time.Now()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrImageNotFound, "%s", path)
	}
	image, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error on file read")
	}
	fileIOTime := time.Since(t)

	result, err := c.Classify(image)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	result.Filename = path
	result.FileSize = uint64(len(image))
	result.FileIOTime = fileIOTime
	return result, nil
}

// Close closes the underlying model.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scorer.Close()
}
