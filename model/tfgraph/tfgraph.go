// Package tfgraph runs Inception style checkpoints with the TensorFlow Go
// bindings. Frozen GraphDef files and SavedModel directories are supported.
package tfgraph

import (
	"io/ioutil"

	"github.com/JRCondeNast/dataset/model"
	"github.com/JRCondeNast/dataset/predict"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"
)

const servingTag = "serve"

// Model is a loaded graph with an open session.
type Model struct {
	cfg       model.Config
	graph     *tf.Graph
	session   *tf.Session
	input     tf.Output
	output    tf.Output
	transform *transformer
}

// Load imports the checkpoint and starts a session on it.
func Load(cfg model.Config) (*Model, error) {
	m := &Model{cfg: cfg}

	if model.IsSavedModel(cfg.Checkpoint) {
		logrus.Info("loading saved model: ", cfg.Checkpoint)
		saved, err := tf.LoadSavedModel(cfg.Checkpoint, []string{servingTag}, nil)
		if err != nil {
			return nil, errors.Wrap(err, "could not load saved model")
		}
		m.graph, m.session = saved.Graph, saved.Session
	} else {
		logrus.Info("loading graph: ", cfg.Checkpoint)
		def, err := ioutil.ReadFile(cfg.Checkpoint)
		if err != nil {
			return nil, errors.Wrap(err, "could not read graph")
		}
		m.graph = tf.NewGraph()
		if err := m.graph.Import(def, ""); err != nil {
			return nil, errors.Wrap(err, "could not import graph")
		}
		if m.session, err = tf.NewSession(m.graph, nil); err != nil {
			return nil, errors.Wrap(err, "could not start session")
		}
	}

	var err error
	if m.input, err = lookup(m.graph, cfg.InputOp); err != nil {
		m.Close()
		return nil, err
	}
	if m.output, err = lookup(m.graph, cfg.OutputOp); err != nil {
		m.Close()
		return nil, err
	}

	m.transform = newTransformer(cfg.ImageSize)
	logrus.Info("graph loaded")
	return m, nil
}

func lookup(graph *tf.Graph, name string) (tf.Output, error) {
	operation := graph.Operation(name)
	if operation == nil {
		return tf.Output{}, errors.Errorf("operation %s not found in graph", name)
	}
	return operation.Output(0), nil
}

// Score decodes and normalizes the image, then runs the forward pass.
func (m *Model) Score(image []byte) ([]float32, error) {
	tensor, err := m.transform.run(image)
	if err != nil {
		return nil, errors.Wrap(err, "could not make tensor from image")
	}

	output, err := m.session.Run(
		map[tf.Output]*tf.Tensor{m.input: tensor},
		[]tf.Output{m.output},
		nil)
	if err != nil {
		return nil, errors.Wrap(err, "error in running session")
	}

	var scores []float32
	switch v := output[0].Value().(type) {
	case [][]float32:
		if len(v) != 1 {
			return nil, errors.Wrapf(model.ErrShape, "batch of %d", len(v))
		}
		scores = v[0]
	case []float32:
		scores = v
	default:
		return nil, errors.Wrapf(model.ErrShape, "output of type %T", v)
	}

	if err := model.CheckShape(scores, m.cfg.NumClasses); err != nil {
		return nil, err
	}
	if m.cfg.Logits {
		scores = predict.Sigmoid(scores)
	}
	return scores, nil
}

// Close releases the sessions.
func (m *Model) Close() error {
	if m.transform != nil {
		m.transform.close()
	}
	if m.session != nil {
		return m.session.Close()
	}
	return nil
}
