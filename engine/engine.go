// Package engine opens a checkpoint with the runtime that can execute it.
package engine

import (
	"github.com/JRCondeNast/dataset/model"
	"github.com/JRCondeNast/dataset/model/ortmodel"
	"github.com/JRCondeNast/dataset/model/tfgraph"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Open validates cfg and loads the checkpoint.
func Open(cfg model.Config) (model.Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend := cfg.ResolvedBackend()
	logrus.WithField("backend", backend).
		WithField("checkpoint", cfg.Checkpoint).
		Debug("opening model")

	switch backend {
	case model.ONNX:
		m, err := ortmodel.Load(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	case model.TensorFlow:
		m, err := tfgraph.Load(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, errors.Errorf("unknown backend %q", backend)
}
