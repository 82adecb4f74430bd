// Package ortmodel runs ONNX exports of the classifier with onnxruntime.
package ortmodel

import (
	"github.com/JRCondeNast/dataset/model"
	"github.com/JRCondeNast/dataset/predict"
	"github.com/JRCondeNast/dataset/preprocess"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Model holds an onnxruntime session with pre-allocated input and output
// tensors, so it is not safe for concurrent use.
type Model struct {
	cfg          model.Config
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// Load initializes the onnxruntime environment and creates the session.
func Load(cfg model.Config) (*Model, error) {
	if cfg.RuntimeLib != "" {
		ort.SetSharedLibraryPath(cfg.RuntimeLib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize ONNX environment")
	}

	size := int64(cfg.ImageSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, size, size, 3))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.NumClasses)))
	if err != nil {
		inputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	logrus.Info("loading onnx model: ", cfg.Checkpoint)
	session, err := ort.NewAdvancedSession(cfg.Checkpoint,
		[]string{cfg.InputOp}, []string{cfg.OutputOp},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ort.DestroyEnvironment()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	return &Model{
		cfg:          cfg,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Score preprocesses the image in Go and runs the session.
func (m *Model) Score(image []byte) ([]float32, error) {
	input, err := preprocess.Image(image, m.cfg.ImageSize)
	if err != nil {
		return nil, err
	}
	copy(m.inputTensor.GetData(), input)

	if err := m.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	// the output buffer is reused by the next run
	out := m.outputTensor.GetData()
	scores := make([]float32, len(out))
	copy(scores, out)

	if err := model.CheckShape(scores, m.cfg.NumClasses); err != nil {
		return nil, err
	}
	if m.cfg.Logits {
		scores = predict.Sigmoid(scores)
	}
	return scores, nil
}

// Close destroys tensors, session and the environment.
func (m *Model) Close() error {
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
	var err error
	if m.session != nil {
		err = m.session.Destroy()
	}
	if derr := ort.DestroyEnvironment(); err == nil {
		err = derr
	}
	return err
}
