package tfgraph

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	tf "github.com/tensorflow/tensorflow/tensorflow/go"
	"github.com/tensorflow/tensorflow/tensorflow/go/op"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

type imageFormat string

const (
	formatJPEG imageFormat = "jpeg"
	formatPNG  imageFormat = "png"
)

func sniff(data []byte) imageFormat {
	if bytes.HasPrefix(data, pngMagic) {
		return formatPNG
	}
	return formatJPEG
}

// transformer owns one preprocessing session per image format, built lazily.
type transformer struct {
	size int

	mu     sync.Mutex
	graphs map[imageFormat]*transformGraph
}

type transformGraph struct {
	session *tf.Session
	input   tf.Output
	output  tf.Output
}

func newTransformer(size int) *transformer {
	return &transformer{size: size, graphs: make(map[imageFormat]*transformGraph)}
}

func (t *transformer) run(image []byte) (*tf.Tensor, error) {
	g, err := t.get(sniff(image))
	if err != nil {
		return nil, err
	}

	tensor, err := tf.NewTensor(string(image))
	if err != nil {
		return nil, err
	}
	normalized, err := g.session.Run(
		map[tf.Output]*tf.Tensor{g.input: tensor},
		[]tf.Output{g.output},
		nil)
	if err != nil {
		return nil, err
	}
	return normalized[0], nil
}

func (t *transformer) get(format imageFormat) (*transformGraph, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if g, ok := t.graphs[format]; ok {
		return g, nil
	}

	graph, input, output, err := makeTransformImageGraph(format, t.size)
	if err != nil {
		return nil, errors.Wrap(err, "could not build preprocessing graph")
	}
	session, err := tf.NewSession(graph, nil)
	if err != nil {
		return nil, err
	}
	g := &transformGraph{session: session, input: input, output: output}
	t.graphs[format] = g
	return g, nil
}

func (t *transformer) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for format, g := range t.graphs {
		g.session.Close()
		delete(t.graphs, format)
	}
}

// makeTransformImageGraph builds decode -> float -> batch of one ->
// crop_and_resize over the whole image -> x/127.5 - 1.
func makeTransformImageGraph(format imageFormat, size int) (graph *tf.Graph, input, output tf.Output, err error) {
	s := op.NewScope()
	input = op.Placeholder(s, tf.String)

	var decode tf.Output
	if format == formatPNG {
		decode = op.DecodePng(s, input, op.DecodePngChannels(3))
	} else {
		decode = op.DecodeJpeg(s, input, op.DecodeJpegChannels(3))
	}

	batch := op.ExpandDims(s,
		op.Cast(s, decode, tf.Float),
		op.Const(s.SubScope("make_batch"), int32(0)))

	resized := op.CropAndResize(s,
		batch,
		// whole image
		op.Const(s.SubScope("boxes"), [][]float32{{0, 0, 1, 1}}),
		// one box
		op.Const(s.SubScope("box_ind"), []int32{0}),
		op.Const(s.SubScope("crop_size"), []int32{int32(size), int32(size)}))

	output = op.Sub(s,
		op.Mul(s, resized, op.Const(s.SubScope("scale"), float32(1.0/127.5))),
		op.Const(s.SubScope("center"), float32(1)))

	graph, err = s.Finalize()
	return graph, input, output, err
}
