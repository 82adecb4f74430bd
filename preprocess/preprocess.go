// Package preprocess turns encoded images into the float tensor layout the
// Inception graphs are trained on, without needing a TensorFlow runtime.
package preprocess

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

const channels = 3

// Decode decodes JPEG or PNG data.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, "could not decode image")
	}
	return img, format, nil
}

// Normalize resizes the whole image to size x size with bilinear
// interpolation and scales every RGB channel from [0, 255] into [-1, 1].
// The result is a batch of one in NHWC order.
func Normalize(img image.Image, size int) []float32 {
	resized := img
	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		resized = resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	}

	rb := resized.Bounds()
	data := make([]float32, size*size*channels)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			i := (y*size + x) * channels
			data[i] = scale(r)
			data[i+1] = scale(g)
			data[i+2] = scale(bl)
		}
	}
	return data
}

// Image decodes and normalizes in one step.
func Image(data []byte, size int) ([]float32, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid image size %d", size)
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Normalize(img, size), nil
}

// scale maps a 16 bit color component to [-1, 1].
func scale(c uint32) float32 {
	return float32(c>>8)/127.5 - 1
}
