//go:build !rknn

package npu

import (
	"image"
	"io"

	"gocv.io/x/gocv"
)

// Pool is unavailable without the rknn build tag
type Pool struct{}

// NewPool always returns ErrUnsupported without the rknn build tag
func NewPool(size int, modelFile, platform string) (*Pool, error) {
	return nil, ErrUnsupported
}

// Infer always returns ErrUnsupported without the rknn build tag
func (p *Pool) Infer(img gocv.Mat) ([]float32, error) {
	return nil, ErrUnsupported
}

// InputSize returns an empty size without the rknn build tag
func (p *Pool) InputSize() image.Point {
	return image.Point{}
}

// Describe always returns ErrUnsupported without the rknn build tag
func (p *Pool) Describe(w io.Writer) error {
	return ErrUnsupported
}

// Close is a no-op without the rknn build tag
func (p *Pool) Close() {}

// SetCPUAffinityByPlatform always returns ErrUnsupported without the rknn
// build tag
func SetCPUAffinityByPlatform(platform string) error {
	return ErrUnsupported
}
