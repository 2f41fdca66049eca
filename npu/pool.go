//go:build rknn

package npu

import (
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// Pool holds runtimes of the same model spread across the NPU cores
type Pool struct {
	runtimes chan *runtime
	size     int
	// inputSize is the model input image size
	inputSize image.Point
	// first is kept for describing the model
	first *runtime
	// mu guards closed
	mu     sync.Mutex
	closed bool
}

// NewPool loads size runtimes of the compiled model onto the NPU cores of
// the given platform
func NewPool(size int, modelFile, platform string) (*Pool, error) {

	platform = strings.ToLower(strings.TrimSpace(platform))
	cores, ok := Platforms[platform]

	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	if size < 1 {
		size = 1
	}

	p := &Pool{
		runtimes: make(chan *runtime, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		rt, err := newRuntime(modelFile, runtimeCore(i, cores))

		if err != nil {
			// close any instances created before the error
			p.Close()
			return nil, err
		}

		if p.first == nil {
			p.first = rt
			p.inputSize = rt.inputAttrs[0].imageSize()
		}

		p.put(rt)
	}

	return p, nil
}

// runtimeCore returns the core mask for the i'th runtime in the pool
func runtimeCore(i, cores int) coreMask {

	if cores == 1 {
		// single core SoC's do not support setting a core mask
		return npuSkipSetCore
	}

	switch i % cores {
	case 0:
		return npuCore0
	case 1:
		return npuCore1
	case 2:
		return npuCore2
	}

	return npuCoreAuto
}

// Infer runs the model on img using the next free runtime
func (p *Pool) Infer(img gocv.Mat) ([]float32, error) {

	rt, ok := <-p.runtimes

	if !ok {
		return nil, fmt.Errorf("npu pool is closed")
	}

	defer p.put(rt)

	return rt.infer(img)
}

// put returns a runtime to the pool, or destroys it if the pool was closed
// whilst it was in use
func (p *Pool) put(rt *runtime) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = rt.close()
		return
	}

	p.runtimes <- rt
}

// InputSize returns the model input image size
func (p *Pool) InputSize() image.Point {
	return p.inputSize
}

// Describe writes the SDK version and model tensor information
func (p *Pool) Describe(w io.Writer) error {

	api, drv, err := p.first.sdkVersion()

	if err != nil {
		return fmt.Errorf("error querying SDK version: %w", err)
	}

	fmt.Fprintf(w, "Driver Version: %s, API Version: %s\n", drv, api)
	fmt.Fprintf(w, "Runtimes: %d\n", p.size)
	fmt.Fprintf(w, "Input tensors:\n")

	for _, attr := range p.first.inputAttrs {
		fmt.Fprintf(w, "  %s\n", attr.String())
	}

	fmt.Fprintf(w, "Output tensors:\n")

	for _, attr := range p.first.outputAttrs {
		fmt.Fprintf(w, "  %s\n", attr.String())
	}

	return nil
}

// Close the pool and all runtimes in it
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.runtimes)

	for rt := range p.runtimes {
		_ = rt.close()
	}
}
