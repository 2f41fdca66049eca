package capture

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeReader produces a fixed number of solid frames
type fakeReader struct {
	mu     sync.Mutex
	frames int
	read   int
	closed bool
}

func (f *fakeReader) Read(m *gocv.Mat) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.read >= f.frames {
		return false
	}

	f.read++

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(f.read), 0, 0, 0),
		3, 4, gocv.MatTypeCV8UC3)
	defer img.Close()

	img.CopyTo(m)

	return true
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

func TestStreamNotReadyBeforeFirstFrame(t *testing.T) {

	s := newStream(&fakeReader{}, image.Pt(4, 3), 0, nil)
	defer s.Close()

	assert.False(t, s.Ready())

	dst := gocv.NewMat()
	defer dst.Close()

	assert.ErrorIs(t, s.Read(&dst), ErrNotReady)
}

func TestStreamBuffersFrames(t *testing.T) {

	reader := &fakeReader{frames: 5}
	s := newStream(reader, image.Pt(4, 3), time.Millisecond, nil)

	s.Start(context.Background())

	require.Eventually(t, s.Ready, time.Second, time.Millisecond)

	dst := gocv.NewMat()
	defer dst.Close()

	require.NoError(t, s.Read(&dst))
	assert.Equal(t, 4, dst.Cols())
	assert.Equal(t, 3, dst.Rows())
	assert.Equal(t, image.Pt(4, 3), s.Size())

	require.NoError(t, s.Close())
	assert.True(t, reader.closed)
}

func TestStreamProbesSizeFromFirstFrame(t *testing.T) {

	s := newStream(&fakeReader{frames: 1}, image.Point{}, 0, nil)
	defer s.Close()

	require.NoError(t, s.probeSize())

	assert.Equal(t, image.Pt(4, 3), s.Size())
	// the probed frame is kept so the source is already usable
	assert.True(t, s.Ready())
}

func TestStreamRewindsLoopedFile(t *testing.T) {

	reader := &fakeReader{frames: 2}
	rewinds := 0

	s := newStream(reader, image.Pt(4, 3), time.Millisecond, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()

		rewinds++
		reader.read = 0

		return rewinds < 3
	})

	s.Start(context.Background())

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return rewinds >= 3
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Close())
	assert.True(t, s.Ready())
}
