//go:build !rknn

package npu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPoolUnsupported(t *testing.T) {

	p, err := NewPool(3, "face_mesh-rk3588.rknn", "rk3588")

	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, SetCPUAffinityByPlatform("rk3588"), ErrUnsupported)
}
