//go:build rknn

package npu

/*
#include "rknn_api.h"
*/
import "C"
import (
	"fmt"
	"image"
	"unsafe"
)

const (
	tensorNHWC    = C.RKNN_TENSOR_NHWC
	tensorFloat16 = C.RKNN_TENSOR_FLOAT16
	tensorInt8    = C.RKNN_TENSOR_INT8
	tensorUint8   = C.RKNN_TENSOR_UINT8
)

// tensorAttr holds the fields of C.rknn_tensor_attr the face mesh backend
// needs
type tensorAttr struct {
	Index  uint32
	NDims  uint32
	Dims   [C.RKNN_MAX_DIMS]uint32
	Name   string
	NElems uint32
	Size   uint32
	Fmt    int
	Type   int
	ZP     int32
	Scale  float32
}

// queryAttrs queries the tensor attributes of all inputs or outputs
func (r *runtime) queryAttrs(cmd C.rknn_query_cmd, n uint32) ([]tensorAttr, error) {

	attrs := make([]tensorAttr, n)

	for i := uint32(0); i < n; i++ {
		var cAttr C.rknn_tensor_attr
		cAttr.index = C.uint32_t(i)

		ret := C.rknn_query(r.ctx, cmd, unsafe.Pointer(&cAttr), C.uint(unsafe.Sizeof(cAttr)))

		if ret != C.RKNN_SUCC {
			return nil, fmt.Errorf("C.rknn_query tensor attributes failed with code %d, error: %s",
				int(ret), errorCode(ret).String())
		}

		attrs[i] = tensorAttr{
			Index:  uint32(cAttr.index),
			NDims:  uint32(cAttr.n_dims),
			Dims:   *(*[C.RKNN_MAX_DIMS]uint32)(unsafe.Pointer(&cAttr.dims)),
			Name:   C.GoString(&cAttr.name[0]),
			NElems: uint32(cAttr.n_elems),
			Size:   uint32(cAttr.size),
			Fmt:    int(cAttr.fmt),
			Type:   int(cAttr._type),
			ZP:     int32(cAttr.zp),
			Scale:  float32(cAttr.scale),
		}
	}

	return attrs, nil
}

// imageSize returns the width and height of an image input tensor in either
// NHWC or NCHW layout
func (a tensorAttr) imageSize() image.Point {

	if a.Fmt == tensorNHWC {
		return image.Pt(int(a.Dims[2]), int(a.Dims[1]))
	}

	return image.Pt(int(a.Dims[3]), int(a.Dims[2]))
}

// String returns the tensor attributes in human readable format
func (a tensorAttr) String() string {
	return fmt.Sprintf("index=%d, name=%s, n_dims=%d, dims=[%d, %d, %d, %d], "+
		"n_elems=%d, size=%d, fmt=%d, type=%d, zp=%d, scale=%f",
		a.Index, a.Name, a.NDims, a.Dims[0], a.Dims[1], a.Dims[2], a.Dims[3],
		a.NElems, a.Size, a.Fmt, a.Type, a.ZP, a.Scale)
}
