//go:build rknn

package npu

/*
#include "rknn_api.h"
*/
import "C"
import (
	"fmt"
	"unsafe"

	"gocv.io/x/gocv"
)

// infer runs the model on an RGB uint8 NHWC image sized to the model input
// and returns the first output tensor as float32.  The output is copied out
// of C memory so it remains valid after the RKNN buffers are released.
func (r *runtime) infer(img gocv.Mat) ([]float32, error) {

	if !img.IsContinuous() {
		img = img.Clone()
		defer img.Close()
	}

	data, err := img.DataPtrUint8()

	if err != nil {
		return nil, fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	var input C.rknn_input
	input.index = 0
	input.buf = unsafe.Pointer(&data[0])
	input.size = C.uint32_t(len(data))
	input.pass_through = 0
	input._type = C.RKNN_TENSOR_UINT8
	input.fmt = C.RKNN_TENSOR_NHWC

	ret := C.rknn_inputs_set(r.ctx, 1, &input)

	if ret != C.RKNN_SUCC {
		return nil, fmt.Errorf("C.rknn_inputs_set failed with code %d, error: %s",
			int(ret), errorCode(ret).String())
	}

	ret = C.rknn_run(r.ctx, nil)

	if ret < 0 {
		return nil, fmt.Errorf("C.rknn_run failed with code %d, error: %s",
			int(ret), errorCode(ret).String())
	}

	outputs := make([]C.rknn_output, r.nOutput)

	for i := range outputs {
		outputs[i].index = C.uint32_t(i)
		// leave outputs in their native type, fp16 and int8 are converted
		// in Go which is faster than the driver conversion
		outputs[i].want_float = 0
	}

	ret = C.rknn_outputs_get(r.ctx, C.uint32_t(r.nOutput), &outputs[0], nil)

	if ret < 0 {
		return nil, fmt.Errorf("C.rknn_outputs_get failed with code %d, error: %s",
			int(ret), errorCode(ret).String())
	}

	defer C.rknn_outputs_release(r.ctx, C.uint32_t(r.nOutput), &outputs[0])

	return r.convertOutput(r.outputAttrs[0], outputs[0]), nil
}

// convertOutput copies an output buffer into a float32 slice
func (r *runtime) convertOutput(attr tensorAttr, out C.rknn_output) []float32 {

	size := int(out.size)

	switch attr.Type {
	case tensorFloat16:
		return float16ToFloat32(unsafe.Slice((*uint16)(out.buf), size/2))

	case tensorInt8:
		return dequantizeAffine(unsafe.Slice((*int8)(out.buf), size), attr.ZP, attr.Scale)

	default:
		buf := make([]float32, size/4)
		copy(buf, unsafe.Slice((*float32)(out.buf), size/4))
		return buf
	}
}
