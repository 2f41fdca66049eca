//go:build rknn

package npu

/*
#cgo LDFLAGS: -lrknnrt
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"os"
	"unsafe"
)

// coreMask wraps C.rknn_core_mask
type coreMask int

// NPU cores a runtime is pinned to
const (
	npuCoreAuto    coreMask = C.RKNN_NPU_CORE_AUTO
	npuCore0       coreMask = C.RKNN_NPU_CORE_0
	npuCore1       coreMask = C.RKNN_NPU_CORE_1
	npuCore2       coreMask = C.RKNN_NPU_CORE_2
	npuSkipSetCore coreMask = 9999
)

// errorCode wraps the error codes returned by the C API
type errorCode int

// String returns a readable description of the error code
func (e errorCode) String() string {
	switch e {
	case C.RKNN_SUCC:
		return "execution successful"
	case C.RKNN_ERR_FAIL:
		return "execution failed"
	case C.RKNN_ERR_TIMEOUT:
		return "execution timed out"
	case C.RKNN_ERR_DEVICE_UNAVAILABLE:
		return "device is unavailable"
	case C.RKNN_ERR_MALLOC_FAIL:
		return "C memory allocation failed"
	case C.RKNN_ERR_PARAM_INVALID:
		return "parameter is invalid"
	case C.RKNN_ERR_MODEL_INVALID:
		return "model file is invalid"
	case C.RKNN_ERR_CTX_INVALID:
		return "context is invalid"
	case C.RKNN_ERR_INPUT_INVALID:
		return "input is invalid"
	case C.RKNN_ERR_OUTPUT_INVALID:
		return "output is invalid"
	case C.RKNN_ERR_DEVICE_UNMATCH:
		return "device mismatch, please update rknn sdk and npu driver/firmware"
	case C.RKNN_ERR_TARGET_PLATFORM_UNMATCH:
		return "the RKNN model target platform is not compatible with the current platform"
	default:
		return fmt.Sprintf("unknown error code %d", int(e))
	}
}

// runtime is a single RKNN context with a loaded face mesh model
type runtime struct {
	ctx         C.rknn_context
	nInput      uint32
	nOutput     uint32
	inputAttrs  []tensorAttr
	outputAttrs []tensorAttr
}

// newRuntime loads the compiled model and pins it to the given NPU core
func newRuntime(modelFile string, core coreMask) (*runtime, error) {

	info, err := os.Stat(modelFile)

	if err != nil {
		return nil, fmt.Errorf("model file does not exist at %s, error: %w",
			modelFile, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("model file %s is a directory", modelFile)
	}

	r := &runtime{}

	cModelFile := C.CString(modelFile)
	defer C.free(unsafe.Pointer(cModelFile))

	ret := C.rknn_init(&r.ctx, unsafe.Pointer(cModelFile), 0, 0, nil)

	if ret != C.RKNN_SUCC {
		return nil, fmt.Errorf("C.rknn_init call failed with code %d, error: %s",
			ret, errorCode(ret).String())
	}

	if core != npuSkipSetCore {
		ret = C.rknn_set_core_mask(r.ctx, C.rknn_core_mask(core))

		if ret != C.RKNN_SUCC {
			r.close()
			return nil, fmt.Errorf("C.rknn_set_core_mask failed with code %d, error: %s",
				ret, errorCode(ret).String())
		}
	}

	var ioNum C.rknn_input_output_num

	ret = C.rknn_query(r.ctx, C.RKNN_QUERY_IN_OUT_NUM, unsafe.Pointer(&ioNum),
		C.uint(C.sizeof_rknn_input_output_num))

	if ret != C.RKNN_SUCC {
		r.close()
		return nil, fmt.Errorf("rknn_query failed with return code %d", int(ret))
	}

	r.nInput = uint32(ioNum.n_input)
	r.nOutput = uint32(ioNum.n_output)

	if r.inputAttrs, err = r.queryAttrs(C.RKNN_QUERY_INPUT_ATTR, r.nInput); err != nil {
		r.close()
		return nil, err
	}

	if r.outputAttrs, err = r.queryAttrs(C.RKNN_QUERY_OUTPUT_ATTR, r.nOutput); err != nil {
		r.close()
		return nil, err
	}

	return r, nil
}

// sdkVersion returns the RKNN API and driver versions
func (r *runtime) sdkVersion() (string, string, error) {

	var ver C.rknn_sdk_version

	ret := C.rknn_query(r.ctx, C.RKNN_QUERY_SDK_VERSION, unsafe.Pointer(&ver),
		C.uint(C.sizeof_rknn_sdk_version))

	if ret != C.RKNN_SUCC {
		return "", "", fmt.Errorf("rknn_query failed with return code %d", int(ret))
	}

	return C.GoString(&ver.api_version[0]), C.GoString(&ver.drv_version[0]), nil
}

// close wraps C.rknn_destroy
func (r *runtime) close() error {

	ret := C.rknn_destroy(r.ctx)

	if ret != C.RKNN_SUCC {
		return fmt.Errorf("C.rknn_destroy failed with code %d, error: %s",
			ret, errorCode(ret).String())
	}

	return nil
}
