/*
Package npu runs compiled RKNN face landmark models on the Rockchip NPU via
the RKNN Toolkit2 C API.  The bindings are only built with the rknn build tag
as they require librknnrt and its headers, for example:

	go build -tags rknn ./cmd/tryon

Without the tag NewPool returns ErrUnsupported so the OpenCV backend can be
used on other hardware.
*/
package npu

import "errors"

// ErrUnsupported is returned when the binary was built without NPU support
var ErrUnsupported = errors.New("npu support not built in, rebuild with -tags rknn")

// Platforms lists the Rockchip SoCs supported and the number of NPU cores
// each one has.  Runtimes in a Pool are spread across the cores.
var Platforms = map[string]int{
	"rk3562": 1,
	"rk3566": 1,
	"rk3568": 1,
	"rk3576": 2,
	"rk3582": 3,
	"rk3588": 3,
}
