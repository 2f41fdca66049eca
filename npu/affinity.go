//go:build rknn

package npu

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"
)

// fastCores are the CPU affinity masks of the big cores of each platform,
// single cluster SoC's use all cores
var fastCores = map[string]uintptr{
	"rk3562": 0b00001111,
	"rk3566": 0b00001111,
	"rk3568": 0b00001111,
	"rk3576": 0b11110000,
	"rk3582": 0b00110000,
	"rk3588": 0b11110000,
}

// SetCPUAffinityByPlatform pins the process to the fast CPU cores of the
// given platform so pre and post processing does not land on the efficiency
// cores
func SetCPUAffinityByPlatform(platform string) error {

	platform = strings.ToLower(strings.TrimSpace(platform))
	mask, ok := fastCores[platform]

	if !ok {
		return fmt.Errorf("unknown platform: %s", platform)
	}

	_, _, errno := syscall.RawSyscall(syscall.SYS_SCHED_SETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if errno != 0 {
		return fmt.Errorf("failed to set CPU affinity: %w", errno)
	}

	return nil
}
