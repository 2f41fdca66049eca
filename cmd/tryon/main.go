// Command tryon runs the live virtual jewelry try-on pipeline.
package main

import "runtime"

func init() {
	// OpenCV windows must be driven from the main thread
	runtime.LockOSThread()
}

func main() {
	Execute()
}
