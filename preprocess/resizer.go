/*
Package preprocess prepares regions of a video frame for input to a face
landmark model and maps model space coordinates back onto the source frame.
*/
package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Resizer scales an image region to the model input tensor size using
// letterbox padding so the aspect ratio of the region is kept
type Resizer struct {
	// srcWidth is the width of the source region
	srcWidth int
	// srcHeight is the height of the source region
	srcHeight int
	// destWidth is the width of the model input
	destWidth int
	// destHeight is the height of the model input
	destHeight int
	// tempMat holds the scaled region before padding
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling a region of srcWidth x
// srcHeight to the model input size destWidth x destHeight
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	r.SetSource(srcWidth, srcHeight)

	return r
}

// SetSource changes the source region size and recalculates the scaling
// parameters.  Face regions change size every frame so the Resizer is reused
// across them rather than allocated per frame.
func (r *Resizer) SetSource(srcWidth, srcHeight int) {

	if r.srcWidth == srcWidth && r.srcHeight == srcHeight {
		return
	}

	r.srcWidth = srcWidth
	r.srcHeight = srcHeight
	r.preCalc()
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination sizes
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2
	r.xPad = (r.destWidth - r.resizeW) / 2
}

// LetterBoxResize resizes src to the model input size whilst keeping its
// aspect ratio.  Color is used for the letterbox padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// ToSource maps a coordinate in model input space back to the source region
func (r *Resizer) ToSource(x, y float32) (float32, float32) {
	return (x - float32(r.xPad)) / r.scale, (y - float32(r.yPad)) / r.scale
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source region
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source region
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

// DestSize returns the model input size
func (r *Resizer) DestSize() image.Point {
	return image.Pt(r.destWidth, r.destHeight)
}
