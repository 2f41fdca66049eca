package render

import (
	"image"
	"image/color"

	"github.com/alankarika/go-tryon/detector"
	"gocv.io/x/gocv"
)

// KeyPointStyle defines the parameters used for rendering face keypoints
type KeyPointStyle struct {
	PointColor  color.RGBA
	PointRadius int
	// TrackedColor and TrackedRadius are used for the tracked keypoint
	TrackedColor  color.RGBA
	TrackedRadius int
	// BoxColor is the face bounding box colour, BoxThickness of zero hides
	// the box
	BoxColor     color.RGBA
	BoxThickness int
}

// DefaultKeyPointStyle returns default keypoint style settings
func DefaultKeyPointStyle() KeyPointStyle {
	return KeyPointStyle{
		PointColor:    Green,
		PointRadius:   1,
		TrackedColor:  Yellow,
		TrackedRadius: 5,
		BoxColor:      White,
		BoxThickness:  1,
	}
}

// FaceKeyPoints renders all keypoints of a face with the tracked keypoint
// highlighted.  When mirror is set the points are flipped horizontally to
// match a mirrored video frame.
func FaceKeyPoints(img *gocv.Mat, face detector.Face, tracked int, mirror bool,
	style KeyPointStyle) {

	width := img.Cols()

	pt := func(x, y float32) image.Point {
		px := int(x + 0.5)

		if mirror {
			px = width - 1 - px
		}

		return image.Pt(px, int(y+0.5))
	}

	if style.BoxThickness > 0 && !face.Box.Empty() {
		box := face.Box

		if mirror {
			box = image.Rect(width-box.Max.X, box.Min.Y, width-box.Min.X, box.Max.Y)
		}

		gocv.Rectangle(img, box, style.BoxColor, style.BoxThickness)
	}

	for i, kp := range face.Keypoints {
		if i == tracked {
			continue
		}

		gocv.Circle(img, pt(kp.X, kp.Y), style.PointRadius, style.PointColor, -1)
	}

	// tracked keypoint is drawn last so it sits on top
	if kp, ok := face.Keypoint(tracked); ok {
		gocv.Circle(img, pt(kp.X, kp.Y), style.TrackedRadius, style.TrackedColor, -1)
	}
}
