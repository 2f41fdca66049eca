package detector

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// faceFinder locates face bounding boxes with a Haar cascade classifier
type faceFinder struct {
	classifier gocv.CascadeClassifier
	gray       gocv.Mat
	params     FaceMeshParams
}

// newFaceFinder loads the cascade classifier from the given XML file
func newFaceFinder(cascadeFile string, p FaceMeshParams) (*faceFinder, error) {

	classifier := gocv.NewCascadeClassifier()

	if !classifier.Load(cascadeFile) {
		classifier.Close()
		return nil, fmt.Errorf("error loading cascade file: %s", cascadeFile)
	}

	return &faceFinder{
		classifier: classifier,
		gray:       gocv.NewMat(),
		params:     p,
	}, nil
}

// find returns the face boxes in img, largest first, limited to MaxFaces
func (f *faceFinder) find(img gocv.Mat) []image.Rectangle {

	gocv.CvtColor(img, &f.gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(f.gray, &f.gray)

	boxes := f.classifier.DetectMultiScaleWithParams(f.gray,
		f.params.CascadeScale, f.params.CascadeNeighbors, 0,
		image.Pt(f.params.MinFaceSize, f.params.MinFaceSize), image.Point{})

	return largestFirst(boxes, f.params.MaxFaces)
}

// close releases the classifier
func (f *faceFinder) close() error {
	f.gray.Close()
	return f.classifier.Close()
}

// largestFirst orders boxes by area descending and keeps at most max of them
func largestFirst(boxes []image.Rectangle, max int) []image.Rectangle {

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].Dx()*boxes[i].Dy() > boxes[j].Dx()*boxes[j].Dy()
	})

	if max > 0 && len(boxes) > max {
		boxes = boxes[:max]
	}

	return boxes
}
