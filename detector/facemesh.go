package detector

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/alankarika/go-tryon/npu"
	"github.com/alankarika/go-tryon/preprocess"
	"gocv.io/x/gocv"
)

// FaceMeshParams defines the struct containing the face mesh parameters
// used for pre and post processing
type FaceMeshParams struct {
	// InputSize is the square model input size in pixels
	InputSize int
	// ROIExpand is how much the face box is grown before being fed to the
	// mesh model
	ROIExpand float64
	// InputScale is the pixel value scale applied to the DNN input blob
	InputScale float64
	// SwapRB converts BGR frames to the RGB order the model expects
	SwapRB bool
	// MaxFaces is the maximum number of faces processed per frame
	MaxFaces int
	// CascadeScale is the scale step used by the face box cascade
	CascadeScale float64
	// CascadeNeighbors is the minimum neighbours for a cascade detection
	CascadeNeighbors int
	// MinFaceSize is the smallest face box side in pixels
	MinFaceSize int
}

// MediaPipeFaceMeshParams returns the default parameters for the MediaPipe
// 468 point face mesh model
func MediaPipeFaceMeshParams() FaceMeshParams {
	return FaceMeshParams{
		InputSize:        192,
		ROIExpand:        1.5,
		InputScale:       1.0 / 255.0,
		SwapRB:           true,
		MaxFaces:         1,
		CascadeScale:     1.1,
		CascadeNeighbors: 5,
		MinFaceSize:      80,
	}
}

// letterboxColor pads the face region when it does not fill the model input
var letterboxColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// landmarker runs the face mesh model over a prepared model input
type landmarker interface {
	// landmarks returns the raw model output as x,y,z triplets in model
	// input pixel space
	landmarks(input gocv.Mat) ([]float32, error)
	describe(w io.Writer) error
	close() error
}

// FaceMesh is a Detector running a cascade face box search followed by a
// face mesh landmark model
type FaceMesh struct {
	params    FaceMeshParams
	topology  Topology
	finder    *faceFinder
	landmarks landmarker
	resizer   *preprocess.Resizer
	input     gocv.Mat
}

// NewFaceMesh returns a face mesh detector running the ONNX model through the
// OpenCV DNN module
func NewFaceMesh(cascadeFile, modelFile string, p FaceMeshParams) (*FaceMesh, error) {

	net := gocv.ReadNet(modelFile, "")

	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("error reading face mesh model: %s", modelFile)
	}

	lm := &dnnLandmarker{
		net:    net,
		model:  modelFile,
		params: p,
	}

	fm, err := newFaceMesh(cascadeFile, p, lm, image.Pt(p.InputSize, p.InputSize))

	if err != nil {
		lm.close()
		return nil, err
	}

	return fm, nil
}

// NewNPUFaceMesh returns a face mesh detector running the RKNN compiled model
// on a pool of NPU runtimes.  Without the rknn build tag it returns
// npu.ErrUnsupported.
func NewNPUFaceMesh(cascadeFile, modelFile, platform string, poolSize int,
	p FaceMeshParams) (*FaceMesh, error) {

	pool, err := npu.NewPool(poolSize, modelFile, platform)

	if err != nil {
		return nil, fmt.Errorf("error creating NPU pool: %w", err)
	}

	lm := &npuLandmarker{
		pool:   pool,
		rgb:    gocv.NewMat(),
		swapRB: p.SwapRB,
	}

	fm, err := newFaceMesh(cascadeFile, p, lm, pool.InputSize())

	if err != nil {
		lm.close()
		return nil, err
	}

	return fm, nil
}

// newFaceMesh assembles a FaceMesh around a landmark backend
func newFaceMesh(cascadeFile string, p FaceMeshParams, lm landmarker,
	inputSize image.Point) (*FaceMesh, error) {

	if inputSize.X <= 0 || inputSize.Y <= 0 {
		return nil, fmt.Errorf("invalid face mesh input size %v", inputSize)
	}

	finder, err := newFaceFinder(cascadeFile, p)

	if err != nil {
		return nil, err
	}

	return &FaceMesh{
		params:    p,
		topology:  MediaPipeFaceMesh,
		finder:    finder,
		landmarks: lm,
		// source size is set per face region
		resizer: preprocess.NewResizer(inputSize.X, inputSize.Y,
			inputSize.X, inputSize.Y),
		input: gocv.NewMat(),
	}, nil
}

// EstimateFaces finds faces in img and returns their mesh keypoints in source
// frame pixel coordinates, largest face first
func (f *FaceMesh) EstimateFaces(ctx context.Context, img gocv.Mat) ([]Face, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if img.Empty() {
		return nil, nil
	}

	frame := image.Pt(img.Cols(), img.Rows())
	boxes := f.finder.find(img)
	faces := make([]Face, 0, len(boxes))

	for _, box := range boxes {

		roi := preprocess.FaceROI(box, frame, f.params.ROIExpand)

		if roi.Empty() {
			continue
		}

		region := img.Region(roi)
		f.resizer.SetSource(roi.Dx(), roi.Dy())
		f.resizer.LetterBoxResize(region, &f.input, letterboxColor)
		region.Close()

		raw, err := f.landmarks.landmarks(f.input)

		if err != nil {
			return nil, fmt.Errorf("face mesh inference failed: %w", err)
		}

		kps, err := decodeMesh(raw, f.topology.Size, f.resizer, roi.Min)

		if err != nil {
			return nil, err
		}

		faces = append(faces, Face{
			Box:       box,
			Score:     1,
			Keypoints: kps,
		})
	}

	return faces, nil
}

// Topology returns the MediaPipe face mesh topology
func (f *FaceMesh) Topology() Topology {
	return f.topology
}

// Describe writes the detector backend details to w
func (f *FaceMesh) Describe(w io.Writer) error {

	fmt.Fprintf(w, "Topology: %s (%d keypoints)\n", f.topology.Name, f.topology.Size)
	fmt.Fprintf(w, "Model input: %v\n", f.resizer.DestSize())

	return f.landmarks.describe(w)
}

// Close releases the model, cascade and scratch buffers
func (f *FaceMesh) Close() error {
	f.input.Close()
	f.resizer.Close()
	f.finder.close()
	return f.landmarks.close()
}

// decodeMesh converts raw x,y,z triplets in model input space into
// keypoints in source frame pixels.  origin is the top left corner of the
// face region within the source frame.
func decodeMesh(data []float32, n int, r *preprocess.Resizer,
	origin image.Point) ([]Keypoint, error) {

	if len(data) < n*3 {
		return nil, fmt.Errorf("face mesh output has %d values, expected %d",
			len(data), n*3)
	}

	scale := r.ScaleFactor()
	kps := make([]Keypoint, n)

	for i := 0; i < n; i++ {
		x, y := r.ToSource(data[i*3], data[i*3+1])

		kps[i] = Keypoint{
			X: x + float32(origin.X),
			Y: y + float32(origin.Y),
			Z: data[i*3+2] / scale,
		}
	}

	return kps, nil
}

// dnnLandmarker runs the face mesh through the OpenCV DNN module
type dnnLandmarker struct {
	net    gocv.Net
	model  string
	params FaceMeshParams
}

func (d *dnnLandmarker) landmarks(input gocv.Mat) ([]float32, error) {

	blob := gocv.BlobFromImage(input, d.params.InputScale,
		image.Pt(input.Cols(), input.Rows()), gocv.NewScalar(0, 0, 0, 0),
		d.params.SwapRB, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	out := d.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, err
	}

	// out is released on return so the values are copied
	res := make([]float32, len(data))
	copy(res, data)

	return res, nil
}

func (d *dnnLandmarker) describe(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Backend: OpenCV DNN\nModel: %s\n", d.model)
	return err
}

func (d *dnnLandmarker) close() error {
	return d.net.Close()
}

// npuLandmarker runs the face mesh on the Rockchip NPU
type npuLandmarker struct {
	pool   *npu.Pool
	rgb    gocv.Mat
	swapRB bool
}

func (n *npuLandmarker) landmarks(input gocv.Mat) ([]float32, error) {

	if !n.swapRB {
		return n.pool.Infer(input)
	}

	gocv.CvtColor(input, &n.rgb, gocv.ColorBGRToRGB)

	return n.pool.Infer(n.rgb)
}

func (n *npuLandmarker) describe(w io.Writer) error {

	if _, err := fmt.Fprintln(w, "Backend: Rockchip NPU"); err != nil {
		return err
	}

	return n.pool.Describe(w)
}

func (n *npuLandmarker) close() error {
	n.rgb.Close()
	n.pool.Close()
	return nil
}
