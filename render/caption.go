package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// DefaultTitle is the application title drawn over the video
	DefaultTitle = "Alankarikā"
	// DefaultTagline is drawn beneath the title
	DefaultTagline = "Virtual jewelry try-on"
)

// CaptionStyle defines the TrueType text parameters of a Caption.  The Hershey
// fonts GoCV provides only cover ASCII so captions use the Go fonts instead.
type CaptionStyle struct {
	TitleSize   float64
	TaglineSize float64
	Color       color.RGBA
	ShadowColor color.RGBA
	// ShadowOffset is the pixel offset of the drop shadow
	ShadowOffset int
	// Margin from the top left corner of the image
	Margin int
	// LineGap is the spacing between the title and tagline
	LineGap int
}

// DefaultCaptionStyle returns default caption style settings
func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		TitleSize:    36,
		TaglineSize:  18,
		Color:        White,
		ShadowColor:  Shadow,
		ShadowOffset: 2,
		Margin:       16,
		LineGap:      6,
	}
}

// Caption is a title and tagline rasterised once and blended over frames
type Caption struct {
	style CaptionStyle
	// mask holds the text coverage of the caption
	mask *image.Alpha
}

// NewCaption rasterises the title and tagline in the given style
func NewCaption(title, tagline string, style CaptionStyle) (*Caption, error) {

	titleFace, err := newFace(gobold.TTF, style.TitleSize)

	if err != nil {
		return nil, err
	}

	defer titleFace.Close()

	taglineFace, err := newFace(goregular.TTF, style.TaglineSize)

	if err != nil {
		return nil, err
	}

	defer taglineFace.Close()

	type line struct {
		text string
		face font.Face
	}

	lines := []line{{title, titleFace}, {tagline, taglineFace}}
	width, height := 0, 0

	for _, l := range lines {
		if l.text == "" {
			continue
		}

		w := font.MeasureString(l.face, l.text).Ceil()

		if w > width {
			width = w
		}

		height += l.face.Metrics().Height.Ceil() + style.LineGap
	}

	c := &Caption{
		style: style,
		mask:  image.NewAlpha(image.Rect(0, 0, width, height)),
	}

	d := &font.Drawer{
		Dst: c.mask,
		Src: image.Opaque,
	}

	y := 0

	for _, l := range lines {
		if l.text == "" {
			continue
		}

		y += l.face.Metrics().Ascent.Ceil()
		d.Face = l.face
		d.Dot = fixed.P(0, y)
		d.DrawString(l.text)
		y += l.face.Metrics().Descent.Ceil() + style.LineGap
	}

	return c, nil
}

// newFace parses a TrueType font at the given point size
func newFace(ttf []byte, size float64) (font.Face, error) {

	f, err := opentype.Parse(ttf)

	if err != nil {
		return nil, fmt.Errorf("error parsing caption font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("error creating caption font face: %w", err)
	}

	return face, nil
}

// Size returns the pixel size of the rasterised caption
func (c *Caption) Size() image.Point {
	return c.mask.Rect.Size()
}

// Draw blends the caption with its drop shadow into the top left corner of
// a three channel BGR image
func (c *Caption) Draw(img *gocv.Mat) error {

	if img.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("caption requires an 8 bit BGR image, got %v", img.Type())
	}

	if !img.IsContinuous() {
		return fmt.Errorf("caption requires a continuous image")
	}

	data, err := img.DataPtrUint8()

	if err != nil {
		return err
	}

	cols, rows := img.Cols(), img.Rows()
	origin := image.Pt(c.style.Margin, c.style.Margin)
	shadow := origin.Add(image.Pt(c.style.ShadowOffset, c.style.ShadowOffset))

	if c.style.ShadowOffset != 0 {
		c.blend(data, cols, rows, shadow, c.style.ShadowColor)
	}

	c.blend(data, cols, rows, origin, c.style.Color)

	return nil
}

// blend paints clr through the caption mask at the given offset, scaling the
// colour alpha by the mask coverage
func (c *Caption) blend(data []uint8, cols, rows int, at image.Point, clr color.RGBA) {

	b := c.mask.Rect

	for y := b.Min.Y; y < b.Max.Y; y++ {
		py := at.Y + y

		if py < 0 || py >= rows {
			continue
		}

		for x := b.Min.X; x < b.Max.X; x++ {
			px := at.X + x

			if px < 0 || px >= cols {
				continue
			}

			cov := uint32(c.mask.AlphaAt(x, y).A) * uint32(clr.A) / 255

			if cov == 0 {
				continue
			}

			i := (py*cols + px) * 3
			// BGR channel order
			data[i] = mix(data[i], clr.B, cov)
			data[i+1] = mix(data[i+1], clr.G, cov)
			data[i+2] = mix(data[i+2], clr.R, cov)
		}
	}
}

func mix(dst, src uint8, alpha uint32) uint8 {
	return uint8((uint32(dst)*(255-alpha) + uint32(src)*alpha) / 255)
}
