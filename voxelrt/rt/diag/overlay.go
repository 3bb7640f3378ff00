package diag

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Overlay draws stat lines onto an image, the same text the render overlay
// shows on screen.
type Overlay struct {
	Face       font.Face
	Padding    int
	Foreground color.Color
	Background color.Color
}

// NewOverlay uses the built in 7x13 face.
func NewOverlay() *Overlay {
	return &Overlay{
		Face:       basicfont.Face7x13,
		Padding:    4,
		Foreground: color.RGBA{R: 230, G: 230, B: 230, A: 255},
		Background: color.RGBA{A: 200},
	}
}

// NewOverlayFromFont loads a TrueType or OpenType font file.
func NewOverlayFromFont(fontPath string, size float64) (*Overlay, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}
	o := NewOverlay()
	o.Face = face
	return o, nil
}

func (o *Overlay) lineHeight() int {
	return o.Face.Metrics().Height.Ceil()
}

// Measure returns the pixel size of text, which may span several lines.
func (o *Overlay) Measure(text string) (int, int) {
	lines := strings.Split(text, "\n")
	maxW := 0
	for _, l := range lines {
		if w := font.MeasureString(o.Face, l).Ceil(); w > maxW {
			maxW = w
		}
	}
	return maxW, o.lineHeight() * len(lines)
}

// Render draws text on a padded background sized to fit it.
func (o *Overlay) Render(text string) *image.RGBA {
	w, h := o.Measure(text)
	img := image.NewRGBA(image.Rect(0, 0, w+2*o.Padding, h+2*o.Padding))
	draw.Draw(img, img.Bounds(), image.NewUniform(o.Background), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(o.Foreground),
		Face: o.Face,
	}
	ascent := o.Face.Metrics().Ascent.Ceil()
	for i, l := range strings.Split(text, "\n") {
		d.Dot = fixed.P(o.Padding, o.Padding+ascent+i*o.lineHeight())
		d.DrawString(l)
	}
	return img
}

func (o *Overlay) WritePNG(path, text string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, o.Render(text)); err != nil {
		f.Close()
		return fmt.Errorf("encode overlay: %w", err)
	}
	return f.Close()
}
