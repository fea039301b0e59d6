package extract

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/menta2k/sticker-cut/pkg/processing"
	"github.com/menta2k/sticker-cut/pkg/segment"
	"github.com/menta2k/sticker-cut/pkg/types"
)

// ErrDegenerateRegion is returned when a region has no area left after clamping to the image
var ErrDegenerateRegion = errors.New("extract: region has no area inside the image")

// Default sticker geometry
const (
	DefaultPadding     = 2
	DefaultStrokeWidth = 6
	DefaultStrokeSteps = 24
)

// Config holds configuration for sticker extraction
type Config struct {
	// Padding is added around the region before cropping so anti-aliased edges survive.
	Padding int
	// StrokeWidth is the outline thickness; the output grows by twice this on each axis.
	StrokeWidth int
	// StrokeSteps is the number of angular offsets composited to build the outline.
	StrokeSteps int
	StrokeColor color.NRGBA
	Output      types.OutputOptions
}

// DefaultConfig returns the white 6px outline configuration
func DefaultConfig() Config {
	return Config{
		Padding:     DefaultPadding,
		StrokeWidth: DefaultStrokeWidth,
		StrokeSteps: DefaultStrokeSteps,
		StrokeColor: color.NRGBA{255, 255, 255, 255},
		Output:      types.OutputOptions{Format: "png"},
	}
}

// ParseStrokeColor parses a "#RRGGBB" outline color
func ParseStrokeColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid stroke color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{r, g, b, 255}, nil
}

// Extractor cuts one region out of a sheet, strips its background and outlines it
type Extractor struct {
	config     Config
	classifier segment.Classifier
	processor  *processing.Processor
}

// New creates an extractor with the default configuration and classifier
func New() *Extractor {
	return NewWithConfig(DefaultConfig(), segment.DefaultClassifier())
}

// NewWithConfig creates an extractor. The classifier must be the one the detector uses.
func NewWithConfig(config Config, classifier segment.Classifier) *Extractor {
	return &Extractor{
		config:     config,
		classifier: classifier,
		processor:  processing.NewProcessor(),
	}
}

// Config returns the extractor configuration
func (e *Extractor) Config() Config {
	return e.config
}

// Extract renders the sticker for rect and encodes it. The returned sticker has a fresh ID.
// ErrDegenerateRegion means no sticker was produced and callers should skip the region.
func (e *Extractor) Extract(src *image.NRGBA, rect types.Rect, name string) (*types.Sticker, error) {
	img, region, err := e.Render(src, rect)
	if err != nil {
		return nil, err
	}

	data, mimeType, err := e.processor.Encode(img, e.config.Output)
	if err != nil {
		return nil, err
	}

	return &types.Sticker{
		ID:       uuid.NewString(),
		Data:     data,
		MimeType: mimeType,
		OriginX:  region.Min.X,
		OriginY:  region.Min.Y,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Name:     name,
	}, nil
}

// Render produces the outlined sticker image for rect without encoding it.
// It also returns the padded, clamped source region the sticker was cut from.
// src is only read.
func (e *Extractor) Render(src *image.NRGBA, rect types.Rect) (*image.NRGBA, image.Rectangle, error) {
	region, err := e.Region(src.Bounds(), rect)
	if err != nil {
		return nil, image.Rectangle{}, err
	}

	cutout := e.cutout(src, region)
	silhouette := e.silhouette(cutout)
	return e.outline(cutout, silhouette), region, nil
}

// Region returns rect grown by the padding and clamped to bounds
func (e *Extractor) Region(bounds image.Rectangle, rect types.Rect) (image.Rectangle, error) {
	if !rect.Valid() {
		return image.Rectangle{}, ErrDegenerateRegion
	}
	region := rect.Image().Inset(-e.config.Padding).Intersect(bounds)
	if region.Dx() <= 0 || region.Dy() <= 0 {
		return image.Rectangle{}, ErrDegenerateRegion
	}
	return region, nil
}

// cutout copies the region and makes every background pixel fully transparent
func (e *Extractor) cutout(src *image.NRGBA, region image.Rectangle) *image.NRGBA {
	cut := imaging.Crop(src, region)
	for i := 0; i < len(cut.Pix); i += 4 {
		p := cut.Pix[i : i+4 : i+4]
		if e.classifier.IsBackground(p[0], p[1], p[2], p[3]) {
			p[3] = 0
		}
	}
	return cut
}

// silhouette keeps the cutout's alpha and replaces every color with the stroke color
func (e *Extractor) silhouette(cutout *image.NRGBA) *image.NRGBA {
	sil := image.NewNRGBA(cutout.Bounds())
	c := e.config.StrokeColor
	for i := 0; i < len(cutout.Pix); i += 4 {
		a := cutout.Pix[i+3]
		if a == 0 {
			continue
		}
		sil.Pix[i+0] = c.R
		sil.Pix[i+1] = c.G
		sil.Pix[i+2] = c.B
		sil.Pix[i+3] = uint8(uint16(a) * uint16(c.A) / 255)
	}
	return sil
}

// outline stamps the silhouette at StrokeSteps points on a circle of radius StrokeWidth,
// which approximates a dilation by the stroke width. The silhouette is then stamped once
// more at the center to close interior gaps, and the color cutout goes on top.
func (e *Extractor) outline(cutout, silhouette *image.NRGBA) *image.NRGBA {
	s := max(e.config.StrokeWidth, 0)
	w, h := cutout.Bounds().Dx(), cutout.Bounds().Dy()

	halo := image.NewRGBA(image.Rect(0, 0, w+2*s, h+2*s))
	steps := e.config.StrokeSteps
	if s > 0 && steps > 0 {
		for i := 0; i < steps; i++ {
			angle := float64(i) / float64(steps) * 2 * math.Pi
			ox := float64(s) + math.Cos(angle)*float64(s)
			oy := float64(s) + math.Sin(angle)*float64(s)
			m := f64.Aff3{1, 0, ox, 0, 1, oy}
			draw.ApproxBiLinear.Transform(halo, m, silhouette, silhouette.Bounds(), draw.Over, nil)
		}
	}

	center := image.Rect(s, s, s+w, s+h)
	draw.Draw(halo, center, silhouette, image.Point{}, draw.Over)
	draw.Draw(halo, center, cutout, image.Point{}, draw.Over)
	return imaging.Clone(halo)
}
