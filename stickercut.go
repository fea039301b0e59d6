// Package stickercut cuts individual stickers out of a generated sticker sheet.
//
// A sheet is one image with several figures on a shared transparent or near-white
// background. Processing finds every 4-connected cluster of foreground pixels,
// merges clusters that sit within a few pixels of each other (so a speech bubble
// stays with its figure), and renders each merged region as its own transparent
// image with a white outline.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		stickercut "github.com/menta2k/sticker-cut"
//		"github.com/menta2k/sticker-cut/pkg/collection"
//	)
//
//	func main() {
//		cutter := stickercut.New()
//
//		img, err := cutter.LoadImage("sheet.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		result, err := cutter.Process(img, nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		stickers := collection.New(result.Stickers...)
//		cutter.NameAll(context.Background(), stickers)
//		if _, err := stickers.WriteDir("stickers", "png"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
//  1. Segment (pkg/segment): background classification, region detection and merging
//  2. Extract (pkg/extract): cut-out, background removal and outline synthesis
//  3. Sheet (pkg/sheet): the per-sheet run with progress reporting
//  4. Naming (pkg/naming): optional sticker names from a vision model
//  5. Collection (pkg/collection): rename and export with unique file names
//
// When nothing is detected the run ends in sheet.StageDoneEmpty and callers can
// fall back to ExtractManual with a rectangle in source pixel coordinates.
package stickercut

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/menta2k/sticker-cut/pkg/collection"
	"github.com/menta2k/sticker-cut/pkg/extract"
	"github.com/menta2k/sticker-cut/pkg/naming"
	"github.com/menta2k/sticker-cut/pkg/processing"
	"github.com/menta2k/sticker-cut/pkg/segment"
	"github.com/menta2k/sticker-cut/pkg/sheet"
	"github.com/menta2k/sticker-cut/pkg/types"
)

// Version of the sticker-cut library
const Version = "1.0.0"

// Cutter provides a high-level interface for sheet processing, manual crops and naming
type Cutter struct {
	processor *processing.Processor
	sheet     *sheet.Processor
	namer     *naming.Namer

	mu     sync.Mutex
	manual int
}

// New creates a new Cutter with default configuration and naming disabled
func New() *Cutter {
	return &Cutter{
		processor: processing.NewProcessor(),
		sheet:     sheet.NewProcessor(),
	}
}

// NewWithConfig creates a new Cutter with custom configuration.
// The classifier is shared by detection and extraction.
func NewWithConfig(classifier segment.Classifier, detectorConfig segment.DetectorConfig, mergeDistance int, extractConfig extract.Config) *Cutter {
	detector := segment.NewDetectorWithConfig(classifier, detectorConfig)
	extractor := extract.NewWithConfig(extractConfig, classifier)

	return &Cutter{
		processor: processing.NewProcessor(),
		sheet:     sheet.NewProcessorWithConfig(detector, extractor, mergeDistance),
	}
}

// SetNamer enables AI naming. A nil namer disables it.
func (c *Cutter) SetNamer(n *naming.Namer) {
	c.namer = n
}

// ImageInfo contains basic information about a sheet
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

// LoadImage loads an image from a file path or http(s) URL
func (c *Cutter) LoadImage(source string) (image.Image, error) {
	return c.processor.LoadImageSmart(source)
}

// LoadImageFromReader loads an image from an io.Reader
func (c *Cutter) LoadImageFromReader(reader io.Reader) (image.Image, error) {
	return c.processor.LoadImageFromReader(reader)
}

// GetImageInfo returns basic information about an image
func (c *Cutter) GetImageInfo(img image.Image) ImageInfo {
	b := img.Bounds()
	info := ImageInfo{Width: b.Dx(), Height: b.Dy(), Area: b.Dx() * b.Dy()}
	if info.Height > 0 {
		info.AspectRatio = float64(info.Width) / float64(info.Height)
	}
	return info
}

// ValidateImage checks that an image has pixels to scan
func (c *Cutter) ValidateImage(img image.Image) error {
	if img == nil {
		return errors.New("image is nil")
	}
	if b := img.Bounds(); b.Empty() {
		return fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}
	return nil
}

// Process runs detection, merging and extraction over a whole sheet.
// progress may be nil.
func (c *Cutter) Process(img image.Image, progress sheet.ProgressFunc) (*sheet.Result, error) {
	if err := c.ValidateImage(img); err != nil {
		return nil, err
	}
	return c.sheet.Process(img, progress)
}

// ExtractManual cuts a caller-chosen rectangle out of img. rect is in source pixel
// coordinates, inclusive on all edges. An empty name becomes manual_<n>, where n
// counts successful manual extractions on this Cutter.
func (c *Cutter) ExtractManual(img image.Image, rect types.Rect, name string) (*types.Sticker, error) {
	if err := c.ValidateImage(img); err != nil {
		return nil, err
	}

	// imaging.Clone rebases to (0,0); keep rect in the caller's coordinates
	origin := img.Bounds().Min
	local := types.Rect{
		MinX: rect.MinX - origin.X,
		MinY: rect.MinY - origin.Y,
		MaxX: rect.MaxX - origin.X,
		MaxY: rect.MaxY - origin.Y,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	auto := name == ""
	if auto {
		name = fmt.Sprintf("manual_%d", c.manual+1)
	}

	s, err := c.sheet.Extractor().Extract(imaging.Clone(img), local, name)
	if err != nil {
		return nil, err
	}
	s.OriginX += origin.X
	s.OriginY += origin.Y
	if auto {
		c.manual++
	}
	return s, nil
}

// NameAll asks the configured vision model to name every sticker in stickers.
// Stickers that fail keep their current name. Returns the number renamed,
// or 0 when naming is disabled.
func (c *Cutter) NameAll(ctx context.Context, stickers *collection.Collection) int {
	if c.namer == nil {
		return 0
	}
	return c.namer.NameAll(ctx, stickers.Stickers(), stickers.Update)
}

// DebugOverlay draws the raw and merged regions of a run over the sheet it came from
func (c *Cutter) DebugOverlay(img image.Image, result *sheet.Result) image.Image {
	// Result boxes are relative to the sheet's top-left corner
	return c.processor.CreateDebugOverlay(imaging.Clone(img), result.Raw, result.Merged)
}

// ProcessFile is a convenience function that loads a sheet, extracts and names its
// stickers, and writes them to outputDir. It returns the written paths.
func (c *Cutter) ProcessFile(ctx context.Context, inputPath, outputDir string) ([]string, error) {
	img, err := c.LoadImage(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	result, err := c.Process(img, nil)
	if err != nil {
		return nil, fmt.Errorf("processing failed: %w", err)
	}
	if result.Stage == sheet.StageDoneEmpty {
		return nil, nil
	}

	stickers := collection.New(result.Stickers...)
	c.NameAll(ctx, stickers)

	ext := processing.Extension(c.sheet.Extractor().Config().Output.Format)
	paths, err := stickers.WriteDir(outputDir, ext)
	if err != nil {
		return paths, fmt.Errorf("failed to save stickers: %w", err)
	}
	return paths, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
