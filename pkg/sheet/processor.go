package sheet

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/sticker-cut/pkg/extract"
	"github.com/menta2k/sticker-cut/pkg/segment"
	"github.com/menta2k/sticker-cut/pkg/types"
)

// Stage is a step of a sheet-processing run
type Stage int

const (
	StageIdle Stage = iota
	StageScanning
	StageMerging
	StageExtracting
	StageDone
	// StageDoneEmpty means no region survived merging; callers should offer a manual crop.
	StageDoneEmpty
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageScanning:
		return "scanning"
	case StageMerging:
		return "merging"
	case StageExtracting:
		return "extracting"
	case StageDone:
		return "done"
	case StageDoneEmpty:
		return "done-empty"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ProgressFunc receives every stage transition with a human-readable message
type ProgressFunc func(stage Stage, message string)

// Result is the outcome of one run
type Result struct {
	Stage    Stage
	Stickers []*types.Sticker
	// Raw holds the detector output before merging.
	Raw    []types.Rect
	Merged []types.Rect
	// Skipped counts merged boxes that produced no sticker.
	Skipped int
}

// Processor runs detection, merging and extraction over a whole sheet
type Processor struct {
	detector      *segment.Detector
	extractor     *extract.Extractor
	mergeDistance int
}

// NewProcessor creates a processor with default segmentation and extraction settings
func NewProcessor() *Processor {
	return NewProcessorWithConfig(segment.NewDetector(), extract.New(), segment.DefaultMergeDistance)
}

// NewProcessorWithConfig creates a processor from explicit components.
// The detector and extractor should share one classifier.
func NewProcessorWithConfig(detector *segment.Detector, extractor *extract.Extractor, mergeDistance int) *Processor {
	return &Processor{
		detector:      detector,
		extractor:     extractor,
		mergeDistance: mergeDistance,
	}
}

// Extractor returns the extractor used for each merged box
func (p *Processor) Extractor() *extract.Extractor {
	return p.extractor
}

// Process segments img and extracts one sticker per merged region, in region order.
// Stickers are named sticker_1, sticker_2, ... and the counter only advances when a
// sticker is actually produced. img is copied first and never modified, and all
// coordinates in the result are relative to img.Bounds().Min.
// progress may be nil.
func (p *Processor) Process(img image.Image, progress ProgressFunc) (*Result, error) {
	if img == nil {
		return nil, errors.New("sheet: nil image")
	}
	if progress == nil {
		progress = func(Stage, string) {}
	}

	buf := imaging.Clone(img)
	b := buf.Bounds()
	result := &Result{Stage: StageIdle}

	result.Stage = StageScanning
	progress(StageScanning, fmt.Sprintf("Scanning %dx%d image for stickers...", b.Dx(), b.Dy()))
	result.Raw = p.detector.Detect(buf)

	result.Stage = StageMerging
	progress(StageMerging, fmt.Sprintf("Found %d regions, merging nearby parts...", len(result.Raw)))
	result.Merged = segment.Merge(result.Raw, p.mergeDistance)

	if len(result.Merged) == 0 {
		result.Stage = StageDoneEmpty
		progress(StageDoneEmpty, "No stickers found, try cropping manually")
		return result, nil
	}

	result.Stage = StageExtracting
	progress(StageExtracting, fmt.Sprintf("Extracting %d stickers...", len(result.Merged)))

	result.Stickers = make([]*types.Sticker, 0, len(result.Merged))
	for _, rect := range result.Merged {
		name := fmt.Sprintf("sticker_%d", len(result.Stickers)+1)
		s, err := p.extractor.Extract(buf, rect, name)
		if errors.Is(err, extract.ErrDegenerateRegion) {
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", name, err)
		}
		result.Stickers = append(result.Stickers, s)
	}

	if len(result.Stickers) == 0 {
		result.Stage = StageDoneEmpty
		progress(StageDoneEmpty, "No stickers found, try cropping manually")
		return result, nil
	}

	result.Stage = StageDone
	progress(StageDone, fmt.Sprintf("Extracted %d stickers", len(result.Stickers)))
	return result, nil
}
