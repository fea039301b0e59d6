package segment

import (
	"image"

	"github.com/menta2k/sticker-cut/pkg/types"
)

// Default acceptance filter for raw clusters
const (
	DefaultMinPixels = 50
	DefaultMinSide   = 5
)

// DetectorConfig holds the cluster acceptance filter
type DetectorConfig struct {
	// A cluster is kept only if its pixel count exceeds MinPixels
	MinPixels int
	// and both its width and height exceed MinSide.
	MinSide int
}

// Detector finds 4-connected clusters of foreground pixels
type Detector struct {
	classifier Classifier
	config     DetectorConfig
}

// NewDetector creates a detector with the default classifier and filter
func NewDetector() *Detector {
	return &Detector{
		classifier: DefaultClassifier(),
		config: DetectorConfig{
			MinPixels: DefaultMinPixels,
			MinSide:   DefaultMinSide,
		},
	}
}

// NewDetectorWithConfig creates a detector with a custom classifier and filter
func NewDetectorWithConfig(classifier Classifier, config DetectorConfig) *Detector {
	return &Detector{classifier: classifier, config: config}
}

// Classifier returns the background classifier used by the detector
func (d *Detector) Classifier() Classifier {
	return d.classifier
}

// Detect scans buf once in raster order and returns the bounding box of every
// accepted foreground cluster, in discovery order. Coordinates are in buf's
// coordinate space.
//
// Each cluster is grown with an explicit index stack that is reused across
// clusters, and pixels are marked visited when pushed so nothing is queued twice.
func (d *Detector) Detect(buf *image.NRGBA) []types.Rect {
	bounds := buf.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	visited := make([]bool, width*height)
	stack := make([]int, 0, 1024)
	var rects []types.Rect

	isBg := func(x, y int) bool {
		i := y*buf.Stride + x*4
		p := buf.Pix[i : i+4 : i+4]
		return d.classifier.IsBackground(p[0], p[1], p[2], p[3])
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if visited[idx] {
				continue
			}
			visited[idx] = true
			if isBg(x, y) {
				continue
			}

			minX, maxX, minY, maxY := x, x, y, y
			count := 0

			stack = append(stack[:0], idx)
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				cx, cy := cur%width, cur/width
				if cx < minX {
					minX = cx
				}
				if cx > maxX {
					maxX = cx
				}
				if cy < minY {
					minY = cy
				}
				if cy > maxY {
					maxY = cy
				}
				count++

				// 4-connected neighbors
				if cx+1 < width {
					stack = d.push(stack, visited, cur+1, cx+1, cy, isBg)
				}
				if cx > 0 {
					stack = d.push(stack, visited, cur-1, cx-1, cy, isBg)
				}
				if cy+1 < height {
					stack = d.push(stack, visited, cur+width, cx, cy+1, isBg)
				}
				if cy > 0 {
					stack = d.push(stack, visited, cur-width, cx, cy-1, isBg)
				}
			}

			r := types.Rect{
				MinX: minX + bounds.Min.X,
				MinY: minY + bounds.Min.Y,
				MaxX: maxX + bounds.Min.X,
				MaxY: maxY + bounds.Min.Y,
			}
			if d.accept(r, count) {
				rects = append(rects, r)
			}
		}
	}

	return rects
}

// push marks an unvisited neighbor and queues it when it is foreground.
// Background neighbors are left unvisited so the raster loop still classifies them once.
func (d *Detector) push(stack []int, visited []bool, idx, x, y int, isBg func(x, y int) bool) []int {
	if visited[idx] || isBg(x, y) {
		return stack
	}
	visited[idx] = true
	return append(stack, idx)
}

func (d *Detector) accept(r types.Rect, count int) bool {
	return count > d.config.MinPixels && r.Width() > d.config.MinSide && r.Height() > d.config.MinSide
}
