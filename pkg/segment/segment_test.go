package segment

import (
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/menta2k/sticker-cut/pkg/types"
)

// createTestSheet creates a sheet filled with a single color
func createTestSheet(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// fillRect paints a w x h block with its top-left corner at (x, y)
func fillRect(img *image.NRGBA, x, y, w, h int, c color.NRGBA) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			img.SetNRGBA(xx, yy, c)
		}
	}
}

var (
	white       = color.NRGBA{255, 255, 255, 255}
	black       = color.NRGBA{0, 0, 0, 255}
	transparent = color.NRGBA{0, 0, 0, 0}
)

func TestIsBackground(t *testing.T) {
	tests := []struct {
		name       string
		r, g, b, a uint8
		want       bool
	}{
		{"transparent", 0, 0, 0, 0, true},
		{"almost transparent", 10, 10, 10, 19, true},
		{"alpha at threshold", 10, 10, 10, 20, false},
		{"white", 255, 255, 255, 255, true},
		{"near white", 241, 241, 241, 255, true},
		{"white threshold is exclusive", 240, 255, 255, 255, false},
		{"one dark channel", 255, 255, 100, 255, false},
		{"black", 0, 0, 0, 255, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBackground(tt.r, tt.g, tt.b, tt.a); got != tt.want {
				t.Errorf("IsBackground(%d,%d,%d,%d) = %v, want %v", tt.r, tt.g, tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestDetect_EmptySheets(t *testing.T) {
	detector := NewDetector()

	for name, c := range map[string]color.NRGBA{"white": white, "transparent": transparent, "near white": {245, 250, 248, 255}} {
		t.Run(name, func(t *testing.T) {
			rects := detector.Detect(createTestSheet(120, 80, c))
			if len(rects) != 0 {
				t.Errorf("Expected no regions, got %d", len(rects))
			}
		})
	}
}

func TestDetect_SingleBlob(t *testing.T) {
	img := createTestSheet(100, 100, white)
	fillRect(img, 20, 30, 12, 9, black)

	rects := NewDetector().Detect(img)
	if len(rects) != 1 {
		t.Fatalf("Expected 1 region, got %d", len(rects))
	}

	want := types.Rect{MinX: 20, MinY: 30, MaxX: 31, MaxY: 38}
	if rects[0] != want {
		t.Errorf("Expected %+v, got %+v", want, rects[0])
	}
}

func TestDetect_IrregularBlob(t *testing.T) {
	img := createTestSheet(100, 100, white)
	// An L shape: the flood fill has to turn the corner to find the full extent
	fillRect(img, 10, 10, 4, 30, black)
	fillRect(img, 10, 36, 30, 4, black)

	rects := NewDetector().Detect(img)
	if len(rects) != 1 {
		t.Fatalf("Expected 1 region, got %d", len(rects))
	}

	want := types.Rect{MinX: 10, MinY: 10, MaxX: 39, MaxY: 39}
	if rects[0] != want {
		t.Errorf("Expected %+v, got %+v", want, rects[0])
	}
}

func TestDetect_DiagonalPixelsAreSeparate(t *testing.T) {
	img := createTestSheet(60, 60, white)
	fillRect(img, 0, 0, 10, 10, black)
	fillRect(img, 10, 10, 10, 10, black)

	rects := NewDetector().Detect(img)
	if len(rects) != 2 {
		t.Fatalf("Expected 2 regions for corner-touching squares, got %d", len(rects))
	}
}

func TestDetect_AcceptanceFilter(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want int
	}{
		{"speck", 3, 3, 0},
		{"thin line", 40, 2, 0},
		{"tall line", 5, 40, 0},
		{"too few pixels", 7, 7, 0},
		{"just enough", 8, 8, 1},
		{"large", 30, 30, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createTestSheet(80, 80, white)
			fillRect(img, 10, 10, tt.w, tt.h, black)
			if got := len(NewDetector().Detect(img)); got != tt.want {
				t.Errorf("Expected %d regions, got %d", tt.want, got)
			}
		})
	}
}

func TestDetect_OffsetBounds(t *testing.T) {
	img := createTestSheet(100, 100, white)
	fillRect(img, 50, 60, 10, 10, black)

	sub := img.SubImage(image.Rect(40, 40, 100, 100)).(*image.NRGBA)
	rects := NewDetector().Detect(sub)
	if len(rects) != 1 {
		t.Fatalf("Expected 1 region, got %d", len(rects))
	}
	want := types.Rect{MinX: 50, MinY: 60, MaxX: 59, MaxY: 69}
	if rects[0] != want {
		t.Errorf("Expected %+v in source coordinates, got %+v", want, rects[0])
	}
}

func TestDetect_CustomClassifier(t *testing.T) {
	img := createTestSheet(50, 50, color.NRGBA{230, 230, 230, 255})
	fillRect(img, 5, 5, 20, 20, black)

	if got := len(NewDetector().Detect(img)); got != 1 {
		t.Errorf("Default classifier: expected the light gray sheet to be one region, got %d", got)
	}

	loose := NewDetectorWithConfig(Classifier{AlphaThreshold: 20, WhiteThreshold: 220}, DetectorConfig{MinPixels: 50, MinSide: 5})
	rects := loose.Detect(img)
	if len(rects) != 1 || rects[0] != (types.Rect{MinX: 5, MinY: 5, MaxX: 24, MaxY: 24}) {
		t.Errorf("Loose classifier: expected only the black square, got %+v", rects)
	}
}

func TestGap(t *testing.T) {
	a := types.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}

	tests := []struct {
		name   string
		b      types.Rect
		dx, dy int
	}{
		{"overlapping", types.Rect{MinX: 5, MinY: 5, MaxX: 20, MaxY: 20}, 0, 0},
		{"right", types.Rect{MinX: 30, MinY: 0, MaxX: 40, MaxY: 10}, 20, 0},
		{"left", types.Rect{MinX: -30, MinY: 2, MaxX: -5, MaxY: 8}, 5, 0},
		{"below", types.Rect{MinX: 0, MinY: 18, MaxX: 10, MaxY: 30}, 0, 8},
		{"diagonal", types.Rect{MinX: 20, MinY: 25, MaxX: 30, MaxY: 35}, 10, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dy := Gap(a, tt.b)
			if dx != tt.dx || dy != tt.dy {
				t.Errorf("Gap = (%d,%d), want (%d,%d)", dx, dy, tt.dx, tt.dy)
			}
			rdx, rdy := Gap(tt.b, a)
			if rdx != dx || rdy != dy {
				t.Errorf("Gap is not symmetric: (%d,%d) vs (%d,%d)", dx, dy, rdx, rdy)
			}
		})
	}
}

func TestMerge_FarApart(t *testing.T) {
	rects := []types.Rect{
		{MinX: 10, MinY: 10, MaxX: 39, MaxY: 39},
		{MinX: 160, MinY: 160, MaxX: 189, MaxY: 189},
	}

	merged := Merge(rects, DefaultMergeDistance)
	if !reflect.DeepEqual(merged, rects) {
		t.Errorf("Expected boxes unchanged, got %+v", merged)
	}
}

func TestMerge_Overlapping(t *testing.T) {
	rects := []types.Rect{
		{MinX: 10, MinY: 10, MaxX: 39, MaxY: 39},
		{MinX: 20, MinY: 20, MaxX: 49, MaxY: 49},
	}

	merged := Merge(rects, DefaultMergeDistance)
	want := []types.Rect{{MinX: 10, MinY: 10, MaxX: 49, MaxY: 49}}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("Expected %+v, got %+v", want, merged)
	}
}

func TestMerge_SpeechBubbleAboveBody(t *testing.T) {
	body := types.Rect{MinX: 50, MinY: 60, MaxX: 120, MaxY: 150}
	bubble := types.Rect{MinX: 90, MinY: 20, MaxX: 160, MaxY: 50}

	merged := Merge([]types.Rect{body, bubble}, DefaultMergeDistance)
	if len(merged) != 1 {
		t.Fatalf("Expected bubble and body to merge, got %d boxes", len(merged))
	}
	if merged[0] != body.Union(bubble) {
		t.Errorf("Expected envelope %+v, got %+v", body.Union(bubble), merged[0])
	}
}

func TestMerge_Transitive(t *testing.T) {
	// The first box is close to the third and the third is close to the second,
	// but the first and second are far apart. The second box only joins on the
	// second pass once the first union has grown.
	rects := []types.Rect{
		{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		{MinX: 60, MinY: 0, MaxX: 70, MaxY: 10},
		{MinX: 20, MinY: 0, MaxX: 50, MaxY: 10},
	}

	merged := Merge(rects, DefaultMergeDistance)
	want := []types.Rect{{MinX: 0, MinY: 0, MaxX: 70, MaxY: 10}}
	if !reflect.DeepEqual(merged, want) {
		t.Errorf("Expected %+v, got %+v", want, merged)
	}
}

func TestMerge_ThresholdIsExclusive(t *testing.T) {
	a := types.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	atThreshold := types.Rect{MinX: 25, MinY: 0, MaxX: 35, MaxY: 10}
	belowThreshold := types.Rect{MinX: 24, MinY: 0, MaxX: 35, MaxY: 10}

	if got := Merge([]types.Rect{a, atThreshold}, 15); len(got) != 2 {
		t.Errorf("Gap of exactly 15 should not merge, got %d boxes", len(got))
	}
	if got := Merge([]types.Rect{a, belowThreshold}, 15); len(got) != 1 {
		t.Errorf("Gap of 14 should merge, got %d boxes", len(got))
	}
}

func TestMerge_Idempotent(t *testing.T) {
	rects := []types.Rect{
		{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		{MinX: 12, MinY: 30, MaxX: 20, MaxY: 40},
		{MinX: 100, MinY: 100, MaxX: 140, MaxY: 130},
		{MinX: 150, MinY: 90, MaxX: 170, MaxY: 95},
		{MinX: 300, MinY: 10, MaxX: 320, MaxY: 20},
	}

	once := Merge(rects, DefaultMergeDistance)
	twice := Merge(once, DefaultMergeDistance)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Merge is not idempotent: %+v then %+v", once, twice)
	}
}

func TestMerge_NeverShrinks(t *testing.T) {
	rects := []types.Rect{
		{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		{MinX: 5, MinY: 20, MaxX: 15, MaxY: 30},
		{MinX: 80, MinY: 80, MaxX: 90, MaxY: 90},
		{MinX: 95, MinY: 70, MaxX: 99, MaxY: 99},
	}

	merged := Merge(rects, DefaultMergeDistance)
	for _, in := range rects {
		found := false
		for _, out := range merged {
			if out.Contains(in) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Input box %+v is not contained in any output box %+v", in, merged)
		}
	}
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	rects := []types.Rect{
		{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15},
	}
	orig := append([]types.Rect(nil), rects...)

	Merge(rects, DefaultMergeDistance)
	if !reflect.DeepEqual(rects, orig) {
		t.Errorf("Input was modified: %+v", rects)
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := Merge(nil, DefaultMergeDistance); len(got) != 0 {
		t.Errorf("Expected empty result, got %+v", got)
	}
}

func BenchmarkDetect(b *testing.B) {
	img := createTestSheet(1024, 1024, white)
	for i := 0; i < 16; i++ {
		fillRect(img, 20+(i%4)*250, 20+(i/4)*250, 180, 180, black)
	}
	detector := NewDetector()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector.Detect(img)
	}
}
