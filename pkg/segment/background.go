package segment

// Default background thresholds on a 0-255 scale
const (
	DefaultAlphaThreshold uint8 = 20
	DefaultWhiteThreshold uint8 = 240
)

// Classifier decides whether a pixel belongs to the sheet background.
//
// A pixel is background when its alpha is below AlphaThreshold (effectively transparent)
// or when all three color channels are above WhiteThreshold (near-white paper).
// The detector and the extractor must share one Classifier so masks agree.
type Classifier struct {
	AlphaThreshold uint8
	WhiteThreshold uint8
}

// DefaultClassifier returns the classifier used for generated sticker sheets
func DefaultClassifier() Classifier {
	return Classifier{
		AlphaThreshold: DefaultAlphaThreshold,
		WhiteThreshold: DefaultWhiteThreshold,
	}
}

// IsBackground reports whether a non-premultiplied RGBA sample is background
func (c Classifier) IsBackground(r, g, b, a uint8) bool {
	if a < c.AlphaThreshold {
		return true
	}
	return r > c.WhiteThreshold && g > c.WhiteThreshold && b > c.WhiteThreshold
}

// IsBackground applies the default classifier
func IsBackground(r, g, b, a uint8) bool {
	return DefaultClassifier().IsBackground(r, g, b, a)
}
