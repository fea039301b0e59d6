package types

import "image"

// Rect is a bounding box in source-image pixel coordinates. All four edges are inclusive,
// so a single pixel at (3,4) is Rect{3, 4, 3, 4}.
type Rect struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// Width returns the number of pixel columns covered by the box
func (r Rect) Width() int {
	return r.MaxX - r.MinX + 1
}

// Height returns the number of pixel rows covered by the box
func (r Rect) Height() int {
	return r.MaxY - r.MinY + 1
}

// Valid reports whether the min edges do not exceed the max edges
func (r Rect) Valid() bool {
	return r.MinX <= r.MaxX && r.MinY <= r.MaxY
}

// Union returns the smallest box enclosing both r and o
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: min(r.MinX, o.MinX),
		MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX),
		MaxY: max(r.MaxY, o.MaxY),
	}
}

// Contains reports whether o lies entirely inside r
func (r Rect) Contains(o Rect) bool {
	return o.MinX >= r.MinX && o.MinY >= r.MinY && o.MaxX <= r.MaxX && o.MaxY <= r.MaxY
}

// Image converts the box to a half-open image.Rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.MinX, r.MinY, r.MaxX+1, r.MaxY+1)
}

// RectFromImage converts a half-open image.Rectangle to an inclusive box.
// The result is not Valid when the rectangle is empty.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{MinX: r.Min.X, MinY: r.Min.Y, MaxX: r.Max.X - 1, MaxY: r.Max.Y - 1}
}

// Sticker is one extracted, outlined sticker.
//
// Everything except Name and Naming is fixed at creation.
type Sticker struct {
	ID       string `json:"id"`
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	OriginX  int    `json:"origin_x"`
	OriginY  int    `json:"origin_y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Name     string `json:"name"`
	Naming   bool   `json:"naming"`
}

// OutputOptions controls how sticker images are encoded
type OutputOptions struct {
	Format   string
	Quality  int
	Lossless bool
}
