package segment

import "github.com/menta2k/sticker-cut/pkg/types"

// DefaultMergeDistance is the gap in pixels below which two regions are treated as one sticker
const DefaultMergeDistance = 15

// Gap returns the horizontal and vertical separation between two boxes.
// Boxes that overlap along an axis have a gap of zero on that axis.
func Gap(a, b types.Rect) (int, int) {
	dx := max(0, a.MinX-b.MaxX, b.MinX-a.MaxX)
	dy := max(0, a.MinY-b.MaxY, b.MinY-a.MaxY)
	return dx, dy
}

// Close reports whether two boxes are within distance of each other on both axes
func Close(a, b types.Rect, distance int) bool {
	dx, dy := Gap(a, b)
	return dx < distance && dy < distance
}

// Merge unions boxes that are close to each other, transitively, until a full
// pass makes no change. The input slice is not modified. Surviving boxes keep
// the position of their earliest member.
//
// A body and a speech bubble drawn above it overlap horizontally and sit a few
// pixels apart vertically, so they end up as one box.
func Merge(rects []types.Rect, distance int) []types.Rect {
	merged := make([]types.Rect, len(rects))
	copy(merged, rects)

	for changed := true; changed; {
		changed = false
		next := make([]types.Rect, 0, len(merged))
		visited := make([]bool, len(merged))

		for i := range merged {
			if visited[i] {
				continue
			}
			visited[i] = true
			current := merged[i]

			for j := i + 1; j < len(merged); j++ {
				if visited[j] {
					continue
				}
				if Close(current, merged[j], distance) {
					current = current.Union(merged[j])
					visited[j] = true
					changed = true
				}
			}
			next = append(next, current)
		}
		merged = next
	}

	return merged
}
