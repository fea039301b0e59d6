package collection

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/menta2k/sticker-cut/internal/utils"
	"github.com/menta2k/sticker-cut/pkg/types"
)

// ErrUnknownSticker is returned for an id that is not in the collection
var ErrUnknownSticker = errors.New("collection: unknown sticker")

// FallbackName is used for stickers whose name sanitizes to nothing
const FallbackName = "sticker"

// Collection is the ordered list of stickers produced from one sheet.
// It is safe for concurrent use; readers get copies.
type Collection struct {
	mu       sync.RWMutex
	stickers []*types.Sticker
}

// New creates a collection holding stickers in the given order
func New(stickers ...*types.Sticker) *Collection {
	c := &Collection{}
	c.Add(stickers...)
	return c
}

// Add appends stickers after the existing ones
func (c *Collection) Add(stickers ...*types.Sticker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range stickers {
		cp := *s
		c.stickers = append(c.stickers, &cp)
	}
}

// Remove deletes a sticker, keeping the order of the rest
func (c *Collection) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSticker, id)
	}
	c.stickers = append(c.stickers[:i], c.stickers[i+1:]...)
	return nil
}

// Len returns the number of stickers
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stickers)
}

// Stickers returns copies of all stickers in order
func (c *Collection) Stickers() []*types.Sticker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*types.Sticker, len(c.stickers))
	for i, s := range c.stickers {
		cp := *s
		out[i] = &cp
	}
	return out
}

// Get returns a copy of one sticker
func (c *Collection) Get(id string) (*types.Sticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.index(id)
	if i < 0 {
		return nil, false
	}
	cp := *c.stickers[i]
	return &cp, true
}

// Rename sets one sticker's name. Order and every other sticker are untouched.
func (c *Collection) Rename(id, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSticker, id)
	}
	c.stickers[i].Name = name
	return nil
}

// Update copies the name and naming flag of s onto the sticker with the same id.
// It fits naming.Namer.NameAll's update callback.
func (c *Collection) Update(s *types.Sticker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(s.ID); i >= 0 {
		c.stickers[i].Name = s.Name
		c.stickers[i].Naming = s.Naming
	}
}

func (c *Collection) index(id string) int {
	for i, s := range c.stickers {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// ExportNames returns one unique, file-safe base name per sticker, in order.
// A name already emitted gets _1, _2, ... appended until it is unused.
func (c *Collection) ExportNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uniqueNames(c.stickers)
}

func uniqueNames(stickers []*types.Sticker) []string {
	used := make(map[string]struct{}, len(stickers))
	names := make([]string, 0, len(stickers))
	for _, s := range stickers {
		base := utils.SanitizeFilename(s.Name)
		if base == "" {
			base = FallbackName
		}
		name := base
		for n := 1; ; n++ {
			if _, ok := used[name]; !ok {
				break
			}
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// WriteZip writes every sticker into a zip archive as <name>.<ext>
func (c *Collection) WriteZip(w io.Writer, ext string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	zw := zip.NewWriter(w)
	for i, name := range uniqueNames(c.stickers) {
		f, err := zw.Create(name + "." + ext)
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		if _, err := f.Write(c.stickers[i].Data); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// WriteDir writes every sticker as a loose file and returns the paths in order.
// Existing files with the same name are overwritten.
func (c *Collection) WriteDir(dir, ext string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(c.stickers))
	for i, name := range uniqueNames(c.stickers) {
		path := filepath.Join(dir, name+"."+ext)
		if err := os.WriteFile(path, c.stickers[i].Data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
