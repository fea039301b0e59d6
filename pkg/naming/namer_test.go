package naming

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/menta2k/sticker-cut/pkg/types"
)

// fakeClient answers with a fixed reply keyed by the preview width
type fakeClient struct {
	mu      sync.Mutex
	replies map[string]string
	fail    map[string]bool
	calls   int
	prompts []string
	images  []string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, imgB64)

	// The preview size identifies the sticker in these tests
	data, _ := base64.StdEncoding.DecodeString(imgB64)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	key := string(rune('a' + cfg.Width - 1))
	if f.fail[key] {
		return "", errors.New("model unavailable")
	}
	return f.replies[key], nil
}

// createSticker builds a sticker whose PNG is width pixels wide
func createSticker(t *testing.T, id string, width int) *types.Sticker {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return &types.Sticker{ID: id, Data: buf.Bytes(), MimeType: "image/png", Name: "sticker_" + id}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"happy_dance", "happy_dance"},
		{"  Thumbs Up\n", "thumbs_up"},
		{`"sad_crying"`, "sad_crying"},
		{"```\nworking_hard\n```", "working_hard"},
		{"café-time!", "caf__time_"},
		{strings.Repeat("ab", 20), strings.Repeat("ab", 15)},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			if got := SanitizeName(tt.reply); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	fc := &fakeClient{replies: map[string]string{"c": "Big Smile"}}
	n := NewNamer(fc, Config{Model: "llava"})
	s := createSticker(t, "1", 3)

	name, err := n.Name(context.Background(), s)
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "big_smile" {
		t.Errorf("Expected big_smile, got %q", name)
	}
	if s.Name != "sticker_1" {
		t.Error("Name modified the sticker")
	}
	if fc.prompts[0] != NamePrompt {
		t.Error("Expected the naming prompt to be sent")
	}
}

func TestName_Errors(t *testing.T) {
	fc := &fakeClient{replies: map[string]string{"b": "???"}, fail: map[string]bool{"c": true}}
	n := NewNamer(fc, Config{})

	if _, err := n.Name(context.Background(), createSticker(t, "1", 2)); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
	if _, err := n.Name(context.Background(), createSticker(t, "2", 3)); err == nil {
		t.Error("Expected client error")
	}
	if _, err := n.Name(context.Background(), &types.Sticker{ID: "x", Data: []byte("junk")}); err == nil {
		t.Error("Expected decode error")
	}
	if fc.calls != 2 {
		t.Errorf("Expected 2 model calls, got %d", fc.calls)
	}
}

func TestName_PreviewIsBounded(t *testing.T) {
	fc := &fakeClient{replies: map[string]string{}}
	n := NewNamer(fc, Config{SendSize: 2})
	s := createSticker(t, "1", 5)

	// 5x4 is fitted into 2x2, which is 2 wide and keyed as "b"
	fc.replies["b"] = "tiny"
	name, err := n.Name(context.Background(), s)
	if err != nil {
		t.Fatalf("Name failed: %v", err)
	}
	if name != "tiny" {
		t.Errorf("Expected tiny, got %q", name)
	}
}

func TestNameAll(t *testing.T) {
	fc := &fakeClient{
		replies: map[string]string{"a": "happy", "b": "sad", "d": "angry"},
		fail:    map[string]bool{"c": true},
	}
	n := NewNamer(fc, Config{Concurrency: 2})

	stickers := []*types.Sticker{
		createSticker(t, "1", 1),
		createSticker(t, "2", 2),
		createSticker(t, "3", 3),
		createSticker(t, "4", 4),
	}

	var updates []types.Sticker
	renamed := n.NameAll(context.Background(), stickers, func(s *types.Sticker) {
		updates = append(updates, *s)
	})

	if renamed != 3 {
		t.Errorf("Expected 3 renamed, got %d", renamed)
	}

	want := []string{"happy", "sad", "sticker_3", "angry"}
	for i, s := range stickers {
		if s.Name != want[i] {
			t.Errorf("Sticker %d: expected %q, got %q", i, want[i], s.Name)
		}
		if s.Naming {
			t.Errorf("Sticker %d: Naming flag left set", i)
		}
	}

	// Every sticker is flagged first, then reported once when done
	if len(updates) != 8 {
		t.Fatalf("Expected 8 updates, got %d", len(updates))
	}
	for i := 0; i < 4; i++ {
		if !updates[i].Naming {
			t.Errorf("Update %d: expected Naming=true", i)
		}
	}
	for _, u := range updates[4:] {
		if u.Naming {
			t.Errorf("Final update for %s still has Naming=true", u.ID)
		}
	}
}

func TestNameAll_Empty(t *testing.T) {
	n := NewNamer(&fakeClient{}, Config{})
	if got := n.NameAll(context.Background(), nil, nil); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
}
