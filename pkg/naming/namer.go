package naming

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/menta2k/sticker-cut/pkg/client"
	"github.com/menta2k/sticker-cut/pkg/processing"
	"github.com/menta2k/sticker-cut/pkg/types"
)

// NamePrompt asks the model for a file name for one sticker
const NamePrompt = `Look at this emoji sticker and return a short descriptive name of at most 3 words in English snake_case.
If the sticker contains text, capture its meaning or emotion.
Examples: sad_crying, thumbs_up, working_hard, happy_dance.
Return only the name, nothing else.`

// MaxNameLength is the longest name a model reply is cut down to
const MaxNameLength = 30

// Defaults for Config
const (
	DefaultSendSize    = 512
	DefaultConcurrency = 3
)

// ErrEmptyName is returned when nothing usable is left of the model reply
var ErrEmptyName = errors.New("naming: model returned no usable name")

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// Config holds configuration for the namer
type Config struct {
	Model string
	// SendSize bounds the longest side of the preview sent to the model.
	SendSize int
	// Concurrency is how many stickers NameAll names at once.
	Concurrency int
}

// Namer asks a vision model for sticker names
type Namer struct {
	client    client.VisionClient
	config    Config
	processor *processing.Processor
}

// NewNamer creates a namer backed by a vision client
func NewNamer(c client.VisionClient, config Config) *Namer {
	if config.SendSize <= 0 {
		config.SendSize = DefaultSendSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	return &Namer{
		client:    c,
		config:    config,
		processor: processing.NewProcessor(),
	}
}

// Name returns a sanitized name for one sticker. The sticker is not modified.
func (n *Namer) Name(ctx context.Context, s *types.Sticker) (string, error) {
	img, err := n.processor.DecodeImage(s.Data)
	if err != nil {
		return "", fmt.Errorf("failed to decode sticker %s: %w", s.ID, err)
	}

	imgB64, err := n.processor.PrepareImageForModel(img, "png", n.config.SendSize, 0)
	if err != nil {
		return "", fmt.Errorf("failed to prepare sticker %s: %w", s.ID, err)
	}

	reply, err := n.client.SimpleQuery(ctx, n.config.Model, NamePrompt, imgB64)
	if err != nil {
		return "", err
	}

	name := SanitizeName(reply)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

// NameAll names every sticker in place. Each sticker is flagged Naming while its
// request is outstanding; on failure it keeps the name it had. onUpdate, if set,
// sees every change and is never called concurrently. Returns the number renamed.
func (n *Namer) NameAll(ctx context.Context, stickers []*types.Sticker, onUpdate func(*types.Sticker)) int {
	var mu sync.Mutex
	notify := func(s *types.Sticker) {
		if onUpdate == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onUpdate(s)
	}

	for _, s := range stickers {
		s.Naming = true
		notify(s)
	}

	var (
		wg      sync.WaitGroup
		renamed int
		sem     = make(chan struct{}, n.config.Concurrency)
	)
	for _, s := range stickers {
		wg.Add(1)
		sem <- struct{}{}
		go func(s *types.Sticker) {
			defer wg.Done()
			defer func() { <-sem }()

			name, err := n.Name(ctx, s)

			mu.Lock()
			if err == nil {
				s.Name = name
				renamed++
			}
			s.Naming = false
			if onUpdate != nil {
				onUpdate(s)
			}
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	return renamed
}

// SanitizeName turns a model reply into a file-safe name: surrounding quotes and
// code fences are dropped, anything outside [a-zA-Z0-9_] becomes '_', the result is
// lowercased and cut to MaxNameLength.
func SanitizeName(reply string) string {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSpace(s)

	s = invalidNameChars.ReplaceAllString(s, "_")
	s = strings.ToLower(s)
	if len(s) > MaxNameLength {
		s = s[:MaxNameLength]
	}
	if strings.Trim(s, "_") == "" {
		return ""
	}
	return s
}
