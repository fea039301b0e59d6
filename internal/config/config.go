package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/sticker-cut/pkg/extract"
	"github.com/menta2k/sticker-cut/pkg/segment"
)

// Config holds the application configuration
type Config struct {
	Segmentation SegmentationConfig `json:"segmentation"`
	Extraction   ExtractionConfig   `json:"extraction"`
	Naming       NamingConfig       `json:"naming"`
	Output       OutputConfig       `json:"output"`
}

// SegmentationConfig holds configuration for region detection and merging
type SegmentationConfig struct {
	AlphaThreshold int `json:"alpha_threshold"`
	WhiteThreshold int `json:"white_threshold"`
	MinPixels      int `json:"min_pixels"`
	MinSide        int `json:"min_side"`
	MergeDistance  int `json:"merge_distance"`
}

// ExtractionConfig holds configuration for cutting out and outlining stickers
type ExtractionConfig struct {
	Padding     int    `json:"padding"`
	StrokeWidth int    `json:"stroke_width"`
	StrokeSteps int    `json:"stroke_steps"`
	StrokeColor string `json:"stroke_color"`
}

// NamingConfig holds configuration for the vision model that names stickers.
// An empty backend disables naming.
type NamingConfig struct {
	Backend        string `json:"backend"`
	URL            string `json:"url"`
	Model          string `json:"model"`
	SendSize       int    `json:"send_size"`
	Concurrency    int    `json:"concurrency"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format   string `json:"format"`
	Quality  int    `json:"quality"`
	Lossless bool   `json:"lossless"`
	Dir      string `json:"dir"`
	// Archive is a zip file name inside Dir; empty writes loose files.
	Archive string `json:"archive"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Segmentation: SegmentationConfig{
			AlphaThreshold: int(segment.DefaultAlphaThreshold),
			WhiteThreshold: int(segment.DefaultWhiteThreshold),
			MinPixels:      segment.DefaultMinPixels,
			MinSide:        segment.DefaultMinSide,
			MergeDistance:  segment.DefaultMergeDistance,
		},
		Extraction: ExtractionConfig{
			Padding:     extract.DefaultPadding,
			StrokeWidth: extract.DefaultStrokeWidth,
			StrokeSteps: extract.DefaultStrokeSteps,
			StrokeColor: "#FFFFFF",
		},
		Naming: NamingConfig{
			Backend:        "",
			URL:            "http://localhost:11434",
			Model:          "llava",
			SendSize:       512,
			Concurrency:    3,
			TimeoutSeconds: 60,
		},
		Output: OutputConfig{
			Format:   "png",
			Quality:  90,
			Lossless: true,
			Dir:      "./stickers",
			Archive:  "",
		},
	}
}

// LoadFromFile loads configuration from a JSON file.
// Fields missing from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	s := c.Segmentation
	if s.AlphaThreshold < 0 || s.AlphaThreshold > 255 {
		return fmt.Errorf("segmentation.alpha_threshold must be between 0 and 255")
	}
	if s.WhiteThreshold < 0 || s.WhiteThreshold > 255 {
		return fmt.Errorf("segmentation.white_threshold must be between 0 and 255")
	}
	if s.MinPixels < 0 || s.MinSide < 0 {
		return fmt.Errorf("segmentation.min_pixels and segmentation.min_side cannot be negative")
	}
	if s.MergeDistance < 0 {
		return fmt.Errorf("segmentation.merge_distance cannot be negative")
	}

	e := c.Extraction
	if e.Padding < 0 {
		return fmt.Errorf("extraction.padding cannot be negative")
	}
	if e.StrokeWidth < 0 {
		return fmt.Errorf("extraction.stroke_width cannot be negative")
	}
	if e.StrokeWidth > 0 && e.StrokeSteps < 1 {
		return fmt.Errorf("extraction.stroke_steps must be positive when stroke_width is set")
	}
	if _, err := extract.ParseStrokeColor(e.StrokeColor); err != nil {
		return fmt.Errorf("extraction.stroke_color: %w", err)
	}

	switch c.Naming.Backend {
	case "":
	case "ollama", "llamacpp":
		if c.Naming.Model == "" && c.Naming.Backend == "ollama" {
			return fmt.Errorf("naming.model is required for the ollama backend")
		}
		if c.Naming.SendSize < 1 {
			return fmt.Errorf("naming.send_size must be positive")
		}
	default:
		return fmt.Errorf("naming.backend must be ollama, llamacpp or empty, got %q", c.Naming.Backend)
	}

	switch strings.ToLower(c.Output.Format) {
	case "png":
	case "webp":
		if !c.Output.Lossless && (c.Output.Quality < 1 || c.Output.Quality > 100) {
			return fmt.Errorf("output.quality must be between 1 and 100")
		}
	default:
		return fmt.Errorf("output.format must be png or webp, got %q", c.Output.Format)
	}
	if c.Output.Archive != "" && filepath.Base(c.Output.Archive) != c.Output.Archive {
		return fmt.Errorf("output.archive must be a file name, not a path")
	}

	return nil
}

// Classifier builds the background classifier shared by detection and extraction
func (c *Config) Classifier() segment.Classifier {
	return segment.Classifier{
		AlphaThreshold: uint8(c.Segmentation.AlphaThreshold),
		WhiteThreshold: uint8(c.Segmentation.WhiteThreshold),
	}
}

// DetectorConfig returns the region acceptance filter
func (c *Config) DetectorConfig() segment.DetectorConfig {
	return segment.DetectorConfig{
		MinPixels: c.Segmentation.MinPixels,
		MinSide:   c.Segmentation.MinSide,
	}
}

// ExtractConfig converts the extraction and output sections for the extractor
func (c *Config) ExtractConfig() (extract.Config, error) {
	stroke, err := extract.ParseStrokeColor(c.Extraction.StrokeColor)
	if err != nil {
		return extract.Config{}, err
	}
	cfg := extract.DefaultConfig()
	cfg.Padding = c.Extraction.Padding
	cfg.StrokeWidth = c.Extraction.StrokeWidth
	cfg.StrokeSteps = c.Extraction.StrokeSteps
	cfg.StrokeColor = stroke
	cfg.Output.Format = strings.ToLower(c.Output.Format)
	cfg.Output.Quality = c.Output.Quality
	cfg.Output.Lossless = c.Output.Lossless
	return cfg, nil
}

// Timeout returns the naming request timeout
func (n NamingConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "sticker-cut", "config.json")
}
