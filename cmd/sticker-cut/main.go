package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	stickercut "github.com/menta2k/sticker-cut"
	"github.com/menta2k/sticker-cut/internal/config"
	"github.com/menta2k/sticker-cut/internal/utils"
	"github.com/menta2k/sticker-cut/pkg/client"
	"github.com/menta2k/sticker-cut/pkg/collection"
	"github.com/menta2k/sticker-cut/pkg/llamacpp"
	"github.com/menta2k/sticker-cut/pkg/naming"
	"github.com/menta2k/sticker-cut/pkg/ollama"
	"github.com/menta2k/sticker-cut/pkg/processing"
	"github.com/menta2k/sticker-cut/pkg/sheet"
	"github.com/menta2k/sticker-cut/pkg/types"
)

func main() {
	var in, outDir, configPath, format, archive string
	var backend, model, url string
	var rectSpec string
	var debug, saveConfig bool

	flag.StringVar(&in, "in", "", "input sheet: image path, URL, or a directory of images")
	flag.StringVar(&outDir, "out", "", "output directory (overrides output.dir)")
	flag.StringVar(&configPath, "config", "", "JSON config file (default: "+config.GetConfigPath()+" if present)")
	flag.StringVar(&format, "format", "", "sticker format: png|webp (overrides output.format)")
	flag.StringVar(&archive, "zip", "", "write stickers into this zip file inside the output directory")

	flag.StringVar(&backend, "name-backend", "", "name stickers with a vision model: ollama|llamacpp")
	flag.StringVar(&model, "model", "", "vision model name (overrides naming.model)")
	flag.StringVar(&url, "url", "", "vision server URL (overrides naming.url)")

	flag.StringVar(&rectSpec, "rect", "", "manual crop x0,y0,x1,y1 in source pixels (inclusive) instead of detection")
	flag.BoolVar(&debug, "debug", false, "write a debug overlay with raw and merged regions")
	flag.BoolVar(&saveConfig, "save-config", false, "write the effective config to -config and exit")

	flag.Parse()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	applyFlags(cfg, outDir, format, archive, backend, model, url)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if saveConfig {
		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}
		if err := cfg.SaveToFile(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", path)
		return
	}

	if in == "" {
		log.Fatalf("usage: %s -in sheet.png|URL|dir [-out dir] [-format png|webp] [-zip stickers.zip] [-name-backend ollama|llamacpp] [-rect x0,y0,x1,y1] [-debug]", filepath.Base(os.Args[0]))
	}

	cutter, err := newCutter(cfg)
	if err != nil {
		log.Fatal(err)
	}

	inputs := []string{in}
	if utils.DirExists(in) {
		if inputs, err = utils.ListImageFiles(in); err != nil {
			log.Fatal(err)
		}
		if len(inputs) == 0 {
			log.Fatalf("no images found in %s", in)
		}
	}

	var rect *types.Rect
	if rectSpec != "" {
		r, err := parseRect(rectSpec)
		if err != nil {
			log.Fatal(err)
		}
		rect = &r
	}

	for _, input := range inputs {
		dir := cfg.Output.Dir
		if len(inputs) > 1 {
			base := filepath.Base(input)
			dir = filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base)))
		}
		if err := run(cutter, cfg, input, dir, rect, debug); err != nil {
			log.Printf("%s: %v", input, err)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	if p := config.GetConfigPath(); utils.FileExists(p) {
		return config.LoadFromFile(p)
	}
	return config.Default(), nil
}

func applyFlags(cfg *config.Config, outDir, format, archive, backend, model, url string) {
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if format != "" {
		cfg.Output.Format = strings.ToLower(format)
	}
	if archive != "" {
		cfg.Output.Archive = archive
	}
	if backend != "" {
		cfg.Naming.Backend = backend
	}
	if model != "" {
		cfg.Naming.Model = model
	}
	if url != "" {
		cfg.Naming.URL = url
	}
}

func newCutter(cfg *config.Config) (*stickercut.Cutter, error) {
	extractConfig, err := cfg.ExtractConfig()
	if err != nil {
		return nil, err
	}
	cutter := stickercut.NewWithConfig(cfg.Classifier(), cfg.DetectorConfig(), cfg.Segmentation.MergeDistance, extractConfig)

	// Create appropriate client based on backend
	var visionClient client.VisionClient
	switch cfg.Naming.Backend {
	case "":
		return cutter, nil
	case "ollama":
		c, err := ollama.NewClient(cfg.Naming.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		c.SetTimeout(cfg.Naming.Timeout())
		visionClient = c
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.Naming.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		c.SetTimeout(cfg.Naming.Timeout())
		visionClient = c
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", cfg.Naming.Backend)
	}

	cutter.SetNamer(naming.NewNamer(visionClient, naming.Config{
		Model:       cfg.Naming.Model,
		SendSize:    cfg.Naming.SendSize,
		Concurrency: cfg.Naming.Concurrency,
	}))
	return cutter, nil
}

func run(cutter *stickercut.Cutter, cfg *config.Config, input, outDir string, rect *types.Rect, debug bool) error {
	img, err := cutter.LoadImage(input)
	if err != nil {
		return err
	}
	info := cutter.GetImageInfo(img)
	log.Printf("loaded %s (%dx%d)", input, info.Width, info.Height)

	if err := utils.EnsureDir(outDir); err != nil {
		return err
	}

	var stickers []*types.Sticker
	if rect != nil {
		s, err := cutter.ExtractManual(img, *rect, "")
		if err != nil {
			return fmt.Errorf("manual crop %+v: %w", *rect, err)
		}
		stickers = append(stickers, s)
	} else {
		result, err := cutter.Process(img, func(stage sheet.Stage, message string) {
			log.Printf("[%s] %s", stage, message)
		})
		if err != nil {
			return err
		}
		if result.Skipped > 0 {
			log.Printf("skipped %d regions with no area inside the image", result.Skipped)
		}

		if debug {
			dbgPath := utils.GenerateOutputFilename(input, outDir, "_debug", "png")
			if err := processing.NewProcessor().SaveImage(cutter.DebugOverlay(img, result), dbgPath, "png", 0, false); err != nil {
				log.Printf("debug overlay save failed: %v", err)
			} else {
				log.Printf("wrote %s", dbgPath)
			}
		}

		if result.Stage == sheet.StageDoneEmpty {
			log.Printf("no stickers found in %s; retry with -rect x0,y0,x1,y1", input)
			return nil
		}
		stickers = result.Stickers
	}

	coll := collection.New(stickers...)
	if n := cutter.NameAll(context.Background(), coll); n > 0 || cfg.Naming.Backend != "" {
		log.Printf("named %d of %d stickers", n, coll.Len())
	}

	ext := processing.Extension(cfg.Output.Format)
	if cfg.Output.Archive != "" {
		path := filepath.Join(outDir, cfg.Output.Archive)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := coll.WriteZip(f, ext); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logWritten(path)
		return nil
	}

	paths, err := coll.WriteDir(outDir, ext)
	for _, p := range paths {
		logWritten(p)
	}
	return err
}

func logWritten(path string) {
	if st, err := os.Stat(path); err == nil {
		log.Printf("wrote %s (%s)", path, utils.FormatFileSize(st.Size()))
		return
	}
	log.Printf("wrote %s", path)
}

// parseRect parses "x0,y0,x1,y1"; corners may be given in any order
func parseRect(spec string) (types.Rect, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return types.Rect{}, fmt.Errorf("invalid -rect %q: want x0,y0,x1,y1", spec)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return types.Rect{}, fmt.Errorf("invalid -rect %q: %w", spec, err)
		}
		v[i] = n
	}
	r := image.Rect(v[0], v[1], v[2], v[3])
	return types.Rect{MinX: r.Min.X, MinY: r.Min.Y, MaxX: r.Max.X, MaxY: r.Max.Y}, nil
}
