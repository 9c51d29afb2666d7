// Package pipeline runs the batch workflow: walk an input tree, read each
// photograph's capture date, drop those without one or older than the
// configured minimum, and write a resized, watermarked copy into a folder
// named after the capture date.
//
// Images are processed one at a time in traversal order. Each record is
// closed before the next is opened.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fpang/photo-batch/internal/config"
	"github.com/fpang/photo-batch/internal/filehandler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrOutputDirectory is wrapped when an output folder cannot be created.
// It always ends the run, regardless of strict mode.
var ErrOutputDirectory = errors.New("failed to create output directory")

// Stats counts what happened to each discovered image.
type Stats struct {
	Discovered           int
	Written              int
	SkippedBeforeMinDate int
	SkippedNoDate        int
	Failed               int
}

// outcome is the fate of a single image.
type outcome int

const (
	outcomeWritten outcome = iota
	outcomeNoDate
	outcomeBeforeMinDate
	outcomeFailed
)

// BatchPipeline processes one input tree into one output tree.
type BatchPipeline struct {
	cfg         config.Config
	runID       string
	transformer *filehandler.Transformer
	logger      zerolog.Logger
}

// Option customises a BatchPipeline.
type Option func(*BatchPipeline)

// WithRunID tags every log line of the run with id.
func WithRunID(id string) Option {
	return func(p *BatchPipeline) {
		p.runID = id
	}
}

// WithTransformer replaces the transformer built from the configuration.
func WithTransformer(t *filehandler.Transformer) Option {
	return func(p *BatchPipeline) {
		p.transformer = t
	}
}

// New creates a BatchPipeline for cfg. The watermark font is loaded here so
// that a bad font path fails before any image is touched.
func New(cfg config.Config, opts ...Option) (*BatchPipeline, error) {
	p := &BatchPipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	ctx := log.With()
	if p.runID != "" {
		ctx = ctx.Str("run_id", p.runID)
	}
	p.logger = ctx.Logger()

	if p.transformer == nil {
		font, err := filehandler.LoadFont(cfg.Watermark.FontPath)
		if err != nil {
			return nil, err
		}
		t, err := filehandler.NewTransformer(cfg.Transform.MaxDimension, filehandler.Watermark{
			Text:             cfg.Watermark.Text,
			FontRatio:        cfg.Watermark.FontRatio,
			DiagonalFraction: cfg.Watermark.DiagonalFraction,
			Opacity:          cfg.Watermark.Opacity,
			Font:             font,
		})
		if err != nil {
			return nil, err
		}
		p.transformer = t
	}
	return p, nil
}

// Run processes every image under the input directory.
//
// In tolerant mode (the default) an image that cannot be dated is skipped
// and one that cannot be decoded or encoded is counted as failed; the run
// carries on. In strict mode either condition stops the run and the error
// is returned alongside the counts so far. Failure to create an output
// folder always stops the run.
func (p *BatchPipeline) Run() (Stats, error) {
	var stats Stats
	start := time.Now()

	p.logger.Info().
		Str("indir", p.cfg.InputDir).
		Str("outdir", p.cfg.OutputDir).
		Str("min_date", p.cfg.MinDate.Format("2006-01-02")).
		Bool("strict", p.cfg.StrictMetadata).
		Bool("dry_run", p.cfg.DryRun).
		Msg("Starting batch")

	if !p.cfg.DryRun {
		if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
			return stats, fmt.Errorf("%w %s: %v", ErrOutputDirectory, p.cfg.OutputDir, err)
		}
	}

	for path := range filehandler.WalkImages(p.cfg.InputDir) {
		stats.Discovered++

		result, err := p.processFile(path)
		switch result {
		case outcomeWritten:
			stats.Written++
		case outcomeNoDate:
			stats.SkippedNoDate++
		case outcomeBeforeMinDate:
			stats.SkippedBeforeMinDate++
		case outcomeFailed:
			stats.Failed++
		}

		if err == nil {
			continue
		}
		if errors.Is(err, ErrOutputDirectory) || p.cfg.StrictMetadata {
			p.logger.Error().Err(err).Str("path", path).Msg("Batch aborted")
			return stats, err
		}
	}

	p.logger.Info().
		Int("discovered", stats.Discovered).
		Int("written", stats.Written).
		Int("skipped_before_min_date", stats.SkippedBeforeMinDate).
		Int("skipped_no_date", stats.SkippedNoDate).
		Int("failed", stats.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Batch complete")

	return stats, nil
}

// processFile handles one image. The returned error is non-nil for every
// outcome other than written or before-min-date; Run decides whether it is
// fatal.
func (p *BatchPipeline) processFile(path string) (outcome, error) {
	rec, err := filehandler.Open(path)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("Failed to open image")
		return outcomeFailed, err
	}
	defer rec.Close()

	if !rec.HasDate {
		p.logger.Warn().Err(rec.DateErr).Str("path", path).Msg("No usable capture date, skipping")
		return outcomeNoDate, rec.DateErr
	}

	if rec.CaptureDate.Before(p.cfg.MinDate) {
		p.logger.Debug().
			Str("path", path).
			Str("date", rec.DateString()).
			Msg("Captured before min date, skipping")
		return outcomeBeforeMinDate, nil
	}

	dateDir := filepath.Join(p.cfg.OutputDir, rec.DateString())
	outPath := filepath.Join(dateDir, filepath.Base(path))

	if p.cfg.DryRun {
		p.logger.Info().Str("path", path).Str("output", outPath).Msg("Dry run, would write")
		return outcomeWritten, nil
	}

	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return outcomeFailed, fmt.Errorf("%w %s: %v", ErrOutputDirectory, dateDir, err)
	}

	img, err := rec.Load()
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("Failed to decode image")
		return outcomeFailed, fmt.Errorf("%s: %w", path, err)
	}

	resized := p.transformer.Resize(img)
	geom, err := p.transformer.ApplyWatermark(resized)
	if err != nil {
		p.logger.Warn().Err(err).Str("path", path).Msg("Failed to watermark image")
		return outcomeFailed, fmt.Errorf("%s: %w", path, err)
	}
	rec.SetPixels(resized)

	if err := rec.Save(outPath, filehandler.EncodeOptions{JPEGQuality: p.cfg.Transform.JPEGQuality}); err != nil {
		p.logger.Warn().Err(err).Str("path", path).Str("output", outPath).Msg("Failed to write image")
		return outcomeFailed, fmt.Errorf("%s: %w", path, err)
	}

	p.logger.Info().
		Str("path", path).
		Str("output", outPath).
		Int("width", resized.Bounds().Dx()).
		Int("height", resized.Bounds().Dy()).
		Int("font_size", geom.FontSize).
		Msg("Image written")

	return outcomeWritten, nil
}
