// Package config holds the immutable run configuration for the batch and
// selection workflows.
//
// Values are resolved in three layers: built-in defaults, then environment
// variables (PHOTO_*, optionally loaded from a .env file via godotenv), then
// command-line flags applied by the cmd/ packages. The resulting Config is
// passed by value into pipeline and selection constructors; nothing below
// cmd/ reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// MinDateLayout is the DD/MM/YY layout accepted by --min-date.
const MinDateLayout = "02/01/06"

// Defaults.
const (
	DefaultMinDate          = "08/07/22"
	DefaultWatermarkText    = "(C) MIVS"
	DefaultFontRatio        = 2.0
	DefaultDiagonalFraction = 0.6
	DefaultOpacity          = 51
	DefaultMaxDimension     = 800
	DefaultJPEGQuality      = 75
	DefaultReleaseParties   = "MIVS"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// WatermarkConfig controls the diagonal watermark.
type WatermarkConfig struct {
	Text string

	// FontRatio is the divisor applied to the text length when deriving the
	// font size: size = floor(span / (len(text) / FontRatio)).
	FontRatio float64

	// DiagonalFraction is the share of the image diagonal the text spans.
	DiagonalFraction float64

	// Opacity is the alpha (0-255) of the black text fill.
	Opacity uint8

	// FontPath optionally points at a TTF/OTF file. Empty uses Go Regular.
	FontPath string
}

// TransformConfig controls resizing and encoding.
type TransformConfig struct {
	MaxDimension int
	JPEGQuality  int
}

// ReleaseConfig controls the usage-release text printed by the selection workflow.
type ReleaseConfig struct {
	Parties      string
	TemplatePath string
}

// Config is the full run configuration.
type Config struct {
	InputDir  string
	OutputDir string
	MinDate   time.Time

	// StrictMetadata aborts the batch on the first image whose capture date
	// is missing or malformed instead of skipping it.
	StrictMetadata bool
	DryRun         bool
	EmitMetrics    bool

	Watermark WatermarkConfig
	Transform TransformConfig
	Release   ReleaseConfig
}

// Default returns a Config populated only with built-in defaults.
func Default() Config {
	minDate, _ := ParseMinDate(DefaultMinDate)
	return Config{
		MinDate: minDate,
		Watermark: WatermarkConfig{
			Text:             DefaultWatermarkText,
			FontRatio:        DefaultFontRatio,
			DiagonalFraction: DefaultDiagonalFraction,
			Opacity:          DefaultOpacity,
		},
		Transform: TransformConfig{
			MaxDimension: DefaultMaxDimension,
			JPEGQuality:  DefaultJPEGQuality,
		},
		Release: ReleaseConfig{
			Parties: DefaultReleaseParties,
		},
	}
}

// Load loads an optional .env file and overlays PHOTO_* environment
// variables onto the defaults.
//
// PHOTO_ENV_FILE names the .env file (default ".env"). A missing file is not
// an error; a malformed one is.
func Load() (Config, error) {
	envFile := getEnv("PHOTO_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		log.Debug().Str("path", envFile).Msg("No env file found, using process environment")
	}

	cfg := Default()
	cfg.InputDir = getEnv("PHOTO_INDIR", cfg.InputDir)
	cfg.OutputDir = getEnv("PHOTO_OUTDIR", cfg.OutputDir)
	cfg.StrictMetadata = getEnvAsBool("PHOTO_STRICT_METADATA", cfg.StrictMetadata)

	if v := os.Getenv("PHOTO_MIN_DATE"); v != "" {
		d, err := ParseMinDate(v)
		if err != nil {
			return Config{}, err
		}
		cfg.MinDate = d
	}

	cfg.Watermark.Text = getEnv("PHOTO_WATERMARK_TEXT", cfg.Watermark.Text)
	cfg.Watermark.FontRatio = getEnvAsFloat("PHOTO_FONT_RATIO", cfg.Watermark.FontRatio)
	cfg.Watermark.DiagonalFraction = getEnvAsFloat("PHOTO_DIAGONAL_FRACTION", cfg.Watermark.DiagonalFraction)
	if op := getEnvAsInt("PHOTO_WATERMARK_OPACITY", int(cfg.Watermark.Opacity)); op >= 0 && op <= 255 {
		cfg.Watermark.Opacity = uint8(op)
	} else {
		log.Warn().Int("value", op).Msg("Ignoring out-of-range watermark opacity")
	}
	cfg.Watermark.FontPath = getEnv("PHOTO_FONT_PATH", cfg.Watermark.FontPath)

	cfg.Transform.MaxDimension = getEnvAsInt("PHOTO_MAX_DIMENSION", cfg.Transform.MaxDimension)
	cfg.Transform.JPEGQuality = getEnvAsInt("PHOTO_JPEG_QUALITY", cfg.Transform.JPEGQuality)

	cfg.Release.Parties = getEnv("PHOTO_RELEASE_PARTIES", cfg.Release.Parties)
	cfg.Release.TemplatePath = getEnv("PHOTO_RELEASE_TEMPLATE", cfg.Release.TemplatePath)

	return cfg, nil
}

// ParseMinDate parses a DD/MM/YY date into a UTC midnight time.
func ParseMinDate(s string) (time.Time, error) {
	d, err := time.Parse(MinDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: min date %q is not DD/MM/YY: %v", ErrInvalidConfig, s, err)
	}
	return d, nil
}

// Validate checks value ranges. Directory existence is checked by the CLI.
func (c Config) Validate() error {
	if c.Watermark.Text == "" {
		return fmt.Errorf("%w: watermark text is empty", ErrInvalidConfig)
	}
	if c.Watermark.FontRatio <= 0 {
		return fmt.Errorf("%w: font ratio must be > 0, got %v", ErrInvalidConfig, c.Watermark.FontRatio)
	}
	if c.Watermark.DiagonalFraction <= 0 || c.Watermark.DiagonalFraction > 1 {
		return fmt.Errorf("%w: diagonal fraction must be in (0, 1], got %v", ErrInvalidConfig, c.Watermark.DiagonalFraction)
	}
	if c.Transform.MaxDimension <= 0 {
		return fmt.Errorf("%w: max dimension must be > 0, got %d", ErrInvalidConfig, c.Transform.MaxDimension)
	}
	if c.Transform.JPEGQuality < 1 || c.Transform.JPEGQuality > 100 {
		return fmt.Errorf("%w: JPEG quality must be 1-100, got %d", ErrInvalidConfig, c.Transform.JPEGQuality)
	}
	return nil
}

// Summary returns the non-sensitive settings as strings for the run log.
func (c Config) Summary() map[string]string {
	return map[string]string{
		"indir":            c.InputDir,
		"outdir":           c.OutputDir,
		"minDate":          c.MinDate.Format("2006-01-02"),
		"watermarkText":    c.Watermark.Text,
		"fontRatio":        strconv.FormatFloat(c.Watermark.FontRatio, 'g', -1, 64),
		"diagonalFraction": strconv.FormatFloat(c.Watermark.DiagonalFraction, 'g', -1, 64),
		"maxDimension":     strconv.Itoa(c.Transform.MaxDimension),
		"jpegQuality":      strconv.Itoa(c.Transform.JPEGQuality),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer environment value")
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric environment value")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-boolean environment value")
	}
	return defaultValue
}
