package filehandler

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// ImageRecord is one opened photograph: its path, embedded metadata, derived
// capture date and, once loaded, its pixel buffer.
//
// A record owns an open file handle from Open until Close. Close must run on
// every exit path, including when the image is skipped.
type ImageRecord struct {
	Path   string
	Format string

	Tags        map[string]string
	CaptureDate time.Time
	HasDate     bool

	// DateErr explains why HasDate is false.
	DateErr error

	file   *os.File
	pixels image.Image
	closed bool
}

// Open opens path, sniffs its format and extracts its metadata. Pixels are
// decoded lazily by Load so that images skipped on date never pay for it.
func Open(path string) (*ImageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	format, err := sniffReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}
	if format == "" {
		f.Close()
		return nil, fmt.Errorf("not an image: %s", path)
	}

	meta := ExtractMetadata(path, format, f)

	return &ImageRecord{
		Path:        path,
		Format:      format,
		Tags:        meta.Tags,
		CaptureDate: meta.Date,
		HasDate:     meta.HasDate,
		DateErr:     meta.Err,
		file:        f,
	}, nil
}

// DateString returns the capture date as YYYY-MM-DD, or "" without a date.
func (r *ImageRecord) DateString() string {
	if !r.HasDate {
		return ""
	}
	return r.CaptureDate.Format("2006-01-02")
}

// Load decodes the pixel buffer if it has not been decoded yet.
func (r *ImageRecord) Load() (image.Image, error) {
	if r.closed {
		return nil, fmt.Errorf("image record closed: %s", r.Path)
	}
	if r.pixels != nil {
		return r.pixels, nil
	}
	if _, err := r.file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}
	img, format, err := image.Decode(r.file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	log.Debug().
		Str("path", r.Path).
		Str("format", format).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Image decoded")
	r.pixels = img
	return img, nil
}

// SetPixels replaces the pixel buffer, e.g. with a resized copy.
func (r *ImageRecord) SetPixels(img image.Image) {
	r.pixels = img
}

// Save encodes the current pixel buffer to outputPath, choosing the format
// from its extension. The file is written beside the target and renamed
// into place so a failed encode never leaves a truncated output.
func (r *ImageRecord) Save(outputPath string, opts EncodeOptions) error {
	img, err := r.Load()
	if err != nil {
		return err
	}
	return WriteImage(outputPath, img, opts)
}

// WriteImage encodes img to path atomically, overwriting any existing file.
func WriteImage(path string, img image.Image, opts EncodeOptions) error {
	format, err := OutputFormat(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, img, format, opts); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	log.Debug().Str("path", path).Str("format", format).Msg("Image written")
	return nil
}

// Close releases the file handle and pixel buffer. Calling it again is a no-op.
func (r *ImageRecord) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.pixels = nil
	return r.file.Close()
}
