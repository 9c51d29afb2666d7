package filehandler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// DateTimeTag is the EXIF tag (0x0132) the capture date is derived from.
const DateTimeTag = "DateTime"

// ExifDateLayout is the EXIF date/time layout: YYYY:MM:DD HH:MM:SS.
const ExifDateLayout = "2006:01:02 15:04:05"

var (
	// ErrNoMetadata means no provider could read embedded metadata.
	ErrNoMetadata = errors.New("no embedded metadata")

	// ErrDateMissing means metadata was read but has no DateTime tag.
	ErrDateMissing = errors.New("capture date tag missing")

	// ErrDateMalformed means the DateTime tag does not parse.
	ErrDateMalformed = errors.New("capture date tag malformed")
)

// DateError reports why an image has no usable capture date.
type DateError struct {
	Path  string
	Value string
	Err   error
}

func (e *DateError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %v: %q", e.Path, e.Err, e.Value)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *DateError) Unwrap() error { return e.Err }

// MetadataResult is the outcome of metadata extraction. Extraction never
// fails outright: Err explains a missing date and the caller decides whether
// that skips the image or aborts the run.
type MetadataResult struct {
	Tags     map[string]string
	Date     time.Time
	HasDate  bool
	Provider string
	Err      error
}

// metadataProvider reads a tag map from an image stream.
type metadataProvider struct {
	name string
	read func(r io.ReadSeeker) (map[string]string, error)
}

var (
	goexifProvider    = metadataProvider{name: "goexif", read: readGoexifTags}
	imagemetaProvider = metadataProvider{name: "imagemeta", read: readImagemetaTags}
	pngChunkProvider  = metadataProvider{name: "goexif", read: containerReader(pngExifPayload)}
	webpChunkProvider = metadataProvider{name: "goexif", read: containerReader(webpExifPayload)}
)

// providersFor returns the providers to try, in order, for a sniffed format.
// goexif understands JPEG APP1 and TIFF IFDs directly, with imagemeta as a
// second opinion. PNG and WebP carry EXIF in a container chunk, which is
// lifted out and handed to goexif as a bare TIFF block.
func providersFor(format string) []metadataProvider {
	switch format {
	case FormatJPEG, FormatTIFF:
		return []metadataProvider{goexifProvider, imagemetaProvider}
	case FormatPNG:
		return []metadataProvider{pngChunkProvider}
	case FormatWebP:
		return []metadataProvider{webpChunkProvider}
	default:
		return nil
	}
}

// containerReader adapts a chunk extractor into a goexif-backed provider.
func containerReader(payload func(io.Reader) ([]byte, error)) func(io.ReadSeeker) (map[string]string, error) {
	return func(r io.ReadSeeker) (map[string]string, error) {
		data, err := payload(r)
		if err != nil {
			return nil, err
		}
		return readGoexifTags(bytes.NewReader(data))
	}
}

// ExtractMetadata reads embedded metadata from r and derives the capture
// date from the DateTime tag. The stream position is undefined afterwards.
func ExtractMetadata(path, format string, r io.ReadSeeker) MetadataResult {
	log.Debug().Str("path", path).Str("format", format).Msg("Extracting EXIF metadata")

	var lastErr error
	for _, p := range providersFor(format) {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			lastErr = err
			break
		}
		tags, err := p.read(r)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Str("provider", p.name).Msg("Metadata provider failed")
			lastErr = err
			continue
		}
		result := MetadataResult{Tags: tags, Provider: p.name}
		result.Date, result.Err = ParseCaptureDate(path, tags)
		result.HasDate = result.Err == nil

		log.Debug().
			Str("path", path).
			Str("provider", p.name).
			Int("tags", len(tags)).
			Bool("has_date", result.HasDate).
			Msg("Image metadata extraction complete")
		return result
	}

	err := ErrNoMetadata
	if lastErr != nil {
		err = fmt.Errorf("%w: %v", ErrNoMetadata, lastErr)
	}
	return MetadataResult{
		Tags: map[string]string{},
		Err:  &DateError{Path: path, Err: err},
	}
}

// ParseCaptureDate parses the DateTime tag into a UTC calendar date.
func ParseCaptureDate(path string, tags map[string]string) (time.Time, error) {
	raw, ok := tags[DateTimeTag]
	if !ok || strings.TrimSpace(raw) == "" {
		return time.Time{}, &DateError{Path: path, Err: ErrDateMissing}
	}
	t, err := time.Parse(ExifDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &DateError{Path: path, Value: raw, Err: ErrDateMalformed}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// tagCollector implements exif.Walker, flattening every tag into strings.
type tagCollector map[string]string

func (c tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			c[string(name)] = s
			return nil
		}
	}
	c[string(name)] = tag.String()
	return nil
}

func readGoexifTags(r io.ReadSeeker) (map[string]string, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}
	tags := tagCollector{}
	if err := x.Walk(tags); err != nil {
		return nil, fmt.Errorf("failed to walk EXIF tags: %w", err)
	}
	return tags, nil
}

func readImagemetaTags(r io.ReadSeeker) (map[string]string, error) {
	exifData, err := imagemeta.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	tags := make(map[string]string)
	if v := strings.TrimSpace(exifData.Make); v != "" {
		tags["Make"] = v
	}
	if v := strings.TrimSpace(exifData.Model); v != "" {
		tags["Model"] = v
	}
	// imagemeta hands back parsed times; re-render them in EXIF layout so
	// both providers feed ParseCaptureDate the same shape.
	if t := exifData.ModifyDate(); !t.IsZero() {
		tags[DateTimeTag] = t.Format(ExifDateLayout)
	}
	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		tags["DateTimeOriginal"] = t.Format(ExifDateLayout)
	}
	if t := exifData.CreateDate(); !t.IsZero() {
		tags["DateTimeDigitized"] = t.Format(ExifDateLayout)
	}
	return tags, nil
}
