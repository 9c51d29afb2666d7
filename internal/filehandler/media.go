// Package filehandler discovers, reads, transforms and writes photographs.
//
// Images are identified by content signature, never by extension. Metadata
// extraction uses a split-provider model:
//   - JPEG/TIFF: rwcarlsen/goexif, every tag walked into a name→value map,
//     with evanoberholster/imagemeta as fallback
//   - PNG/WebP: the eXIf / EXIF container chunk, decoded by goexif
//
// Pixel decoding uses the standard library codecs plus golang.org/x/image for
// WebP, TIFF and BMP; WebP output is encoded with chai2010/webp. Output
// format is chosen by the output path's extension.
package filehandler

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image formats, named as image.RegisterFormat names them.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWebP = "webp"
	FormatTIFF = "tiff"
	FormatBMP  = "bmp"
)

// FormatMIMETypes maps each readable format to its MIME type.
var FormatMIMETypes = map[string]string{
	FormatJPEG: "image/jpeg",
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatWebP: "image/webp",
	FormatTIFF: "image/tiff",
	FormatBMP:  "image/bmp",
}

// OutputExtensions maps writable file extensions to the format they encode.
var OutputExtensions = map[string]string{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".webp": FormatWebP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".bmp":  FormatBMP,
}

// ErrUnsupportedOutput is returned when no encoder exists for an output extension.
var ErrUnsupportedOutput = errors.New("unsupported output format")

// DefaultWebPQuality is used when EncodeOptions leaves WebPQuality unset.
const DefaultWebPQuality = 80

// EncodeOptions tunes lossy encoders.
type EncodeOptions struct {
	JPEGQuality int
	WebPQuality float32
}

// OutputFormat returns the format an output path will be written as.
func OutputFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := OutputExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOutput, ext)
	}
	return format, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string, opts EncodeOptions) error {
	switch format {
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, nil)
	case FormatWebP:
		quality := opts.WebPQuality
		if quality <= 0 {
			quality = DefaultWebPQuality
		}
		return webp.Encode(w, img, &webp.Options{Quality: quality})
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOutput, format)
	}
}

// IsImage reports whether the format is one this package can decode.
func IsImage(format string) bool {
	_, ok := FormatMIMETypes[format]
	return ok
}
