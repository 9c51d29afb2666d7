package filehandler

import (
	"bytes"
	"io"
	"os"
)

// sniffLen is the number of leading bytes DetectFormat needs.
const sniffLen = 12

type signature struct {
	format string
	match  func(b []byte) bool
}

func prefix(p string) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, []byte(p)) }
}

// signatures lists the magic numbers of every format the decoders handle.
var signatures = []signature{
	{FormatJPEG, prefix("\xff\xd8\xff")},
	{FormatPNG, prefix("\x89PNG\r\n\x1a\n")},
	{FormatGIF, prefix("GIF87a")},
	{FormatGIF, prefix("GIF89a")},
	{FormatWebP, func(b []byte) bool {
		return len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
	}},
	{FormatTIFF, prefix("II*\x00")},
	{FormatTIFF, prefix("MM\x00*")},
	{FormatBMP, prefix("BM")},
}

// DetectFormat returns the image format whose signature matches header,
// or "" when none does.
func DetectFormat(header []byte) string {
	for _, s := range signatures {
		if s.match(header) {
			return s.format
		}
	}
	return ""
}

// SniffFile reads the leading bytes of path and returns its image format.
// An empty format with a nil error means the file is not an image.
func SniffFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return sniffReader(f)
}

func sniffReader(r io.Reader) (string, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return DetectFormat(header[:n]), nil
}
