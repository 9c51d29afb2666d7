// Package testutil builds on-disk image fixtures for package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
)

// Light returns a w×h image filled with a pale gradient, light enough that a
// faint black watermark visibly changes it.
func Light(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 220 + uint8(x%32), G: 220 + uint8(y%32), B: 240, A: 255})
		}
	}
	return img
}

// ExifTIFF returns a little-endian TIFF block with a single IFD0 DateTime
// (0x0132) entry, the payload every EXIF container carries.
func ExifTIFF(dateTime string) []byte {
	value := append([]byte(dateTime), 0)
	count := uint32(len(value))

	var tiff bytes.Buffer
	le := binary.LittleEndian
	tiff.WriteString("II")
	binary.Write(&tiff, le, uint16(42))
	binary.Write(&tiff, le, uint32(8)) // IFD0 offset

	binary.Write(&tiff, le, uint16(1))      // entry count
	binary.Write(&tiff, le, uint16(0x0132)) // DateTime
	binary.Write(&tiff, le, uint16(2))      // ASCII
	binary.Write(&tiff, le, count)
	if count <= 4 {
		inline := make([]byte, 4)
		copy(inline, value)
		tiff.Write(inline)
	} else {
		binary.Write(&tiff, le, uint32(8+2+12+4)) // value follows the IFD
	}
	binary.Write(&tiff, le, uint32(0)) // no next IFD
	if count > 4 {
		tiff.Write(value)
	}
	return tiff.Bytes()
}

// ExifSegment returns a JPEG APP1 segment wrapping ExifTIFF.
func ExifSegment(dateTime string) []byte {
	payload := append([]byte("Exif\x00\x00"), ExifTIFF(dateTime)...)
	seg := []byte{0xFF, 0xE1}
	seg = binary.BigEndian.AppendUint16(seg, uint16(len(payload)+2))
	return append(seg, payload...)
}

// ExifJPEG encodes img as JPEG. A non-empty dateTime is embedded as the EXIF
// DateTime tag, verbatim, so malformed values can be written too.
func ExifJPEG(t testing.TB, img image.Image, dateTime string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	data := buf.Bytes()
	if dateTime == "" {
		return data
	}
	out := append([]byte{}, data[:2]...) // SOI
	out = append(out, ExifSegment(dateTime)...)
	return append(out, data[2:]...)
}

// WriteExifJPEG writes a w×h JPEG with the given DateTime to path, creating
// parent directories.
func WriteExifJPEG(t testing.TB, path string, w, h int, dateTime string) {
	t.Helper()
	WriteFile(t, path, ExifJPEG(t, Light(w, h), dateTime))
}

// ExifPNG encodes img as PNG with an eXIf chunk holding dateTime, placed
// right after IHDR.
func ExifPNG(t testing.TB, img image.Image, dateTime string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	data := buf.Bytes()

	// Signature (8) + IHDR chunk (4 length + 4 type + 13 data + 4 CRC).
	const afterIHDR = 8 + 25
	out := append([]byte{}, data[:afterIHDR]...)
	out = append(out, pngChunk("eXIf", ExifTIFF(dateTime))...)
	return append(out, data[afterIHDR:]...)
}

func pngChunk(kind string, body []byte) []byte {
	chunk := binary.BigEndian.AppendUint32(nil, uint32(len(body)))
	chunk = append(chunk, kind...)
	chunk = append(chunk, body...)
	crc := crc32.ChecksumIEEE(chunk[4:])
	return binary.BigEndian.AppendUint32(chunk, crc)
}

// WriteExifPNG writes a w×h PNG with the given DateTime to path.
func WriteExifPNG(t testing.TB, path string, w, h int, dateTime string) {
	t.Helper()
	WriteFile(t, path, ExifPNG(t, Light(w, h), dateTime))
}

// WebPContainer builds a RIFF WebP stream from raw chunks, fixing up the
// RIFF size. Each chunk is a fourcc and its body.
func WebPContainer(chunks ...[2]string) []byte {
	var body []byte
	body = append(body, "WEBP"...)
	for _, c := range chunks {
		body = append(body, c[0]...)
		body = binary.LittleEndian.AppendUint32(body, uint32(len(c[1])))
		body = append(body, c[1]...)
		if len(c[1])%2 == 1 {
			body = append(body, 0)
		}
	}
	out := append([]byte("RIFF"), binary.LittleEndian.AppendUint32(nil, uint32(len(body)))...)
	return append(out, body...)
}

// ExifWebP encodes img as lossless WebP and appends an EXIF chunk holding
// dateTime.
func ExifWebP(t testing.TB, img image.Image, dateTime string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("failed to encode WebP: %v", err)
	}
	data := buf.Bytes()

	exifChunk := WebPContainer([2]string{"EXIF", string(ExifTIFF(dateTime))})[12:]
	out := append([]byte{}, data...)
	out = append(out, exifChunk...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}

// WriteExifWebP writes a w×h WebP with the given DateTime to path.
func WriteExifWebP(t testing.TB, path string, w, h int, dateTime string) {
	t.Helper()
	WriteFile(t, path, ExifWebP(t, Light(w, h), dateTime))
}

// WritePNG writes a w×h PNG without metadata to path.
func WritePNG(t testing.TB, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Light(w, h)); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	WriteFile(t, path, buf.Bytes())
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// DecodeFile decodes the image at path.
func DecodeFile(t testing.TB, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return img
}
