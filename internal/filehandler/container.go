package filehandler

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxExifChunk bounds the EXIF payload read from PNG and WebP containers.
const maxExifChunk = 16 << 20

// errNoExifChunk means the container was walked to the end without an EXIF chunk.
var errNoExifChunk = errors.New("no EXIF chunk in container")

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// pngExifPayload returns the body of a PNG eXIf chunk: a bare TIFF block.
func pngExifPayload(r io.Reader) ([]byte, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, fmt.Errorf("failed to read PNG signature: %w", err)
	}
	if string(sig) != string(pngSignature) {
		return nil, errors.New("not a PNG stream")
	}

	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errNoExifChunk
			}
			return nil, err
		}
		length := binary.BigEndian.Uint32(header[:4])
		kind := string(header[4:])

		switch kind {
		case "eXIf":
			return readChunk(r, length)
		case "IEND":
			return nil, errNoExifChunk
		}
		// Skip the body and its CRC.
		if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
			return nil, errNoExifChunk
		}
	}
}

// webpExifPayload returns the body of a WebP RIFF EXIF chunk. Writers vary
// on whether it starts with "Exif\x00\x00"; goexif accepts both.
func webpExifPayload(r io.Reader) ([]byte, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("failed to read RIFF header: %w", err)
	}
	if string(riff[:4]) != "RIFF" || string(riff[8:]) != "WEBP" {
		return nil, errors.New("not a WebP stream")
	}

	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errNoExifChunk
			}
			return nil, err
		}
		fourcc := string(header[:4])
		size := binary.LittleEndian.Uint32(header[4:])

		if fourcc == "EXIF" {
			return readChunk(r, size)
		}
		// Chunk bodies are padded to an even length.
		skip := int64(size) + int64(size&1)
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return nil, errNoExifChunk
		}
	}
}

func readChunk(r io.Reader, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, errNoExifChunk
	}
	if length > maxExifChunk {
		return nil, fmt.Errorf("EXIF chunk too large: %d bytes", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read EXIF chunk: %w", err)
	}
	return data, nil
}
