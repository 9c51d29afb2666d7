package selection

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = zstd.ZipMethodWinZip

func init() {
	// Level 12 maps to SpeedBestCompression; photographs are already
	// compressed so this mostly trims container overhead.
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
	zip.RegisterDecompressor(zipMethodZstd, zstd.ZipDecompressor())
}

// WriteArchive packs every regular file under root into a zstd-compressed
// ZIP at zipPath. Entry names are slash-separated paths relative to root, so
// the date-folder layout survives. A zipPath inside root is never packed
// into itself. Returns the number of entries written.
func WriteArchive(root, zipPath string) (int, error) {
	root, zipPath = filepath.Clean(root), filepath.Clean(zipPath)

	tmpFile, err := os.CreateTemp(filepath.Dir(zipPath), ".tmp-*.zip")
	if err != nil {
		return 0, fmt.Errorf("create temp ZIP: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	zipWriter := zip.NewWriter(tmpFile)
	count := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || path == tmpPath || path == zipPath {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if err := addArchiveEntry(zipWriter, path, filepath.ToSlash(rel)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		zipWriter.Close()
		tmpFile.Close()
		return 0, fmt.Errorf("archive %s: %w", root, err)
	}

	if err := zipWriter.Close(); err != nil {
		tmpFile.Close()
		return 0, fmt.Errorf("close ZIP writer: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("close ZIP file: %w", err)
	}
	if err := os.Rename(tmpPath, zipPath); err != nil {
		return 0, fmt.Errorf("move ZIP into place: %w", err)
	}

	log.Info().Str("root", root).Str("zip", zipPath).Int("entries", count).Msg("Selection archived")
	return count, nil
}

func addArchiveEntry(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zipMethodZstd

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create ZIP entry for %s: %w", name, err)
	}
	if _, err := io.Copy(writer, f); err != nil {
		return fmt.Errorf("write to ZIP for %s: %w", name, err)
	}
	return nil
}
