package filehandler

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/fpang/photo-batch/internal/testutil"
)

func TestExtractMetadata_ValidDate(t *testing.T) {
	data := testutil.ExifJPEG(t, testutil.Light(20, 10), "2022:07:10 14:03:59")

	result := ExtractMetadata("valid.jpg", FormatJPEG, bytes.NewReader(data))
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if !result.HasDate {
		t.Fatal("HasDate = false, want true")
	}
	want := time.Date(2022, 7, 10, 0, 0, 0, 0, time.UTC)
	if !result.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", result.Date, want)
	}
	if result.Tags[DateTimeTag] != "2022:07:10 14:03:59" {
		t.Errorf("Tags[DateTime] = %q", result.Tags[DateTimeTag])
	}
	if result.Provider != "goexif" {
		t.Errorf("Provider = %q, want goexif", result.Provider)
	}
}

func TestExtractMetadata_MalformedDate(t *testing.T) {
	data := testutil.ExifJPEG(t, testutil.Light(20, 10), "last tuesday, roughly")

	result := ExtractMetadata("bad.jpg", FormatJPEG, bytes.NewReader(data))
	if result.HasDate {
		t.Fatal("HasDate = true, want false")
	}
	if !errors.Is(result.Err, ErrDateMalformed) {
		t.Errorf("Err = %v, want ErrDateMalformed", result.Err)
	}
	var dateErr *DateError
	if !errors.As(result.Err, &dateErr) {
		t.Fatalf("Err is %T, want *DateError", result.Err)
	}
	if dateErr.Path != "bad.jpg" || dateErr.Value != "last tuesday, roughly" {
		t.Errorf("DateError = %+v", dateErr)
	}
}

func TestExtractMetadata_NoExif(t *testing.T) {
	data := testutil.ExifJPEG(t, testutil.Light(20, 10), "")

	result := ExtractMetadata("plain.jpg", FormatJPEG, bytes.NewReader(data))
	if result.HasDate {
		t.Fatal("HasDate = true, want false")
	}
	if !errors.Is(result.Err, ErrNoMetadata) && !errors.Is(result.Err, ErrDateMissing) {
		t.Errorf("Err = %v, want ErrNoMetadata or ErrDateMissing", result.Err)
	}
	if result.Tags == nil {
		t.Error("Tags should never be nil")
	}
}

func TestExtractMetadata_FormatWithoutProvider(t *testing.T) {
	result := ExtractMetadata("a.gif", FormatGIF, bytes.NewReader([]byte("GIF89a")))
	if !errors.Is(result.Err, ErrNoMetadata) {
		t.Errorf("Err = %v, want ErrNoMetadata", result.Err)
	}
}

func TestParseCaptureDate(t *testing.T) {
	tests := []struct {
		name    string
		tags    map[string]string
		want    time.Time
		wantErr error
	}{
		{"valid", map[string]string{"DateTime": "2023:01:31 23:59:59"}, time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), nil},
		{"surrounding space", map[string]string{"DateTime": " 2023:01:31 00:00:00 "}, time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), nil},
		{"missing", map[string]string{"Make": "Canon"}, time.Time{}, ErrDateMissing},
		{"blank", map[string]string{"DateTime": "   "}, time.Time{}, ErrDateMissing},
		{"dashes", map[string]string{"DateTime": "2023-01-31 10:00:00"}, time.Time{}, ErrDateMalformed},
		{"date only", map[string]string{"DateTime": "2023:01:31"}, time.Time{}, ErrDateMalformed},
		{"zeroed", map[string]string{"DateTime": "0000:00:00 00:00:00"}, time.Time{}, ErrDateMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCaptureDate("x.jpg", tt.tags)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractMetadata_PNGeXIf(t *testing.T) {
	data := testutil.ExifPNG(t, testutil.Light(20, 10), "2023:05:01 10:00:00")

	result := ExtractMetadata("a.png", FormatPNG, bytes.NewReader(data))
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if !result.HasDate || !result.Date.Equal(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("HasDate = %v, Date = %v; want 2023-05-01", result.HasDate, result.Date)
	}
	if result.Provider != "goexif" {
		t.Errorf("Provider = %q, want goexif", result.Provider)
	}
}

func TestExtractMetadata_PNGWithoutExif(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testutil.Light(4, 4)); err != nil {
		t.Fatal(err)
	}

	result := ExtractMetadata("plain.png", FormatPNG, bytes.NewReader(buf.Bytes()))
	if !errors.Is(result.Err, ErrNoMetadata) {
		t.Errorf("Err = %v, want ErrNoMetadata", result.Err)
	}
}

func TestExtractMetadata_WebPEXIF(t *testing.T) {
	tiffBlock := string(testutil.ExifTIFF("2023:05:02 11:00:00"))
	tests := []struct {
		name   string
		chunks [][2]string
	}{
		{"bare TIFF after image", [][2]string{{"VP8L", "odd"}, {"EXIF", tiffBlock}}},
		{"Exif prefix", [][2]string{{"VP8X", "0123456789"}, {"EXIF", "Exif\x00\x00" + tiffBlock}, {"VP8L", "data"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.WebPContainer(tt.chunks...)
			if got := DetectFormat(data); got != FormatWebP {
				t.Fatalf("DetectFormat = %q, want webp", got)
			}

			result := ExtractMetadata("a.webp", FormatWebP, bytes.NewReader(data))
			if result.Err != nil {
				t.Fatalf("unexpected error: %v", result.Err)
			}
			if !result.Date.Equal(time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("Date = %v, want 2023-05-02", result.Date)
			}
		})
	}
}

func TestExtractMetadata_WebPWithoutExif(t *testing.T) {
	data := testutil.WebPContainer([2]string{"VP8L", "data"})

	result := ExtractMetadata("plain.webp", FormatWebP, bytes.NewReader(data))
	if !errors.Is(result.Err, ErrNoMetadata) {
		t.Errorf("Err = %v, want ErrNoMetadata", result.Err)
	}
}

func TestExtractMetadata_EncodedWebP(t *testing.T) {
	data := testutil.ExifWebP(t, testutil.Light(16, 12), "2023:06:07 08:09:10")

	result := ExtractMetadata("real.webp", FormatWebP, bytes.NewReader(data))
	if !result.HasDate || result.Tags[DateTimeTag] != "2023:06:07 08:09:10" {
		t.Errorf("HasDate = %v, DateTime = %q, err = %v", result.HasDate, result.Tags[DateTimeTag], result.Err)
	}
}
