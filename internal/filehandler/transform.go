package filehandler

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

// Watermark describes the diagonal text overlay.
type Watermark struct {
	Text string

	// FontRatio tunes glyph width against font size for the chosen face.
	FontRatio float64

	// DiagonalFraction is the share of the image diagonal the text spans.
	DiagonalFraction float64

	// Opacity is the alpha of the black fill.
	Opacity uint8

	Font *opentype.Font
}

// WatermarkGeometry is the layout derived from the image dimensions.
type WatermarkGeometry struct {
	Diagonal     float64
	Span         float64
	FontSize     int
	AngleDegrees float64
}

// ComputeWatermarkGeometry derives font size and rotation for a w×h image:
//
//	D     = sqrt(w² + h²)
//	span  = D * fraction
//	size  = floor(span / (textLen / ratio))
//	angle = degrees(atan(h / w))
func ComputeWatermarkGeometry(w, h, textLen int, ratio, fraction float64) WatermarkGeometry {
	diagonal := math.Sqrt(float64(w)*float64(w) + float64(h)*float64(h))
	span := diagonal * fraction
	size := 0
	if textLen > 0 && ratio > 0 {
		size = int(math.Floor(span / (float64(textLen) / ratio)))
	}
	angle := 0.0
	if w > 0 {
		angle = math.Atan(float64(h)/float64(w)) * 180 / math.Pi
	}
	return WatermarkGeometry{
		Diagonal:     diagonal,
		Span:         span,
		FontSize:     size,
		AngleDegrees: angle,
	}
}

// ThumbnailSize bounds w×h within limit×limit, preserving aspect ratio and
// never upscaling.
func ThumbnailSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	scale := math.Min(float64(limit)/float64(w), float64(limit)/float64(h))
	return clampDim(int(math.Round(float64(w)*scale)), limit), clampDim(int(math.Round(float64(h)*scale)), limit)
}

func clampDim(v, limit int) int {
	return min(max(v, 1), limit)
}

// Transformer resizes and watermarks images.
type Transformer struct {
	maxDimension int
	watermark    Watermark
}

// NewTransformer creates a Transformer. A nil Font selects Go Regular.
func NewTransformer(maxDimension int, wm Watermark) (*Transformer, error) {
	if wm.Font == nil {
		f, err := LoadFont("")
		if err != nil {
			return nil, err
		}
		wm.Font = f
	}
	return &Transformer{maxDimension: maxDimension, watermark: wm}, nil
}

// Resize returns an RGBA copy of img bounded within the configured box,
// resampled with Catmull-Rom. The copy is always fresh so callers may draw
// on it.
func (t *Transformer) Resize(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	newWidth, newHeight := ThumbnailSize(origWidth, origHeight, t.maxDimension)

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	if newWidth == origWidth && newHeight == origHeight {
		draw.Draw(resized, resized.Bounds(), img, bounds.Min, draw.Src)
		return resized
	}
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Src, nil)

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Msg("Image resized")

	return resized
}

// ApplyWatermark draws the diagonal watermark onto dst in place and returns
// the geometry used. Images too small for a 1px font are left untouched.
func (t *Transformer) ApplyWatermark(dst *image.RGBA) (WatermarkGeometry, error) {
	b := dst.Bounds()
	wm := t.watermark
	geom := ComputeWatermarkGeometry(b.Dx(), b.Dy(), utf8.RuneCountInString(wm.Text), wm.FontRatio, wm.DiagonalFraction)
	if geom.FontSize < 1 {
		log.Debug().Int("width", b.Dx()).Int("height", b.Dy()).Msg("Image too small for watermark, skipping")
		return geom, nil
	}

	layer, err := renderText(wm.Font, wm.Text, geom.FontSize, color.NRGBA{A: wm.Opacity})
	if err != nil {
		return geom, err
	}
	rotated := rotateExpand(layer, geom.AngleDegrees)

	lb := rotated.Bounds()
	px := b.Min.X + (b.Dx()-lb.Dx())/2
	py := b.Min.Y + (b.Dy()-lb.Dy())/2
	draw.Draw(dst, image.Rect(px, py, px+lb.Dx(), py+lb.Dy()), rotated, lb.Min, draw.Over)

	log.Debug().
		Int("font_size", geom.FontSize).
		Float64("angle", geom.AngleDegrees).
		Int("layer_width", lb.Dx()).
		Int("layer_height", lb.Dy()).
		Msg("Watermark applied")

	return geom, nil
}

// renderText draws text onto a transparent layer sized to its measured box.
func renderText(f *opentype.Font, text string, size int, fill color.Color) (*image.RGBA, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	width := font.MeasureString(face, text).Ceil()
	height := ascent + metrics.Descent.Ceil()

	layer := image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	d := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(text)
	return layer, nil
}

// rotateExpand rotates src counter-clockwise by degrees about its centre,
// growing the canvas so no corner is clipped.
func rotateExpand(src *image.RGBA, degrees float64) *image.RGBA {
	sin, cos := math.Sincos(degrees * math.Pi / 180)
	w, h := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())

	nw := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin) - 1e-9))
	nh := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos) - 1e-9))
	dst := image.NewRGBA(image.Rect(0, 0, max(nw, 1), max(nh, 1)))

	cx, cy := w/2, h/2
	ncx, ncy := float64(nw)/2, float64(nh)/2
	// Source to destination: x' = cos·x + sin·y + tx, y' = -sin·x + cos·y + ty.
	s2d := f64.Aff3{
		cos, sin, ncx - cx*cos - cy*sin,
		-sin, cos, ncy + cx*sin - cy*cos,
	}
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Over, nil)
	return dst
}
