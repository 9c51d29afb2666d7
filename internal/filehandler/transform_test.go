package filehandler

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/fpang/photo-batch/internal/testutil"
)

const testText = "(C) MIVS"

func newTestTransformer(t *testing.T) *Transformer {
	t.Helper()
	tr, err := NewTransformer(800, Watermark{
		Text:             testText,
		FontRatio:        2,
		DiagonalFraction: 0.6,
		Opacity:          51,
	})
	if err != nil {
		t.Fatalf("NewTransformer failed: %v", err)
	}
	return tr
}

var geometryCases = []struct{ w, h int }{
	{800, 600}, {600, 800}, {1, 1}, {4000, 3000}, {3024, 4032}, {800, 800}, {1920, 1080}, {17, 999},
}

func TestComputeWatermarkGeometry_FontSize(t *testing.T) {
	L := float64(len(testText))
	for _, c := range geometryCases {
		g := ComputeWatermarkGeometry(c.w, c.h, len(testText), 2, 0.6)
		want := int(math.Floor(0.6 * math.Sqrt(float64(c.w*c.w+c.h*c.h)) / (L / 2)))
		if g.FontSize != want {
			t.Errorf("%dx%d: FontSize = %d, want %d", c.w, c.h, g.FontSize, want)
		}
	}

	// 800x600 has a 1000px diagonal: 600 / (8/2) = 150.
	if g := ComputeWatermarkGeometry(800, 600, 8, 2, 0.6); g.FontSize != 150 || g.Diagonal != 1000 {
		t.Errorf("800x600: FontSize = %d, Diagonal = %v; want 150, 1000", g.FontSize, g.Diagonal)
	}
}

func TestComputeWatermarkGeometry_Angle(t *testing.T) {
	for _, c := range geometryCases {
		g := ComputeWatermarkGeometry(c.w, c.h, len(testText), 2, 0.6)
		want := math.Atan(float64(c.h)/float64(c.w)) * 180 / math.Pi
		if math.Abs(g.AngleDegrees-want) > 1e-9 {
			t.Errorf("%dx%d: AngleDegrees = %v, want %v", c.w, c.h, g.AngleDegrees, want)
		}
	}
	if g := ComputeWatermarkGeometry(500, 500, 8, 2, 0.6); math.Abs(g.AngleDegrees-45) > 1e-9 {
		t.Errorf("square image angle = %v, want 45", g.AngleDegrees)
	}
}

func TestComputeWatermarkGeometry_FontRatioIsTunable(t *testing.T) {
	a := ComputeWatermarkGeometry(800, 600, 8, 2, 0.6)
	b := ComputeWatermarkGeometry(800, 600, 8, 4, 0.6)
	if b.FontSize != 2*a.FontSize {
		t.Errorf("doubling the ratio gave %d, want %d", b.FontSize, 2*a.FontSize)
	}
}

func TestThumbnailSize(t *testing.T) {
	tests := []struct {
		w, h, wantW, wantH int
	}{
		{4000, 3000, 800, 600},
		{3000, 4000, 600, 800},
		{1000, 1000, 800, 800},
		{640, 480, 640, 480},
		{801, 10, 800, 10},
		{10000, 3, 800, 1},
		{1203, 1601, 601, 800},
	}

	for _, tt := range tests {
		gotW, gotH := ThumbnailSize(tt.w, tt.h, 800)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("ThumbnailSize(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestThumbnailSize_BoundedAndAspectPreserved(t *testing.T) {
	for w := 1; w <= 3000; w += 97 {
		for h := 1; h <= 3000; h += 89 {
			nw, nh := ThumbnailSize(w, h, 800)
			if nw > 800 || nh > 800 || nw < 1 || nh < 1 {
				t.Fatalf("ThumbnailSize(%d, %d) = %dx%d out of bounds", w, h, nw, nh)
			}
			if nw > w || nh > h {
				t.Fatalf("ThumbnailSize(%d, %d) = %dx%d upscaled", w, h, nw, nh)
			}
			// The short side implied by the long side must be within a pixel.
			implied, got := float64(nw)*float64(h)/float64(w), nh
			if h > w {
				implied, got = float64(nh)*float64(w)/float64(h), nw
			}
			if math.Abs(implied-float64(got)) >= 1 {
				t.Fatalf("ThumbnailSize(%d, %d) = %dx%d distorts aspect (implied %.2f)", w, h, nw, nh, implied)
			}
		}
	}
}

func TestResize(t *testing.T) {
	tr := newTestTransformer(t)

	out := tr.Resize(testutil.Light(1600, 900))
	if out.Bounds().Dx() != 800 || out.Bounds().Dy() != 450 {
		t.Errorf("Resize(1600x900) = %v, want 800x450", out.Bounds())
	}

	src := testutil.Light(300, 200)
	small := tr.Resize(src)
	if small.Bounds() != src.Bounds() {
		t.Errorf("Resize(300x200) = %v, want unchanged", small.Bounds())
	}
	small.Set(0, 0, color.Black)
	if src.RGBAAt(0, 0) == small.RGBAAt(0, 0) {
		t.Error("Resize must return a copy, not the source buffer")
	}
}

func TestApplyWatermark_LandscapeAndPortrait(t *testing.T) {
	tr := newTestTransformer(t)

	for _, size := range []struct{ w, h int }{{800, 600}, {600, 800}, {800, 300}} {
		original := testutil.Light(size.w, size.h)
		marked := image.NewRGBA(original.Bounds())
		copy(marked.Pix, original.Pix)

		geom, err := tr.ApplyWatermark(marked)
		if err != nil {
			t.Fatalf("%dx%d: ApplyWatermark failed: %v", size.w, size.h, err)
		}
		if geom.FontSize < 1 {
			t.Fatalf("%dx%d: FontSize = %d", size.w, size.h, geom.FontSize)
		}

		changed, darker := 0, 0
		cx, cy := size.w/2, size.h/2
		r := min(size.w, size.h) / 4
		for y := cy - r; y < cy+r; y++ {
			for x := cx - r; x < cx+r; x++ {
				o, m := original.RGBAAt(x, y), marked.RGBAAt(x, y)
				if o != m {
					changed++
					if m.R < o.R || m.G < o.G || m.B < o.B {
						darker++
					}
				}
			}
		}
		if changed == 0 {
			t.Errorf("%dx%d: watermark did not change the centre region", size.w, size.h)
		}
		if darker != changed {
			t.Errorf("%dx%d: %d of %d changed pixels were not darkened", size.w, size.h, changed-darker, changed)
		}

		// Faint: no pixel darkens by more than ~20% of its value.
		for i := 0; i < len(marked.Pix); i += 4 {
			if int(original.Pix[i])-int(marked.Pix[i]) > 60 {
				t.Fatalf("%dx%d: pixel darkened from %d to %d, watermark too opaque", size.w, size.h, original.Pix[i], marked.Pix[i])
			}
		}

		// The text rises from bottom-left to top-right, so the other two corners stay clean.
		for _, p := range []image.Point{{0, 0}, {size.w - 1, size.h - 1}} {
			if original.RGBAAt(p.X, p.Y) != marked.RGBAAt(p.X, p.Y) {
				t.Errorf("%dx%d: off-diagonal corner %v changed", size.w, size.h, p)
			}
		}
	}
}

func TestApplyWatermark_TinyImageUntouched(t *testing.T) {
	tr := newTestTransformer(t)
	img := testutil.Light(3, 3)
	before := append([]byte(nil), img.Pix...)

	geom, err := tr.ApplyWatermark(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geom.FontSize != 0 {
		t.Errorf("FontSize = %d, want 0", geom.FontSize)
	}
	for i := range before {
		if before[i] != img.Pix[i] {
			t.Fatal("tiny image was modified")
		}
	}
}

func TestRotateExpand(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 20))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	same := rotateExpand(src, 0)
	if same.Bounds().Dx() != 100 || same.Bounds().Dy() != 20 {
		t.Errorf("rotate 0: bounds = %v, want 100x20", same.Bounds())
	}

	quarter := rotateExpand(src, 90)
	if quarter.Bounds().Dx() != 20 || quarter.Bounds().Dy() != 100 {
		t.Errorf("rotate 90: bounds = %v, want 20x100", quarter.Bounds())
	}

	diag := rotateExpand(src, 45)
	want := int(math.Ceil(120 / math.Sqrt2))
	if diag.Bounds().Dx() != want || diag.Bounds().Dy() != want {
		t.Errorf("rotate 45: bounds = %v, want %dx%d", diag.Bounds(), want, want)
	}
	// Counter-clockwise: the right end of the bar rises to the top-right.
	if diag.RGBAAt(want-want/5, want/5).A == 0 {
		t.Error("rotate 45: expected content in the upper right")
	}
	if diag.RGBAAt(want/5, want/5).A != 0 {
		t.Error("rotate 45: expected the upper left to stay transparent")
	}
}
