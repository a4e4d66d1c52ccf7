// Package imagediff computes per-pixel differences between two raster images.
package imagediff

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

// Default option values
const (
	DefaultPixelThreshold = 0.1
	DefaultAlpha          = 0.1
)

var (
	// MismatchColor fills the diff canvas when image dimensions differ
	MismatchColor = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	// DiffColor marks pixels counted as different
	DiffColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	// AntiAliasColor marks differing pixels excluded as anti-aliased edges
	AntiAliasColor = color.NRGBA{R: 255, G: 255, B: 0, A: 255}
)

// Options configures a comparison
type Options struct {
	// PixelThreshold is the per-pixel colour tolerance: 0 requires an exact
	// match, 1 tolerates any difference
	PixelThreshold float64
	// IncludeAntiAliasing counts anti-aliased edge pixels as differences
	IncludeAntiAliasing bool
	// Alpha is the opacity of unchanged pixels drawn in the diff image
	Alpha float64
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		PixelThreshold: DefaultPixelThreshold,
		Alpha:          DefaultAlpha,
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	if !(o.PixelThreshold >= 0 && o.PixelThreshold <= 1) {
		return &models.ValidationError{
			Field:   "pixel_threshold",
			Message: "must be between 0 and 1",
		}
	}
	if !(o.Alpha >= 0 && o.Alpha <= 1) {
		return &models.ValidationError{
			Field:   "alpha",
			Message: "must be between 0 and 1",
		}
	}
	return nil
}

// Result holds the outcome of comparing two images
type Result struct {
	DiffPixels     int
	TotalPixels    int
	DiffPercentage float64
	// SizeMismatch is set when the inputs had different dimensions
	SizeMismatch bool
	// Diff is the highlighted difference image, nil when DiffPixels is 0
	Diff *image.NRGBA
}

// Compare diffs two decoded images. Images with different dimensions are
// not compared pixel by pixel: the whole larger canvas counts as different.
func Compare(baseline, current *image.NRGBA, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	bb := baseline.Bounds()
	cb := current.Bounds()
	if bb.Dx() != cb.Dx() || bb.Dy() != cb.Dy() {
		return compareMismatched(bb, cb), nil
	}

	width, height := bb.Dx(), bb.Dy()
	total := width * height
	if total == 0 {
		return &Result{}, nil
	}

	img1 := normalize(baseline)
	img2 := normalize(current)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	m := &matcher{
		img1:     img1.Pix,
		img2:     img2.Pix,
		out:      out.Pix,
		width:    width,
		height:   height,
		maxDelta: maxYIQDelta * opts.PixelThreshold * opts.PixelThreshold,
		alpha:    opts.Alpha,
		countAA:  opts.IncludeAntiAliasing,
	}
	diff := m.run()

	res := &Result{
		DiffPixels:     diff,
		TotalPixels:    total,
		DiffPercentage: percentage(diff, total),
	}
	if diff > 0 {
		res.Diff = out
	}
	return res, nil
}

// compareMismatched builds the result for images of different sizes
func compareMismatched(a, b image.Rectangle) *Result {
	total := max(a.Dx()*a.Dy(), b.Dx()*b.Dy())
	canvas := image.NewNRGBA(image.Rect(0, 0, max(a.Dx(), b.Dx()), max(a.Dy(), b.Dy())))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: MismatchColor}, image.Point{}, draw.Src)

	return &Result{
		DiffPixels:     total,
		TotalPixels:    total,
		DiffPercentage: 100,
		SizeMismatch:   true,
		Diff:           canvas,
	}
}

// normalize returns an image whose Pix slice starts at the origin with a
// tight stride, copying only when needed
func normalize(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	if b.Min == (image.Point{}) && img.Stride == 4*b.Dx() {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func percentage(diff, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(diff) * 100 / float64(total)
}
