package imagediff

import (
	"bytes"
	"math"
)

// maxYIQDelta is the largest possible squared YIQ distance between two colours
const maxYIQDelta = 35215.0

// matcher walks two equally sized RGBA buffers and paints the diff output
type matcher struct {
	img1, img2 []uint8
	out        []uint8
	width      int
	height     int
	maxDelta   float64
	alpha      float64
	countAA    bool
}

func (m *matcher) run() int {
	if bytes.Equal(m.img1, m.img2) {
		for i := 0; i < len(m.img1); i += 4 {
			m.drawGray(i, m.img1)
		}
		return 0
	}

	diff := 0
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			pos := (y*m.width + x) * 4
			delta := colorDelta(m.img1, m.img2, pos, pos, false)

			if math.Abs(delta) <= m.maxDelta {
				m.drawGray(pos, m.img1)
				continue
			}

			if !m.countAA && (m.antialiased(m.img1, x, y, m.img2) || m.antialiased(m.img2, x, y, m.img1)) {
				m.drawPixel(pos, AntiAliasColor.R, AntiAliasColor.G, AntiAliasColor.B)
				continue
			}

			m.drawPixel(pos, DiffColor.R, DiffColor.G, DiffColor.B)
			diff++
		}
	}
	return diff
}

func (m *matcher) drawPixel(pos int, r, g, b uint8) {
	m.out[pos] = r
	m.out[pos+1] = g
	m.out[pos+2] = b
	m.out[pos+3] = 255
}

// drawGray paints a faded grayscale copy of the source pixel
func (m *matcher) drawGray(pos int, img []uint8) {
	r := float64(img[pos])
	g := float64(img[pos+1])
	b := float64(img[pos+2])
	a := float64(img[pos+3])
	v := blend(rgb2y(r, g, b), m.alpha*a/255)
	c := uint8(math.Round(math.Max(0, math.Min(255, v))))
	m.drawPixel(pos, c, c, c)
}

// antialiased reports whether the pixel at (x1, y1) of img looks like an
// anti-aliased edge, checking its 3x3 neighbourhood in both images
func (m *matcher) antialiased(img []uint8, x1, y1 int, other []uint8) bool {
	x0 := max(x1-1, 0)
	y0 := max(y1-1, 0)
	x2 := min(x1+1, m.width-1)
	y2 := min(y1+1, m.height-1)
	pos := (y1*m.width + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}
	var minDelta, maxDelta float64
	var minX, minY, maxX, maxY int

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}

			delta := colorDelta(img, img, pos, (y*m.width+x)*4, true)
			switch {
			case delta == 0:
				zeroes++
				if zeroes > 2 {
					return false
				}
			case delta < minDelta:
				minDelta = delta
				minX, minY = x, y
			case delta > maxDelta:
				maxDelta = delta
				maxX, maxY = x, y
			}
		}
	}

	// no darker or no brighter neighbour means this is not an edge
	if minDelta == 0 || maxDelta == 0 {
		return false
	}

	return (m.hasManySiblings(img, minX, minY) && m.hasManySiblings(other, minX, minY)) ||
		(m.hasManySiblings(img, maxX, maxY) && m.hasManySiblings(other, maxX, maxY))
}

// hasManySiblings reports whether more than two neighbours share the exact colour of (x1, y1)
func (m *matcher) hasManySiblings(img []uint8, x1, y1 int) bool {
	x0 := max(x1-1, 0)
	y0 := max(y1-1, 0)
	x2 := min(x1+1, m.width-1)
	y2 := min(y1+1, m.height-1)
	pos := (y1*m.width + x1) * 4

	zeroes := 0
	if x1 == x0 || x1 == x2 || y1 == y0 || y1 == y2 {
		zeroes = 1
	}

	for x := x0; x <= x2; x++ {
		for y := y0; y <= y2; y++ {
			if x == x1 && y == y1 {
				continue
			}
			pos2 := (y*m.width + x) * 4
			if img[pos] == img[pos2] &&
				img[pos+1] == img[pos2+1] &&
				img[pos+2] == img[pos2+2] &&
				img[pos+3] == img[pos2+3] {
				zeroes++
			}
			if zeroes > 2 {
				return true
			}
		}
	}
	return false
}

// colorDelta returns the squared YIQ distance between two pixels, negative
// when the first pixel is brighter. With yOnly set only luminance is compared.
func colorDelta(img1, img2 []uint8, k, l int, yOnly bool) float64 {
	r1, g1, b1, a1 := float64(img1[k]), float64(img1[k+1]), float64(img1[k+2]), float64(img1[k+3])
	r2, g2, b2, a2 := float64(img2[l]), float64(img2[l+1]), float64(img2[l+2]), float64(img2[l+3])

	if a1 == a2 && r1 == r2 && g1 == g2 && b1 == b2 {
		return 0
	}

	if a1 < 255 {
		a1 /= 255
		r1, g1, b1 = blend(r1, a1), blend(g1, a1), blend(b1, a1)
	}
	if a2 < 255 {
		a2 /= 255
		r2, g2, b2 = blend(r2, a2), blend(g2, a2), blend(b2, a2)
	}

	y1 := rgb2y(r1, g1, b1)
	y2 := rgb2y(r2, g2, b2)
	y := y1 - y2

	if yOnly {
		return y
	}

	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q
	if y1 > y2 {
		return -delta
	}
	return delta
}

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

// blend composites a channel value over a white background
func blend(c, a float64) float64 {
	return 255 + (c-255)*a
}
