package lidar

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// GradientColor maps t in [0, 1] onto the red/green overlay gradient.
// t = 0 is pure green, t = 1 is pure red.
func GradientColor(t float64) color.RGBA {
	t = clamp01(t)
	return color.RGBA{
		R: clampByte(255 * t),
		G: clampByte(255 * (1 - t)),
		B: 0,
		A: 255,
	}
}

// clampByte truncates a channel value into [0, 255]
func clampByte(v float64) uint8 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// pixelCenter rounds a projected coordinate to the pixel the disc is centered on
func pixelCenter(p ProjectedPoint) (int, int) {
	return int(math.Round(p.U)), int(math.Round(p.V))
}

// fillDisc calls set for every pixel of a filled disc that lies inside bounds
func fillDisc(bounds image.Rectangle, cx, cy, radius int, set func(x, y int)) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			x, y := cx+dx, cy+dy
			if image.Pt(x, y).In(bounds) {
				set(x, y)
			}
		}
	}
}

// RenderDepth rasterizes projected points into a zero-filled 16-bit depth image.
// Points are drawn in order, so later points win where discs overlap.
func RenderDepth(bounds image.Rectangle, points []ProjectedPoint, cfg RenderConfig) *image.Gray16 {
	img := image.NewGray16(bounds)
	for _, p := range points {
		c := color.Gray16{Y: Quantize16(ValueFraction(p.Value, cfg.ValueRange))}
		cx, cy := pixelCenter(p)
		fillDisc(bounds, cx, cy, cfg.DiscRadius, func(x, y int) {
			img.SetGray16(x, y, c)
		})
	}
	return img
}

// RenderOverlay draws colored discs on a scratch copy of the photograph and blends
// the scratch layer onto the original with cfg.Opacity. The photograph is not modified.
func RenderOverlay(photo *image.RGBA, points []ProjectedPoint, cfg RenderConfig) *image.RGBA {
	bounds := photo.Bounds()
	scratch := image.NewRGBA(bounds)
	draw.Draw(scratch, bounds, photo, bounds.Min, draw.Src)

	for _, p := range points {
		c := GradientColor(ValueFraction(p.Value, cfg.ValueRange))
		cx, cy := pixelCenter(p)
		fillDisc(bounds, cx, cy, cfg.DiscRadius, func(x, y int) {
			scratch.SetRGBA(x, y, c)
		})
	}

	out := blendLayers(scratch, photo, cfg.Opacity)
	if cfg.Legend {
		drawLegend(out, cfg.ValueRange)
	}
	return out
}

// blendLayers computes alpha*fg + (1-alpha)*bg per channel, rounding and saturating
func blendLayers(fg, bg *image.RGBA, alpha float64) *image.RGBA {
	b := bg.Bounds()
	out := image.NewRGBA(b)
	inv := 1 - alpha
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			fi, bi, oi := fg.PixOffset(x, y), bg.PixOffset(x, y), out.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				v := alpha*float64(fg.Pix[fi+c]) + inv*float64(bg.Pix[bi+c])
				out.Pix[oi+c] = clampByte(math.Round(v))
			}
		}
	}
	return out
}

// DepthPreview stretches the non-zero range of a depth image to 8 bits for viewing
func DepthPreview(img *image.Gray16) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)

	lo, hi := uint16(math.MaxUint16), uint16(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.Gray16At(x, y).Y
			if v == 0 {
				continue
			}
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	if hi == 0 {
		return out
	}

	span := float64(hi) - float64(lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.Gray16At(x, y).Y
			if v == 0 {
				continue
			}
			level := 255.0
			if span > 0 {
				level = 55 + 200*(float64(v)-float64(lo))/span
			}
			out.SetGray(x, y, color.Gray{Y: uint8(level)})
		}
	}
	return out
}

// drawLegend adds a gradient bar with distance labels to the top-left corner
func drawLegend(img *image.RGBA, valueRange float64) {
	if valueRange <= 0 {
		valueRange = DefaultValueRange
	}
	const (
		left   = 10
		top    = 10
		width  = 160
		height = 10
	)
	if img.Bounds().Dx() < left+width+10 || img.Bounds().Dy() < top+height+20 {
		return
	}

	for dx := 0; dx < width; dx++ {
		dist := 2 * valueRange * float64(dx) / float64(width-1)
		c := GradientColor(ValueFraction(dist, valueRange))
		for dy := 0; dy < height; dy++ {
			img.SetRGBA(left+dx, top+dy, c)
		}
	}

	white := color.RGBA{255, 255, 255, 255}
	labelY := top + height + 13
	drawText(img, left, labelY, "0m", white)
	drawText(img, left+width/2-10, labelY, fmt.Sprintf("%.0fm", valueRange), white)
	drawText(img, left+width-24, labelY, fmt.Sprintf("%.0fm", 2*valueRange), white)
}

// drawText renders text onto an image at the specified baseline position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
