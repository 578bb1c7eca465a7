package lidar

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha
// This is needed for the canvas library which expects premultiplied RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorOverlay renders projected points as circles over the photograph.
// One canvas unit is one image pixel.
type VectorOverlay struct {
	Photo      image.Image
	Points     []ProjectedPoint
	Render     RenderConfig
	Resolution canvas.Resolution // resolution for PNG output (default: 1 dot per unit)
}

// NewVectorOverlay creates a vector overlay with default settings
func NewVectorOverlay(photo image.Image, points []ProjectedPoint, cfg RenderConfig) *VectorOverlay {
	return &VectorOverlay{
		Photo:      photo,
		Points:     points,
		Render:     cfg,
		Resolution: canvas.DPMM(1.0),
	}
}

// canvasRenderer is the subset of canvas renderers used here; svg and rasterizer implement it
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
	RenderImage(img image.Image, m canvas.Matrix)
}

func (r *VectorOverlay) size() (float64, float64) {
	b := r.Photo.Bounds()
	return float64(b.Dx()), float64(b.Dy())
}

// RenderToSVG writes the overlay as an SVG to the provided writer
func (r *VectorOverlay) RenderToSVG(w io.Writer) error {
	width, height := r.size()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, height)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the overlay through canvas and writes a PNG
func (r *VectorOverlay) RenderToPNG(w io.Writer) error {
	width, height := r.size()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, height)
	return png.Encode(w, rast)
}

// renderToCanvas draws the photograph and one circle per point.
// Canvas coordinates grow upwards, so image rows are flipped against height.
func (r *VectorOverlay) renderToCanvas(renderer canvasRenderer, height float64) {
	renderer.RenderImage(r.Photo, canvas.Identity)

	radius := float64(r.Render.DiscRadius)
	if radius <= 0 {
		radius = DefaultDiscRadius
	}
	alpha := clampByte(255 * r.Render.Opacity)
	origin := r.Photo.Bounds().Min

	for _, p := range r.Points {
		c := GradientColor(ValueFraction(p.Value, r.Render.ValueRange))
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: nrgbaToRGBA(color.NRGBA{c.R, c.G, c.B, alpha})}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}

		x := p.U - float64(origin.X)
		y := height - (p.V - float64(origin.Y))
		renderer.RenderPath(canvas.Circle(radius), style, canvas.Identity.Translate(x, y))
	}
}
