package lidar

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage decodes a photograph into an RGBA buffer with its origin at (0, 0)
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Kind: ImageLoad, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, &LoadError{Kind: ImageLoad, Path: path, Err: fmt.Errorf("decoding image: %w", err)}
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, &LoadError{Kind: ImageLoad, Path: path, Err: fmt.Errorf("empty %s image", format)}
	}
	return ToRGBA(src), nil
}

// ToRGBA copies any image into a fresh RGBA buffer anchored at the origin
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
