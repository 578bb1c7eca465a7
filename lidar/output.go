package lidar

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// FrameFileName returns the zero-padded output name of a frame
func FrameFileName(index int) string {
	return fmt.Sprintf("%010d.png", index)
}

// EncodePNG encodes an image to PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes an image to path
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// SaveDepthImage writes a depth image into dir under name, creating dir when absent
func SaveDepthImage(dir, name string, img *image.Gray16) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := SavePNG(path, img); err != nil {
		return "", fmt.Errorf("failed to save image to %s: %w", path, err)
	}
	return path, nil
}
