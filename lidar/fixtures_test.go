package lidar

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

const (
	testFocal = 700.0
	testCX    = 620.0
	testCY    = 187.0
	testW     = 1242
	testH     = 375
)

// sensorToCamText maps sensor axes (x forward, y left, z up) onto camera axes (x right, y down, z forward)
const sensorToCamText = `calib_time: 15-Mar-2012 11:37:16
R: 0 -1 0 0 0 -1 1 0 0
T: 0 0 0
delta_f: 0 0
`

func camToCamText() string {
	return fmt.Sprintf(`calib_time: 09-Jan-2012 13:57:47
corner_dist: 9.950000e-02
R_02: 1 0 0 0 1 0 0 0 1
T_02: 0 0 0
P_rect_02: %g 0 %g 0 0 %g %g 0 0 0 1 0
R_rect_02: 1 0 0 0 1 0 0 0 1
`, testFocal, testCX, testFocal, testCY)
}

// writeCalibDir writes a calibration directory and returns its path
func writeCalibDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "calib_velo_to_cam.txt"), sensorToCamText)
	writeFile(t, filepath.Join(dir, "calib_cam_to_cam.txt"), camToCamText())
	return dir
}

// testCalibration is the calibration writeCalibDir describes
func testCalibration() *Calibration {
	return &Calibration{
		CameraID:       DefaultCameraID,
		SensorToCamera: NewTransform([9]float64{0, -1, 0, 0, 0, -1, 1, 0, 0}, [3]float64{}),
		CameraToCamera: Identity4(),
		Rectify:        Identity4(),
		Intrinsics: Projection3x4{
			{testFocal, 0, testCX, 0},
			{0, testFocal, testCY, 0},
			{0, 0, 1, 0},
		},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func grayPhoto(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

// writeDataset builds <root>/seq/image_02/data and <root>/seq/velodyne_points/data
// with nImages photographs and nClouds point clouds, each cloud holding points.
func writeDataset(t *testing.T, nImages, nClouds int, points []Point3D) string {
	t.Helper()
	root := t.TempDir()
	imgDir := filepath.Join(root, "seq", "image_02", "data")
	cloudDir := filepath.Join(root, "seq", "velodyne_points", "data")
	for _, d := range []string{imgDir, cloudDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	photo := grayPhoto(testW, testH, 100)
	for i := 0; i < nImages; i++ {
		if err := SavePNG(filepath.Join(imgDir, fmt.Sprintf("%010d.png", i)), photo); err != nil {
			t.Fatalf("save photo: %v", err)
		}
	}
	for i := 0; i < nClouds; i++ {
		if err := WritePointCloudFile(filepath.Join(cloudDir, fmt.Sprintf("%010d.bin", i)), points); err != nil {
			t.Fatalf("save cloud: %v", err)
		}
	}
	return root
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}
