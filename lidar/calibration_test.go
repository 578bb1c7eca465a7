package lidar

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSensorToCamera(t *testing.T) {
	dir := writeCalibDir(t)

	got, err := LoadSensorToCamera(filepath.Join(dir, "calib_velo_to_cam.txt"))
	if err != nil {
		t.Fatalf("LoadSensorToCamera() error = %v", err)
	}

	want := testCalibration().SensorToCamera
	if got != want {
		t.Errorf("LoadSensorToCamera() = %v, want %v", got, want)
	}
	if got[3] != [4]float64{0, 0, 0, 1} {
		t.Errorf("bottom row = %v, want [0 0 0 1]", got[3])
	}
}

func TestLoadSensorToCamera_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
		wantErr   error
	}{
		{
			name:      "missing translation",
			content:   "R: 1 0 0 0 1 0 0 0 1\n",
			wantField: "T:",
			wantErr:   ErrCalibrationFieldMissing,
		},
		{
			name:      "missing rotation",
			content:   "T: 0 0 0\n",
			wantField: "R:",
			wantErr:   ErrCalibrationFieldMissing,
		},
		{
			name:      "short rotation",
			content:   "R: 1 0 0 0 1\nT: 0 0 0\n",
			wantField: "R:",
		},
		{
			name:      "non-numeric translation",
			content:   "R: 1 0 0 0 1 0 0 0 1\nT: 0 x 0\n",
			wantField: "T:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "calib_velo_to_cam.txt")
			writeFile(t, path, tt.content)

			_, err := LoadSensorToCamera(path)
			if err == nil {
				t.Fatal("LoadSensorToCamera() expected error, got nil")
			}

			var perr *CalibrationParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a *CalibrationParseError", err)
			}
			if perr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", perr.Field, tt.wantField)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSensorToCamera_MissingFile(t *testing.T) {
	_, err := LoadSensorToCamera(filepath.Join(t.TempDir(), "nope.txt"))
	var perr *CalibrationParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error %v is not a *CalibrationParseError", err)
	}
	if perr.Field != "" {
		t.Errorf("Field = %q, want empty for file errors", perr.Field)
	}
}

func TestLoadIntrinsics(t *testing.T) {
	dir := writeCalibDir(t)

	proj, rect, err := LoadIntrinsics(filepath.Join(dir, "calib_cam_to_cam.txt"), "02")
	if err != nil {
		t.Fatalf("LoadIntrinsics() error = %v", err)
	}

	if proj != testCalibration().Intrinsics {
		t.Errorf("projection = %v, want %v", proj, testCalibration().Intrinsics)
	}
	if rect != Identity4() {
		t.Errorf("rectify = %v, want identity", rect)
	}
}

func TestLoadIntrinsics_OtherCamera(t *testing.T) {
	dir := writeCalibDir(t)

	_, _, err := LoadIntrinsics(filepath.Join(dir, "calib_cam_to_cam.txt"), "03")
	if !errors.Is(err, ErrCalibrationFieldMissing) {
		t.Fatalf("LoadIntrinsics(03) error = %v, want ErrCalibrationFieldMissing", err)
	}
	if !strings.Contains(err.Error(), "P_rect_03:") {
		t.Errorf("error %q should name the missing label", err)
	}
}

func TestLoadCalibrationDir(t *testing.T) {
	dir := writeCalibDir(t)

	cal, err := LoadCalibrationDir(dir, DefaultCalibrationFiles(), "")
	if err != nil {
		t.Fatalf("LoadCalibrationDir() error = %v", err)
	}

	want := testCalibration()
	if *cal != *want {
		t.Errorf("LoadCalibrationDir() = %+v, want %+v", cal, want)
	}
	if err := cal.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestCalibrationValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Calibration)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Calibration) {}},
		{
			name: "scaled rotation",
			mutate: func(c *Calibration) {
				c.CameraToCamera[0][0] = 2
			},
			wantErr: true,
		},
		{
			name: "reflection",
			mutate: func(c *Calibration) {
				c.Rectify[2][2] = -1
			},
			wantErr: true,
		},
		{
			name: "bad bottom row",
			mutate: func(c *Calibration) {
				c.SensorToCamera[3][0] = 1
			},
			wantErr: true,
		},
		{
			name: "zero intrinsics",
			mutate: func(c *Calibration) {
				c.Intrinsics = Projection3x4{}
			},
			wantErr: true,
		},
		{
			name: "small drift tolerated",
			mutate: func(c *Calibration) {
				c.Rectify[0][0] = 1 + 1e-5
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := testCalibration()
			tt.mutate(cal)
			err := cal.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calibration.json")
	cal := testCalibration()

	if err := SaveCalibration(path, cal); err != nil {
		t.Fatalf("SaveCalibration() error = %v", err)
	}
	loaded, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}

	if *loaded != *cal {
		t.Errorf("LoadCalibration() = %+v, want %+v", loaded, cal)
	}

	op := Compose(loaded)
	u, v, w := op.Apply(10, 0, 0)
	if math.Abs(u/w-testCX) > 1e-9 || math.Abs(v/w-testCY) > 1e-9 {
		t.Errorf("reloaded operator maps (10,0,0) to (%g,%g), want (%g,%g)", u/w, v/w, testCX, testCY)
	}
}
