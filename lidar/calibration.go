package lidar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Calibration labels. Camera-specific labels carry the camera id as a suffix.
const (
	labelRotation       = "R:"
	labelTranslation    = "T:"
	labelCamRotation    = "R_%s:"
	labelCamTranslation = "T_%s:"
	labelProjection     = "P_rect_%s:"
	labelRectify        = "R_rect_%s:"
)

// orthonormalTolerance bounds how far a parsed rotation may drift from a true rotation
const orthonormalTolerance = 1e-3

// fieldReader collects labeled numeric fields from a calibration text file.
// Only the labels registered with want are kept; later duplicates overwrite earlier ones.
type fieldReader struct {
	path   string
	want   map[string]int // label -> required number count
	values map[string][]float64
}

func newFieldReader(path string) *fieldReader {
	return &fieldReader{
		path:   path,
		want:   make(map[string]int),
		values: make(map[string][]float64),
	}
}

func (r *fieldReader) expect(label string, n int) *fieldReader {
	r.want[label] = n
	return r
}

// read scans the file once and records every wanted field
func (r *fieldReader) read() error {
	f, err := os.Open(r.path)
	if err != nil {
		return &CalibrationParseError{Path: r.path, Err: fmt.Errorf("opening calibration file: %w", err)}
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		n, ok := r.want[tokens[0]]
		if !ok {
			continue
		}
		if len(tokens)-1 < n {
			return &CalibrationParseError{
				Path:  r.path,
				Field: tokens[0],
				Err:   fmt.Errorf("expected %d values, got %d", n, len(tokens)-1),
			}
		}
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			v, err := strconv.ParseFloat(tokens[i+1], 64)
			if err != nil {
				return &CalibrationParseError{Path: r.path, Field: tokens[0], Err: err}
			}
			vals[i] = v
		}
		r.values[tokens[0]] = vals
	}
	if err := scanner.Err(); err != nil {
		return &CalibrationParseError{Path: r.path, Err: fmt.Errorf("reading calibration file: %w", err)}
	}
	return nil
}

// field returns the values of a label or a CalibrationParseError when it never appeared
func (r *fieldReader) field(label string) ([]float64, error) {
	vals, ok := r.values[label]
	if !ok {
		return nil, &CalibrationParseError{Path: r.path, Field: label, Err: ErrCalibrationFieldMissing}
	}
	return vals, nil
}

// rigidFromFields builds a transform from a rotation label and a translation label
func (r *fieldReader) rigidFromFields(rotLabel, transLabel string) (Transform4x4, error) {
	rot, err := r.field(rotLabel)
	if err != nil {
		return Transform4x4{}, err
	}
	trans, err := r.field(transLabel)
	if err != nil {
		return Transform4x4{}, err
	}
	var rr [9]float64
	var tt [3]float64
	copy(rr[:], rot)
	copy(tt[:], trans)
	return NewTransform(rr, tt), nil
}

// LoadSensorToCamera parses the sensor-to-camera extrinsics (labels "R:" and "T:")
func LoadSensorToCamera(path string) (Transform4x4, error) {
	r := newFieldReader(path).expect(labelRotation, 9).expect(labelTranslation, 3)
	if err := r.read(); err != nil {
		return Transform4x4{}, err
	}
	return r.rigidFromFields(labelRotation, labelTranslation)
}

// LoadCameraToCamera parses the reference-camera to camera extrinsics for the given camera id
func LoadCameraToCamera(path, cameraID string) (Transform4x4, error) {
	rotLabel := fmt.Sprintf(labelCamRotation, cameraID)
	transLabel := fmt.Sprintf(labelCamTranslation, cameraID)

	r := newFieldReader(path).expect(rotLabel, 9).expect(transLabel, 3)
	if err := r.read(); err != nil {
		return Transform4x4{}, err
	}
	return r.rigidFromFields(rotLabel, transLabel)
}

// LoadIntrinsics parses the rectified projection matrix and the rectifying rotation
// for the given camera id. The rotation is embedded in a 4x4 with zero translation.
func LoadIntrinsics(path, cameraID string) (Projection3x4, Transform4x4, error) {
	projLabel := fmt.Sprintf(labelProjection, cameraID)
	rectLabel := fmt.Sprintf(labelRectify, cameraID)

	r := newFieldReader(path).expect(projLabel, 12).expect(rectLabel, 9)
	if err := r.read(); err != nil {
		return Projection3x4{}, Transform4x4{}, err
	}

	pv, err := r.field(projLabel)
	if err != nil {
		return Projection3x4{}, Transform4x4{}, err
	}
	rv, err := r.field(rectLabel)
	if err != nil {
		return Projection3x4{}, Transform4x4{}, err
	}

	var p Projection3x4
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			p[i][j] = pv[i*4+j]
		}
	}
	var rr [9]float64
	copy(rr[:], rv)
	return p, NewTransform(rr, [3]float64{}), nil
}

// LoadCalibrationDir loads every matrix of a session from a calibration directory
func LoadCalibrationDir(dir string, files CalibrationFiles, cameraID string) (*Calibration, error) {
	if cameraID == "" {
		cameraID = DefaultCameraID
	}
	if files.SensorToCamera == "" || files.CameraToCamera == "" {
		files = DefaultCalibrationFiles()
	}

	sensorPath := filepath.Join(dir, files.SensorToCamera)
	camPath := filepath.Join(dir, files.CameraToCamera)

	sensorToCam, err := LoadSensorToCamera(sensorPath)
	if err != nil {
		return nil, err
	}
	camToCam, err := LoadCameraToCamera(camPath, cameraID)
	if err != nil {
		return nil, err
	}
	proj, rect, err := LoadIntrinsics(camPath, cameraID)
	if err != nil {
		return nil, err
	}

	return &Calibration{
		CameraID:       cameraID,
		SensorToCamera: sensorToCam,
		CameraToCamera: camToCam,
		Rectify:        rect,
		Intrinsics:     proj,
	}, nil
}

// Validate checks that every rotation block is orthonormal with determinant +1
func (c *Calibration) Validate() error {
	checks := []struct {
		name string
		t    Transform4x4
	}{
		{"sensorToCamera", c.SensorToCamera},
		{"cameraToCamera", c.CameraToCamera},
		{"rectify", c.Rectify},
	}
	for _, chk := range checks {
		if err := checkRotation(chk.t); err != nil {
			return fmt.Errorf("%s: %w", chk.name, err)
		}
		if chk.t[3] != [4]float64{0, 0, 0, 1} {
			return fmt.Errorf("%s: bottom row is %v, want [0 0 0 1]", chk.name, chk.t[3])
		}
	}
	if c.Intrinsics == (Projection3x4{}) {
		return fmt.Errorf("intrinsics: projection matrix is all zero")
	}
	return nil
}

func checkRotation(t Transform4x4) error {
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, t[i][j])
		}
	}

	if det := mat.Det(r); math.Abs(det-1) > orthonormalTolerance {
		return fmt.Errorf("rotation determinant %.6f is not 1", det)
	}

	var rrt mat.Dense
	rrt.Mul(r, r.T())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rrt.At(i, j)-want) > orthonormalTolerance {
				return fmt.Errorf("rotation is not orthonormal at (%d,%d): %.6f", i, j, rrt.At(i, j))
			}
		}
	}
	return nil
}

// CalibrationSnapshot is the JSON form of a session's matrices and combined operator
type CalibrationSnapshot struct {
	Calibration
	Operator [3][4]float64 `json:"operator"`
}

// SaveCalibration writes a JSON snapshot of a calibration and its combined operator
func SaveCalibration(path string, cal *Calibration) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating calibration directory: %w", err)
	}

	snap := CalibrationSnapshot{
		Calibration: *cal,
		Operator:    Compose(cal).Matrix(),
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling calibration data: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}
	return nil
}

// LoadCalibration reads a snapshot written by SaveCalibration
func LoadCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}

	var snap CalibrationSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing calibration file: %w", err)
	}
	cal := snap.Calibration
	return &cal, nil
}
