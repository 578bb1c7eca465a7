package lidar

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound is returned when a sensor directory or its data folder is missing
	ErrPathNotFound = errors.New("path not found")
	// ErrEmptyDataSet is returned when a scan finds no frames
	ErrEmptyDataSet = errors.New("no frames found")
	// ErrCountMismatch is returned when paired sensor streams differ in length
	ErrCountMismatch = errors.New("frame count mismatch")
	// ErrDecodeFailure is returned when a photograph or point cloud cannot be decoded
	ErrDecodeFailure = errors.New("decode failure")
	// ErrCalibrationFieldMissing is returned when a required calibration label never appears
	ErrCalibrationFieldMissing = errors.New("calibration field missing")
)

// CalibrationParseError reports a calibration file that could not be turned into a matrix
type CalibrationParseError struct {
	Path  string
	Field string // label that failed, empty when the file itself failed
	Err   error
}

func (e *CalibrationParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("calibration %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("calibration %s: field %q: %v", e.Path, e.Field, e.Err)
}

func (e *CalibrationParseError) Unwrap() error { return e.Err }

// LoadKind tells which input of a frame failed to load
type LoadKind int

const (
	ImageLoad LoadKind = iota
	PointCloudLoad
)

func (k LoadKind) String() string {
	switch k {
	case ImageLoad:
		return "image"
	case PointCloudLoad:
		return "point cloud"
	default:
		return "unknown"
	}
}

// LoadError reports a failed photograph or point cloud load.
// It always unwraps to ErrDecodeFailure.
type LoadError struct {
	Kind LoadKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrDecodeFailure, e.Err} }
