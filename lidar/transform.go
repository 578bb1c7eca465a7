package lidar

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Identity4 returns the identity transform
func Identity4() Transform4x4 {
	return Transform4x4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// NewTransform builds a homogeneous transform from a row-major 3x3 rotation and a translation.
// The bottom row is set to [0, 0, 0, 1].
func NewTransform(rot [9]float64, trans [3]float64) Transform4x4 {
	var t Transform4x4
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = rot[i*3+j]
		}
		t[i][3] = trans[i]
	}
	t[3] = [4]float64{0, 0, 0, 1}
	return t
}

// Dense returns the transform as a gonum matrix
func (t Transform4x4) Dense() *mat.Dense {
	data := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		data = append(data, t[i][:]...)
	}
	return mat.NewDense(4, 4, data)
}

// Mul composes two transforms: result = t * o.
// Applying the result is equivalent to applying o first, then t.
func (t Transform4x4) Mul(o Transform4x4) Transform4x4 {
	var out mat.Dense
	out.Mul(t.Dense(), o.Dense())

	var r Transform4x4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = out.At(i, j)
		}
	}
	return r
}

// Apply transforms a 3D point
func (t Transform4x4) Apply(x, y, z float64) (float64, float64, float64) {
	return t[0][0]*x + t[0][1]*y + t[0][2]*z + t[0][3],
		t[1][0]*x + t[1][1]*y + t[1][2]*z + t[1][3],
		t[2][0]*x + t[2][1]*y + t[2][2]*z + t[2][3]
}

// Dense returns the projection as a gonum matrix
func (p Projection3x4) Dense() *mat.Dense {
	data := make([]float64, 0, 12)
	for i := 0; i < 3; i++ {
		data = append(data, p[i][:]...)
	}
	return mat.NewDense(3, 4, data)
}

// CombinedOperator maps homogeneous sensor coordinates straight to homogeneous pixels.
// It is computed once per calibration and is safe to share between goroutines.
type CombinedOperator struct {
	m [3][4]float64
}

// Compose builds the session operator:
//
//	Intrinsics · Rectify · (−1) · CameraToCamera · SensorToCamera
//
// The negation of the camera-to-camera leg is part of the dataset convention.
func Compose(cal *Calibration) CombinedOperator {
	var negCam mat.Dense
	negCam.Scale(-1, cal.CameraToCamera.Dense())

	var rectified, toCamera, chain mat.Dense
	rectified.Mul(cal.Intrinsics.Dense(), cal.Rectify.Dense())
	toCamera.Mul(&rectified, &negCam)
	chain.Mul(&toCamera, cal.SensorToCamera.Dense())

	var op CombinedOperator
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			op.m[i][j] = chain.At(i, j)
		}
	}
	return op
}

// NewCombinedOperator wraps an already composed 3x4 matrix
func NewCombinedOperator(m [3][4]float64) CombinedOperator {
	return CombinedOperator{m: m}
}

// Matrix returns a copy of the operator's coefficients
func (op CombinedOperator) Matrix() [3][4]float64 {
	return op.m
}

// Apply multiplies (x, y, z, 1) by the operator
func (op CombinedOperator) Apply(x, y, z float64) (u, v, w float64) {
	m := &op.m
	u = m[0][0]*x + m[0][1]*y + m[0][2]*z + m[0][3]
	v = m[1][0]*x + m[1][1]*y + m[1][2]*z + m[1][3]
	w = m[2][0]*x + m[2][1]*y + m[2][2]*z + m[2][3]
	return
}

// FormatMatrix renders a gonum matrix for diagnostics
func FormatMatrix(name string, m mat.Matrix) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s =\n", name)
	fmt.Fprintf(&sb, "%.6g\n", mat.Formatted(m, mat.Prefix(""), mat.Squeeze()))
	return sb.String()
}

// FormatCalibration renders every matrix of a calibration and its operator
func FormatCalibration(cal *Calibration) string {
	op := Compose(cal).Matrix()
	opData := make([]float64, 0, 12)
	for i := 0; i < 3; i++ {
		opData = append(opData, op[i][:]...)
	}

	var sb strings.Builder
	sb.WriteString(FormatMatrix("SensorToCamera", cal.SensorToCamera.Dense()))
	sb.WriteString(FormatMatrix("CameraToCamera", cal.CameraToCamera.Dense()))
	sb.WriteString(FormatMatrix("Rectify", cal.Rectify.Dense()))
	sb.WriteString(FormatMatrix("Intrinsics", cal.Intrinsics.Dense()))
	sb.WriteString(FormatMatrix("Operator", mat.NewDense(3, 4, opData)))
	return sb.String()
}
