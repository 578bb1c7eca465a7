package lidar

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformMul(t *testing.T) {
	rotZ90 := NewTransform([9]float64{0, -1, 0, 1, 0, 0, 0, 0, 1}, [3]float64{})
	shift := NewTransform([9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, [3]float64{5, 0, 0})

	// shift first, then rotate
	combined := rotZ90.Mul(shift)
	x, y, z := combined.Apply(1, 0, 0)
	assert.InDelta(t, 0.0, x, 1e-12)
	assert.InDelta(t, 6.0, y, 1e-12)
	assert.InDelta(t, 0.0, z, 1e-12)

	assert.Equal(t, [4]float64{0, 0, 0, 1}, combined[3])
	assert.Equal(t, rotZ90, rotZ90.Mul(Identity4()))
}

func TestComposeCombinedOperator(t *testing.T) {
	op := Compose(testCalibration())

	tests := []struct {
		name   string
		point  [3]float64
		wantU  float64
		wantV  float64
		wantOK bool
	}{
		{name: "straight ahead hits principal point", point: [3]float64{10, 0, 0}, wantU: testCX, wantV: testCY},
		{name: "left of sensor is left in image", point: [3]float64{10, 2, 0}, wantU: testCX - testFocal*0.2, wantV: testCY},
		{name: "above sensor is up in image", point: [3]float64{20, 0, 1}, wantU: testCX, wantV: testCY - testFocal*0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, v, w := op.Apply(tt.point[0], tt.point[1], tt.point[2])
			require.NotZero(t, w)
			assert.InDelta(t, tt.wantU, u/w, 1e-9)
			assert.InDelta(t, tt.wantV, v/w, 1e-9)
		})
	}
}

func TestComposeNegationCancels(t *testing.T) {
	// The negated camera leg flips the homogeneous scale but not the pixel
	m := Compose(testCalibration()).Matrix()
	u, v, w := NewCombinedOperator(m).Apply(10, 0, 0)
	assert.Less(t, w, 0.0)
	assert.InDelta(t, testCX, u/w, 1e-9)
	assert.InDelta(t, testCY, v/w, 1e-9)
}

func TestComposeMatchesManualChain(t *testing.T) {
	cal := testCalibration()
	cal.SensorToCamera[0][3] = 0.1
	cal.CameraToCamera[1][3] = -0.05

	neg := cal.CameraToCamera
	for i := range neg {
		for j := range neg[i] {
			neg[i][j] = -neg[i][j]
		}
	}
	chain := cal.Rectify.Mul(neg).Mul(cal.SensorToCamera)

	op := Compose(cal).Matrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			for k := 0; k < 4; k++ {
				want += cal.Intrinsics[i][k] * chain[k][j]
			}
			assert.InDelta(t, want, op[i][j], 1e-9, "operator[%d][%d]", i, j)
		}
	}
}

func TestFormatCalibration(t *testing.T) {
	out := FormatCalibration(testCalibration())
	for _, name := range []string{"SensorToCamera =", "CameraToCamera =", "Rectify =", "Intrinsics =", "Operator ="} {
		assert.Contains(t, out, name)
	}
	assert.True(t, strings.Contains(out, "700"), "intrinsics focal length should be printed")
	assert.False(t, math.IsNaN(Compose(testCalibration()).Matrix()[0][0]))
}
