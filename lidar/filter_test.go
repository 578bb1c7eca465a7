package lidar

import "testing"

func TestFilterAccept(t *testing.T) {
	f := DefaultFilterThresholds()

	tests := []struct {
		name string
		p    Point3D
		want bool
	}{
		{"typical", Point3D{X: 10, Y: 0, Z: 0, R: 0.5}, true},
		{"forward upper bound inclusive", Point3D{X: 25, Y: 0, Z: 0, R: 0.5}, true},
		{"beyond forward bound", Point3D{X: 25.01, Y: 0, Z: 0, R: 0.5}, false},
		{"forward lower bound inclusive", Point3D{X: 0, Y: 0, Z: 0, R: 0.5}, true},
		{"behind sensor", Point3D{X: -0.1, Y: 0, Z: 0, R: 0.5}, false},
		{"lateral bound inclusive", Point3D{X: 10, Y: 6, Z: 0, R: 0.5}, true},
		{"negative lateral bound inclusive", Point3D{X: 10, Y: -6, Z: 0, R: 0.5}, true},
		{"too far right", Point3D{X: 10, Y: -6.5, Z: 0, R: 0.5}, false},
		{"height bound inclusive", Point3D{X: 10, Y: 0, Z: -1.4, R: 0.5}, true},
		{"below ground", Point3D{X: 10, Y: 0, Z: -1.5, R: 0.5}, false},
		{"high points kept", Point3D{X: 10, Y: 0, Z: 50, R: 0.5}, true},
		{"reflectivity bound inclusive", Point3D{X: 10, Y: 0, Z: 0, R: 0.01}, true},
		{"dark return", Point3D{X: 10, Y: 0, Z: 0, R: 0.005}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Accept(tt.p); got != tt.want {
				t.Errorf("Accept(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestFilterCloudKeepsOrder(t *testing.T) {
	f := DefaultFilterThresholds()
	points := []Point3D{
		{X: 5, R: 1},
		{X: -1, R: 1},
		{X: 7, R: 1},
		{X: 30, R: 1},
		{X: 9, R: 1},
	}

	got := f.FilterCloud(points)
	if len(got) != 3 {
		t.Fatalf("FilterCloud() kept %d points, want 3", len(got))
	}
	for i, wantX := range []float32{5, 7, 9} {
		if got[i].X != wantX {
			t.Errorf("point %d X = %v, want %v", i, got[i].X, wantX)
		}
	}
}
