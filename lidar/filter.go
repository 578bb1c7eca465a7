package lidar

// Accept reports whether a point passes the acceptance policy.
// All bounds are inclusive and compared in the point's float32 domain, so a
// threshold read from config matches a value stored in a point cloud exactly.
func (f FilterThresholds) Accept(p Point3D) bool {
	if p.X < 0 || p.X > float32(f.MaxForward) {
		return false
	}
	if p.Y > float32(f.MaxLateral) || p.Y < -float32(f.MaxLateral) {
		return false
	}
	if p.Z < float32(f.MinHeight) {
		return false
	}
	return p.R >= float32(f.MinReflectivity)
}

// FilterCloud returns the accepted points in storage order
func (f FilterThresholds) FilterCloud(points []Point3D) []Point3D {
	accepted := make([]Point3D, 0, len(points))
	for _, p := range points {
		if f.Accept(p) {
			accepted = append(accepted, p)
		}
	}
	return accepted
}
