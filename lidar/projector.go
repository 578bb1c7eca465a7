package lidar

import "math"

// ProjectionEpsilon is the smallest |w| accepted by the perspective divide
const ProjectionEpsilon = 1e-9

// ProjectionStats counts what happened to the points of one cloud
type ProjectionStats struct {
	Total      int `json:"total"`
	Rejected   int `json:"rejected"`
	Degenerate int `json:"degenerate"`
	Projected  int `json:"projected"`
}

// Project maps one point to pixel coordinates.
// It returns false when the point lies on the camera's projection plane
// (|w| below ProjectionEpsilon) or the divide produces a non-finite pixel.
func Project(op CombinedOperator, p Point3D) (ProjectedPoint, bool) {
	u, v, w := op.Apply(float64(p.X), float64(p.Y), float64(p.Z))
	if math.Abs(w) < ProjectionEpsilon {
		return ProjectedPoint{}, false
	}

	pp := ProjectedPoint{
		U:     u / w,
		V:     v / w,
		Value: float64(p.X),
	}
	if math.IsNaN(pp.U) || math.IsNaN(pp.V) || math.IsInf(pp.U, 0) || math.IsInf(pp.V, 0) {
		return ProjectedPoint{}, false
	}
	return pp, true
}

// ProjectCloud filters and projects a cloud, keeping storage order
func ProjectCloud(op CombinedOperator, filter FilterThresholds, points []Point3D) ([]ProjectedPoint, ProjectionStats) {
	stats := ProjectionStats{Total: len(points)}
	out := make([]ProjectedPoint, 0, len(points))

	for i, p := range points {
		if !filter.Accept(p) {
			stats.Rejected++
			continue
		}
		pp, ok := Project(op, p)
		if !ok {
			stats.Degenerate++
			continue
		}
		pp.Index = i
		out = append(out, pp)
	}

	stats.Projected = len(out)
	return out, stats
}
