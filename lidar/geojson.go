package lidar

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ProjectionBound returns the pixel-space bounding box of projected points
func ProjectionBound(points []ProjectedPoint) orb.Bound {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.U, p.V}
	}
	return mp.Bound()
}

// ProjectionFootprint returns the bounding polygon of the points whose disc center lies
// inside a width x height image, its area in square pixels, and how many points it covers
func ProjectionFootprint(points []ProjectedPoint, width, height int) (orb.Polygon, float64, int) {
	inside := make([]ProjectedPoint, 0, len(points))
	for _, p := range points {
		if inImage(p, width, height) {
			inside = append(inside, p)
		}
	}
	if len(inside) == 0 {
		return nil, 0, 0
	}
	poly := ProjectionBound(inside).ToPolygon()
	return poly, planar.Area(poly), len(inside)
}

func inImage(p ProjectedPoint, width, height int) bool {
	cx, cy := pixelCenter(p)
	return cx >= 0 && cy >= 0 && cx < width && cy < height
}

// ProjectionFeatures exports projected points as GeoJSON in image coordinates
// (x to the right, y down, origin at the top-left pixel). Points whose disc center
// falls outside bounds are kept but flagged with "inImage": false.
// When any point lands in the image, a final "footprint" polygon feature is appended.
func ProjectionFeatures(points []ProjectedPoint, cfg RenderConfig, width, height int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		t := ValueFraction(p.Value, cfg.ValueRange)

		f := geojson.NewFeature(orb.Point{p.U, p.V})
		f.Properties["kind"] = "point"
		f.Properties["index"] = p.Index
		f.Properties["depth"] = p.Value
		f.Properties["t"] = t
		f.Properties["intensity"] = Quantize(t)
		f.Properties["inImage"] = inImage(p, width, height)
		fc.Append(f)
	}

	if poly, area, n := ProjectionFootprint(points, width, height); n > 0 {
		f := geojson.NewFeature(poly)
		f.Properties["kind"] = "footprint"
		f.Properties["area"] = area
		f.Properties["points"] = n
		fc.Append(f)
	}

	if len(points) > 0 {
		fc.BBox = geojson.NewBBox(ProjectionBound(points))
	}
	return fc
}

// SaveProjectionGeoJSON writes the projection of one frame to path
func SaveProjectionGeoJSON(path string, points []ProjectedPoint, cfg RenderConfig, width, height int) error {
	data, err := ProjectionFeatures(points, cfg, width, height).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling projection: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing projection: %w", err)
	}
	return nil
}
