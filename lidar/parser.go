package lidar

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// PointRecordSize is the size of one binary record: x, y, z, r as little-endian float32
const PointRecordSize = 16

// LegacyExt is the extension of length-prefixed point files
const LegacyExt = ".dat"

// ReadPointCloudFile reads a point cloud from disk.
// Files ending in LegacyExt use the length-prefixed layout, everything else is raw records.
func ReadPointCloudFile(path string) ([]Point3D, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: PointCloudLoad, Path: path, Err: fmt.Errorf("reading file: %w", err)}
	}

	var points []Point3D
	if strings.EqualFold(filepath.Ext(path), LegacyExt) {
		points, err = ParseLegacyPointCloud(data)
	} else {
		points, err = ParsePointCloud(data)
	}
	if err != nil {
		return nil, &LoadError{Kind: PointCloudLoad, Path: path, Err: err}
	}
	return points, nil
}

// ParsePointCloud decodes a headerless sequence of point records.
// The record count is implied by the data length, which must be a non-zero multiple of PointRecordSize.
func ParsePointCloud(data []byte) ([]Point3D, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty point cloud")
	}
	if len(data)%PointRecordSize != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of %d", len(data), PointRecordSize)
	}
	return decodeRecords(data, len(data)/PointRecordSize), nil
}

// ParseLegacyPointCloud decodes the length-prefixed layout: an int64 record count followed by records
func ParseLegacyPointCloud(data []byte) ([]Point3D, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("legacy point cloud too short: %d bytes", len(data))
	}
	n := int64(binary.LittleEndian.Uint64(data[:8]))
	body := data[8:]
	if n <= 0 {
		return nil, fmt.Errorf("empty point cloud")
	}
	if n > int64(len(body)/PointRecordSize) {
		return nil, fmt.Errorf("legacy header declares %d records but only %d bytes follow", n, len(body))
	}
	return decodeRecords(body, int(n)), nil
}

func decodeRecords(data []byte, n int) []Point3D {
	points := make([]Point3D, n)
	for i := range points {
		rec := data[i*PointRecordSize:]
		points[i] = Point3D{
			X: math.Float32frombits(binary.LittleEndian.Uint32(rec[0:4])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(rec[4:8])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12])),
			R: math.Float32frombits(binary.LittleEndian.Uint32(rec[12:16])),
		}
	}
	return points
}

// EncodePointCloud encodes points as headerless records
func EncodePointCloud(points []Point3D) []byte {
	buf := make([]byte, len(points)*PointRecordSize)
	for i, p := range points {
		rec := buf[i*PointRecordSize:]
		binary.LittleEndian.PutUint32(rec[0:4], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(rec[4:8], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(rec[8:12], math.Float32bits(p.Z))
		binary.LittleEndian.PutUint32(rec[12:16], math.Float32bits(p.R))
	}
	return buf
}

// EncodeLegacyPointCloud encodes points with the int64 count prefix
func EncodeLegacyPointCloud(points []Point3D) []byte {
	var buf bytes.Buffer
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], uint64(len(points)))
	buf.Write(header[:])
	buf.Write(EncodePointCloud(points))
	return buf.Bytes()
}

// WritePointCloudFile writes points to disk, choosing the layout by extension like ReadPointCloudFile
func WritePointCloudFile(path string, points []Point3D) error {
	var data []byte
	if strings.EqualFold(filepath.Ext(path), LegacyExt) {
		data = EncodeLegacyPointCloud(points)
	} else {
		data = EncodePointCloud(points)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing point cloud: %w", err)
	}
	return nil
}

// CloudSummary provides a summary of point cloud contents
type CloudSummary struct {
	Points   int
	Accepted int
	Min      Point3D
	Max      Point3D
	MeanR    float64
}

// SummarizeCloud extracts bounds and acceptance counts from a point cloud
func SummarizeCloud(points []Point3D, filter FilterThresholds) CloudSummary {
	summary := CloudSummary{Points: len(points)}
	if len(points) == 0 {
		return summary
	}

	summary.Min = points[0]
	summary.Max = points[0]
	var sumR float64
	for _, p := range points {
		summary.Min.X = min(summary.Min.X, p.X)
		summary.Min.Y = min(summary.Min.Y, p.Y)
		summary.Min.Z = min(summary.Min.Z, p.Z)
		summary.Min.R = min(summary.Min.R, p.R)
		summary.Max.X = max(summary.Max.X, p.X)
		summary.Max.Y = max(summary.Max.Y, p.Y)
		summary.Max.Z = max(summary.Max.Z, p.Z)
		summary.Max.R = max(summary.Max.R, p.R)
		sumR += float64(p.R)
		if filter.Accept(p) {
			summary.Accepted++
		}
	}
	summary.MeanR = sumR / float64(len(points))
	return summary
}
