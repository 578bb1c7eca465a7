package lidar

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Session is the read-only state shared by every frame of one sequence
type Session struct {
	Calibration *Calibration
	Operator    CombinedOperator
	Filter      FilterThresholds
	Render      RenderConfig
}

// NewSession validates a calibration and composes its operator
func NewSession(cal *Calibration, config *Config) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	return &Session{
		Calibration: cal,
		Operator:    Compose(cal),
		Filter:      config.Filter,
		Render:      config.Render,
	}, nil
}

// OpenSession loads the calibration directory and builds a session from it
func OpenSession(calibDir string, config *Config) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cal, err := LoadCalibrationDir(calibDir, config.Calibration, config.CameraID)
	if err != nil {
		return nil, err
	}
	return NewSession(cal, config)
}

// Project filters and projects one cloud with the session operator
func (s *Session) Project(points []Point3D) ([]ProjectedPoint, ProjectionStats) {
	return ProjectCloud(s.Operator, s.Filter, points)
}

// FrameResult is everything produced for one frame
type FrameResult struct {
	Frame      Frame
	Photo      *image.RGBA
	Points     []ProjectedPoint
	Stats      ProjectionStats
	Depth      *image.Gray16
	OutputPath string
}

// Overlay renders the blended overlay of a frame result
func (s *Session) Overlay(res *FrameResult) *image.RGBA {
	return RenderOverlay(res.Photo, res.Points, s.Render)
}

// LoadFrame reads a frame's photograph and point cloud and renders its depth image
func (s *Session) LoadFrame(frame Frame) (*FrameResult, error) {
	photo, err := LoadImage(frame.ImagePath)
	if err != nil {
		return nil, err
	}
	cloud, err := ReadPointCloudFile(frame.CloudPath)
	if err != nil {
		return nil, err
	}

	points, stats := s.Project(cloud)
	return &FrameResult{
		Frame:  frame,
		Photo:  photo,
		Points: points,
		Stats:  stats,
		Depth:  RenderDepth(photo.Bounds(), points, s.Render),
	}, nil
}

// SequenceOptions controls RunSequence
type SequenceOptions struct {
	OutDir  string
	Workers int                    // frames processed concurrently; values below 1 mean 1
	OnFrame func(res *FrameResult) // called after a frame is written; may run concurrently
}

// RunSequence renders and writes the depth image of every frame.
// Processing stops at the first failure and that error is returned.
// It returns the number of frames written.
func (s *Session) RunSequence(ctx context.Context, frames []Frame, opts SequenceOptions) (int, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, frame := range frames {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.LoadFrame(frame)
			if err != nil {
				return err
			}

			path, err := SaveDepthImage(opts.OutDir, FrameFileName(frame.Index), res.Depth)
			if err != nil {
				return err
			}
			res.OutputPath = path
			written.Add(1)

			log.Printf("Frame %d: %d/%d points projected (%d rejected, %d degenerate) -> %s",
				frame.Index, res.Stats.Projected, res.Stats.Total, res.Stats.Rejected, res.Stats.Degenerate, path)

			if opts.OnFrame != nil {
				opts.OnFrame(res)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return int(written.Load()), err
}
