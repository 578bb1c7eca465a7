package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/veloproj/lidar"
)

// App encapsulates the application state and dependencies
type App struct {
	Out          io.Writer
	Config       *lidar.Config
	StateTracker *lidar.StateTracker
	MQTTClient   *lidar.MQTTClient
	Publisher    *lidar.Publisher

	opts AppOptions

	// waitForShutdown blocks while the HTTP server runs; it defaults to waiting for SIGINT/SIGTERM
	waitForShutdown func(ctx context.Context)
}

// NewApp creates a new App instance writing user-facing output to out
func NewApp(out io.Writer) *App {
	return &App{
		Out:             out,
		waitForShutdown: waitForSignal,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.Out, format, args...)
}

// loadConfig reads the config file (or defaults) and applies command line overrides
func (a *App) loadConfig() (*lidar.Config, error) {
	config := lidar.DefaultConfig()
	if a.opts.ConfigFile != "" {
		loaded, err := lidar.LoadConfig(a.opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		config = loaded
		log.Printf("Loaded config from %s", a.opts.ConfigFile)
	}

	if a.opts.CameraID != "" {
		config.CameraID = a.opts.CameraID
	}
	if a.opts.Workers > 0 {
		config.Workers = a.opts.Workers
	}
	if a.opts.Legend {
		config.Render.Legend = true
	}

	a.Config = config
	a.StateTracker = lidar.NewStateTracker(config.Render)
	return config, nil
}

// RunDepth renders and writes a depth image for every frame of a sequence
func (a *App) RunDepth() error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	frames, err := lidar.LoadFrames(a.opts.DataDir, config.Dataset)
	if err != nil {
		return err
	}
	a.printf("Found %d frames in %s\n", len(frames), a.opts.DataDir)

	session, err := lidar.OpenSession(a.opts.CalibDir, config)
	if err != nil {
		return err
	}

	a.initPublisher(config)
	defer a.disconnect()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if a.opts.HttpMode {
		srv = a.startHTTP()
	}

	a.StateTracker.SetTotal(len(frames))
	start := time.Now()
	written, err := session.RunSequence(ctx, frames, lidar.SequenceOptions{
		OutDir:  a.opts.OutDir,
		Workers: config.EffectiveWorkers(),
		OnFrame: a.onFrame,
	})
	if err != nil {
		return fmt.Errorf("after %d of %d frames: %w", written, len(frames), err)
	}
	a.printf("Wrote %d depth images to %s in %v\n", written, a.opts.OutDir, time.Since(start).Round(time.Millisecond))

	if srv != nil {
		a.serveUntilShutdown(ctx, srv)
	}
	return nil
}

// onFrame records a written frame for HTTP and publishes it when MQTT is configured
func (a *App) onFrame(res *lidar.FrameResult) {
	a.StateTracker.Update(res, nil)
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishFrame(res); err != nil {
		log.Printf("Error publishing frame %d: %v", res.Frame.Index, err)
	}
}

// RunOverlay renders the overlay of a single photograph and point cloud
func (a *App) RunOverlay() error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	session, err := lidar.OpenSession(a.opts.CalibDir, config)
	if err != nil {
		return err
	}

	res, err := session.LoadFrame(lidar.Frame{ImagePath: a.opts.ImageFile, CloudPath: a.opts.CloudFile})
	if err != nil {
		return err
	}
	a.printf("Projected %d of %d points (%d rejected, %d degenerate)\n",
		res.Stats.Projected, res.Stats.Total, res.Stats.Rejected, res.Stats.Degenerate)

	overlay := session.Overlay(res)
	a.StateTracker.SetTotal(1)
	a.StateTracker.Update(res, overlay)

	output := a.opts.OutputFile
	if output == "" {
		output = "overlay.png"
	}
	if err := a.writeOverlay(output, res, overlay, session.Render); err != nil {
		return err
	}
	a.printf("Overlay written to %s\n", output)

	if a.opts.GeoJSONFile != "" {
		b := res.Photo.Bounds()
		if err := lidar.SaveProjectionGeoJSON(a.opts.GeoJSONFile, res.Points, session.Render, b.Dx(), b.Dy()); err != nil {
			return err
		}
		a.printf("Projection written to %s\n", a.opts.GeoJSONFile)
	}

	if a.opts.HttpMode {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a.serveUntilShutdown(ctx, a.startHTTP())
	}
	return nil
}

// writeOverlay saves the overlay in the requested format.
// Vector output is SVG when the file ends in .svg, otherwise a canvas-rasterized PNG.
func (a *App) writeOverlay(path string, res *lidar.FrameResult, overlay *image.RGBA, cfg lidar.RenderConfig) error {
	if a.opts.RenderFormat != "vector" {
		return lidar.SavePNG(path, overlay)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	vo := lidar.NewVectorOverlay(res.Photo, res.Points, cfg)
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		err = vo.RenderToSVG(f)
	} else {
		err = vo.RenderToPNG(f)
	}
	if err != nil {
		return fmt.Errorf("rendering vector overlay: %w", err)
	}
	return f.Close()
}

// RunParseOnly summarizes point cloud files without rendering anything
func (a *App) RunParseOnly() error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	a.printf("Summarizing %d point cloud(s)\n\n", len(a.opts.CloudFiles))

	failed := 0
	for _, path := range a.opts.CloudFiles {
		a.printf("=== %s ===\n", filepath.Base(path))

		points, err := lidar.ReadPointCloudFile(path)
		if err != nil {
			a.printf("ERROR: %v\n\n", err)
			failed++
			continue
		}

		s := lidar.SummarizeCloud(points, config.Filter)
		a.printf("Points: %d (accepted by filter: %d)\n", s.Points, s.Accepted)
		a.printf("X: [%.2f, %.2f]  Y: [%.2f, %.2f]  Z: [%.2f, %.2f]\n",
			s.Min.X, s.Max.X, s.Min.Y, s.Max.Y, s.Min.Z, s.Max.Z)
		a.printf("Reflectivity: [%.3f, %.3f] mean %.3f\n\n", s.Min.R, s.Max.R, s.MeanR)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d point clouds failed to load: %w", failed, len(a.opts.CloudFiles), lidar.ErrDecodeFailure)
	}
	return nil
}

// RunDumpCalibration prints every matrix of a calibration directory and optionally saves a JSON snapshot
func (a *App) RunDumpCalibration() error {
	config, err := a.loadConfig()
	if err != nil {
		return err
	}

	cal, err := lidar.LoadCalibrationDir(a.opts.DumpCalibration, config.Calibration, config.CameraID)
	if err != nil {
		return err
	}

	a.printf("Calibration %s (camera %s)\n\n", a.opts.DumpCalibration, cal.CameraID)
	a.printf("%s", lidar.FormatCalibration(cal))

	if err := cal.Validate(); err != nil {
		log.Printf("Warning: calibration does not validate: %v", err)
	}

	if a.opts.OutputFile != "" {
		if err := lidar.SaveCalibration(a.opts.OutputFile, cal); err != nil {
			return err
		}
		a.printf("\nCalibration snapshot written to %s\n", a.opts.OutputFile)
	}
	return nil
}

// initPublisher connects to MQTT when a broker is configured. Failures only disable publishing.
func (a *App) initPublisher(config *lidar.Config) {
	client, err := lidar.InitMQTT(config)
	if err != nil {
		log.Printf("Warning: MQTT disabled: %v", err)
		return
	}
	if client == nil {
		return
	}
	a.MQTTClient = client

	a.Publisher = lidar.NewPublisher(client.GetClient(), client.PublishPrefix())
	log.Printf("MQTT depth publisher initialized (prefix %s)", a.Publisher.Prefix())
}

func (a *App) disconnect() {
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
}

// startHTTP starts serving the state tracker in the background
func (a *App) startHTTP() *http.Server {
	addr := fmt.Sprintf("0.0.0.0:%d", a.opts.HttpPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHTTPServer(a.StateTracker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[HTTP] Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[HTTP] Server error: %v", err)
		}
	}()

	a.printf("\nHTTP endpoints (port %d):\n", a.opts.HttpPort)
	a.printf("  GET /health              - Health check and progress\n")
	a.printf("  GET /overlay.png         - Latest frame with colored points\n")
	a.printf("  GET /overlay.svg         - Latest frame as vector overlay\n")
	a.printf("  GET /depth.png           - Latest 16-bit depth image\n")
	a.printf("  GET /depth-preview.png   - Latest depth image stretched to 8 bits\n")
	a.printf("  GET /projection.geojson  - Latest projected points\n")
	return srv
}

// serveUntilShutdown keeps the server up until shutdown is requested, then stops it
func (a *App) serveUntilShutdown(ctx context.Context, srv *http.Server) {
	a.printf("\nPress Ctrl+C to stop\n")
	a.waitForShutdown(ctx)

	a.printf("\nShutting down...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] Shutdown error: %v", err)
	}
}

func waitForSignal(ctx context.Context) {
	<-ctx.Done()
}
