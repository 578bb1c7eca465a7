package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds every value parsed from the command line
type AppOptions struct {
	ConfigFile string
	CameraID   string
	Workers    int

	// Batch depth mode positionals
	DataDir  string
	CalibDir string
	OutDir   string

	// Single-frame overlay mode
	Overlay      bool
	ImageFile    string
	CloudFile    string
	OutputFile   string
	RenderFormat string
	Legend       bool
	GeoJSONFile  string

	ParseOnly       bool
	CloudFiles      []string
	DumpCalibration string

	HttpMode bool
	HttpPort int
}

// Runner is the set of modes main can dispatch to
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunDepth() error
	RunOverlay() error
	RunParseOnly() error
	RunDumpCalibration() error
}

// errUsage is returned when the command line cannot select a mode
var errUsage = errors.New("invalid usage")

const usageLine = "veloproj [flags] <path_to_data> <path_to_calib_dir> <path_to_out_dir>"

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("veloproj", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to YAML configuration file (defaults are used when empty)")
	fs.StringVar(&opts.CameraID, "camera", "", "Camera id whose calibration labels are read (default 02)")
	fs.IntVar(&opts.Workers, "workers", 0, "Frames processed concurrently (default from config, 1)")
	fs.BoolVar(&opts.Overlay, "overlay", false, "Render a colored overlay for a single photograph and point cloud")
	fs.StringVar(&opts.ImageFile, "image", "", "Photograph for --overlay")
	fs.StringVar(&opts.CloudFile, "cloud", "", "Point cloud for --overlay (.bin raw records or .dat legacy)")
	fs.StringVar(&opts.CalibDir, "calib", "", "Calibration directory for --overlay")
	fs.StringVar(&opts.OutputFile, "output", "", "Output file for --overlay (default overlay.png) or --dump-calibration JSON")
	fs.StringVar(&opts.RenderFormat, "format", "raster", "Overlay format: raster or vector")
	fs.BoolVar(&opts.Legend, "legend", false, "Draw a distance legend on raster overlays")
	fs.StringVar(&opts.GeoJSONFile, "geojson", "", "Write the projected points of --overlay as GeoJSON")
	fs.BoolVar(&opts.ParseOnly, "parse-only", false, "Summarize the point cloud files given as arguments and exit")
	fs.StringVar(&opts.DumpCalibration, "dump-calibration", "", "Print the matrices of a calibration directory and exit")
	fs.BoolVar(&opts.HttpMode, "http", false, "Serve the latest frame over HTTP until interrupted")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(out, "Usage of veloproj:\n  %s\n\nFlags:\n", usageLine)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "veloproj version: %s\n", Version)

	switch {
	case opts.ParseOnly:
		opts.CloudFiles = fs.Args()
		if len(opts.CloudFiles) == 0 {
			return fmt.Errorf("--parse-only needs at least one point cloud file: %w", errUsage)
		}
		app.ApplyOptions(opts)
		return app.RunParseOnly()

	case opts.DumpCalibration != "":
		app.ApplyOptions(opts)
		return app.RunDumpCalibration()

	case opts.Overlay:
		if opts.ImageFile == "" || opts.CloudFile == "" || opts.CalibDir == "" {
			return fmt.Errorf("--overlay needs --image, --cloud and --calib: %w", errUsage)
		}
		if opts.RenderFormat != "raster" && opts.RenderFormat != "vector" {
			return fmt.Errorf("unknown --format %q: %w", opts.RenderFormat, errUsage)
		}
		app.ApplyOptions(opts)
		return app.RunOverlay()
	}

	if fs.NArg() != 3 {
		fs.Usage()
		return fmt.Errorf("expected 3 arguments, got %d: %w", fs.NArg(), errUsage)
	}
	opts.DataDir = fs.Arg(0)
	opts.CalibDir = fs.Arg(1)
	opts.OutDir = fs.Arg(2)

	app.ApplyOptions(opts)
	return app.RunDepth()
}

func main() {
	err := run(os.Args[1:], os.Stdout, NewApp(os.Stdout))
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
