package main

import (
	"encoding/json"
	"image"
	"image/png"
	"log"
	"net/http"
	"time"

	"github.com/kwv/veloproj/lidar"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *lidar.StateTracker) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		processed, total := stateTracker.Progress()

		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			HasFrame  bool      `json:"hasFrame"`
			Frame     *int      `json:"frame,omitempty"`
			Processed int       `json:"processed"`
			Total     int       `json:"total"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			HasFrame:  stateTracker.HasFrame(),
			Processed: processed,
			Total:     total,
		}
		if snap, ok := stateTracker.Latest(); ok {
			status.Frame = &snap.Frame.Index
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	mux.HandleFunc("/overlay.png", withFrame(stateTracker, func(w http.ResponseWriter, snap *lidar.FrameSnapshot) {
		if snap.Overlay == nil {
			http.Error(w, "No photograph for latest frame", http.StatusServiceUnavailable)
			return
		}
		writePNG(w, "overlay", snap.Overlay)
	}))

	mux.HandleFunc("/overlay.svg", withFrame(stateTracker, func(w http.ResponseWriter, snap *lidar.FrameSnapshot) {
		if snap.Photo == nil {
			http.Error(w, "No photograph for latest frame", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		vo := lidar.NewVectorOverlay(snap.Photo, snap.Points, stateTracker.RenderConfig())
		if err := vo.RenderToSVG(w); err != nil {
			log.Printf("Error rendering overlay SVG: %v", err)
		}
	}))

	mux.HandleFunc("/depth.png", withFrame(stateTracker, func(w http.ResponseWriter, snap *lidar.FrameSnapshot) {
		if snap.Depth == nil {
			http.Error(w, "No depth image for latest frame", http.StatusServiceUnavailable)
			return
		}
		writePNG(w, "depth", snap.Depth)
	}))

	mux.HandleFunc("/depth-preview.png", withFrame(stateTracker, func(w http.ResponseWriter, snap *lidar.FrameSnapshot) {
		if snap.Depth == nil {
			http.Error(w, "No depth image for latest frame", http.StatusServiceUnavailable)
			return
		}
		writePNG(w, "depth preview", lidar.DepthPreview(snap.Depth))
	}))

	mux.HandleFunc("/projection.geojson", withFrame(stateTracker, func(w http.ResponseWriter, snap *lidar.FrameSnapshot) {
		var width, height int
		if snap.Photo != nil {
			width, height = snap.Photo.Bounds().Dx(), snap.Photo.Bounds().Dy()
		} else if snap.Depth != nil {
			width, height = snap.Depth.Bounds().Dx(), snap.Depth.Bounds().Dy()
		}

		fc := lidar.ProjectionFeatures(snap.Points, stateTracker.RenderConfig(), width, height)
		data, err := fc.MarshalJSON()
		if err != nil {
			http.Error(w, "Failed to encode projection", http.StatusInternalServerError)
			log.Printf("Error encoding projection GeoJSON: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(data); err != nil {
			log.Printf("Error writing projection GeoJSON: %v", err)
		}
	}))

	return mux
}

// withFrame answers 503 until a frame has been recorded, then hands the latest snapshot to fn
func withFrame(stateTracker *lidar.StateTracker, fn func(w http.ResponseWriter, snap *lidar.FrameSnapshot)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := stateTracker.Latest()
		if !ok {
			http.Error(w, "No frame available", http.StatusServiceUnavailable)
			return
		}
		fn(w, snap)
	}
}

func writePNG(w http.ResponseWriter, what string, img image.Image) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := png.Encode(w, img); err != nil {
		log.Printf("Error encoding %s PNG: %v", what, err)
	}
}
