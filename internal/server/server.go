// Package server exposes the scan engine over HTTP for embedding demos and
// diagnostics: single-frame scans, a websocket event stream and Prometheus
// metrics.
package server

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/visionkit/scanbox/internal/capture"
	"github.com/visionkit/scanbox/internal/config"
	"github.com/visionkit/scanbox/internal/detect"
	"github.com/visionkit/scanbox/internal/display"
	"github.com/visionkit/scanbox/internal/geometry"
	"github.com/visionkit/scanbox/internal/metrics"
)

// Server handles scan requests against the configured region of interest.
type Server struct {
	cfg     config.ServerConfig
	decoder *capture.Decoder
	roi     *geometry.NormalizedRect
	hub     *eventHub
	mux     *http.ServeMux
}

// New builds a server from the full application config: the scan box is
// mapped through the configured display geometry once at startup, mirroring
// what an embedding caller would do after layout.
func New(cfg *config.Config) (*Server, error) {
	filter, err := cfg.Filter()
	if err != nil {
		return nil, err
	}
	orientation, err := cfg.Orientation()
	if err != nil {
		return nil, err
	}

	displaySize := geometry.Size{Width: cfg.Display.Width, Height: cfg.Display.Height}
	layer := display.NewLayer(cfg.Display.FrameWidth, cfg.Display.FrameHeight, displaySize, orientation)

	var roi *geometry.NormalizedRect
	rect, err := geometry.ComputeScanRegion(displaySize, cfg.Region.BoxSize)
	if err != nil {
		slog.Warn("scan region unavailable, serving full-frame scans", "error", err)
	} else {
		r := geometry.MapToNormalized(rect, layer.FrameRectFor)
		roi = &r
	}

	s := &Server{
		cfg:     cfg.Server,
		decoder: capture.NewDecoder(filter, cfg.Scan.TryHarder),
		roi:     roi,
		hub:     newEventHub(),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /scan", s.withMetrics(s.handleScan))
	s.mux.HandleFunc("GET /healthz", s.withMetrics(s.handleHealth))
	s.mux.HandleFunc("GET /events", s.handleEvents)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port) }

// scanResponse is the JSON body for POST /scan.
type scanResponse struct {
	Region *geometry.NormalizedRect `json:"region,omitempty"`
	Events []detect.Event           `json:"events"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxUploadMB)<<20)

	frame, err := readFrame(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	events := s.decoder.Decode(frame, s.roi)
	if events == nil {
		events = []detect.Event{}
	}
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	s.hub.broadcast(events)

	writeJSON(w, http.StatusOK, scanResponse{Region: s.roi, Events: events})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readFrame extracts the uploaded frame image from a multipart "frame" part
// or the raw request body.
func readFrame(r *http.Request) (image.Image, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("frame")
		if err != nil {
			return nil, fmt.Errorf("missing frame upload: %w", err)
		}
		defer func() { _ = file.Close() }()
		img, _, err := image.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(r.Body)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// withMetrics adds CORS headers and records request metrics.
func (s *Server) withMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, http.StatusText(rw.statusCode)).Inc()
	}
}
