// Package metrics defines the Prometheus collectors shared by the capture
// pump and the embedding server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/visionkit/scanbox/internal/session"
)

var (
	// FramesProcessed counts frames pulled from the source while armed.
	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanbox_frames_processed_total",
		Help: "Total number of frames run through the detector",
	})

	// DetectionEvents counts raw detection events delivered to sessions.
	DetectionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanbox_detection_events_total",
		Help: "Total number of raw detection events by symbology",
	}, []string{"format"})

	// SessionTransitions counts scan-session state transitions.
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanbox_session_transitions_total",
		Help: "Total number of scan session state transitions",
	}, []string{"from", "to"})

	// HTTPRequests counts embedding-server requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanbox_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// ScanDuration observes the wall time of single-frame scan requests.
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanbox_scan_duration_seconds",
		Help:    "Single-frame scan duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// SessionListener returns a transition listener feeding SessionTransitions.
func SessionListener() session.TransitionListener {
	return func(prev, next session.State) {
		SessionTransitions.WithLabelValues(prev.String(), next.String()).Inc()
	}
}
