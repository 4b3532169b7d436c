package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/visionkit/scanbox/internal/detect"
	"github.com/visionkit/scanbox/internal/geometry"
	"github.com/visionkit/scanbox/internal/metrics"
)

// Sink consumes detection batches. Batches are delivered from a single
// goroutine (the controller's pump), which is the session's designated serial
// delivery context.
type Sink interface {
	HandleDetections([]detect.Event)
	SetupFailed(error)
}

// Controller is the capture collaborator: it satisfies the session's Capture
// interface and, while armed, pumps frames from the source through the
// decoder, delivering exactly one batch per processed frame.
type Controller struct {
	mu    sync.Mutex
	armed bool
	roi   *geometry.NormalizedRect

	source   Source
	decoder  *Decoder
	interval time.Duration
}

// NewController wires a frame source and decoder. interval throttles the
// frame rate; zero processes frames back to back (useful in tests and for
// offline replay).
func NewController(source Source, decoder *Decoder, interval time.Duration) *Controller {
	return &Controller{source: source, decoder: decoder, interval: interval}
}

// Arm enables detection restricted to roi (nil scans the full frame).
func (c *Controller) Arm(roi *geometry.NormalizedRect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
	if roi != nil {
		r := *roi
		c.roi = &r
	} else {
		c.roi = nil
	}
	return nil
}

// Disarm stops detection immediately. Frames pulled afterwards are discarded
// without decoding.
func (c *Controller) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
}

func (c *Controller) state() (bool, *geometry.NormalizedRect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed, c.roi
}

// Run drives the pump until the context is canceled or the source ends.
// Frame-read failures are surfaced to the sink as setup failures; the
// controller never retries on its own.
func (c *Controller) Run(ctx context.Context, sink Sink) error {
	var ticker *time.Ticker
	if c.interval > 0 {
		ticker = time.NewTicker(c.interval)
		defer ticker.Stop()
	}

	for {
		if err := c.waitTick(ctx, ticker); err != nil {
			return err
		}

		armed, roi := c.state()
		if !armed {
			if c.interval == 0 {
				// No ticker to pace the loop; idle briefly between polls.
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Millisecond):
				}
			}
			continue
		}

		frame, err := c.source.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			slog.Debug("frame source exhausted")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			sink.SetupFailed(err)
			return err
		}

		metrics.FramesProcessed.Inc()
		events := c.decoder.Decode(frame, roi)
		for _, ev := range events {
			metrics.DetectionEvents.WithLabelValues(ev.Format.String()).Inc()
		}
		sink.HandleDetections(events)
	}
}

// waitTick blocks until the next frame slot. Without a ticker it only yields
// to cancellation.
func (c *Controller) waitTick(ctx context.Context, ticker *time.Ticker) error {
	if ticker == nil {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ticker.C:
		return nil
	}
}
