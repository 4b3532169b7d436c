// Package session implements the scan-session state machine: it owns the
// region of interest, arms and disarms the capture collaborator, filters raw
// detection batches down to a single actionable result and arbitrates whether
// scanning resumes after a capture.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/visionkit/scanbox/internal/detect"
	"github.com/visionkit/scanbox/internal/display"
	"github.com/visionkit/scanbox/internal/geometry"
)

// ErrRegionNotConfigured signals that Start was called without a configured
// scan region. Scanning proceeds with the full frame; the error is delivered
// through the OnFail hook so the caller knows the scan box was never applied.
var ErrRegionNotConfigured = errors.New("session: scan region not configured, scanning full frame")

// SetupError wraps a capture-device setup failure. The session stays Idle
// until the caller retries Start; nothing is retried automatically.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return fmt.Sprintf("session: capture setup failed: %v", e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }

// State is the scan session lifecycle state.
type State int

const (
	// StateIdle: no capture active, detection batches are dropped.
	StateIdle State = iota
	// StateScanning: detector armed, batches are processed.
	StateScanning
	// StateHalted: capture stopped right after a detection was selected,
	// pending the result callback's resume decision.
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Capture is the capture collaborator: it owns frame acquisition and the
// actual symbol detector. A nil roi arms the detector unconstrained.
type Capture interface {
	Arm(roi *geometry.NormalizedRect) error
	Disarm()
}

// Display is the video-display collaborator. It alone knows the live video
// dimensions, orientation and aspect-fill crop, so the session delegates all
// display-to-frame mapping to it.
type Display interface {
	FrameRectFor(geometry.Rect) geometry.NormalizedRect
	SetOrientation(display.Orientation)
}

// Hooks are the caller-supplied lifecycle and result callbacks. Any subset may
// be set; missing entries fall back to documented defaults: OnFail and the
// lifecycle hooks default to no-ops, OnCapture defaults to accepting every
// result and halting.
type Hooks struct {
	// OnFail receives non-fatal warnings (ErrRegionNotConfigured) and setup
	// failures (*SetupError).
	OnFail func(error)

	// OnCapture receives the decoded content of the selected detection. A true
	// return halts the session; false resumes scanning with the same region.
	OnCapture func(content string) bool

	// BeforeStart runs synchronously immediately before the detector is armed.
	BeforeStart func()

	// AfterStop runs synchronously immediately after the detector is disarmed.
	AfterStop func()
}

func (h Hooks) withDefaults() Hooks {
	if h.OnFail == nil {
		h.OnFail = func(error) {}
	}
	if h.OnCapture == nil {
		h.OnCapture = func(string) bool { return true }
	}
	if h.BeforeStart == nil {
		h.BeforeStart = func() {}
	}
	if h.AfterStop == nil {
		h.AfterStop = func() {}
	}
	return h
}

// TransitionListener observes successful state transitions.
type TransitionListener func(prev, next State)

// Session drives the scan lifecycle. All operations are serialized by an
// internal mutex: callers may invoke Start/Stop from any goroutine, and a
// Stop racing an in-flight detection batch resolves deterministically (the
// batch is dropped once the state has left Scanning).
type Session struct {
	mu sync.Mutex

	id      string
	capture Capture
	disp    Display
	filter  detect.Filter
	hooks   Hooks

	displayRect geometry.Rect
	hasRegion   bool
	roi         geometry.NormalizedRect

	state     State
	listeners []TransitionListener
}

// New builds an idle session around the two collaborators. filter selects the
// target symbologies (zero value accepts any).
func New(capture Capture, disp Display, filter detect.Filter, hooks Hooks) *Session {
	return &Session{
		id:      uuid.NewString(),
		capture: capture,
		disp:    disp,
		filter:  filter,
		hooks:   hooks.withDefaults(),
		state:   StateIdle,
	}
}

// ID returns the session's correlation id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddTransitionListener registers an observer for state transitions.
func (s *Session) AddTransitionListener(l TransitionListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Region returns the configured region of interest, if any.
func (s *Session) Region() (geometry.NormalizedRect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roi, s.hasRegion
}

// ConfigureRegion computes a square scan box of side boxSize centered in the
// display and maps it through the display collaborator into the detector's
// coordinate space. Geometry problems are reported synchronously; the caller
// should re-layout and retry.
func (s *Session) ConfigureRegion(displaySize geometry.Size, boxSize uint) error {
	rect, err := geometry.ComputeScanRegion(displaySize, boxSize)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayRect = rect
	s.roi = geometry.MapToNormalized(rect, s.disp.FrameRectFor)
	s.hasRegion = true
	slog.Debug("scan region configured", "session_id", s.id, "roi", s.roi.String())
	return nil
}

// OrientationChanged records a rotation event on the display collaborator and
// immediately re-requests the display-to-frame mapping for the configured
// region. Session state is never altered; the fresh region takes effect on
// the next arm.
func (s *Session) OrientationChanged(o display.Orientation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disp.SetOrientation(o)
	if s.hasRegion {
		s.roi = geometry.MapToNormalized(s.displayRect, s.disp.FrameRectFor)
	}
	slog.Debug("orientation changed", "session_id", s.id, "orientation", o.String())
}

// Start arms the detector with the configured region and enters Scanning.
// Calling Start while already Scanning is a no-op: the detector is not armed
// twice. Without a configured region the session scans full-frame and reports
// ErrRegionNotConfigured through OnFail. An arm failure leaves the session
// Idle until the caller retries.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateScanning {
		return nil
	}

	var roi *geometry.NormalizedRect
	if s.hasRegion {
		r := s.roi
		roi = &r
	} else {
		slog.Warn("starting without configured scan region", "session_id", s.id)
		s.safeHook("on_fail", func() { s.hooks.OnFail(ErrRegionNotConfigured) })
	}

	return s.arm(roi)
}

// arm runs the pre-arm hook, arms the capture collaborator and transitions to
// Scanning. Caller holds the mutex.
func (s *Session) arm(roi *geometry.NormalizedRect) error {
	s.safeHook("before_start", s.hooks.BeforeStart)
	if err := s.capture.Arm(roi); err != nil {
		werr := &SetupError{Err: err}
		slog.Error("detector arm failed", "session_id", s.id, "error", err)
		s.safeHook("on_fail", func() { s.hooks.OnFail(werr) })
		s.transition(StateIdle)
		return werr
	}
	s.transition(StateScanning)
	return nil
}

// Stop disarms the detector and returns to Idle. It is immediate and
// unconditional from any state; from Idle it is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return
	case StateScanning:
		s.disarm()
	case StateHalted:
		// Detector was already disarmed when the detection halted capture.
	}
	s.transition(StateIdle)
}

// disarm stops capture and runs the post-stop hook. Caller holds the mutex.
func (s *Session) disarm() {
	s.capture.Disarm()
	s.safeHook("after_stop", s.hooks.AfterStop)
}

// HandleDetections consumes one batch of raw detection events for a capture
// tick. Outside Scanning the batch is dropped. The first event whose
// symbology matches the filter and whose content is non-empty is selected;
// the rest of the batch is discarded for this tick. Capture is stopped before
// the result callback runs, so the callback never observes an armed detector.
func (s *Session) HandleDetections(batch []detect.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateScanning {
		return
	}

	ev, ok := s.selectDetection(batch)
	if !ok {
		return
	}

	s.disarm()
	s.transition(StateHalted)
	slog.Debug("detection selected", "session_id", s.id,
		"format", ev.Format.String(), "bounds", ev.Bounds.String())

	if s.invokeCapture(ev.Content) {
		s.transition(StateIdle)
		return
	}

	// Resume with the same region. An arm failure parks the session Idle.
	var roi *geometry.NormalizedRect
	if s.hasRegion {
		r := s.roi
		roi = &r
	}
	_ = s.arm(roi)
}

// selectDetection scans the batch in arrival order and returns the first
// qualifying event: matching symbology and non-empty content.
func (s *Session) selectDetection(batch []detect.Event) (detect.Event, bool) {
	for _, ev := range batch {
		if ev.Content == "" {
			continue
		}
		if !s.filter.Matches(ev) {
			continue
		}
		return ev, true
	}
	return detect.Event{}, false
}

// invokeCapture runs the result callback. A panic counts as a halt decision:
// resuming after a broken callback would loop on the same code.
func (s *Session) invokeCapture(content string) (halt bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("result callback panicked", "session_id", s.id, "error", r)
			halt = true
		}
	}()
	return s.hooks.OnCapture(content)
}

// SetupFailed is the asynchronous failure signal from the capture
// collaborator: device or input acquisition failed. The session parks in Idle
// until the caller retries Start; it never auto-retries.
func (s *Session) SetupFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	werr := &SetupError{Err: err}
	slog.Error("capture setup failed", "session_id", s.id, "error", err)
	s.safeHook("on_fail", func() { s.hooks.OnFail(werr) })
	if s.state != StateIdle {
		s.transition(StateIdle)
	}
}

// transition moves to next and notifies listeners. Caller holds the mutex.
func (s *Session) transition(next State) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	slog.Debug("session state transition", "session_id", s.id,
		"from", prev.String(), "to", next.String())
	for _, l := range s.listeners {
		l(prev, next)
	}
}

// safeHook shields the state machine from a panicking hook: the panic is
// logged and discarded, session state is unaffected.
func (s *Session) safeHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("lifecycle hook panicked", "session_id", s.id, "hook", name, "error", r)
		}
	}()
	fn()
}
