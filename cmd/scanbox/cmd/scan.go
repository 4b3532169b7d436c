package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/visionkit/scanbox/internal/capture"
	"github.com/visionkit/scanbox/internal/detect"
	"github.com/visionkit/scanbox/internal/display"
	"github.com/visionkit/scanbox/internal/geometry"
	"github.com/visionkit/scanbox/internal/metrics"
	"github.com/visionkit/scanbox/internal/session"
)

// scanCmd runs a scan session over a frame file or directory.
var scanCmd = &cobra.Command{
	Use:   "scan [frames]",
	Short: "Run a scan session over a frame stream",
	Long: `Replay a frame stream (a single image or a directory of images) through a
scan session. Each capture is reported in arrival order; with --first the
session halts at the first capture, otherwise scanning resumes until the
stream ends.

Examples:
  scanbox scan frames/
  scanbox scan frame.png --symbology qr --format yaml
  scanbox scan frames/ --first`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("format", "json", "output format (json, yaml)")
	scanCmd.Flags().Bool("first", false, "halt after the first capture")
	scanCmd.Flags().Duration("timeout", 30*time.Second, "overall scan deadline")
	rootCmd.AddCommand(scanCmd)
}

// scanReport is the command output.
type scanReport struct {
	SessionID string                   `json:"session_id" yaml:"session_id"`
	Region    *geometry.NormalizedRect `json:"region,omitempty" yaml:"region,omitempty"`
	Frames    int                      `json:"frames" yaml:"frames"`
	Captures  []scanCapture            `json:"captures" yaml:"captures"`
	State     string                   `json:"state" yaml:"state"`
}

type scanCapture struct {
	Content string `json:"content" yaml:"content"`
	Frame   int    `json:"frame" yaml:"frame"`
}

// countingSink forwards batches to the session while tracking frame ticks.
type countingSink struct {
	session *session.Session
	frames  int
}

func (s *countingSink) HandleDetections(events []detect.Event) {
	s.frames++
	s.session.HandleDetections(events)
}

func (s *countingSink) SetupFailed(err error) { s.session.SetupFailed(err) }

func runScan(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	outFormat, _ := cmd.Flags().GetString("format")
	haltFirst, _ := cmd.Flags().GetBool("first")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	filter, err := cfg.Filter()
	if err != nil {
		return err
	}
	orientation, err := cfg.Orientation()
	if err != nil {
		return err
	}

	source, err := capture.NewFileSource(args[0], cfg.Scan.Loop)
	if err != nil {
		return err
	}

	var interval time.Duration
	if cfg.Scan.FPS > 0 && cfg.Scan.Loop {
		interval = time.Second / time.Duration(cfg.Scan.FPS)
	}
	controller := capture.NewController(source, capture.NewDecoder(filter, cfg.Scan.TryHarder), interval)

	displaySize := geometry.Size{Width: cfg.Display.Width, Height: cfg.Display.Height}
	layer := display.NewLayer(cfg.Display.FrameWidth, cfg.Display.FrameHeight, displaySize, orientation)

	report := &scanReport{}
	sink := &countingSink{}
	sess := session.New(controller, layer, filter, session.Hooks{
		OnCapture: func(content string) bool {
			report.Captures = append(report.Captures, scanCapture{Content: content, Frame: sink.frames})
			return haltFirst
		},
		OnFail: func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "scan warning: %v\n", err)
		},
	})
	sink.session = sess
	sess.AddTransitionListener(metrics.SessionListener())

	if err := sess.ConfigureRegion(displaySize, cfg.Region.BoxSize); err != nil {
		return fmt.Errorf("configure scan region: %w", err)
	}
	if err := sess.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if haltFirst {
		// Stop pumping once the session halts instead of idling until the deadline.
		sess.AddTransitionListener(func(_, next session.State) {
			if next == session.StateIdle {
				cancel()
			}
		})
	}

	if err := controller.Run(ctx, sink); err != nil && ctx.Err() == nil {
		return err
	}
	report.State = sess.State().String()
	sess.Stop()

	report.SessionID = sess.ID()
	if roi, ok := sess.Region(); ok {
		report.Region = &roi
	}
	report.Frames = sink.frames

	return writeReport(cmd, report, outFormat)
}

func writeReport(cmd *cobra.Command, report *scanReport, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(report)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
