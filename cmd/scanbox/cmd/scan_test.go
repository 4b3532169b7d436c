package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionkit/scanbox/internal/testutil"
)

// writeScanConfig writes a config whose display matches the generated 480x480
// frames exactly, so the scan box maps onto the frames' center half.
func writeScanConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scanbox.yaml")
	data := []byte(`
log_level: error
region:
  box_size: 240
scan:
  symbologies: ["qr"]
  try_harder: true
  fps: 0
display:
  width: 480
  height: 480
  frame_width: 480
  frame_height: 480
  orientation: landscape_right
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	globalConfig = nil

	root := GetRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "scanbox version")
}

func TestScanCommandReportsCaptures(t *testing.T) {
	dir := t.TempDir()
	_, err := testutil.WriteFrames(dir, 480, 480, []string{"FIRST", "SECOND"})
	require.NoError(t, err)

	out, err := execute(t, "scan", dir, "--config", writeScanConfig(t), "--format", "json", "--first=false")
	require.NoError(t, err)

	var report scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report.SessionID)
	require.NotNil(t, report.Region)
	require.Len(t, report.Captures, 2)
	assert.Equal(t, "FIRST", report.Captures[0].Content)
	assert.Equal(t, "SECOND", report.Captures[1].Content)
	assert.Equal(t, "scanning", report.State, "resume keeps the session scanning until the stream ends")
}

func TestScanCommandFirstHalts(t *testing.T) {
	dir := t.TempDir()
	_, err := testutil.WriteFrames(dir, 480, 480, []string{"ONLY", "IGNORED"})
	require.NoError(t, err)

	out, err := execute(t, "scan", dir, "--config", writeScanConfig(t), "--first")
	require.NoError(t, err)

	var report scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Captures, 1)
	assert.Equal(t, "ONLY", report.Captures[0].Content)
	assert.Equal(t, "idle", report.State)
}

func TestScanCommandYAMLOutput(t *testing.T) {
	dir := t.TempDir()
	_, err := testutil.WriteFrames(dir, 480, 480, []string{"YAMLED"})
	require.NoError(t, err)

	out, err := execute(t, "scan", dir, "--config", writeScanConfig(t), "--format", "yaml", "--first=false")
	require.NoError(t, err)
	assert.Contains(t, out, "content: YAMLED")
}

func TestScanCommandMissingPath(t *testing.T) {
	_, err := execute(t, "scan", "/nonexistent/frames", "--config", writeScanConfig(t))
	assert.Error(t, err)
}
