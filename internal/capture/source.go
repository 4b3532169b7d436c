package capture

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// Source supplies raw frames to the capture controller, emulating the live
// video stream. Next returns io.EOF when the stream is exhausted.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
}

// FileSource replays still images from disk as a frame stream: either a
// single image file or every supported image in a directory, in name order.
type FileSource struct {
	paths []string
	idx   int
	loop  bool
}

var frameExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// NewFileSource builds a source from path. With loop set the sequence repeats
// forever instead of ending with io.EOF.
func NewFileSource(path string, loop bool) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("capture: frame source: %w", err)
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("capture: frame source: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if frameExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				paths = append(paths, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("capture: no frame images in %s", path)
	}
	return &FileSource{paths: paths, loop: loop}, nil
}

// Len returns the number of distinct frames in the sequence.
func (s *FileSource) Len() int { return len(s.paths) }

// Next loads and returns the next frame.
func (s *FileSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.idx >= len(s.paths) {
		if !s.loop {
			return nil, io.EOF
		}
		s.idx = 0
	}
	path := s.paths[s.idx]
	s.idx++

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: read frame %s: %w", path, err)
	}
	return img, nil
}
