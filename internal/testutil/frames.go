// Package testutil builds synthetic video frames containing real, decodable
// QR symbols so decoder and session tests can exercise the full pipeline
// without camera hardware.
package testutil

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"
	xdraw "golang.org/x/image/draw"

	"github.com/disintegration/imaging"
	"github.com/visionkit/scanbox/internal/geometry"
)

// QRImage encodes content as a QR symbol of the given pixel size.
func QRImage(content string, size int) (image.Image, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("testutil: encode %q: %w", content, err)
	}
	return q.Image(size), nil
}

// Frame produces a white frame of the given dimensions with a QR symbol for
// content drawn into the target rectangle (frame pixel coordinates). The
// symbol is rendered at the target's shorter side and centered in it without
// rescaling, keeping module edges crisp for the decoder.
func Frame(width, height int, content string, target image.Rectangle) (image.Image, error) {
	side := target.Dx()
	if target.Dy() < side {
		side = target.Dy()
	}
	sym, err := QRImage(content, side)
	if err != nil {
		return nil, err
	}

	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(frame, frame.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	sb := sym.Bounds()
	off := image.Pt(
		target.Min.X+(target.Dx()-sb.Dx())/2,
		target.Min.Y+(target.Dy()-sb.Dy())/2,
	)
	xdraw.Draw(frame, image.Rectangle{Min: off, Max: off.Add(sb.Size())}, sym, sb.Min, xdraw.Over)
	return frame, nil
}

// FrameWithROI places the symbol inside the given normalized region, padded
// inward so finder patterns stay clear of the region edge.
func FrameWithROI(width, height int, content string, roi geometry.NormalizedRect) (image.Image, error) {
	r := roi.Clamp()
	x0 := int(r.X * float64(width))
	y0 := int(r.Y * float64(height))
	x1 := int((r.X + r.Width) * float64(width))
	y1 := int((r.Y + r.Height) * float64(height))

	pad := (x1 - x0) / 10
	if p := (y1 - y0) / 10; p < pad {
		pad = p
	}
	return Frame(width, height, content, image.Rect(x0+pad, y0+pad, x1-pad, y1-pad))
}

// WriteFrames renders one frame per content string into dir as PNG files,
// each with the symbol centered, and returns the file paths in order.
func WriteFrames(dir string, width, height int, contents []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	center := geometry.NormalizedRect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	paths := make([]string, 0, len(contents))
	for i, content := range contents {
		frame, err := FrameWithROI(width, height, content, center)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		if err := imaging.Save(frame, path); err != nil {
			return nil, fmt.Errorf("testutil: save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// BlankFrame returns a uniform white frame with no symbol in it.
func BlankFrame(width, height int) image.Image {
	frame := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(frame, frame.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	return frame
}
