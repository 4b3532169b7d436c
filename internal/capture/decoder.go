package capture

import (
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/multi"

	"github.com/visionkit/scanbox/internal/detect"
	"github.com/visionkit/scanbox/internal/geometry"
)

// Decoder turns a raw frame into detection events using the gozxing
// multi-format reader. It restricts the search to the armed region of
// interest and reports bounds normalized to the FULL frame, so downstream
// consumers never see ROI-relative coordinates.
type Decoder struct {
	filter    detect.Filter
	tryHarder bool
}

// NewDecoder builds a decoder hinting the reader at the filter's formats.
// tryHarder trades speed for a more exhaustive search.
func NewDecoder(filter detect.Filter, tryHarder bool) *Decoder {
	return &Decoder{filter: filter, tryHarder: tryHarder}
}

// Decode searches img within roi (nil means the whole frame) and returns one
// event per decoded symbol, in reader order. A frame with no symbols yields
// an empty batch, not an error.
func (d *Decoder) Decode(img image.Image, roi *geometry.NormalizedRect) []detect.Event {
	full := img.Bounds()
	crop := full
	if roi != nil && !roi.IsZero() {
		crop = pixelRect(*roi, full)
		if crop.Empty() {
			return nil
		}
		img = imaging.Crop(img, crop)
	}

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		slog.Debug("binarize failed", "error", err)
		return nil
	}

	hints := d.hints()
	reader := multi.NewGenericMultipleBarcodeReader(gozxing.NewMultiFormatReader())
	results, err := reader.DecodeMultiple(bitmap, hints)
	if err != nil {
		// gozxing reports "nothing found" as an error; that is just an empty tick.
		return nil
	}

	events := make([]detect.Event, 0, len(results))
	for _, r := range results {
		events = append(events, detect.Event{
			Format:  formatFromZXing(r.GetBarcodeFormat()),
			Content: r.GetText(),
			Bounds:  normalizedBounds(r.GetResultPoints(), crop, full),
		})
	}
	return events
}

func (d *Decoder) hints() map[gozxing.DecodeHintType]interface{} {
	hints := make(map[gozxing.DecodeHintType]interface{})
	if formats := d.filter.Formats(); len(formats) > 0 {
		zx := make([]gozxing.BarcodeFormat, 0, len(formats))
		for _, f := range formats {
			if bf, ok := formatToZXing(f); ok {
				zx = append(zx, bf)
			}
		}
		if len(zx) > 0 {
			hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = zx
		}
	}
	if d.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	return hints
}

// pixelRect converts a frame-normalized region into pixel coordinates.
func pixelRect(n geometry.NormalizedRect, bounds image.Rectangle) image.Rectangle {
	n = n.Clamp()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(n.X*w),
		bounds.Min.Y+int(n.Y*h),
		bounds.Min.X+int((n.X+n.Width)*w),
		bounds.Min.Y+int((n.Y+n.Height)*h),
	)
	return r.Intersect(bounds)
}

// normalizedBounds converts reader result points (relative to the cropped
// region) into a full-frame normalized bounding rectangle.
func normalizedBounds(pts []gozxing.ResultPoint, crop, full image.Rectangle) geometry.NormalizedRect {
	if len(pts) == 0 {
		return geometry.NormalizedRect{}
	}
	minX, minY := pts[0].GetX(), pts[0].GetY()
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		x, y := p.GetX(), p.GetY()
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}
	fw := float64(full.Dx())
	fh := float64(full.Dy())
	ox := float64(crop.Min.X - full.Min.X)
	oy := float64(crop.Min.Y - full.Min.Y)
	return geometry.NormalizedRect{
		X:      (ox + minX) / fw,
		Y:      (oy + minY) / fh,
		Width:  (maxX - minX) / fw,
		Height: (maxY - minY) / fh,
	}.Clamp()
}

func formatToZXing(f detect.Format) (gozxing.BarcodeFormat, bool) {
	switch f {
	case detect.FormatQR:
		return gozxing.BarcodeFormat_QR_CODE, true
	case detect.FormatDataMatrix:
		return gozxing.BarcodeFormat_DATA_MATRIX, true
	case detect.FormatAztec:
		return gozxing.BarcodeFormat_AZTEC, true
	case detect.FormatPDF417:
		return gozxing.BarcodeFormat_PDF_417, true
	case detect.FormatCode128:
		return gozxing.BarcodeFormat_CODE_128, true
	case detect.FormatCode39:
		return gozxing.BarcodeFormat_CODE_39, true
	case detect.FormatEAN8:
		return gozxing.BarcodeFormat_EAN_8, true
	case detect.FormatEAN13:
		return gozxing.BarcodeFormat_EAN_13, true
	case detect.FormatUPCA:
		return gozxing.BarcodeFormat_UPC_A, true
	case detect.FormatUPCE:
		return gozxing.BarcodeFormat_UPC_E, true
	case detect.FormatITF:
		return gozxing.BarcodeFormat_ITF, true
	case detect.FormatCodabar:
		return gozxing.BarcodeFormat_CODABAR, true
	default:
		return 0, false
	}
}

func formatFromZXing(bf gozxing.BarcodeFormat) detect.Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return detect.FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return detect.FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return detect.FormatAztec
	case gozxing.BarcodeFormat_PDF_417:
		return detect.FormatPDF417
	case gozxing.BarcodeFormat_CODE_128:
		return detect.FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return detect.FormatCode39
	case gozxing.BarcodeFormat_EAN_8:
		return detect.FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return detect.FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return detect.FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return detect.FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return detect.FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return detect.FormatCodabar
	default:
		return detect.FormatUnknown
	}
}
