package detect

import (
	"fmt"
	"strings"

	"github.com/visionkit/scanbox/internal/geometry"
)

// Format represents a machine-readable code symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatPDF417
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

func (f Format) String() string {
	switch f {
	case FormatQR:
		return "qr"
	case FormatDataMatrix:
		return "datamatrix"
	case FormatAztec:
		return "aztec"
	case FormatPDF417:
		return "pdf417"
	case FormatCode128:
		return "code128"
	case FormatCode39:
		return "code39"
	case FormatEAN8:
		return "ean8"
	case FormatEAN13:
		return "ean13"
	case FormatUPCA:
		return "upca"
	case FormatUPCE:
		return "upce"
	case FormatITF:
		return "itf"
	case FormatCodabar:
		return "codabar"
	default:
		return "unknown"
	}
}

// ParseFormat maps a symbology name (as used in config and on events) to a
// Format. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode", "qr_code":
		return FormatQR, nil
	case "datamatrix", "data_matrix":
		return FormatDataMatrix, nil
	case "aztec":
		return FormatAztec, nil
	case "pdf417", "pdf_417":
		return FormatPDF417, nil
	case "code128", "code_128":
		return FormatCode128, nil
	case "code39", "code_39":
		return FormatCode39, nil
	case "ean8", "ean_8":
		return FormatEAN8, nil
	case "ean13", "ean_13":
		return FormatEAN13, nil
	case "upca", "upc_a":
		return FormatUPCA, nil
	case "upce", "upc_e":
		return FormatUPCE, nil
	case "itf":
		return FormatITF, nil
	case "codabar":
		return FormatCodabar, nil
	default:
		return FormatUnknown, fmt.Errorf("detect: unknown symbology %q", s)
	}
}

// ParseFormats parses a list of symbology names. An empty list yields an
// empty slice, meaning "accept any".
func ParseFormats(names []string) ([]Format, error) {
	out := make([]Format, 0, len(names))
	for _, n := range names {
		f, err := ParseFormat(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Event is one raw detection delivered by the capture collaborator: a decoded
// candidate with its bounding rectangle in frame-normalized coordinates.
// Content is empty when the symbol's payload could not be decoded.
type Event struct {
	Format  Format                  `json:"format"`
	Content string                  `json:"content"`
	Bounds  geometry.NormalizedRect `json:"bounds"`
}

// Filter selects which symbologies qualify as scan results. The zero value
// accepts any format.
type Filter struct {
	formats map[Format]struct{}
}

// NewFilter builds a filter accepting only the given formats. With no formats
// the filter accepts everything.
func NewFilter(formats ...Format) Filter {
	if len(formats) == 0 {
		return Filter{}
	}
	m := make(map[Format]struct{}, len(formats))
	for _, f := range formats {
		m[f] = struct{}{}
	}
	return Filter{formats: m}
}

// Matches reports whether the event's symbology passes the filter. Content
// emptiness is judged by the caller, not here.
func (f Filter) Matches(ev Event) bool {
	if len(f.formats) == 0 {
		return true
	}
	_, ok := f.formats[ev.Format]
	return ok
}

// Formats returns the accepted formats, nil when the filter accepts any.
func (f Filter) Formats() []Format {
	if len(f.formats) == 0 {
		return nil
	}
	out := make([]Format, 0, len(f.formats))
	for fm := range f.formats {
		out = append(out, fm)
	}
	return out
}
