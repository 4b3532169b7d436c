package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	for _, f := range []Format{
		FormatQR, FormatDataMatrix, FormatAztec, FormatPDF417,
		FormatCode128, FormatCode39, FormatEAN8, FormatEAN13,
		FormatUPCA, FormatUPCE, FormatITF, FormatCodabar,
	} {
		got, err := ParseFormat(f.String())
		require.NoError(t, err, f.String())
		assert.Equal(t, f, got)
	}
}

func TestParseFormatAliases(t *testing.T) {
	got, err := ParseFormat("QR_CODE")
	require.NoError(t, err)
	assert.Equal(t, FormatQR, got)

	_, err = ParseFormat("morse")
	assert.Error(t, err)
}

func TestParseFormats(t *testing.T) {
	fs, err := ParseFormats([]string{"qr", "ean13"})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatQR, FormatEAN13}, fs)

	_, err = ParseFormats([]string{"qr", "nope"})
	assert.Error(t, err)

	fs, err = ParseFormats(nil)
	require.NoError(t, err)
	assert.Empty(t, fs)
}

func TestFilterAcceptAnyByDefault(t *testing.T) {
	var f Filter
	assert.True(t, f.Matches(Event{Format: FormatQR}))
	assert.True(t, f.Matches(Event{Format: FormatCode128}))
	assert.Nil(t, f.Formats())
}

func TestFilterRestricts(t *testing.T) {
	f := NewFilter(FormatQR, FormatAztec)
	assert.True(t, f.Matches(Event{Format: FormatQR}))
	assert.True(t, f.Matches(Event{Format: FormatAztec}))
	assert.False(t, f.Matches(Event{Format: FormatEAN13}))
	assert.Len(t, f.Formats(), 2)
}
