package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf8 passthrough", []byte("https://example.org"), CharsetUTF8, "https://example.org"},
		{"auto keeps utf8", []byte("grüße"), CharsetAuto, "grüße"},
		{"auto falls back to latin1", []byte{0x67, 0x72, 0xfc, 0xdf, 0x65}, "", "grüße"},
		{"latin1", []byte{0xe9}, "latin1", "é"},
		{"shift_jis", []byte{0x82, 0xa0}, "sjis", "あ"},
		{"gb18030", []byte{0xc4, 0xe3}, CharsetGB18030, "你"},
		{"binary", []byte{0x00, 0xff}, CharsetBinary, "00ff"},
		{"nfc normalisation", []byte("e\u0301"), CharsetUTF8, "\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data, tt.charset)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{0xff}, CharsetUTF8)
	require.ErrorIs(t, err, ErrInvalidText)

	_, err = Decode([]byte("x"), "ebcdic")
	require.ErrorIs(t, err, ErrUnknownCharset)
}

func TestValidCharset(t *testing.T) {
	for _, c := range Charsets() {
		assert.True(t, ValidCharset(c), c)
	}
	assert.True(t, ValidCharset("Shift-JIS"))
	assert.False(t, ValidCharset("ebcdic"))
}

func TestIsText(t *testing.T) {
	assert.True(t, IsText([]byte("line one\nline two\t")))
	assert.False(t, IsText([]byte{0x00, 0x41}))
	assert.False(t, IsText([]byte{0xff}))
	assert.False(t, IsText([]byte{0x7f}))
}
