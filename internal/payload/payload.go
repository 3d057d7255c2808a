// Package payload turns raw symbol bytes into text.
package payload

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/unicode/norm"
)

// Charset names accepted by Decode.
const (
	CharsetAuto     = "auto"
	CharsetUTF8     = "utf-8"
	CharsetLatin1   = "iso-8859-1"
	CharsetShiftJIS = "shift_jis"
	CharsetGB18030  = "gb18030"
	CharsetBinary   = "binary"
)

// ErrUnknownCharset is returned for a charset name Decode does not know.
var ErrUnknownCharset = errors.New("payload: unknown charset")

// ErrInvalidText is returned when bytes are not valid in the requested charset.
var ErrInvalidText = errors.New("payload: invalid text")

// Charsets lists the accepted names.
func Charsets() []string {
	return []string{CharsetAuto, CharsetUTF8, CharsetLatin1, CharsetShiftJIS, CharsetGB18030, CharsetBinary}
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "auto":
		return CharsetAuto
	case "utf8", "utf-8":
		return CharsetUTF8
	case "latin1", "latin-1", "iso8859-1", "iso-8859-1":
		return CharsetLatin1
	case "sjis", "shift-jis", "shift_jis":
		return CharsetShiftJIS
	case "gb18030", "gbk":
		return CharsetGB18030
	case "binary", "hex":
		return CharsetBinary
	}
	return n
}

// ValidCharset reports whether Decode accepts name.
func ValidCharset(name string) bool {
	n := normalize(name)
	for _, c := range Charsets() {
		if c == n {
			return true
		}
	}
	return false
}

// Decode interprets data in charset and returns NFC-normalised text.
// "auto" keeps valid UTF-8 and reads anything else as ISO-8859-1, which is
// the default interpretation of QR byte mode. "binary" renders hex.
func Decode(data []byte, charset string) (string, error) {
	var enc encoding.Encoding
	switch normalize(charset) {
	case CharsetAuto:
		if utf8.Valid(data) {
			return norm.NFC.String(string(data)), nil
		}
		enc = charmap.ISO8859_1
	case CharsetUTF8:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: not UTF-8", ErrInvalidText)
		}
		return norm.NFC.String(string(data)), nil
	case CharsetLatin1:
		enc = charmap.ISO8859_1
	case CharsetShiftJIS:
		enc = japanese.ShiftJIS
	case CharsetGB18030:
		enc = simplifiedchinese.GB18030
	case CharsetBinary:
		return fmt.Sprintf("%x", data), nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownCharset, charset)
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidText, err)
	}
	return norm.NFC.String(string(out)), nil
}

// IsText reports whether data is valid UTF-8 without control characters
// other than tab, newline and carriage return.
func IsText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for _, r := range string(data) {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
		if r == 0x7f {
			return false
		}
	}
	return true
}
