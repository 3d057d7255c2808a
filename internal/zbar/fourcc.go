package zbar

import "fmt"

// Format is a four-character pixel format code packed little-endian.
type Format uint32

const (
	// FormatY800 is 8-bit single-channel luma, the engine's native format.
	FormatY800 Format = 0x30303859
	// FormatGray tags 8-bit luma as "GRAY". libzbar only scans Y800 and GREY,
	// so zbar_scan_image rejects a GRAY image and Scan returns ErrDecodeFailed.
	FormatGray Format = 0x59415247
	// FormatGrey is the "GREY" spelling of 8-bit luma that libzbar accepts.
	FormatGrey Format = 0x59455247
)

// FourCC packs four characters into a Format, first character in the low byte.
func FourCC(a, b, c, d byte) Format {
	return Format(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// ParseFormat packs a four-character string.
func ParseFormat(s string) (Format, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("zbar: format code %q must be exactly four bytes", s)
	}
	return FourCC(s[0], s[1], s[2], s[3]), nil
}

// Bytes unpacks the code in character order.
func (f Format) Bytes() [4]byte {
	return [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
}

func (f Format) String() string {
	b := f.Bytes()
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(f))
		}
	}
	return string(b[:])
}

// SingleChannel reports whether the format stores one byte per pixel.
func (f Format) SingleChannel() bool {
	return f == FormatY800 || f == FormatGray || f == FormatGrey || f == FourCC('Y', '8', ' ', ' ') || f == FourCC('Y', '8', 0, 0)
}

// ValidateGeometry checks that data holds exactly width*height bytes for a
// single-channel format. Scan does not call it; callers that build buffers
// from untrusted input should.
func ValidateGeometry(data []byte, width, height uint32, format Format) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("zbar: invalid geometry %dx%d", width, height)
	}
	if !format.SingleChannel() {
		return fmt.Errorf("zbar: cannot validate geometry for format %s", format)
	}
	want := uint64(width) * uint64(height)
	if uint64(len(data)) != want {
		return fmt.Errorf("zbar: buffer holds %d bytes, %dx%d %s needs %d", len(data), width, height, format, want)
	}
	return nil
}
