package zbar

import (
	"fmt"
	"strings"
)

// Color is the pixel colour of a scanner element.
type Color int

const (
	ColorSpace Color = 0
	ColorBar   Color = 1
)

func (c Color) String() string {
	switch c {
	case ColorSpace:
		return "space"
	case ColorBar:
		return "bar"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// SymbolType identifies a decoded symbology. The low byte is the base
// symbology; bits 8-10 carry add-on flags for EAN/UPC.
type SymbolType int

const (
	SymbolNone      SymbolType = 0
	SymbolPartial   SymbolType = 1
	SymbolEAN2      SymbolType = 2
	SymbolEAN5      SymbolType = 5
	SymbolEAN8      SymbolType = 8
	SymbolUPCE      SymbolType = 9
	SymbolISBN10    SymbolType = 10
	SymbolUPCA      SymbolType = 12
	SymbolEAN13     SymbolType = 13
	SymbolISBN13    SymbolType = 14
	SymbolComposite SymbolType = 15
	SymbolI25       SymbolType = 25
	SymbolDataBar   SymbolType = 34
	SymbolDataBarEx SymbolType = 35
	SymbolCodabar   SymbolType = 38
	SymbolCode39    SymbolType = 39
	SymbolPDF417    SymbolType = 57
	SymbolQRCode    SymbolType = 64
	SymbolCode93    SymbolType = 93
	SymbolCode128   SymbolType = 128

	SymbolMask   SymbolType = 0xff
	SymbolAddOn2 SymbolType = 0x200
	SymbolAddOn5 SymbolType = 0x500
	SymbolAddOn  SymbolType = 0x700
)

var symbolNames = map[SymbolType]string{
	SymbolNone:      "NONE",
	SymbolPartial:   "PARTIAL",
	SymbolEAN2:      "EAN-2",
	SymbolEAN5:      "EAN-5",
	SymbolEAN8:      "EAN-8",
	SymbolUPCE:      "UPC-E",
	SymbolISBN10:    "ISBN-10",
	SymbolUPCA:      "UPC-A",
	SymbolEAN13:     "EAN-13",
	SymbolISBN13:    "ISBN-13",
	SymbolComposite: "COMPOSITE",
	SymbolI25:       "I2/5",
	SymbolDataBar:   "DataBar",
	SymbolDataBarEx: "DataBar-Exp",
	SymbolCodabar:   "Codabar",
	SymbolCode39:    "CODE-39",
	SymbolPDF417:    "PDF417",
	SymbolQRCode:    "QR-Code",
	SymbolCode93:    "CODE-93",
	SymbolCode128:   "CODE-128",
}

// symbolAliases holds the lower-case spellings accepted by ParseSymbolType,
// matching the symbology prefixes of the engine's config mini-language.
var symbolAliases = map[string]SymbolType{
	"none":        SymbolNone,
	"*":           SymbolNone,
	"ean2":        SymbolEAN2,
	"ean5":        SymbolEAN5,
	"ean8":        SymbolEAN8,
	"upce":        SymbolUPCE,
	"isbn10":      SymbolISBN10,
	"upca":        SymbolUPCA,
	"ean13":       SymbolEAN13,
	"isbn13":      SymbolISBN13,
	"composite":   SymbolComposite,
	"i25":         SymbolI25,
	"databar":     SymbolDataBar,
	"databar-exp": SymbolDataBarEx,
	"databarexp":  SymbolDataBarEx,
	"codabar":     SymbolCodabar,
	"code39":      SymbolCode39,
	"pdf417":      SymbolPDF417,
	"qrcode":      SymbolQRCode,
	"qr":          SymbolQRCode,
	"code93":      SymbolCode93,
	"code128":     SymbolCode128,
}

// Base strips the add-on flags.
func (s SymbolType) Base() SymbolType { return s & SymbolMask }

// AddOn returns the add-on flags of an EAN/UPC symbol, or zero.
func (s SymbolType) AddOn() SymbolType { return s & SymbolAddOn }

func (s SymbolType) String() string {
	name, ok := symbolNames[s.Base()]
	if !ok {
		name = fmt.Sprintf("UNKNOWN(%d)", int(s.Base()))
	}
	switch s.AddOn() {
	case SymbolAddOn2:
		return name + "+2"
	case SymbolAddOn5:
		return name + "+5"
	case 0:
		return name
	default:
		return name + "+?"
	}
}

// ParseSymbolType accepts the names produced by String as well as the
// engine's config prefixes ("qrcode", "ean13", "*").
func ParseSymbolType(s string) (SymbolType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := symbolAliases[key]; ok {
		return t, nil
	}
	for t, name := range symbolNames {
		if strings.EqualFold(name, key) {
			return t, nil
		}
	}
	return SymbolNone, fmt.Errorf("zbar: unknown symbol type %q", s)
}

// SymbolTypes lists the concrete symbologies that can be enabled.
func SymbolTypes() []SymbolType {
	return []SymbolType{
		SymbolEAN2, SymbolEAN5, SymbolEAN8, SymbolUPCE, SymbolISBN10,
		SymbolUPCA, SymbolEAN13, SymbolISBN13, SymbolComposite, SymbolI25,
		SymbolDataBar, SymbolDataBarEx, SymbolCodabar, SymbolCode39,
		SymbolPDF417, SymbolQRCode, SymbolCode93, SymbolCode128,
	}
}

// Orientation is the reading direction of a decoded symbol.
type Orientation int

const (
	OrientationUnknown Orientation = -1
	OrientationUp      Orientation = 0
	OrientationRight   Orientation = 1
	OrientationDown    Orientation = 2
	OrientationLeft    Orientation = 3
)

func (o Orientation) String() string {
	switch o {
	case OrientationUp:
		return "UP"
	case OrientationRight:
		return "RIGHT"
	case OrientationDown:
		return "DOWN"
	case OrientationLeft:
		return "LEFT"
	default:
		return "UNKNOWN"
	}
}

// Degrees returns the clockwise rotation of the symbol, or -1 when unknown.
func (o Orientation) Degrees() int {
	if o < OrientationUp || o > OrientationLeft {
		return -1
	}
	return int(o) * 90
}

// ErrorCode mirrors the engine's zbar_error_t.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeNoMem
	ErrCodeInternal
	ErrCodeUnsupported
	ErrCodeInvalid
	ErrCodeSystem
	ErrCodeLocking
	ErrCodeBusy
	ErrCodeXDisplay
	ErrCodeXProto
	ErrCodeClosed
	ErrCodeWinAPI
	ErrCodeNum
)

var errorCodeNames = [...]string{
	"no error",
	"out of memory",
	"internal library error",
	"unsupported request",
	"invalid request",
	"system error",
	"locking error",
	"all resources busy",
	"X11 display error",
	"X11 protocol error",
	"output window is closed",
	"windows system error",
}

func (e ErrorCode) String() string {
	if e >= 0 && int(e) < len(errorCodeNames) {
		return errorCodeNames[e]
	}
	return fmt.Sprintf("unknown error (%d)", int(e))
}

// ConfigOption is a decoder or scanner setting.
type ConfigOption int

const (
	ConfigEnable    ConfigOption = 0
	ConfigAddCheck  ConfigOption = 1
	ConfigEmitCheck ConfigOption = 2
	ConfigASCII     ConfigOption = 3
	ConfigNum       ConfigOption = 4
	ConfigMinLen    ConfigOption = 0x20
	ConfigMaxLen    ConfigOption = 0x21
	ConfigPosition  ConfigOption = 0x80
	ConfigXDensity  ConfigOption = 0x100
	ConfigYDensity  ConfigOption = 0x101
)

var configNames = map[ConfigOption]string{
	ConfigEnable:    "enable",
	ConfigAddCheck:  "add-check",
	ConfigEmitCheck: "emit-check",
	ConfigASCII:     "ascii",
	ConfigMinLen:    "min-length",
	ConfigMaxLen:    "max-length",
	ConfigPosition:  "position",
	ConfigXDensity:  "x-density",
	ConfigYDensity:  "y-density",
}

func (c ConfigOption) String() string {
	if name, ok := configNames[c]; ok {
		return name
	}
	return fmt.Sprintf("config(%#x)", int(c))
}

// ParseConfigOption accepts the names used in the engine's config strings.
func ParseConfigOption(s string) (ConfigOption, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for c, name := range configNames {
		if name == key {
			return c, nil
		}
	}
	switch key {
	case "min-len", "minlen":
		return ConfigMinLen, nil
	case "max-len", "maxlen":
		return ConfigMaxLen, nil
	}
	return 0, fmt.Errorf("zbar: unknown config option %q", s)
}

// Modifier flags qualify how a symbol's data should be interpreted.
type Modifier int

const (
	ModifierGS1 Modifier = 0
	ModifierAIM Modifier = 1
	ModifierNum Modifier = 2
)

func (m Modifier) String() string {
	switch m {
	case ModifierGS1:
		return "GS1"
	case ModifierAIM:
		return "AIM"
	default:
		return fmt.Sprintf("modifier(%d)", int(m))
	}
}

// Modifiers is the bitmask reported for a symbol, one bit per Modifier.
type Modifiers uint

// Has reports whether m is set.
func (ms Modifiers) Has(m Modifier) bool {
	if m < 0 || m >= ModifierNum {
		return false
	}
	return ms&(1<<uint(m)) != 0
}

// List returns the set modifiers in ascending order.
func (ms Modifiers) List() []Modifier {
	var out []Modifier
	for m := Modifier(0); m < ModifierNum; m++ {
		if ms.Has(m) {
			out = append(out, m)
		}
	}
	return out
}
