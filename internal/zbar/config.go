package zbar

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseConfigString splits a setting in the engine's syntax,
// "[symbology.]option[=value]", into its parts. A missing symbology or "*"
// means SymbolNone, a missing value means 1, and "disable" is enable
// with the value inverted.
func ParseConfigString(cfg string) (SymbolType, ConfigOption, int, error) {
	s := strings.TrimSpace(cfg)
	if s == "" {
		return 0, 0, 0, fmt.Errorf("zbar: empty config string")
	}

	sym := SymbolNone
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		eq := strings.IndexByte(s, '=')
		if eq < 0 || dot < eq {
			t, err := ParseSymbolType(s[:dot])
			if err != nil {
				return 0, 0, 0, err
			}
			sym = t
			s = s[dot+1:]
		}
	}

	name, raw, hasValue := strings.Cut(s, "=")
	value := 1
	if hasValue {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("zbar: config value %q: %w", raw, err)
		}
		value = v
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "disable" {
		if value == 0 {
			return sym, ConfigEnable, 1, nil
		}
		return sym, ConfigEnable, 0, nil
	}
	opt, err := ParseConfigOption(name)
	if err != nil {
		return 0, 0, 0, err
	}
	return sym, opt, value, nil
}

// FormatConfigString is the inverse of ParseConfigString.
func FormatConfigString(sym SymbolType, opt ConfigOption, value int) string {
	return fmt.Sprintf("%s.%s=%d", configPrefix(sym), opt, value)
}

func configPrefix(sym SymbolType) string {
	if sym == SymbolNone {
		return "*"
	}
	for alias, t := range symbolAliases {
		if t == sym && alias != "none" && alias != "*" && alias != "qr" && alias != "databarexp" {
			return alias
		}
	}
	return strings.ToLower(sym.String())
}
