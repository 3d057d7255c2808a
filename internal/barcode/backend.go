package barcode

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

// Backend names accepted by NewBackend.
const (
	BackendAuto    = "auto"
	BackendZBar    = "zbar"
	BackendGozxing = "gozxing"
)

// ErrUnknownBackend is returned for a backend name NewBackend does not know.
var ErrUnknownBackend = errors.New("barcode: unknown backend")

// Backends lists the concrete backend names.
func Backends() []string { return []string{BackendZBar, BackendGozxing} }

// NewBackend returns the named backend. "auto" (or "") selects zbar when the
// native engine is linked and gozxing otherwise.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendAuto:
		if zbar.Available() {
			be, err := newZBarBackend()
			if err == nil {
				return be, nil
			}
			slog.Warn("zbar backend unavailable, falling back to gozxing", "error", err)
		}
		return newGozxingBackend(), nil
	case BackendZBar:
		return newZBarBackend()
	case BackendGozxing:
		return newGozxingBackend(), nil
	default:
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownBackend, name, strings.Join(append([]string{BackendAuto}, Backends()...), ", "))
	}
}
