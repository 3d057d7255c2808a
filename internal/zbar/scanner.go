package zbar

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"
)

type configKey struct {
	sym SymbolType
	opt ConfigOption
}

// Scanner owns one native image scanner. Calls on a Scanner are serialised;
// use one Scanner per goroutine for parallel decoding.
type Scanner struct {
	mu      sync.Mutex
	eng     engine
	handle  unsafe.Pointer
	configs map[configKey]int
	cache   bool
	cleanup runtime.Cleanup
}

type scannerRef struct {
	eng    engine
	handle unsafe.Pointer
}

// NewScanner creates a scanner with the engine's default configuration.
func NewScanner() (*Scanner, error) {
	return newScanner(native)
}

func newScanner(eng engine) (*Scanner, error) {
	h := eng.scannerCreate()
	if h == nil {
		return nil, creationError(eng, "zbar_image_scanner_create")
	}
	s := &Scanner{eng: eng, handle: h, configs: make(map[configKey]int)}
	s.cleanup = runtime.AddCleanup(s, func(r scannerRef) { r.eng.scannerDestroy(r.handle) }, scannerRef{eng, h})
	return s, nil
}

// SetConfig applies one setting. SymbolNone addresses every symbology. On
// rejection nothing changes and the error wraps ErrUnsupportedConfig.
func (s *Scanner) SetConfig(sym SymbolType, opt ConfigOption, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return newError("zbar_image_scanner_set_config", 0, ErrDestroyed)
	}
	if status := s.eng.scannerSetConfig(s.handle, sym, opt, value); status != 0 {
		return newError("zbar_image_scanner_set_config", status,
			fmt.Errorf("%w: %s.%s=%d", ErrUnsupportedConfig, configPrefix(sym), opt, value))
	}
	s.remember(sym, opt, value)
	return nil
}

// ParseConfig applies a setting written in the engine's config syntax, for
// example "qrcode.enable=1" or "*.x-density=2". The string is passed through
// uninterpreted; a successfully parsed setting is also recorded for Config.
func (s *Scanner) ParseConfig(cfg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return newError("zbar_image_scanner_parse_config", 0, ErrDestroyed)
	}
	if status := s.eng.scannerParseConfig(s.handle, cfg); status != 0 {
		return newError("zbar_image_scanner_parse_config", status,
			fmt.Errorf("%w: %q", ErrUnsupportedConfig, cfg))
	}
	if sym, opt, value, err := ParseConfigString(cfg); err == nil {
		s.remember(sym, opt, value)
	}
	return nil
}

// EnableCache turns the inter-image result cache on or off. With the cache
// on, a symbol is only reported once it has been seen in consecutive images.
func (s *Scanner) EnableCache(enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return newError("zbar_image_scanner_enable_cache", 0, ErrDestroyed)
	}
	s.eng.scannerEnableCache(s.handle, enable)
	s.cache = enable
	return nil
}

// Config returns the last value applied for sym and opt through this
// Scanner, falling back to a value applied to every symbology.
func (s *Scanner) Config(sym SymbolType, opt ConfigOption) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.configs[configKey{sym, opt}]; ok {
		return v, true
	}
	v, ok := s.configs[configKey{SymbolNone, opt}]
	return v, ok
}

func (s *Scanner) remember(sym SymbolType, opt ConfigOption, value int) {
	if sym == SymbolNone {
		for k := range s.configs {
			if k.opt == opt {
				delete(s.configs, k)
			}
		}
	}
	s.configs[configKey{sym, opt}] = value
}

// Scan decodes one image of single-channel pixels. The bytes are handed to
// the engine for the duration of the call and released before Scan returns,
// on success and failure alike. No symbols is an empty slice, not an error.
func (s *Scanner) Scan(data []byte, width, height uint32, format Format) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, newError("zbar_scan_image", 0, ErrDestroyed)
	}
	if len(data) == 0 {
		return nil, newError("zbar_scan_image", 0, fmt.Errorf("%w: empty pixel buffer", ErrDecodeFailed))
	}

	img, err := newImage(s.eng, width, height, format)
	if err != nil {
		return nil, err
	}
	run := &decodeRun{observe: decodeObserver}
	defer func() {
		img.Destroy()
		if !run.released() {
			slog.Error("zbar: engine did not release pixel buffer", "state", run.state.String())
		}
	}()

	run.advance(stateBufferAttached)
	if err := img.AttachData(data, func([]byte) { run.advance(stateBufferReleased) }); err != nil {
		return nil, err
	}

	if status := s.eng.scanImage(s.handle, img.handle); status < 0 {
		return nil, newError("zbar_scan_image", status, ErrDecodeFailed)
	}
	run.advance(stateDecoded)

	results := extractSymbols(s.eng, img.handle)
	run.advance(stateExtracted)

	slog.Debug("zbar scan", "width", width, "height", height, "format", format.String(), "symbols", len(results))
	return results, nil
}

// ScanY800 scans 8-bit luma pixels.
func (s *Scanner) ScanY800(data []byte, width, height uint32) ([]Result, error) {
	return s.Scan(data, width, height, FormatY800)
}

// ScanGray submits 8-bit luma pixels tagged GRAY. libzbar does not accept
// that tag and the call fails with ErrDecodeFailed; use ScanY800 or Scan with
// FormatGrey to decode.
func (s *Scanner) ScanGray(data []byte, width, height uint32) ([]Result, error) {
	return s.Scan(data, width, height, FormatGray)
}

// ScanImage decodes a caller-owned Image. The image keeps its buffer and
// stays usable afterwards.
func (s *Scanner) ScanImage(img *Image) ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil, newError("zbar_scan_image", 0, ErrDestroyed)
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.destroyed() {
		return nil, newError("zbar_scan_image", 0, ErrDestroyed)
	}
	if !img.hasData {
		return nil, newError("zbar_scan_image", 0, fmt.Errorf("%w: image has no data", ErrDecodeFailed))
	}
	if status := s.eng.scanImage(s.handle, img.handle); status < 0 {
		return nil, newError("zbar_scan_image", status, ErrDecodeFailed)
	}
	return extractSymbols(s.eng, img.handle), nil
}

// Destroy releases the native scanner. Calling it again is a no-op; every
// other method then returns ErrDestroyed.
func (s *Scanner) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return
	}
	s.cleanup.Stop()
	s.eng.scannerDestroy(s.handle)
	s.handle = nil
}

// Close implements io.Closer.
func (s *Scanner) Close() error {
	s.Destroy()
	return nil
}

// Destroyed reports whether Destroy has run.
func (s *Scanner) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle == nil
}
