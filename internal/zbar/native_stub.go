//go:build !cgo || nozbar

package zbar

import "unsafe"

// stubEngine fails every creation, so NewScanner and NewImage report
// ErrEngineUnavailable. Nothing past creation is reachable.
type stubEngine struct{}

func newNativeEngine() engine { return stubEngine{} }

func (stubEngine) unavailable() {}

func (stubEngine) version() (uint, uint, uint, bool)                                  { return 0, 0, 0, false }
func (stubEngine) setVerbosity(int)                                                   {}
func (stubEngine) scannerCreate() unsafe.Pointer                                      { return nil }
func (stubEngine) scannerDestroy(unsafe.Pointer)                                      {}
func (stubEngine) scannerSetConfig(unsafe.Pointer, SymbolType, ConfigOption, int) int { return 1 }
func (stubEngine) scannerParseConfig(unsafe.Pointer, string) int                      { return 1 }
func (stubEngine) scannerEnableCache(unsafe.Pointer, bool)                            {}
func (stubEngine) scanImage(_, _ unsafe.Pointer) int                                  { return -1 }
func (stubEngine) imageCreate() unsafe.Pointer                                        { return nil }
func (stubEngine) imageDestroy(unsafe.Pointer)                                        {}
func (stubEngine) imageSetFormat(unsafe.Pointer, Format)                              {}
func (stubEngine) imageSetSize(unsafe.Pointer, uint32, uint32)                        {}
func (stubEngine) imageSetCrop(unsafe.Pointer, uint32, uint32, uint32, uint32)        {}

func (stubEngine) imageSetData(_ unsafe.Pointer, data []byte, release ReleaseFunc) {
	if release != nil {
		release(data)
	}
}

func (stubEngine) firstSymbol(unsafe.Pointer) unsafe.Pointer       { return nil }
func (stubEngine) symbolNext(unsafe.Pointer) unsafe.Pointer        { return nil }
func (stubEngine) symbolType(unsafe.Pointer) SymbolType            { return SymbolNone }
func (stubEngine) symbolQuality(unsafe.Pointer) int                { return 0 }
func (stubEngine) symbolOrientation(unsafe.Pointer) Orientation    { return OrientationUnknown }
func (stubEngine) symbolModifiers(unsafe.Pointer) Modifiers        { return 0 }
func (stubEngine) symbolConfigs(unsafe.Pointer) uint               { return 0 }
func (stubEngine) symbolLocSize(unsafe.Pointer) int                { return 0 }
func (stubEngine) symbolLoc(unsafe.Pointer, int) (int, int)        { return 0, 0 }
func (stubEngine) symbolData(unsafe.Pointer) (unsafe.Pointer, int) { return nil, 0 }
