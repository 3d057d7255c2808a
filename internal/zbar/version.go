package zbar

import "fmt"

// EngineVersion is the linked library version.
type EngineVersion struct {
	Major uint `json:"major"`
	Minor uint `json:"minor"`
	Patch uint `json:"patch"`
}

func (v EngineVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether v is major.minor or newer.
func (v EngineVersion) AtLeast(major, minor uint) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// Version queries the linked engine.
func Version() (EngineVersion, error) {
	return versionOf(native)
}

func versionOf(eng engine) (EngineVersion, error) {
	major, minor, patch, ok := eng.version()
	if !ok {
		if _, stub := eng.(unavailable); stub {
			return EngineVersion{}, newError("zbar_version", 0, ErrEngineUnavailable)
		}
		return EngineVersion{}, newError("zbar_version", 0, ErrInitializationFailed)
	}
	return EngineVersion{Major: major, Minor: minor, Patch: patch}, nil
}

// Available reports whether a native engine is linked.
func Available() bool {
	_, stub := native.(unavailable)
	return !stub
}

// SetVerbosity sets the engine's global debug output level; 0 is silent.
func SetVerbosity(level int) {
	native.setVerbosity(level)
}
