// Package zbar binds the ZBar barcode engine.
//
// A Scanner owns a native image scanner. Scan hands a single-channel pixel
// buffer to the engine, runs one decode pass and returns the symbols found
// as Results that own their data. Pixel memory passed to the engine is
// released through the engine's own cleanup callback before Scan returns.
//
// The native engine is linked through pkg-config when cgo is enabled. Build
// with -tags nozbar (or CGO_ENABLED=0) to get a binary without it; every
// constructor then fails with ErrEngineUnavailable.
//
// Requires libzbar 0.23 or newer.
package zbar
