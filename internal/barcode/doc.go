// Package barcode decodes barcodes in decoded images through a pluggable
// Backend.
//
// The default backend drives the native ZBar engine (internal/zbar): it
// converts the image to 8-bit luma, applies symbology and density settings
// and maps ZBar symbols back to Results. The gozxing backend is pure Go; it
// serves hosts built without the engine and cross-checks ZBar in tests.
//
// Example:
//
//	be, err := barcode.NewBackend("auto")
//	if err != nil { ... }
//	defer be.Close()
//	results, err := be.Decode(ctx, img, barcode.Options{Multi: true})
package barcode
