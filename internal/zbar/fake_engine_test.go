package zbar

import (
	"image"
	"sync"
	"unsafe"
)

// fakeEngine stands in for libzbar. It keeps the engine's copy of every
// attached buffer, fires release callbacks the way zbar_image_free_data
// does, and poisons symbol payloads when their image is destroyed.
type fakeEngine struct {
	mu sync.Mutex

	failCreate bool
	scanStatus int
	decode     func(data []byte, width, height uint32) []fakeSymbol

	scannersCreated   int
	scannersDestroyed int
	imagesCreated     int
	imagesDestroyed   int
	releases          int
	liveScanners      map[*fakeScanner]bool
	liveImages        map[*fakeImage]bool
}

type fakeScanner struct {
	configs map[configKey]int
	cache   bool
}

type fakeImage struct {
	format  Format
	width   uint32
	height  uint32
	crop    image.Rectangle
	data    []byte
	orig    []byte
	release ReleaseFunc
	symbols []*fakeSymbol
}

type fakeSymbol struct {
	typ         SymbolType
	data        []byte
	quality     int
	orientation Orientation
	modifiers   Modifiers
	points      []Point
	next        *fakeSymbol
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		liveScanners: make(map[*fakeScanner]bool),
		liveImages:   make(map[*fakeImage]bool),
	}
}

func (f *fakeEngine) version() (uint, uint, uint, bool) { return 0, 23, 93, true }
func (f *fakeEngine) setVerbosity(int)                  {}

func (f *fakeEngine) scannerCreate() unsafe.Pointer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil
	}
	s := &fakeScanner{configs: make(map[configKey]int)}
	f.scannersCreated++
	f.liveScanners[s] = true
	return unsafe.Pointer(s)
}

func (f *fakeEngine) scannerDestroy(p unsafe.Pointer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := (*fakeScanner)(p)
	if !f.liveScanners[s] {
		panic("fake: scanner destroyed twice")
	}
	delete(f.liveScanners, s)
	f.scannersDestroyed++
}

// scannerSetConfig follows zbar_image_scanner_set_config: position and
// density are scanner-wide, and position only takes 0 or 1.
func (f *fakeEngine) scannerSetConfig(p unsafe.Pointer, sym SymbolType, opt ConfigOption, value int) int {
	s := (*fakeScanner)(p)
	if _, ok := configNames[opt]; !ok {
		return 1
	}
	if opt >= ConfigPosition {
		if sym > SymbolPartial {
			return 1
		}
		if opt == ConfigPosition && value != 0 && value != 1 {
			return 1
		}
	}
	if sym != SymbolNone {
		if _, ok := symbolNames[sym]; !ok {
			return 1
		}
	}
	s.configs[configKey{sym, opt}] = value
	return 0
}

func (f *fakeEngine) scannerParseConfig(p unsafe.Pointer, cfg string) int {
	sym, opt, value, err := ParseConfigString(cfg)
	if err != nil {
		return 1
	}
	return f.scannerSetConfig(p, sym, opt, value)
}

func (f *fakeEngine) scannerEnableCache(p unsafe.Pointer, enable bool) {
	(*fakeScanner)(p).cache = enable
}

func (f *fakeEngine) enabled(s *fakeScanner, sym SymbolType) bool {
	if v, ok := s.configs[configKey{sym, ConfigEnable}]; ok {
		return v != 0
	}
	if v, ok := s.configs[configKey{SymbolNone, ConfigEnable}]; ok {
		return v != 0
	}
	return true
}

func (f *fakeEngine) scanImage(sp, ip unsafe.Pointer) int {
	s := (*fakeScanner)(sp)
	img := (*fakeImage)(ip)
	if f.scanStatus < 0 {
		return f.scanStatus
	}
	img.symbols = nil
	if f.decode == nil {
		return 0
	}
	var prev *fakeSymbol
	for _, sym := range f.decode(img.data, img.width, img.height) {
		if !f.enabled(s, sym.typ.Base()) {
			continue
		}
		fs := sym
		fs.data = append([]byte(nil), sym.data...)
		if prev != nil {
			prev.next = &fs
		}
		prev = &fs
		img.symbols = append(img.symbols, &fs)
	}
	return len(img.symbols)
}

func (f *fakeEngine) imageCreate() unsafe.Pointer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil
	}
	img := &fakeImage{}
	f.imagesCreated++
	f.liveImages[img] = true
	return unsafe.Pointer(img)
}

func (f *fakeEngine) freeData(img *fakeImage) {
	if img.data == nil {
		return
	}
	release, orig := img.release, img.orig
	img.data, img.orig, img.release = nil, nil, nil
	f.releases++
	if release != nil {
		release(orig)
	}
}

func (f *fakeEngine) imageDestroy(p unsafe.Pointer) {
	f.mu.Lock()
	img := (*fakeImage)(p)
	if !f.liveImages[img] {
		f.mu.Unlock()
		panic("fake: image destroyed twice")
	}
	delete(f.liveImages, img)
	f.imagesDestroyed++
	for _, s := range img.symbols {
		for i := range s.data {
			s.data[i] = 0xAA
		}
	}
	img.symbols = nil
	f.mu.Unlock()
	f.freeData(img)
}

func (f *fakeEngine) imageSetFormat(p unsafe.Pointer, format Format) {
	(*fakeImage)(p).format = format
}

func (f *fakeEngine) imageSetSize(p unsafe.Pointer, width, height uint32) {
	img := (*fakeImage)(p)
	img.width, img.height = width, height
}

func (f *fakeEngine) imageSetCrop(p unsafe.Pointer, x, y, width, height uint32) {
	(*fakeImage)(p).crop = image.Rect(int(x), int(y), int(x+width), int(y+height))
}

func (f *fakeEngine) imageSetData(p unsafe.Pointer, data []byte, release ReleaseFunc) {
	img := (*fakeImage)(p)
	f.freeData(img)
	img.data = append(make([]byte, 0, max(len(data), 1)), data...)
	img.orig = data
	img.release = release
}

func (f *fakeEngine) firstSymbol(p unsafe.Pointer) unsafe.Pointer {
	img := (*fakeImage)(p)
	if len(img.symbols) == 0 {
		return nil
	}
	return unsafe.Pointer(img.symbols[0])
}

func (f *fakeEngine) symbolNext(p unsafe.Pointer) unsafe.Pointer {
	next := (*fakeSymbol)(p).next
	if next == nil {
		return nil
	}
	return unsafe.Pointer(next)
}

func (f *fakeEngine) symbolType(p unsafe.Pointer) SymbolType         { return (*fakeSymbol)(p).typ }
func (f *fakeEngine) symbolQuality(p unsafe.Pointer) int             { return (*fakeSymbol)(p).quality }
func (f *fakeEngine) symbolOrientation(p unsafe.Pointer) Orientation { return (*fakeSymbol)(p).orientation }
func (f *fakeEngine) symbolModifiers(p unsafe.Pointer) Modifiers     { return (*fakeSymbol)(p).modifiers }
func (f *fakeEngine) symbolConfigs(unsafe.Pointer) uint              { return 0 }
func (f *fakeEngine) symbolLocSize(p unsafe.Pointer) int             { return len((*fakeSymbol)(p).points) }

func (f *fakeEngine) symbolLoc(p unsafe.Pointer, i int) (int, int) {
	pt := (*fakeSymbol)(p).points[i]
	return pt.X, pt.Y
}

func (f *fakeEngine) symbolData(p unsafe.Pointer) (unsafe.Pointer, int) {
	d := (*fakeSymbol)(p).data
	if len(d) == 0 {
		return nil, 0
	}
	return unsafe.Pointer(&d[0]), len(d)
}

// darkRegionDecoder reports one QR symbol carrying payload whenever the
// image has pixels below mid-grey. Its location polygon is the corners of
// the dark region in zbar's QR order: top-left, bottom-left, bottom-right,
// top-right.
func darkRegionDecoder(payload string) func([]byte, uint32, uint32) []fakeSymbol {
	return func(data []byte, width, height uint32) []fakeSymbol {
		minX, minY, maxX, maxY := -1, -1, -1, -1
		for i, v := range data {
			if v >= 128 || width == 0 {
				continue
			}
			x, y := i%int(width), i/int(width)
			if y >= int(height) {
				break
			}
			if minX < 0 || x < minX {
				minX = x
			}
			if minY < 0 || y < minY {
				minY = y
			}
			maxX, maxY = max(maxX, x), max(maxY, y)
		}
		if minX < 0 {
			return nil
		}
		return []fakeSymbol{{
			typ:         SymbolQRCode,
			data:        []byte(payload),
			quality:     1,
			orientation: OrientationUp,
			points:      []Point{{minX, minY}, {minX, maxY}, {maxX, maxY}, {maxX, minY}},
		}}
	}
}
