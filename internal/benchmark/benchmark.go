// Package benchmark compares the decoding backends on a set of images.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

// ErrNoImages is returned by Run when there is nothing to measure.
var ErrNoImages = errors.New("benchmark: no images")

// Timer measures elapsed wall time.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time since the timer was started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// allocatedBytes returns the cumulative heap allocation of the process.
func allocatedBytes() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.TotalAlloc
}

// Result is the measurement of one backend on one image.
type Result struct {
	Backend    string
	Iterations int
	Duration   time.Duration
	Symbols    int
	AllocBytes uint64
	Skipped    bool
	Err        error
}

// Average returns the mean duration of a single decode.
func (r Result) Average() time.Duration {
	if r.Iterations == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Iterations)
}

// AllocPerOp returns the mean allocation of a single decode.
func (r Result) AllocPerOp() uint64 {
	if r.Iterations == 0 {
		return 0
	}
	return r.AllocBytes / uint64(r.Iterations)
}

func (r Result) String() string {
	switch {
	case r.Skipped:
		return fmt.Sprintf("%s: skipped", r.Backend)
	case r.Err != nil:
		return fmt.Sprintf("%s: FAILED (%v)", r.Backend, r.Err)
	}
	return fmt.Sprintf("%s: %d iterations, avg %v, %d symbols, %d B/op",
		r.Backend, r.Iterations, r.Average(), r.Symbols, r.AllocPerOp())
}

// Comparison holds the results of every backend for one image.
type Comparison struct {
	Image   string
	Bounds  image.Rectangle
	Results []Result
}

// Fastest returns the successful result with the lowest average duration.
func (c Comparison) Fastest() (Result, bool) {
	var best Result
	found := false
	for _, r := range c.Results {
		if r.Skipped || r.Err != nil {
			continue
		}
		if !found || r.Average() < best.Average() {
			best, found = r, true
		}
	}
	return best, found
}

// Speedup returns how many times faster a is than b on this image.
func (c Comparison) Speedup(a, b string) (float64, bool) {
	ra, okA := c.result(a)
	rb, okB := c.result(b)
	if !okA || !okB || ra.Average() == 0 {
		return 0, false
	}
	return float64(rb.Average()) / float64(ra.Average()), true
}

func (c Comparison) result(backend string) (Result, bool) {
	for _, r := range c.Results {
		if r.Backend == backend && !r.Skipped && r.Err == nil {
			return r, true
		}
	}
	return Result{}, false
}

// Input is a named image to measure.
type Input struct {
	Name  string
	Image image.Image
}

// Runner decodes every input with every backend.
type Runner struct {
	// Builder supplies the scanner settings; its backend is replaced per run.
	Builder    *pipeline.Builder
	Backends   []string
	Iterations int
	Warmup     bool
}

// NewRunner returns a runner over all backends with default settings.
func NewRunner() *Runner {
	return &Runner{
		Builder:    pipeline.NewBuilder(),
		Backends:   barcode.Backends(),
		Iterations: 10,
		Warmup:     true,
	}
}

// Run measures every backend on every input.
func (r *Runner) Run(ctx context.Context, inputs []Input) ([]Comparison, error) {
	if len(inputs) == 0 {
		return nil, ErrNoImages
	}
	if r.Iterations <= 0 {
		return nil, fmt.Errorf("benchmark: iterations must be positive, got %d", r.Iterations)
	}
	builder := r.Builder
	if builder == nil {
		builder = pipeline.NewBuilder()
	}

	comps := make([]Comparison, len(inputs))
	for i, in := range inputs {
		comps[i] = Comparison{Image: in.Name, Bounds: in.Image.Bounds()}
	}
	for _, name := range r.Backends {
		if name == barcode.BackendZBar && !zbar.Available() {
			for i := range comps {
				comps[i].Results = append(comps[i].Results, Result{Backend: name, Skipped: true})
			}
			continue
		}
		pl, err := builder.Clone().WithBackend(name).Build()
		if err != nil {
			return nil, fmt.Errorf("benchmark: build %s pipeline: %w", name, err)
		}
		for i, in := range inputs {
			if err := ctx.Err(); err != nil {
				_ = pl.Close()
				return nil, err
			}
			comps[i].Results = append(comps[i].Results, r.measure(ctx, pl, name, in.Image))
		}
		_ = pl.Close()
	}
	return comps, nil
}

func (r *Runner) measure(ctx context.Context, pl *pipeline.Pipeline, name string, img image.Image) Result {
	res := Result{Backend: name}
	if r.Warmup {
		if _, err := pl.ProcessImageContext(ctx, img); err != nil {
			res.Err = err
			return res
		}
	}

	runtime.GC()
	before := allocatedBytes()
	timer := NewTimer()
	for range r.Iterations {
		out, err := pl.ProcessImageContext(ctx, img)
		if err != nil {
			res.Err = err
			return res
		}
		res.Symbols = len(out.Barcodes)
		res.Iterations++
	}
	res.Duration = timer.Elapsed()
	res.AllocBytes = allocatedBytes() - before
	return res
}

// WriteReport prints one table row per image and backend followed by the
// zbar/gozxing speedup per image.
func WriteReport(w io.Writer, comps []Comparison) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "IMAGE\tSIZE\tBACKEND\tITER\tAVG\tSYMBOLS\tB/OP")
	for _, c := range comps {
		size := fmt.Sprintf("%dx%d", c.Bounds.Dx(), c.Bounds.Dy())
		for _, r := range c.Results {
			switch {
			case r.Skipped:
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t-\t-\t-\tskipped\n", c.Image, size, r.Backend)
			case r.Err != nil:
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t-\t-\t-\terror: %v\n", c.Image, size, r.Backend, r.Err)
			default:
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%v\t%d\t%d\n", c.Image, size, r.Backend,
					r.Iterations, r.Average().Round(time.Microsecond), r.Symbols, r.AllocPerOp())
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range comps {
		if s, ok := c.Speedup(barcode.BackendZBar, barcode.BackendGozxing); ok {
			if _, err := fmt.Fprintf(w, "%s: zbar is %.2fx the speed of gozxing\n", c.Image, s); err != nil {
				return err
			}
		}
		if best, ok := c.Fastest(); ok {
			if _, err := fmt.Fprintf(w, "%s: fastest backend %s\n", c.Image, best.Backend); err != nil {
				return err
			}
		}
	}
	return nil
}
