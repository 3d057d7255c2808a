package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// maxCachedPipelines bounds how many distinct per-request configurations keep
// a live backend. Requests beyond it get a pipeline that is closed afterwards.
const maxCachedPipelines = 16

// RequestOptions holds per-request scan overrides.
type RequestOptions struct {
	Formats   []string
	TryHarder *bool
	Charset   string
}

// key identifies the pipeline configuration; the zero value maps to "".
func (o RequestOptions) key() string {
	formats := slices.Clone(o.Formats)
	slices.Sort(formats)
	var sb strings.Builder
	sb.WriteString(strings.Join(formats, ","))
	sb.WriteByte('|')
	if o.TryHarder != nil {
		sb.WriteString(strconv.FormatBool(*o.TryHarder))
	}
	sb.WriteByte('|')
	sb.WriteString(strings.ToLower(o.Charset))
	if sb.String() == "||" {
		return ""
	}
	return sb.String()
}

func (o RequestOptions) apply(b *pipeline.Builder) (*pipeline.Builder, error) {
	if len(o.Formats) > 0 {
		b = b.WithFormats(o.Formats)
	}
	if o.TryHarder != nil {
		b = b.WithTryHarder(*o.TryHarder)
	}
	b = b.WithCharset(o.Charset)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidOptions, err)
	}
	return b, nil
}

var errInvalidOptions = errors.New("invalid scan options")

// parseRequestOptions reads overrides from form or query values.
func parseRequestOptions(r *http.Request) (RequestOptions, error) {
	var opts RequestOptions
	if v := r.FormValue("formats"); v != "" {
		opts.Formats = splitList(v)
	}
	if v := r.FormValue("try_harder"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: try_harder %q", errInvalidOptions, v)
		}
		opts.TryHarder = &b
	}
	opts.Charset = r.FormValue("charset")
	return opts, nil
}

// optionsFromMap reads overrides from a JSON options object.
func optionsFromMap(m map[string]interface{}) RequestOptions {
	var opts RequestOptions
	switch v := m["formats"].(type) {
	case string:
		opts.Formats = splitList(v)
	case []interface{}:
		for _, f := range v {
			if s, ok := f.(string); ok {
				opts.Formats = append(opts.Formats, strings.TrimSpace(s))
			}
		}
	}
	if v, ok := m["try_harder"].(bool); ok {
		opts.TryHarder = &v
	}
	if v, ok := m["charset"].(string); ok {
		opts.Charset = v
	}
	return opts
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pipelineCache keeps one pipeline per distinct RequestOptions.
type pipelineCache struct {
	mu      sync.Mutex
	build   func(RequestOptions) (scanner, error)
	entries map[string]scanner
	closed  bool
}

func newPipelineCache(build func(RequestOptions) (scanner, error)) *pipelineCache {
	return &pipelineCache{build: build, entries: make(map[string]scanner)}
}

func (c *pipelineCache) defaultScanner() (scanner, error) {
	p, _, err := c.GetOrCreate(RequestOptions{})
	return p, err
}

// GetOrCreate returns the pipeline for opts and a release func the caller
// must invoke when done.
func (c *pipelineCache) GetOrCreate(opts RequestOptions) (scanner, func(), error) {
	key := opts.key()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, pipeline.ErrNotInitialized
	}
	if p, ok := c.entries[key]; ok {
		return p, func() {}, nil
	}

	p, err := c.build(opts)
	if err != nil {
		return nil, nil, err
	}
	if len(c.entries) >= maxCachedPipelines {
		slog.Debug("Pipeline cache full, using transient pipeline", "key", key)
		return p, func() { _ = p.Close() }, nil
	}
	c.entries[key] = p
	return p, func() {}, nil
}

// Len reports the number of cached pipelines.
func (c *pipelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close closes every cached pipeline.
func (c *pipelineCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	var errs []error
	for key, p := range c.entries {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.entries, key)
	}
	return errors.Join(errs...)
}
