package yomu

import (
	"bytes"
	"context"
	"fmt"
	"image"
)

// LoadedImage is a fetched and probed page image.
type LoadedImage struct {
	Index  int
	Path   string
	Data   []byte
	Width  int // natural pixel width
	Height int // natural pixel height
}

// LoadResult carries the outcome of one async fetch back to the update
// loop. Gen tags the folder-load episode the fetch was started for;
// Complete discards results whose generation no longer matches, so a slow
// fetch finishing after a folder switch never pollutes the new list.
type LoadResult struct {
	Gen    uint64
	Index  int
	Path   string
	Data   []byte
	Width  int
	Height int
	Err    error
}

// LoadCache memoizes per-index image fetches for the current folder load.
// Duplicate requests for an in-flight index collapse into the one pending
// operation. There is no eviction: data is only materialized for indices
// that have entered the virtual window, which bounds growth at the target
// scale of a few thousand images per folder.
//
// The cache's maps are only touched from the cooperative update loop; the
// closure returned by Request runs elsewhere but owns all its state.
type LoadCache struct {
	provider ContentProvider

	gen      uint64
	images   []ImageDescriptor
	loaded   map[int]*LoadedImage
	inflight map[int]bool
	failed   map[int]bool
}

// NewLoadCache creates a cache fetching through provider.
func NewLoadCache(provider ContentProvider) *LoadCache {
	c := &LoadCache{provider: provider}
	c.Reset(0, nil)
	return c
}

// Reset rescopes the cache to a new folder-load generation. Everything
// cached or pending for the previous load is forgotten; in-flight fetches
// are not aborted, their results are discarded by Complete.
func (c *LoadCache) Reset(gen uint64, images []ImageDescriptor) {
	c.gen = gen
	c.images = images
	c.loaded = make(map[int]*LoadedImage)
	c.inflight = make(map[int]bool)
	c.failed = make(map[int]bool)
}

// Generation returns the cache's current folder-load generation.
func (c *LoadCache) Generation() uint64 { return c.gen }

// Get returns the cached image for index i, if present.
func (c *LoadCache) Get(i int) (*LoadedImage, bool) {
	img, ok := c.loaded[i]
	return img, ok
}

// Request returns a fetch closure for index i, or nil when nothing needs
// to start: the index is cached, already in flight, marked failed, or out
// of range. Failed indices are only retried after ForgetOutside clears
// their mark, i.e. on the index's next visibility re-entry.
func (c *LoadCache) Request(i int) func(context.Context) LoadResult {
	if i < 0 || i >= len(c.images) {
		return nil
	}
	if _, ok := c.loaded[i]; ok {
		return nil
	}
	if c.inflight[i] || c.failed[i] {
		return nil
	}
	c.inflight[i] = true

	gen := c.gen
	path := c.images[i].Path
	provider := c.provider
	return func(ctx context.Context) LoadResult {
		data, err := provider.LoadImageData(ctx, path)
		if err != nil {
			return LoadResult{Gen: gen, Index: i, Path: path, Err: err}
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return LoadResult{Gen: gen, Index: i, Path: path, Err: fmt.Errorf("decode %s: %w", path, err)}
		}
		return LoadResult{
			Gen:    gen,
			Index:  i,
			Path:   path,
			Data:   data,
			Width:  cfg.Width,
			Height: cfg.Height,
		}
	}
}

// Complete applies a finished fetch. Results from a superseded generation
// are dropped and (nil, false) returned. A failed fetch leaves the index
// uncached and unmeasured; the estimate persists and the index is retried
// lazily on re-visibility rather than proactively in place.
func (c *LoadCache) Complete(res LoadResult) (*LoadedImage, bool) {
	if res.Gen != c.gen {
		return nil, false
	}
	delete(c.inflight, res.Index)
	if res.Err != nil {
		c.failed[res.Index] = true
		return nil, false
	}
	img := &LoadedImage{
		Index:  res.Index,
		Path:   res.Path,
		Data:   res.Data,
		Width:  res.Width,
		Height: res.Height,
	}
	c.loaded[res.Index] = img
	return img, true
}

// Failed reports whether index i's last fetch failed and has not yet left
// the window.
func (c *LoadCache) Failed(i int) bool { return c.failed[i] }

// ForgetOutside clears failure marks for indices outside [lo, hi), so an
// index that scrolls away and later re-enters the window is fetched again.
// Cached data is kept.
func (c *LoadCache) ForgetOutside(lo, hi int) {
	for i := range c.failed {
		if i < lo || i >= hi {
			delete(c.failed, i)
		}
	}
}

// Len returns the number of cached images.
func (c *LoadCache) Len() int { return len(c.loaded) }

// TargetHeight computes the render height for an image drawn at
// viewportWidth × widthFrac, preserving its natural aspect ratio. This is
// the authoritative measured height reported to the window calculator.
func TargetHeight(viewportWidth, widthFrac float64, naturalW, naturalH int) float64 {
	if naturalW <= 0 || naturalH <= 0 {
		return 0
	}
	return viewportWidth * widthFrac * float64(naturalH) / float64(naturalW)
}
