package yomu

import "sort"

// WindowCalculator maps a scroll offset and a sparse per-item height map
// to the contiguous index range that must be materialized, plus per-item
// top offsets. Heights start as a uniform estimate and are superseded one
// by one as decoded images report their real size; prefix sums are
// maintained incrementally rather than recomputed from scratch.
//
// Like the Registry, it is driven from a single cooperative loop and does
// no locking.
type WindowCalculator struct {
	count    int
	estimate float64
	overscan int

	measured map[int]float64
	// prefix[i] is the top offset of item i; prefix[count] is the total
	// height. Entries beyond index dirtyFrom are stale.
	prefix    []float64
	dirtyFrom int

	viewport float64
	scroll   float64

	// Committed range. A recomputed range is only propagated when it
	// differs from this one.
	lo, hi int
}

// NewWindowCalculator creates a calculator using estimate as the height of
// every unmeasured item and overscan extra items on each side of the
// viewport.
func NewWindowCalculator(estimate float64, overscan int) *WindowCalculator {
	if estimate <= 0 {
		estimate = 1
	}
	if overscan < 0 {
		overscan = 0
	}
	return &WindowCalculator{
		estimate: estimate,
		overscan: overscan,
		measured: make(map[int]float64),
	}
}

// Reset prepares the calculator for a new folder of count items. All
// measurements, the scroll offset, and the committed range are discarded.
func (c *WindowCalculator) Reset(count int) {
	if count < 0 {
		count = 0
	}
	c.count = count
	c.measured = make(map[int]float64)
	c.prefix = make([]float64, count+1)
	c.dirtyFrom = 0
	c.scroll = 0
	c.lo, c.hi = 0, 0
}

// Count returns the current item count.
func (c *WindowCalculator) Count() int { return c.count }

// SetViewport sets the visible height.
func (c *WindowCalculator) SetViewport(h float64) {
	if h < 0 {
		h = 0
	}
	c.viewport = h
}

// Viewport returns the visible height.
func (c *WindowCalculator) Viewport() float64 { return c.viewport }

// SetScroll moves the scroll offset, clamped to the content extent.
func (c *WindowCalculator) SetScroll(s float64) {
	max := c.TotalHeight() - c.viewport
	if max < 0 {
		max = 0
	}
	if s < 0 {
		s = 0
	}
	if s > max {
		s = max
	}
	c.scroll = s
}

// ScrollBy moves the scroll offset by delta, clamped.
func (c *WindowCalculator) ScrollBy(delta float64) {
	c.SetScroll(c.scroll + delta)
}

// Scroll returns the current scroll offset, including any remeasurement
// corrections applied since it was last set.
func (c *WindowCalculator) Scroll() float64 { return c.scroll }

// Height returns the height of item i: the measured value when known,
// the estimate otherwise.
func (c *WindowCalculator) Height(i int) float64 {
	if h, ok := c.measured[i]; ok {
		return h
	}
	return c.estimate
}

// Measured reports whether item i has a measured height.
func (c *WindowCalculator) Measured(i int) bool {
	_, ok := c.measured[i]
	return ok
}

// SetMeasured records the authoritative height for item i, superseding the
// estimate. All subsequent prefix sums shift by the delta; when the
// current anchor item (the one covering the scroll offset) lies after i,
// the scroll offset is shifted by the same delta so the anchor's on-screen
// position does not jump.
func (c *WindowCalculator) SetMeasured(i int, h float64) {
	if i < 0 || i >= c.count || h <= 0 {
		return
	}
	old := c.Height(i)
	if old == h {
		c.measured[i] = h
		return
	}

	anchor := c.IndexAt(c.scroll)
	c.measured[i] = h
	if i < c.dirtyFrom {
		c.dirtyFrom = i
	}
	if anchor > i {
		c.scroll += h - old
	}
}

// ClearMeasurements drops every measured height, forcing items back to
// the estimate. Used when a viewport resize invalidates render heights.
func (c *WindowCalculator) ClearMeasurements() {
	if len(c.measured) == 0 {
		return
	}
	c.measured = make(map[int]float64)
	c.dirtyFrom = 0
}

// ensurePrefix revalidates prefix sums through index upTo (inclusive on
// the prefix array, so offsets for items 0..upTo-1 and the running total
// at upTo are valid afterwards).
func (c *WindowCalculator) ensurePrefix(upTo int) {
	if upTo > c.count {
		upTo = c.count
	}
	if c.dirtyFrom > upTo {
		return
	}
	for i := c.dirtyFrom; i < upTo; i++ {
		c.prefix[i+1] = c.prefix[i] + c.Height(i)
	}
	if upTo >= c.dirtyFrom {
		c.dirtyFrom = upTo
	}
}

// OffsetOf returns the top offset of item i: the sum of the heights of
// items 0..i-1. Restoring a saved position scrolls to OffsetOf(i), which
// aligns the item's top edge with the viewport top.
func (c *WindowCalculator) OffsetOf(i int) float64 {
	if i <= 0 {
		return 0
	}
	if i > c.count {
		i = c.count
	}
	c.ensurePrefix(i)
	return c.prefix[i]
}

// TotalHeight returns the summed height of all items.
func (c *WindowCalculator) TotalHeight() float64 {
	return c.OffsetOf(c.count)
}

// IndexAt returns the index of the item whose vertical extent covers
// offset. Offsets past the end return the last index.
func (c *WindowCalculator) IndexAt(offset float64) int {
	if c.count == 0 {
		return 0
	}
	if offset <= 0 {
		return 0
	}
	c.ensurePrefix(c.count)
	// First item whose bottom edge lies strictly beyond offset.
	idx := sort.Search(c.count, func(i int) bool {
		return c.prefix[i+1] > offset
	})
	if idx >= c.count {
		idx = c.count - 1
	}
	return idx
}

// ScrollTo sets the scroll offset to the top edge of item i, aligning it
// with the viewport top. Unlike SetScroll, the offset is not clamped to
// the viewport extent, so restored positions land on the exact prefix sum
// regardless of how many heights are still estimates.
func (c *WindowCalculator) ScrollTo(i int) {
	if i < 0 {
		i = 0
	}
	if i >= c.count {
		if c.count == 0 {
			c.scroll = 0
			return
		}
		i = c.count - 1
	}
	c.scroll = c.OffsetOf(i)
}

// Range recomputes the minimal contiguous index range [lo, hi) covering
// every item whose extent intersects the overscanned window
// [scroll − m·estimate, scroll + viewport + m·estimate], and reports
// whether it differs from the previously committed range. Callers skip
// re-render signaling when changed is false.
func (c *WindowCalculator) Range() (lo, hi int, changed bool) {
	if c.count == 0 {
		changed = c.lo != 0 || c.hi != 0
		c.lo, c.hi = 0, 0
		return 0, 0, changed
	}

	pad := float64(c.overscan) * c.estimate
	top := c.scroll - pad
	bottom := c.scroll + c.viewport + pad

	lo = 0
	if top > 0 {
		lo = c.IndexAt(top)
	}
	hi = c.IndexAt(bottom) + 1
	if bottom <= 0 {
		hi = 1
	}
	if hi > c.count {
		hi = c.count
	}
	if lo > hi {
		lo = hi
	}

	changed = lo != c.lo || hi != c.hi
	c.lo, c.hi = lo, hi
	return lo, hi, changed
}

// Committed returns the last committed range without recomputing.
func (c *WindowCalculator) Committed() (lo, hi int) {
	return c.lo, c.hi
}
