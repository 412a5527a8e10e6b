package yomu

import (
	"math"
	"math/rand"
	"testing"
)

func TestWindowInitialRange(t *testing.T) {
	// 500 items at an 800px estimate, 1000px viewport, 3 items of
	// overscan: ceil(1000/800) visible plus the overscan pad covers
	// exactly items 0 through 4.
	c := NewWindowCalculator(800, 3)
	c.Reset(500)
	c.SetViewport(1000)

	lo, hi, changed := c.Range()
	if lo != 0 || hi != 5 {
		t.Fatalf("initial range = [%d, %d), want [0, 5)", lo, hi)
	}
	if !changed {
		t.Error("first computation should report a change")
	}

	// Unchanged inputs commit the same range and suppress the signal.
	lo, hi, changed = c.Range()
	if changed {
		t.Errorf("identical recompute reported a change, range [%d, %d)", lo, hi)
	}
}

func TestWindowRangeAfterMeasurement(t *testing.T) {
	c := NewWindowCalculator(800, 3)
	c.Reset(500)
	c.SetViewport(1000)
	c.Range()

	// Item 0 doubles in height; the window bottom at 3400px now falls
	// inside item 3 instead of item 4.
	c.SetMeasured(0, 1600)
	lo, hi, changed := c.Range()
	if !changed {
		t.Fatal("measurement shifting the range should report a change")
	}
	if lo != 0 || hi != 4 {
		t.Errorf("range after measurement = [%d, %d), want [0, 4)", lo, hi)
	}
	if got := c.TotalHeight(); got != 500*800+800 {
		t.Errorf("total height = %v, want %v", got, 500*800+800)
	}
}

func TestWindowRangeCappedAtCount(t *testing.T) {
	c := NewWindowCalculator(800, 3)
	c.Reset(2)
	c.SetViewport(1000)

	lo, hi, _ := c.Range()
	if lo != 0 || hi != 2 {
		t.Errorf("range = [%d, %d), want [0, 2)", lo, hi)
	}
}

func TestWindowEmpty(t *testing.T) {
	c := NewWindowCalculator(800, 3)
	c.Reset(0)
	c.SetViewport(1000)

	lo, hi, _ := c.Range()
	if lo != 0 || hi != 0 {
		t.Errorf("empty range = [%d, %d), want [0, 0)", lo, hi)
	}
	if c.TotalHeight() != 0 {
		t.Errorf("empty total height = %v", c.TotalHeight())
	}
}

func TestWindowRangeContainsAnchor(t *testing.T) {
	// For arbitrary height maps and scroll offsets the returned range
	// must contain the item covering the scroll offset.
	rng := rand.New(rand.NewSource(1))
	c := NewWindowCalculator(800, 2)
	c.Reset(200)
	c.SetViewport(900)

	for i := 0; i < 200; i += 3 {
		c.SetMeasured(i, 100+rng.Float64()*2400)
	}
	for trial := 0; trial < 50; trial++ {
		c.SetScroll(rng.Float64() * c.TotalHeight())
		anchor := c.IndexAt(c.Scroll())
		lo, hi, _ := c.Range()
		if anchor < lo || anchor >= hi {
			t.Fatalf("trial %d: anchor %d outside range [%d, %d) at scroll %v",
				trial, anchor, lo, hi, c.Scroll())
		}
	}
}

func TestWindowRestoreOffsetExact(t *testing.T) {
	heights := []float64{300, 1250, 800, 460, 2000, 775, 90, 1333}
	const k = 5

	// Whatever order measurements arrive in, scrolling to item k lands
	// on the exact sum of the preceding heights.
	orders := [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7},
		{7, 6, 5, 4, 3, 2, 1, 0},
		{4, 0, 6, 2, 7, 1, 5, 3},
		{2, 5},
		{},
	}
	for _, order := range orders {
		c := NewWindowCalculator(800, 3)
		c.Reset(len(heights))
		c.SetViewport(1000)
		for _, i := range order {
			c.SetMeasured(i, heights[i])
		}

		want := 0.0
		for i := 0; i < k; i++ {
			want += c.Height(i)
		}
		c.ScrollTo(k)
		if diff := math.Abs(c.Scroll() - want); diff > 1e-9 {
			t.Errorf("order %v: ScrollTo(%d) = %v, want %v", order, k, c.Scroll(), want)
		}
	}
}

func TestWindowAnchorCorrection(t *testing.T) {
	c := NewWindowCalculator(800, 3)
	c.Reset(100)
	c.SetViewport(1000)

	// Anchored on item 10.
	c.ScrollTo(10)
	before := c.Scroll()
	offsetWithin := before - c.OffsetOf(10)

	// An item above the anchor grows by 700px; the scroll offset shifts
	// by the same delta so item 10 stays put on screen.
	c.SetMeasured(3, 1500)
	if got := c.Scroll(); got != before+700 {
		t.Errorf("scroll = %v, want %v", got, before+700)
	}
	if got := c.Scroll() - c.OffsetOf(10); math.Abs(got-offsetWithin) > 1e-9 {
		t.Errorf("anchor drifted: offset within item = %v, was %v", got, offsetWithin)
	}

	// An item below the anchor has no effect on the offset.
	at := c.Scroll()
	c.SetMeasured(50, 3000)
	if c.Scroll() != at {
		t.Errorf("measurement below the anchor moved scroll: %v -> %v", at, c.Scroll())
	}

	// Remeasuring the anchor item itself also leaves the offset alone.
	c.SetMeasured(10, 1200)
	if c.Scroll() != at {
		t.Errorf("measuring the anchor moved scroll: %v -> %v", at, c.Scroll())
	}
}

func TestWindowScrollClamped(t *testing.T) {
	c := NewWindowCalculator(100, 0)
	c.Reset(10)
	c.SetViewport(250)

	c.SetScroll(-50)
	if c.Scroll() != 0 {
		t.Errorf("negative scroll = %v", c.Scroll())
	}
	c.SetScroll(1e6)
	if want := c.TotalHeight() - 250; c.Scroll() != want {
		t.Errorf("overscroll = %v, want %v", c.Scroll(), want)
	}
	c.ScrollBy(-1e6)
	if c.Scroll() != 0 {
		t.Errorf("ScrollBy underflow = %v", c.Scroll())
	}
}

func TestWindowClearMeasurements(t *testing.T) {
	c := NewWindowCalculator(800, 1)
	c.Reset(20)
	c.SetViewport(1000)
	c.SetMeasured(0, 1600)
	c.SetMeasured(5, 200)

	c.ClearMeasurements()
	if c.Measured(0) || c.Measured(5) {
		t.Error("measurements survived ClearMeasurements")
	}
	if got := c.TotalHeight(); got != 20*800 {
		t.Errorf("total height after clear = %v, want %v", got, 20*800)
	}
}

func TestWindowIndexAtBoundaries(t *testing.T) {
	c := NewWindowCalculator(100, 0)
	c.Reset(5)

	// An offset on an item boundary belongs to the item below it.
	if got := c.IndexAt(100); got != 1 {
		t.Errorf("IndexAt(100) = %d, want 1", got)
	}
	if got := c.IndexAt(99.5); got != 0 {
		t.Errorf("IndexAt(99.5) = %d, want 0", got)
	}
	if got := c.IndexAt(-10); got != 0 {
		t.Errorf("IndexAt(-10) = %d, want 0", got)
	}
	if got := c.IndexAt(1e9); got != 4 {
		t.Errorf("IndexAt past the end = %d, want 4", got)
	}
}

func TestWindowResetDiscardsState(t *testing.T) {
	c := NewWindowCalculator(800, 2)
	c.Reset(50)
	c.SetViewport(1000)
	c.SetMeasured(0, 1600)
	c.SetScroll(5000)
	c.Range()

	c.Reset(10)
	if c.Scroll() != 0 {
		t.Errorf("scroll survived reset: %v", c.Scroll())
	}
	if c.Measured(0) {
		t.Error("measurement survived reset")
	}
	if lo, hi := c.Committed(); lo != 0 || hi != 0 {
		t.Errorf("committed range survived reset: [%d, %d)", lo, hi)
	}
	if c.Count() != 10 {
		t.Errorf("count = %d, want 10", c.Count())
	}
}
