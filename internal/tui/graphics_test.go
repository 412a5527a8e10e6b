package tui

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi/kitty"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDetectGraphicsProtocol(t *testing.T) {
	tests := []struct {
		term        string
		termProgram string
		want        graphicsProtocol
	}{
		{"xterm-kitty", "", protocolKitty},
		{"xterm-256color", "ghostty", protocolKitty},
		{"xterm-256color", "WezTerm", protocolKitty},
		{"foot", "foot", protocolSixel},
		{"xterm-256color", "", protocolSixel},
		{"dumb", "", protocolNone},
	}
	for _, tt := range tests {
		t.Setenv("TERM", tt.term)
		t.Setenv("TERM_PROGRAM", tt.termProgram)
		if got := detectGraphicsProtocol(); got != tt.want {
			t.Errorf("TERM=%s TERM_PROGRAM=%s: got %d, want %d", tt.term, tt.termProgram, got, tt.want)
		}
	}
}

func TestImageTrackerAssignID(t *testing.T) {
	tracker := &imageTracker{
		assignments: make(map[string]int32),
	}
	data := []byte("png bytes")

	id1 := tracker.assignImageID("page-1@80x40", data, 80, 40)
	id2 := tracker.assignImageID("page-1@80x40", data, 80, 40) // same page
	id3 := tracker.assignImageID("page-2@80x40", data, 80, 40) // different page

	if id1 != id2 {
		t.Errorf("same page should get same ID: %d != %d", id1, id2)
	}
	if id1 == id3 {
		t.Error("different pages should get different IDs")
	}

	pending := tracker.drainPending()
	if len(pending) != 2 {
		t.Errorf("expected 2 pending images, got %d", len(pending))
	}

	// Drain again should be empty
	pending = tracker.drainPending()
	if len(pending) != 0 {
		t.Errorf("expected 0 pending after drain, got %d", len(pending))
	}
}

func TestKittyPlaceholderGrid(t *testing.T) {
	grid := kittyPlaceholderGrid(42, 3, 2)

	lines := strings.Split(grid, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}

	// Each row should contain 3 placeholder characters
	for i, line := range lines {
		count := strings.Count(line, string(kitty.Placeholder))
		if count != 3 {
			t.Errorf("row %d: expected 3 placeholders, got %d", i, count)
		}
	}

	// Should contain foreground color escape for ID 42 (R=0, G=0, B=42)
	if !strings.Contains(grid, "\x1b[38;2;0;0;42m") {
		t.Error("missing foreground color encoding for image ID 42")
	}
	if !strings.Contains(grid, "\x1b[39m") {
		t.Error("missing foreground color reset")
	}
}

func TestPageCellSize(t *testing.T) {
	cols, rows := pageCellSize(800, 1600)
	if cols != 100 || rows != 100 {
		t.Errorf("800x1600px: got %dx%d cells, want 100x100", cols, rows)
	}

	// Never collapses to zero
	cols, rows = pageCellSize(2, 3)
	if cols != 1 || rows != 1 {
		t.Errorf("tiny extent: got %dx%d cells, want 1x1", cols, rows)
	}
}

func TestDecodeAndResizeShrinksWideImages(t *testing.T) {
	data := encodeTestPNG(t, 400, 200)

	img, err := decodeAndResize(data, 10) // 10 cells = 80px
	if err != nil {
		t.Fatalf("decodeAndResize: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 80 {
		t.Errorf("expected width 80, got %d", b.Dx())
	}
	if b.Dy() != 40 {
		t.Errorf("expected proportional height 40, got %d", b.Dy())
	}
}

func TestDecodeAndResizeKeepsSmallImages(t *testing.T) {
	data := encodeTestPNG(t, 40, 30)

	img, err := decodeAndResize(data, 10)
	if err != nil {
		t.Fatalf("decodeAndResize: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("small image should pass through, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestDecodeAndResizeRejectsGarbage(t *testing.T) {
	if _, err := decodeAndResize([]byte("not an image"), 10); err == nil {
		t.Error("expected error for undecodable bytes")
	}
}

func TestKittyTransmitSequence(t *testing.T) {
	seq, err := kittyTransmitSequence(pendingImage{
		ID:      7,
		Data:    encodeTestPNG(t, 4, 4),
		Columns: 2,
		Rows:    1,
	})
	if err != nil {
		t.Fatalf("kittyTransmitSequence: %v", err)
	}
	if !strings.Contains(seq, "\x1b_G") {
		t.Error("missing kitty graphics introducer")
	}
}

func TestFormatByteSize(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{500, "500B"},
		{1500, "2KB"},
		{1_500_000, "1.5MB"},
	}
	for _, tt := range tests {
		if got := formatByteSize(tt.n); got != tt.want {
			t.Errorf("formatByteSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
