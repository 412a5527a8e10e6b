package tui

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/ansi/kitty"
	"github.com/charmbracelet/x/ansi/sixel"
	"golang.org/x/image/draw"
)

// Typical terminal cell dimensions in pixels. The window calculator and
// the renderer both work in these units.
const (
	cellWidthPx  = 8
	cellHeightPx = 16
)

// graphicsProtocol represents which terminal image protocol to use.
type graphicsProtocol int

const (
	protocolNone graphicsProtocol = iota
	protocolSixel
	protocolKitty
)

// detectGraphicsProtocol checks the terminal for image protocol support.
func detectGraphicsProtocol() graphicsProtocol {
	term := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	// Kitty graphics protocol
	if strings.Contains(term, "kitty") || termProgram == "kitty" {
		return protocolKitty
	}
	// Ghostty supports kitty graphics protocol
	if termProgram == "ghostty" {
		return protocolKitty
	}
	// WezTerm supports both; prefer kitty
	if termProgram == "WezTerm" {
		return protocolKitty
	}

	// Sixel-capable terminals
	switch termProgram {
	case "iTerm.app", "foot", "mlterm", "contour":
		return protocolSixel
	}
	if strings.Contains(term, "xterm") {
		return protocolSixel
	}

	return protocolNone
}

// cachedProtocol caches the detected graphics protocol (detected once).
var cachedProtocol struct {
	once     sync.Once
	protocol graphicsProtocol
}

func getGraphicsProtocol() graphicsProtocol {
	cachedProtocol.once.Do(func() {
		cachedProtocol.protocol = detectGraphicsProtocol()
	})
	return cachedProtocol.protocol
}

// pendingImage holds a page that needs to be transmitted to the terminal.
type pendingImage struct {
	ID      int32
	Data    []byte
	Columns int
	Rows    int
}

// imageTracker assigns stable kitty image IDs and collects pages for
// transmission. Keys include the load generation so a refreshed page
// transmits fresh pixels instead of reusing the old placement.
type imageTracker struct {
	mu          sync.Mutex
	nextID      atomic.Int32
	assignments map[string]int32 // page key → image ID
	pending     []pendingImage
}

var globalImageTracker = &imageTracker{
	assignments: make(map[string]int32),
}

// assignImageID returns a stable image ID for the given page. New pages
// are added to the pending list for transmission.
func (t *imageTracker) assignImageID(key string, data []byte, columns, rows int) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.assignments[key]; ok {
		return id
	}

	id := t.nextID.Add(1)
	t.assignments[key] = id
	t.pending = append(t.pending, pendingImage{
		ID:      id,
		Data:    data,
		Columns: columns,
		Rows:    rows,
	})
	return id
}

// drainPending returns and clears all pending pages.
func (t *imageTracker) drainPending() []pendingImage {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.pending
	t.pending = nil
	return p
}

// pageCellSize maps a page's render extent in pixels to terminal cells.
func pageCellSize(widthPx, heightPx float64) (columns, rows int) {
	columns = int(widthPx) / cellWidthPx
	if columns < 1 {
		columns = 1
	}
	rows = int(heightPx) / cellHeightPx
	if rows < 1 {
		rows = 1
	}
	return columns, rows
}

// kittyPlaceholderGrid generates a grid of Unicode placeholder characters
// that the terminal replaces with the actual image.
func kittyPlaceholderGrid(imageID int32, columns, rows int) string {
	r := byte((imageID >> 16) & 0xFF)
	g := byte((imageID >> 8) & 0xFF)
	b := byte(imageID & 0xFF)

	fgColor := fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
	reset := "\x1b[39m"
	placeholder := string(kitty.Placeholder)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		sb.WriteString(fgColor)
		diacritic := string(kitty.Diacritic(row))
		for col := 0; col < columns; col++ {
			sb.WriteString(placeholder)
			sb.WriteString(diacritic)
		}
		sb.WriteString(reset)
		if row < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// kittyTransmitCmd creates a tea.Cmd that transmits pending pages to the
// terminal using the kitty graphics protocol with virtual placement.
func kittyTransmitCmd(images []pendingImage) tea.Cmd {
	if len(images) == 0 {
		return nil
	}

	var cmds []tea.Cmd
	for _, img := range images {
		seq, err := kittyTransmitSequence(img)
		if err != nil {
			continue
		}
		cmds = append(cmds, tea.Raw(seq))
	}

	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// kittyTransmitSequence generates the escape sequence to transmit a page
// using the kitty graphics protocol with virtual placement (U=1).
func kittyTransmitSequence(img pendingImage) (string, error) {
	goImg, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("image decode: %w", err)
	}

	var buf bytes.Buffer
	err = kitty.EncodeGraphics(&buf, goImg, &kitty.Options{
		Action:           kitty.TransmitAndPut,
		Format:           kitty.PNG,
		Transmission:     kitty.Direct,
		ID:               int(img.ID),
		Columns:          img.Columns,
		Rows:             img.Rows,
		VirtualPlacement: true,
		Chunk:            true,
		Quite:            1,
	})
	if err != nil {
		return "", fmt.Errorf("kitty encode: %w", err)
	}

	return buf.String(), nil
}

// encodeSixelPage encodes a page for direct sixel output, resized to the
// target cell width.
func encodeSixelPage(data []byte, maxWidthCells int) (string, error) {
	img, err := decodeAndResize(data, maxWidthCells)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := sixel.Encoder{}
	if err := enc.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("sixel encode: %w", err)
	}

	return ansi.SixelGraphics(0, 1, 0, buf.Bytes()), nil
}

// decodeAndResize decodes page bytes and resizes to fit terminal width.
func decodeAndResize(data []byte, maxWidthCells int) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode: %w", err)
	}

	maxWidthPx := maxWidthCells * cellWidthPx
	bounds := img.Bounds()
	if bounds.Dx() > maxWidthPx {
		ratio := float64(maxWidthPx) / float64(bounds.Dx())
		newW := maxWidthPx
		newH := int(float64(bounds.Dy()) * ratio)
		if newH < 1 {
			newH = 1
		}
		resized := image.NewRGBA(image.Rect(0, 0, newW, newH))
		draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		return resized, nil
	}

	return img, nil
}

// formatByteSize formats a byte count as a human-readable string.
func formatByteSize(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fMB", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.0fKB", float64(n)/1_000)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
