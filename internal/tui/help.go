package tui

import (
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# yomu

## Tabs

| Key | Action |
|-----|--------|
| ctrl+t | new tab |
| ctrl+w | close tab |
| ctrl+→ / ctrl+n | next tab |
| ctrl+← / ctrl+p | previous tab |

## Library

| Key | Action |
|-----|--------|
| ↑/k ↓/j | move cursor |
| enter / l | open folder or comic |
| h / backspace | parent directory |

## Viewer

| Key | Action |
|-----|--------|
| ↑/k ↓/j | scroll |
| pgup / pgdn | page scroll |
| n/→ p/← | next / previous page |
| g / G | first / last page |
| + / - | zoom |
| m | toggle paged mode |
| esc | back to library |

Press q to quit. Reading positions save automatically.
`

// Shared help renderer (created lazily, re-created on width change)
var (
	helpRendered      string
	helpRenderedWidth int
)

// renderHelp renders the key reference, falling back to the raw markdown
// if the terminal renderer cannot be built.
func renderHelp(width int) string {
	if width <= 0 {
		width = 80
	}
	if helpRendered != "" && helpRenderedWidth == width {
		return helpRendered
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	helpRendered = out
	helpRenderedWidth = width
	return helpRendered
}
