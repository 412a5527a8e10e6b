package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/yomu-app/yomu/internal/yomu"
)

// Scroll step for a single up/down key press, in pixels.
const scrollStepPx = 3 * cellHeightPx

// Rows reserved above and below the page area (title and status lines).
const viewerChromeRows = 2

// ViewerModel renders one session's open folder: a virtualized continuous
// scroll over the folder's pages, or a single page in paged mode. Each
// session owns its own window calculator and load cache so background
// tabs keep their position and cached pages.
type ViewerModel struct {
	sessionID string
	registry  *yomu.Registry
	projector *yomu.Projector
	bridge    *yomu.Bridge
	provider  yomu.ContentProvider

	calc  *yomu.WindowCalculator
	cache *yomu.LoadCache

	folder    string
	folderKey string
	meta      yomu.FolderMeta
	images    []yomu.ImageDescriptor

	widthFrac float64
	width     int
	height    int
	loading   bool
	err       error

	keys viewerKeyMap
}

// NewViewerModel creates a viewer for folder in the given session.
func NewViewerModel(sessionID, folder string, registry *yomu.Registry, projector *yomu.Projector, bridge *yomu.Bridge, provider yomu.ContentProvider, estimate float64, overscan int, widthFrac float64) *ViewerModel {
	return &ViewerModel{
		sessionID: sessionID,
		registry:  registry,
		projector: projector,
		bridge:    bridge,
		provider:  provider,
		calc:      yomu.NewWindowCalculator(estimate, overscan),
		cache:     yomu.NewLoadCache(provider),
		folder:    folder,
		folderKey: folder,
		widthFrac: widthFrac,
		loading:   true,
		keys:      defaultViewerKeyMap(),
	}
}

func (m *ViewerModel) Init() tea.Cmd {
	return m.loadFolderCmd()
}

// loadFolderCmd lists the folder's images and looks up any saved reading
// position, off the update loop.
func (m *ViewerModel) loadFolderCmd() tea.Cmd {
	sessionID, folder := m.sessionID, m.folder
	provider, bridge := m.provider, m.bridge
	return func() tea.Msg {
		ctx := context.Background()
		meta, err := provider.FolderMeta(ctx, folder)
		if err != nil {
			return folderLoadedMsg{SessionID: sessionID, Folder: folder, Err: err}
		}
		images, err := provider.ListImages(ctx, folder)
		if err != nil {
			return folderLoadedMsg{SessionID: sessionID, Folder: folder, Err: err}
		}
		resume, resumed := bridge.Resume(folder)
		return folderLoadedMsg{
			SessionID: sessionID,
			Folder:    folder,
			Meta:      meta,
			Images:    images,
			Resume:    resume,
			Resumed:   resumed,
		}
	}
}

func (m *ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.calc.SetViewport(float64(m.pageRows()) * cellHeightPx)
		// Cell geometry changed; every measurement is stale.
		m.calc.ClearMeasurements()
		m.remeasureCached()
		return m, m.requestVisible()

	case folderLoadedMsg:
		if msg.SessionID != m.sessionID || msg.Folder != m.folder {
			return m, nil
		}
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.meta = msg.Meta
		m.images = msg.Images
		return m, m.applyFolder(msg)

	case folderChangedMsg:
		if msg.Folder != m.folder {
			return m, nil
		}
		// The folder changed on disk; relist and keep reading where we
		// were via the saved resume position.
		m.bridge.Flush(m.folderKey)
		m.loading = true
		return m, m.loadFolderCmd()

	case pageLoadedMsg:
		if msg.SessionID != m.sessionID {
			return m, nil
		}
		img, ok := m.cache.Complete(msg.Result)
		if !ok || img == nil {
			return m, nil
		}
		m.calc.SetMeasured(img.Index, m.targetHeight(img.Width, img.Height))
		return m, tea.Batch(m.requestVisible(), m.transmitCmd())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// applyFolder installs a fresh folder listing: new viewer state, rescoped
// cache and calculator, and the resumed position if one was saved.
func (m *ViewerModel) applyFolder(msg folderLoadedMsg) tea.Cmd {
	gen := m.registry.NextGeneration()
	viewer := &yomu.ViewerState{
		Folder:     msg.Meta,
		FolderKey:  m.folderKey,
		Images:     msg.Images,
		Mode:       yomu.ModeContinuous,
		Zoom:       yomu.DefaultZoom,
		Generation: gen,
	}
	if msg.Resumed && msg.Resume.Index >= 0 && msg.Resume.Index < len(msg.Images) {
		viewer.Index = msg.Resume.Index
		if msg.Resume.Zoom > 0 {
			viewer.Zoom = msg.Resume.Zoom
		}
	}
	m.registry.UpdateSession(m.sessionID, func(s *yomu.Session) {
		s.Title = msg.Meta.Name
		s.Viewer = viewer
	})

	m.cache.Reset(gen, msg.Images)
	m.calc.Reset(len(msg.Images))
	m.calc.SetViewport(float64(m.pageRows()) * cellHeightPx)
	if viewer.Index > 0 {
		m.calc.ScrollTo(viewer.Index)
	}
	return m.requestVisible()
}

func (m *ViewerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	viewer, ok := m.viewer()
	if !ok {
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return backToLibraryMsg{} }
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.bridge.Flush(m.folderKey)
		return m, func() tea.Msg { return backToLibraryMsg{} }

	case key.Matches(msg, m.keys.Mode):
		if viewer.Mode == yomu.ModeContinuous {
			m.projector.SetMode(yomu.ModePaged)
			// Snap the scroll so leaving paged mode resumes at the page
			// being read.
			m.calc.ScrollTo(viewer.Index)
		} else {
			m.projector.SetMode(yomu.ModeContinuous)
		}
		return m, m.requestVisible()

	case key.Matches(msg, m.keys.Next):
		m.projector.NextImage()
		return m, m.afterIndexChange()

	case key.Matches(msg, m.keys.Prev):
		m.projector.PrevImage()
		return m, m.afterIndexChange()

	case key.Matches(msg, m.keys.Home):
		if viewer.Mode == yomu.ModePaged {
			m.projector.SetCurrentIndex(0)
			return m, m.afterIndexChange()
		}
		m.calc.ScrollTo(0)
		return m, m.afterScroll()

	case key.Matches(msg, m.keys.End):
		if len(m.images) == 0 {
			return m, nil
		}
		if viewer.Mode == yomu.ModePaged {
			m.projector.SetCurrentIndex(len(m.images) - 1)
			return m, m.afterIndexChange()
		}
		m.calc.ScrollTo(len(m.images) - 1)
		return m, m.afterScroll()

	case key.Matches(msg, m.keys.Up):
		if viewer.Mode == yomu.ModePaged {
			m.projector.PrevImage()
			return m, m.afterIndexChange()
		}
		m.calc.ScrollBy(-scrollStepPx)
		return m, m.afterScroll()

	case key.Matches(msg, m.keys.Down):
		if viewer.Mode == yomu.ModePaged {
			m.projector.NextImage()
			return m, m.afterIndexChange()
		}
		m.calc.ScrollBy(scrollStepPx)
		return m, m.afterScroll()

	case key.Matches(msg, m.keys.PgUp):
		m.calc.ScrollBy(-m.calc.Viewport())
		return m, m.afterScroll()

	case key.Matches(msg, m.keys.PgDown):
		m.calc.ScrollBy(m.calc.Viewport())
		return m, m.afterScroll()

	case key.Matches(msg, m.keys.ZoomIn):
		m.projector.SetZoom(viewer.Zoom + 0.1)
		return m, m.afterZoomChange()

	case key.Matches(msg, m.keys.ZoomOut):
		m.projector.SetZoom(viewer.Zoom - 0.1)
		return m, m.afterZoomChange()
	}

	return m, nil
}

// afterScroll reconciles viewer state with a new scroll offset: the
// current index follows the topmost visible page and the position is
// recorded for resume.
func (m *ViewerModel) afterScroll() tea.Cmd {
	idx := m.calc.IndexAt(m.calc.Scroll())
	m.projector.SetCurrentIndex(idx)
	if total := m.calc.TotalHeight(); total > 0 {
		m.projector.SetScrollFrac(m.calc.Scroll() / total)
	}
	m.recordPosition()
	return m.requestVisible()
}

// afterIndexChange aligns the scroll with a page jump and records it.
func (m *ViewerModel) afterIndexChange() tea.Cmd {
	if viewer, ok := m.viewer(); ok {
		m.calc.ScrollTo(viewer.Index)
	}
	m.recordPosition()
	return m.requestVisible()
}

// afterZoomChange rescales every cached measurement to the new zoom.
// The calculator's anchor correction keeps the page under the viewport
// top in place while heights shift around it.
func (m *ViewerModel) afterZoomChange() tea.Cmd {
	m.calc.ClearMeasurements()
	m.remeasureCached()
	m.recordPosition()
	return m.requestVisible()
}

func (m *ViewerModel) recordPosition() {
	viewer, ok := m.viewer()
	if !ok {
		return
	}
	m.bridge.RecordPosition(m.folderKey, viewer.Index, viewer.Zoom)
}

// Flush persists any debounced position write immediately. The shell
// calls this when the session closes or the program quits.
func (m *ViewerModel) Flush() {
	m.bridge.Flush(m.folderKey)
}

func (m *ViewerModel) viewer() (yomu.ViewerState, bool) {
	s, ok := m.registry.Get(m.sessionID)
	if !ok || s.Viewer == nil {
		return yomu.ViewerState{}, false
	}
	return *s.Viewer, true
}

func (m *ViewerModel) zoom() float64 {
	if viewer, ok := m.viewer(); ok {
		return viewer.Zoom
	}
	return yomu.DefaultZoom
}

// targetHeight maps a page's natural dimensions to its render height in
// pixels at the current viewport width and zoom.
func (m *ViewerModel) targetHeight(naturalW, naturalH int) float64 {
	return yomu.TargetHeight(float64(m.width)*cellWidthPx, m.widthFrac*m.zoom(), naturalW, naturalH)
}

// remeasureCached replays measurements for every cached page, used after
// geometry changes invalidate the calculator's height map.
func (m *ViewerModel) remeasureCached() {
	for i := 0; i < m.calc.Count(); i++ {
		if img, ok := m.cache.Get(i); ok {
			m.calc.SetMeasured(i, m.targetHeight(img.Width, img.Height))
		}
	}
}

// requestVisible starts fetches for every unloaded page in the current
// window and prunes failure marks outside it so scrolled-past failures
// retry on re-entry.
func (m *ViewerModel) requestVisible() tea.Cmd {
	lo, hi, _ := m.calc.Range()
	if viewer, ok := m.viewer(); ok && viewer.Mode == yomu.ModePaged {
		lo, hi = viewer.Index, viewer.Index+1
	}
	m.cache.ForgetOutside(lo, hi)

	var cmds []tea.Cmd
	for i := lo; i < hi; i++ {
		fn := m.cache.Request(i)
		if fn == nil {
			continue
		}
		sessionID := m.sessionID
		load := fn
		cmds = append(cmds, func() tea.Msg {
			return pageLoadedMsg{SessionID: sessionID, Result: load(context.Background())}
		})
	}
	if cmd := m.transmitCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// transmitCmd flushes any pages queued for terminal transmission.
func (m *ViewerModel) transmitCmd() tea.Cmd {
	pending := globalImageTracker.drainPending()
	if len(pending) == 0 {
		return nil
	}
	return kittyTransmitCmd(pending)
}

// pageRows is the cell height available for page content.
func (m *ViewerModel) pageRows() int {
	rows := m.height - viewerChromeRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

// pageColumns is the cell width a page occupies at the current zoom.
func (m *ViewerModel) pageColumns() int {
	cols := int(float64(m.width) * m.widthFrac * m.zoom())
	if cols < 1 {
		cols = 1
	}
	if m.width > 0 && cols > m.width {
		cols = m.width
	}
	return cols
}

func (m *ViewerModel) View() tea.View {
	return tea.NewView(m.viewContent())
}

func (m *ViewerModel) viewContent() string {
	var sb strings.Builder
	viewer, ok := m.viewer()

	title := m.meta.Name
	if title == "" {
		title = m.folder
	}
	sb.WriteString(viewerTitleStyle.Render(title))
	sb.WriteByte('\n')

	switch {
	case m.err != nil:
		sb.WriteString(statusErrorStyle.Render(fmt.Sprintf("error: %v", m.err)))
	case m.loading || !ok:
		sb.WriteString(pagePendingStyle.Render("loading…"))
	case len(m.images) == 0:
		sb.WriteString(helpStyle.Render("(no pages)"))
	case viewer.Mode == yomu.ModePaged:
		sb.WriteString(m.renderPaged(viewer))
	default:
		sb.WriteString(m.renderContinuous())
	}

	sb.WriteByte('\n')
	sb.WriteString(m.statusLine(viewer, ok))
	return sb.String()
}

// renderContinuous stacks the committed window's pages as placeholder
// blocks and slices out the viewport rows at the current scroll offset.
func (m *ViewerModel) renderContinuous() string {
	lo, hi := m.calc.Committed()
	if hi <= lo {
		lo, hi, _ = m.calc.Range()
	}

	var lines []string
	for i := lo; i < hi; i++ {
		lines = append(lines, m.renderPageBlock(i)...)
	}

	skip := int((m.calc.Scroll() - m.calc.OffsetOf(lo)) / cellHeightPx)
	if skip < 0 {
		skip = 0
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	end := min(skip+m.pageRows(), len(lines))
	return strings.Join(lines[skip:end], "\n")
}

func (m *ViewerModel) renderPaged(viewer yomu.ViewerState) string {
	lines := m.renderPageBlock(viewer.Index)
	end := min(m.pageRows(), len(lines))
	return strings.Join(lines[:end], "\n")
}

// renderPageBlock renders one page as a slice of terminal lines: kitty
// placeholders when the page is cached, a sized placeholder box while it
// loads, a failure note when the fetch failed.
func (m *ViewerModel) renderPageBlock(i int) []string {
	rows := int(m.calc.Height(i) / cellHeightPx)
	if rows < 1 {
		rows = 1
	}

	img, cached := m.cache.Get(i)
	if cached {
		cols := m.pageColumns()
		switch getGraphicsProtocol() {
		case protocolKitty:
			key := fmt.Sprintf("%s#%d@%dx%d", img.Path, m.cache.Generation(), cols, rows)
			id := globalImageTracker.assignImageID(key, img.Data, cols, rows)
			return strings.Split(kittyPlaceholderGrid(id, cols, rows), "\n")
		case protocolSixel:
			if seq, err := encodeSixelPage(img.Data, cols); err == nil {
				return append([]string{seq}, make([]string, rows-1)...)
			}
		}
		// Text fallback for terminals without graphics support.
		label := fmt.Sprintf("[page %d  %dx%d  %s]", i+1, img.Width, img.Height, formatByteSize(len(img.Data)))
		return padBlock(pagePendingStyle.Render(label), rows)
	}

	if m.cache.Failed(i) {
		return padBlock(pageFailedStyle.Render(fmt.Sprintf("[page %d failed to load]", i+1)), rows)
	}
	return padBlock(pagePendingStyle.Render(fmt.Sprintf("[page %d …]", i+1)), rows)
}

// padBlock centers a single-line label vertically in rows lines.
func padBlock(label string, rows int) []string {
	lines := make([]string, rows)
	lines[rows/2] = label
	return lines
}

func (m *ViewerModel) statusLine(viewer yomu.ViewerState, ok bool) string {
	if !ok {
		return statusBarStyle.Render(m.folder)
	}
	mode := "scroll"
	if viewer.Mode == yomu.ModePaged {
		mode = "paged"
	}
	status := fmt.Sprintf("%d/%d  zoom %.0f%%  %s", viewer.Index+1, len(m.images), viewer.Zoom*100, mode)
	return statusBarStyle.Render(status)
}
