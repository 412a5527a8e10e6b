package tui

import (
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/yomu-app/yomu/internal/config"
	"github.com/yomu-app/yomu/internal/library"
	"github.com/yomu-app/yomu/internal/uilog"
	"github.com/yomu-app/yomu/internal/yomu"
)

// pageModel is what session pages implement beyond tea.Model: the shell
// composes their content under its own tab bar.
type pageModel interface {
	tea.Model
	viewContent() string
}

// Shell is the top-level model. It owns the session registry and one page
// model per session, routes input to the active session, and routes
// session-tagged async messages to whichever session started them.
type Shell struct {
	cfg       *config.Config
	registry  *yomu.Registry
	projector *yomu.Projector
	bridge    *yomu.Bridge
	provider  *library.Provider
	kv        yomu.KV

	// watchFolder retargets the filesystem watcher when a folder opens.
	// Nil when watching is disabled.
	watchFolder func(folder string)

	width  int
	height int
	pages  map[string]pageModel

	tabKeys     tabKeyMap
	helpKey     key.Binding
	quitKey     key.Binding
	helpVisible bool
}

// NewShell assembles the top-level model. The registry should already be
// populated, either freshly or restored from the store.
func NewShell(cfg *config.Config, registry *yomu.Registry, projector *yomu.Projector, bridge *yomu.Bridge, provider *library.Provider, kv yomu.KV, watchFolder func(string)) *Shell {
	return &Shell{
		cfg:         cfg,
		registry:    registry,
		projector:   projector,
		bridge:      bridge,
		provider:    provider,
		kv:          kv,
		watchFolder: watchFolder,
		pages:       make(map[string]pageModel),
		tabKeys:     defaultTabKeyMap(),
		helpKey: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		quitKey: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (s *Shell) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, sess := range s.registry.Sessions() {
		page := s.pageForSession(sess)
		s.pages[sess.ID] = page
		cmds = append(cmds, page.Init())
	}
	return tea.Batch(cmds...)
}

// pageForSession builds the page model a session's persisted state names.
// Viewer sub-state never survives a restart, so a restored viewer session
// relists its folder from scratch and lands on its saved resume position.
func (s *Shell) pageForSession(sess *yomu.Session) pageModel {
	if sess.Page == "viewer" {
		if folder := sess.Params["folder"]; folder != "" {
			return s.newViewer(sess.ID, folder)
		}
	}
	dir := s.cfg.Library.Root
	if sess.Explorer != nil && sess.Explorer.Path != "" {
		dir = sess.Explorer.Path
	} else if d := sess.Params["dir"]; d != "" {
		dir = d
	}
	return NewLibraryModel(sess.ID, dir, s.registry, s.provider)
}

func (s *Shell) newViewer(sessionID, folder string) *ViewerModel {
	return NewViewerModel(
		sessionID, folder,
		s.registry, s.projector, s.bridge, s.provider,
		float64(s.cfg.Viewer.EstimateHeight),
		s.cfg.Viewer.Overscan,
		s.cfg.Viewer.WidthFraction,
	)
}

// pageSize is the window size pages render into, under the tab bar.
func (s *Shell) pageSize() tea.WindowSizeMsg {
	h := s.height - 1
	if h < 1 {
		h = 1
	}
	return tea.WindowSizeMsg{Width: s.width, Height: h}
}

func (s *Shell) resizeCmd() tea.Cmd {
	size := s.pageSize()
	return func() tea.Msg { return size }
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		return s, s.broadcast(s.pageSize())

	case folderLoadedMsg:
		return s, s.routeToSession(msg.SessionID, msg)

	case pageLoadedMsg:
		return s, s.routeToSession(msg.SessionID, msg)

	case dirListedMsg:
		return s, s.routeToSession(msg.SessionID, msg)

	case folderChangedMsg:
		return s, s.broadcast(msg)

	case openFolderMsg:
		return s, s.openFolder(msg.Folder)

	case backToLibraryMsg:
		return s, s.backToLibrary()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	return s, s.routeToActive(msg)
}

func (s *Shell) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if s.helpVisible {
		s.helpVisible = false
		return s, nil
	}

	switch {
	case key.Matches(msg, s.quitKey):
		return s, s.shutdown()

	case key.Matches(msg, s.helpKey):
		s.helpVisible = true
		return s, nil

	case key.Matches(msg, s.tabKeys.New):
		return s, s.newTab()

	case key.Matches(msg, s.tabKeys.Close):
		return s, s.closeTab()

	case key.Matches(msg, s.tabKeys.Next):
		return s, s.cycleTab(1)

	case key.Matches(msg, s.tabKeys.Prev):
		return s, s.cycleTab(-1)
	}

	return s, s.routeToActive(msg)
}

// shutdown flushes every pending position write and snapshots the session
// set before quitting.
func (s *Shell) shutdown() tea.Cmd {
	s.bridge.FlushAll()
	if err := s.registry.SaveTo(s.kv); err != nil {
		uilog.Log.Warn("session save failed", "error", err)
	}
	return tea.Quit
}

func (s *Shell) newTab() tea.Cmd {
	id := s.registry.AddSession("library", map[string]string{"dir": s.cfg.Library.Root}, "library")
	page := NewLibraryModel(id, s.cfg.Library.Root, s.registry, s.provider)
	s.pages[id] = page
	return tea.Batch(page.Init(), s.resizeCmd())
}

func (s *Shell) closeTab() tea.Cmd {
	id := s.registry.ActiveID()
	if viewer, ok := s.pages[id].(*ViewerModel); ok {
		viewer.Flush()
	}
	if !s.registry.CloseSession(id) {
		// Refused: this is the last session.
		return nil
	}
	delete(s.pages, id)
	return s.resizeCmd()
}

func (s *Shell) cycleTab(delta int) tea.Cmd {
	sessions := s.registry.Sessions()
	n := len(sessions)
	if n < 2 {
		return nil
	}
	cur := 0
	for i, sess := range sessions {
		if sess.ID == s.registry.ActiveID() {
			cur = i
			break
		}
	}
	s.registry.SetActiveIndex(((cur+delta)%n + n) % n)
	return s.resizeCmd()
}

// openFolder swaps the active session's page to a viewer on folder.
func (s *Shell) openFolder(folder string) tea.Cmd {
	id := s.registry.ActiveID()
	s.registry.UpdateSession(id, func(sess *yomu.Session) {
		sess.Page = "viewer"
		if sess.Params == nil {
			sess.Params = make(map[string]string)
		}
		sess.Params["folder"] = folder
		sess.History = append(sess.History, yomu.HistoryEntry{Page: "library"})
	})
	page := s.newViewer(id, folder)
	s.pages[id] = page
	if s.watchFolder != nil {
		s.watchFolder(folder)
	}
	return tea.Batch(page.Init(), s.resizeCmd())
}

// backToLibrary swaps the active session's page back to the explorer,
// landing where the session last browsed.
func (s *Shell) backToLibrary() tea.Cmd {
	id := s.registry.ActiveID()
	dir := s.cfg.Library.Root
	if sess, ok := s.registry.Get(id); ok && sess.Explorer != nil && sess.Explorer.Path != "" {
		dir = sess.Explorer.Path
	}
	s.registry.UpdateSession(id, func(sess *yomu.Session) {
		sess.Page = "library"
		delete(sess.Params, "folder")
	})
	page := NewLibraryModel(id, dir, s.registry, s.provider)
	s.pages[id] = page
	return tea.Batch(page.Init(), s.resizeCmd())
}

// routeToSession delivers a session-tagged message to its session's page,
// active or not, so late async results land in the right tab.
func (s *Shell) routeToSession(sessionID string, msg tea.Msg) tea.Cmd {
	page, ok := s.pages[sessionID]
	if !ok {
		return nil
	}
	updated, cmd := page.Update(msg)
	if p, ok := updated.(pageModel); ok {
		s.pages[sessionID] = p
	}
	return cmd
}

func (s *Shell) routeToActive(msg tea.Msg) tea.Cmd {
	return s.routeToSession(s.registry.ActiveID(), msg)
}

func (s *Shell) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for _, sess := range s.registry.Sessions() {
		if cmd := s.routeToSession(sess.ID, msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (s *Shell) tabBar() string {
	var parts []string
	for _, sess := range s.registry.Sessions() {
		title := sess.Title
		if title == "" {
			title = sess.ID
		}
		if sess.ID == s.registry.ActiveID() {
			parts = append(parts, tabActiveStyle.Render(title))
		} else {
			parts = append(parts, tabInactiveStyle.Render(title))
		}
	}
	return joinTabs(parts)
}

func joinTabs(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

func (s *Shell) View() tea.View {
	var content string
	if s.helpVisible {
		content = renderHelp(s.width)
	} else if page, ok := s.pages[s.registry.ActiveID()]; ok {
		content = page.viewContent()
	}

	v := tea.NewView(s.tabBar() + "\n" + content)
	v.AltScreen = true
	return v
}
