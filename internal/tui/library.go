package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"

	"github.com/yomu-app/yomu/internal/library"
	"github.com/yomu-app/yomu/internal/yomu"
)

// LibraryModel is the folder explorer page. Each session gets its own
// instance so tabs browse independently.
type LibraryModel struct {
	sessionID string
	registry  *yomu.Registry
	provider  *library.Provider

	dir     string
	entries []library.Entry
	cursor  int
	offset  int

	width  int
	height int
	err    error

	keys explorerKeyMap
}

// NewLibraryModel creates an explorer rooted at dir for the given session.
func NewLibraryModel(sessionID, dir string, registry *yomu.Registry, provider *library.Provider) *LibraryModel {
	return &LibraryModel{
		sessionID: sessionID,
		registry:  registry,
		provider:  provider,
		dir:       dir,
		keys:      defaultExplorerKeyMap(),
	}
}

func (m *LibraryModel) Init() tea.Cmd {
	return m.listDirCmd(m.dir)
}

func (m *LibraryModel) listDirCmd(dir string) tea.Cmd {
	sessionID := m.sessionID
	provider := m.provider
	return func() tea.Msg {
		entries, err := provider.ListFolders(context.Background(), dir)
		return dirListedMsg{SessionID: sessionID, Dir: dir, Entries: entries, Err: err}
	}
}

func (m *LibraryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case dirListedMsg:
		if msg.SessionID != m.sessionID {
			return m, nil
		}
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.dir = msg.Dir
		m.entries = msg.Entries
		m.restoreCursor()
		m.registry.UpdateSession(m.sessionID, func(s *yomu.Session) {
			if s.Explorer == nil {
				s.Explorer = &yomu.ExplorerState{}
			}
			if s.Explorer.Path != "" && s.Explorer.Path != m.dir {
				s.Explorer.History = append(s.Explorer.History, s.Explorer.Path)
			}
			s.Explorer.Path = m.dir
			if s.Params == nil {
				s.Params = make(map[string]string)
			}
			s.Params["dir"] = m.dir
		})
		return m, nil

	case folderChangedMsg:
		// The open directory changed on disk; refresh the listing.
		if msg.Folder == m.dir {
			return m, m.listDirCmd(m.dir)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			m.clampScroll()
			m.rememberCursor()
			return m, nil

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
			m.clampScroll()
			m.rememberCursor()
			return m, nil

		case key.Matches(msg, m.keys.Open):
			if m.cursor >= len(m.entries) {
				return m, nil
			}
			entry := m.entries[m.cursor]
			if entry.IsComic {
				return m, func() tea.Msg {
					return openFolderMsg{Folder: entry.Path}
				}
			}
			if entry.IsDir {
				m.cursor = 0
				m.offset = 0
				return m, m.listDirCmd(entry.Path)
			}
			return m, nil

		case key.Matches(msg, m.keys.Parent):
			parent := filepath.Dir(m.dir)
			if parent == m.dir {
				return m, nil
			}
			m.cursor = 0
			m.offset = 0
			return m, m.listDirCmd(parent)
		}
	}

	return m, nil
}

// rememberCursor persists the cursor position for this directory so
// revisiting it lands on the same entry.
func (m *LibraryModel) rememberCursor() {
	dir, cursor := m.dir, m.cursor
	m.registry.UpdateSession(m.sessionID, func(s *yomu.Session) {
		if s.ThumbOffsets == nil {
			s.ThumbOffsets = make(map[string]float64)
		}
		s.ThumbOffsets[dir] = float64(cursor)
	})
}

func (m *LibraryModel) restoreCursor() {
	m.cursor = 0
	for _, s := range m.registry.Sessions() {
		if s.ID == m.sessionID {
			if off, ok := s.ThumbOffsets[m.dir]; ok && int(off) < len(m.entries) {
				m.cursor = int(off)
			}
			break
		}
	}
	m.clampScroll()
}

// visibleRows reports how many entries fit under the header.
func (m *LibraryModel) visibleRows() int {
	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *LibraryModel) clampScroll() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *LibraryModel) View() tea.View {
	return tea.NewView(m.viewContent())
}

func (m *LibraryModel) viewContent() string {
	var sb strings.Builder

	sb.WriteString(explorerTitleStyle.Render(m.dir))
	sb.WriteByte('\n')

	if m.err != nil {
		sb.WriteString(statusErrorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		return sb.String()
	}

	if len(m.entries) == 0 {
		sb.WriteString(helpStyle.Render("(empty)"))
		return sb.String()
	}

	rows := m.visibleRows()
	end := min(m.offset+rows, len(m.entries))
	for i := m.offset; i < end; i++ {
		entry := m.entries[i]

		var line string
		switch {
		case entry.IsDir:
			line = explorerDirStyle.Render(entry.Name + "/")
		case entry.IsComic:
			line = explorerComicStyle.Render(entry.Name)
		default:
			line = entry.Name
		}

		if i == m.cursor {
			sb.WriteString(explorerCursorStyle.Render("> "))
		} else {
			sb.WriteString("  ")
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	sb.WriteString(helpStyle.Render("enter: open • h: parent • ?: help"))
	return sb.String()
}
