package tui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/yomu-app/yomu/internal/library"
	"github.com/yomu-app/yomu/internal/yomu"
)

// folderLoadedMsg carries a finished folder listing back to the update
// loop. SessionID names the originating session so a listing that lands
// after a tab switch is applied to the right session.
type folderLoadedMsg struct {
	SessionID string
	Folder    string
	Meta      yomu.FolderMeta
	Images    []yomu.ImageDescriptor
	Resume    yomu.ResumeState
	Resumed   bool
	Err       error
}

// pageLoadedMsg carries one finished page fetch.
type pageLoadedMsg struct {
	SessionID string
	Result    yomu.LoadResult
}

// dirListedMsg carries a finished explorer directory listing.
type dirListedMsg struct {
	SessionID string
	Dir       string
	Entries   []library.Entry
	Err       error
}

// folderChangedMsg reports that the open folder's contents changed on
// disk and its listing should refresh in place.
type folderChangedMsg struct {
	Folder string
}

// FolderChanged wraps a filesystem watcher event for program.Send.
func FolderChanged(folder string) tea.Msg {
	return folderChangedMsg{Folder: folder}
}

// openFolderMsg asks the active session's viewer to open a folder.
type openFolderMsg struct {
	Folder string
}

// backToLibraryMsg returns the active session from the viewer to the
// explorer page.
type backToLibraryMsg struct{}
