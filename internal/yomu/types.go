// Package yomu holds the core viewing state machinery: the session
// registry, the active-session viewer projection, the virtualized window
// calculator, the image load cache, and the persistence bridge. It has no
// UI dependencies; the tui package drives it from the bubbletea update loop.
package yomu

import (
	"context"
	"time"
)

// ViewerMode selects how the open folder is rendered.
type ViewerMode string

const (
	ModeContinuous ViewerMode = "continuous"
	ModePaged      ViewerMode = "paged"
)

// Zoom bounds enforced by the projector.
const (
	MinZoom     = 0.1
	MaxZoom     = 5.0
	DefaultZoom = 1.0
)

// ImageDescriptor identifies one page of an open folder. Immutable once
// listed; folder switches replace the whole list.
type ImageDescriptor struct {
	// Path uniquely identifies the image within its folder. For archive
	// entries it is "<archive>:<entry>".
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Index   int       `json:"index"`
	Ext     string    `json:"ext"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// FolderMeta describes an openable folder (directory or comic archive).
type FolderMeta struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	CoverPath  string `json:"cover_path,omitempty"`
	ImageCount int    `json:"image_count"`
}

// ViewerState is a session's viewer sub-state. It is nil until a folder is
// opened in that session and is replaced wholesale on folder switch, never
// merged field by field.
type ViewerState struct {
	Folder     FolderMeta        `json:"folder"`
	FolderKey  string            `json:"folder_key"`
	Images     []ImageDescriptor `json:"images"`
	Index      int               `json:"index"`
	Mode       ViewerMode        `json:"mode"`
	Loading    bool              `json:"loading"`
	Zoom       float64           `json:"zoom"`
	ScrollFrac float64           `json:"scroll_frac"`

	// Generation tags this folder-load episode. Async results carrying an
	// older generation are discarded instead of applied.
	Generation uint64 `json:"generation"`
}

// HistoryEntry is one step of a session's navigation history.
type HistoryEntry struct {
	Page   string            `json:"page"`
	Params map[string]string `json:"params,omitempty"`
}

// ExplorerState is a session's folder-browser sub-state.
type ExplorerState struct {
	Path    string   `json:"path"`
	History []string `json:"history,omitempty"`
}

// Session is one isolated browsing context (a tab). All mutation goes
// through the Registry so subscribers observe consistent snapshots.
type Session struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Page       string            `json:"page"`
	Params     map[string]string `json:"params,omitempty"`
	History    []HistoryEntry    `json:"history,omitempty"`
	ActiveMenu string            `json:"active_menu,omitempty"`
	Explorer   *ExplorerState    `json:"explorer,omitempty"`

	// ThumbOffsets remembers the explorer's scroll offset per path so
	// revisiting a directory restores the list position.
	ThumbOffsets map[string]float64 `json:"-"`

	Viewer *ViewerState `json:"-"`
}

// ResumeState is the persisted per-folder reading position.
type ResumeState struct {
	Index int     `json:"index"`
	Zoom  float64 `json:"zoom"`
}

// ContentProvider lists and loads folder images. Implementations live
// outside the core (see internal/library); the core never retries beyond
// the lazy re-request-on-revisibility policy of the load cache.
type ContentProvider interface {
	ListImages(ctx context.Context, folderPath string) ([]ImageDescriptor, error)
	LoadImageData(ctx context.Context, path string) ([]byte, error)
	FolderMeta(ctx context.Context, folderPath string) (FolderMeta, error)
}

// KV is the durable key/value store used for resume state and the
// cross-restart session payload.
type KV interface {
	Save(key, value string) error
	Load(key string) (value string, ok bool, err error)
}
