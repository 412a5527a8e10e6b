// Package library serves image folders from the local file system:
// plain directories of images and comic archives (zip/cbz, rar/cbr,
// 7z/cb7), both presented as ordered page lists.
package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"github.com/yomu-app/yomu/internal/yomu"
)

// Provider implements yomu.ContentProvider over the local file system.
type Provider struct {
	// Root bounds folder listings for the explorer. Image loads are not
	// bounded; archives may sit anywhere the explorer navigated to.
	Root string
}

// NewProvider creates a provider rooted at root.
func NewProvider(root string) *Provider {
	return &Provider{Root: root}
}

// ListImages returns the pages of folderPath in natural reading order.
// folderPath is either a directory of images or a comic archive; pages are
// sorted so "page2" precedes "page10".
func (p *Provider) ListImages(ctx context.Context, folderPath string) ([]yomu.ImageDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(folderPath)
	if err != nil {
		return nil, fmt.Errorf("stat folder: %w", err)
	}
	if info.IsDir() {
		return p.listDirImages(folderPath)
	}
	if IsArchivePath(folderPath) {
		return p.listArchiveImages(folderPath)
	}
	return nil, fmt.Errorf("not an image folder: %s", folderPath)
}

func (p *Provider) listDirImages(dir string) ([]yomu.ImageDescriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}

	var images []yomu.ImageDescriptor
	for _, e := range entries {
		if e.IsDir() || !IsImagePath(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		images = append(images, yomu.ImageDescriptor{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			Ext:     strings.ToLower(filepath.Ext(e.Name())),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sortImages(images)
	return images, nil
}

func (p *Provider) listArchiveImages(archivePath string) ([]yomu.ImageDescriptor, error) {
	names, err := listArchiveEntries(archivePath)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}

	images := make([]yomu.ImageDescriptor, 0, len(names))
	for _, name := range names {
		images = append(images, yomu.ImageDescriptor{
			Path: archivePath + archiveEntrySep + name,
			Name: name,
			Ext:  strings.ToLower(filepath.Ext(name)),
		})
	}
	sortImages(images)
	return images, nil
}

// sortImages orders pages naturally by name and reassigns indices.
func sortImages(images []yomu.ImageDescriptor) {
	sort.Slice(images, func(i, j int) bool {
		return natural.Less(images[i].Name, images[j].Name)
	})
	for i := range images {
		images[i].Index = i
	}
}

// LoadImageData returns the raw bytes of one page. path is either a plain
// file path or "<archive>:<entry>" as produced by ListImages.
func (p *Provider) LoadImageData(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if archive, entry, ok := splitArchivePath(path); ok {
		return readArchiveEntry(archive, entry)
	}
	return os.ReadFile(path)
}

// FolderMeta returns the display metadata for a folder: its name, page
// count, and the first page as cover.
func (p *Provider) FolderMeta(ctx context.Context, folderPath string) (yomu.FolderMeta, error) {
	images, err := p.ListImages(ctx, folderPath)
	if err != nil {
		return yomu.FolderMeta{}, err
	}
	meta := yomu.FolderMeta{
		Name:       folderName(folderPath),
		Path:       folderPath,
		ImageCount: len(images),
	}
	if len(images) > 0 {
		meta.CoverPath = images[0].Path
	}
	return meta, nil
}

// folderName strips the archive extension so "ch1.cbz" lists as "ch1".
func folderName(folderPath string) string {
	name := filepath.Base(folderPath)
	if IsArchivePath(folderPath) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// Entry is one row of an explorer directory listing.
type Entry struct {
	Name    string
	Path    string
	IsDir   bool
	IsComic bool // openable as a folder of pages
}

// ListFolders returns the explorer view of dir: subdirectories and comic
// archives in natural order, directories first. Dotfiles are skipped.
func (p *Provider) ListFolders(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var out []Entry
	for _, e := range dirents {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		switch {
		case e.IsDir():
			out = append(out, Entry{Name: e.Name(), Path: full, IsDir: true, IsComic: true})
		case IsArchivePath(e.Name()):
			out = append(out, Entry{Name: folderName(full), Path: full, IsComic: true})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return natural.Less(out[i].Name, out[j].Name)
	})
	return out, nil
}
