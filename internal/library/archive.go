package library

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"
)

// archiveEntrySep joins the archive path and entry path in an image path.
// Descriptor paths for archive entries read "<archive>:<entry>".
const archiveEntrySep = ":"

// splitArchivePath splits "<archive>:<entry>" back into its parts. The
// split point is the first separator after the archive extension, so
// Windows drive letters and entry names containing colons survive.
func splitArchivePath(path string) (archive, entry string, ok bool) {
	for i := 0; i < len(path); i++ {
		if path[i] != ':' {
			continue
		}
		if IsArchivePath(path[:i]) {
			return path[:i], path[i+1:], true
		}
	}
	return "", "", false
}

// listArchiveEntries returns the image entry names inside the archive in
// stored order. Directory entries and non-image files are skipped.
func listArchiveEntries(archivePath string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip", ".cbz":
		return listZipEntries(archivePath)
	case ".rar", ".cbr":
		return listRarEntries(archivePath)
	case ".7z", ".cb7":
		return list7zEntries(archivePath)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", archivePath)
	}
}

func listZipEntries(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && IsImagePath(f.Name) {
			entries = append(entries, f.Name)
		}
	}
	return entries, nil
}

func listRarEntries(archivePath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	var entries []string
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !header.IsDir && IsImagePath(header.Name) {
			entries = append(entries, header.Name)
		}
	}
	return entries, nil
}

func list7zEntries(archivePath string) ([]string, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var entries []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() && IsImagePath(f.Name) {
			entries = append(entries, f.Name)
		}
	}
	return entries, nil
}

// readArchiveEntry returns the bytes of one entry.
func readArchiveEntry(archivePath, entryPath string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(archivePath)) {
	case ".zip", ".cbz":
		return readZipEntry(archivePath, entryPath)
	case ".rar", ".cbr":
		return readRarEntry(archivePath, entryPath)
	case ".7z", ".cb7":
		return read7zEntry(archivePath, entryPath)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", archivePath)
	}
}

func readZipEntry(archivePath, entryPath string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == entryPath {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func readRarEntry(archivePath, entryPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := rardecode.NewReader(f, "")
	if err != nil {
		return nil, err
	}

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Name == entryPath {
			return io.ReadAll(r)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}

func read7zEntry(archivePath, entryPath string) ([]byte, error) {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name == entryPath {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found in %s", entryPath, archivePath)
}
