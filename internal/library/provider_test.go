package library

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write zip: %v", err)
	}
}

func TestListImagesNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "page10.png", "page2.png", "page1.png", "notes.txt")
	p := NewProvider(dir)

	images, err := p.ListImages(context.Background(), dir)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("listed %d images, want 3", len(images))
	}
	want := []string{"page1.png", "page2.png", "page10.png"}
	for i, name := range want {
		if images[i].Name != name {
			t.Errorf("images[%d] = %q, want %q", i, images[i].Name, name)
		}
		if images[i].Index != i {
			t.Errorf("images[%d].Index = %d", i, images[i].Index)
		}
	}
}

func TestListImagesSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png")
	if err := os.Mkdir(filepath.Join(dir, "extras.png"), 0755); err != nil {
		t.Fatal(err)
	}
	p := NewProvider(dir)

	images, err := p.ListImages(context.Background(), dir)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(images) != 1 || images[0].Name != "a.png" {
		t.Errorf("images = %v", images)
	}
}

func TestListImagesFromZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "ch1.cbz")
	writeZip(t, archive, map[string][]byte{
		"p2.jpg":     []byte("two"),
		"p1.jpg":     []byte("one"),
		"readme.txt": []byte("skip"),
	})
	p := NewProvider(dir)

	images, err := p.ListImages(context.Background(), archive)
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("listed %d entries, want 2", len(images))
	}
	if images[0].Name != "p1.jpg" || images[1].Name != "p2.jpg" {
		t.Errorf("order = %q, %q", images[0].Name, images[1].Name)
	}
	if images[0].Path != archive+":p1.jpg" {
		t.Errorf("entry path = %q", images[0].Path)
	}
}

func TestLoadImageData(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.png")
	archive := filepath.Join(dir, "ch1.zip")
	writeZip(t, archive, map[string][]byte{"p1.jpg": []byte("inside")})
	p := NewProvider(dir)
	ctx := context.Background()

	data, err := p.LoadImageData(ctx, filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if string(data) != "a.png" {
		t.Errorf("file data = %q", data)
	}

	data, err = p.LoadImageData(ctx, archive+":p1.jpg")
	if err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if string(data) != "inside" {
		t.Errorf("entry data = %q", data)
	}

	if _, err := p.LoadImageData(ctx, archive+":missing.jpg"); err == nil {
		t.Error("missing entry should error")
	}
}

func TestFolderMeta(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "p1.png", "p2.png")
	p := NewProvider(dir)

	meta, err := p.FolderMeta(context.Background(), dir)
	if err != nil {
		t.Fatalf("FolderMeta: %v", err)
	}
	if meta.ImageCount != 2 {
		t.Errorf("count = %d", meta.ImageCount)
	}
	if meta.CoverPath != filepath.Join(dir, "p1.png") {
		t.Errorf("cover = %q", meta.CoverPath)
	}
	if meta.Name != filepath.Base(dir) {
		t.Errorf("name = %q", meta.Name)
	}
}

func TestFolderMetaArchiveNameStripsExt(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "chapter 12.cbz")
	writeZip(t, archive, map[string][]byte{"p1.jpg": []byte("x")})
	p := NewProvider(dir)

	meta, err := p.FolderMeta(context.Background(), archive)
	if err != nil {
		t.Fatalf("FolderMeta: %v", err)
	}
	if meta.Name != "chapter 12" {
		t.Errorf("name = %q", meta.Name)
	}
}

func TestListFolders(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"zz-series", "a-series", ".hidden"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	writeZip(t, filepath.Join(dir, "ch2.cbz"), map[string][]byte{"p.jpg": nil})
	writeFiles(t, dir, "stray.txt")
	p := NewProvider(dir)

	entries, err := p.ListFolders(context.Background(), dir)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"a-series", "zz-series", "ch2"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entries[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if !entries[0].IsDir || entries[2].IsDir {
		t.Error("directories should sort before archives")
	}
}

func TestSplitArchivePath(t *testing.T) {
	archive, entry, ok := splitArchivePath("/comics/ch1.cbz:pages/p1.jpg")
	if !ok || archive != "/comics/ch1.cbz" || entry != "pages/p1.jpg" {
		t.Errorf("split = %q, %q, %v", archive, entry, ok)
	}
	if _, _, ok := splitArchivePath("/comics/p1.jpg"); ok {
		t.Error("plain path reported as archive entry")
	}
}
