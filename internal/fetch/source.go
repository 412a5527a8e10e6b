package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// URLListSource fetches chapters described by manifest files: plain text,
// one image URL per line, blank lines and # comments skipped. Resolving
// chapter URLs into manifests happens outside yomu.
type URLListSource struct {
	Client *http.Client
}

// NewURLListSource creates a source with a reasonable download timeout.
func NewURLListSource() *URLListSource {
	return &URLListSource{
		Client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// ListPages reads the manifest at chapterRef. The chapter title is the
// manifest's base name without extension.
func (s *URLListSource) ListPages(ctx context.Context, chapterRef string) (string, []Page, error) {
	f, err := os.Open(chapterRef)
	if err != nil {
		return "", nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var pages []Page
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := url.ParseRequestURI(line); err != nil {
			return "", nil, fmt.Errorf("manifest line %q: %w", line, err)
		}
		pages = append(pages, Page{
			Name: pageFileName(len(pages), line),
			Ref:  line,
		})
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(pages) == 0 {
		return "", nil, fmt.Errorf("manifest %s lists no pages", chapterRef)
	}

	base := filepath.Base(chapterRef)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return title, pages, nil
}

// FetchPage downloads one page URL.
func (s *URLListSource) FetchPage(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", ref, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

// pageFileName numbers pages in listing order, keeping the URL's image
// extension so the downloaded folder opens directly in the viewer.
func pageFileName(index int, pageURL string) string {
	ext := ".jpg"
	if u, err := url.Parse(pageURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return fmt.Sprintf("%04d%s", index+1, ext)
}
