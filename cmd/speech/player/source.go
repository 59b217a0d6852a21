package player

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// loadSource reads a local path, file:// URL or http(s) URL into memory.
// Remote sources are cached in cacheDir, named by a UUID derived from the URL.
func loadSource(ctx context.Context, source, cacheDir string, client *http.Client) ([]byte, error) {
	if isRemote(source) {
		return loadRemote(ctx, source, cacheDir, client)
	}

	p := source
	if strings.HasPrefix(source, "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("parse source: %w", err)
		}
		p = u.Path
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// CachePathFor returns where a remote source is cached, or "" if it is not remote.
func CachePathFor(cacheDir, source string) string {
	if cacheDir == "" || !isRemote(source) {
		return ""
	}
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String()
	if u, err := url.Parse(source); err == nil {
		name += strings.ToLower(path.Ext(u.Path))
	}
	return filepath.Join(cacheDir, name)
}

func loadRemote(ctx context.Context, source, cacheDir string, client *http.Client) ([]byte, error) {
	cached := CachePathFor(cacheDir, source)
	if cached != "" {
		if data, err := os.ReadFile(cached); err == nil {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: http error: %s", source, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	if cached != "" {
		if err := writeCache(cached, data); err != nil {
			return nil, fmt.Errorf("cache %s: %w", source, err)
		}
	}
	return data, nil
}

func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
