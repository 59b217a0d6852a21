// Package speech implements the commands that play, render and inspect speech recordings.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gigurra/speechplay/cmd/common"
	"github.com/gigurra/speechplay/cmd/speech/player"
	"github.com/gigurra/speechplay/cmd/speech/waveform"
	"github.com/mattn/go-runewidth"
)

// cacheDir resolves the remote source cache from settings, falling back to
// the XDG cache directory when the library is unavailable.
func cacheDir(settingsPath string) string {
	s, err := common.OpenSettings(settingsPath)
	if err == nil {
		var dir string
		if dir, err = s.CachePath(); err == nil {
			return dir
		}
	}
	slog.Debug("using fallback cache dir", "error", err)
	return common.CacheDir()
}

// loadOnce decodes source into canvas and waits until the session is ready or failed.
// The returned player must be closed by the caller.
func loadOnce(ctx context.Context, source string, canvas *waveform.Canvas, opts player.Options) (*player.Player, error) {
	loop := player.NewLoop()
	opts.Dispatch = loop.Dispatch

	p := player.New(ctx, canvas, opts)
	p.SetSource(source)
	p.SetVisible(true)
	if p.Session() == nil {
		p.Close()
		if err := p.Err(); err != nil {
			return nil, err
		}
		return nil, player.ErrNoTarget
	}

	err := loop.RunUntil(ctx, func() bool {
		return p.Session().State() != player.StateLoading
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("waiting for %s: %w", source, err)
	}
	if p.Session().State() == player.StateFailed {
		err := p.Session().Err()
		p.Close()
		return nil, err
	}
	return p, nil
}

// secondsToTimestamp formats d as HH:MM:SS.
func secondsToTimestamp(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}

// sourceTitle is the display name of a source: the base name of a path or URL.
func sourceTitle(source string) string {
	trimmed := strings.TrimRight(source, "/")
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if base := filepath.Base(trimmed); base != "." && base != "/" {
		return base
	}
	return source
}

// truncate shortens s to at most width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
