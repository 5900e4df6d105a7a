// Package metadata reads and writes the comic-level 元数据.json sidecar
// that sits alongside a comic's downloaded chapters, recomputing each
// chapter's IsDownloaded flag from the filesystem on every read rather
// than trusting a stale on-disk value.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// Read loads the sidecar for comicTitle under l's download root, if any
// exists, and recomputes IsDownloaded for every chapter from disk.
func Read(l layout.Layout, comicTitle string) (*model.Comic, error) {
	path := l.MetadataPath(comicTitle)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata %s: %w", path, err)
	}

	var comic model.Comic
	if err := json.Unmarshal(raw, &comic); err != nil {
		return nil, fmt.Errorf("parsing metadata %s: %w", path, err)
	}

	for group, chapters := range comic.Groups {
		for i := range chapters {
			chapters[i].IsDownloaded = l.IsDownloaded(chapters[i])
		}
		comic.Groups[group] = chapters
	}
	return &comic, nil
}

// Write persists comic's sidecar under l's download root. IsDownloaded is
// never serialized (ChapterInfo tags it json:"-"); Read always recomputes
// it from disk instead.
func Write(l layout.Layout, comic model.Comic) error {
	path := l.MetadataPath(comic.Title)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metadata dir: %w", err)
	}
	raw, err := json.MarshalIndent(comic, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing metadata %s: %w", path, err)
	}
	return nil
}
