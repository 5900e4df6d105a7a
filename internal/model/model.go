// Package model holds the data types shared across the download core:
// chapters, comics, and the decrypted image-list payload.
package model

import "fmt"

// ChapterInfo identifies a single unit of downloadable work: one chapter
// belonging to one comic. It is treated as an immutable value once
// constructed; PrefixedChapterTitle is always derived from Order and
// ChapterTitle rather than stored independently by callers.
type ChapterInfo struct {
	ChapterID     int64  `json:"chapterId"`
	ComicID       int64  `json:"comicId"`
	ComicTitle    string `json:"comicTitle"`
	GroupName     string `json:"groupName"`
	ChapterTitle  string `json:"chapterTitle"`
	Order         string `json:"order"` // decimal, kept as a string to preserve fractional orders exactly
	GroupSize     int    `json:"groupSize"`
	ChapterSize   int    `json:"chapterSize"`
	ComicStatus   string `json:"comicStatus"`
	IsDownloaded  bool   `json:"-"` // in-memory only; recomputed on read, never serialized to the metadata sidecar
}

// Group name constants recognized by the exporter's ComicInfo mapping.
const (
	GroupSingle = "单话"
	GroupVolume = "单行本"
)

// ComicStatusOngoing is the status string used by the site for comics still
// being serialized; anything else is treated as completed.
const ComicStatusOngoing = "连载中"

// PrefixedChapterTitle returns "{order} {chapter_title}", the on-disk
// directory name that preserves reading order.
func (c ChapterInfo) PrefixedChapterTitle() string {
	return fmt.Sprintf("%s %s", c.Order, c.ChapterTitle)
}

// IsOngoing reports whether the comic is still being serialized.
func (c ChapterInfo) IsOngoing() bool {
	return c.ComicStatus == ComicStatusOngoing
}

// Sl is the opaque credential blob retained only for round-trip fidelity.
type Sl struct {
	E int64  `json:"e"`
	M string `json:"m"`
}

// DecryptedPayload is the structured result of decrypting a chapter page's
// obfuscated packer script. Only Path and Files affect downloads; the rest
// is retained so re-serializing a DecryptedPayload round-trips.
type DecryptedPayload struct {
	Bid      int64    `json:"bid"`
	Bname    string   `json:"bname"`
	Bpic     string   `json:"bpic"`
	Cid      int64    `json:"cid"`
	Cname    string   `json:"cname"`
	Files    []string `json:"files"`
	Finished bool     `json:"finished"`
	Len      int64    `json:"len"`
	Path     string   `json:"path"`
	Status   int64    `json:"status"`
	BlockCc  string   `json:"block_cc"`
	NextID   int64    `json:"next_id"`
	PrevID   int64    `json:"prev_id"`
	Sl       Sl       `json:"sl"`
}

// Comic is a site comic's profile: its metadata plus every chapter grouped
// by group name. It is the record persisted to the 元数据.json sidecar.
type Comic struct {
	ID         int64                    `json:"id"`
	Title      string                   `json:"title"`
	Subtitle   string                   `json:"subtitle,omitempty"`
	Cover      string                   `json:"cover"`
	Status     string                   `json:"status"`
	UpdateTime string                   `json:"updateTime"`
	Year       int64                    `json:"year"`
	Region     string                   `json:"region"`
	Genres     []string                 `json:"genres"`
	Authors    []string                 `json:"authors"`
	Aliases    []string                 `json:"aliases"`
	Intro      string                   `json:"intro"`
	Groups     map[string][]ChapterInfo `json:"groups"`
}

// SearchResult is a single row of a search/listing page; intentionally
// thin since list parsing is plumbing, not core.
type SearchResult struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Cover             string `json:"cover"`
	Authors           []string `json:"authors"`
	LastUpdateChapter string `json:"lastUpdateChapter"`
}

// LogLevel mirrors the structured log levels surfaced through ProgressBus.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)
