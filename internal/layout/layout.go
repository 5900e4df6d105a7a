// Package layout computes the on-disk paths for chapters, metadata, and
// export artifacts. Every function here is pure over its arguments except
// for IsDownloaded, which performs the one filesystem check a caller needs
// to tell an already-downloaded chapter from a pending one (existence of
// the final chapter directory).
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// downloadingPrefix marks a chapter directory as an in-progress, never
// surfaced to the user or counted as downloaded.
const downloadingPrefix = ".下载中-"

// MetadataFilename is the comic-level metadata sidecar's filename.
const MetadataFilename = "元数据.json"

// Layout resolves paths under a configured download/export root.
type Layout struct {
	DownloadDir string
	ExportDir   string
}

// New builds a Layout from the configured roots.
func New(downloadDir, exportDir string) Layout {
	return Layout{DownloadDir: downloadDir, ExportDir: exportDir}
}

// TempChapterDir is the transient directory images are written into while
// a chapter download is in progress.
func (l Layout) TempChapterDir(ch model.ChapterInfo) string {
	return filepath.Join(l.DownloadDir, SanitizePathSegment(ch.ComicTitle), SanitizePathSegment(ch.GroupName),
		downloadingPrefix+SanitizePathSegment(ch.PrefixedChapterTitle()))
}

// FinalChapterDir is the directory a completed chapter's images live in.
// Its existence is the sole completeness signal: it is only ever created
// by an atomic rename from TempChapterDir.
func (l Layout) FinalChapterDir(ch model.ChapterInfo) string {
	return filepath.Join(l.DownloadDir, SanitizePathSegment(ch.ComicTitle), SanitizePathSegment(ch.GroupName),
		SanitizePathSegment(ch.PrefixedChapterTitle()))
}

// MetadataPath is the comic-level metadata sidecar path.
func (l Layout) MetadataPath(comicTitle string) string {
	return filepath.Join(l.DownloadDir, SanitizePathSegment(comicTitle), MetadataFilename)
}

// ImageFilename returns the on-disk filename for the i-th image (1-based).
func ImageFilename(i int) string {
	return fmt.Sprintf("%03d.jpg", i)
}

// IsDownloaded reports whether the chapter's final directory exists.
func (l Layout) IsDownloaded(ch model.ChapterInfo) bool {
	info, err := os.Stat(l.FinalChapterDir(ch))
	return err == nil && info.IsDir()
}

// CBZPath is the destination of a chapter's CBZ export.
func (l Layout) CBZPath(ch model.ChapterInfo) string {
	return filepath.Join(l.ExportDir, SanitizePathSegment(ch.ComicTitle), SanitizePathSegment(ch.GroupName),
		SanitizePathSegment(ch.PrefixedChapterTitle())+".cbz")
}

// ChapterPDFPath is the destination of a single chapter's PDF. Group
// merging does not read it.
func (l Layout) ChapterPDFPath(ch model.ChapterInfo) string {
	return filepath.Join(l.ExportDir, SanitizePathSegment(ch.ComicTitle), SanitizePathSegment(ch.GroupName),
		SanitizePathSegment(ch.PrefixedChapterTitle())+".pdf")
}

// GroupPDFPath is the destination of a group's merged, bookmarked PDF.
func (l Layout) GroupPDFPath(comicTitle, groupName string) string {
	return filepath.Join(l.ExportDir, SanitizePathSegment(comicTitle),
		fmt.Sprintf("%s - %s.pdf", SanitizePathSegment(comicTitle), SanitizePathSegment(groupName)))
}

// invalidPathChars covers the characters that are illegal (or awkward) in
// Windows and POSIX filenames alike; manhuagui titles occasionally contain
// them (e.g. "?" in questions, "/" in subtitles).
var invalidPathChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizePathSegment makes a title safe to use as a single path segment:
// illegal characters are replaced with a full-width equivalent where one
// exists (so titles stay readable) and the segment is trimmed of
// leading/trailing whitespace and dots.
func SanitizePathSegment(s string) string {
	replacer := strings.NewReplacer(
		"/", "／",
		"\\", "＼",
		":", "：",
		"*", "＊",
		"?", "？",
		`"`, "＂",
		"<", "＜",
		">", "＞",
		"|", "｜",
	)
	s = replacer.Replace(s)
	s = invalidPathChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, " .")
	if s == "" {
		s = "_"
	}
	return s
}
