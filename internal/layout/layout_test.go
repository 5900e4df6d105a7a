package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

func testChapter() model.ChapterInfo {
	return model.ChapterInfo{
		ChapterID:    1,
		ComicID:      2,
		ComicTitle:   "测试漫画",
		GroupName:    model.GroupSingle,
		ChapterTitle: "第一话",
		Order:        "1",
	}
}

func TestTempAndFinalChapterDirSiblings(t *testing.T) {
	l := New("/downloads", "/exports")
	ch := testChapter()

	temp := l.TempChapterDir(ch)
	final := l.FinalChapterDir(ch)

	assert.Equal(t, filepath.Dir(temp), filepath.Dir(final))
	assert.Contains(t, filepath.Base(temp), "下载中")
	assert.Equal(t, "1 第一话", filepath.Base(final))
}

func TestImageFilenameIsZeroPadded(t *testing.T) {
	assert.Equal(t, "001.jpg", ImageFilename(1))
	assert.Equal(t, "042.jpg", ImageFilename(42))
	assert.Equal(t, "100.jpg", ImageFilename(100))
}

func TestIsDownloadedReflectsFinalDirOnly(t *testing.T) {
	root := t.TempDir()
	l := New(root, filepath.Join(root, "export"))
	ch := testChapter()

	assert.False(t, l.IsDownloaded(ch))

	require.NoError(t, os.MkdirAll(l.TempChapterDir(ch), 0o755))
	assert.False(t, l.IsDownloaded(ch), "a temp dir must not count as downloaded")

	require.NoError(t, os.MkdirAll(l.FinalChapterDir(ch), 0o755))
	assert.True(t, l.IsDownloaded(ch))
}

func TestSanitizePathSegmentReplacesIllegalChars(t *testing.T) {
	assert.Equal(t, "a／b：c", SanitizePathSegment(`a/b:c`))
	assert.Equal(t, "_", SanitizePathSegment("   "))
	assert.Equal(t, "name", SanitizePathSegment("name..."))
}

func TestMetadataPathUsesSanitizedComicTitle(t *testing.T) {
	l := New("/downloads", "/exports")
	p := l.MetadataPath("foo/bar")
	assert.Equal(t, filepath.Join("/downloads", "foo／bar", MetadataFilename), p)
}
