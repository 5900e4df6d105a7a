package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

func TestReadReturnsNilWhenMissing(t *testing.T) {
	l := layout.New(t.TempDir(), t.TempDir())
	comic, err := Read(l, "不存在")
	require.NoError(t, err)
	assert.Nil(t, comic)
}

func TestWriteThenReadRecomputesIsDownloaded(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root, filepath.Join(root, "export"))

	ch := model.ChapterInfo{
		ChapterID:    1,
		ComicID:      2,
		ComicTitle:   "测试漫画",
		GroupName:    model.GroupSingle,
		ChapterTitle: "第一话",
		Order:        "1",
	}
	comic := model.Comic{
		ID:     2,
		Title:  "测试漫画",
		Groups: map[string][]model.ChapterInfo{model.GroupSingle: {ch}},
	}
	require.NoError(t, Write(l, comic))

	loaded, err := Read(l, "测试漫画")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.False(t, loaded.Groups[model.GroupSingle][0].IsDownloaded)

	require.NoError(t, os.MkdirAll(l.FinalChapterDir(ch), 0o755))
	loaded, err = Read(l, "测试漫画")
	require.NoError(t, err)
	assert.True(t, loaded.Groups[model.GroupSingle][0].IsDownloaded)
}
