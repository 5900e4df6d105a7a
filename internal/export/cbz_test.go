package export

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

func TestCBZPackagesImagesAndComicInfo(t *testing.T) {
	root := t.TempDir()
	l := layout.New(root, filepath.Join(root, "export"))
	ch := model.ChapterInfo{
		ChapterID: 1, ComicID: 2, ComicTitle: "测试漫画",
		GroupName: model.GroupSingle, ChapterTitle: "第一话", Order: "1",
	}

	chapterDir := l.FinalChapterDir(ch)
	require.NoError(t, os.MkdirAll(chapterDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chapterDir, "001.jpg"), []byte("fake-image-1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(chapterDir, "002.jpg"), []byte("fake-image-2"), 0o644))

	require.NoError(t, CBZ(l, nil, "job-1", ch, nil))

	zr, err := zip.OpenReader(l.CBZPath(ch))
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"001.jpg", "002.jpg", "ComicInfo.xml"}, names)
}
