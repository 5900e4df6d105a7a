package export

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

func TestBuildComicInfoSingleChapterUsesNumber(t *testing.T) {
	ch := model.ChapterInfo{ComicTitle: "示例", ChapterTitle: "第一话", GroupName: model.GroupSingle, Order: "1"}
	ci := BuildComicInfo(ch, nil)
	assert.Equal(t, "示例", ci.Series)
	assert.Equal(t, "1", ci.Number)
	assert.Zero(t, ci.Volume)
}

func TestBuildComicInfoVolumeGroupUsesVolume(t *testing.T) {
	ch := model.ChapterInfo{ComicTitle: "示例", ChapterTitle: "第一卷", GroupName: model.GroupVolume, Order: "1"}
	ci := BuildComicInfo(ch, nil)
	assert.Equal(t, 1, ci.Volume)
	assert.Equal(t, "Volume", ci.Format)
}

func TestBuildComicInfoIncludesComicFields(t *testing.T) {
	ch := model.ChapterInfo{ComicTitle: "示例", GroupName: model.GroupSingle, Order: "1"}
	comic := &model.Comic{Intro: "简介", Authors: []string{"甲", "乙"}, Genres: []string{"冒险"}}
	ci := BuildComicInfo(ch, comic)
	assert.Equal(t, "简介", ci.Summary)
	assert.Equal(t, "甲, 乙", ci.Writer)
	assert.Equal(t, "冒险", ci.Genre)
}

func TestMarshalProducesValidXMLHeader(t *testing.T) {
	raw, err := BuildComicInfo(model.ChapterInfo{}, nil).Marshal()
	assert.NoError(t, err)
	assert.Contains(t, string(raw), "<?xml")
	assert.Contains(t, string(raw), "<ComicInfo>")
}
