package server

import (
	"github.com/lanyeeee/manhuagui-downloader/internal/download"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// ChapterView is the JSON-facing projection of a DownloadTask: one flat
// struct a client can poll via GET /chapters instead of having to also
// understand the internal command-channel state machine.
type ChapterView struct {
	Chapter            model.ChapterInfo `json:"chapter"`
	State              string            `json:"state"`
	DownloadedImgCount uint32            `json:"downloadedImgCount"`
	TotalImgCount      uint32            `json:"totalImgCount"`
}

func newChapterView(t *download.DownloadTask) ChapterView {
	return ChapterView{
		Chapter:            t.Chapter,
		State:              string(t.State()),
		DownloadedImgCount: t.DownloadedImgCount(),
		TotalImgCount:      t.TotalImgCount(),
	}
}
