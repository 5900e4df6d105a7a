package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanyeeee/manhuagui-downloader/internal/config"
	"github.com/lanyeeee/manhuagui-downloader/internal/download"
	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/htmlx"
	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

type stubFetcher struct{ searchHTML string }

func (s stubFetcher) GetChapterPage(ctx context.Context, comicID, chapterID int64) (string, error) {
	return "", nil
}
func (s stubFetcher) GetComicPage(ctx context.Context, comicID int64) (string, error) { return "", nil }
func (s stubFetcher) GetSearchPage(ctx context.Context, query string, page int) (string, error) {
	return s.searchHTML, nil
}
func (s stubFetcher) GetImageBytes(ctx context.Context, url, referer string) ([]byte, error) {
	return []byte("data"), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = root
	cfg.ExportDir = filepath.Join(root, "export")

	bus := events.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fetcher := stubFetcher{}
	extractor := htmlx.New()
	decryptor := func(html string) (*model.DecryptedPayload, error) {
		return &model.DecryptedPayload{Path: "/p/", Files: []string{"1.jpg"}, Len: 1}, nil
	}
	mgr := download.New(ctx, cfg, bus, fetcher, extractor, decryptor)

	return New(DefaultConfig(), mgr, bus, fetcher, extractor, layout.New(cfg.DownloadDir, cfg.ExportDir))
}

func testChapter(id int64) model.ChapterInfo {
	return model.ChapterInfo{ChapterID: id, ComicID: 1, ComicTitle: "测试漫画", GroupName: model.GroupSingle, ChapterTitle: "测试话", Order: "1"}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleCreateChapterRejectsMissingID(t *testing.T) {
	srv := newTestServer(t)
	body := `{"chapter":{}}`
	req := httptest.NewRequest(http.MethodPost, "/chapters", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	srv.handleCreateChapter(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreateThenListChapter(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(CreateChapterRequest{Chapter: testChapter(1)})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/chapters", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleCreateChapter(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/chapters", nil)
	listW := httptest.NewRecorder()
	srv.handleListChapters(listW, listReq)

	require.Equal(t, http.StatusOK, listW.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(listW.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["count"])
}

func TestHandlePauseUnknownChapterReturns404(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/chapters/999/pause", nil)
	req.SetPathValue("id", "999")
	w := httptest.NewRecorder()

	srv.handlePauseChapter(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()

	srv.handleSearch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
