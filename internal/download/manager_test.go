package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanyeeee/manhuagui-downloader/internal/config"
	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/htmlx"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// fakeFetcher is a deterministic stand-in for fetch.HttpFetcher: chapter
// pages are never actually parsed (decryption is injected separately),
// and image bytes are produced by a hook so tests can control timing.
type fakeFetcher struct {
	imageBytes func(url string) ([]byte, error)
}

func (f *fakeFetcher) GetChapterPage(ctx context.Context, comicID, chapterID int64) (string, error) {
	return "<html></html>", nil
}
func (f *fakeFetcher) GetComicPage(ctx context.Context, comicID int64) (string, error) { return "", nil }
func (f *fakeFetcher) GetSearchPage(ctx context.Context, query string, page int) (string, error) {
	return "", nil
}
func (f *fakeFetcher) GetImageBytes(ctx context.Context, url, referer string) ([]byte, error) {
	return f.imageBytes(url)
}

func fakeDecryptor(files []string) DecryptFunc {
	return func(html string) (*model.DecryptedPayload, error) {
		return &model.DecryptedPayload{Path: "/p/", Files: files, Len: int64(len(files))}, nil
	}
}

func testChapter(id int64) model.ChapterInfo {
	return model.ChapterInfo{
		ChapterID:    id,
		ComicID:      1,
		ComicTitle:   "测试漫画",
		GroupName:    model.GroupSingle,
		ChapterTitle: fmt.Sprintf("第%d话", id),
		Order:        fmt.Sprintf("%d", id),
	}
}

func newTestManager(t *testing.T, fetcher *fakeFetcher, files []string) (*DownloadManager, *events.Bus) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = root
	cfg.ExportDir = filepath.Join(root, "export")
	cfg.ChapterConcurrency = 1
	cfg.ImageConcurrency = 10
	cfg.DownloadIntervalSec = 0

	bus := events.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mgr := New(ctx, cfg, bus, fetcher, htmlx.New(), fakeDecryptor(files))
	return mgr, bus
}

func waitForState(t *testing.T, task *DownloadTask, want events.DownloadTaskState, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if task.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %d never reached state %s, stuck at %s", task.Chapter.ChapterID, want, task.State())
}

func TestCreateDownloadsChapterEndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{imageBytes: func(url string) ([]byte, error) { return []byte("data"), nil }}
	mgr, _ := newTestManager(t, fetcher, []string{"1.jpg", "2.jpg"})

	ch := testChapter(1)
	task := mgr.Create(ch)
	waitForState(t, task, events.StateCompleted, 2*time.Second)

	entries, err := os.ReadDir(mgr.layout.FinalChapterDir(ch))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.EqualValues(t, 2, task.downloadedImgCount.Load())
}

func TestChapterSemaphoreSerializesDownloads(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{imageBytes: func(url string) ([]byte, error) {
		<-gate
		return []byte("data"), nil
	}}
	mgr, _ := newTestManager(t, fetcher, []string{"1.jpg"})

	a := mgr.Create(testChapter(1))
	waitForState(t, a, events.StateDownloading, time.Second)

	b := mgr.Create(testChapter(2))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, events.StatePending, b.State(), "second chapter must wait for the chapter permit")

	close(gate)
	waitForState(t, a, events.StateCompleted, 2*time.Second)
	waitForState(t, b, events.StateCompleted, 2*time.Second)
}

func TestCancelWhilePendingNeverCreatesTempDir(t *testing.T) {
	gate := make(chan struct{})
	fetcher := &fakeFetcher{imageBytes: func(url string) ([]byte, error) {
		<-gate
		return []byte("data"), nil
	}}
	mgr, _ := newTestManager(t, fetcher, []string{"1.jpg"})
	defer close(gate)

	a := mgr.Create(testChapter(1))
	waitForState(t, a, events.StateDownloading, time.Second)

	b := mgr.Create(testChapter(2))
	require.NoError(t, mgr.Cancel(b.Chapter.ChapterID))
	waitForState(t, b, events.StateCancelled, time.Second)

	_, err := os.Stat(mgr.layout.TempChapterDir(b.Chapter))
	assert.True(t, os.IsNotExist(err), "a cancelled-while-pending task must never create a temp dir")
}

func TestPauseReleasesPermitForAnotherChapter(t *testing.T) {
	gateA := make(chan struct{})
	fetcher := &fakeFetcher{imageBytes: func(url string) ([]byte, error) {
		<-gateA
		return []byte("data"), nil
	}}
	mgr, _ := newTestManager(t, fetcher, []string{"1.jpg"})

	a := mgr.Create(testChapter(1))
	waitForState(t, a, events.StateDownloading, time.Second)

	require.NoError(t, mgr.Pause(a.Chapter.ChapterID))
	waitForState(t, a, events.StatePaused, time.Second)

	b := mgr.Create(testChapter(2))
	waitForState(t, b, events.StateDownloading, time.Second)

	close(gateA)
	require.NoError(t, mgr.Resume(a.Chapter.ChapterID))
	waitForState(t, a, events.StateCompleted, 2*time.Second)
}

func TestSpeedReporterEmitsAfterOneTick(t *testing.T) {
	fetcher := &fakeFetcher{imageBytes: func(url string) ([]byte, error) { return []byte("data"), nil }}
	mgr, bus := newTestManager(t, fetcher, []string{"1.jpg"})

	ch, unsub := bus.Subscribe(16)
	defer unsub()

	mgr.Create(testChapter(1))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == events.KindSpeed {
				return
			}
		case <-deadline:
			t.Fatal("no Speed event observed within 2s")
		}
	}
}
