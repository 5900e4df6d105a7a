package download

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lanyeeee/manhuagui-downloader/internal/config"
	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/fetch"
	"github.com/lanyeeee/manhuagui-downloader/internal/htmlx"
	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/logging"
	"github.com/lanyeeee/manhuagui-downloader/internal/metadata"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// DecryptFunc recovers a DecryptedPayload from a chapter page's HTML.
// Injected (rather than calling internal/decrypt directly) so the
// scheduler can be exercised in tests without a real packer-encoded
// fixture, the same way HttpFetcher is injected rather than constructed
// internally.
type DecryptFunc func(html string) (*model.DecryptedPayload, error)

// DownloadManager admits, schedules, and tracks every DownloadTask. It
// owns the chapter/image semaphores and the byte-rate counter, and is the
// sole entry point external callers (CLI, HTTP server) use to drive
// downloads.
type DownloadManager struct {
	bus       *events.Bus
	fetcher   fetch.HttpFetcher
	extractor htmlx.HtmlExtractor
	decryptor DecryptFunc
	layout    layout.Layout
	config    config.Config

	chapterSem chan struct{}
	imgSem     chan struct{}
	bytePerSec atomic.Int64

	mu       sync.RWMutex
	registry map[int64]*DownloadTask
}

// New constructs a DownloadManager with its admission semaphores sized
// per the configured concurrency and starts its rate reporter. The
// returned manager runs until ctx is cancelled.
func New(ctx context.Context, cfg config.Config, bus *events.Bus, fetcher fetch.HttpFetcher, extractor htmlx.HtmlExtractor, decryptor DecryptFunc) *DownloadManager {
	m := &DownloadManager{
		bus:        bus,
		fetcher:    fetcher,
		extractor:  extractor,
		decryptor:  decryptor,
		layout:     layout.New(cfg.DownloadDir, cfg.ExportDir),
		config:     cfg,
		chapterSem: make(chan struct{}, cfg.ChapterConcurrency),
		imgSem:     make(chan struct{}, cfg.ImageConcurrency),
		registry:   make(map[int64]*DownloadTask),
	}
	go m.reportRate(ctx)
	return m
}

func (m *DownloadManager) releaseChapterPermit() {
	<-m.chapterSem
}

// reportRate emits a Speed event once per second summarizing the bytes
// transferred since the previous tick.
func (m *DownloadManager) reportRate(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bytes := m.bytePerSec.Swap(0)
			mbs := float64(bytes) / 1024 / 1024
			m.bus.Emit(events.KindSpeed, events.Speed{SpeedMBs: fmt.Sprintf("%.2f", mbs)})
		}
	}
}

// Create registers and starts a DownloadTask for ch. If an existing,
// non-terminal task with the same chapter id is already registered, the
// call is a no-op and the existing task is returned; a terminal task is
// replaced so the chapter can be re-downloaded.
func (m *DownloadManager) Create(ch model.ChapterInfo) *DownloadTask {
	m.mu.Lock()
	if existing, ok := m.registry[ch.ChapterID]; ok && !existing.IsTerminal() {
		m.mu.Unlock()
		return existing
	}
	task := newDownloadTask(m, ch)
	m.registry[ch.ChapterID] = task
	m.mu.Unlock()

	task.setState(events.StatePending, "")
	go task.run()
	return task
}

// Get looks up a registered task by chapter id.
func (m *DownloadManager) Get(chapterID int64) (*DownloadTask, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.registry[chapterID]
	return t, ok
}

// List returns every registered task, in no particular order.
func (m *DownloadManager) List() []*DownloadTask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*DownloadTask, 0, len(m.registry))
	for _, t := range m.registry {
		out = append(out, t)
	}
	return out
}

// Pause sends a pause command to the task for chapterID.
func (m *DownloadManager) Pause(chapterID int64) error {
	t, ok := m.Get(chapterID)
	if !ok {
		return fmt.Errorf("no task registered for chapter %d", chapterID)
	}
	t.send(cmdPause)
	return nil
}

// Resume sends a resume command to the task for chapterID.
func (m *DownloadManager) Resume(chapterID int64) error {
	t, ok := m.Get(chapterID)
	if !ok {
		return fmt.Errorf("no task registered for chapter %d", chapterID)
	}
	t.send(cmdResume)
	return nil
}

// Cancel sends a cancel command to the task for chapterID.
func (m *DownloadManager) Cancel(chapterID int64) error {
	t, ok := m.Get(chapterID)
	if !ok {
		return fmt.Errorf("no task registered for chapter %d", chapterID)
	}
	t.send(cmdCancel)
	return nil
}

// RefreshLibrary walks previously downloaded comics, re-fetches their
// current chapter lists, and creates a DownloadTask for every chapter not
// already present on disk. This is the supplemented bulk-refresh
// orchestration the distillation's events.rs names but never wires to a
// call path.
func (m *DownloadManager) RefreshLibrary(ctx context.Context, comicIDs []int64) error {
	total := int64(len(comicIDs))
	m.bus.Emit(events.KindUpdateDownloadedComics, events.UpdateDownloadedComics{
		Phase: events.PhaseGettingComics, Total: total,
	})

	for i, comicID := range comicIDs {
		html, err := m.fetcher.GetComicPage(ctx, comicID)
		if err != nil {
			logging.Logger().Warnf("refreshing comic %d: %s", comicID, logging.ErrorChain(err))
			continue
		}

		existing, err := m.findComicTitleByID(comicID)
		if err != nil {
			logging.Logger().Warnf("locating local metadata for comic %d: %s", comicID, logging.ErrorChain(err))
			continue
		}
		comicTitle := ""
		comicStatus := ""
		if existing != nil {
			comicTitle = existing.Title
			comicStatus = existing.Status
		}

		groups, err := m.extractor.ExtractComicChapters(html, comicID, comicTitle, comicStatus)
		if err != nil {
			logging.Logger().Warnf("parsing comic %d chapter list: %s", comicID, logging.ErrorChain(err))
			continue
		}

		m.bus.Emit(events.KindUpdateDownloadedComics, events.UpdateDownloadedComics{
			Phase: events.PhaseComicGot, Current: int64(i + 1), Total: total,
		})

		for _, chapters := range groups {
			for _, ch := range chapters {
				if m.layout.IsDownloaded(ch) {
					continue
				}
				m.Create(ch)
				m.bus.Emit(events.KindUpdateDownloadedComics, events.UpdateDownloadedComics{
					Phase: events.PhaseDownloadTaskCreated, Current: int64(i + 1), Total: total,
				})
			}
		}
	}
	return nil
}

func (m *DownloadManager) findComicTitleByID(comicID int64) (*model.Comic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.registry {
		if t.Chapter.ComicID == comicID {
			return metadata.Read(m.layout, t.Chapter.ComicTitle)
		}
	}
	return nil, nil
}
