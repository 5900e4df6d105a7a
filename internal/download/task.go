// Package download implements the concurrent chapter download core:
// DownloadTask's state machine, ImageTask's per-image body, and the
// DownloadManager that admits, schedules, and reports on them.
//
// Go goroutines cannot be cooperatively parked mid-function the way an
// async fn can; rather than suspending a task in place, pausing instead
// abandons the in-flight goroutine and discards its eventual result,
// relying on the commit protocol and permit release to keep that safe.
// The shape follows a per-file goroutine reporting through a shared
// progress struct, generalized here to a resumable, cancelable task.
package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	"github.com/lanyeeee/manhuagui-downloader/internal/logging"
	"github.com/lanyeeee/manhuagui-downloader/internal/metadata"
	"github.com/lanyeeee/manhuagui-downloader/internal/model"
	"github.com/lanyeeee/manhuagui-downloader/internal/watch"
)

// command is sent to a DownloadTask's loop to request a state change.
type command int

const (
	cmdPause command = iota
	cmdResume
	cmdCancel
)

// DownloadTask owns one chapter's download lifecycle. Construct only via
// DownloadManager.Create.
type DownloadTask struct {
	Chapter model.ChapterInfo

	mgr *DownloadManager

	state *watch.Value[events.DownloadTaskState]

	downloadedImgCount atomic.Uint32
	totalImgCount      atomic.Uint32

	cmdCh chan command

	ctx    context.Context
	cancel context.CancelFunc

	// attemptCancel stops the in-flight downloadChapter goroutine, if any.
	// Only ever read/written from within run()'s goroutine.
	attemptCancel context.CancelFunc
}

func newDownloadTask(mgr *DownloadManager, ch model.ChapterInfo) *DownloadTask {
	ctx, cancel := context.WithCancel(context.Background())
	return &DownloadTask{
		Chapter: ch,
		mgr:     mgr,
		state:   watch.New(events.StatePending),
		cmdCh:   make(chan command, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// State returns the task's current lifecycle state.
func (t *DownloadTask) State() events.DownloadTaskState {
	return t.state.Get()
}

// DownloadedImgCount returns the number of images written so far.
func (t *DownloadTask) DownloadedImgCount() uint32 {
	return t.downloadedImgCount.Load()
}

// TotalImgCount returns the chapter's expected image count, or zero if
// the page has not been decrypted yet.
func (t *DownloadTask) TotalImgCount() uint32 {
	return t.totalImgCount.Load()
}

// IsTerminal reports whether the task has reached a state from which it
// never transitions again.
func (t *DownloadTask) IsTerminal() bool {
	switch t.State() {
	case events.StateCompleted, events.StateFailed, events.StateCancelled:
		return true
	default:
		return false
	}
}

func (t *DownloadTask) setState(s events.DownloadTaskState, errMsg string) {
	t.state.Set(s)
	t.mgr.bus.Emit(events.KindDownloadTask, events.DownloadTaskEvent{
		State:              s,
		Chapter:            t.Chapter,
		DownloadedImgCount: t.downloadedImgCount.Load(),
		TotalImgCount:      t.totalImgCount.Load(),
		Err:                errMsg,
	})
}

// send enqueues a command for the task's loop, replacing any pending one
// so a burst of calls (e.g. rapid Pause/Resume) never blocks the caller.
// A queued Cancel is never replaced this way — it always wins.
func (t *DownloadTask) send(c command) {
	select {
	case t.cmdCh <- c:
	default:
		select {
		case old := <-t.cmdCh:
			if old == cmdCancel {
				t.cmdCh <- old
				return
			}
		default:
		}
		t.cmdCh <- c
	}
}

// run is the task's event loop; spawned once by DownloadManager.Create.
func (t *DownloadTask) run() {
	var resultCh chan error
	permitHeld := false

	release := func() {
		if permitHeld {
			t.mgr.releaseChapterPermit()
			permitHeld = false
		}
	}
	defer release()

	for {
		if t.State() == events.StatePending && !permitHeld {
			select {
			case t.mgr.chapterSem <- struct{}{}:
				permitHeld = true
				t.setState(events.StateDownloading, "")
				attemptCtx, cancel := context.WithCancel(t.ctx)
				t.attemptCancel = cancel
				resultCh = make(chan error, 1)
				go t.downloadChapter(attemptCtx, resultCh)
			case cmd := <-t.cmdCh:
				if t.applyCommand(cmd, permitHeld) {
					return
				}
				continue
			case <-t.ctx.Done():
				return
			}
		}

		select {
		case cmd := <-t.cmdCh:
			if cmd == cmdPause && resultCh != nil {
				resultCh = nil
			}
			if t.applyCommand(cmd, permitHeld) {
				return
			}
			if cmd == cmdPause {
				release()
			}
		case err := <-nonNilOrNever(resultCh):
			release()
			resultCh = nil
			if err != nil {
				t.setState(events.StateFailed, err.Error())
				return
			}
			t.setState(events.StateCompleted, "")
			return
		case <-t.ctx.Done():
			return
		}
	}
}

// nonNilOrNever returns ch if non-nil, or a channel that never fires —
// select{} on a nil channel blocks forever, which is exactly the "this
// case is not ready" semantics needed while no worker is running.
func nonNilOrNever(ch chan error) chan error {
	return ch
}

// applyCommand handles one command, returning true if the loop must stop
// (Cancel).
func (t *DownloadTask) applyCommand(cmd command, permitHeld bool) bool {
	switch cmd {
	case cmdPause:
		if t.State() == events.StateDownloading {
			t.setState(events.StatePaused, "")
			if t.attemptCancel != nil {
				t.attemptCancel()
				t.attemptCancel = nil
			}
		}
		return false
	case cmdResume:
		if t.State() == events.StatePaused {
			t.setState(events.StatePending, "")
		}
		return false
	case cmdCancel:
		t.cancel()
		t.setState(events.StateCancelled, "")
		return true
	}
	return false
}

// downloadChapter performs one attempt of the full chapter-download
// sequence: fetch page, decrypt, create temp dir, download every image,
// commit (rename), sleep, done. ctx is scoped to this single attempt — a
// pause cancels it without touching the task's own lifetime, so a fresh
// attempt started by a later resume gets a clean context and starts its
// image count from zero.
func (t *DownloadTask) downloadChapter(ctx context.Context, resultCh chan<- error) {
	ch := t.Chapter
	t.downloadedImgCount.Store(0)

	html, err := t.mgr.fetcher.GetChapterPage(ctx, ch.ComicID, ch.ChapterID)
	if err != nil {
		resultCh <- fmt.Errorf("fetching chapter page: %w", err)
		return
	}

	payload, err := t.mgr.decryptor(html)
	if err != nil {
		resultCh <- fmt.Errorf("decrypting chapter page: %w", err)
		return
	}

	imgURLs := make([]string, len(payload.Files))
	for i, file := range payload.Files {
		imgURLs[i] = fmt.Sprintf("https://i.hamreus.com%s%s", payload.Path, strings.TrimSuffix(file, ".webp"))
	}

	tempDir := t.mgr.layout.TempChapterDir(ch)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		resultCh <- fmt.Errorf("creating temp chapter dir: %w", err)
		return
	}

	t.totalImgCount.Store(uint32(len(imgURLs)))
	t.setState(events.StateDownloading, "")

	var wg sync.WaitGroup
	for i, url := range imgURLs {
		wg.Add(1)
		savePath := filepath.Join(tempDir, layout.ImageFilename(i+1))
		go func(url, savePath string) {
			defer wg.Done()
			runImageTask(ctx, t, url, savePath)
		}(url, savePath)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Abandoned by a pause (or the task itself was cancelled): the
		// state transition already happened in applyCommand, so there is
		// nothing useful to report here.
		return
	}

	if t.downloadedImgCount.Load() != t.totalImgCount.Load() {
		resultCh <- fmt.Errorf("only %d/%d images downloaded", t.downloadedImgCount.Load(), t.totalImgCount.Load())
		return
	}

	finalDir := t.mgr.layout.FinalChapterDir(ch)
	if err := commitChapterDir(tempDir, finalDir); err != nil {
		resultCh <- fmt.Errorf("committing chapter dir: %w", err)
		return
	}

	if t.mgr.config.DownloadIntervalSec > 0 {
		for remaining := t.mgr.config.DownloadIntervalSec; remaining > 0; remaining-- {
			t.mgr.bus.Emit(events.KindSleeping, events.Sleeping{ChapterID: ch.ChapterID, RemainingSec: remaining})
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				resultCh <- ctx.Err()
				return
			}
		}
	}

	if err := writeBackMetadata(t.mgr.layout, ch); err != nil {
		logging.Logger().Warnf("writing back metadata for %s: %s", ch.ComicTitle, logging.ErrorChain(err))
	}

	resultCh <- nil
}

// commitChapterDir implements an atomic-rename commit protocol: if
// finalDir already exists (a stale prior attempt), remove it first, then
// rename tempDir onto finalDir in one filesystem operation.
func commitChapterDir(tempDir, finalDir string) error {
	if _, err := os.Stat(finalDir); err == nil {
		if err := os.RemoveAll(finalDir); err != nil {
			return fmt.Errorf("removing stale final dir: %w", err)
		}
	}
	if err := os.Rename(tempDir, finalDir); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", tempDir, finalDir, err)
	}
	return nil
}

// writeBackMetadata refreshes the comic's 元数据.json sidecar after a
// chapter completes, so downstream tools see the new chapter without a
// separate refresh pass. A missing sidecar is tolerated and left missing:
// the download command writes it before queuing chapters, not here.
func writeBackMetadata(l layout.Layout, ch model.ChapterInfo) error {
	comic, err := metadata.Read(l, ch.ComicTitle)
	if err != nil {
		return err
	}
	if comic == nil {
		return nil
	}
	group := comic.Groups[ch.GroupName]
	found := false
	for i, existing := range group {
		if existing.ChapterID == ch.ChapterID {
			group[i] = ch
			found = true
			break
		}
	}
	if !found {
		group = append(group, ch)
	}
	comic.Groups[ch.GroupName] = group
	return metadata.Write(l, *comic)
}
