package download

import (
	"context"
	"fmt"
	"os"

	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/logging"
)

const refererHeader = "https://www.manhuagui.com/"

// runImageTask performs one ImageTask's body: acquire an image permit,
// fetch, write, and account for the result on the parent DownloadTask.
// Failures are logged and swallowed — HttpFetcher is assumed to already
// have performed its own bounded retries, so there is no per-image retry
// here.
func runImageTask(ctx context.Context, parent *DownloadTask, url, savePath string) {
	select {
	case parent.mgr.imgSem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-parent.mgr.imgSem }()

	data, err := parent.mgr.fetcher.GetImageBytes(ctx, url, refererHeader)
	if err != nil {
		logging.Logger().Warnf("downloading image %s: %s", url, logging.ErrorChain(err))
		return
	}

	if ctx.Err() != nil {
		// The attempt that started this fetch was abandoned (pause or
		// cancel) while the fetch was already in flight. Discard the
		// result instead of writing it and counting it against a
		// possibly-already-reset counter from a later attempt.
		return
	}

	if err := writeImageFile(savePath, data); err != nil {
		logging.Logger().Warnf("writing image %s: %s", savePath, logging.ErrorChain(err))
		return
	}

	parent.mgr.bytePerSec.Add(int64(len(data)))
	parent.downloadedImgCount.Add(1)

	parent.mgr.bus.Emit(events.KindDownloadTask, events.DownloadTaskEvent{
		State:              parent.State(),
		Chapter:            parent.Chapter,
		DownloadedImgCount: parent.downloadedImgCount.Load(),
		TotalImgCount:      parent.totalImgCount.Load(),
	})
}

// writeImageFile writes data to path in one shot; on failure any
// partially written file is removed so a retry never observes a
// truncated image.
func writeImageFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
