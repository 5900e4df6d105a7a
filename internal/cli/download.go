package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/logging"
	"github.com/lanyeeee/manhuagui-downloader/internal/metadata"
)

func newDownloadCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "download COMIC_ID",
		Short: "Download every not-yet-downloaded chapter of a comic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid comic id %q: %w", args[0], err)
			}

			a, err := newApp(ctx, ro)
			if err != nil {
				return err
			}

			html, err := a.fetcher.GetComicPage(ctx, comicID)
			if err != nil {
				return fmt.Errorf("fetching comic page: %w", err)
			}
			profile, err := a.extractor.ExtractComicProfile(html, comicID)
			if err != nil {
				return fmt.Errorf("parsing comic profile: %w", err)
			}
			groups, err := a.extractor.ExtractComicChapters(html, comicID, profile.Title, profile.Status)
			if err != nil {
				return fmt.Errorf("parsing chapter list: %w", err)
			}
			profile.Groups = groups
			if err := metadata.Write(a.layout, profile); err != nil {
				return fmt.Errorf("writing metadata: %w", err)
			}

			unsub := func() {}
			if !ro.Quiet {
				var ch <-chan events.Event
				ch, unsub = a.bus.Subscribe(64)
				go printProgress(ch, ro.JSONOut)
			}
			defer unsub()

			var tasks []string
			for _, chapters := range groups {
				for _, c := range chapters {
					if !all && a.layout.IsDownloaded(c) {
						continue
					}
					a.mgr.Create(c)
					tasks = append(tasks, c.PrefixedChapterTitle())
				}
			}

			if len(tasks) == 0 {
				fmt.Println("nothing to download: every chapter is already downloaded")
				return nil
			}
			fmt.Printf("queued %d chapter(s) for %s\n", len(tasks), profile.Title)
			waitForAllTerminal(ctx, a)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "re-download chapters that already exist on disk")
	return cmd
}

// waitForAllTerminal blocks until every registered task has reached a
// terminal state, polling at a short interval — sufficient for a CLI
// invocation where no other writer races the registry.
func waitForAllTerminal(ctx context.Context, a *app) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			done := true
			for _, t := range a.mgr.List() {
				if !t.IsTerminal() {
					done = false
					break
				}
			}
			if done {
				return
			}
		}
	}
}

// printProgress renders ProgressBus events to stdout: JSON-lines when
// jsonOut is set, a terse one-line-per-event form otherwise. When stdout
// is an interactive terminal, per-image progress lines overwrite the
// previous one via \r instead of scrolling, and Speed events are not
// printed.
func printProgress(ch <-chan events.Event, jsonOut bool) {
	enc := json.NewEncoder(os.Stdout)
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	lastWasProgress := false

	for ev := range ch {
		if jsonOut {
			_ = enc.Encode(ev)
			continue
		}
		switch data := ev.Data.(type) {
		case events.DownloadTaskEvent:
			if data.Err != "" {
				fmt.Printf("[%s] %s: %s\n", data.State, data.Chapter.PrefixedChapterTitle(), logging.ErrorChain(fmt.Errorf(data.Err)))
				lastWasProgress = false
			} else if interactive && data.State == events.StateDownloading {
				fmt.Printf("\r[%s] %s (%d/%d)", data.State, data.Chapter.PrefixedChapterTitle(), data.DownloadedImgCount, data.TotalImgCount)
				lastWasProgress = true
			} else {
				if lastWasProgress {
					fmt.Println()
					lastWasProgress = false
				}
				fmt.Printf("[%s] %s (%d/%d)\n", data.State, data.Chapter.PrefixedChapterTitle(), data.DownloadedImgCount, data.TotalImgCount)
			}
		case events.Speed:
			if !interactive {
				fmt.Printf("speed: %s MB/s\n", data.SpeedMBs)
			}
		case events.Sleeping:
			if lastWasProgress {
				fmt.Println()
				lastWasProgress = false
			}
			fmt.Printf("cooling down: chapter %d, %ds remaining\n", data.ChapterID, data.RemainingSec)
		}
	}
	if lastWasProgress {
		fmt.Println()
	}
}
