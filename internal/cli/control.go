// Pause/resume/cancel operate on a chapter already registered inside a
// running `serve` process — DownloadManager's registry lives only as
// long as that process, so these commands are thin HTTP clients against
// it rather than standalone operations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newPauseCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return newControlCmd(ctx, ro, "pause", "Pause a downloading chapter on a running server")
}

func newResumeCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return newControlCmd(ctx, ro, "resume", "Resume a paused chapter on a running server")
}

func newCancelCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return newControlCmd(ctx, ro, "cancel", "Cancel a pending or downloading chapter on a running server")
}

func newControlCmd(ctx context.Context, ro *RootOpts, use, short string) *cobra.Command {
	var serverAddr string

	cmd := &cobra.Command{
		Use:   use + " CHAPTER_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chapter id %q: %w", args[0], err)
			}

			addr := serverAddr
			if addr == "" {
				a, err := newApp(ctx, ro)
				if err != nil {
					return err
				}
				addr = a.cfg.ServeAddr
			}

			url := fmt.Sprintf("http://%s/chapters/%d/%s", strings.TrimPrefix(addr, "http://"), id, use)
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("contacting server at %s (is `manhuaguidl serve` running?): %w", addr, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 300 {
				body, _ := io.ReadAll(resp.Body)
				var errResp struct{ Error string }
				_ = json.Unmarshal(body, &errResp)
				if errResp.Error != "" {
					return fmt.Errorf("%s", errResp.Error)
				}
				return fmt.Errorf("server returned %s", resp.Status)
			}
			fmt.Printf("%s: chapter %d\n", use, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server", "", "Address of a running `serve` process (default: config's serve_addr)")
	return cmd
}
