package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lanyeeee/manhuagui-downloader/internal/server"
)

func newServeCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var (
		addrFlag string
		origins  []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP+WebSocket server exposing the download control surface",
		Long: `Start a server that exposes the same create/pause/resume/cancel
operations as the CLI over a REST API, and relays live progress events to
any connected WebSocket client at /ws. Run this first, then use pause/
resume/cancel from another terminal or a browser UI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx, ro)
			if err != nil {
				return err
			}

			addr := addrFlag
			if addr == "" {
				addr = a.cfg.ServeAddr
			}
			host, portStr, err := net.SplitHostPort(addr)
			if err != nil {
				return fmt.Errorf("invalid --addr %q: %w", addr, err)
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("invalid port in %q: %w", addr, err)
			}

			cfg := server.Config{Addr: host, Port: port, AllowedOrigins: origins}
			srv := server.New(cfg, a.mgr, a.bus, a.fetcher, a.extractor, a.layout)

			fmt.Printf("manhuaguidl serving on http://%s\n", addr)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "Address to bind, host:port (default: config's serve_addr)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS origins to allow (default: allow all)")
	return cmd
}
