// Package cli implements the manhuaguidl command tree: download against a
// local DownloadManager, pause/resume/cancel as HTTP clients of a running
// serve process, search/comic lookups, CBZ/PDF export, and a serve
// subcommand exposing the control surface over HTTP. One RootOpts struct carries persistent flags; one
// constructor function builds each subcommand.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/lanyeeee/manhuagui-downloader/internal/config"
	"github.com/lanyeeee/manhuagui-downloader/internal/decrypt"
	"github.com/lanyeeee/manhuagui-downloader/internal/download"
	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/fetch"
	"github.com/lanyeeee/manhuagui-downloader/internal/htmlx"
	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
	logpkg "github.com/lanyeeee/manhuagui-downloader/internal/logging"
)

// RootOpts holds global CLI flags, parsed once by the root command and
// threaded into every subcommand's RunE closure.
type RootOpts struct {
	ConfigPath string
	Token      string
	JSONOut    bool
	Quiet      bool
	LogLevel   string
}

// app bundles the constructed runtime dependencies every subcommand needs:
// the shared event bus, the download engine, and its collaborators.
type app struct {
	cfg       config.Config
	bus       *events.Bus
	fetcher   fetch.HttpFetcher
	extractor htmlx.Extractor
	layout    layout.Layout
	mgr       *download.DownloadManager
}

// newApp loads configuration and wires the download engine, auto-discovering
// a home-directory config file when --config is not given.
func newApp(ctx context.Context, ro *RootOpts) (*app, error) {
	path := ro.ConfigPath
	if path == "" {
		path = defaultConfigPath()
	}

	cfg := config.Default()
	if path != "" {
		if loaded, err := config.Load(path); err == nil {
			cfg = loaded
		}
	}

	token := strings.TrimSpace(ro.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("MANHUAGUI_TOKEN"))
	}
	if token != "" {
		cfg.Token = token
	}

	level := log.InfoLevel
	if lvl, err := log.ParseLevel(ro.LogLevel); err == nil {
		level = lvl
	}
	logpkg.Reload(os.Stderr, level)

	bus := events.New()
	fetcher := fetch.New(cfg.Token, cfg.RetryCount, time.Duration(cfg.RetryBackoffMs)*time.Millisecond, time.Duration(cfg.RequestTimeoutMs)*time.Millisecond)
	extractor := htmlx.New()
	l := layout.New(cfg.DownloadDir, cfg.ExportDir)
	mgr := download.New(ctx, cfg, bus, fetcher, extractor, decrypt.Decrypt)

	return &app{cfg: cfg, bus: bus, fetcher: fetcher, extractor: extractor, layout: l, mgr: mgr}, nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidate := home + "/.config/manhuaguidl.json"
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

// Execute builds and runs the root command.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "manhuaguidl",
		Short:         "Concurrent chapter downloader for manhuagui",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().StringVar(&ro.ConfigPath, "config", "", "Path to config file (default: ~/.config/manhuaguidl.json)")
	root.PersistentFlags().StringVarP(&ro.Token, "token", "t", "", "Site auth token (also reads MANHUAGUI_TOKEN env)")
	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON-lines progress events")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Quiet mode (suppress all progress output)")
	root.PersistentFlags().StringVar(&ro.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(newDownloadCmd(ctx, ro))
	root.AddCommand(newPauseCmd(ctx, ro))
	root.AddCommand(newResumeCmd(ctx, ro))
	root.AddCommand(newCancelCmd(ctx, ro))
	root.AddCommand(newSearchCmd(ctx, ro))
	root.AddCommand(newComicCmd(ctx, ro))
	root.AddCommand(newExportCmd(ctx, ro))
	root.AddCommand(newServeCmd(ctx, ro))
	root.AddCommand(newGenerateConfigCmd())
	root.AddCommand(newVersionCmd(version))
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", logpkg.ErrorChain(err))
		return err
	}
	return nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
