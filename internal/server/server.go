// Package server exposes the download control surface (create/pause/
// resume/cancel) over HTTP, and fans out ProgressBus events to WebSocket
// clients. It plays the role the original desktop app filled with an
// in-process IPC bridge: a thin relay in front of DownloadManager, never
// a second source of truth.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lanyeeee/manhuagui-downloader/internal/download"
	"github.com/lanyeeee/manhuagui-downloader/internal/events"
	"github.com/lanyeeee/manhuagui-downloader/internal/fetch"
	"github.com/lanyeeee/manhuagui-downloader/internal/htmlx"
	"github.com/lanyeeee/manhuagui-downloader/internal/layout"
)

// Config holds the server's own tunables; download/export behavior comes
// from the shared config.Config used to build the DownloadManager.
type Config struct {
	Addr           string
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for local/dev use.
func DefaultConfig() Config {
	return Config{Addr: "127.0.0.1", Port: 8787}
}

// Server is the HTTP+WebSocket relay in front of a DownloadManager.
type Server struct {
	config     Config
	httpServer *http.Server
	mgr        *download.DownloadManager
	bus        *events.Bus
	fetcher    fetch.HttpFetcher
	extractor  htmlx.HtmlExtractor
	layout     layout.Layout
	wsHub      *WSHub
}

// New builds a Server wired to an already-constructed DownloadManager and
// the shared event bus it publishes to.
func New(cfg Config, mgr *download.DownloadManager, bus *events.Bus, fetcher fetch.HttpFetcher, extractor htmlx.HtmlExtractor, l layout.Layout) *Server {
	return &Server{
		config:    cfg,
		mgr:       mgr,
		bus:       bus,
		fetcher:   fetcher,
		extractor: extractor,
		layout:    l,
		wsHub:     NewWSHub(),
	}
}

// ListenAndServe starts the HTTP server and blocks until ctx is cancelled
// or the server fails. A graceful shutdown is attempted on cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.wsHub.Run()
	go s.relayBusToWS(ctx)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	addr := fmt.Sprintf("%s:%d", s.config.Addr, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.corsMiddleware(s.loggingMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("serving on http://%s (API at /chapters, progress at /ws)", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// relayBusToWS subscribes to the ProgressBus and forwards every event to
// connected WebSocket clients until ctx is cancelled.
func (s *Server) relayBusToWS(ctx context.Context) {
	ch, unsub := s.bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.wsHub.BroadcastEvent(ev)
		}
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /chapters", s.handleCreateChapter)
	mux.HandleFunc("GET /chapters", s.handleListChapters)
	mux.HandleFunc("GET /chapters/{id}", s.handleGetChapter)
	mux.HandleFunc("POST /chapters/{id}/pause", s.handlePauseChapter)
	mux.HandleFunc("POST /chapters/{id}/resume", s.handleResumeChapter)
	mux.HandleFunc("POST /chapters/{id}/cancel", s.handleCancelChapter)

	mux.HandleFunc("POST /library/refresh", s.handleRefreshLibrary)
	mux.HandleFunc("GET /search", s.handleSearch)

	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			allowed := len(s.config.AllowedOrigins) == 0
			for _, o := range s.config.AllowedOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
