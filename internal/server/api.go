package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// CreateChapterRequest is the request body for POST /chapters.
type CreateChapterRequest struct {
	Chapter model.ChapterInfo `json:"chapter"`
}

// RefreshLibraryRequest is the request body for POST /library/refresh.
type RefreshLibraryRequest struct {
	ComicIDs []int64 `json:"comicIds"`
}

// ErrorResponse is the JSON body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var req CreateChapterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Chapter.ChapterID == 0 {
		writeError(w, http.StatusBadRequest, "missing chapter.chapterId")
		return
	}
	task := s.mgr.Create(req.Chapter)
	writeJSON(w, http.StatusAccepted, newChapterView(task))
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	tasks := s.mgr.List()
	views := make([]ChapterView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newChapterView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": views, "count": len(views)})
}

func (s *Server) chapterIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	id, err := s.chapterIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chapter id")
		return
	}
	task, ok := s.mgr.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no such chapter")
		return
	}
	writeJSON(w, http.StatusOK, newChapterView(task))
}

func (s *Server) handlePauseChapter(w http.ResponseWriter, r *http.Request) {
	s.dispatchCommand(w, r, s.mgr.Pause)
}

func (s *Server) handleResumeChapter(w http.ResponseWriter, r *http.Request) {
	s.dispatchCommand(w, r, s.mgr.Resume)
}

func (s *Server) handleCancelChapter(w http.ResponseWriter, r *http.Request) {
	s.dispatchCommand(w, r, s.mgr.Cancel)
}

func (s *Server) dispatchCommand(w http.ResponseWriter, r *http.Request, do func(int64) error) {
	id, err := s.chapterIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chapter id")
		return
	}
	if err := do(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleRefreshLibrary(w http.ResponseWriter, r *http.Request) {
	var req RefreshLibraryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()
	if err := s.mgr.RefreshLibrary(ctx, req.ComicIDs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	html, err := s.fetcher.GetSearchPage(r.Context(), query, page)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetching search page: "+err.Error())
		return
	}
	results, err := s.extractor.ExtractSearchResults(html)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "parsing search page: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}
