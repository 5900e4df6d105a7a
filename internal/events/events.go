// Package events defines the progress event kinds emitted by the download
// core and a thread-safe fan-out bus to deliver them to external
// observers (the CLI renderer, the WebSocket hub, a JSON-lines log sink).
//
// Each subscriber gets its own buffered channel, and a full channel simply
// drops the event rather than blocking the publisher: delivery is
// best-effort fire-and-forget.
package events

import (
	"sync"
	"time"

	"github.com/lanyeeee/manhuagui-downloader/internal/model"
)

// Kind identifies the shape of an Event's payload.
type Kind string

const (
	KindSpeed                  Kind = "speed"
	KindSleeping               Kind = "sleeping"
	KindDownloadTask           Kind = "downloadTask"
	KindUpdateDownloadedComics Kind = "updateDownloadedComics"
	KindLog                    Kind = "log"
	KindExportCbz              Kind = "exportCbz"
	KindExportPdf              Kind = "exportPdf"
)

// DownloadTaskState mirrors the DownloadTask lifecycle state machine.
type DownloadTaskState string

const (
	StatePending     DownloadTaskState = "pending"
	StateDownloading DownloadTaskState = "downloading"
	StatePaused      DownloadTaskState = "paused"
	StateCancelled   DownloadTaskState = "cancelled"
	StateCompleted   DownloadTaskState = "completed"
	StateFailed      DownloadTaskState = "failed"
)

// Speed is emitted once per second by the rate reporter.
type Speed struct {
	SpeedMBs string `json:"speed"`
}

// Sleeping is emitted once per second during a chapter's post-download
// cool-down.
type Sleeping struct {
	ChapterID    int64 `json:"chapterId"`
	RemainingSec int64 `json:"remainingSec"`
}

// DownloadTaskEvent is emitted on every state change and on each
// successful image write. Its terminal states (Completed/Failed/Cancelled)
// are the authoritative completion signal.
type DownloadTaskEvent struct {
	State              DownloadTaskState `json:"state"`
	Chapter            model.ChapterInfo `json:"chapter"`
	DownloadedImgCount uint32            `json:"downloadedImgCount"`
	TotalImgCount      uint32            `json:"totalImgCount"`
	Err                string            `json:"error,omitempty"`
}

// UpdateDownloadedComicsPhase names a phase of bulk-refresh orchestration.
type UpdateDownloadedComicsPhase string

const (
	PhaseGettingComics      UpdateDownloadedComicsPhase = "gettingComics"
	PhaseComicGot           UpdateDownloadedComicsPhase = "comicGot"
	PhaseDownloadTaskCreated UpdateDownloadedComicsPhase = "downloadTaskCreated"
)

// UpdateDownloadedComics is emitted during RefreshLibrary.
type UpdateDownloadedComics struct {
	Phase   UpdateDownloadedComicsPhase `json:"phase"`
	Current int64                      `json:"current,omitempty"`
	Total   int64                      `json:"total,omitempty"`
}

// Log is a structured log tap: one record per log line, with every cause
// in an error chain rendered as its own field.
type Log struct {
	Timestamp string            `json:"timestamp"`
	Level     model.LogLevel    `json:"level"`
	Target    string            `json:"target"`
	Filename  string            `json:"filename"`
	Line      int               `json:"line"`
	Fields    map[string]string `json:"fields"`
}

// ExportCbzPhase names a phase of CBZ export.
type ExportCbzPhase string

const (
	ExportCbzStart    ExportCbzPhase = "start"
	ExportCbzProgress ExportCbzPhase = "progress"
	ExportCbzEnd      ExportCbzPhase = "end"
)

// ExportCbz is emitted during CBZ packaging.
type ExportCbz struct {
	Phase      ExportCbzPhase `json:"phase"`
	UUID       string         `json:"uuid"`
	ComicTitle string         `json:"comicTitle,omitempty"`
	Current    int            `json:"current,omitempty"`
	Total      int            `json:"total,omitempty"`
}

// ExportPdfPhase names a phase of PDF export/merge.
type ExportPdfPhase string

const (
	ExportPdfCreateStart    ExportPdfPhase = "createStart"
	ExportPdfCreateProgress ExportPdfPhase = "createProgress"
	ExportPdfCreateEnd      ExportPdfPhase = "createEnd"
	ExportPdfMergeStart     ExportPdfPhase = "mergeStart"
	ExportPdfMergeProgress  ExportPdfPhase = "mergeProgress"
	ExportPdfMergeEnd       ExportPdfPhase = "mergeEnd"
)

// ExportPdf is emitted during PDF packaging/merging.
type ExportPdf struct {
	Phase      ExportPdfPhase `json:"phase"`
	UUID       string         `json:"uuid"`
	ComicTitle string         `json:"comicTitle,omitempty"`
	Current    int            `json:"current,omitempty"`
	Total      int            `json:"total,omitempty"`
}

// Event is an envelope carrying one Kind's worth of payload.
type Event struct {
	Kind Kind `json:"kind"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// Bus fans out Events to subscribers. Zero value is unusable; use New.
type Bus struct {
	mu        sync.RWMutex
	listeners map[int]chan Event
	nextID    int
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{listeners: make(map[int]chan Event)}
}

// Subscribe registers a new listener with the given buffer size and
// returns it along with an unsubscribe function.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.listeners[id] = ch
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.listeners[id]; ok {
			delete(b.listeners, id)
			close(existing)
		}
	}
	return ch, unsub
}

// Emit publishes an event to every current subscriber. A subscriber whose
// buffer is full has the event silently dropped for it; this must never
// affect correctness, since Emit is a progress tap, not a command channel.
func (b *Bus) Emit(kind Kind, data any) {
	ev := Event{Kind: kind, Time: time.Now().UTC(), Data: data}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}
