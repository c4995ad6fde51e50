// Package handlers provides the HTTP handlers of the JSON API
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"music-downloader/internal/artifact"
	"music-downloader/internal/downloader"
	"music-downloader/internal/maintenance"
	"music-downloader/internal/quota"
	"music-downloader/internal/resolver"
	"music-downloader/pkg/models"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock_handlers.go -package=mocks

// Scheduler accepts URL batches
type Scheduler interface {
	CheckURLs(ctx context.Context, urls []string, password string) (downloader.CheckResult, error)
	Submit(ctx context.Context, sessionID string, urls []string, password string) ([]models.DownloadJob, error)
}

// StatusSource returns the latest job per URL of a session
type StatusSource interface {
	SessionSnapshot(sessionID string) map[string]models.DownloadJob
}

// StatsSource computes the stats snapshot of a session
type StatsSource interface {
	Snapshot(sessionID string) models.Stats
}

// ArtifactSource serves stored artifacts
type ArtifactSource interface {
	Fetch(ctx context.Context, downloadID string) (*artifact.Content, error)
	FetchAll(ctx context.Context, downloadIDs []string) (*artifact.Content, error)
	SessionDownloads(sessionID string) ([]string, error)
}

// Pusher attaches websocket clients to a session
type Pusher interface {
	ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) error
	ClientCount() int
}

// SessionCounter reports how many sessions are live
type SessionCounter interface {
	Len() int
}

// TaskLister reports the state of the housekeeping tasks
type TaskLister interface {
	Tasks() []maintenance.TaskInfo
}

// Dependencies are the collaborators the handlers serve from
type Dependencies struct {
	Scheduler        Scheduler
	Status           StatusSource
	Stats            StatsSource
	Artifacts        ArtifactSource
	Pusher           Pusher
	Sessions         SessionCounter
	Maintenance      TaskLister
	MaxFreeDownloads int
}

// Handlers contains all HTTP handlers and their dependencies
type Handlers struct {
	scheduler        Scheduler
	status           StatusSource
	stats            StatsSource
	artifacts        ArtifactSource
	pusher           Pusher
	sessions         SessionCounter
	maintenance      TaskLister
	maxFreeDownloads int
	logger           *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		scheduler:        deps.Scheduler,
		status:           deps.Status,
		stats:            deps.Stats,
		artifacts:        deps.Artifacts,
		pusher:           deps.Pusher,
		sessions:         deps.Sessions,
		maintenance:      deps.Maintenance,
		maxFreeDownloads: deps.MaxFreeDownloads,
		logger:           slog.Default(),
	}
}

type urlsRequest struct {
	URLs     []string `json:"urls"`
	Password string   `json:"password"`
}

type errorResponse struct {
	Detail        string `json:"detail"`
	NeedsPassword bool   `json:"needs_password,omitempty"`
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Sessions    int                    `json:"sessions"`
	PushClients int                    `json:"push_clients"`
	Maintenance []maintenance.TaskInfo `json:"maintenance"`
}

type submitResponse struct {
	Message string               `json:"message"`
	Jobs    []models.DownloadJob `json:"jobs"`
}

// StatusEntry is the per-URL view returned by the status endpoint
type StatusEntry struct {
	Status         models.DownloadStatus `json:"status"`
	Progress       float64               `json:"progress"`
	CompletedSongs int                   `json:"completed_songs"`
	TotalSongs     int                   `json:"total_songs"`
	Error          string                `json:"error,omitempty"`
	DownloadID     string                `json:"download_id,omitempty"`
}

// Session returns the id of the caller's session
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"session_id": SessionID(r.Context())})
}

// CheckURLs counts the songs behind a batch of URLs without downloading anything
func (h *Handlers) CheckURLs(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLs(w, r)
	if !ok {
		return
	}

	result, err := h.scheduler.CheckURLs(r.Context(), req.URLs, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, downloader.ErrNoValidURLs):
			h.writeError(w, http.StatusBadRequest, "No URLs provided")
		case isResolutionError(err):
			h.writeError(w, http.StatusBadRequest, resolutionDetail(err))
		default:
			h.logger.Error("Failed to check URLs", "error", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to check URLs")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// SubmitDownload starts one job per submitted URL
func (h *Handlers) SubmitDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeURLs(w, r)
	if !ok {
		return
	}

	sessionID := SessionID(r.Context())
	jobs, err := h.scheduler.Submit(r.Context(), sessionID, req.URLs, req.Password)
	if err != nil {
		var unauthorized *quota.UnauthorizedError
		switch {
		case errors.As(err, &unauthorized):
			h.writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: unauthorized.Error(), NeedsPassword: true})
		case errors.Is(err, downloader.ErrNoValidURLs):
			detail := "No valid URLs provided"
			if len(jobs) > 0 && jobs[0].Error != "" {
				detail = fmt.Sprintf("%s: %s", detail, jobs[0].Error)
			}
			h.writeError(w, http.StatusBadRequest, detail)
		case errors.Is(err, downloader.ErrNotRunning):
			h.writeError(w, http.StatusServiceUnavailable, "Server is shutting down")
		default:
			h.logger.Error("Failed to submit downloads", "session_id", sessionID, "error", err)
			h.writeError(w, http.StatusInternalServerError, "Failed to start downloads")
		}
		return
	}

	started := 0
	for _, job := range jobs {
		if job.Status != models.StatusFailed {
			started++
		}
	}
	message := fmt.Sprintf("Started %d download(s)", started)
	if skipped := len(jobs) - started; skipped > 0 {
		message += fmt.Sprintf(", %d URL(s) could not be resolved", skipped)
	}

	h.writeJSON(w, http.StatusAccepted, submitResponse{Message: message, Jobs: jobs})
}

// Status returns the latest job of every URL the session submitted
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	snapshot := h.status.SessionSnapshot(SessionID(r.Context()))

	response := make(map[string]StatusEntry, len(snapshot))
	for url, job := range snapshot {
		response[url] = StatusEntry{
			Status:         job.Status,
			Progress:       job.Progress,
			CompletedSongs: job.CompletedSongs,
			TotalSongs:     job.TotalSongs,
			Error:          job.Error,
			DownloadID:     job.DownloadID,
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// Stats returns the counters shown to the session
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.stats.Snapshot(SessionID(r.Context())))
}

// Config returns the public configuration
func (h *Handlers) Config(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]int{"max_free_downloads": h.maxFreeDownloads})
}

// DownloadFile streams the artifact of one completed job
func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	downloadID := r.PathValue("download_id")

	content, err := h.artifacts.Fetch(r.Context(), downloadID)
	if err != nil {
		h.artifactError(w, err, "download_id", downloadID)
		return
	}
	h.serveContent(w, r, content)
}

// DownloadAll streams every completed artifact of the session as one archive
func (h *Handlers) DownloadAll(w http.ResponseWriter, r *http.Request) {
	sessionID := SessionID(r.Context())

	ids, err := h.artifacts.SessionDownloads(sessionID)
	if err != nil {
		h.logger.Error("Failed to list session downloads", "session_id", sessionID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list downloads")
		return
	}
	if len(ids) == 0 {
		h.writeError(w, http.StatusNotFound, "No completed downloads")
		return
	}

	content, err := h.artifacts.FetchAll(r.Context(), ids)
	if err != nil {
		h.artifactError(w, err, "session_id", sessionID)
		return
	}
	h.serveContent(w, r, content)
}

// Push upgrades the connection to a websocket carrying job updates
func (h *Handlers) Push(w http.ResponseWriter, r *http.Request) {
	if err := h.pusher.ServeWS(w, r, SessionID(r.Context())); err != nil {
		// the upgrader has already answered the request
		h.logger.Debug("Websocket upgrade failed", "error", err)
	}
}

// Health reports that the process is serving
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Sessions:    h.sessions.Len(),
		PushClients: h.pusher.ClientCount(),
		Maintenance: h.maintenance.Tasks(),
	}
	for _, task := range resp.Maintenance {
		if task.LastErr != "" {
			resp.Status = "degraded"
			break
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) decodeURLs(w http.ResponseWriter, r *http.Request) (urlsRequest, bool) {
	var req urlsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		h.logger.Debug("Failed to decode request", "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	return req, true
}

func (h *Handlers) artifactError(w http.ResponseWriter, err error, key, value string) {
	if errors.Is(err, artifact.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "File not found")
		return
	}
	h.logger.Error("Failed to open artifact", key, value, "error", err)
	h.writeError(w, http.StatusInternalServerError, "Failed to read file")
}

func (h *Handlers) serveContent(w http.ResponseWriter, r *http.Request, content *artifact.Content) {
	defer content.Reader.Close()

	w.Header().Set("Content-Type", contentTypeFor(content.Name))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": content.Name}))
	if content.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}
	if !content.ModTime.IsZero() {
		w.Header().Set("Last-Modified", content.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, content.Reader); err != nil {
		h.logger.Warn("Artifact transfer interrupted", "name", content.Name, "error", err)
	}
}

// audioTypes covers the formats providers produce; the system mime table often lacks them
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".opus": "audio/ogg",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
	".zip":  "application/zip",
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, errorResponse{Detail: detail})
}

func isResolutionError(err error) bool {
	_, ok := resolver.AsResolutionError(err)
	return ok
}

func resolutionDetail(err error) string {
	resErr, _ := resolver.AsResolutionError(err)
	return fmt.Sprintf("Could not resolve %s: %s", resErr.URL, resErr.Reason)
}
