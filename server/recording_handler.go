package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strconv"
	"time"

	"InterviewConv/cache"
	"InterviewConv/core/converter"
	"InterviewConv/logger"
	"InterviewConv/model"
	"InterviewConv/repository"

	"github.com/gorilla/mux"
)

// Enqueuer accepts conversion jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job cache.ConversionJob) error
}

// Presigner produces download links for stored recordings.
type Presigner interface {
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// RecordingHandler 录制转换 HTTP 处理器
type RecordingHandler struct {
	recordings repository.RecordingRepository
	logs       repository.RecordingLogRepository
	queue      Enqueuer
	presigner  Presigner // optional
}

// NewRecordingHandler 创建处理器
func NewRecordingHandler(recordings repository.RecordingRepository, logs repository.RecordingLogRepository, queue Enqueuer, presigner Presigner) *RecordingHandler {
	return &RecordingHandler{recordings: recordings, logs: logs, queue: queue, presigner: presigner}
}

// ReconvertRequest 重新转换请求
type ReconvertRequest struct {
	LeftGain  *float64 `json:"leftGain"`
	RightGain *float64 `json:"rightGain"`
}

// RecordingResponse 录制状态响应
type RecordingResponse struct {
	Recording *model.Recording `json:"recording"`
	// Finished: PROCESSED or ERROR, no run will touch the status again.
	Finished bool `json:"finished"`
	// Indeterminate: status is CONVERTING but the last run stopped without
	// usable video. The recording may be enqueued again.
	Indeterminate bool   `json:"indeterminate"`
	DownloadURL   string `json:"downloadUrl,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// loadRecording parses {id} and loads the recording, writing the error
// response itself when it returns nil.
func (h *RecordingHandler) loadRecording(w http.ResponseWriter, r *http.Request) *model.Recording {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid recording id")
		return nil
	}
	rec, err := h.recordings.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("failed to load recording", logger.Int64("recordingId", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load recording")
		return nil
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return nil
	}
	return rec
}

// indeterminate reports whether a CONVERTING recording was left there by an
// aborted run rather than by one still in progress. The aborted run's log is
// saved after its CONVERTING write; a newer run bumps UpdatedAt past it.
func (h *RecordingHandler) indeterminate(ctx context.Context, rec *model.Recording) bool {
	if rec.Status != model.RecordingStatusConverting {
		return false
	}
	logs, err := h.logs.ListByRecording(ctx, rec.ID)
	if err != nil {
		logger.Warn("failed to load logs", logger.Int64("recordingId", rec.ID), logger.ErrorField(err))
		return false
	}
	if len(logs) == 0 {
		return false
	}
	last := logs[len(logs)-1]
	return last.Process == converter.NoValidPodsProcess && !last.CreatedAt.Before(rec.UpdatedAt)
}

// busy: a run is in progress, enqueueing again would overlap it.
func (h *RecordingHandler) busy(ctx context.Context, rec *model.Recording) bool {
	return rec.Status == model.RecordingStatusConverting && !h.indeterminate(ctx, rec)
}

func (h *RecordingHandler) enqueue(w http.ResponseWriter, r *http.Request, job cache.ConversionJob) {
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		logger.Error("failed to enqueue conversion", logger.Int64("recordingId", job.RecordingID), logger.ErrorField(err))
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue conversion")
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// ConvertHandler POST /api/recordings/{id}/convert
func (h *RecordingHandler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	rec := h.loadRecording(w, r)
	if rec == nil {
		return
	}
	if h.busy(r.Context(), rec) {
		writeError(w, http.StatusConflict, "recording is already converting")
		return
	}
	h.enqueue(w, r, cache.ConversionJob{RecordingID: rec.ID})
}

// ReconvertHandler POST /api/recordings/{id}/reconvert
func (h *RecordingHandler) ReconvertHandler(w http.ResponseWriter, r *http.Request) {
	rec := h.loadRecording(w, r)
	if rec == nil {
		return
	}
	var req ReconvertRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	job := cache.ConversionJob{RecordingID: rec.ID, Reconvert: true, LeftGain: 1, RightGain: 1}
	if req.LeftGain != nil {
		job.LeftGain = *req.LeftGain
	}
	if req.RightGain != nil {
		job.RightGain = *req.RightGain
	}
	if job.LeftGain < 0 || job.RightGain < 0 {
		writeError(w, http.StatusBadRequest, "gain must not be negative")
		return
	}
	if h.busy(r.Context(), rec) {
		writeError(w, http.StatusConflict, "recording is already converting")
		return
	}
	h.enqueue(w, r, job)
}

// GetRecordingHandler GET /api/recordings/{id}
func (h *RecordingHandler) GetRecordingHandler(w http.ResponseWriter, r *http.Request) {
	rec := h.loadRecording(w, r)
	if rec == nil {
		return
	}
	resp := RecordingResponse{
		Recording:     rec,
		Finished:      rec.Status.Terminal(),
		Indeterminate: h.indeterminate(r.Context(), rec),
	}
	if h.presigner != nil && rec.Status == model.RecordingStatusProcessed && rec.Hash != "" {
		object := path.Join("recordings", rec.Hash, rec.Hash+".mp4")
		if u, err := h.presigner.PresignedURL(r.Context(), object, time.Hour); err == nil {
			resp.DownloadURL = u
		} else {
			logger.Warn("failed to presign recording", logger.Int64("recordingId", rec.ID), logger.ErrorField(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLogsHandler GET /api/recordings/{id}/logs
func (h *RecordingHandler) GetLogsHandler(w http.ResponseWriter, r *http.Request) {
	rec := h.loadRecording(w, r)
	if rec == nil {
		return
	}
	logs, err := h.logs.ListByRecording(r.Context(), rec.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Routes registers the recording endpoints.
func (h *RecordingHandler) Routes(router *mux.Router) {
	router.HandleFunc("/api/recordings/{id}", h.GetRecordingHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/recordings/{id}/logs", h.GetLogsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/recordings/{id}/convert", h.ConvertHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/recordings/{id}/reconvert", h.ReconvertHandler).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}
