// Package httpapi exposes the job submission and status surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/recaplabs/recapd/internal/job"
	"github.com/recaplabs/recapd/internal/joblog"
)

// Pipeline is the slice of the controller the API needs.
type Pipeline interface {
	Submit(data []byte, filename string) (job.Job, error)
	Status(id string) (job.Job, error)
}

// HistorySource serves the persisted audit trail, when enabled.
type HistorySource interface {
	History(ctx context.Context, jobID string, limit int) ([]joblog.Entry, error)
}

type API struct {
	pipeline       Pipeline
	history        HistorySource
	maxUploadBytes int64
	logger         *slog.Logger
}

func New(pipeline Pipeline, history HistorySource, maxUploadBytes int64, logger *slog.Logger) *API {
	return &API{
		pipeline:       pipeline,
		history:        history,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Register mounts the API routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/jobs", a.handleSubmit)
	mux.HandleFunc("GET /v1/jobs/{id}", a.handleStatus)
	mux.HandleFunc("GET /v1/jobs/{id}/history", a.handleHistory)
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes+1)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, job.CodeValidation, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, job.CodeValidation, "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, job.CodeValidation, "read upload: "+err.Error())
		return
	}

	submitted, err := a.pipeline.Submit(data, header.Filename)
	if err != nil {
		a.writeFailure(w, err)
		return
	}

	a.logger.Info("job accepted",
		slog.String("job_id", submitted.ID),
		slog.String("filename", submitted.Filename),
		slog.Int("bytes", len(data)))
	writeJSON(w, http.StatusAccepted, submitted)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := a.pipeline.Status(r.PathValue("id"))
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusNotFound, job.CodeValidation, "job history is not enabled")
		return
	}
	entries, err := a.history.History(r.Context(), r.PathValue("id"), 100)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	if entries == nil {
		entries = []joblog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) writeFailure(w http.ResponseWriter, err error) {
	code := job.Classify(err)
	status := statusFor(code, err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", slog.String("code", string(code)), slog.String("error", err.Error()))
	}
	writeError(w, status, code, err.Error())
}

func statusFor(code job.Code, err error) int {
	if errors.Is(err, job.ErrNotFound) {
		return http.StatusNotFound
	}
	switch code {
	case job.CodeValidation:
		return http.StatusBadRequest
	case job.CodeResourceBusy, job.CodeSummaryUnavailable:
		return http.StatusServiceUnavailable
	case job.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    job.Code `json:"code"`
	Message string   `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code job.Code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
