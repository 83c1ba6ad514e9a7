package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/book-expert/tts-batch-service/internal/archive"
	"github.com/book-expert/tts-batch-service/internal/batch"
	"github.com/book-expert/tts-batch-service/internal/store"
	"github.com/go-chi/chi/v5"
)

// Content types and response messages.
const (
	contentTypeJSON = "application/json"
	contentTypeMPEG = "audio/mpeg"
	contentTypeZIP  = "application/zip"

	msgGenerated       = "speech generated successfully"
	msgTextRequired    = "text content is required"
	msgTextEmpty       = "text content cannot be empty"
	msgInvalidBody     = "request body must be a JSON object"
	msgAudioNotFound   = "audio file not found or inaccessible"
	msgBatchNotFound   = "no audio files found for this batch"
	msgArchiveFailed   = "failed to create archive"
	msgInternalFailure = "server error"

	maxRequestBytes = 10 << 20
)

type ttsRequest struct {
	Text *string `json:"text"`
}

type ttsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*batch.Result
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type badRequestResponse struct {
	Error string `json:"error"`
}

func (rt *Router) textToSpeech(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest

	decodeErr := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req)
	if decodeErr != nil {
		writeJSON(w, http.StatusBadRequest, badRequestResponse{Error: msgInvalidBody})

		return
	}

	if req.Text == nil {
		writeJSON(w, http.StatusBadRequest, badRequestResponse{Error: msgTextRequired})

		return
	}

	result, err := rt.batches.Process(context.WithoutCancel(r.Context()), *req.Text)
	if err != nil {
		rt.writeBatchError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, ttsResponse{Success: true, Message: msgGenerated, Result: result})
}

func (rt *Router) writeBatchError(w http.ResponseWriter, err error) {
	var lineErr *batch.LineError

	switch {
	case errors.Is(err, batch.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, badRequestResponse{Error: msgTextEmpty})
	case errors.As(err, &lineErr):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Success: false, Error: lineErr.Error()})
	default:
		rt.log.Error("Unexpected batch failure: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Success: false,
			Error:   msgInternalFailure + ": " + err.Error(),
		})
	}
}

func (rt *Router) getAudio(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	if !store.IsAudioFile(name) {
		writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Error: msgAudioNotFound})

		return
	}

	file, err := rt.store.Open(name)
	if err != nil {
		rt.log.Warn("Audio download of %q failed: %v", name, err)
		writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Error: msgAudioNotFound})

		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentTypeMPEG)
	w.Header().Set("Content-Disposition", attachment(name))
	w.WriteHeader(http.StatusOK)

	_, copyErr := io.Copy(w, file)
	if copyErr != nil {
		rt.log.Warn("Streaming %s was interrupted: %v", name, copyErr)
	}
}

func (rt *Router) downloadAll(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	if !batch.ValidID(batchID) {
		writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Error: msgBatchNotFound})

		return
	}

	data, err := rt.archives.Build(batchID)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Error: msgBatchNotFound})

			return
		}

		rt.log.Error("Archive for batch %s failed: %v", batchID, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Success: false,
			Error:   msgArchiveFailed + ": " + err.Error(),
		})

		return
	}

	w.Header().Set("Content-Type", contentTypeZIP)
	w.Header().Set("Content-Disposition", attachment(archive.Name(batchID)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	_, writeErr := w.Write(data)
	if writeErr != nil {
		rt.log.Warn("Sending archive for batch %s was interrupted: %v", batchID, writeErr)
	}
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) backendHealth(w http.ResponseWriter, r *http.Request) {
	if rt.backend == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})

		return
	}

	err := rt.backend.HealthCheck(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
