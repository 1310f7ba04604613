package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hmcts/wa-case-event-handler-sub000/internal/domain/message"
	"github.com/hmcts/wa-case-event-handler-sub000/internal/ingest"
)

// Handlers exposes the synchronous fallback ingestion channel and the
// operator query/replay surface. Events accepted here enter the same store
// and pipeline as Kafka deliveries.
type Handlers struct {
	repo message.Repository
}

func NewHandlers(repo message.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// PostEvent ingests one case event over HTTP. A malformed payload is still
// persisted (unprocessable) for audit and answered with 422.
func (h *Handlers) PostEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read request body", http.StatusBadRequest)
		return
	}
	if len(raw) == 0 {
		http.Error(w, "empty request body", http.StatusBadRequest)
		return
	}

	messageID := r.Header.Get("X-Message-Id")
	if messageID == "" {
		messageID = uuid.New().String()
	}

	m, parseErr := ingest.FromPayload(raw, messageID, false, nil, time.Now())
	if err := h.repo.Save(r.Context(), m); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if parseErr != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"message_id": m.MessageID,
			"state":      string(m.State),
			"error":      parseErr.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"message_id": m.MessageID,
		"state":      string(m.State),
	})
}

func (h *Handlers) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing message id", http.StatusBadRequest)
		return
	}

	rows, err := h.repo.GetByMessageID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	state := message.State(r.URL.Query().Get("state"))
	switch state {
	case message.StateNew, message.StateReady, message.StateProcessed, message.StateUnprocessable:
	default:
		http.Error(w, "unknown or missing state parameter", http.StatusBadRequest)
		return
	}

	rows, err := h.repo.ListByState(r.Context(), state)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if rows == nil {
		rows = []*message.StoredMessage{}
	}
	json.NewEncoder(w).Encode(rows)
}

// ReplayMessage puts an unprocessable message back into new via the explicit
// update path, preserving its sequence and raw content. Operators use it
// after fixing whatever made the message fail.
func (h *Handlers) ReplayMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing message id", http.StatusBadRequest)
		return
	}

	rows, err := h.repo.GetByMessageID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	var replayed int
	for _, row := range rows {
		if row.State != message.StateUnprocessable {
			continue
		}
		row.State = message.StateNew
		row.HoldUntil = nil
		if err := h.repo.Save(r.Context(), row); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		replayed++
	}
	if replayed == 0 {
		http.Error(w, "message is not unprocessable", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "replayed", "rows": replayed})
}
