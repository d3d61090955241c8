package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"anoto/db"
	appmw "anoto/middleware"
	"anoto/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func historyLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	return min(n, maxHistoryLimit)
}

// sessionStore returns the caller's session id, answering 503 when history
// is not kept.
func (h *Handler) sessionStore(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.store == nil {
		http.Error(w, "History is not enabled", http.StatusServiceUnavailable)
		return "", false
	}
	id, ok := appmw.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return id, true
}

func (h *Handler) GetAssessments(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionStore(w, r)
	if !ok {
		return
	}
	records, err := h.store.ListAssessments(r.Context(), sessionID, historyLimit(r))
	if err != nil {
		h.logger.Error("list assessments", zap.Error(err))
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.AssessmentRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) GetJournals(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionStore(w, r)
	if !ok {
		return
	}
	records, err := h.store.ListJournals(r.Context(), sessionID, historyLimit(r))
	if err != nil {
		h.logger.Error("list journals", zap.Error(err))
		http.Error(w, "DB error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.JournalRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionStore(w, r)
	if !ok {
		return
	}
	err := h.store.DeleteJournal(r.Context(), sessionID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "Journal not found", http.StatusNotFound)
	case err != nil:
		h.logger.Error("delete journal", zap.Error(err))
		http.Error(w, "DB error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, map[string]int{"deleted": 1})
	}
}
