package handlers

import (
	"net/http"
	"time"

	appmw "anoto/middleware"

	"go.uber.org/zap"
)

type sessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession issues an anonymous session. The token is returned in the
// body for API clients and set as a cookie for browsers.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, token, exp, err := h.sessions.Issue()
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		http.Error(w, "Token generation failed", http.StatusInternalServerError)
		return
	}
	h.sessions.SetCookie(w, r, token, exp)
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, SessionID: id, ExpiresAt: exp})
}

// ensureSession gives page visitors a session cookie on first visit and
// returns the request carrying it.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) *http.Request {
	if _, ok := appmw.SessionFrom(r.Context()); ok || h.store == nil {
		return r
	}
	id, token, exp, err := h.sessions.Issue()
	if err != nil {
		h.logger.Warn("could not issue session", zap.Error(err))
		return r
	}
	h.sessions.SetCookie(w, r, token, exp)
	return r.WithContext(appmw.WithSession(r.Context(), id))
}
