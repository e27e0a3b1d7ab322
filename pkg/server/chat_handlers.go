package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emotibot/emotibot/pkg/models"
)

var errScorerNotConfigured = errors.New("emotion scorer not configured")

// ChatHandler runs one conversation turn. An empty or unknown session_id starts
// a new session; the reply carries the session id to continue with.
func ChatHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ChatRequest
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		session := appState.Sessions.GetOrCreate(req.SessionID)
		appState.Metrics.SetActiveSessions(appState.Sessions.Len())

		reply := appState.Assistant.Respond(r.Context(), session, req.Message)

		if err := encodeJSON(w, reply); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

func ScoreEmotionsHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if appState.Scorer == nil {
			renderError(w, errScorerNotConfigured, http.StatusServiceUnavailable)
			return
		}
		var req models.EmotionRequest
		if err := decodeJSON(r, &req); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		if err := encodeJSON(w, appState.Scorer.Score(req.Text)); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

func GetSessionHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")

		session, err := appState.Sessions.Get(sessionID)
		if err != nil {
			renderError(w, err, http.StatusNotFound)
			return
		}

		if err := encodeJSON(w, session.Snapshot()); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

func DeleteSessionHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")

		if err := appState.Sessions.Delete(sessionID); err != nil {
			renderError(w, err, http.StatusNotFound)
			return
		}
		appState.Metrics.SetActiveSessions(appState.Sessions.Len())
		_, _ = w.Write([]byte(OKResponse))
	}
}
