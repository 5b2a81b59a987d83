// internal/handlers/sessions.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/jason-s-yu/fizzbuzz/internal/auth"
	"github.com/jason-s-yu/fizzbuzz/internal/models"
	"github.com/sirupsen/logrus"
)

// submitResponse is the session state after a submission, plus the verdict on it.
type submitResponse struct {
	models.SessionState
	Answer *models.AnswerResult `json:"answer"`
}

// StartSessionHandler handles POST /api/sessions/start. The response carries a
// play token, which is also set as an HttpOnly cookie.
func (a *APIServer) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	resp, err := a.svc.StartSession(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	token, err := auth.CreatePlayToken(resp.SessionID)
	if err != nil {
		if a.playTokenRequired {
			a.writeError(w, r, err)
			return
		}
		a.log.WithError(err).WithField("session_id", resp.SessionID).Warn("could not issue play token")
	} else {
		resp.Token = token
		http.SetCookie(w, &http.Cookie{
			Name:     playTokenCookie,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
	writeSuccess(w, http.StatusOK, resp)
}

// GetSessionHandler handles GET /api/sessions/{id}.
func (a *APIServer) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Session")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp, err := a.svc.GetSession(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

// SessionStateHandler handles GET /api/sessions/{id}/question. Reading the
// state may finalize the session and always draws a fresh number.
func (a *APIServer) SessionStateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Session")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	state, err := a.svc.ObserveAndFinalize(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, state)
}

// SubmitAnswerHandler handles POST /api/sessions/{id}/answer.
func (a *APIServer) SubmitAnswerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Session")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req models.SubmitAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.SessionID == uuid.Nil {
		req.SessionID = id
	}
	if req.SessionID != id {
		a.writeError(w, r, apperr.Validation("Session ID mismatch"))
		return
	}
	if !a.authorizePlay(w, r, id) {
		return
	}

	result, err := a.svc.SubmitAnswer(r.Context(), id, req.Number, req.Answer)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	state, err := a.svc.ObserveAndFinalize(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, submitResponse{SessionState: *state, Answer: result})
}

// EndSessionHandler handles POST /api/sessions/{id}/end.
func (a *APIServer) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Session")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !a.authorizePlay(w, r, id) {
		return
	}
	a.writeResults(w, r, id)
}

// SessionResultsHandler handles GET /api/sessions/{id}/results. Fetching the
// results closes the session.
func (a *APIServer) SessionResultsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Session")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeResults(w, r, id)
}

func (a *APIServer) writeResults(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	res, err := a.svc.EndSession(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// authorizePlay checks the play token when tokens are required. It writes the
// rejection itself and reports whether the request may continue.
func (a *APIServer) authorizePlay(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) bool {
	if !a.playTokenRequired {
		return true
	}
	token := extractPlayToken(r)
	if token == "" {
		writeErrorMessage(w, http.StatusUnauthorized, "missing play token")
		return false
	}
	tokenSession, err := auth.AuthenticatePlayToken(token)
	if err != nil || tokenSession != sessionID {
		a.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err,
		}).Debug("rejected play token")
		writeErrorMessage(w, http.StatusForbidden, "invalid play token")
		return false
	}
	return true
}
