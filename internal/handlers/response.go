// internal/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jason-s-yu/fizzbuzz/internal/apperr"
	"github.com/sirupsen/logrus"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Errors  []string    `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Warn("failed to write response")
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, APIResponse{Data: data, Message: "Success", Errors: []string{}})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Message: "An error occurred", Errors: []string{msg}})
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation, apperr.KindInvalidOperation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into the error envelope. Unexpected errors are
// logged and, outside development, replaced by a generic message.
func (a *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Msg
	}

	entry := a.log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"kind":   kind.String(),
	})
	switch kind {
	case apperr.KindTimeout:
		msg = "Request timed out"
		entry.WithError(err).Warn("request cancelled")
	case apperr.KindUnexpected:
		entry.WithError(err).Error("Unhandled error occurred")
		if !a.dev {
			msg = "An unexpected error occurred"
		}
	default:
		entry.Debug(msg)
	}

	writeErrorMessage(w, status, msg)
}
