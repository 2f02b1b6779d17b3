package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/shell/config"
)

const (
	logMsgRequestFailed = "request failed"
	logMsgWriteFailed   = "failed to write response"
	logAttrError        = "error"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := jsonAPI.Marshal(body)
	if err != nil {
		s.logger.ErrorContext(r.Context(), logMsgWriteFailed, logAttrError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	s.writeBody(w, r, status, data)
}

// writeJSONWithETag answers 304 when If-None-Match matches the hash of the encoded body.
func (s *Server) writeJSONWithETag(w http.ResponseWriter, r *http.Request, body any) {
	data, err := jsonAPI.Marshal(body)
	if err != nil {
		s.logger.ErrorContext(r.Context(), logMsgWriteFailed, logAttrError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(data))
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	s.writeBody(w, r, http.StatusOK, data)
}

func (s *Server) writeBody(w http.ResponseWriter, r *http.Request, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.logger.WarnContext(r.Context(), logMsgWriteFailed, logAttrError, err)
	}
}

func (s *Server) writeData(w http.ResponseWriter, r *http.Request, data any) {
	s.writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: data})
}

// writeError maps err to a status code and writes the error envelope with a redacted message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := errorMessage(err)

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), logMsgRequestFailed, logAttrError, message, logAttrStatus, status)
	}

	s.writeJSON(w, r, status, envelope{Success: false, Error: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, fakersql.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, fakersql.ErrPoolExhausted),
		errors.Is(err, fakersql.ErrPoolNotInitialized),
		errors.Is(err, fakersql.ErrAcquireCanceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage returns the client-facing text. Validation errors are shown as they are,
// everything else has connection secrets removed.
func errorMessage(err error) string {
	var validationErr *fakersql.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}

	return config.RedactDSN(err.Error())
}
