package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/session"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Kind    string   `json:"kind"`
	Error   string   `json:"error"`
	Columns []string `json:"columns,omitempty"`
	Level   string   `json:"level,omitempty"`
	Options []string `json:"options,omitempty"`
}

// badRequest marks malformed client input.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var (
		mc  *dataset.MissingColumnError
		se  *analysis.SelectionError
		fe  *dataset.FileError
		mb  *http.MaxBytesError
		bad badRequest
	)
	switch {
	case errors.As(err, &mc):
		body.Kind, body.Columns = "missing_column", mc.Columns
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &se):
		body.Kind, body.Level, body.Options = "selection", se.Level.String(), se.Options
		return http.StatusBadRequest, body
	case errors.Is(err, analysis.ErrLevelNotAllowed):
		body.Kind = "level_not_allowed"
		return http.StatusBadRequest, body
	case errors.Is(err, analysis.ErrEmptyKeyword):
		body.Kind = "empty_keyword"
		return http.StatusBadRequest, body
	case errors.As(err, &fe):
		body.Kind = "file"
		return http.StatusBadRequest, body
	case errors.Is(err, session.ErrNoData):
		body.Kind = "no_data"
		return http.StatusConflict, body
	case errors.As(err, &mb):
		body.Kind = "too_large"
		body.Error = fmt.Sprintf("upload exceeds %d bytes", mb.Limit)
		return http.StatusRequestEntityTooLarge, body
	case errors.As(err, &bad):
		body.Kind = "bad_request"
		return http.StatusBadRequest, body
	}
	body.Kind = "internal"
	return http.StatusInternalServerError, body
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", s.reqField(r), errField(err))
	}
	writeJSON(w, status, body)
}
