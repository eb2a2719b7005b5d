package service

import (
	"encoding/json"
	"net/http"

	"github.com/arashthr/shelf/internal/auth/context/loggercontext"
	"github.com/arashthr/shelf/internal/errors"
	"github.com/arashthr/shelf/web"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeResponse(w http.ResponseWriter, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(data)
}

func writeErrorResponse(w http.ResponseWriter, status int, resp ErrorResponse) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(resp)
}

// writeError answers a JSON request with the status and public message of err.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := loggercontext.Logger(r.Context())
	status, msg := describe(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "error", err, "status", status)
	} else {
		logger.Infow("request rejected", "error", err, "status", status)
	}
	if err := writeErrorResponse(w, status, ErrorResponse{Error: msg}); err != nil {
		logger.Errorw("write response", "error", err)
	}
}

// describe maps an error to the HTTP status and the message shown to the user.
func describe(err error) (int, string) {
	var (
		validation *errors.ValidationError
		conflict   *errors.ConflictError
		upstream   *errors.UpstreamError
		timeout    *errors.TimeoutError
		constraint *errors.ConstraintError
	)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, "Bookmark not found"
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Public()
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Public()
	case errors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests. Please try again later."
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout, timeout.Public()
	case errors.As(err, &upstream):
		return http.StatusBadGateway, upstream.Public()
	case errors.As(err, &constraint):
		return http.StatusInternalServerError, "Something went wrong"
	default:
		return http.StatusInternalServerError, errors.PublicMessage(err, "Something went wrong")
	}
}

// render executes tpl with a non 200 status.
func render(w http.ResponseWriter, r *http.Request, tpl web.Template, status int, data any, msgs ...web.NavbarMessage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	tpl.Execute(w, r, data, msgs...)
}

func errorMessage(msg string) web.NavbarMessage {
	return web.NavbarMessage{Message: msg, IsError: true}
}
