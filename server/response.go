package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/hlog"

	"github.com/rushteam/movierec/core"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, r, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// respondDomainError 按 DomainError 的 code 映射 HTTP 状态码。
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Str("code", code).Msg("request failed")
	}
	respondError(w, r, status, code, err.Error())
}

func statusOf(err error) (int, string) {
	switch {
	case core.IsUnknownEntity(err):
		return http.StatusNotFound, core.ErrorCodeNotFound
	case core.IsInvalidInput(err):
		return http.StatusBadRequest, core.ErrorCodeInvalidInput
	case core.IsUnavailable(err):
		return http.StatusServiceUnavailable, core.ErrorCodeUnavailable
	case core.IsNotSupported(err):
		return http.StatusNotImplemented, core.ErrorCodeNotSupported
	case core.IsTooLarge(err):
		return http.StatusUnprocessableEntity, core.ErrorCodeTooLarge
	case core.IsDuplicateRating(err):
		return http.StatusConflict, core.ErrorCodeDuplicate
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, core.ErrorCodeInternalError
	}
}
