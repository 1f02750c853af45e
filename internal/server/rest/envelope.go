package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/quickmart/internal/common"
	"github.com/dmitrijs2005/quickmart/internal/server/services"
)

type meta struct {
	Code        int    `json:"code"`
	Error       string `json:"error,omitempty"`
	Message     string `json:"message"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

type envelope struct {
	Meta meta `json:"meta"`
	Data any  `json:"data"`
}

// tokenEnvelope repeats the token pair at the root, where OAuth2 password
// flow clients look for it.
type tokenEnvelope struct {
	envelope
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{
		Meta: meta{Code: http.StatusOK, Message: "success"},
		Data: data,
	})
}

func writeTokens(w http.ResponseWriter, pair *services.TokenPair) {
	writeJSON(w, http.StatusOK, tokenEnvelope{
		envelope: envelope{
			Meta: meta{Code: http.StatusOK, Message: "success"},
			Data: pair,
		},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func writeMeta(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{Meta: meta{Code: status, Error: code, Message: message}})
}

func statusFor(kind common.Kind) int {
	switch kind {
	case common.KindBadRequest:
		return http.StatusBadRequest
	case common.KindUnauthorized:
		return http.StatusUnauthorized
	case common.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the envelope. Only classified errors reach the
// client with their message; anything else becomes a bare 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *common.Error
	if !errors.As(err, &appErr) {
		s.logger.Error(r.Context(), "unclassified error", "path", r.URL.Path, "error", err)
		writeMeta(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	status := statusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "code", appErr.Code, "error", err)
	}
	writeJSON(w, status, envelope{Meta: meta{
		Code:        status,
		Error:       appErr.Code,
		Message:     appErr.Message,
		ErrorDetail: appErr.Detail,
	}})
}
