package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/services"
	"github.com/desertthunder/vinyl/internal/shared"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

// StatusFor maps an error to a status code & the short detail shown to the client.
//
// Unrecognized errors map to 500 with a generic detail so internal messages never leak.
func StatusFor(err error) (int, string) {
	var se *services.UpstreamStatusError
	switch {
	case errors.As(err, &se):
		detail := se.Detail
		if detail == "" {
			detail = http.StatusText(se.StatusCode)
		}
		return se.StatusCode, detail
	case errors.Is(err, shared.ErrAuthRequired):
		return http.StatusUnauthorized, "Not authenticated with Spotify"
	case errors.Is(err, shared.ErrInvalidCallback):
		return http.StatusBadRequest, "Invalid Spotify OAuth state or code"
	case errors.Is(err, shared.ErrTokenExchangeFailed):
		return http.StatusBadRequest, "Failed to obtain Spotify tokens"
	case errors.Is(err, shared.ErrBadRequest):
		return http.StatusBadRequest, detailOf(err, shared.ErrBadRequest)
	case errors.Is(err, shared.ErrNotConfigured):
		return http.StatusInternalServerError, detailOf(err, shared.ErrNotConfigured)
	case errors.Is(err, shared.ErrImageFetch):
		return http.StatusBadGateway, "Failed to fetch image"
	case errors.Is(err, shared.ErrUpstream):
		return http.StatusBadGateway, "Spotify request failed"
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// detailOf strips the sentinel prefix from a wrapped error message.
func detailOf(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

// writeError writes err as {"detail": ...}. Server side failures are logged when logger is set.
func writeError(w http.ResponseWriter, r *http.Request, logger *log.Logger, err error) {
	status, detail := StatusFor(err)
	if logger != nil && status >= 500 {
		logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err,
			"request_id", RequestIDFrom(r.Context()))
	}
	writeDetail(w, status, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeRaw relays an upstream JSON body unchanged.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// writeUpstream relays an upstream answer with its status: its JSON body when it has one, otherwise
// {"status": "error", "message": <text>}.
func writeUpstream(w http.ResponseWriter, resp *services.APIResponse) {
	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotModified:
		w.WriteHeader(resp.StatusCode)
		return
	case resp.IsJSON():
		writeRaw(w, resp.StatusCode, resp.Body)
		return
	}
	writeJSON(w, resp.StatusCode, map[string]string{"status": "error", "message": string(resp.Body)})
}
