package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kevinmichaelchen/libfinder/internal/github"
	"github.com/kevinmichaelchen/libfinder/internal/pipeline"
)

type errorBody struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, errorBody{Message: message, Details: details})
}

// writeSearchError maps a pipeline failure onto the search endpoint's
// status codes.
func writeSearchError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrValidation) {
		writeError(w, http.StatusBadRequest, "Missing required parameters", nil)
		return
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.RateLimited():
			details := map[string]any{}
			for k, v := range apiErr.Body {
				details[k] = v
			}
			details["rateLimit"] = apiErr.RateLimitRemaining
			writeError(w, http.StatusForbidden, "GitHub API rate limit exceeded", details)
			return
		case apiErr.InvalidQuery():
			var details any
			if apiErr.Body != nil {
				details = apiErr.Body
			}
			writeError(w, http.StatusUnprocessableEntity, "Invalid search query", details)
			return
		}
	}

	writeError(w, http.StatusInternalServerError, "Failed to search repositories", err.Error())
}
