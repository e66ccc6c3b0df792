package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

type ErrorResponse struct {
	Title   string       `json:"title"`
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Title: http.StatusText(code), Error: message})
}

// RespondWithAppError renders a service error as a single notification.
// Internal failures never leak their cause to the client.
func RespondWithAppError(w http.ResponseWriter, err error) {
	code := HTTPStatusFromError(err)
	resp := ErrorResponse{Title: TitleFromError(err), Error: err.Error()}
	if code == http.StatusInternalServerError {
		resp.Error = ErrInternalServer.Error()
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		resp.Details = ve
	}
	RespondWithJSON(w, code, resp)
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
