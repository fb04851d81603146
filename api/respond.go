package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorBody and messageBody are the two failure shapes clients already parse.
type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "status", status, "error", err)
	}
}

const internalServerError = "Internal Server Error"

// writeError keeps server failures in the log, clients only get a fixed message.
func writeError(log *slog.Logger, w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "status", status, "error", err)
		writeJSON(log, w, status, errorBody{Error: internalServerError})
		return
	}
	writeJSON(log, w, status, errorBody{Error: err.Error()})
}

func writeMessage(log *slog.Logger, w http.ResponseWriter, status int, message string) {
	writeJSON(log, w, status, messageBody{Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
