package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PNdlovu/writecarenotes-sub002/pkg/api"
)

// writeJSON пишет ответ в формате JSON
func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// WriteError пишет api.ErrorResponse с кодом ошибки
func WriteError(logger *slog.Logger, w http.ResponseWriter, status int, code, message string) {
	writeJSON(logger, w, status, api.ErrorResponse{Error: code, Message: message})
}
