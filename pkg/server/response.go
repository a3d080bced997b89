package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

func writeSuccess(w http.ResponseWriter, logger zerolog.Logger, message string, data interface{}) {
	writeJSON(w, logger, http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, logger zerolog.Logger, statusCode int, message string, err error) {
	resp := APIResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, logger, statusCode, resp)
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Int("status_code", statusCode).Msg("Failed to encode JSON response")
	}
}
