package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/indexer-coordinator/engine/internal/api/middleware"
	"github.com/indexer-coordinator/engine/internal/api/types"
	"github.com/indexer-coordinator/engine/internal/api/validators"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
	"github.com/indexer-coordinator/engine/pkg/logger"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, types.APIResponse{Success: true, Data: data, Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body, status := types.FromError(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, status, types.APIResponse{Success: false, Error: body, Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}})
}

func writeErrorStr(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: string(appErr.CodeInvalid), Message: msg}, Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())}})
}

// decode reads a JSON body into dst and validates it. It writes the error response
// itself and reports whether the handler should continue.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := validators.New().Struct(dst); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, validators.Message(err))
		return false
	}
	return true
}
