package types

import (
	"errors"
	"net/http"

	"github.com/indexer-coordinator/engine/internal/models"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

// CodeInvalidProjectType is the API code for unknown or mismatched project types.
const CodeInvalidProjectType = "invalid_project_type"

// FromError converts err into the API error body and the HTTP status to answer with.
func FromError(err error) (*APIError, int) {
	if err == nil {
		return nil, http.StatusOK
	}
	if errors.Is(err, models.ErrInvalidProjectType) {
		return &APIError{Code: CodeInvalidProjectType, Message: err.Error()}, http.StatusBadRequest
	}
	var e *appErr.AppError
	if errors.As(err, &e) {
		out := &APIError{Code: string(e.Code), Message: e.Message}
		if e.Code == appErr.CodeInvalid && e.Err != nil {
			out.Details = e.Err.Error()
		}
		return out, appErr.HTTPStatus(e.Code)
	}
	return &APIError{Code: string(appErr.CodeInternal), Message: "internal error"}, http.StatusInternalServerError
}
