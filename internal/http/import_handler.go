package http

import (
	"context"
	"errors"
	"net/http"

	"bookhub/internal/importer"
)

type ImportHandler struct {
	svc *importer.Service
}

func NewImportHandler(svc *importer.Service) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// Import runs a bulk book upload. A structurally broken payload is
// rejected wholesale; row-level failures come back inside the report
// with a 200.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Import(r.Context(), r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrMalformedPayload):
			JSONError(w, http.StatusBadRequest, CodeMalformedPayload, err.Error(), nil)
		case errors.Is(err, context.DeadlineExceeded):
			JSONError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "Import timed out", nil)
		default:
			JSONError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", nil)
		}
		return
	}

	JSONSuccess(w, report, nil)
}
