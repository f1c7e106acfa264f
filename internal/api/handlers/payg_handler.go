package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/indexer-coordinator/engine/internal/api/types"
	"github.com/indexer-coordinator/engine/internal/services"
)

type PaygHandler struct {
	svc services.PaygService
}

func NewPaygHandler(svc services.PaygService) *PaygHandler {
	return &PaygHandler{svc: svc}
}

func (h *PaygHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPayg(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// Update replaces the whole policy for the project id in the path.
func (h *PaygHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.PaygUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.UpdatePayg(r.Context(), req.ToInput(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}
