package handlers

import (
	"context"
	"net/http"

	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

type Searcher interface {
	Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}

type SearchHandler struct {
	responder
	service Searcher
}

func NewSearchHandler(service Searcher, logger *utils.Logger) *SearchHandler {
	return &SearchHandler{responder: newResponder(logger), service: service}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	resp, err := h.service.Search(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}
