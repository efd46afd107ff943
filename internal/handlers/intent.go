package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

type CommandDispatcher interface {
	Dispatch(ctx context.Context, command string) *models.DispatchResult
	History(ctx context.Context, limit int) ([]models.DispatchResult, error)
}

type IntentHandler struct {
	responder
	dispatcher CommandDispatcher
}

func NewIntentHandler(dispatcher CommandDispatcher, logger *utils.Logger) *IntentHandler {
	return &IntentHandler{responder: newResponder(logger), dispatcher: dispatcher}
}

// Dispatch always answers 200 once the command is accepted; whether the
// action happened is in the result body.
func (h *IntentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req models.DispatchRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.dispatcher.Dispatch(r.Context(), req.Command))
}

func (h *IntentHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(w, utils.NewBadRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := h.dispatcher.History(r.Context(), limit)
	if err != nil {
		h.respondError(w, utils.WrapInternalError("Failed to read intent history", err))
		return
	}

	h.respondJSON(w, http.StatusOK, entries)
}
