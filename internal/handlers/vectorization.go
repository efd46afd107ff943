package handlers

import (
	"net/http"

	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

// RunController is the narrow surface of the background vectorizer.
type RunController interface {
	Start()
	Cancel() bool
	Status() models.RunStatus
}

type VectorizationHandler struct {
	responder
	runs RunController
}

func NewVectorizationHandler(runs RunController, logger *utils.Logger) *VectorizationHandler {
	return &VectorizationHandler{responder: newResponder(logger), runs: runs}
}

// Start returns as soon as the run is scheduled.
func (h *VectorizationHandler) Start(w http.ResponseWriter, r *http.Request) {
	go h.runs.Start()

	h.respondJSON(w, http.StatusAccepted, map[string]string{"message": "Vectorization started"})
}

func (h *VectorizationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]bool{"canceled": h.runs.Cancel()})
}

func (h *VectorizationHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.Status())
}
