package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/services"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

type DocumentHandler struct {
	responder
	service     services.DocumentService
	maxFileSize int64
}

func NewDocumentHandler(service services.DocumentService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	return &DocumentHandler{
		responder:   newResponder(logger),
		service:     service,
		maxFileSize: maxFileSize,
	}
}

func (h *DocumentHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	limitMsg := fmt.Sprintf("File size exceeds %dMB limit", h.maxFileSize>>20)

	// Check Content-Length header first to reject oversized requests early
	if r.ContentLength > h.maxFileSize+(1<<20) {
		h.respondError(w, utils.NewBadRequestError(limitMsg))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, utils.NewBadRequestError(limitMsg))
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to read file"))
		return
	}
	if int64(len(data)) > h.maxFileSize {
		h.respondError(w, utils.NewBadRequestError(limitMsg))
		return
	}

	req := &models.UploadRequest{
		File:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Description: r.FormValue("description"),
	}
	if parentID := strings.TrimSpace(r.FormValue("parent_id")); parentID != "" {
		req.ParentID = &parentID
	}

	h.logger.Info("File upload attempt", "filename", header.Filename, "size", len(data))

	node, err := h.service.UploadFile(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, node)
}

func (h *DocumentHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFolderRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	node, err := h.service.CreateFolder(r.Context(), &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, node)
}

func (h *DocumentHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.GetTree(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, tree)
}

func (h *DocumentHandler) ListRoot(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.service.ListChildren(r.Context(), nil)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, nodes)
}

func (h *DocumentHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	node, err := h.service.GetNode(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, node)
}

func (h *DocumentHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	nodes, err := h.service.ListChildren(r.Context(), &id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, nodes)
}

func (h *DocumentHandler) GetContents(w http.ResponseWriter, r *http.Request) {
	contents, err := h.service.GetContents(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, contents)
}

func (h *DocumentHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateNodeRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	node, err := h.service.UpdateNode(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, node)
}

func (h *DocumentHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteNode(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
