package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/docvault-api/internal/config"
	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/repository"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

type DocumentService interface {
	CreateFolder(ctx context.Context, req *models.CreateFolderRequest) (*models.DocumentNode, error)
	UploadFile(ctx context.Context, req *models.UploadRequest) (*models.DocumentNode, error)
	GetNode(ctx context.Context, id string) (*models.DocumentNode, error)
	ListChildren(ctx context.Context, parentID *string) ([]models.DocumentNode, error)
	GetTree(ctx context.Context) ([]*models.TreeNode, error)
	UpdateNode(ctx context.Context, id string, req *models.UpdateNodeRequest) (*models.DocumentNode, error)
	DeleteNode(ctx context.Context, id string) error
	GetContents(ctx context.Context, id string) ([]models.DocumentContent, error)
}

// RunStarter triggers background vectorization.
type RunStarter interface {
	Start()
}

// VectorRemover drops a document's vectors from the vector backend.
type VectorRemover interface {
	DeleteDocument(ctx context.Context, documentID string) error
}

type documentService struct {
	repo      repository.Repository
	runner    RunStarter
	vectors   VectorRemover
	uploadDir string
	logger    *utils.Logger
}

func NewDocumentService(repo repository.Repository, runner RunStarter, vectors VectorRemover, cfg *config.Config, logger *utils.Logger) DocumentService {
	return &documentService{
		repo:      repo,
		runner:    runner,
		vectors:   vectors,
		uploadDir: cfg.UploadDir,
		logger:    logger,
	}
}

func (s *documentService) CreateFolder(ctx context.Context, req *models.CreateFolderRequest) (*models.DocumentNode, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, utils.NewBadRequestError("Folder name is required")
	}

	node := &models.DocumentNode{
		ID:       utils.GenerateID(),
		Name:     name,
		Type:     models.NodeTypeFolder,
		ParentID: normalizeParent(req.ParentID),
	}

	if err := s.repo.CreateNode(ctx, node); err != nil {
		s.logger.Warn("Failed to create folder", "error", err, "name", name)
		return nil, s.mapRepoError(err, "Failed to create folder")
	}

	s.logger.Info("Folder created", "id", node.ID, "name", node.Name)
	return node, nil
}

func (s *documentService) UploadFile(ctx context.Context, req *models.UploadRequest) (*models.DocumentNode, error) {
	name := filepath.Base(strings.TrimSpace(req.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, utils.NewBadRequestError("Filename is required")
	}
	if len(req.File) == 0 {
		return nil, utils.NewBadRequestError("Uploaded file is empty")
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.logger.Error("Failed to prepare upload directory", "error", err, "dir", s.uploadDir)
		return nil, utils.NewInternalError("Failed to store document")
	}

	docID := utils.GenerateID()
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.uploadDir, docID+ext)

	if err := os.WriteFile(path, req.File, 0o644); err != nil {
		s.logger.Error("Failed to write uploaded file", "error", err, "path", path)
		return nil, utils.NewInternalError("Failed to store document")
	}

	contentType := req.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
		}
	}

	node := &models.DocumentNode{
		ID:          docID,
		Name:        name,
		Type:        models.NodeTypeFile,
		ParentID:    normalizeParent(req.ParentID),
		FilePath:    path,
		FileType:    strings.TrimPrefix(ext, "."),
		FileSize:    int64(len(req.File)),
		MimeType:    contentType,
		Description: strings.TrimSpace(req.Description),
	}

	if err := s.repo.CreateNode(ctx, node); err != nil {
		s.logger.Warn("Failed to save document", "error", err, "filename", name)
		// Attempt to cleanup the stored bytes
		_ = os.Remove(path)
		return nil, s.mapRepoError(err, "Failed to save document metadata")
	}

	s.logger.Info("Document uploaded successfully",
		"id", docID,
		"filename", name,
		"content_type", contentType,
		"size", node.FileSize)

	if s.runner != nil {
		go s.runner.Start()
	}

	return node, nil
}

func (s *documentService) GetNode(ctx context.Context, id string) (*models.DocumentNode, error) {
	node, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get node", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve document")
	}
	if node == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}

	return node, nil
}

func (s *documentService) ListChildren(ctx context.Context, parentID *string) ([]models.DocumentNode, error) {
	parentID = normalizeParent(parentID)
	if parentID != nil {
		parent, err := s.GetNode(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder() {
			return nil, utils.NewBadRequestError("Only folders have children")
		}
	}

	children, err := s.repo.ListChildren(ctx, parentID)
	if err != nil {
		s.logger.Error("Failed to list children", "error", err)
		return nil, utils.NewInternalError("Failed to list documents")
	}
	if children == nil {
		children = []models.DocumentNode{}
	}

	return children, nil
}

// GetTree nests every live node under its parent. Roots are nodes without a
// live parent.
func (s *documentService) GetTree(ctx context.Context) ([]*models.TreeNode, error) {
	nodes, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list nodes", "error", err)
		return nil, utils.NewInternalError("Failed to build document tree")
	}

	return buildTree(nodes), nil
}

func (s *documentService) UpdateNode(ctx context.Context, id string, req *models.UpdateNodeRequest) (*models.DocumentNode, error) {
	node, err := s.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, utils.NewBadRequestError("Name cannot be empty")
		}
		node.Name = name
	}
	if req.ParentID != nil {
		node.ParentID = normalizeParent(req.ParentID)
	}
	if req.Description != nil {
		node.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.repo.UpdateNode(ctx, node); err != nil {
		s.logger.Warn("Failed to update node", "error", err, "id", id)
		return nil, s.mapRepoError(err, "Failed to update document")
	}

	return node, nil
}

// DeleteNode soft-deletes the node with its subtree, then removes their
// vectors. Vector cleanup failures are only logged.
func (s *documentService) DeleteNode(ctx context.Context, id string) error {
	ids, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return s.mapRepoError(err, "Failed to delete document")
	}

	if s.vectors != nil {
		for _, nodeID := range ids {
			if err := s.vectors.DeleteDocument(ctx, nodeID); err != nil {
				s.logger.Warn("Failed to delete vectors", "error", err, "id", nodeID)
			}
		}
	}

	s.logger.Info("Document deleted", "id", id, "nodes", len(ids))
	return nil
}

func (s *documentService) GetContents(ctx context.Context, id string) ([]models.DocumentContent, error) {
	node, err := s.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if node.IsFolder() {
		return nil, utils.NewBadRequestError("Folders have no content")
	}

	contents, err := s.repo.ListContents(ctx, id)
	if err != nil {
		s.logger.Error("Failed to list contents", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve document content")
	}
	if contents == nil {
		contents = []models.DocumentContent{}
	}

	return contents, nil
}

func (s *documentService) mapRepoError(err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateName):
		return utils.NewConflictError("A file or folder with this name already exists here")
	case errors.Is(err, repository.ErrInvalidParent):
		return utils.NewBadRequestError("Parent must be an existing folder")
	case errors.Is(err, repository.ErrCycle):
		return utils.NewBadRequestError("A folder cannot be moved into itself or its descendants")
	case errors.Is(err, repository.ErrNotFound):
		return utils.NewNotFoundError("Document not found")
	default:
		s.logger.Error(fallback, "error", err)
		return utils.WrapInternalError(fallback, fmt.Errorf("repository: %w", err))
	}
}

// normalizeParent treats an empty parent id as the root.
func normalizeParent(parentID *string) *string {
	if parentID == nil || strings.TrimSpace(*parentID) == "" {
		return nil
	}
	id := strings.TrimSpace(*parentID)
	return &id
}

func buildTree(nodes []models.DocumentNode) []*models.TreeNode {
	byID := make(map[string]*models.TreeNode, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &models.TreeNode{DocumentNode: nodes[i]}
	}

	roots := make([]*models.TreeNode, 0)
	for i := range nodes {
		tn := byID[nodes[i].ID]
		if nodes[i].ParentID != nil {
			if parent, ok := byID[*nodes[i].ParentID]; ok {
				parent.Children = append(parent.Children, tn)
				continue
			}
		}
		roots = append(roots, tn)
	}

	return roots
}
