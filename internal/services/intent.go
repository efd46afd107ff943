package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BerylCAtieno/docvault-api/internal/history"
	"github.com/BerylCAtieno/docvault-api/internal/llm"
	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/repository"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

const (
	classifiedByLLM   = "llm"
	classifiedByRules = "rules"
)

// IntentClassifier is the part of the LLM gateway the dispatcher needs.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, command string) (string, error)
}

// IntentDispatcher turns free-text commands into folder and file creation.
type IntentDispatcher struct {
	repo       repository.Repository
	classifier IntentClassifier
	history    history.Recorder
	validate   *validator.Validate
	uploadDir  string
	logger     *utils.Logger
}

// NewIntentDispatcher builds a dispatcher. classifier and recorder may be nil;
// without a classifier every command goes through the keyword rules.
func NewIntentDispatcher(repo repository.Repository, classifier IntentClassifier, recorder history.Recorder, uploadDir string, logger *utils.Logger) *IntentDispatcher {
	return &IntentDispatcher{
		repo:       repo,
		classifier: classifier,
		history:    recorder,
		validate:   validator.New(),
		uploadDir:  uploadDir,
		logger:     logger.With("component", "intent"),
	}
}

// Dispatch classifies and executes one command. It always returns a result;
// failures are reported in result.Error.
func (d *IntentDispatcher) Dispatch(ctx context.Context, command string) (result *models.DispatchResult) {
	command = strings.TrimSpace(command)
	result = &models.DispatchResult{
		Command:   command,
		Action:    models.ActionOther,
		Timestamp: time.Now().UTC(),
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic while dispatching command", "command", command, "panic", r)
			result.Success = false
			result.Result = ""
			result.Error = "internal error while executing the command"
		}
		d.record(ctx, result)
	}()

	if command == "" {
		result.Error = "command is empty"
		return result
	}

	analysis, classifiedBy := d.classify(ctx, command)
	params := mergeParameters(command, analysis)

	result.Intent = analysis
	result.ClassifiedBy = classifiedBy
	result.Action = analysis.ActionType
	result.Parameters = params

	var (
		message string
		node    *models.DocumentNode
		err     error
	)

	switch analysis.ActionType {
	case models.ActionCreateFolder:
		node, message, err = d.createFolder(ctx, params)
	case models.ActionCreateFile:
		node, message, err = d.createFile(ctx, params)
	default:
		err = fmt.Errorf("action %q is not supported", analysis.ActionType)
	}

	if err != nil {
		d.logger.Info("Command not executed", "command", command, "action", analysis.ActionType, "reason", err)
		result.Error = err.Error()
		return result
	}

	d.logger.Info("Command executed", "command", command, "action", analysis.ActionType, "node_id", node.ID)
	result.Success = true
	result.Result = message
	result.Node = node

	return result
}

// History returns the most recent results, newest first.
func (d *IntentDispatcher) History(ctx context.Context, limit int) ([]models.DispatchResult, error) {
	if d.history == nil {
		return []models.DispatchResult{}, nil
	}
	return d.history.List(ctx, limit)
}

func (d *IntentDispatcher) classify(ctx context.Context, command string) (*models.IntentAnalysis, string) {
	if d.classifier != nil {
		analysis, err := d.classifyWithLLM(ctx, command)
		if err == nil {
			return analysis, classifiedByLLM
		}
		d.logger.Warn("LLM intent classification failed, using keyword rules", "error", err)
	}

	return fallbackClassify(command), classifiedByRules
}

func (d *IntentDispatcher) classifyWithLLM(ctx context.Context, command string) (*models.IntentAnalysis, error) {
	raw, err := d.classifier.ClassifyIntent(ctx, command)
	if err != nil {
		return nil, err
	}

	var analysis models.IntentAnalysis
	if err := llm.ParseStructured(raw, &analysis); err != nil {
		return nil, err
	}
	if err := d.validate.Struct(analysis); err != nil {
		return nil, fmt.Errorf("invalid classification: %w", err)
	}

	return &analysis, nil
}

// resolveParent looks the named folder up by exact then partial name. An
// unknown folder resolves to the root with a note for the caller.
func (d *IntentDispatcher) resolveParent(ctx context.Context, name string) (*models.DocumentNode, string, error) {
	if name == "" {
		return nil, "", nil
	}

	folder, err := d.repo.FindFolderByName(ctx, name, true)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up folder %q: %w", name, err)
	}
	if folder == nil {
		folder, err = d.repo.FindFolderByName(ctx, name, false)
		if err != nil {
			return nil, "", fmt.Errorf("failed to look up folder %q: %w", name, err)
		}
	}
	if folder == nil {
		return nil, fmt.Sprintf("parent folder %q was not found, created at root instead", name), nil
	}

	return folder, "", nil
}

func (d *IntentDispatcher) createFolder(ctx context.Context, params models.IntentParameters) (*models.DocumentNode, string, error) {
	if params.FolderName == "" {
		return nil, "", errors.New("could not determine the folder name")
	}

	parent, note, err := d.resolveParent(ctx, params.ParentFolder)
	if err != nil {
		return nil, "", err
	}
	parentID := nodeID(parent)

	existing, err := d.repo.FindSibling(ctx, params.FolderName, parentID, models.NodeTypeFolder)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check for existing folder: %w", err)
	}
	if existing != nil {
		return nil, "", fmt.Errorf("folder %q already exists %s", params.FolderName, location(parent))
	}

	node := &models.DocumentNode{
		ID:       utils.GenerateID(),
		Name:     params.FolderName,
		Type:     models.NodeTypeFolder,
		ParentID: parentID,
	}

	if err := d.repo.CreateNode(ctx, node); err != nil {
		return nil, "", createError(params.FolderName, err)
	}

	return node, withNote(fmt.Sprintf("created folder %q %s", node.Name, location(parent)), note), nil
}

func (d *IntentDispatcher) createFile(ctx context.Context, params models.IntentParameters) (*models.DocumentNode, string, error) {
	name := params.FileName
	if name == "" {
		name = defaultFileName
	}

	parent, note, err := d.resolveParent(ctx, params.ParentFolder)
	if err != nil {
		return nil, "", err
	}
	parentID := nodeID(parent)

	existing, err := d.repo.FindSibling(ctx, name, parentID, models.NodeTypeFile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check for existing file: %w", err)
	}
	if existing != nil {
		return nil, "", fmt.Errorf("file %q already exists %s", name, location(parent))
	}

	ext := strings.ToLower(filepath.Ext(name))
	node := &models.DocumentNode{
		ID:       utils.GenerateID(),
		Name:     name,
		Type:     models.NodeTypeFile,
		ParentID: parentID,
		FileType: strings.TrimPrefix(ext, "."),
		MimeType: mime.TypeByExtension(ext),
	}

	if params.Content != "" {
		path, err := d.writeContent(ext, params.Content)
		if err != nil {
			return nil, "", err
		}
		node.FilePath = path
		node.FileSize = int64(len(params.Content))
	}

	if err := d.repo.CreateNode(ctx, node); err != nil {
		if node.FilePath != "" {
			os.Remove(node.FilePath)
		}
		return nil, "", createError(name, err)
	}

	return node, withNote(fmt.Sprintf("created file %q %s", node.Name, location(parent)), note), nil
}

func (d *IntentDispatcher) writeContent(ext, content string) (string, error) {
	if err := os.MkdirAll(d.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	path := filepath.Join(d.uploadDir, utils.GenerateID()+ext)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}

	return path, nil
}

func (d *IntentDispatcher) record(ctx context.Context, result *models.DispatchResult) {
	if d.history == nil {
		return
	}
	if err := d.history.Record(ctx, result); err != nil {
		d.logger.Warn("Failed to record intent history", "error", err)
	}
}

func createError(name string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateName):
		return fmt.Errorf("an item named %q already exists there", name)
	case errors.Is(err, repository.ErrInvalidParent):
		return errors.New("the parent folder no longer exists")
	default:
		return fmt.Errorf("failed to create %q: %w", name, err)
	}
}

func nodeID(node *models.DocumentNode) *string {
	if node == nil {
		return nil
	}
	id := node.ID
	return &id
}

func location(parent *models.DocumentNode) string {
	if parent == nil {
		return "at root"
	}
	return fmt.Sprintf("in %q", parent.Name)
}

func withNote(message, note string) string {
	if note == "" {
		return message
	}
	return message + " (" + note + ")"
}
