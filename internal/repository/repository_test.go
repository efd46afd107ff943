package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/db"
	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()

	database, err := db.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewRepository(database)
}

func createNode(t *testing.T, repo Repository, name string, nodeType models.NodeType, parentID *string) *models.DocumentNode {
	t.Helper()

	node := &models.DocumentNode{
		ID:       utils.GenerateID(),
		Name:     name,
		Type:     nodeType,
		ParentID: parentID,
	}
	if nodeType == models.NodeTypeFile {
		node.FilePath = "/tmp/" + name
		node.FileType = "txt"
	}

	if err := repo.CreateNode(context.Background(), node); err != nil {
		t.Fatalf("CreateNode(%s) returned error: %v", name, err)
	}

	return node
}

func TestCreateAndGetNode(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	folder := createNode(t, repo, "财务", models.NodeTypeFolder, nil)
	file := createNode(t, repo, "invoice.txt", models.NodeTypeFile, &folder.ID)

	got, err := repo.GetByID(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got == nil {
		t.Fatalf("GetByID returned nil")
	}
	if got.ParentID == nil || *got.ParentID != folder.ID {
		t.Errorf("parent = %v, want %s", got.ParentID, folder.ID)
	}
	if got.VectorStatus != models.VectorStatusNotStarted {
		t.Errorf("vector_status = %q, want not_started", got.VectorStatus)
	}
	if got.IsVectorized || got.IsDeleted {
		t.Errorf("new node should be neither vectorized nor deleted")
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestCreateNodeRejectsDuplicateSibling(t *testing.T) {
	repo := newTestRepository(t)

	parent := createNode(t, repo, "P", models.NodeTypeFolder, nil)
	createNode(t, repo, "Reports", models.NodeTypeFolder, &parent.ID)

	dup := &models.DocumentNode{ID: utils.GenerateID(), Name: "Reports", Type: models.NodeTypeFolder, ParentID: &parent.ID}
	if err := repo.CreateNode(context.Background(), dup); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("expected ErrDuplicateName, got %v", err)
	}

	// same name at root is a different sibling set
	createNode(t, repo, "Reports", models.NodeTypeFolder, nil)
}

func TestCreateNodeRejectsFileParent(t *testing.T) {
	repo := newTestRepository(t)

	file := createNode(t, repo, "a.txt", models.NodeTypeFile, nil)
	child := &models.DocumentNode{ID: utils.GenerateID(), Name: "x", Type: models.NodeTypeFolder, ParentID: &file.ID}

	if err := repo.CreateNode(context.Background(), child); !errors.Is(err, ErrInvalidParent) {
		t.Errorf("expected ErrInvalidParent, got %v", err)
	}
}

func TestUpdateNodeRejectsCycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := createNode(t, repo, "a", models.NodeTypeFolder, nil)
	b := createNode(t, repo, "b", models.NodeTypeFolder, &a.ID)
	c := createNode(t, repo, "c", models.NodeTypeFolder, &b.ID)

	a.ParentID = &c.ID
	if err := repo.UpdateNode(ctx, a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}

	self := a.ID
	a.ParentID = &self
	if err := repo.UpdateNode(ctx, a); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle for self parent, got %v", err)
	}

	c.ParentID = nil
	c.Name = "c-moved"
	if err := repo.UpdateNode(ctx, c); err != nil {
		t.Fatalf("moving c to root returned error: %v", err)
	}

	roots, err := repo.ListChildren(ctx, nil)
	if err != nil {
		t.Fatalf("ListChildren returned error: %v", err)
	}
	if len(roots) != 2 {
		t.Errorf("root children = %d, want 2", len(roots))
	}
}

func TestFindFolderByName(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	createNode(t, repo, "财务报表", models.NodeTypeFolder, nil)
	createNode(t, repo, "财务.txt", models.NodeTypeFile, nil)

	exact, err := repo.FindFolderByName(ctx, "财务", true)
	if err != nil {
		t.Fatalf("FindFolderByName returned error: %v", err)
	}
	if exact != nil {
		t.Errorf("exact match should not find %q", exact.Name)
	}

	fuzzy, err := repo.FindFolderByName(ctx, "财务", false)
	if err != nil {
		t.Fatalf("FindFolderByName returned error: %v", err)
	}
	if fuzzy == nil || fuzzy.Name != "财务报表" {
		t.Errorf("fuzzy match = %v, want 财务报表", fuzzy)
	}
}

func TestFindSiblingIsScopedByType(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	parent := createNode(t, repo, "docs", models.NodeTypeFolder, nil)
	createNode(t, repo, "notes", models.NodeTypeFolder, &parent.ID)

	folder, err := repo.FindSibling(ctx, "notes", &parent.ID, models.NodeTypeFolder)
	if err != nil || folder == nil {
		t.Fatalf("FindSibling(folder) = %v, %v", folder, err)
	}

	file, err := repo.FindSibling(ctx, "notes", &parent.ID, models.NodeTypeFile)
	if err != nil || file != nil {
		t.Errorf("FindSibling(file) = %v, %v; want nil, nil", file, err)
	}
}

func TestFindUnvectorizedFiles(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	createNode(t, repo, "folder", models.NodeTypeFolder, nil)
	pending := createNode(t, repo, "pending.txt", models.NodeTypeFile, nil)
	done := createNode(t, repo, "done.txt", models.NodeTypeFile, nil)
	deleted := createNode(t, repo, "deleted.txt", models.NodeTypeFile, nil)

	now := time.Now().UTC()
	done.IsVectorized = true
	done.VectorStatus = models.VectorStatusCompleted
	done.VectorizedAt = &now
	if err := repo.UpdateVectorState(ctx, done); err != nil {
		t.Fatalf("UpdateVectorState returned error: %v", err)
	}
	if _, err := repo.SoftDelete(ctx, deleted.ID); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}

	files, err := repo.FindUnvectorizedFiles(ctx)
	if err != nil {
		t.Fatalf("FindUnvectorizedFiles returned error: %v", err)
	}
	if len(files) != 1 || files[0].ID != pending.ID {
		t.Fatalf("unvectorized files = %+v, want only pending.txt", files)
	}

	got, _ := repo.GetByID(ctx, done.ID)
	if got.VectorizedAt == nil || got.VectorStatus != models.VectorStatusCompleted {
		t.Errorf("vector state not persisted: %+v", got)
	}
}

func TestSoftDeleteSubtree(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	root := createNode(t, repo, "root", models.NodeTypeFolder, nil)
	child := createNode(t, repo, "child", models.NodeTypeFolder, &root.ID)
	createNode(t, repo, "leaf.txt", models.NodeTypeFile, &child.ID)

	ids, err := repo.SoftDelete(ctx, root.ID)
	if err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("deleted %d nodes, want 3", len(ids))
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ListAll returned %d live nodes, want 0", len(all))
	}

	// the name is free again once the old node is deleted
	createNode(t, repo, "root", models.NodeTypeFolder, nil)

	if _, err := repo.SoftDelete(ctx, root.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestReplaceContentsIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	doc := createNode(t, repo, "report.pdf", models.NodeTypeFile, nil)

	build := func() []models.DocumentContent {
		page, idx0, idx1 := 1, 0, 1
		return []models.DocumentContent{
			{ID: utils.GenerateID(), PageNumber: &page, ContentText: "page one"},
			{ID: utils.GenerateID(), PageNumber: &page, ChunkIndex: &idx1, ChunkText: "one"},
			{ID: utils.GenerateID(), PageNumber: &page, ChunkIndex: &idx0, ChunkText: "page"},
		}
	}

	for i := 0; i < 2; i++ {
		if err := repo.ReplaceContents(ctx, doc.ID, build()); err != nil {
			t.Fatalf("ReplaceContents returned error: %v", err)
		}
	}

	contents, err := repo.ListContents(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListContents returned error: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("content rows = %d, want 3", len(contents))
	}
	if contents[0].IsChunk() {
		t.Errorf("unit row should come first")
	}
	if contents[1].ChunkText != "page" || contents[2].ChunkText != "one" {
		t.Errorf("chunks out of order: %q, %q", contents[1].ChunkText, contents[2].ChunkText)
	}

	has, err := repo.HasContent(ctx, doc.ID)
	if err != nil || !has {
		t.Errorf("HasContent = %v, %v; want true", has, err)
	}
}

func TestVectorRecords(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	doc := createNode(t, repo, "a.txt", models.NodeTypeFile, nil)
	idx := 0
	chunk := models.DocumentContent{ID: utils.GenerateID(), ChunkIndex: &idx, ChunkText: "hello"}
	if err := repo.ReplaceContents(ctx, doc.ID, []models.DocumentContent{chunk}); err != nil {
		t.Fatalf("ReplaceContents returned error: %v", err)
	}

	msg := "embedding service unavailable"
	records := []models.VectorRecord{{
		ID:           utils.GenerateID(),
		DocumentID:   doc.ID,
		ContentID:    chunk.ID,
		Model:        "hash",
		Status:       models.VectorStatusFailed,
		ErrorMessage: &msg,
	}}
	if err := repo.CreateVectorRecords(ctx, records); err != nil {
		t.Fatalf("CreateVectorRecords returned error: %v", err)
	}

	got, err := repo.ListVectorRecords(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListVectorRecords returned error: %v", err)
	}
	if len(got) != 1 || got[0].ErrorMessage == nil || *got[0].ErrorMessage != msg || got[0].VectorID != nil {
		t.Errorf("unexpected vector records: %+v", got)
	}
}
