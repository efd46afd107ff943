package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/BerylCAtieno/docvault-api/internal/history"
	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/utils"
)

type fakeClassifier struct {
	reply string
	err   error
	calls int
}

func (f *fakeClassifier) ClassifyIntent(ctx context.Context, command string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func newTestDispatcher(t *testing.T, classifier IntentClassifier) (*IntentDispatcher, *history.MemoryRecorder) {
	t.Helper()

	rec := history.NewMemoryRecorder(10)
	repo := newTestRepository(t)
	d := NewIntentDispatcher(repo, classifier, rec, t.TempDir(), utils.NewDiscardLogger())
	return d, rec
}

func TestFallbackClassify(t *testing.T) {
	tests := []struct {
		command    string
		intent     models.IntentType
		action     models.ActionType
		confidence float64
	}{
		{"分析财务文件夹的完整性", models.IntentFolderAnalysis, models.ActionAnalyzeFolder, 0.9},
		{"检查合同目录缺少哪些文件", models.IntentFolderAnalysis, models.ActionAnalyzeFolder, 0.9},
		{"帮我找一下去年的发票", models.IntentVectorSearch, models.ActionSearchDocuments, 0.9},
		{"检查一下报销流程", models.IntentVectorSearch, models.ActionSearchDocuments, 0.9},
		{"创建 readme.md", models.IntentMCPAction, models.ActionCreateFile, 0.9},
		{"新建 Notes.TXT", models.IntentMCPAction, models.ActionCreateFile, 0.9},
		{"在财务文件夹下创建发票文件夹", models.IntentMCPAction, models.ActionCreateFolder, 0.9},
		{"新建项目A", models.IntentMCPAction, models.ActionCreateFolder, 0.7},
		{"今年的预算是多少", models.IntentVectorSearch, models.ActionSearchDocuments, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got := fallbackClassify(tt.command)
			if got.IntentType != tt.intent || got.ActionType != tt.action || got.Confidence != tt.confidence {
				t.Errorf("fallbackClassify(%q) = %s/%s/%.1f, want %s/%s/%.1f",
					tt.command, got.IntentType, got.ActionType, got.Confidence, tt.intent, tt.action, tt.confidence)
			}
		})
	}
}

func TestExtractFolderParams(t *testing.T) {
	tests := []struct {
		command string
		name    string
		parent  string
	}{
		{"在财务文件夹下创建发票文件夹", "发票", "财务"},
		{"在 项目 目录里面新建一个设计稿文件夹", "设计稿", "项目"},
		{"创建一个名为报告的文件夹", "报告", ""},
		{"新建文件夹 项目A", "项目A", ""},
		{"创建一个文件夹", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			name, parent := extractFolderParams(tt.command)
			if name != tt.name || parent != tt.parent {
				t.Errorf("extractFolderParams(%q) = %q, %q; want %q, %q", tt.command, name, parent, tt.name, tt.parent)
			}
		})
	}
}

func TestExtractFileParams(t *testing.T) {
	tests := []struct {
		command string
		name    string
		parent  string
		content string
	}{
		{"创建 readme.md", "readme.md", "", ""},
		{"在财务目录下创建报告.txt 内容是 hello", "报告.txt", "财务", "hello"},
		{"新建notes.txt，写入：第一行", "notes.txt", "", "第一行"},
		{"创建一个文件 内容为 草稿", defaultFileName, "", "草稿"},
		{"创建 个人简历.txt", "个人简历.txt", "", ""},
		{"创建 请假条.docx", "请假条.docx", "", ""},
		{"新建 文件清单.md", "文件清单.md", "", ""},
		{"帮我新建一个名为report.docx的文件", "report.docx", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			name, parent, content := extractFileParams(tt.command)
			if name != tt.name || parent != tt.parent || content != tt.content {
				t.Errorf("extractFileParams(%q) = %q, %q, %q; want %q, %q, %q",
					tt.command, name, parent, content, tt.name, tt.parent, tt.content)
			}
		})
	}
}

func TestDispatchKeepsTypedFileName(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	res := d.Dispatch(context.Background(), "创建 个人简历.txt")

	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Error)
	}
	if res.Node == nil || res.Node.Name != "个人简历.txt" {
		t.Errorf("node = %+v, want name 个人简历.txt", res.Node)
	}
}

func TestDispatchCreatesFolderUnderParent(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	finance := addFolder(t, d.repo, "财务", nil)

	res := d.Dispatch(context.Background(), "在财务文件夹下创建发票文件夹")

	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Error)
	}
	if res.ClassifiedBy != classifiedByRules || res.Action != models.ActionCreateFolder {
		t.Errorf("classification = %s/%s", res.ClassifiedBy, res.Action)
	}
	if res.Parameters.FolderName != "发票" || res.Parameters.ParentFolder != "财务" {
		t.Errorf("parameters = %+v", res.Parameters)
	}
	if res.Node == nil || res.Node.ParentID == nil || *res.Node.ParentID != finance.ID {
		t.Errorf("node = %+v", res.Node)
	}
}

func TestDispatchMissingParentFallsBackToRoot(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	res := d.Dispatch(context.Background(), "在财务文件夹下创建发票文件夹")

	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Error)
	}
	if res.Node.ParentID != nil {
		t.Errorf("folder should be at root, parent = %v", *res.Node.ParentID)
	}
	if !strings.Contains(res.Result, "not found") {
		t.Errorf("result should mention the missing parent: %q", res.Result)
	}
}

func TestDispatchFuzzyParentMatch(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	finance := addFolder(t, d.repo, "财务报表", nil)

	res := d.Dispatch(context.Background(), "在财务文件夹下创建发票文件夹")

	if !res.Success || res.Node.ParentID == nil || *res.Node.ParentID != finance.ID {
		t.Errorf("expected fuzzy parent match, got %+v", res)
	}
}

func TestDispatchFolderCollision(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	parent := addFolder(t, d.repo, "财务", nil)
	ctx := context.Background()

	first := d.Dispatch(ctx, "在财务文件夹下创建Reports文件夹")
	second := d.Dispatch(ctx, "在财务文件夹下创建Reports文件夹")

	if !first.Success {
		t.Fatalf("first dispatch failed: %s", first.Error)
	}
	if second.Success || !strings.Contains(second.Error, "already exists") {
		t.Errorf("second dispatch = %+v", second)
	}

	children, err := d.repo.ListChildren(ctx, &parent.ID)
	if err != nil {
		t.Fatalf("ListChildren returned error: %v", err)
	}
	if len(children) != 1 {
		t.Errorf("children = %d, want 1", len(children))
	}
}

func TestDispatchCreatesFileAtRoot(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	res := d.Dispatch(context.Background(), "创建 readme.md")

	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Error)
	}
	if res.Node.Name != "readme.md" || res.Node.Type != models.NodeTypeFile || res.Node.ParentID != nil {
		t.Errorf("node = %+v", res.Node)
	}

	again := d.Dispatch(context.Background(), "创建 readme.md")
	if again.Success || !strings.Contains(again.Error, "already exists") {
		t.Errorf("duplicate file dispatch = %+v", again)
	}
}

func TestDispatchWritesFileContent(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	res := d.Dispatch(context.Background(), "创建 notes.txt 内容是 hello world")

	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Error)
	}
	if res.Node.FileSize != int64(len("hello world")) || res.Node.FilePath == "" {
		t.Fatalf("node = %+v", res.Node)
	}

	data, err := os.ReadFile(res.Node.FilePath)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("file content = %q", data)
	}
}

func TestDispatchUsesLLMClassification(t *testing.T) {
	classifier := &fakeClassifier{reply: "```json\n" + `{
		"intent_type": "mcp_action",
		"confidence": 0.95,
		"action_type": "create_folder",
		"parameters": {"folder_name": "合同", "parent_folder": ""},
		"reasoning": "create a folder"
	}` + "\n```"}
	d, _ := newTestDispatcher(t, classifier)

	res := d.Dispatch(context.Background(), "please make a folder for contracts")

	if res.ClassifiedBy != classifiedByLLM {
		t.Fatalf("classified by %s", res.ClassifiedBy)
	}
	if !res.Success || res.Node.Name != "合同" {
		t.Errorf("result = %+v", res)
	}
}

func TestDispatchReplacesPlaceholderParameters(t *testing.T) {
	classifier := &fakeClassifier{reply: `{
		"intent_type": "mcp_action",
		"confidence": 0.8,
		"action_type": "create_folder",
		"parameters": {"folder_name": "folder name extracted from query", "parent_folder": "description of parent"},
		"reasoning": ""
	}`}
	d, _ := newTestDispatcher(t, classifier)
	finance := addFolder(t, d.repo, "财务", nil)

	res := d.Dispatch(context.Background(), "在财务文件夹下创建发票文件夹")

	if !res.Success {
		t.Fatalf("dispatch failed: %s", res.Error)
	}
	if res.Parameters.FolderName != "发票" || res.Parameters.ParentFolder != "财务" {
		t.Errorf("parameters = %+v", res.Parameters)
	}
	if *res.Node.ParentID != finance.ID {
		t.Errorf("wrong parent")
	}
}

func TestDispatchFallsBackOnBadLLMOutput(t *testing.T) {
	tests := []struct {
		name       string
		classifier *fakeClassifier
	}{
		{"transport error", &fakeClassifier{err: errors.New("timeout")}},
		{"not json", &fakeClassifier{reply: "Sure, I will create that folder."}},
		{"missing fields", &fakeClassifier{reply: `{"confidence": 0.9}`}},
		{"unknown action", &fakeClassifier{reply: `{"intent_type":"mcp_action","confidence":0.9,"action_type":"delete_everything"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDispatcher(t, tt.classifier)

			res := d.Dispatch(context.Background(), "创建 readme.md")

			if tt.classifier.calls != 1 {
				t.Errorf("classifier calls = %d", tt.classifier.calls)
			}
			if res.ClassifiedBy != classifiedByRules || !res.Success || res.Node.Name != "readme.md" {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestDispatchUnsupportedAction(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	res := d.Dispatch(context.Background(), "查找去年的合同")

	if res.Success || res.Action != models.ActionSearchDocuments {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Error, "not supported") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestDispatchEmptyCommand(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)

	res := d.Dispatch(context.Background(), "   ")
	if res.Success || res.Error == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestDispatchRecordsHistory(t *testing.T) {
	d, _ := newTestDispatcher(t, nil)
	ctx := context.Background()

	d.Dispatch(ctx, "创建 a.md")
	d.Dispatch(ctx, "创建 b.md")

	entries, err := d.History(ctx, 0)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history = %d entries, want 2", len(entries))
	}
	if entries[0].Command != "创建 b.md" {
		t.Errorf("newest entry = %q", entries[0].Command)
	}
}
