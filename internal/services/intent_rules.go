package services

import (
	"regexp"
	"strings"

	"github.com/BerylCAtieno/docvault-api/internal/models"
)

const defaultFileName = "新文件.txt"

var (
	analysisVerbs = []string{"分析", "检查", "确认", "对比", "比较", "缺少", "缺失", "完整性", "检验", "核查"}
	folderNouns   = []string{"文件夹", "目录"}
	searchVerbs   = []string{"找", "搜索", "查找", "寻找", "在哪里", "哪里有", "搜", "查", "检索"}
	createVerbs   = []string{"创建", "新建", "建立", "建"}

	// Never accepted as a file or folder name.
	reservedTokens = map[string]bool{
		"创建": true, "新建": true, "添加": true, "一个": true, "新的": true,
		"新": true, "帮我": true, "在": true, "下": true,
	}

	placeholderPhrases = []string{"extracted from query", "description", "placeholder"}
)

const fileExtensions = `txt|md|markdown|pdf|docx|doc|xlsx|xls|csv|json|log|pptx|ppt|html|htm|xml|yaml|yml`

// Ordered: the first pattern that yields a usable name wins.
var (
	fileExtPattern  = regexp.MustCompile(`(?i)\.(?:` + fileExtensions + `)\b`)
	fileNamePattern = regexp.MustCompile(`(?i)[\p{L}\p{N}_\-]+\.(?:` + fileExtensions + `)\b`)
	// A file name written right after a create verb; the verb and its filler
	// words stay outside the capture.
	createdFilePattern = regexp.MustCompile(
		`(?i)(?:创建|新建|添加|建立)(?:一个|个)?(?:新的)?(?:文件)?(?:名为|叫做|叫)?\s*([\p{L}\p{N}_\-]+\.(?:` + fileExtensions + `))\b`)

	parentFolderCreatePattern = regexp.MustCompile(
		`在\s*(.+?)\s*(?:目录|文件夹)\s*(?:下|中|里)(?:面)?\s*(?:创建|新建|建立|建)(?:一个|个)?(?:新的)?\s*(?:名为|叫做|叫)?\s*(.+?)\s*的?\s*(?:文件夹|目录)`)
	simpleFolderCreatePattern = regexp.MustCompile(
		`(?:创建|新建|建立|建)(?:一个|个)?(?:新的)?\s*(?:名为|叫做|叫)?\s*(.+?)\s*的?\s*(?:文件夹|目录)`)
	reverseFolderPattern = regexp.MustCompile(
		`(?:文件夹|目录)\s*(?:名为|叫做|叫|名字是|[:：])?\s*["“'「]?([^\s"”'」，,。]+)`)
	parentPattern  = regexp.MustCompile(`在\s*(.+?)\s*(?:目录|文件夹)\s*(?:下|中|里)(?:面)?`)
	contentPattern = regexp.MustCompile(`(?s)(?:内容是|内容为|写入|写上)\s*[:：]?\s*(.+)$`)
)

// fallbackClassify maps a command to an intent with keyword rules, checked in
// order.
func fallbackClassify(command string) *models.IntentAnalysis {
	text := strings.ToLower(strings.TrimSpace(command))

	analysis := &models.IntentAnalysis{}

	switch {
	case containsAny(text, analysisVerbs) && containsAny(text, folderNouns):
		analysis.IntentType = models.IntentFolderAnalysis
		analysis.ActionType = models.ActionAnalyzeFolder
		analysis.Confidence = 0.9
		analysis.Parameters.AnalysisType = "completeness"
		analysis.Reasoning = "analysis verb with a folder noun"
	case containsAny(text, searchVerbs):
		analysis.IntentType = models.IntentVectorSearch
		analysis.ActionType = models.ActionSearchDocuments
		analysis.Confidence = 0.9
		analysis.Reasoning = "search verb"
	case fileExtPattern.MatchString(text):
		analysis.IntentType = models.IntentMCPAction
		analysis.ActionType = models.ActionCreateFile
		analysis.Confidence = 0.9
		analysis.Reasoning = "file extension"
	case containsAny(text, folderNouns) && containsAny(text, createVerbs):
		analysis.IntentType = models.IntentMCPAction
		analysis.ActionType = models.ActionCreateFolder
		analysis.Confidence = 0.9
		analysis.Reasoning = "create verb with a folder noun"
	case containsAny(text, createVerbs):
		analysis.IntentType = models.IntentMCPAction
		analysis.ActionType = models.ActionCreateFolder
		analysis.Confidence = 0.7
		analysis.Reasoning = "create verb"
	default:
		analysis.IntentType = models.IntentVectorSearch
		analysis.ActionType = models.ActionSearchDocuments
		analysis.Confidence = 0.6
		analysis.Reasoning = "no rule matched"
	}

	if analysis.IntentType == models.IntentVectorSearch {
		analysis.Parameters.SearchKeywords = strings.TrimSpace(command)
	}

	return analysis
}

// extractFolderParams returns the folder to create and, when named, the
// parent folder it goes under.
func extractFolderParams(command string) (name, parent string) {
	if m := parentFolderCreatePattern.FindStringSubmatch(command); m != nil {
		parent = cleanName(m[1])
		if child := cleanName(m[2]); usableName(child) {
			return child, usableOrEmpty(parent)
		}
	}

	for _, pattern := range []*regexp.Regexp{simpleFolderCreatePattern, reverseFolderPattern} {
		for _, m := range pattern.FindAllStringSubmatch(command, -1) {
			if candidate := cleanName(m[1]); usableName(candidate) {
				return candidate, usableOrEmpty(parent)
			}
		}
	}

	return "", usableOrEmpty(parent)
}

// extractFileParams finds the file name, parent folder and literal content of
// a create-file command.
func extractFileParams(command string) (name, parent, content string) {
	rest := command

	if loc := contentPattern.FindStringSubmatchIndex(rest); loc != nil {
		content = trimQuotes(strings.TrimSpace(rest[loc[2]:loc[3]]))
		rest = rest[:loc[0]]
	}

	if loc := parentPattern.FindStringSubmatchIndex(rest); loc != nil {
		parent = usableOrEmpty(cleanName(rest[loc[2]:loc[3]]))
		rest = rest[loc[1]:]
	}

	var candidates []string
	for _, m := range createdFilePattern.FindAllStringSubmatch(rest, -1) {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, fileNamePattern.FindAllString(rest, -1)...)

	for _, candidate := range candidates {
		if candidate = cleanName(candidate); usableName(candidate) {
			name = candidate
			break
		}
	}

	if name == "" {
		name = defaultFileName
	}

	return name, parent, content
}

// mergeParameters keeps usable classifier values and fills the rest from the
// command text.
func mergeParameters(command string, analysis *models.IntentAnalysis) models.IntentParameters {
	params := analysis.Parameters
	params.FileName = usableOrEmpty(cleanName(params.FileName))
	params.FolderName = usableOrEmpty(cleanName(params.FolderName))
	params.ParentFolder = usableOrEmpty(cleanName(params.ParentFolder))
	if isPlaceholder(params.Content) {
		params.Content = ""
	}

	switch analysis.ActionType {
	case models.ActionCreateFolder:
		name, parent := extractFolderParams(command)
		if params.FolderName == "" {
			params.FolderName = name
		}
		if params.ParentFolder == "" {
			params.ParentFolder = parent
		}
	case models.ActionCreateFile:
		name, parent, content := extractFileParams(command)
		if params.FileName == "" {
			params.FileName = name
		}
		if params.ParentFolder == "" {
			params.ParentFolder = parent
		}
		if params.Content == "" {
			params.Content = content
		}
	}

	return params
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func cleanName(s string) string {
	return trimQuotes(strings.TrimSpace(s))
}

func trimQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(s, `"'“”‘’「」『』《》`))
}

func isPlaceholder(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range placeholderPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func usableName(s string) bool {
	return s != "" && !reservedTokens[s] && !isPlaceholder(s)
}

func usableOrEmpty(s string) string {
	if usableName(s) {
		return s
	}
	return ""
}
