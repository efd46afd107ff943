package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var categories = map[string]string{
	".pdf":  "pdf",
	".doc":  "word",
	".docx": "word",
	".xls":  "excel",
	".xlsx": "excel",
	".csv":  "excel",
	".txt":  "text",
	".md":   "text",
	".json": "text",
	".log":  "text",
	".png":  "images",
	".jpg":  "images",
	".jpeg": "images",
	".gif":  "images",
	".mp4":  "videos",
	".mov":  "videos",
	".avi":  "videos",
}

// Category groups a file name by extension for archival keys.
func Category(name string) string {
	if c, ok := categories[strings.ToLower(filepath.Ext(name))]; ok {
		return c
	}
	return "other"
}

// ArchiveKey builds "<category>/<yyyy>/<mm>/<dd>/<random><ext>".
func ArchiveKey(name string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("%s/%s/%s%s", Category(name), now.UTC().Format("2006/01/02"), uuid.NewString(), ext)
}
