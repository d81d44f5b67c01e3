package utils

import (
	"path/filepath"
	"strings"
)

// DefaultDocumentExtensions is the upload allow-list used when none is configured.
var DefaultDocumentExtensions = []string{".pdf", ".docx", ".txt", ".xlsx"}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain; charset=utf-8",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".doc":  "application/msword",
	".xls":  "application/vnd.ms-excel",
}

// FileExtension returns the lower-cased extension of name including the dot.
func FileExtension(name string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
}

// ContentTypeForFile maps a file name to the content type used for downloads.
func ContentTypeForFile(name string) string {
	if ct, ok := contentTypes[FileExtension(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ParseExtensionList turns ".pdf, DOCX,txt" into [".pdf" ".docx" ".txt"].
func ParseExtensionList(raw string) []string {
	parts := strings.Split(raw, ",")
	exts := make([]string, 0, len(parts))
	seen := make(map[string]bool)
	for _, part := range parts {
		ext := strings.ToLower(strings.TrimSpace(part))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	return exts
}

// DisplayFileName strips any directory components a client sent with the name.
func DisplayFileName(name string) string {
	name = strings.ReplaceAll(SanitizeInput(name), "\\", "/")
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
