package syntax

import (
	"path/filepath"
	"strings"
)

// DetectLanguage maps a file path to a grammar name the outliner accepts.
// Returns "" when the file type has no grammar.
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py", ".pyw":
		return "python"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".js", ".mjs":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".sh", ".bash", ".zsh":
		return "bash"
	}
	return ""
}

// normalizeLanguage folds the aliases callers actually pass (file
// extensions, shorthand) onto grammar map keys.
func normalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	switch language {
	case "golang":
		return "go"
	case "py":
		return "python"
	case "ts":
		return "typescript"
	case "js":
		return "javascript"
	case "sh", "shell":
		return "bash"
	}
	return language
}
