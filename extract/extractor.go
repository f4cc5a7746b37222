// Package extract pulls plain text out of the supported document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedExtensions lists the file types the document loader indexes.
var SupportedExtensions = []string{".txt", ".md", ".py", ".js", ".json", ".csv", ".pdf"}

// Supported reports whether the file's extension is indexable.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Text extracts the text content of the file at path.
func Text(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return pdfText(path)
	case ".txt", ".md", ".py", ".js", ".json", ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read file failed, err: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}
