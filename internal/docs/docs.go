// Package docs validates, decodes and packages uploaded review documents.
package docs

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joescharf/crv/internal/models"
)

// ErrInvalidUpload is wrapped by every upload validation failure.
var ErrInvalidUpload = errors.New("invalid upload")

// DefaultMaxFileSize is the per-document ceiling.
const DefaultMaxFileSize int64 = 50 << 20

// CodeExtensions lists the accepted code document extensions.
var CodeExtensions = []string{
	".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".cpp", ".c", ".h",
	".php", ".rb", ".go", ".rs", ".swift", ".kt", ".scala", ".cs",
	".html", ".css", ".scss", ".sass", ".vue", ".svelte", ".json",
	".xml", ".yaml", ".yml", ".md", ".txt", ".sql", ".sh", ".bat",
}

// SRSExtensions lists the accepted requirement document extensions.
var SRSExtensions = []string{".pdf", ".doc", ".docx", ".md", ".txt"}

var languages = map[string]string{
	".py":     "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".java":   "java",
	".cpp":    "cpp",
	".c":      "c",
	".h":      "c",
	".php":    "php",
	".rb":     "ruby",
	".go":     "go",
	".rs":     "rust",
	".swift":  "swift",
	".kt":     "kotlin",
	".scala":  "scala",
	".cs":     "csharp",
	".html":   "html",
	".css":    "css",
	".scss":   "scss",
	".sass":   "sass",
	".vue":    "vue",
	".svelte": "svelte",
	".json":   "json",
	".xml":    "xml",
	".yaml":   "yaml",
	".yml":    "yaml",
	".md":     "markdown",
	".sql":    "sql",
	".sh":     "bash",
	".bat":    "batch",
}

// Ext returns the lower-cased extension of name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Allowed returns the extension allow-list for kind.
func Allowed(kind models.DocumentKind) []string {
	if kind == models.DocumentKindSRS {
		return SRSExtensions
	}
	return CodeExtensions
}

// Validate checks a size and the extension against the allow-list
// for kind. Failures wrap ErrInvalidUpload with a human-readable reason.
func Validate(name string, size int64, kind models.DocumentKind, maxSize int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown file type %q", ErrInvalidUpload, kind)
	}
	if err := CheckSize(size, maxSize); err != nil {
		return err
	}
	ext := Ext(name)
	allowed := Allowed(kind)
	if !slices.Contains(allowed, ext) {
		label := "code"
		if kind == models.DocumentKindSRS {
			label = "SRS"
		}
		return fmt.Errorf("%w: Unsupported %s file extension: %s (allowed: %s)",
			ErrInvalidUpload, label, ext, strings.Join(allowed, ", "))
	}
	return nil
}

// CheckSize rejects a document larger than maxSize. A non-positive maxSize
// means DefaultMaxFileSize.
func CheckSize(size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if size > maxSize {
		return fmt.Errorf("%w: File size exceeds %dMB limit", ErrInvalidUpload, maxSize>>20)
	}
	return nil
}

// Size measures stored content in bytes. Opaque base64 payloads count their
// decoded length.
func Size(content string, kind models.DocumentKind, mediaType string) int64 {
	if kind != models.DocumentKindCode && !strings.HasPrefix(mediaType, "text/") {
		if raw, err := base64.StdEncoding.DecodeString(content); err == nil {
			return int64(len(raw))
		}
	}
	return int64(len(content))
}

// Decode turns uploaded content into the stored form. A data URL prefix is
// stripped. Code documents and text/* media are base64-decoded to UTF-8 text
// when possible; everything else is kept as the opaque base64 payload.
func Decode(content string, kind models.DocumentKind, mediaType string) string {
	if strings.HasPrefix(content, "data:") {
		if _, payload, ok := strings.Cut(content, ","); ok {
			content = payload
		}
	}
	if kind != models.DocumentKindCode && !strings.HasPrefix(mediaType, "text/") {
		return content
	}
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil || !utf8.Valid(raw) {
		return content
	}
	return string(raw)
}

// DetectLanguage maps a file name to its language, "text" when unknown.
func DetectLanguage(name string) string {
	if lang, ok := languages[Ext(name)]; ok {
		return lang
	}
	return "text"
}

// Stats summarizes a session's documents.
func Stats(docs []models.Document) models.DocumentStats {
	stats := models.DocumentStats{
		TotalFiles: len(docs),
		Languages:  map[string]int{},
	}
	for _, d := range docs {
		stats.TotalSize += d.Size
		switch d.Kind {
		case models.DocumentKindCode:
			stats.CodeFiles++
			stats.Languages[DetectLanguage(d.Name)]++
		case models.DocumentKindSRS:
			stats.SRSFiles++
		}
	}
	return stats
}
