package docs

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"

	"github.com/joescharf/crv/internal/models"
)

// IgnorePatterns are archive entries skipped during expansion: hidden files
// and directories at any depth, and macOS resource forks.
var IgnorePatterns = []string{".**", "**/.**", "**__MACOSX**"}

var ignoreMatchers = compileGlobs(IgnorePatterns)

func compileGlobs(patterns []string) []glob.Glob {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		matchers = append(matchers, glob.MustCompile(p, '/'))
	}
	return matchers
}

// Ignored reports whether an archive entry name matches an ignore pattern.
func Ignored(name string) bool {
	for _, g := range ignoreMatchers {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Entry is one code file recovered from an uploaded archive.
type Entry struct {
	Name    string
	Content string
}

// ExpandZip extracts the code files of an archive in entry order. Ignored,
// non-code and binary entries are skipped; expansion stops after maxFiles.
// An entry that decompresses past maxSize fails the whole archive.
func ExpandZip(data []byte, maxFiles int, maxSize int64) ([]Entry, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: Error processing ZIP file: %v", ErrInvalidUpload, err)
	}

	entries := []Entry{}
	for _, f := range zr.File {
		if maxFiles > 0 && len(entries) >= maxFiles {
			break
		}
		if f.FileInfo().IsDir() || Ignored(f.Name) {
			continue
		}
		if !slices.Contains(CodeExtensions, Ext(f.Name)) {
			continue
		}
		raw, err := readEntry(f, maxSize)
		if errors.Is(err, errEntryTooLarge) {
			return nil, fmt.Errorf("%w: File size exceeds %dMB limit: %s", ErrInvalidUpload, maxSize>>20, f.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: Error processing ZIP file: %s: %v", ErrInvalidUpload, f.Name, err)
		}
		text, ok := asText(raw)
		if !ok {
			continue
		}
		entries = append(entries, Entry{Name: f.Name, Content: text})
	}
	return entries, nil
}

var errEntryTooLarge = errors.New("entry too large")

// readEntry reads at most maxSize bytes of f. The declared header size is not
// trusted; the decompressed stream is measured.
func readEntry(f *zip.File, maxSize int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(maxSize) {
		return nil, errEntryTooLarge
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	raw, err := io.ReadAll(io.LimitReader(rc, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxSize {
		return nil, errEntryTooLarge
	}
	return raw, nil
}

// asText decodes UTF-8, falling back to Latin-1. Content with NUL bytes is
// treated as binary.
func asText(raw []byte) (string, bool) {
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", false
	}
	if utf8.Valid(raw) {
		return string(raw), true
	}
	var sb strings.Builder
	sb.Grow(len(raw))
	for _, b := range raw {
		sb.WriteRune(rune(b))
	}
	return sb.String(), true
}

// ZipName is the download file name for a session's archive.
func ZipName(sessionID string) string {
	return fmt.Sprintf("session_%s_files.zip", sessionID)
}

// BuildZip packs every document that has content into a deflated archive.
// Opaque binary SRS payloads are written decoded.
func BuildZip(docs []models.Document) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, d := range docs {
		if d.Content == "" {
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: path.Clean(d.Name), Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", d.Name, err)
		}
		if _, err := w.Write(payload(d)); err != nil {
			return nil, fmt.Errorf("write %s: %w", d.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func payload(d models.Document) []byte {
	if d.Kind == models.DocumentKindSRS && !strings.HasPrefix(d.MediaType, "text/") {
		switch Ext(d.Name) {
		case ".pdf", ".doc", ".docx":
			if raw, err := base64.StdEncoding.DecodeString(d.Content); err == nil {
				return raw
			}
		}
	}
	return []byte(d.Content)
}
