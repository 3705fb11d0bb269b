package docs

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/crv/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		kind    models.DocumentKind
		wantErr string
	}{
		{"python code", "app.py", 100, models.DocumentKindCode, ""},
		{"upper-case extension", "APP.PY", 100, models.DocumentKindCode, ""},
		{"docx srs", "spec.docx", 100, models.DocumentKindSRS, ""},
		{"binary code", "app.exe", 100, models.DocumentKindCode, "Unsupported code file extension: .exe"},
		{"python as srs", "app.py", 100, models.DocumentKindSRS, "Unsupported SRS file extension: .py"},
		{"oversize", "app.py", 51 << 20, models.DocumentKindCode, "File size exceeds 50MB limit"},
		{"unknown kind", "app.py", 1, models.DocumentKind("binary"), "unknown file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, tt.size, tt.kind, DefaultMaxFileSize)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidUpload)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ListsAllowedExtensions(t *testing.T) {
	err := Validate("notes.rtf", 1, models.DocumentKindSRS, DefaultMaxFileSize)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".pdf, .doc, .docx, .md, .txt")
}

func TestDecode(t *testing.T) {
	src := "def f(x):\n    return x.y\n"
	enc := base64.StdEncoding.EncodeToString([]byte(src))

	assert.Equal(t, src, Decode(enc, models.DocumentKindCode, "text/x-python"))
	assert.Equal(t, src, Decode("data:text/x-python;base64,"+enc, models.DocumentKindCode, ""))
	assert.Equal(t, src, Decode(enc, models.DocumentKindSRS, "text/plain"))

	// opaque srs payloads stay encoded
	assert.Equal(t, enc, Decode(enc, models.DocumentKindSRS, "application/pdf"))

	// undecodable content is kept as sent
	assert.Equal(t, "plain text, not base64!", Decode("plain text, not base64!", models.DocumentKindCode, ""))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "python", DetectLanguage("a/b/main.py"))
	assert.Equal(t, "typescript", DetectLanguage("App.TSX"))
	assert.Equal(t, "yaml", DetectLanguage("ci.yml"))
	assert.Equal(t, "text", DetectLanguage("README"))
	assert.Equal(t, "text", DetectLanguage("notes.txt"))
}

func TestStats(t *testing.T) {
	stats := Stats([]models.Document{
		{Name: "a.py", Kind: models.DocumentKindCode, Size: 10},
		{Name: "b.py", Kind: models.DocumentKindCode, Size: 20},
		{Name: "c.go", Kind: models.DocumentKindCode, Size: 5},
		{Name: "spec.md", Kind: models.DocumentKindSRS, Size: 100},
	})
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 3, stats.CodeFiles)
	assert.Equal(t, 1, stats.SRSFiles)
	assert.Equal(t, int64(135), stats.TotalSize)
	assert.Equal(t, map[string]int{"python": 2, "go": 1}, stats.Languages)

	assert.NotNil(t, Stats(nil).Languages)
}

func TestValidateSRS(t *testing.T) {
	doc := `Software Requirements Specification
1. FUNCTIONAL REQUIREMENTS
The system shall let users log in.
2. NON-FUNCTIONAL REQUIREMENTS
Passwords must be hashed.`

	check := ValidateSRS(doc)
	assert.True(t, check.IsValid)
	assert.GreaterOrEqual(t, check.KeywordsFound, 3)
	assert.Contains(t, check.Keywords, "requirements")
	assert.Equal(t, "Valid SRS document", check.Message)
	// requirements, specification, functional, non-functional, system, software
	assert.Equal(t, 6, check.KeywordsFound)
	assert.Equal(t, 75.0, check.Confidence)
}

func TestValidateSRS_NotAnSRS(t *testing.T) {
	check := ValidateSRS("def add(a, b):\n    return a + b\n")
	assert.False(t, check.IsValid)
	assert.Zero(t, check.KeywordsFound)
	assert.Equal(t, 0.0, check.Confidence)
	assert.Contains(t, check.Message, "doesn't appear")

	full := ValidateSRS(strings.Join(SRSKeywords, " "))
	assert.Equal(t, 100.0, full.Confidence)
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildPDF writes a one-page PDF drawing content with Helvetica, with a
// correct cross-reference table.
func buildPDF(content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractSRSText(t *testing.T) {
	t.Run("markdown is returned as stored", func(t *testing.T) {
		doc := models.Document{Name: "spec.md", Content: "# Requirements"}
		assert.Equal(t, "# Requirements", ExtractSRSText(doc))
	})

	t.Run("docx paragraphs become lines", func(t *testing.T) {
		raw := buildDocx(t, `<w:p><w:r><w:t>System Requirements</w:t></w:r></w:p><w:p><w:r><w:t>Users </w:t></w:r><w:r><w:t>log in.</w:t></w:r></w:p>`)
		doc := models.Document{Name: "spec.docx", Content: base64.StdEncoding.EncodeToString(raw)}
		assert.Equal(t, "System Requirements\nUsers log in.", ExtractSRSText(doc))
	})

	t.Run("bad docx reports the error", func(t *testing.T) {
		doc := models.Document{Name: "spec.docx", Content: base64.StdEncoding.EncodeToString([]byte("nope"))}
		assert.Contains(t, ExtractSRSText(doc), "Error reading DOCX")
	})

	t.Run("pdf page text", func(t *testing.T) {
		raw := buildPDF(`BT /F1 12 Tf 72 720 Td (Functional \(core\) requirements) Tj ET`)
		doc := models.Document{Name: "spec.pdf", Content: base64.StdEncoding.EncodeToString(raw)}
		assert.Contains(t, ExtractSRSText(doc), "Functional (core) requirements")
	})

	t.Run("bad pdf reports the error", func(t *testing.T) {
		doc := models.Document{Name: "spec.pdf", Content: base64.StdEncoding.EncodeToString([]byte("not a pdf"))}
		assert.Contains(t, ExtractSRSText(doc), "Error reading PDF")
	})

	t.Run("unknown extension", func(t *testing.T) {
		assert.Equal(t, "Unsupported file type: .rtf", ExtractSRSText(models.Document{Name: "a.rtf"}))
	})
}

func buildZip(t *testing.T, files map[string][]byte, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExpandZip(t *testing.T) {
	files := map[string][]byte{
		"src/main.py":          []byte("print('hi')"),
		".env":                 []byte("SECRET=1"),
		"src/.cache/x.py":      []byte("x = 1"),
		"__MACOSX/src/main.py": []byte("junk"),
		"image.png":            []byte("\x89PNG"),
		"src/blob.c":           []byte("int x;\x00\x01"),
		"src/latin.txt":        {'c', 'a', 'f', 0xe9},
		"src/util.go":          []byte("package util"),
	}
	order := []string{".env", "src/main.py", "src/.cache/x.py", "__MACOSX/src/main.py", "image.png", "src/blob.c", "src/latin.txt", "src/util.go"}

	entries, err := ExpandZip(buildZip(t, files, order), 100, 1<<20)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "src/main.py", entries[0].Name)
	assert.Equal(t, "src/latin.txt", entries[1].Name)
	assert.Equal(t, "café", entries[1].Content)
	assert.Equal(t, "src/util.go", entries[2].Name)

	capped, err := ExpandZip(buildZip(t, files, order), 2, 1<<20)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestExpandZip_NotAZip(t *testing.T) {
	_, err := ExpandZip([]byte("not a zip"), 10, 0)
	assert.ErrorIs(t, err, ErrInvalidUpload)
}

func TestExpandZip_EntryOverLimit(t *testing.T) {
	files := map[string][]byte{
		"small.py": []byte("x = 1"),
		"huge.py":  bytes.Repeat([]byte("a"), 4096),
	}
	data := buildZip(t, files, []string{"small.py", "huge.py"})
	require.Less(t, len(data), 4096)

	_, err := ExpandZip(data, 10, 1024)
	require.ErrorIs(t, err, ErrInvalidUpload)
	assert.Contains(t, err.Error(), "huge.py")

	entries, err := ExpandZip(data, 10, 4096)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSizeAndCheckSize(t *testing.T) {
	raw := []byte("%PDF-1.4 binary payload")
	encoded := base64.StdEncoding.EncodeToString(raw)
	assert.Equal(t, int64(len(raw)), Size(encoded, models.DocumentKindSRS, "application/pdf"))
	assert.Equal(t, int64(5), Size("hello", models.DocumentKindCode, "text/x-python"))

	assert.NoError(t, CheckSize(10, 10))
	assert.ErrorIs(t, CheckSize(11, 10), ErrInvalidUpload)
	assert.NoError(t, CheckSize(DefaultMaxFileSize, 0))
}

func TestIgnored(t *testing.T) {
	assert.True(t, Ignored(".git/config"))
	assert.True(t, Ignored("pkg/.idea/workspace.xml"))
	assert.True(t, Ignored("__MACOSX/._a.py"))
	assert.False(t, Ignored("pkg/app.py"))
}

func TestBuildZip(t *testing.T) {
	pdf := []byte("%PDF-1.4 binary")
	docs := []models.Document{
		{Name: "app.py", Kind: models.DocumentKindCode, Content: "print(1)"},
		{Name: "empty.py", Kind: models.DocumentKindCode},
		{Name: "spec.pdf", Kind: models.DocumentKindSRS, MediaType: "application/pdf", Content: base64.StdEncoding.EncodeToString(pdf)},
	}

	data, err := BuildZip(docs)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	got := map[string]string{}
	for _, f := range zr.File {
		raw, err := readEntry(f, DefaultMaxFileSize)
		require.NoError(t, err)
		got[f.Name] = string(raw)
	}
	assert.Equal(t, "print(1)", got["app.py"])
	assert.Equal(t, string(pdf), got["spec.pdf"])

	assert.Equal(t, "session_abc_files.zip", ZipName("abc"))
}
