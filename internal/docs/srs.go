package docs

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joescharf/crv/internal/models"
)

// SRSKeywords are the phrases whose presence marks a requirements document.
var SRSKeywords = []string{
	"requirements", "specification", "functional", "non-functional",
	"system", "software", "user story", "use case", "acceptance criteria",
	"business rule", "constraint", "assumption", "dependency",
}

// MinSRSKeywords is the distinct keyword count at which a document is
// accepted as an SRS.
const MinSRSKeywords = 3

// SRSCheck is the result of the keyword heuristic.
type SRSCheck struct {
	IsValid       bool     `json:"is_valid_srs"`
	Confidence    float64  `json:"confidence"`
	KeywordsFound int      `json:"keywords_found"`
	Keywords      []string `json:"matched_keywords"`
	Message       string   `json:"message"`
}

// ValidateSRS counts the distinct SRS keywords present in text, case
// insensitively. Confidence reaches 100 at eight keywords.
func ValidateSRS(text string) SRSCheck {
	lower := strings.ToLower(text)
	found := []string{}
	for _, kw := range SRSKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	confidence := math.Min(float64(len(found))/8*100, 100)
	check := SRSCheck{
		IsValid:       len(found) >= MinSRSKeywords,
		Confidence:    math.Round(confidence*10) / 10,
		KeywordsFound: len(found),
		Keywords:      found,
		Message:       "Valid SRS document",
	}
	if !check.IsValid {
		check.Message = "This doesn't appear to be an SRS document. Please upload a Software Requirements Specification."
	}
	return check
}

// ExtractSRSText returns the readable text of a stored requirements document.
// Plain text formats are returned as stored; .docx and .pdf payloads are
// decoded from base64 first. Unreadable input yields an explanatory line
// instead of an error so prompts still render.
func ExtractSRSText(doc models.Document) string {
	ext := Ext(doc.Name)
	switch ext {
	case ".md", ".txt":
		return doc.Content
	case ".docx", ".doc":
		raw, err := base64.StdEncoding.DecodeString(doc.Content)
		if err != nil {
			return fmt.Sprintf("Error processing %s: %v", doc.Name, err)
		}
		text, err := docxText(raw)
		if err != nil {
			return fmt.Sprintf("Error reading DOCX: %v", err)
		}
		return text
	case ".pdf":
		raw, err := base64.StdEncoding.DecodeString(doc.Content)
		if err != nil {
			return fmt.Sprintf("Error processing %s: %v", doc.Name, err)
		}
		return pdfText(raw)
	default:
		return "Unsupported file type: " + ext
	}
}

// docxText joins the text runs of word/document.xml, one line per paragraph
// or table cell.
func docxText(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", err
	}
	f, err := zr.Open("word/document.xml")
	if err != nil {
		return "", err
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	var (
		lines  []string
		line   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				lines = append(lines, line.String())
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n"), nil
}

// pdfText returns the plain text of every page. The parser panics on some
// malformed files, so a panic is reported like any other read error.
func pdfText(raw []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = fmt.Sprintf("Error reading PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return fmt.Sprintf("Error reading PDF: %v", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return fmt.Sprintf("Error reading PDF: %v", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return fmt.Sprintf("Error reading PDF: %v", err)
	}
	if text = strings.TrimSpace(string(out)); text == "" {
		return "Error reading PDF: no extractable text"
	}
	return text
}
