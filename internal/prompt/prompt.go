// Package prompt renders typed review tasks into the text sent to an oracle.
// Rendering is a pure function of the request and the caps.
package prompt

import (
	"fmt"
	"strings"

	"github.com/joescharf/crv/internal/extract"
)

// Kind tags a review task.
type Kind string

const (
	KindChecklist          Kind = "checklist"
	KindSRSContext         Kind = "srs_context"
	KindEnhancedChecklist  Kind = "enhanced_checklist"
	KindCodeAnalysis       Kind = "code_analysis"
	KindRequirements       Kind = "requirements"
	KindCodeStructure      Kind = "code_structure"
	KindMapping            Kind = "mapping"
	KindSemanticValidation Kind = "semantic_validation"
	KindHealth             Kind = "health"
	KindFix                Kind = "fix"
	KindSuggestions        Kind = "suggestions"
	KindChat               Kind = "chat"
	KindExecutiveSummary   Kind = "executive_summary"
	KindDetailedFindings   Kind = "detailed_findings"
	KindRecommendations    Kind = "recommendations"
)

// Kinds lists every task kind.
var Kinds = []Kind{
	KindChecklist, KindSRSContext, KindEnhancedChecklist, KindCodeAnalysis,
	KindRequirements, KindCodeStructure, KindMapping, KindSemanticValidation,
	KindHealth, KindFix, KindSuggestions, KindChat,
	KindExecutiveSummary, KindDetailedFindings, KindRecommendations,
}

// Document is one input document as the prompt sees it.
type Document struct {
	Name     string
	Language string
	Size     int64
	Content  string
}

// Section is a titled block of prior context. A positive Cap truncates the
// body to that many characters.
type Section struct {
	Title string
	Body  string
	Cap   int
}

// Request describes one oracle call.
type Request struct {
	Kind      Kind
	Documents []Document
	Sections  []Section
	// Message is free text rendered after the task line: the chat question
	// or the requirement being mapped.
	Message string
	// Cursor is the editor offset for suggestion requests.
	Cursor int
	// Notes are extra lines appended to the system prompt.
	Notes []string
}

// Prompt is the rendered (system, user) pair.
type Prompt struct {
	System string
	User   string
}

// Caps maps a kind to its document character cap. Kinds absent from the map
// are not truncated.
type Caps map[Kind]int

// DefaultCaps returns the stock per-kind document caps.
func DefaultCaps() Caps {
	return Caps{
		KindChecklist:          10000,
		KindSRSContext:         20000,
		KindCodeAnalysis:       8000,
		KindRequirements:       15000,
		KindCodeStructure:      8000,
		KindSemanticValidation: 10000,
		KindHealth:             12000,
		KindSuggestions:        5000,
	}
}

// Section caps used by callers for structured context.
const (
	StructureContextCap  = 10000
	SuggestionContextCap = 2000
	SummaryDataCap       = 8000
	FindingsDataCap      = 10000
	RecommendDataCap     = 8000
)

// Expects reports the JSON shape the kind asks for; free-text kinds report
// false.
func (k Kind) Expects() (extract.Shape, bool) {
	s, ok := specs[k]
	if !ok || s.format == "" {
		return 0, false
	}
	return s.shape, true
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := specs[k]
	return ok
}

// Build renders req. Unknown kinds render the documents with no preamble.
func Build(req Request, caps Caps) Prompt {
	s := specs[req.Kind]

	system := s.system
	if len(req.Notes) > 0 {
		system = strings.TrimSpace(system + "\n\n" + strings.Join(req.Notes, "\n"))
	}

	var sb strings.Builder
	if s.task != nil {
		sb.WriteString(s.task(req))
		sb.WriteString("\n\n")
	}
	if req.Message != "" {
		sb.WriteString(req.Message)
		sb.WriteString("\n\n")
	}
	if s.single && len(req.Documents) > 0 {
		d := req.Documents[0]
		fmt.Fprintf(&sb, "File: %s\n", d.Name)
		if d.Language != "" {
			fmt.Fprintf(&sb, "Language: %s\n", d.Language)
		}
		if s.withSize {
			fmt.Fprintf(&sb, "Size: %d bytes\n", d.Size)
		}
		sb.WriteString("\n")
	}
	for _, sec := range req.Sections {
		body := sec.Body
		if sec.Cap > 0 {
			body = Truncate(body, sec.Cap)
		}
		fmt.Fprintf(&sb, "%s:\n%s\n\n", sec.Title, body)
	}
	if len(req.Documents) > 0 || s.docsLabel != "" {
		if s.docsLabel != "" {
			sb.WriteString(s.docsLabel)
			sb.WriteString(":\n")
		}
		sb.WriteString(Truncate(documents(req.Documents, s.single), caps[req.Kind]))
		sb.WriteString("\n\n")
	}
	if s.ask != "" {
		sb.WriteString(s.ask)
		sb.WriteString("\n\n")
	}
	if s.format != "" {
		sb.WriteString(s.format)
	}
	return Prompt{System: system, User: strings.TrimRight(sb.String(), "\n")}
}

// documents concatenates document bodies. Multi-document kinds label each
// body with its name.
func documents(docs []Document, single bool) string {
	if single {
		if len(docs) == 0 {
			return ""
		}
		return docs[0].Content
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", d.Name, d.Content))
	}
	return strings.Join(parts, "\n\n")
}

// Truncate keeps the first n characters of s. A non-positive n keeps all.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
