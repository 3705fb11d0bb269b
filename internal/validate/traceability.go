package validate

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/joescharf/crv/internal/models"
)

// Requirements validates a raw requirements array. Entries without a
// description are dropped; missing ids are numbered by position.
func Requirements(raw gjson.Result, limit int) []models.Requirement {
	reqs := []models.Requirement{}
	for i, obj := range firstN(raw, limit) {
		if !obj.IsObject() {
			continue
		}
		desc := str(obj, "description", "")
		if desc == "" {
			continue
		}
		priority := DefaultPriority
		if p, ok := models.ParseSeverity(str(obj, "priority", "")); ok {
			priority = string(p)
		}
		reqs = append(reqs, models.Requirement{
			ID:                  str(obj, "id", fmt.Sprintf("REQ-%03d", i+1)),
			Description:         desc,
			Category:            str(obj, "category", DefaultRequirementCat),
			Priority:            priority,
			ImplementationHints: stringList(obj, "implementation_hints"),
		})
	}
	return reqs
}

// Structure validates the outline of one code document. Symbols and
// endpoints without a name or path are dropped.
func Structure(raw gjson.Result, file, language string) models.CodeStructure {
	cs := models.CodeStructure{
		File:      file,
		Language:  language,
		Functions: symbols(raw.Get("functions")),
		Classes:   symbols(raw.Get("classes")),
		Endpoints: []models.Endpoint{},
	}
	for _, obj := range raw.Get("endpoints").Array() {
		path := str(obj, "path", "")
		if !obj.IsObject() || path == "" {
			continue
		}
		cs.Endpoints = append(cs.Endpoints, models.Endpoint{
			Path:    path,
			Method:  str(obj, "method", "GET"),
			Line:    max(DefaultLine, integer(obj, "line", DefaultLine)),
			Purpose: str(obj, "purpose", ""),
		})
	}
	return cs
}

func symbols(raw gjson.Result) []models.CodeSymbol {
	out := []models.CodeSymbol{}
	for _, obj := range raw.Array() {
		name := str(obj, "name", "")
		if !obj.IsObject() || name == "" {
			continue
		}
		out = append(out, models.CodeSymbol{
			Name:       name,
			Line:       max(DefaultLine, integer(obj, "line", DefaultLine)),
			Purpose:    str(obj, "purpose", ""),
			Parameters: stringList(obj, "parameters"),
		})
	}
	return out
}

// Mappings validates the mappings proposed for one requirement. Confidence is
// clamped to [0,1]; mappings below minConfidence or without a code element
// and file are dropped.
func Mappings(raw gjson.Result, req models.Requirement, minConfidence float64) []models.TraceabilityMapping {
	out := []models.TraceabilityMapping{}
	for _, obj := range raw.Array() {
		if !obj.IsObject() {
			continue
		}
		element := str(obj, "code_element", "")
		file := str(obj, "file_path", "")
		if element == "" || file == "" {
			continue
		}
		confidence := Clamp(float(obj, "confidence_score", 0), 0, 1)
		if confidence < minConfidence {
			continue
		}
		line := integer(obj, "line_number", DefaultLine)
		if line <= 0 {
			line = DefaultLine
		}
		out = append(out, models.TraceabilityMapping{
			RequirementID:   req.ID,
			RequirementText: req.Description,
			CodeElement:     element,
			FilePath:        file,
			LineNumber:      line,
			ConfidenceScore: confidence,
			ElementType:     str(obj, "element_type", DefaultElementType),
			Reasoning:       str(obj, "reasoning", ""),
		})
	}
	return out
}
