package prompt

import (
	"fmt"

	"github.com/joescharf/crv/internal/extract"
)

type spec struct {
	system    string
	task      func(Request) string
	single    bool
	withSize  bool
	docsLabel string
	ask       string
	format    string
	shape     extract.Shape
}

const reviewerSystem = "You are an expert code reviewer and software architect. Provide detailed, actionable feedback."

func language(r Request) string {
	if len(r.Documents) > 0 && r.Documents[0].Language != "" {
		return r.Documents[0].Language
	}
	return "source"
}

func fixed(s string) func(Request) string {
	return func(Request) string { return s }
}

var specs = map[Kind]spec{
	KindChecklist: {
		system:    reviewerSystem,
		task:      fixed("Generate a code review checklist from the Software Requirements Specification (SRS) documents below."),
		docsLabel: "SRS Documents",
		ask: `Cover:
1. Security requirements and vulnerabilities
2. Performance criteria and optimization
3. Code quality and maintainability
4. Architecture and design patterns
5. Testing and validation requirements
6. Documentation standards

Give each item a category, a title, a description, a severity (critical, high, medium or low), whether it can be checked automatically, and concrete sub-items.`,
		format: `Respond with a JSON array only:
[
  {
    "category": "Security",
    "title": "Input Validation",
    "description": "All user inputs must be validated and sanitized",
    "severity": "critical",
    "automated": true,
    "items": ["Validate every API endpoint input", "Sanitize data before database writes"]
  }
]`,
		shape: extract.Array,
	},

	KindSRSContext: {
		system: checklistSystem,
		task:   fixed("Identify the application domain and special requirements of this SRS."),
		ask: `Report:
1. Application domain (e-commerce, healthcare, finance, ...)
2. Compliance regimes (GDPR, HIPAA, SOX, ...)
3. Security sensitivity (low, medium, high, critical)
4. Performance requirements
5. Integration requirements
6. User types and access levels
7. Data sensitivity (PII, financial, health, ...)`,
		docsLabel: "SRS Content",
		format: `Respond with a JSON object only:
{
  "domain": "healthcare",
  "compliance": ["HIPAA"],
  "security_level": "critical",
  "performance_requirements": ["sub-second response"],
  "integrations": ["payment gateway"],
  "user_types": ["admin", "patient"],
  "data_sensitivity": "high"
}`,
		shape: extract.Object,
	},

	KindEnhancedChecklist: {
		system: checklistSystem,
		task:   fixed("Generate a context-specific code review checklist for the domain and technology stack below."),
		ask: `For each item:
1. Make it specific to the domain and the technology
2. Include measurable criteria where possible
3. Order by risk and impact
4. Say whether it can be automated

Prefer 15-25 specific items over generic ones.`,
		format: `Respond with a JSON array only:
[
  {
    "category": "Security",
    "title": "Health Data Encryption",
    "description": "Patient data is encrypted at rest and in transit",
    "severity": "critical",
    "automated": true,
    "items": ["Verify field-level encryption for patient records", "Confirm TLS on every endpoint"],
    "relevant_requirement": "REQ-SEC-001"
  }
]`,
		shape: extract.Array,
	},

	KindCodeAnalysis: {
		system: reviewerSystem,
		task: func(r Request) string {
			return fmt.Sprintf("Review the following %s file against the checklist and general best practices.", language(r))
		},
		single:    true,
		docsLabel: "Code",
		ask:       `For every issue give the line number, severity (critical, high, medium or low), type, a short message, a description, a concrete fix, and whether the fix can be applied automatically.`,
		format: `Respond with a JSON object only:
{
  "issues": [
    {
      "line": 23,
      "type": "Security",
      "severity": "critical",
      "message": "Potential XSS vulnerability",
      "description": "User input is rendered without sanitizing",
      "suggestion": "Sanitize the HTML before rendering",
      "auto_fixable": true,
      "original_code": "el.innerHTML = user.bio",
      "fixed_code": "el.innerHTML = sanitize(user.bio)"
    }
  ]
}`,
		shape: extract.Object,
	},

	KindRequirements: {
		system:    traceabilitySystem,
		task:      fixed("Extract the individual requirements from these SRS documents."),
		docsLabel: "SRS Content",
		ask:       `For each requirement give a unique id, a description, a functional category, a priority (critical, high, medium or low) and hints about how it would be implemented.`,
		format: `Respond with a JSON array only:
[
  {
    "id": "REQ-001",
    "description": "Users log in with email and password",
    "category": "authentication",
    "priority": "critical",
    "implementation_hints": ["login handler", "password check"]
  }
]`,
		shape: extract.Array,
	},

	KindCodeStructure: {
		system: traceabilitySystem,
		task: func(r Request) string {
			return fmt.Sprintf("Outline the structure of the following %s code.", language(r))
		},
		single:    true,
		docsLabel: "Code",
		ask:       `List the functions and methods with their purpose, the classes with their responsibility, and any API endpoints.`,
		format: `Respond with a JSON object only:
{
  "functions": [{"name": "login", "line": 45, "purpose": "authenticates a user", "parameters": ["email", "password"]}],
  "classes": [{"name": "AuthService", "line": 12, "purpose": "session handling"}],
  "endpoints": [{"path": "/api/login", "method": "POST", "line": 78, "purpose": "user login"}]
}`,
		shape: extract.Object,
	},

	KindMapping: {
		system: traceabilitySystem,
		task:   fixed("Map the requirement below to the code elements that implement it."),
		ask:    `Pick the best matches and give each a confidence score between 0 and 1.`,
		format: `Respond with a JSON object only:
{
  "mappings": [
    {
      "code_element": "login",
      "file_path": "auth.py",
      "line_number": 45,
      "confidence_score": 0.9,
      "element_type": "function",
      "reasoning": "Implements the credential check"
    }
  ]
}`,
		shape: extract.Object,
	},

	KindSemanticValidation: {
		system: `You are an expert code analyst focused on semantic validation. You compare what code intends with what it does, find logic flaws and business rule violations, spot architectural inconsistencies, check that requirements are met, and trace data flow and state handling.`,
		task: func(r Request) string {
			return fmt.Sprintf("Perform a semantic review of this %s file.", language(r))
		},
		single:    true,
		docsLabel: "Code",
		ask: `Look for:
1. Logic errors and business rule violations
2. Data flow and state management problems
3. Missing error handling
4. Security vulnerabilities such as injection or XSS
5. Performance bottlenecks
6. Requirements the code fails to satisfy
7. Code smells and architectural violations

For every issue give the line number, severity (critical, high, medium or low), an explanation, a fix, whether it can be fixed automatically, and the business impact.`,
		format: `Respond with a JSON object only:
{
  "issues": [
    {
      "line": 45,
      "type": "Logic Error",
      "severity": "high",
      "message": "Possible null dereference",
      "description": "The parameter is used without a nil check",
      "suggestion": "Check the parameter before use",
      "auto_fixable": true,
      "business_impact": "Sign-up can crash"
    }
  ]
}`,
		shape: extract.Object,
	},

	KindHealth: {
		system: `You are an expert code quality analyst. You estimate cyclomatic complexity, maintainability, duplication, security risk, performance risk and technical debt.`,
		task: func(r Request) string {
			return fmt.Sprintf("Assess the health of this %s file.", language(r))
		},
		single:    true,
		withSize:  true,
		docsLabel: "Code",
		ask: `Estimate:
1. Complexity (0-100)
2. Maintainability index (0-100, higher is better)
3. Test coverage (0-100)
4. Duplication percentage
5. Security risk level (low, medium, high or critical)
6. Number of performance issues
7. Technical debt in hours`,
		format: `Respond with a JSON object only:
{
  "complexity_score": 25,
  "maintainability_index": 78,
  "test_coverage": 65,
  "code_duplication": 12,
  "security_risk_level": "medium",
  "performance_issues": 3,
  "technical_debt_hours": 4.5,
  "key_concerns": ["Deep nesting in main", "No input validation"]
}`,
		shape: extract.Object,
	},

	KindFix: {
		system: reviewerSystem,
		task: func(r Request) string {
			name := ""
			if len(r.Documents) > 0 {
				name = r.Documents[0].Name
			}
			return fmt.Sprintf("Fix the listed issues in the file '%s'.", name)
		},
		single:    true,
		docsLabel: "Original code",
		ask:       `Return the complete fixed file, a summary of the changes, and the issues you addressed.`,
		format: `Respond with a JSON object only:
{
  "fixed_code": "the complete fixed file",
  "changes_summary": "what changed",
  "issues_fixed": ["issue one", "issue two"]
}`,
		shape: extract.Object,
	},

	KindSuggestions: {
		system: `You are an expert coding assistant giving suggestions while code is being edited: completions, best practices, security hardening, performance and refactoring.`,
		task: func(r Request) string {
			return fmt.Sprintf("Suggest improvements for this %s code at cursor position %d.", language(r), r.Cursor)
		},
		single:    true,
		docsLabel: "Code",
		ask:       `Give 3-5 suggestions covering completion at the cursor, refactoring, security, performance and best practice fixes.`,
		format: `Respond with a JSON array only:
[
  {"type": "completion", "suggestion": "return cache[key]", "description": "avoids a second lookup", "priority": "high"}
]`,
		shape: extract.Array,
	},

	KindChat: {
		system: `You are a software development assistant with full awareness of the current code review session. You answer questions about the uploaded code and requirements, explain analysis results and traceability mappings, give architectural guidance, help with refactoring, and walk the user through compliance and review. Reference specific files, requirements and results when relevant. Be conversational but precise.`,
	},

	KindExecutiveSummary: {
		system: reportSystem,
		task:   fixed("Write an executive summary of this code review."),
		ask: `The summary should:
1. Open with an overall verdict (Pass, Conditional Pass or Fail)
2. Highlight the key metrics and findings
3. Name the top 3 risks
4. Assess business impact
5. Recommend a remediation timeline

Use plain language suitable for executives and project managers, 300-500 words.`,
	},

	KindDetailedFindings: {
		system: reportSystem,
		task:   fixed("Write the detailed technical findings of this code review."),
		ask:    `Include security findings with risk levels, performance issues, code quality violations, architecture concerns, compliance gaps and traceability coverage. Reference files and line numbers where possible.`,
	},

	KindRecommendations: {
		system: reportSystem,
		task:   fixed("Write prioritized recommendations from this code review."),
		ask:    `Group them as immediate actions for critical issues, short-term improvements (1-2 weeks), long-term changes (1-3 months), process improvements, and tooling or automation. Give each an effort estimate and its business value.`,
	},
}

const checklistSystem = `You are a software quality architect who writes code review checklists. You turn natural-language requirements into actionable review points, account for domain compliance needs, prioritize security, performance and maintainability, and give measurable criteria suited to the technology stack.`

const traceabilitySystem = `You are a software architect specializing in requirements traceability. You map requirements to the code that implements them, read function and class names for intent, find implementation gaps, and give a confidence score for every mapping.`

const reportSystem = `You are a technical writer for software compliance and audit reports. You write executive summaries, document compliance adherence and gaps, assess risk, and prioritize technical debt.`
