package models

// DomainContext describes the application domain inferred from SRS text.
type DomainContext struct {
	Domain                  string   `json:"domain"`
	Compliance              []string `json:"compliance,omitempty"`
	SecurityLevel           string   `json:"security_level"`
	PerformanceRequirements []string `json:"performance_requirements,omitempty"`
	Integrations            []string `json:"integrations,omitempty"`
	UserTypes               []string `json:"user_types,omitempty"`
	DataSensitivity         string   `json:"data_sensitivity,omitempty"`
}

// TechStack describes the languages and frameworks seen in code documents.
type TechStack struct {
	Languages    []string `json:"languages"`
	Frameworks   []string `json:"frameworks"`
	Architecture string   `json:"architecture"`
}
