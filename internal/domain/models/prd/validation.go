package prd

// SectionValidationResult is the readiness verdict for one section
type SectionValidationResult struct {
	Key     SectionKey `json:"key"`
	IsValid bool       `json:"is_valid"`
	Issues  []string   `json:"issues"`
}

// CompletionValidation is the readiness report for a whole document.
// It is derived from DocumentContent on demand and never persisted.
type CompletionValidation struct {
	IsReady            bool                      `json:"is_ready"`
	CompletedCount     int                       `json:"completed_count"`
	TotalRequired      int                       `json:"total_required"`
	SectionResults     []SectionValidationResult `json:"section_results"`
	IncompleteRequired []SectionValidationResult `json:"incomplete_required"`
}
