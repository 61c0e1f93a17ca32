// Package completion decides whether a PRD is ready to be completed.
//
// Validation is pure: the same content always yields the same report, and
// nothing is cached or written.
package completion

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"prdbuilder/internal/domain/models/prd"
)

// Validator evaluates document content against a section catalog
type Validator struct {
	catalog *Catalog
}

// NewValidator creates a validator for catalog. A nil catalog means DefaultCatalog.
func NewValidator(catalog *Catalog) *Validator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Validator{catalog: catalog}
}

// Catalog returns the validator's section catalog
func (v *Validator) Catalog() *Catalog {
	return v.catalog
}

// ValidateSection checks one section. A nil section is treated as absent.
//
// An empty section gets a single issue. Otherwise the length and status checks
// are both applied, so a section can carry two issues.
func (v *Validator) ValidateSection(key prd.SectionKey, section *prd.Section) prd.SectionValidationResult {
	def, ok := v.catalog.Definition(key)
	if !ok {
		return prd.SectionValidationResult{Key: key, IsValid: false, Issues: []string{"Unknown section"}}
	}

	issues := []string{}

	trimmed := ""
	if section != nil {
		trimmed = strings.TrimSpace(section.Content)
	}
	if trimmed == "" {
		issues = append(issues, fmt.Sprintf("%s is empty", def.Title))
		return prd.SectionValidationResult{Key: key, IsValid: false, Issues: issues}
	}

	if n := utf8.RuneCountInString(trimmed); n < def.MinContentLength {
		issues = append(issues, fmt.Sprintf("%s needs more detail (minimum %d characters, currently %d)",
			def.Title, def.MinContentLength, n))
	}

	if section.Status != prd.StatusComplete {
		issues = append(issues, fmt.Sprintf("%s is still in progress", def.Title))
	}

	return prd.SectionValidationResult{Key: key, IsValid: len(issues) == 0, Issues: issues}
}

// ValidateAllSections checks every required section; the optional section is
// left out of both the results and the total.
func (v *Validator) ValidateAllSections(content prd.DocumentContent) prd.CompletionValidation {
	required := v.catalog.RequiredKeys()

	report := prd.CompletionValidation{
		TotalRequired:      len(required),
		SectionResults:     make([]prd.SectionValidationResult, 0, len(required)),
		IncompleteRequired: []prd.SectionValidationResult{},
	}

	for _, key := range required {
		section, _ := content.Lookup(key)
		result := v.ValidateSection(key, section)

		report.SectionResults = append(report.SectionResults, result)
		if result.IsValid {
			report.CompletedCount++
		} else {
			report.IncompleteRequired = append(report.IncompleteRequired, result)
		}
	}

	report.IsReady = len(report.IncompleteRequired) == 0
	return report
}

// IsReadyToComplete reports whether every required section is valid
func (v *Validator) IsReadyToComplete(content prd.DocumentContent) bool {
	return v.ValidateAllSections(content).IsReady
}
