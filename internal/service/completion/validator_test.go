package completion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prdbuilder/internal/domain/models/prd"
)

func completeSection(n int) prd.Section {
	return prd.Section{Content: strings.Repeat("x", n), Status: prd.StatusComplete}
}

// readyContent returns content where every required section passes
func readyContent() prd.DocumentContent {
	content := prd.DocumentContent{}
	for _, def := range DefaultCatalog().Definitions() {
		if def.Required {
			content[def.Key] = completeSection(def.MinContentLength)
		}
	}
	return content
}

func TestValidateSection(t *testing.T) {
	v := NewValidator(nil)

	tests := []struct {
		name      string
		key       prd.SectionKey
		section   *prd.Section
		wantValid bool
		wantIssue []string
	}{
		{
			name:      "absent section",
			key:       prd.SectionGoals,
			section:   nil,
			wantIssue: []string{"Goals & Objectives is empty"},
		},
		{
			name:      "whitespace only short-circuits",
			key:       prd.SectionGoals,
			section:   &prd.Section{Content: "  \n\t ", Status: prd.StatusInProgress},
			wantIssue: []string{"Goals & Objectives is empty"},
		},
		{
			name:      "too short but complete",
			key:       prd.SectionProblemStatement,
			section:   &prd.Section{Content: "0123456789", Status: prd.StatusComplete},
			wantIssue: []string{"Problem Statement needs more detail (minimum 100 characters, currently 10)"},
		},
		{
			name:    "too short and in progress",
			key:     prd.SectionProblemStatement,
			section: &prd.Section{Content: "  short  ", Status: prd.StatusInProgress},
			wantIssue: []string{
				"Problem Statement needs more detail (minimum 100 characters, currently 5)",
				"Problem Statement is still in progress",
			},
		},
		{
			name:      "long enough but in progress",
			key:       prd.SectionTargetUsers,
			section:   &prd.Section{Content: strings.Repeat("u", 60), Status: prd.StatusInProgress},
			wantIssue: []string{"Target Users is still in progress"},
		},
		{
			name:      "valid",
			key:       prd.SectionTargetUsers,
			section:   &prd.Section{Content: strings.Repeat("u", 50), Status: prd.StatusComplete},
			wantValid: true,
			wantIssue: []string{},
		},
		{
			name:      "length counts characters not bytes",
			key:       prd.SectionGoals,
			section:   &prd.Section{Content: strings.Repeat("é", 50), Status: prd.StatusComplete},
			wantValid: true,
			wantIssue: []string{},
		},
		{
			name:      "unknown key",
			key:       prd.SectionKey("appendix"),
			section:   &prd.Section{Content: "whatever", Status: prd.StatusComplete},
			wantIssue: []string{"Unknown section"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateSection(tt.key, tt.section)
			assert.Equal(t, tt.key, result.Key)
			assert.Equal(t, tt.wantValid, result.IsValid)
			assert.Equal(t, tt.wantIssue, result.Issues)
		})
	}
}

func TestValidateAllSectionsEmptyContent(t *testing.T) {
	report := NewValidator(nil).ValidateAllSections(prd.DocumentContent{})

	assert.False(t, report.IsReady)
	assert.Equal(t, 0, report.CompletedCount)
	assert.Equal(t, 6, report.TotalRequired)
	assert.Len(t, report.IncompleteRequired, 6)
	require.Len(t, report.SectionResults, 6)

	// Canonical order, optional section excluded
	want := []prd.SectionKey{
		prd.SectionProblemStatement,
		prd.SectionTargetUsers,
		prd.SectionGoals,
		prd.SectionUserStories,
		prd.SectionRequirements,
		prd.SectionSuccessMetrics,
	}
	for i, r := range report.SectionResults {
		assert.Equal(t, want[i], r.Key)
	}
}

func TestValidateAllSectionsReady(t *testing.T) {
	v := NewValidator(nil)
	content := readyContent()

	report := v.ValidateAllSections(content)
	assert.True(t, report.IsReady)
	assert.Equal(t, 6, report.CompletedCount)
	assert.Empty(t, report.IncompleteRequired)
	assert.True(t, v.IsReadyToComplete(content))
}

func TestValidateAllSectionsIgnoresTimeline(t *testing.T) {
	v := NewValidator(nil)

	content := readyContent()
	content[prd.SectionTimeline] = prd.Section{Content: "", Status: prd.StatusEmpty}
	assert.True(t, v.IsReadyToComplete(content))

	content[prd.SectionGoals] = prd.Section{Content: "tbd", Status: prd.StatusInProgress}
	report := v.ValidateAllSections(content)
	assert.False(t, report.IsReady)
	assert.Equal(t, 5, report.CompletedCount)
	require.Len(t, report.IncompleteRequired, 1)
	assert.Equal(t, prd.SectionGoals, report.IncompleteRequired[0].Key)
}

func TestValidateAllSectionsIsDeterministic(t *testing.T) {
	v := NewValidator(nil)
	content := readyContent()
	content[prd.SectionRequirements] = prd.Section{Content: "some", Status: prd.StatusInProgress}
	before := content.Clone()

	first := v.ValidateAllSections(content)
	second := v.ValidateAllSections(content)

	assert.Equal(t, first, second)
	assert.Equal(t, before, content, "validation must not modify content")
}
