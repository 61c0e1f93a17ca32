package prd

import (
	"fmt"
	"maps"
	"unicode/utf8"
)

// MaxSectionContentLength caps a single section's content, in characters
const MaxSectionContentLength = 50000

// SectionKey identifies one of the fixed PRD sections
type SectionKey string

const (
	SectionProblemStatement SectionKey = "problem_statement"
	SectionTargetUsers      SectionKey = "target_users"
	SectionGoals            SectionKey = "goals"
	SectionUserStories      SectionKey = "user_stories"
	SectionRequirements     SectionKey = "requirements"
	SectionSuccessMetrics   SectionKey = "success_metrics"
	SectionTimeline         SectionKey = "timeline"
)

// sectionOrder is the canonical display and validation order
var sectionOrder = []SectionKey{
	SectionProblemStatement,
	SectionTargetUsers,
	SectionGoals,
	SectionUserStories,
	SectionRequirements,
	SectionSuccessMetrics,
	SectionTimeline,
}

// SectionKeys returns all section keys in canonical order.
// The returned slice is a copy and may be modified by the caller.
func SectionKeys() []SectionKey {
	keys := make([]SectionKey, len(sectionOrder))
	copy(keys, sectionOrder)
	return keys
}

// IsValid reports whether k is one of the known section keys
func (k SectionKey) IsValid() bool {
	for _, known := range sectionOrder {
		if k == known {
			return true
		}
	}
	return false
}

// Index returns the canonical position of k, or -1 for unknown keys
func (k SectionKey) Index() int {
	for i, known := range sectionOrder {
		if k == known {
			return i
		}
	}
	return -1
}

// ParseSectionKey converts a raw string into a SectionKey
func ParseSectionKey(s string) (SectionKey, error) {
	k := SectionKey(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown section key %q", s)
	}
	return k, nil
}

// SectionStatus is the completion state of a single section
type SectionStatus string

const (
	StatusEmpty      SectionStatus = "empty"
	StatusInProgress SectionStatus = "in_progress"
	StatusComplete   SectionStatus = "complete"
)

// IsValid reports whether s is a known section status
func (s SectionStatus) IsValid() bool {
	switch s {
	case StatusEmpty, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

// Section is one structured unit of a PRD
type Section struct {
	Content string        `json:"content"`
	Status  SectionStatus `json:"status"`
}

// DocumentContent maps section keys to their sections.
// An absent key is equivalent to an empty section.
type DocumentContent map[SectionKey]Section

// Get returns the section for key, or an empty section when absent
func (c DocumentContent) Get(key SectionKey) Section {
	if s, ok := c[key]; ok {
		return s
	}
	return Section{Status: StatusEmpty}
}

// Lookup returns the section for key and whether it was present
func (c DocumentContent) Lookup(key SectionKey) (*Section, bool) {
	s, ok := c[key]
	if !ok {
		return nil, false
	}
	return &s, true
}

// Clone returns an independent copy of the content
func (c DocumentContent) Clone() DocumentContent {
	out := make(DocumentContent, len(c))
	maps.Copy(out, c)
	return out
}

// Validate checks that every key and status is known and no section exceeds
// MaxSectionContentLength
func (c DocumentContent) Validate() error {
	for key, section := range c {
		if !key.IsValid() {
			return fmt.Errorf("unknown section key %q", key)
		}
		if !section.Status.IsValid() {
			return fmt.Errorf("section %s has invalid status %q", key, section.Status)
		}
		if n := utf8.RuneCountInString(section.Content); n > MaxSectionContentLength {
			return fmt.Errorf("section %s exceeds %d characters (%d)", key, MaxSectionContentLength, n)
		}
	}
	return nil
}

// Equal reports whether both contents hold exactly the same sections
func (c DocumentContent) Equal(other DocumentContent) bool {
	return maps.Equal(c, other)
}

// SectionUpdate is one entry of a section-update batch
type SectionUpdate struct {
	SectionKey SectionKey    `json:"section_key"`
	Content    string        `json:"content"`
	Status     SectionStatus `json:"status"`
}
