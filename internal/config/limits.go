package config

import "prdbuilder/internal/domain/models/prd"

const (
	// MaxPRDTitleLength is the maximum length for PRD titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxPRDTitleLength = 255

	// MaxSectionContentLength caps a single section's content, in characters.
	MaxSectionContentLength = prd.MaxSectionContentLength
)
