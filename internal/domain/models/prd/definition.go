package prd

// SectionDefinition is the static description of a section: what it is called,
// what the builder asks the user, and what counts as enough content.
type SectionDefinition struct {
	Key              SectionKey `yaml:"key" json:"key"`
	Title            string     `yaml:"title" json:"title"`
	Placeholder      string     `yaml:"placeholder" json:"placeholder"`
	Required         bool       `yaml:"required" json:"required"`
	MinContentLength int        `yaml:"min_content_length" json:"min_content_length"`
	GuideQuestions   []string   `yaml:"guide_questions" json:"guide_questions"`
}
