package completion

import (
	_ "embed"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"prdbuilder/internal/domain/models/prd"
)

//go:embed sections.yaml
var sectionsYAML []byte

// minGuideQuestions is the fewest guide questions a section may carry
const minGuideQuestions = 3

// Catalog is the immutable table of section definitions
type Catalog struct {
	defs     []prd.SectionDefinition
	byKey    map[prd.SectionKey]prd.SectionDefinition
	required []prd.SectionKey
}

type catalogFile struct {
	Sections []prd.SectionDefinition `yaml:"sections"`
}

// defaultCatalog is decoded once from the embedded YAML; it is never mutated.
var defaultCatalog = mustParseCatalog(sectionsYAML)

// DefaultCatalog returns the built-in section catalog
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

func mustParseCatalog(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded section catalog: %v", err))
	}
	return c
}

// ParseCatalog decodes and checks a section catalog.
// The catalog must define every section key exactly once, in canonical order,
// with exactly one optional section.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	keys := prd.SectionKeys()
	if len(file.Sections) != len(keys) {
		return nil, fmt.Errorf("catalog defines %d sections, want %d", len(file.Sections), len(keys))
	}

	c := &Catalog{
		defs:  make([]prd.SectionDefinition, 0, len(keys)),
		byKey: make(map[prd.SectionKey]prd.SectionDefinition, len(keys)),
	}

	optional := 0
	for i, def := range file.Sections {
		if err := validateDefinition(&def); err != nil {
			return nil, fmt.Errorf("section %d (%s): %w", i, def.Key, err)
		}
		if def.Key != keys[i] {
			return nil, fmt.Errorf("section %d is %q, want %q", i, def.Key, keys[i])
		}

		c.defs = append(c.defs, def)
		c.byKey[def.Key] = def
		if def.Required {
			c.required = append(c.required, def.Key)
		} else {
			optional++
		}
	}

	if optional != 1 {
		return nil, fmt.Errorf("catalog has %d optional sections, want exactly 1", optional)
	}

	return c, nil
}

func validateDefinition(def *prd.SectionDefinition) error {
	known := make([]interface{}, 0, len(prd.SectionKeys()))
	for _, k := range prd.SectionKeys() {
		known = append(known, k)
	}

	return validation.ValidateStruct(def,
		validation.Field(&def.Key, validation.Required, validation.In(known...)),
		validation.Field(&def.Title, validation.Required),
		validation.Field(&def.MinContentLength, validation.Min(0)),
		validation.Field(&def.GuideQuestions,
			validation.Required,
			validation.Length(minGuideQuestions, 0),
			validation.Each(validation.Required),
		),
	)
}

// Definitions returns all definitions in canonical order
func (c *Catalog) Definitions() []prd.SectionDefinition {
	out := make([]prd.SectionDefinition, len(c.defs))
	for i, def := range c.defs {
		def.GuideQuestions = append([]string(nil), def.GuideQuestions...)
		out[i] = def
	}
	return out
}

// Definition looks up the definition of key
func (c *Catalog) Definition(key prd.SectionKey) (prd.SectionDefinition, bool) {
	def, ok := c.byKey[key]
	return def, ok
}

// RequiredKeys returns the required section keys in canonical order
func (c *Catalog) RequiredKeys() []prd.SectionKey {
	return append([]prd.SectionKey(nil), c.required...)
}
