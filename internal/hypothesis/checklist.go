package hypothesis

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed checklist.yaml
var checklistYAML []byte

// ChecklistItem is one seeding rule: keywords that, when present in an
// extracted template, suggest a candidate hypothesis.
type ChecklistItem struct {
	ID          string     `yaml:"id"`
	Category    Category   `yaml:"category"`
	Likelihood  Likelihood `yaml:"likelihood"`
	Description string     `yaml:"description"`
	Keywords    []string   `yaml:"keywords"`
	// Always seeds the item into every session regardless of keywords.
	Always bool `yaml:"always"`
}

// Checklist is the ordered seeding rule set.
type Checklist struct {
	Items []ChecklistItem `yaml:"checklist"`
}

// DefaultChecklist returns the embedded checklist. The file ships with the
// binary, so a parse failure is a programming error.
func DefaultChecklist() *Checklist {
	cl, err := ParseChecklist(checklistYAML)
	if err != nil {
		panic(fmt.Sprintf("load embedded checklist.yaml: %v", err))
	}
	return cl
}

// ParseChecklist parses a YAML checklist, validating categories and
// likelihoods so a bad rule file fails loudly at load time.
func ParseChecklist(data []byte) (*Checklist, error) {
	var cl Checklist
	if err := yaml.Unmarshal(data, &cl); err != nil {
		return nil, fmt.Errorf("parse checklist: %w", err)
	}
	for i, item := range cl.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("checklist item %d: missing id", i)
		}
		switch item.Category {
		case CategoryConfiguration, CategoryEnvironment, CategoryDataFormat, CategoryComplex:
		default:
			return nil, fmt.Errorf("checklist item %q: unknown category %q", item.ID, item.Category)
		}
		switch item.Likelihood {
		case LikelihoodHigh, LikelihoodMedium, LikelihoodLow:
		default:
			return nil, fmt.Errorf("checklist item %q: unknown likelihood %q", item.ID, item.Likelihood)
		}
	}
	return &cl, nil
}

// Matches reports whether the item's keywords hit the given text
// (case-insensitive substring match, the same discipline as the template
// rule layer).
func (it ChecklistItem) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range it.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
