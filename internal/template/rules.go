package template

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type ruleConfig struct {
	CauseMarkers     []string      `yaml:"cause_markers"`
	APIFunctions     []string      `yaml:"api_functions"`
	StatusCodes      []int         `yaml:"status_codes"`
	VariablePatterns []patternRule `yaml:"variable_patterns"`
}

type patternRule struct {
	Kind    SpanKind `yaml:"kind"`
	Pattern string   `yaml:"pattern"`
}

type compiledRules struct {
	causeMarkers []string
	apiFunctions map[string]bool
	statusCodes  map[string]bool
	variable     []compiledPattern
}

type compiledPattern struct {
	kind SpanKind
	re   *regexp.Regexp
}

func loadRules(data []byte) (*compiledRules, error) {
	var cfg ruleConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	r := &compiledRules{
		causeMarkers: cfg.CauseMarkers,
		apiFunctions: make(map[string]bool, len(cfg.APIFunctions)),
		statusCodes:  make(map[string]bool, len(cfg.StatusCodes)),
	}
	for _, fn := range cfg.APIFunctions {
		r.apiFunctions[fn] = true
	}
	for _, code := range cfg.StatusCodes {
		r.statusCodes[fmt.Sprintf("%d", code)] = true
	}
	for _, p := range cfg.VariablePatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q (%s): %w", p.Pattern, p.Kind, err)
		}
		r.variable = append(r.variable, compiledPattern{kind: p.Kind, re: re})
	}
	return r, nil
}

// defaultRules are compiled once from the embedded rules.yaml. The file is
// part of the build, so a parse failure is a programming error.
var defaultRules = func() *compiledRules {
	r, err := loadRules(rulesYAML)
	if err != nil {
		panic(fmt.Sprintf("load embedded rules.yaml: %v", err))
	}
	return r
}()
