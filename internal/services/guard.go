package services

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const DefaultMaxQueryChars = 500

// DefaultForbiddenPatterns are matched case-insensitively as plain substrings.
var DefaultForbiddenPatterns = []string{
	"ignore previous instructions",
	"reveal system prompt",
	"show hidden prompt",
	"print system prompt",
	"show all data",
	"get all data",
	"dump database",
}

// GuardConfig is also the on-disk YAML shape of the pattern file.
type GuardConfig struct {
	MaxQueryChars     int      `yaml:"max_query_chars"`
	ForbiddenPatterns []string `yaml:"forbidden_patterns"`
}

type guardRules struct {
	maxChars int
	patterns []string
}

// Guard rejects empty, oversized and injection-like queries before any paid
// call is made. Rules can be swapped at runtime.
type Guard struct {
	rules atomic.Pointer[guardRules]
}

func NewGuard(cfg GuardConfig) *Guard {
	g := &Guard{}
	g.Replace(cfg)
	return g
}

// Replace installs a new rule snapshot. Zero values fall back to defaults.
func (g *Guard) Replace(cfg GuardConfig) {
	maxChars := cfg.MaxQueryChars
	if maxChars <= 0 {
		maxChars = DefaultMaxQueryChars
	}
	src := cfg.ForbiddenPatterns
	if len(src) == 0 {
		src = DefaultForbiddenPatterns
	}
	patterns := make([]string, 0, len(src))
	for _, p := range src {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	g.rules.Store(&guardRules{maxChars: maxChars, patterns: patterns})
}

func (g *Guard) MaxQueryChars() int {
	return g.rules.Load().maxChars
}

// Validate returns the query unchanged when it passes every check.
func (g *Guard) Validate(query string) (string, error) {
	r := g.rules.Load()
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	if n := utf8.RuneCountInString(query); n > r.maxChars {
		return "", &QueryLengthError{Length: n, Max: r.maxChars}
	}
	lower := strings.ToLower(query)
	for _, p := range r.patterns {
		if strings.Contains(lower, p) {
			return "", ErrPromptInjection
		}
	}
	return query, nil
}

// LoadGuardConfig reads a YAML pattern file.
func LoadGuardConfig(path string) (GuardConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return GuardConfig{}, fmt.Errorf("read guard config: %w", err)
	}
	var cfg GuardConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return GuardConfig{}, fmt.Errorf("parse guard config %s: %w", path, err)
	}
	if cfg.MaxQueryChars < 0 {
		return GuardConfig{}, fmt.Errorf("parse guard config %s: max_query_chars must be positive", path)
	}
	return cfg, nil
}
