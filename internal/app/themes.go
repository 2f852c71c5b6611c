package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyCatalog = errors.New("theme catalog has no themes")

// Theme is one catalog entry; a review matches it when any keyword occurs in its text.
type Theme struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// ThemeCatalog is ordered; matches are reported in catalog order.
type ThemeCatalog []Theme

// DefaultThemeCatalog covers the satisfaction drivers and the recurring complaint areas of banking apps.
func DefaultThemeCatalog() ThemeCatalog {
	return ThemeCatalog{
		{Name: "Fast/Efficient", Keywords: []string{"fast", "quick", "speed", "efficient", "instant", "rapid"}},
		{Name: "Easy to Use", Keywords: []string{"easy", "simple", "user friendly", "intuitive", "straightforward"}},
		{Name: "Reliable/Stable", Keywords: []string{"reliable", "stable", "works", "good", "excellent", "great"}},
		{Name: "Secure", Keywords: []string{"secure", "safe", "security", "protected"}},
		{Name: "Convenient", Keywords: []string{"convenient", "helpful", "useful", "accessible", "available"}},
		{Name: "Account Access Issues", Keywords: []string{"login", "log in", "password", "otp", "pin code", "locked", "verification"}},
		{Name: "Transaction Performance", Keywords: []string{"transfer", "transaction", "payment", "slow", "loading", "timeout", "failed"}},
		{Name: "User Interface & Experience", Keywords: []string{"interface", "design", "layout", "navigation", "user experience", "confusing"}},
		{Name: "Customer Support", Keywords: []string{"support", "customer service", "call center", "response", "branch"}},
		{Name: "Feature Requests", Keywords: []string{"feature", "please add", "option", "wish", "should have", "update"}},
	}
}

// Index returns the catalog position of a theme name, or -1.
func (c ThemeCatalog) Index(name string) int {
	for i, t := range c {
		if t.Name == name {
			return i
		}
	}
	return -1
}

// MatchThemes returns the names of every theme with a keyword occurring in text,
// case-insensitively, in catalog order and without duplicates.
func MatchThemes(c ThemeCatalog, text string) []string {
	low := strings.ToLower(text)
	var out []string
	seen := map[string]struct{}{}
	for _, t := range c {
		if _, ok := seen[t.Name]; ok {
			continue
		}
		for _, kw := range t.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(low, kw) {
				out = append(out, t.Name)
				seen[t.Name] = struct{}{}
				break
			}
		}
	}
	return out
}

type catalogFile struct {
	Themes []Theme `yaml:"themes"`
}

// LoadThemeCatalog reads a YAML catalog of the form `themes: [{name, keywords}]`.
// An empty path yields the default catalog.
func LoadThemeCatalog(path string) (ThemeCatalog, error) {
	if path == "" {
		return DefaultThemeCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse theme catalog %s: %w", path, err)
	}
	var out ThemeCatalog
	for _, t := range f.Themes {
		if strings.TrimSpace(t.Name) == "" || len(t.Keywords) == 0 {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCatalog
	}
	return out, nil
}
