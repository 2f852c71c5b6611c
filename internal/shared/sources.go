package shared

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fintech_reviews/internal/domain"
)

// DefaultSources are the banking apps analysed when no sources file is configured.
var DefaultSources = []domain.Source{
	{Name: "CBE", AppName: "CBE Mobile Banking", AppID: "com.cbe.mobilebanking", Aliases: []string{"Commercial Bank of Ethiopia"}},
	{Name: "BOA", AppName: "BOA Mobile Banking", AppID: "com.bankofabyssinia.mobilebanking", Aliases: []string{"Bank of Abyssinia"}},
	{Name: "Dashen", AppName: "Dashen Mobile Banking", AppID: "com.dashenbank.mobilebanking", Aliases: []string{"Dashen Bank"}},
}

type sourcesFile struct {
	Sources []domain.Source `yaml:"sources"`
}

// LoadSources reads `sources: [{name, app_name, app_id, aliases}]` from path.
// An empty path yields DefaultSources.
func LoadSources(path string) ([]domain.Source, error) {
	if path == "" {
		return DefaultSources, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}
	seen := map[string]struct{}{}
	var out []domain.Source
	for _, s := range f.Sources {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("parse sources %s: source without name", path)
		}
		key := strings.ToLower(s.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("parse sources %s: duplicate source %q", path, s.Name)
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse sources %s: no sources", path)
	}
	return out, nil
}

// FindSource returns the source matching name by key or alias.
func FindSource(sources []domain.Source, name string) (domain.Source, bool) {
	for _, s := range sources {
		if s.Matches(name) {
			return s, true
		}
	}
	return domain.Source{}, false
}
