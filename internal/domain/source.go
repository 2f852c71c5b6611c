package domain

import "strings"

// Source is one mobile application under analysis.
type Source struct {
	Name    string   `yaml:"name"` // stable key, e.g. "CBE"
	AppName string   `yaml:"app_name"`
	AppID   string   `yaml:"app_id"` // feed identifier, not persisted
	Aliases []string `yaml:"aliases"`
}

// Matches reports whether name refers to s, by key or alias, ignoring case.
func (s Source) Matches(name string) bool {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, s.Name) {
		return true
	}
	for _, a := range s.Aliases {
		if strings.EqualFold(name, a) {
			return true
		}
	}
	return false
}

// DisplayApp falls back to the source name when no app name is known.
func (s Source) DisplayApp() string {
	if s.AppName == "" {
		return s.Name
	}
	return s.AppName
}
