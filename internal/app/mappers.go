package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fintech_reviews/internal/domain"
)

/********** alias registry (single source of truth) **********/

var reviewAliases = map[string][]string{
	"text":       {"text", "review_text", "review", "content", "comment", "body", "message"},
	"id":         {"review_id", "reviewId", "id"},
	"source":     {"source_name", "bank", "bank_name", "source"}, // "source" must stay last
	"provenance": {"provenance", "platform", "store", "origin"},
	"rating":     {"rating", "score", "stars", "rate"},
	"date":       {"date", "review_date", "at", "created_at", "timestamp"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		var obj map[string]any
		switch t := cur.(type) {
		case map[string]any:
			obj = t
		case domain.RawRecord:
			obj = t
		default:
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the value at path rendered as a string, or "".
// Whole numbers render without a fraction so numeric ids stay stable.
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<63 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// firstNonEmptyAlias: first non-blank string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return &s
		}
	}
	return nil
}

// sourceField returns the value of the first source alias present in m. A present but blank
// field is returned as "" with supplied=true; later aliases are not consulted.
// "source" only names the source when no bank column exists; next to one it is the platform.
func sourceField(m map[string]any) (name string, supplied bool) {
	for _, p := range reviewAliases["source"] {
		if _, ok := m[p]; ok {
			return strings.TrimSpace(lookupStr(m, p)), true
		}
	}
	return "", false
}

// provenanceFrom returns the record's platform, or nil when it names none.
func provenanceFrom(m map[string]any) *string {
	if p := firstNonEmptyAlias(m, reviewAliases, "provenance"); p != nil {
		return p
	}
	if _, ok := m["source"]; !ok {
		return nil
	}
	for _, p := range reviewAliases["source"] {
		if _, ok := m[p]; ok && p != "source" {
			if s := strings.TrimSpace(lookupStr(m, "source")); s != "" {
				return &s
			}
			return nil
		}
	}
	return nil
}

// getFloatFlexible: number from several paths (float64/int/string like "4,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// ratingFrom accepts whole numbers in [1,5]; anything else is absent.
func ratingFrom(m map[string]any) *int {
	f := getFloatFlexible(m, reviewAliases["rating"]...)
	if f == nil || math.IsNaN(*f) || *f != math.Trunc(*f) || *f < 1 || *f > 5 {
		return nil
	}
	r := int(*f)
	return &r
}

// dateFrom returns the record date normalized to YYYY-MM-DD, or nil when absent or unparseable.
func dateFrom(m map[string]any) *string {
	for _, p := range reviewAliases["date"] {
		switch v := lookupAny(m, p).(type) {
		case nil:
			continue
		case time.Time:
			if v.IsZero() {
				continue
			}
			s := v.Format(DateLayout)
			return &s
		case float64:
			if v <= 0 {
				continue
			}
			s := time.Unix(int64(v), 0).UTC().Format(DateLayout)
			return &s
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			if t, ok := ParseDate(v); ok {
				s := t.Format(DateLayout)
				return &s
			}
			return nil
		}
	}
	return nil
}
