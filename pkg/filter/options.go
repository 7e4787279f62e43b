package filter

import (
	"strings"

	"github.com/yahsan2/enrollctl/pkg/assign"
)

// TargetFilters contains filtering options for package-session targets
type TargetFilters struct {
	Search string   `json:"search,omitempty"`
	Status string   `json:"status,omitempty"`
	Course []string `json:"course,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// NewTargetFilters creates a new TargetFilters with default values
func NewTargetFilters() *TargetFilters {
	return &TargetFilters{
		Status: "ACTIVE",
		Limit:  100,
	}
}

// Match reports whether t passes every filter. Search is a case-insensitive
// substring match on the label and the package session id.
func (f *TargetFilters) Match(t assign.Target) bool {
	if f == nil {
		return true
	}

	if f.Status != "" && !strings.EqualFold(f.Status, "all") && !strings.EqualFold(f.Status, t.Status) {
		return false
	}

	if len(f.Course) > 0 {
		found := false
		for _, c := range f.Course {
			if strings.EqualFold(c, t.CourseName) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		label := strings.ToLower(t.Label())
		if !strings.Contains(label, q) && !strings.Contains(strings.ToLower(t.PackageSessionID), q) {
			return false
		}
	}

	return true
}

// Apply returns the matching targets in order, up to Limit (0 = no limit)
func (f *TargetFilters) Apply(targets []assign.Target) []assign.Target {
	out := make([]assign.Target, 0, len(targets))
	for _, t := range targets {
		if !f.Match(t) {
			continue
		}
		out = append(out, t)
		if f != nil && f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}
