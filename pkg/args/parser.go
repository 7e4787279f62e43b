package args

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yahsan2/enrollctl/pkg/filter"
	"github.com/yahsan2/enrollctl/pkg/utils"
)

// TargetFlags contains the names of the target filter flags
type TargetFlags struct {
	Search string
	Status string
	Course string
	Limit  string
}

// DefaultFlags returns the default flag names
func DefaultFlags() *TargetFlags {
	return &TargetFlags{
		Search: "search",
		Status: "status",
		Course: "course",
		Limit:  "limit",
	}
}

// AddTargetFlags adds package-session filter flags to the command
func AddTargetFlags(cmd *cobra.Command, flags *TargetFlags) {
	if flags == nil {
		flags = DefaultFlags()
	}

	cmd.Flags().StringP(flags.Search, "S", "", "Search course, level and session names")
	cmd.Flags().StringP(flags.Status, "s", "ACTIVE", "Filter by status: {ACTIVE|INACTIVE|all}")
	cmd.Flags().StringSliceP(flags.Course, "c", []string{}, "Filter by course name")
	cmd.Flags().IntP(flags.Limit, "L", 100, "Maximum number of package sessions to show")
}

// ParseTargetFlags extracts target filters from command flags
func ParseTargetFlags(cmd *cobra.Command, flags *TargetFlags) (*filter.TargetFilters, error) {
	if flags == nil {
		flags = DefaultFlags()
	}

	filters := filter.NewTargetFilters()

	var err error

	if filters.Search, err = cmd.Flags().GetString(flags.Search); err != nil {
		return nil, err
	}

	if filters.Status, err = cmd.Flags().GetString(flags.Status); err != nil {
		return nil, err
	}

	if filters.Course, err = cmd.Flags().GetStringSlice(flags.Course); err != nil {
		return nil, err
	}

	if filters.Limit, err = cmd.Flags().GetInt(flags.Limit); err != nil {
		return nil, err
	}

	if filters.Limit < 0 {
		return nil, fmt.Errorf("--%s must not be negative", flags.Limit)
	}

	return filters, nil
}

// ParsePairs parses repeated "target=value" flag values
func ParsePairs(values []string) (map[string]string, error) {
	pairs := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid value '%s': expected target=value", v)
		}
		if _, dup := pairs[key]; dup {
			return nil, fmt.Errorf("target '%s' given more than once", key)
		}
		pairs[key] = value
	}
	return pairs, nil
}

// ParseAccessDays parses repeated "target=days" values, where days accepts
// the same forms as utils.ParseDays (30, 30d, 6w, 3m, 1y)
func ParseAccessDays(values []string) (map[string]int, error) {
	pairs, err := ParsePairs(values)
	if err != nil {
		return nil, err
	}

	days := make(map[string]int, len(pairs))
	for target, raw := range pairs {
		n, err := utils.ParseDays(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid access days for '%s': %w", target, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("access days for '%s' must be positive", target)
		}
		days[target] = n
	}
	return days, nil
}
