package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var (
	todayPattern = regexp.MustCompile(`^@today(?:([+-])(\d+)([dwmy]))?$`)
	isoPattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	daysPattern  = regexp.MustCompile(`^(\d+)([dwmy]?)$`)
)

// ResolveDate converts a date expression to an ISO date.
// Examples:
//
//	@today     -> 2025-09-04
//	@today+1d  -> 2025-09-05
//	@today-2w  -> 2025-08-21
//	@today+1m  -> 2025-10-04
//	2025-12-01 -> 2025-12-01
func ResolveDate(input string, base time.Time) (string, error) {
	input = strings.ReplaceAll(input, " ", "")

	if matches := todayPattern.FindStringSubmatch(input); matches != nil {
		if matches[1] == "" {
			return base.Format(isoDate), nil
		}

		num, err := strconv.Atoi(matches[2])
		if err != nil {
			return "", fmt.Errorf("invalid number: %s", matches[2])
		}
		if matches[1] == "-" {
			num = -num
		}

		return addUnits(base, num, matches[3]).Format(isoDate), nil
	}

	if isoPattern.MatchString(input) {
		if _, err := time.Parse(isoDate, input); err != nil {
			return "", fmt.Errorf("invalid date: %s", input)
		}
		return input, nil
	}

	return "", fmt.Errorf("unsupported date format: %s", input)
}

// ParseDays converts a duration such as "30", "30d", "6w", "3m" or "1y"
// into whole days. Months count as 30 days and years as 365.
func ParseDays(input string) (int, error) {
	matches := daysPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(input)))
	if matches == nil {
		return 0, fmt.Errorf("unsupported duration: %s", input)
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", matches[1])
	}

	switch matches[2] {
	case "", "d":
		return num, nil
	case "w":
		return num * 7, nil
	case "m":
		return num * 30, nil
	case "y":
		return num * 365, nil
	default:
		return 0, fmt.Errorf("unsupported unit: %s", matches[2])
	}
}

func addUnits(base time.Time, num int, unit string) time.Time {
	switch unit {
	case "w":
		return base.AddDate(0, 0, 7*num)
	case "m":
		return base.AddDate(0, num, 0)
	case "y":
		return base.AddDate(num, 0, 0)
	default:
		return base.AddDate(0, 0, num)
	}
}
