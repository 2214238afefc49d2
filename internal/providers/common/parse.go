package common

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

var sizeUnits = []struct {
	suffix     string
	multiplier float64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// CleanHTMLText unescapes entities, drops tags, and collapses whitespace.
func CleanHTMLText(raw string) string {
	value := strings.TrimSpace(raw)
	value = html.UnescapeString(value)
	value = tagPattern.ReplaceAllString(value, " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

// ParseIntOrDefault parses a numeric field from dirty source markup. Ranking
// must stay total even over garbage, so parse failures yield the fallback
// instead of an error.
func ParseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// ParseHumanSize converts a human-readable size string ("1.4 GB", "700MB",
// bare byte counts) into bytes. Unknown formats yield 0.
func ParseHumanSize(raw string) int64 {
	value := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	value = strings.ReplaceAll(value, "GIB", "GB")
	value = strings.ReplaceAll(value, "MIB", "MB")
	value = strings.ReplaceAll(value, "KIB", "KB")
	value = strings.ReplaceAll(value, "TIB", "TB")
	if value == "" {
		return 0
	}

	for _, unit := range sizeUnits {
		if !strings.HasSuffix(value, unit.suffix) {
			continue
		}
		number := strings.TrimSuffix(value, unit.suffix)
		if number == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", "."), 64)
		if err != nil || parsed < 0 {
			return 0
		}
		return int64(parsed * unit.multiplier)
	}

	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed >= 0 {
		return parsed
	}
	return 0
}

// FormatSize renders a byte count with the closest unit from {B,KB,MB,GB,TB}.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	value := float64(bytes)
	for _, unit := range sizeUnits {
		if value >= unit.multiplier && unit.suffix != "B" {
			return fmt.Sprintf("%.1f %s", value/unit.multiplier, unit.suffix)
		}
	}
	return fmt.Sprintf("%d B", bytes)
}

// NormalizeSizeLabel re-renders a source's size string with normalized units.
// Unparsable input passes through cleaned but otherwise untouched, which
// keeps the record usable even when a site invents its own size format.
func NormalizeSizeLabel(raw string) string {
	bytes := ParseHumanSize(raw)
	if bytes <= 0 {
		return strings.Join(strings.Fields(raw), " ")
	}
	return FormatSize(bytes)
}
