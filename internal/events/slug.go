package events

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	apostrophes = strings.NewReplacer("'", "", "’", "")
	nonSlugRuns = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases the title and joins alphanumeric runs with dashes.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = apostrophes.Replace(s)
	s = nonSlugRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "event"
	}
	return s
}

// withTimeSuffix disambiguates a taken slug with a base-36 millisecond stamp.
func withTimeSuffix(slug string, now time.Time) string {
	return slug + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}
