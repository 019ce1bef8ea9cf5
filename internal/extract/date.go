package extract

import (
	"regexp"
	"strings"
	"time"
)

// DateLayouts are tried in order and only accepted when formatting the
// parsed time with the same layout gives back the input exactly. Day-first
// layouts come before month-first ones, so "03/04/2025" is the 3rd of April.
var DateLayouts = []string{
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006 15:04",
	"2 January 2006 15:04",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"02/01/2006 15:04",
	"02/01/2006",
	"01/02/2006 15:04",
	"01/02/2006",
}

// machineLayouts are tried on the cleaned input before it is rewritten for
// the permissive pass.
var machineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// lenientLayouts back the permissive pass, no round trip is required.
var lenientLayouts = []string{
	"Jan 2 2006 3:04 PM",
	"Jan 2 2006 15:04",
	"January 2 2006 3:04 PM",
	"January 2 2006 15:04",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006 3:04 PM",
	"2 January 2006 3:04 PM",
	"2.1.2006 15:04",
	"2.1.2006",
	"2. 1. 2006 15:04",
	"2. 1. 2006",
	"2/1/2006 15:04",
	"2/1/2006",
	"2006/01/02 15:04",
	"2006/01/02",
	"January 2006",
	"Jan 2006",
}

var (
	whitespace   = regexp.MustCompile(`\s+`)
	datePrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(event date|date|when|dátum|datum|termín|termin)\s*:?\s*`),
		regexp.MustCompile(`(?i)^on\s+`),
	}
	weekdayPrefix = regexp.MustCompile(`(?i)^(mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(day|nesday|rsday|urday)?\.?,?\s+`)
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	atSeparator   = regexp.MustCompile(`(?i)\s+(at|@|-|–|\|)\s+`)
	meridiem      = regexp.MustCompile(`(?i)(\d)\s*(am|pm)\b`)
)

// Parsed is a successfully parsed event date.
type Parsed struct {
	Time time.Time
	// HasTime is false when the source only carried a calendar date.
	HasTime bool
}

func layoutHasTime(layout string) bool {
	return strings.Contains(layout, "15") || strings.Contains(layout, "3:04")
}

// CleanDate collapses whitespace and strips the label prefixes sites put in
// front of dates ("Date:", "When:", "Dátum:", "on ...").
func CleanDate(raw string) string {
	s := strings.TrimSpace(whitespace.ReplaceAllString(strings.ReplaceAll(raw, "\u00a0", " "), " "))
	for _, prefix := range datePrefixes {
		s = prefix.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// ParseDate parses a scraped date. The extra layouts (site specific) are
// tried before DateLayouts, both with exact round trip validation, then a
// permissive pass runs. ok is false when nothing fits.
func ParseDate(raw string, extra ...string) (Parsed, bool) {
	s := CleanDate(raw)
	if s == "" {
		return Parsed{}, false
	}

	for _, layouts := range [][]string{extra, DateLayouts} {
		for _, layout := range layouts {
			t, err := time.Parse(layout, s)
			if err != nil || t.Format(layout) != s {
				continue
			}
			return Parsed{Time: t, HasTime: layoutHasTime(layout)}, true
		}
	}

	return parseLenient(s)
}

func parseLenient(s string) (Parsed, bool) {
	for _, layout := range machineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Parsed{Time: t, HasTime: true}, true
		}
	}

	s = weekdayPrefix.ReplaceAllString(s, "")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = atSeparator.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, ",", " ")
	s = meridiem.ReplaceAllStringFunc(s, func(m string) string {
		sub := meridiem.FindStringSubmatch(m)
		return sub[1] + " " + strings.ToUpper(sub[2])
	})
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))

	for _, layout := range lenientLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return Parsed{Time: t, HasTime: layoutHasTime(layout)}, true
	}
	return Parsed{}, false
}

// Pointer is a convenience for tickets.Event.SetDateTime.
func (p Parsed) Pointer() *time.Time {
	if p.Time.IsZero() {
		return nil
	}
	t := p.Time
	return &t
}
