package commands

import (
	"fmt"
	"strings"
	"time"
)

// Accepted timestamp layouts. A bare time of day assumes today.
const (
	layoutFull = "2006-01-02 15:04"
	layoutTime = "15:04"
)

// parseTimestamp parses a user-supplied timestamp. An empty string means
// "now" and returns the zero time, which the managers substitute.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.ParseInLocation(layoutFull, s, time.Local); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation(layoutTime, s, time.Local); err == nil {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
	}

	return time.Time{}, fmt.Errorf("could not parse %q: use '%s' or '%s'", s, layoutFull, layoutTime)
}

// looksLikeTimestamp reports whether an argument parses as a timestamp,
// used to disambiguate optional [time] from trailing notes.
func looksLikeTimestamp(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	_, err := parseTimestamp(s)
	return err == nil
}

// splitTimeAndNotes interprets args as an optional leading timestamp
// followed by free-form notes.
func splitTimeAndNotes(args []string) (time.Time, string, error) {
	if len(args) == 0 {
		return time.Time{}, "", nil
	}

	// "YYYY-MM-DD HH:MM" arrives as two args.
	if len(args) >= 2 && looksLikeTimestamp(args[0]+" "+args[1]) {
		t, err := parseTimestamp(args[0] + " " + args[1])
		return t, strings.Join(args[2:], " "), err
	}

	if looksLikeTimestamp(args[0]) {
		t, err := parseTimestamp(args[0])
		return t, strings.Join(args[1:], " "), err
	}

	return time.Time{}, strings.Join(args, " "), nil
}
