package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var yearOnlyRe = regexp.MustCompile(`^\d{4}$`)

// ParseDate interpretiert die Datumsformate, die in Dublin-Core-Feeds
// praktisch vorkommen. Gibt nil zurück, wenn der Wert nicht interpretierbar
// ist; ein unlesbares Datum darf einen Import nie abbrechen.
//
// Reihenfolge: YYYY-MM-DD, ISO-Timestamp (Z und Sekundenbruchteile werden
// verworfen), nacktes Jahr, dann der generische Fallback über dateparse.
func ParseDate(value string) *time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}

	if strings.Contains(s, "T") {
		ts := strings.TrimSuffix(s, "Z")
		if i := strings.Index(ts, "."); i >= 0 {
			ts = ts[:i]
		}
		if t, err := time.Parse("2006-01-02T15:04:05", ts); err == nil {
			return &t
		}
	}

	if yearOnlyRe.MatchString(s) {
		if t, err := time.Parse("2006", s); err == nil {
			return &t
		}
	}

	if t, err := dateparse.ParseAny(s); err == nil {
		return &t
	}
	return nil
}
