package parser

import (
	"regexp"
	"strings"
)

// Dublin-Core-Source-Felder tragen Band und Seitenzahlen unstrukturiert,
// z.B. "Journal of X; Vol. 12 No. 3 (2021): Title; 45-67". Die Extraktion
// ist best effort; nicht passende Werte bleiben leer.

var (
	volRe   = regexp.MustCompile(`(?i)Vol\.?\s*(\d+)`)
	pagesRe = regexp.MustCompile(`(\d+)-(\d+)`)
)

// ExtractVolumeFromSource liest das Bandetikett aus einem semikolon-
// getrennten Source-Feld (zweites Segment, vor ":" bzw. "(" abgeschnitten).
func ExtractVolumeFromSource(source string) string {
	parts := strings.Split(source, ";")
	if len(parts) < 2 {
		return ""
	}
	seg := parts[1]
	if i := strings.Index(seg, ":"); i >= 0 {
		seg = seg[:i]
	}
	if i := strings.Index(seg, "("); i >= 0 {
		seg = seg[:i]
	}
	return strings.TrimSpace(seg)
}

// ExtractPagesFromSource liest die Seitenangabe aus einem semikolon-
// getrennten Source-Feld (drittes Segment).
func ExtractPagesFromSource(source string) string {
	parts := strings.Split(source, ";")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[2])
}

// ExtractVolumeNumber sucht eine numerische Bandnummer ("Vol. 12", "vol 12")
// in einem freien Source-String.
func ExtractVolumeNumber(source string) string {
	m := volRe.FindStringSubmatch(source)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractPageRange sucht einen Seitenbereich der Form "45-67" in einem
// freien Source-String.
func ExtractPageRange(source string) string {
	m := pagesRe.FindString(source)
	return m
}

// ExtractDOI liest den DOI aus einer doi.org-URL. Für Werte ohne "doi.org/"
// wird der leere String zurückgegeben.
func ExtractDOI(relation string) string {
	i := strings.LastIndex(relation, "doi.org/")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(relation[i+len("doi.org/"):])
}
