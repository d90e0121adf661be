package harvester

import (
	"strings"
)

// SourceSystem ist das erkannte Quellsystem hinter einer Journal-Website.
type SourceSystem string

const (
	SourceUnknown SourceSystem = "UNKNOWN"
	SourceDOAJ    SourceSystem = "DOAJ"
	SourceTeckiz  SourceSystem = "TECKIZ"
	SourceOJS     SourceSystem = "OJS_OAI"
)

// DetectSystemType klassifiziert eine Website-URL per Substring-Heuristik.
// Alles, was weder DOAJ noch Teckiz ist, wird als OJS mit OAI-Schnittstelle
// behandelt. Die "journal"-Heuristik ist bewusst breit und historisch so
// gewachsen; sie darf nicht stillschweigend verengt werden.
func DetectSystemType(websiteURL string) SourceSystem {
	s := strings.ToLower(strings.TrimSpace(websiteURL))
	if s == "" {
		return SourceUnknown
	}
	if strings.Contains(s, "doaj.org") {
		return SourceDOAJ
	}
	if strings.Contains(s, "teckiz") || strings.Contains(s, "journal") {
		return SourceTeckiz
	}
	return SourceOJS
}

// EnsureScheme stellt einer URL ohne Schema "https://" voran.
func EnsureScheme(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "https://" + s
}

// CleanWebsiteURL schneidet eine OJS-URL auf die Journal-Basis zurück:
// aus ".../index.php/abc/issue/view/5" wird ".../index.php/abc". URLs ohne
// index.php-Segment bleiben unverändert (nur ohne Slash am Ende).
func CleanWebsiteURL(raw string) string {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	marker := "/index.php/"
	i := strings.Index(s, marker)
	if i < 0 {
		return s
	}
	rest := s[i+len(marker):]
	if j := strings.Index(rest, "/"); j >= 0 {
		rest = rest[:j]
	}
	return s[:i] + marker + rest
}
