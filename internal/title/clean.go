package title

import (
	"html"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// Common UTF-8-read-as-Latin-1 sequences seen on scraped pages.
	mojibake = strings.NewReplacer(
		"â€œ", `"`,
		"â€\u009d", `"`,
		"â€˜", "'",
		"â€™", "'",
		"â€“", "-",
		"â€”", "-",
		"â€¦", "...",
		"�", "",
	)

	doubleQuotes = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"«", `"`, "»", `"`, "＂", `"`, "\u009D", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'", "＇", "'",
	)

	dashRe        = regexp.MustCompile("[‐‑‒–—―−－]")
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	spaceRe       = regexp.MustCompile(`\s+`)
	edgePunctRe   = regexp.MustCompile(`^[\s\-,;:]+|[\s\-,;:]+$`)
	leadPunctRe   = regexp.MustCompile(`^[\s\-:.;,)\](\[{\x{FE10}\x{FF08}\x{FF09}]+`)
	tokenRe       = regexp.MustCompile(`[A-Za-z0-9]+`)
	trailPeriodRe = regexp.MustCompile(`[\s.]+$`)
)

// Clean normalizes scraped citation text: entities are unescaped, the
// string is NFKC-normalized, quote and dash variants are folded, markup
// tags are dropped, whitespace is collapsed and leading/trailing dashes,
// commas, semicolons and colons are stripped.
func Clean(s string) string {
	s = html.UnescapeString(s)
	s = mojibake.Replace(s)
	s = norm.NFKC.String(s)
	s = doubleQuotes.Replace(s)
	s = dashRe.ReplaceAllString(s, "-")
	s = tagRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return edgePunctRe.ReplaceAllString(s, "")
}

// stripLeadingPunct removes leading whitespace, dashes, colons, periods,
// semicolons, commas and brackets.
func stripLeadingPunct(s string) string {
	return leadPunctRe.ReplaceAllString(s, "")
}

// tokens returns the alphanumeric runs of s.
func tokens(s string) []string {
	return tokenRe.FindAllString(s, -1)
}

func tokenCount(s string) int {
	return len(tokens(s))
}

// finalize is the last cleanup applied to an accepted title.
func finalize(s string) string {
	s = Clean(s)
	s = strings.Trim(s, `"`)
	s = trailPeriodRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
