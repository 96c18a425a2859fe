// Package author provides author name parsing and matching against
// names returned by the academic graph.
package author

import (
	"regexp"
	"strings"
	"unicode"
)

// Name represents a parsed person name.
type Name struct {
	First string // Given names (may be empty for surname-only input)
	Last  string // Surname (required)
}

// Name suffixes dropped when locating the surname.
var nameSuffixes = map[string]bool{
	"jr": true, "sr": true,
	"ii": true, "iii": true, "iv": true,
	"phd": true, "md": true,
}

var honorifics = map[string]bool{
	"dr": true, "prof": true, "professor": true,
	"mr": true, "mrs": true, "ms": true, "mx": true,
}

var punctRe = regexp.MustCompile(`[^\p{L}\p{N}\s,'\-]+`)

// Parse parses a display name into a structured Name.
//
// Supported formats:
//   - "Yu"                → last="Yu"
//   - "Timothy Yu"        → first="Timothy", last="Yu"
//   - "Yu, Timothy"       → first="Timothy", last="Yu"
//   - "Dr. Timothy Yu Jr" → first="Timothy", last="Yu"
//
// Honorifics, suffixes and punctuation are dropped; case is preserved.
func Parse(input string) Name {
	input = strings.TrimSpace(punctRe.ReplaceAllString(input, " "))
	if input == "" {
		return Name{}
	}

	// Trailing ", Jr" or ", PhD" segments are not given names.
	segs := strings.Split(input, ",")
	for len(segs) > 1 && onlySuffixes(strings.Fields(segs[len(segs)-1])) {
		segs = segs[:len(segs)-1]
	}

	// "Last, First"
	if len(segs) > 1 {
		last := clean(strings.Fields(segs[0]))
		first := clean(strings.Fields(strings.Join(segs[1:], " ")))
		if len(last) > 0 {
			return Name{First: strings.Join(first, " "), Last: strings.Join(last, " ")}
		}
	}

	parts := clean(strings.Fields(strings.Join(segs, " ")))
	switch len(parts) {
	case 0:
		return Name{}
	case 1:
		return Name{Last: parts[0]}
	}
	return Name{
		First: strings.Join(parts[:len(parts)-1], " "),
		Last:  parts[len(parts)-1],
	}
}

// clean drops honorifics from the front and suffixes from the back.
func clean(parts []string) []string {
	for len(parts) > 0 && honorifics[strings.ToLower(parts[0])] {
		parts = parts[1:]
	}
	for len(parts) > 1 && nameSuffixes[strings.ToLower(parts[len(parts)-1])] {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 1 && nameSuffixes[strings.ToLower(parts[0])] {
		return nil
	}
	return parts
}

func onlySuffixes(parts []string) bool {
	for _, p := range parts {
		if !nameSuffixes[strings.ToLower(p)] {
			return false
		}
	}
	return true
}

// Surname returns the lowercased surname of a display name.
func Surname(name string) string {
	return strings.ToLower(Parse(name).Last)
}

// Initial returns the lowercased first letter of the given names, or 0.
func (n Name) Initial() rune {
	for _, r := range n.First {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
	}
	return 0
}

// Mode selects how strictly names are compared.
type Mode int

const (
	// Strict accepts on case-insensitive surname equality only.
	Strict Mode = iota
	// Loose accepts everything Strict does, plus surnames where one
	// contains the other when both first initials are known and agree.
	Loose
)

func (m Mode) String() string {
	if m == Loose {
		return "loose"
	}
	return "strict"
}

// Matcher compares a local name against candidate names.
type Matcher struct {
	local Name
	mode  Mode
}

// NewMatcher returns a Matcher for the given local display name.
func NewMatcher(localName string, mode Mode) Matcher {
	return Matcher{local: Parse(localName), mode: mode}
}

// Matches checks if candidate refers to the local name.
//
// Matching rules:
//   - Strict: case-insensitive exact surname match
//   - Loose: a strict match, or one surname containing the other
//     ("Smith" / "Smith-Jones") with agreeing first initials
//
// "Johnson, M." never matches "Smith, J." because surnames differ.
func (m Matcher) Matches(candidate string) bool {
	c := Parse(candidate)
	if m.local.Last == "" || c.Last == "" {
		return false
	}
	if strings.EqualFold(m.local.Last, c.Last) {
		return true
	}
	if m.mode == Strict {
		return false
	}
	return surnameOverlap(m.local.Last, c.Last) && initialsAgree(m.local, c)
}

// minOverlap is the shortest surname considered for containment.
const minOverlap = 3

func surnameOverlap(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if len([]rune(a)) > len([]rune(b)) {
		a, b = b, a
	}
	return len([]rune(a)) >= minOverlap && strings.Contains(b, a)
}

func initialsAgree(a, b Name) bool {
	ia, ib := a.Initial(), b.Initial()
	return ia != 0 && ia == ib
}

// MatchesAny checks if any candidate refers to the local name.
func (m Matcher) MatchesAny(candidates []string) bool {
	for _, c := range candidates {
		if m.Matches(c) {
			return true
		}
	}
	return false
}
