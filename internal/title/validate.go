package title

import (
	"regexp"
	"strings"
)

var (
	authorLeadRe   = regexp.MustCompile(`^([A-Z][A-Za-z\-']+(?:\s+[A-Z][A-Za-z\-']+)*)\s*,\s*([^\s,]+)`)
	initialRe      = regexp.MustCompile(`^[A-Z]\.?$`)
	trailingAndRe  = regexp.MustCompile(`\band\s+[A-Z][a-z]{0,2}\.?(?:\s+[A-Z]\.?)?$`)
	letterRe       = regexp.MustCompile(`[A-Za-z]`)
	lowerRe        = regexp.MustCompile(`[a-z]`)
	yearRe         = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	bareYearRe     = regexp.MustCompile(`^\(?\d{4}\)?$`)
	venueMarkerRe  = regexp.MustCompile(`(?i)doi\.org|https?://|Journal|Proceedings|Vol\.|pp\.|\b\d{4}\b`)
	statusKickerRe = regexp.MustCompile(`(?i)\b(?:arxiv|preprint|accepted|in press|submitted)\b`)
)

// LooksLikeAuthorFragment reports whether s reads like a piece of an
// author list ("Smith, J., Doe, R.") rather than a title.
func LooksLikeAuthorFragment(s string) bool {
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if s == "" {
		return false
	}

	// "Surname, X" where X is an initial or a very short token. Titles
	// such as "Design, Dynamics and Control" are left alone.
	if m := authorLeadRe.FindStringSubmatch(s); m != nil {
		next := m[2]
		if initialRe.MatchString(next) || len(next) <= 3 {
			return true
		}
	}

	toks := tokens(s)

	// Comma-separated list of initials.
	if strings.Count(s, ",") >= 2 && allShort(toks, 4) {
		return true
	}

	// Mostly initials among the leading tokens.
	head := toks
	if len(head) > 6 {
		head = head[:6]
	}
	short := 0
	for _, t := range head {
		if len(t) <= 3 {
			short++
		}
	}
	if short >= max(2, min(4, len(toks))) {
		return true
	}

	// Dangling "and X" connector from a truncated author list, where X is
	// an initial or a short token ("and Lee", "and K. J").
	return trailingAndRe.MatchString(s)
}

func allShort(toks []string, n int) bool {
	if len(toks) > n {
		toks = toks[:n]
	}
	for _, t := range toks {
		if len(t) > 3 {
			return false
		}
	}
	return true
}

// Validate reports whether candidate is structurally plausible as a title
// drawn from the citation original. allowAuthorLike skips the author-list
// and venue checks; it is used for quoted spans only.
func Validate(candidate, original string, allowAuthorLike bool) bool {
	cand := strings.Trim(strings.TrimSpace(candidate), `".,;:`)
	if len(cand) < 6 {
		return false
	}
	words := strings.Fields(cand)
	if len(words) < 2 {
		return false
	}
	if !letterRe.MatchString(cand) {
		return false
	}

	if !allowAuthorLike {
		if LooksLikeAuthorFragment(cand) {
			return false
		}
		// Comma-heavy spans in dated citations are author lists.
		if strings.Count(cand, ",") >= 3 && yearRe.MatchString(original) {
			return false
		}
		// Bare venue, DOI or URL strings, unless sentence-like.
		if venueMarkerRe.MatchString(cand) {
			if !lowerRe.MatchString(cand) || len(words) < 4 {
				return false
			}
		}
		if statusKickerRe.MatchString(cand) {
			return false
		}
	}

	return !bareYearRe.MatchString(cand)
}
