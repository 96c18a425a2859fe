package title

import (
	"regexp"
	"sort"
	"strings"
)

// Stage is one heuristic in the extraction cascade. Extract returns a
// candidate that has already passed validation, or false.
type Stage struct {
	Name    string
	Extract func(in *input) (string, bool)
}

// Stage names, in cascade order.
const (
	StageQuoted       = "quoted"
	StageYearAnchor   = "year-anchor"
	StageAuthorBlock  = "author-block"
	StageMarkup       = "markup-delimiter"
	StageSentence     = "sentence-split"
	StagePunctSegment = "punctuation-segment"
)

// DefaultStages returns the cascade in priority order.
func DefaultStages() []Stage {
	return []Stage{
		{Name: StageQuoted, Extract: quotedStage},
		{Name: StageYearAnchor, Extract: yearAnchorStage},
		{Name: StageAuthorBlock, Extract: authorBlockStage},
		{Name: StageMarkup, Extract: markupStage},
		{Name: StageSentence, Extract: sentenceStage},
		{Name: StagePunctSegment, Extract: punctSegmentStage},
	}
}

var (
	// Cut-off for the remainder after an unmatched opening quote.
	openQuoteStopRe = regexp.MustCompile(`\bJournal\b|\bProceedings\b|\bInternational\b|\bVol\b\.?|\bpp\b\.?|\bdoi\.org\b|\b(?:arxiv|preprint|accepted|in press|submitted)\b|\b\d{4}\b`)

	// Kickers that end a title following a year.
	yearKickerRe = regexp.MustCompile(`\bJournal\b|\bJ\b\.?|\bProceedings\b|\bProc\b\.?|\bInternational\b|\bIn:|\bVol\b\.?|\bpp\b\.?|\barXiv\b|\bpreprint\b|\baccepted\b|\bin press\b|\bsubmitted\b|doi\.org|https?://`)

	// Leading author block: capitalized names joined by commas, "and" or
	// "&", terminated by a period or comma. The last name may be a bare
	// initial so "Doe, R. Title" ends the block after "R.".
	authorBlockRe = regexp.MustCompile(`^((?:[A-Z][a-zA-Z\-.]+(?:\s+[A-Z][a-zA-Z\-.]+)?(?:,|,?\s+and|,?\s+&)\s*)+[A-Z][a-zA-Z\-.]*)[.,]\s+`)

	// Kickers that end a title following an author block.
	authorKickerRe = regexp.MustCompile(`,?\s*(?:J\.|Journal|Proc\.|Proceedings|Int\.|International|Vol\.|pp\.|\d{4}|arXiv|preprint|accepted|in press|submitted|doi\.org|https?://)`)

	leadingNamesRe = regexp.MustCompile(`^(?:[A-Z][a-z]+(?:,|\s))*\s*`)
	danglingAndRe  = regexp.MustCompile(`(?:,\s*and\s+[A-Z]\.?[A-Za-z]?|and\s+[A-Z]\.?[A-Za-z]?)$`)
	sentenceRe     = regexp.MustCompile(`\.\s+|;\s+`)
	commaRe        = regexp.MustCompile(`\s*,\s*`)
	colonRe        = regexp.MustCompile(`\s*:\s*`)
)

// cutAt returns s up to the first match of re.
func cutAt(s string, re *regexp.Regexp) string {
	if loc := re.FindStringIndex(s); loc != nil {
		return s[:loc[0]]
	}
	return s
}

// quotedStage takes text between paired double quotes, longest first.
// Quoted spans are trusted even when they resemble a name list.
func quotedStage(in *input) (string, bool) {
	text := in.text
	var spans []string
	var positions []int
	for i, r := range text {
		if r == '"' {
			positions = append(positions, i)
		}
	}
	for i := 0; i+1 < len(positions); i += 2 {
		spans = append(spans, text[positions[i]+1:positions[i+1]])
	}
	if len(positions)%2 == 1 && len(spans) == 0 {
		rest := text[positions[len(positions)-1]+1:]
		spans = append(spans, cutAt(rest, openQuoteStopRe))
	}

	for i := range spans {
		spans[i] = Clean(spans[i])
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return tokenCount(spans[i]) > tokenCount(spans[j])
	})
	for _, q := range spans {
		if tokenCount(q) >= 2 && Validate(q, in.text, true) {
			return q, true
		}
	}
	return "", false
}

// yearAnchorStage takes what follows the first year, up to a kicker.
func yearAnchorStage(in *input) (string, bool) {
	loc := yearRe.FindStringIndex(in.text)
	if loc == nil {
		return "", false
	}
	after := stripLeadingPunct(strings.TrimSpace(in.text[loc[1]:]))
	cand := Clean(cutAt(after, yearKickerRe))
	if LooksLikeAuthorFragment(cand) || statusKickerRe.MatchString(cand) {
		return "", false
	}
	if !Validate(cand, in.text, false) {
		return "", false
	}
	return cand, true
}

// authorBlockStage strips a leading author list and takes what follows,
// up to a venue kicker.
func authorBlockStage(in *input) (string, bool) {
	loc := authorBlockRe.FindStringIndex(in.text)
	if loc == nil {
		return "", false
	}
	after := strings.TrimSpace(in.text[loc[1]:])
	cand := Clean(cutAt(after, authorKickerRe))
	if LooksLikeAuthorFragment(cand) || !Validate(cand, in.text, false) {
		return "", false
	}
	return cand, true
}

// markupStage uses the emphasized venue span: the title is what precedes
// it, after the year when there is one, otherwise after the author block.
func markupStage(in *input) (string, bool) {
	if in.venue == "" {
		return "", false
	}
	before := Clean(in.beforeVenue)
	if before == "" {
		return "", false
	}

	var cand string
	if loc := yearRe.FindStringIndex(before); loc != nil {
		cand = strings.TrimSpace(before[loc[1]:])
	} else if p := strings.Index(before, "."); p > 0 && p < 80 {
		cand = strings.TrimSpace(before[p+1:])
	} else {
		cand = strings.TrimSpace(leadingNamesRe.ReplaceAllString(before, ""))
	}
	cand = Clean(cand)
	if LooksLikeAuthorFragment(cand) || !Validate(cand, in.text, false) {
		return "", false
	}
	return cand, true
}

// sentenceStage splits on sentence boundaries and keeps the fragment with
// the most words, then the most characters.
func sentenceStage(in *input) (string, bool) {
	text := danglingAndRe.ReplaceAllString(in.text, "")
	best := ""
	bestWords := 0
	for _, piece := range sentenceRe.Split(text, -1) {
		p := Clean(piece)
		if p == "" || LooksLikeAuthorFragment(p) || !Validate(p, in.text, false) {
			continue
		}
		w := len(strings.Fields(p))
		if w > bestWords || (w == bestWords && len(p) > len(best)) {
			best, bestWords = p, w
		}
	}
	return best, best != ""
}

// punctSegmentStage splits on commas, and each comma segment again on
// colons, then takes the longest segment that has a colon, a hyphen or at
// least four words.
func punctSegmentStage(in *input) (string, bool) {
	text := danglingAndRe.ReplaceAllString(in.text, "")
	var segs []string
	for _, s := range commaRe.Split(text, -1) {
		if s = Clean(s); s != "" {
			segs = append(segs, s)
		}
		if strings.Contains(s, ":") {
			for _, part := range colonRe.Split(s, -1) {
				if part = Clean(part); part != "" {
					segs = append(segs, part)
				}
			}
		}
	}
	sort.SliceStable(segs, func(i, j int) bool {
		return len(segs[i]) > len(segs[j])
	})
	for _, seg := range segs {
		if !strings.ContainsAny(seg, ":-") && len(strings.Fields(seg)) < 4 {
			continue
		}
		if !LooksLikeAuthorFragment(seg) && Validate(seg, in.text, false) {
			return seg, true
		}
	}
	return "", false
}
