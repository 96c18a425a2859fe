package title

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Citation is one scraped publication entry.
type Citation struct {
	// Text is the full citation, plain or with inline markup.
	Text string
	// VenueHint is the emphasized venue span, if the source marked one.
	VenueHint string
	// BeforeVenue is the text preceding VenueHint.
	BeforeVenue string
}

// Result is an accepted title and the stage that produced it.
type Result struct {
	Title string
	Stage string
}

type input struct {
	text        string
	venue       string
	beforeVenue string
}

var emphasisRe = regexp.MustCompile(`(?is)<(em|i)\b[^>]*>(.*?)</(?:em|i)>`)

func prepare(c Citation) *input {
	raw := c.Text
	venue, before := c.VenueHint, c.BeforeVenue
	if venue == "" {
		if loc := emphasisRe.FindStringSubmatchIndex(raw); loc != nil {
			venue = Clean(raw[loc[4]:loc[5]])
			before = raw[:loc[0]]
		}
	}
	return &input{
		text:        strings.ReplaceAll(Clean(raw), "*", ""),
		venue:       venue,
		beforeVenue: strings.ReplaceAll(before, "*", ""),
	}
}

// Extractor runs an ordered cascade of stages over a citation; the first
// stage to yield a valid candidate wins.
type Extractor struct {
	stages []Stage
	logger *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithStages replaces the default cascade.
func WithStages(stages ...Stage) ExtractorOption {
	return func(e *Extractor) {
		e.stages = stages
	}
}

// WithLogger records the winning stage of each extraction at debug level.
func WithLogger(l *zap.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor returns an Extractor using DefaultStages unless overridden.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		stages: DefaultStages(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the title of c, or false when no stage produced one.
// The result depends only on c.
func (e *Extractor) Extract(c Citation) (Result, bool) {
	in := prepare(c)
	if in.text == "" {
		return Result{}, false
	}
	for _, st := range e.stages {
		cand, ok := st.Extract(in)
		if !ok {
			continue
		}
		t := finalize(cand)
		if t == "" {
			continue
		}
		e.logger.Debug("title extracted",
			zap.String("stage", st.Name),
			zap.String("title", t))
		return Result{Title: t, Stage: st.Name}, true
	}
	e.logger.Debug("no title", zap.String("text", in.text))
	return Result{}, false
}

var defaultExtractor = NewExtractor()

// Extract runs the default cascade over c.
func Extract(c Citation) (Result, bool) {
	return defaultExtractor.Extract(c)
}

// FromText extracts a title from a plain citation string.
func FromText(s string) (string, bool) {
	r, ok := Extract(Citation{Text: s})
	return r.Title, ok
}
