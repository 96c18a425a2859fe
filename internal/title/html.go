package title

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FromHTML builds a Citation from a scraped list-item fragment. An
// aria-label on any element is taken as the full citation text when
// present; the first <em> or <i> span becomes the venue hint.
func FromHTML(fragment string) (Citation, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return Citation{}, fmt.Errorf("failed to parse citation HTML: %w", err)
	}

	c := Citation{Text: strings.TrimSpace(doc.Find("body").Text())}
	if label, ok := doc.Find("[aria-label]").First().Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		c.Text = label
	}

	em := doc.Find("em, i").First()
	if em.Length() > 0 {
		c.VenueHint = Clean(em.Text())
		if loc := emphasisRe.FindStringIndex(fragment); loc != nil {
			c.BeforeVenue = Clean(fragment[:loc[0]])
		}
	}
	return c, nil
}
