package catalog

import (
	"sort"
	"time"

	"github.com/facultyindex/facultyindex/internal/s2"
)

// MergePapers folds papers fetched for authorID into the catalog and
// returns the sorted union of the professor's existing and merged paper
// ids. Fields of a fetched paper replace stored ones only when present.
// Authors are unioned by id: the local professor first, then the API
// authors in order; the first name seen for an id is kept.
func (c *Catalog) MergePapers(authorID, localName string, papers []s2.Paper, now time.Time) []string {
	ids := make(map[string]bool)
	if p, ok := c.Professors[authorID]; ok {
		for _, pid := range p.PaperIDs {
			ids[pid] = true
		}
	}

	stamp := now.Format(DateLayout)
	for _, p := range papers {
		if p.PaperID == "" {
			continue
		}
		existing, ok := c.Papers[p.PaperID]
		if !ok {
			existing = &Paper{PaperID: p.PaperID}
		}
		c.Papers[p.PaperID] = mergePaper(existing, p, authorID, localName, stamp)
		ids[p.PaperID] = true
	}

	return sortedKeys(ids)
}

func mergePaper(old *Paper, p s2.Paper, authorID, localName, stamp string) *Paper {
	merged := *old
	merged.PaperID = p.PaperID
	merged.Title = orString(p.Title, old.Title)
	merged.Year = orInt(p.Year, old.Year)
	merged.PublicationDate = orString(p.PublicationDate, old.PublicationDate)
	merged.Citations = orInt(p.CitationCount, old.Citations)
	merged.PDFURL = orString(p.PDFURL(), old.PDFURL)
	merged.URL = orString(p.URL, old.URL)
	if p.ExternalIDs != nil && !p.ExternalIDs.IsZero() {
		ext := *p.ExternalIDs
		merged.ExternalIDs = &ext
	}
	merged.Venue = orString(p.Venue, old.Venue)
	if len(p.PublicationTypes) > 0 {
		merged.Types = append([]string(nil), p.PublicationTypes...)
	}
	merged.Authors = unionAuthors(old.Authors, authorID, localName, p.Authors)
	merged.LastSeen = stamp
	return &merged
}

func unionAuthors(existing []AuthorRef, authorID, localName string, fetched []s2.PaperAuthor) []AuthorRef {
	out := make([]AuthorRef, 0, len(existing)+len(fetched)+1)
	seen := make(map[string]bool, cap(out))
	add := func(id, name string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, AuthorRef{AuthorID: id, Name: name})
	}

	for _, a := range existing {
		add(a.AuthorID, a.Name)
	}
	add(authorID, localName)
	for _, a := range fetched {
		add(a.AuthorID, a.Name)
	}
	return out
}

// UpsertProfessor creates or refreshes the professor record for id.
// paperIDs are unioned with the stored ones; the identity fields are
// overwritten when non-empty.
func (c *Catalog) UpsertProfessor(id, name, institution, department string, paperIDs []string, now time.Time) *Professor {
	p, ok := c.Professors[id]
	if !ok {
		p = &Professor{AuthorID: id}
		c.Professors[id] = p
	}

	union := make(map[string]bool, len(p.PaperIDs)+len(paperIDs))
	for _, pid := range p.PaperIDs {
		union[pid] = true
	}
	for _, pid := range paperIDs {
		if pid != "" {
			union[pid] = true
		}
	}

	p.Name = orString(name, p.Name)
	p.Institution = orString(institution, p.Institution)
	p.Department = orString(department, p.Department)
	p.PaperIDs = sortedKeys(union)
	p.LastUpdated = now.Format(DateLayout)
	return p
}

func orString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func orInt(v, fallback *int) *int {
	if v != nil {
		n := *v
		return &n
	}
	return fallback
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
