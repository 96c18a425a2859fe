// Package s2 provides a paced, retrying client for the Semantic Scholar
// Academic Graph API.
package s2

import (
	"bytes"
	"encoding/json"
)

// Author is an author search result.
type Author struct {
	AuthorID      string   `json:"authorId"`
	Name          string   `json:"name"`
	Affiliations  []string `json:"affiliations,omitempty"`
	URL           string   `json:"url,omitempty"`
	PaperCount    int      `json:"paperCount,omitempty"`
	CitationCount int      `json:"citationCount,omitempty"`
}

// PaperAuthor is an author entry embedded in a paper.
type PaperAuthor struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// OpenAccessPDF describes the open-access PDF location of a paper.
type OpenAccessPDF struct {
	URL    string `json:"url,omitempty"`
	Status string `json:"status,omitempty"`
}

// ExternalIDs contains various external identifiers for a paper.
type ExternalIDs struct {
	DOI           string `json:"DOI,omitempty"`
	ArXiv         string `json:"ArXiv,omitempty"`
	PubMed        string `json:"PubMed,omitempty"`
	PubMedCentral string `json:"PubMedCentral,omitempty"`
	DBLP          string `json:"DBLP,omitempty"`
	MAG           string `json:"MAG,omitempty"`
	CorpusID      int    `json:"CorpusId,omitempty"`
}

// IsZero reports whether no identifier is set.
func (e ExternalIDs) IsZero() bool {
	return e == ExternalIDs{}
}

// Paper is a paper as returned by search and author-papers endpoints.
// Pointer fields distinguish "absent" from a legitimate zero.
type Paper struct {
	PaperID          string         `json:"paperId"`
	Title            string         `json:"title,omitempty"`
	Year             *int           `json:"year,omitempty"`
	PublicationDate  string         `json:"publicationDate,omitempty"`
	CitationCount    *int           `json:"citationCount,omitempty"`
	OpenAccessPDF    *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	IsOpenAccess     *bool          `json:"isOpenAccess,omitempty"`
	URL              string         `json:"url,omitempty"`
	ExternalIDs      *ExternalIDs   `json:"externalIds,omitempty"`
	Venue            string         `json:"venue,omitempty"`
	PublicationTypes []string       `json:"publicationTypes,omitempty"`
	Authors          []PaperAuthor  `json:"authors,omitempty"`
}

// PDFURL returns the best-known PDF link: the open-access PDF, else an
// arXiv PDF derived from the arXiv id, else the DOI resolver link.
func (p Paper) PDFURL() string {
	if p.OpenAccessPDF != nil && p.OpenAccessPDF.URL != "" {
		return p.OpenAccessPDF.URL
	}
	if p.ExternalIDs != nil {
		if p.ExternalIDs.ArXiv != "" {
			return "https://arxiv.org/pdf/" + p.ExternalIDs.ArXiv + ".pdf"
		}
		if p.ExternalIDs.DOI != "" {
			return "https://doi.org/" + p.ExternalIDs.DOI
		}
	}
	return ""
}

// AuthorSearchResponse is the response from the author search endpoint.
type AuthorSearchResponse struct {
	Total  int      `json:"total"`
	Offset int      `json:"offset"`
	Next   int      `json:"next,omitempty"`
	Data   []Author `json:"data"`
}

// PaperSearchResponse is the response from the paper search endpoint.
type PaperSearchResponse struct {
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Next   int     `json:"next,omitempty"`
	Data   []Paper `json:"data"`
}

// BulkSearchResponse is the response from the bulk paper search endpoint.
type BulkSearchResponse struct {
	Total int     `json:"total"`
	Token string  `json:"token,omitempty"`
	Data  []Paper `json:"data"`
}

// AuthorPapersResponse is the response from the author papers endpoint.
type AuthorPapersResponse struct {
	Offset int               `json:"offset"`
	Next   int               `json:"next,omitempty"`
	Data   []AuthorPaperItem `json:"data"`
}

// AuthorPaperItem is one author-papers entry. The API returns papers
// either bare or wrapped as {"paper": {...}}; both decode into Paper.
type AuthorPaperItem struct {
	Paper
}

// UnmarshalJSON accepts both the bare and the wrapped form.
func (it *AuthorPaperItem) UnmarshalJSON(data []byte) error {
	var wrapped struct {
		Paper *Paper `json:"paper"`
	}
	if bytes.Contains(data, []byte(`"paper"`)) {
		if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Paper != nil {
			it.Paper = *wrapped.Paper
			return nil
		}
	}
	return json.Unmarshal(data, &it.Paper)
}
