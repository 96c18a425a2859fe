// Package catalog holds the persisted professor/paper store and the
// rules for folding freshly fetched papers into it.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/facultyindex/facultyindex/internal/s2"
)

// DateLayout is the format of last_seen and last_updated stamps.
const DateLayout = "2006-01-02"

// ErrCorrupt is returned by Load when the catalog file cannot be decoded.
var ErrCorrupt = errors.New("catalog file is corrupt")

// AuthorRef is an author entry on a paper.
type AuthorRef struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// Paper is a persisted paper record keyed by external paper id.
type Paper struct {
	PaperID         string          `json:"paperId"`
	Title           string          `json:"title,omitempty"`
	Year            *int            `json:"year"`
	PublicationDate string          `json:"publicationDate,omitempty"`
	Citations       *int            `json:"citations"`
	PDFURL          string          `json:"pdf_url,omitempty"`
	URL             string          `json:"url,omitempty"`
	ExternalIDs     *s2.ExternalIDs `json:"externalIds,omitempty"`
	Venue           string          `json:"venue,omitempty"`
	Types           []string        `json:"types,omitempty"`
	Authors         []AuthorRef     `json:"authors"`
	LastSeen        string          `json:"last_seen"`
}

// Professor is a persisted professor record keyed by external author id.
type Professor struct {
	AuthorID    string   `json:"authorId"`
	Name        string   `json:"name"`
	Institution string   `json:"institution"`
	Department  string   `json:"department"`
	PaperIDs    []string `json:"paperIds"`
	LastUpdated string   `json:"last_updated"`
}

// Catalog is the whole persisted store. It only grows: no operation
// removes a name mapping, professor, paper or author.
type Catalog struct {
	NameToAuthorIDs map[string][]string   `json:"name_to_authorIds"`
	Professors      map[string]*Professor `json:"professors"`
	Papers          map[string]*Paper     `json:"papers"`
}

// New returns an empty catalog.
func New() *Catalog {
	c := &Catalog{}
	c.init()
	return c
}

func (c *Catalog) init() {
	if c.NameToAuthorIDs == nil {
		c.NameToAuthorIDs = make(map[string][]string)
	}
	if c.Professors == nil {
		c.Professors = make(map[string]*Professor)
	}
	if c.Papers == nil {
		c.Papers = make(map[string]*Paper)
	}
}

// Load reads the catalog at path. A missing file yields an empty catalog;
// an unreadable or undecodable file is an error.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	c := &Catalog{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
	}
	for id, p := range c.Professors {
		if p == nil {
			return nil, fmt.Errorf("%w: %s: professor %q is null", ErrCorrupt, path, id)
		}
	}
	for id, p := range c.Papers {
		if p == nil {
			return nil, fmt.Errorf("%w: %s: paper %q is null", ErrCorrupt, path, id)
		}
	}
	c.init()
	return c, nil
}

// Save writes the catalog to path as indented JSON. The file is written
// to a temporary sibling and renamed into place.
func (c *Catalog) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp catalog: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp catalog: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing catalog: %w", err)
	}
	return nil
}

// IdentityFor returns the author ids previously stored for name.
func (c *Catalog) IdentityFor(name string) []string {
	ids := c.NameToAuthorIDs[name]
	if len(ids) == 0 {
		return nil
	}
	return append([]string(nil), ids...)
}

// SetIdentity unions ids into the mapping for name. Existing ids keep
// their position; new ids are appended in the given order.
func (c *Catalog) SetIdentity(name string, ids []string) {
	if name == "" || len(ids) == 0 {
		return
	}
	existing := c.NameToAuthorIDs[name]
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		existing = append(existing, id)
	}
	c.NameToAuthorIDs[name] = existing
}

// Names returns the mapped local names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.NameToAuthorIDs))
	for n := range c.NameToAuthorIDs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check reports invariant violations: references to missing papers,
// unsorted or duplicated paperIds and duplicate paper authors.
func (c *Catalog) Check() []string {
	var problems []string

	for _, id := range sortedProfessorIDs(c) {
		p := c.Professors[id]
		for i, pid := range p.PaperIDs {
			if _, ok := c.Papers[pid]; !ok {
				problems = append(problems, fmt.Sprintf("professor %s: missing paper %s", id, pid))
			}
			if i > 0 && p.PaperIDs[i-1] >= pid {
				problems = append(problems, fmt.Sprintf("professor %s: paperIds not sorted and unique at %s", id, pid))
			}
		}
	}

	for _, pid := range sortedPaperIDs(c) {
		seen := make(map[string]bool)
		for _, a := range c.Papers[pid].Authors {
			if seen[a.AuthorID] {
				problems = append(problems, fmt.Sprintf("paper %s: duplicate author %s", pid, a.AuthorID))
			}
			seen[a.AuthorID] = true
		}
	}
	return problems
}
