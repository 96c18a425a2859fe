// Package roster loads scraped faculty rosters: institutions, their
// departments, and each person's publication entries.
package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/facultyindex/facultyindex/internal/title"
)

// Entry is one scraped publication entry on a profile page. Title holds a
// title the scraper already isolated; Citation (or Raw, for entries the
// scraper could not split) holds the full citation line; HTML holds the
// list-item markup when it was kept.
type Entry struct {
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
	Citation string `json:"citation,omitempty"`
	Raw      string `json:"raw,omitempty"`
	HTML     string `json:"html,omitempty"`
}

// Person is one faculty member of the roster.
type Person struct {
	Name        string  `json:"name"`
	Institution string  `json:"institution"`
	Department  string  `json:"department"`
	ProfileURL  string  `json:"profile_url,omitempty"`
	Papers      []Entry `json:"papers,omitempty"`
}

// Roster is an immutable, ordered list of persons.
type Roster struct {
	persons []Person
}

// New returns a roster of persons sorted by institution, department and
// name.
func New(persons []Person) Roster {
	ps := append([]Person(nil), persons...)
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.Institution != b.Institution {
			return a.Institution < b.Institution
		}
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		return a.Name < b.Name
	})
	return Roster{persons: ps}
}

// Persons returns the persons in deterministic order.
func (r Roster) Persons() []Person {
	return append([]Person(nil), r.persons...)
}

// Len returns the number of persons.
func (r Roster) Len() int {
	return len(r.persons)
}

// Load reads a roster file. See Parse for the accepted format.
func Load(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("reading roster: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return Roster{}, fmt.Errorf("parsing roster %s: %w", path, err)
	}
	return r, nil
}

type personJSON struct {
	ProfileURL string  `json:"profile_url"`
	Papers     []Entry `json:"papers"`
}

// Parse decodes a roster of the form
//
//	{institution: {department: {name: {profile_url, papers: [...]}}}}
//
// A department may also map to a plain list of names.
func Parse(data []byte) (Roster, error) {
	var hier map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &hier); err != nil {
		return Roster{}, err
	}

	var persons []Person
	for inst, depts := range hier {
		for dept, raw := range depts {
			raw = bytes.TrimSpace(raw)
			if len(raw) > 0 && raw[0] == '[' {
				var names []string
				if err := json.Unmarshal(raw, &names); err != nil {
					return Roster{}, fmt.Errorf("%s / %s: %w", inst, dept, err)
				}
				for _, n := range names {
					if n = strings.TrimSpace(n); n != "" {
						persons = append(persons, Person{Name: n, Institution: inst, Department: dept})
					}
				}
				continue
			}

			var people map[string]*personJSON
			if err := json.Unmarshal(raw, &people); err != nil {
				return Roster{}, fmt.Errorf("%s / %s: %w", inst, dept, err)
			}
			for name, p := range people {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				person := Person{Name: name, Institution: inst, Department: dept}
				if p != nil {
					person.ProfileURL = p.ProfileURL
					person.Papers = p.Papers
				}
				persons = append(persons, person)
			}
		}
	}
	return New(persons), nil
}

// ToCitation returns the entry as extractor input, or false when the entry
// carries no citation text.
func (e Entry) ToCitation() (title.Citation, bool) {
	if strings.TrimSpace(e.HTML) != "" {
		if c, err := title.FromHTML(e.HTML); err == nil && c.Text != "" {
			return c, true
		}
	}
	text := e.Citation
	if text == "" {
		text = e.Raw
	}
	if strings.TrimSpace(text) == "" {
		return title.Citation{}, false
	}
	return title.Citation{Text: text}, true
}

// Titles returns up to n distinct titles for p, in entry order. Entries
// with citation text go through ex; entries carrying only a scraped
// title use it after cleaning. A non-positive n means no limit.
func (p Person) Titles(ex *title.Extractor, n int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range p.Papers {
		if n > 0 && len(out) >= n {
			break
		}
		var t string
		if c, ok := e.ToCitation(); ok {
			if r, ok := ex.Extract(c); ok {
				t = r.Title
			}
		}
		if t == "" {
			t = title.Clean(e.Title)
		}
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
