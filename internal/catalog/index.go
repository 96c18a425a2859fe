package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

// Index is an ephemeral SQLite query layer over a Catalog. It can always
// be rebuilt from the catalog file.
type Index struct {
	db *sql.DB
}

// Order selects how professor papers are ranked.
type Order string

const (
	ByCitations Order = "cited"
	ByRecent    Order = "recent"
)

// ParseOrder parses a ranking name.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case ByCitations, ByRecent:
		return Order(s), nil
	}
	return "", fmt.Errorf("unknown order %q (want %q or %q)", s, ByCitations, ByRecent)
}

// IndexedPaper is a paper row returned by index queries. Zero Year and
// Citations mean unknown.
type IndexedPaper struct {
	PaperID   string `json:"paperId"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	Citations int    `json:"citations"`
	Venue     string `json:"venue,omitempty"`
	PDFURL    string `json:"pdf_url,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Stats reports row counts after a rebuild.
type Stats struct {
	Professors   int `json:"professors"`
	Papers       int `json:"papers"`
	PaperAuthors int `json:"paper_authors"`
}

// OpenIndex opens or creates the index database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS professors (
			author_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			institution TEXT,
			department TEXT,
			paper_count INTEGER NOT NULL,
			last_updated TEXT
		);

		CREATE TABLE IF NOT EXISTS papers (
			paper_id TEXT PRIMARY KEY,
			title TEXT,
			year INTEGER,
			publication_date TEXT,
			citations INTEGER,
			pdf_url TEXT,
			url TEXT,
			venue TEXT,
			doi TEXT,
			arxiv_id TEXT,
			types_json TEXT,
			last_seen TEXT
		);

		CREATE TABLE IF NOT EXISTS paper_authors (
			paper_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			name TEXT,
			position INTEGER NOT NULL,
			PRIMARY KEY (paper_id, author_id)
		);

		CREATE INDEX IF NOT EXISTS idx_paper_authors_author ON paper_authors(author_id);
		CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi) WHERE doi IS NOT NULL AND doi != '';
	`
	_, err := db.Exec(schema)
	return err
}

// Rebuild clears the index and repopulates it from c in one transaction.
func (x *Index) Rebuild(ctx context.Context, c *Catalog) (Stats, error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("beginning rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"paper_authors", "papers", "professors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Stats{}, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	profStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO professors (author_id, name, institution, department, paper_count, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("preparing professors insert: %w", err)
	}
	defer profStmt.Close()

	paperStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO papers (
			paper_id, title, year, publication_date, citations,
			pdf_url, url, venue, doi, arxiv_id, types_json, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("preparing papers insert: %w", err)
	}
	defer paperStmt.Close()

	authorStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO paper_authors (paper_id, author_id, name, position)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("preparing paper_authors insert: %w", err)
	}
	defer authorStmt.Close()

	var stats Stats
	for _, id := range sortedProfessorIDs(c) {
		p := c.Professors[id]
		if _, err := profStmt.ExecContext(ctx, id, p.Name, p.Institution, p.Department, len(p.PaperIDs), p.LastUpdated); err != nil {
			return Stats{}, fmt.Errorf("inserting professor %s: %w", id, err)
		}
		stats.Professors++
	}

	for _, id := range sortedPaperIDs(c) {
		p := c.Papers[id]
		var typesJSON []byte
		if len(p.Types) > 0 {
			typesJSON, err = json.Marshal(p.Types)
			if err != nil {
				return Stats{}, fmt.Errorf("marshaling types for %s: %w", id, err)
			}
		}
		var doi, arxiv string
		if p.ExternalIDs != nil {
			doi, arxiv = p.ExternalIDs.DOI, p.ExternalIDs.ArXiv
		}
		_, err = paperStmt.ExecContext(ctx,
			id, p.Title, nullableInt(p.Year), nullableStringValue(p.PublicationDate), nullableInt(p.Citations),
			nullableStringValue(p.PDFURL), nullableStringValue(p.URL), nullableStringValue(p.Venue),
			nullableStringValue(doi), nullableStringValue(arxiv), nullableBytes(typesJSON), p.LastSeen,
		)
		if err != nil {
			return Stats{}, fmt.Errorf("inserting paper %s: %w", id, err)
		}
		stats.Papers++

		for i, a := range p.Authors {
			res, err := authorStmt.ExecContext(ctx, id, a.AuthorID, a.Name, i)
			if err != nil {
				return Stats{}, fmt.Errorf("inserting author %s of %s: %w", a.AuthorID, id, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				stats.PaperAuthors++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("committing rebuild: %w", err)
	}
	return stats, nil
}

// ProfessorPapers returns up to limit papers of authorID ranked by order.
// A non-positive limit returns all of them.
func (x *Index) ProfessorPapers(ctx context.Context, authorID string, order Order, limit int) ([]IndexedPaper, error) {
	var orderBy string
	switch order {
	case ByCitations:
		orderBy = "p.citations IS NULL, p.citations DESC, p.year DESC, p.paper_id"
	case ByRecent:
		orderBy = "p.year IS NULL, p.year DESC, p.publication_date DESC, p.paper_id"
	default:
		return nil, fmt.Errorf("unknown order %q", order)
	}

	query := `
		SELECT p.paper_id, p.title, p.year, p.citations, p.venue, p.pdf_url, p.url
		FROM papers p
		JOIN paper_authors pa ON pa.paper_id = p.paper_id
		WHERE pa.author_id = ?
		ORDER BY ` + orderBy
	args := []interface{}{authorID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers of %s: %w", authorID, err)
	}
	defer rows.Close()

	var out []IndexedPaper
	for rows.Next() {
		var p IndexedPaper
		var title, venue, pdfURL, u sql.NullString
		var year, cites sql.NullInt64
		if err := rows.Scan(&p.PaperID, &title, &year, &cites, &venue, &pdfURL, &u); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		p.Title = title.String
		p.Year = int(year.Int64)
		p.Citations = int(cites.Int64)
		p.Venue = venue.String
		p.PDFURL = pdfURL.String
		p.URL = u.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopPapers returns the n most-cited papers of authorID followed by the n
// most recent ones that are not already listed.
func (x *Index) TopPapers(ctx context.Context, authorID string, n int) ([]IndexedPaper, error) {
	cited, err := x.ProfessorPapers(ctx, authorID, ByCitations, n)
	if err != nil {
		return nil, err
	}
	recent, err := x.ProfessorPapers(ctx, authorID, ByRecent, n)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cited)+len(recent))
	out := make([]IndexedPaper, 0, len(cited)+len(recent))
	for _, list := range [][]IndexedPaper{cited, recent} {
		for _, p := range list {
			if seen[p.PaperID] {
				continue
			}
			seen[p.PaperID] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// Count returns the number of indexed papers.
func (x *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := x.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM papers").Scan(&count)
	return count, err
}

func sortedProfessorIDs(c *Catalog) []string {
	ids := make([]string, 0, len(c.Professors))
	for id := range c.Professors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedPaperIDs(c *Catalog) []string {
	ids := make([]string, 0, len(c.Papers))
	for id := range c.Papers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableStringValue(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
