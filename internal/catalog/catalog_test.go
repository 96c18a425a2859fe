package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/facultyindex/facultyindex/internal/s2"
)

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(c.Professors) != 0 || len(c.Papers) != 0 || len(c.NameToAuthorIDs) != 0 {
		t.Errorf("Load() = %+v, want empty catalog", c)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load() error = %v, want ErrCorrupt", err)
	}
}

func TestLoadRejectsNullRecords(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"null paper", `{"papers": {"p1": null}}`},
		{"null professor", `{"professors": {"a1": null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.json")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`{"papers": {}}`), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// Missing maps are initialized so callers can write into them.
	c.SetIdentity("Jane Smith", []string{"1"})
	c.UpsertProfessor("1", "Jane Smith", "", "", nil, time.Now())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	c := New()
	c.SetIdentity("Jane Smith", []string{"a1"})
	ids := c.MergePapers("a1", "Jane Smith", []s2.Paper{
		{PaperID: "p1", Title: "A Study of Widgets", Year: intPtr(2020), CitationCount: intPtr(0)},
	}, now)
	c.UpsertProfessor("a1", "Jane Smith", "Uni", "CS", ids, now)

	if err := c.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, c)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the catalog", len(entries))
	}
}

func TestSetIdentityUnion(t *testing.T) {
	c := New()
	c.SetIdentity("Jane Smith", []string{"b", "a"})
	c.SetIdentity("Jane Smith", []string{"a", "c", ""})
	c.SetIdentity("Jane Smith", nil)

	want := []string{"b", "a", "c"}
	if got := c.IdentityFor("Jane Smith"); !reflect.DeepEqual(got, want) {
		t.Errorf("IdentityFor() = %v, want %v", got, want)
	}
	if got := c.IdentityFor("Nobody"); got != nil {
		t.Errorf("IdentityFor(unknown) = %v, want nil", got)
	}

	// The returned slice is a copy.
	c.IdentityFor("Jane Smith")[0] = "zzz"
	if c.NameToAuthorIDs["Jane Smith"][0] != "b" {
		t.Error("IdentityFor() exposed internal slice")
	}
}

func TestNames(t *testing.T) {
	c := New()
	c.SetIdentity("Zed", []string{"1"})
	c.SetIdentity("Amy", []string{"2"})
	if got := c.Names(); !reflect.DeepEqual(got, []string{"Amy", "Zed"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestCheck(t *testing.T) {
	c := New()
	c.Professors["a1"] = &Professor{AuthorID: "a1", PaperIDs: []string{"p2", "p1"}}
	c.Papers["p1"] = &Paper{PaperID: "p1", Authors: []AuthorRef{{AuthorID: "x"}, {AuthorID: "x"}}}

	problems := c.Check()
	if len(problems) != 3 {
		t.Errorf("Check() = %v, want 3 problems", problems)
	}

	clean := New()
	ids := clean.MergePapers("a1", "Jane", []s2.Paper{{PaperID: "p1"}, {PaperID: "p2"}}, time.Now())
	clean.UpsertProfessor("a1", "Jane", "", "", ids, time.Now())
	if problems := clean.Check(); len(problems) != 0 {
		t.Errorf("Check() on merged catalog = %v", problems)
	}
}

func intPtr(n int) *int {
	return &n
}
