package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFiles(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "education", "book-01-foundations", "ch01.jsonl"))
	writeFile(t, filepath.Join(base, "source", "targets.jsonl"))
	writeFile(t, filepath.Join(base, "playbooks", "deploy.jsonl"))
	writeFile(t, filepath.Join(base, "book-02-advanced", "ch05.jsonl"))
	writeFile(t, filepath.Join(base, "education", "notes.txt"))     // wrong extension
	writeFile(t, filepath.Join(base, "scratch", "ignored.jsonl"))   // unknown dir
	writeFile(t, filepath.Join(base, "booklet", "ignored.jsonl"))   // not book-*

	sources, err := Files(base)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	want := map[string]bool{
		"education/book-01-foundations/ch01.jsonl": true,
		"source/targets.jsonl":                     true,
		"playbooks/deploy.jsonl":                   true,
		"book-02-advanced/ch05.jsonl":              true,
	}
	if len(sources) != len(want) {
		t.Fatalf("got %d sources, want %d: %+v", len(sources), len(want), sources)
	}
	for _, src := range sources {
		if !want[src.Rel] {
			t.Errorf("unexpected source %q", src.Rel)
		}
		if src.Path == "" {
			t.Errorf("source %q missing absolute path", src.Rel)
		}
	}

	// Category files come before top-level book-* files.
	if sources[len(sources)-1].Rel != "book-02-advanced/ch05.jsonl" {
		t.Errorf("expected book-* files last, got %q", sources[len(sources)-1].Rel)
	}
}

func TestFilesMissingCategories(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "docs", "faq.jsonl"))

	sources, err := Files(base)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(sources) != 1 || sources[0].Rel != "docs/faq.jsonl" {
		t.Fatalf("got %+v", sources)
	}
}

func TestFilesEmptyDir(t *testing.T) {
	sources, err := Files(t.TempDir())
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("expected no sources, got %+v", sources)
	}
}
