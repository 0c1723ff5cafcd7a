package pageharvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCollectPDFs(t *testing.T) {
	dir := t.TempDir()
	writePagePDFs(t, dir, PageRange{Start: 1, Count: 3})

	files, err := CollectPDFs(dir, PageRange{Start: 2, Count: 2})
	if err != nil {
		t.Fatalf("CollectPDFs: %v", err)
	}
	want := []string{filepath.Join(dir, "page2.pdf"), filepath.Join(dir, "page3.pdf")}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("CollectPDFs = %v, want %v", files, want)
	}

	if _, err := CollectPDFs(dir, PageRange{Start: 1, Count: 4}); !errors.Is(err, ErrMissingPage) {
		t.Errorf("error = %v, want ErrMissingPage", err)
	}
	if _, err := CollectPDFs(dir, PageRange{Start: 1}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("empty range error = %v, want ErrInvalidRange", err)
	}
}

func TestAssemble(t *testing.T) {
	dir := t.TempDir()
	rng := PageRange{Start: 1, Count: 3}
	writePagePDFs(t, dir, rng)
	files, err := CollectPDFs(dir, rng)
	if err != nil {
		t.Fatalf("CollectPDFs: %v", err)
	}

	out := filepath.Join(dir, "book", SanitizeFilename("Test: Book")+".pdf")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	// An earlier book is replaced, not appended to.
	if err := os.WriteFile(out, buildTestPDF("stale", "stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Assemble(context.Background(), files, out); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	n, err := PageCount(out)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if n != 3 {
		t.Errorf("book has %d pages, want 3", n)
	}
	texts, err := PageText(out)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	for i, want := range []string{"Page 1", "Page 2", "Page 3"} {
		if i < len(texts) && texts[i] != want {
			t.Errorf("page %d text = %q, want %q", i+1, texts[i], want)
		}
	}
}

func TestAssemble_PageCountMismatch(t *testing.T) {
	dir := t.TempDir()
	two := filepath.Join(dir, PDFName(1))
	if err := os.WriteFile(two, buildTestPDF("a", "b"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := Assemble(context.Background(), []string{two}, filepath.Join(dir, "out.pdf"))
	if !errors.Is(err, ErrPageCountMismatch) {
		t.Errorf("error = %v, want ErrPageCountMismatch", err)
	}
}

func TestAssemble_Empty(t *testing.T) {
	err := Assemble(context.Background(), nil, filepath.Join(t.TempDir(), "out.pdf"))
	if !errors.Is(err, ErrMissingPage) {
		t.Errorf("error = %v, want ErrMissingPage", err)
	}
}
