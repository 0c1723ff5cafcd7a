package pageharvest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// CollectPDFs returns the paths of page{N}.pdf in dir for every page of
// rng, in page order. A missing page fails with [ErrMissingPage].
func CollectPDFs(dir string, rng PageRange) ([]string, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if rng.Count == 0 {
		return nil, fmt.Errorf("%w: empty page range", ErrInvalidRange)
	}
	files := make([]string, 0, rng.Count)
	for _, n := range rng.Pages() {
		path := filepath.Join(dir, PDFName(n))
		if !fileExists(path) {
			return nil, fmt.Errorf("%w: %s", ErrMissingPage, path)
		}
		files = append(files, path)
	}
	return files, nil
}

// Assemble merges the page PDFs in files, in order, into out and checks
// that the result holds exactly one page per input file. An existing
// out is replaced.
func Assemble(ctx context.Context, files []string, out string) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: nothing to assemble", ErrMissingPage)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(out); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("pageharvest: creating output directory: %w", err)
		}
	}
	if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pageharvest: replacing %s: %w", out, err)
	}

	conf := model.NewDefaultConfiguration()
	if err := pdfcpu.MergeCreateFile(files, out, false, conf); err != nil {
		return fmt.Errorf("pageharvest: merging %d pages: %w", len(files), err)
	}

	got, err := pdfcpu.PageCountFile(out)
	if err != nil {
		return fmt.Errorf("pageharvest: reading %s: %w", out, err)
	}
	if got != len(files) {
		return fmt.Errorf("%w: %s has %d pages, want %d", ErrPageCountMismatch, out, got, len(files))
	}
	return nil
}
