package pageharvest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	rpdf "rsc.io/pdf"
)

// PageCheck is the verification outcome of one page PDF.
type PageCheck struct {
	Page     int
	Path     string
	NumPages int
	Err      error
}

// VerifyReport lists the checks of a range in page order.
type VerifyReport struct {
	Pages []PageCheck
}

// Failed returns the checks that did not pass.
func (r *VerifyReport) Failed() []PageCheck {
	var failed []PageCheck
	for _, c := range r.Pages {
		if c.Err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}

// OK reports whether every page passed.
func (r *VerifyReport) OK() bool {
	return len(r.Failed()) == 0
}

// Verify opens every page{N}.pdf of rng in dir and checks it is a
// readable PDF with at least one page. Up to concurrency files are read
// at a time. Per-page failures are recorded in the report; the returned
// error is only set when ctx ends first.
func Verify(ctx context.Context, dir string, rng PageRange, concurrency int) (*VerifyReport, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	pages := rng.Pages()
	rep := &VerifyReport{Pages: make([]PageCheck, len(pages))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, n := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, PDFName(n))
			count, err := PageCount(path)
			if err == nil && count < 1 {
				err = fmt.Errorf("%s: document has no pages", path)
			}
			rep.Pages[i] = PageCheck{Page: n, Path: path, NumPages: count, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	return rep, nil
}

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (n int, err error) {
	r, closeFn, err := openPDF(path)
	if err != nil {
		return 0, err
	}
	defer closeFn()
	defer recoverPDF(path, &err)
	return r.NumPage(), nil
}

// PageText returns the text of every page of the PDF at path, one
// element per page.
func PageText(path string) (texts []string, err error) {
	r, closeFn, err := openPDF(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	defer recoverPDF(path, &err)

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		var b strings.Builder
		for _, t := range p.Content().Text {
			b.WriteString(t.S)
		}
		texts = append(texts, b.String())
	}
	return texts, nil
}

func openPDF(path string) (*rpdf.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("pageharvest: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("pageharvest: %w", err)
	}
	r, err := rpdf.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("pageharvest: reading %s: %w", path, err)
	}
	return r, func() { f.Close() }, nil
}

// recoverPDF turns a panic of the PDF reader on malformed input into err.
func recoverPDF(path string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("pageharvest: malformed PDF %s: %v", path, r)
	}
}
