package pageharvest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultExportDir is the directory page PDFs are written to when an
// [ExportJob] does not name one.
const DefaultExportDir = "pages"

// ExportJob describes a PDF export run.
type ExportJob struct {
	// URL is the page to print. [PagePlaceholder] is replaced by the page
	// number; without it every page prints the same URL.
	URL string

	// Range selects the pages to export. Count must be at least 1.
	Range PageRange

	// OutDir receives page{N}.pdf files. Defaults to [DefaultExportDir].
	OutDir string

	// Page holds the print settings. Nil means [ExportPageConfig].
	Page *PageConfig

	// Overwrite re-exports pages whose file already exists.
	Overwrite bool

	// WaitSelector, if set, must be visible before printing.
	WaitSelector string

	// SettleDelay is slept after the load event, before printing.
	SettleDelay time.Duration
}

// PageOutcome records what happened to one page of a run.
type PageOutcome struct {
	Page    int
	Path    string
	Bytes   int
	Skipped bool
	Err     error
}

// Report summarizes a run. Pages are listed in the order they were handled.
type Report struct {
	OutDir string
	Total  int
	Pages  []PageOutcome
}

// Written returns the number of pages written during the run.
func (r *Report) Written() int {
	n := 0
	for _, p := range r.Pages {
		if !p.Skipped && p.Err == nil {
			n++
		}
	}
	return n
}

// Skipped returns the number of pages left untouched because their file
// already existed.
func (r *Report) Skipped() int {
	n := 0
	for _, p := range r.Pages {
		if p.Skipped {
			n++
		}
	}
	return n
}

// Exporter prints viewer pages to PDF, one fresh browser per page.
//
// Pages are exported strictly in order: the browser of a page is killed
// before the next one is launched, so at most one browser process is
// alive at any time.
type Exporter struct {
	cfg harvestConfig
}

// NewExporter creates an Exporter. No browser is started until
// [Exporter.Export] runs.
func NewExporter(opts ...Option) *Exporter {
	return &Exporter{cfg: newConfig(opts)}
}

// Export runs job. It stops at the first failing page; the returned
// Report then holds every page handled so far, including the failure.
func (e *Exporter) Export(ctx context.Context, job ExportJob) (*Report, error) {
	if job.URL == "" {
		return nil, errors.New("pageharvest: export URL is empty")
	}
	if err := job.Range.Validate(); err != nil {
		return nil, err
	}
	if job.Range.Count == 0 {
		return nil, fmt.Errorf("%w: export needs an explicit page count", ErrInvalidRange)
	}
	pg := job.Page
	if pg == nil {
		d := ExportPageConfig()
		pg = &d
	}
	if err := pg.Validate(); err != nil {
		return nil, err
	}

	outDir := job.OutDir
	if outDir == "" {
		outDir = DefaultExportDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("pageharvest: creating output directory: %w", err)
	}

	log := e.cfg.logger.With("component", "export")
	rep := &Report{OutDir: outDir, Total: job.Range.Count}
	for _, n := range job.Range.Pages() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		path := filepath.Join(outDir, PDFName(n))
		if !job.Overwrite && fileExists(path) {
			log.Debug("page exists, skipping", "page", n, "path", path)
			rep.Pages = append(rep.Pages, PageOutcome{Page: n, Path: path, Skipped: true})
			e.cfg.report(Progress{Page: n, Done: len(rep.Pages), Total: rep.Total, Skipped: true})
			continue
		}

		target := PageURL(job.URL, n)
		log.Info("exporting page", "page", n, "total", rep.Total)
		res, err := e.printPage(ctx, target, pg, job.WaitSelector, job.SettleDelay)
		if err == nil {
			err = res.WriteToFile(path, 0o644)
		}
		if err != nil {
			err = fmt.Errorf("page %d: %w", n, err)
			rep.Pages = append(rep.Pages, PageOutcome{Page: n, Path: path, Err: err})
			return rep, err
		}

		log.Debug("page written", "page", n, "path", path, "bytes", res.Len())
		rep.Pages = append(rep.Pages, PageOutcome{Page: n, Path: path, Bytes: res.Len()})
		e.cfg.report(Progress{Page: n, Done: len(rep.Pages), Total: rep.Total})
	}
	return rep, nil
}

// ExportPage prints a single URL in its own browser. If pg is nil,
// [ExportPageConfig] is used.
func (e *Exporter) ExportPage(ctx context.Context, rawURL string, pg *PageConfig) (*Result, error) {
	if pg == nil {
		d := ExportPageConfig()
		pg = &d
	}
	return e.printPage(ctx, rawURL, pg, "", 0)
}

// printPage launches an isolated browser, loads targetURL and prints it.
// The browser is killed before printPage returns.
func (e *Exporter) printPage(ctx context.Context, targetURL string, pg *PageConfig, waitSelector string, settle time.Duration) (*Result, error) {
	if _, err := url.ParseRequestURI(targetURL); err != nil {
		return nil, fmt.Errorf("pageharvest: invalid URL %q: %w", targetURL, err)
	}

	if e.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.timeout)
		defer cancel()
	}

	b, err := launchIsolated(ctx, &e.cfg)
	if err != nil {
		return nil, err
	}
	defer b.kill()

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, b.controlURL)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	// Navigate returns once the load event has fired.
	actions := []chromedp.Action{chromedp.Navigate(targetURL)}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	}
	if settle > 0 {
		actions = append(actions, chromedp.Sleep(settle))
	}

	var buf []byte
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = pg.printParams().Do(ctx)
		return err
	}))

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("pageharvest: printing %s: %w", targetURL, err)
	}
	if !isPDF(buf) {
		return nil, fmt.Errorf("pageharvest: printing %s: browser returned no PDF", targetURL)
	}
	return &Result{data: buf}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
