package pageharvest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/chromedp"
)

// Renderer prints HTML to PDF with one long-lived headless browser.
//
// Unlike the [Exporter], which isolates every page in its own process,
// a Renderer reuses the browser and opens a tab per conversion. It is
// meant for local content such as the HTML wrappers written by the
// [Walker]. It is safe for concurrent use.
//
// Call [Renderer.Close] when the Renderer is no longer needed.
type Renderer struct {
	cfg           harvestConfig
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewRenderer starts a headless browser. The caller must call
// [Renderer.Close] when finished.
func NewRenderer(opts ...Option) (*Renderer, error) {
	cfg := newConfig(opts)

	allocOpts, err := cfg.allocatorOptions()
	if err != nil {
		return nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("pageharvest: starting browser: %w", err)
	}

	return &Renderer{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases the browser process. Close is idempotent.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.browserCancel()
	r.allocCancel()
	return nil
}

// RenderHTML prints an HTML string. If pg is nil, [DefaultPageConfig]
// values are used.
func (r *Renderer) RenderHTML(ctx context.Context, html string, pg *PageConfig) (*Result, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "pageharvest-*.html")
	if err != nil {
		return nil, fmt.Errorf("pageharvest: creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return nil, fmt.Errorf("pageharvest: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("pageharvest: closing temp file: %w", err)
	}
	return r.render(ctx, "file://"+name, pg, false)
}

// RenderURL prints the page at rawURL.
func (r *Renderer) RenderURL(ctx context.Context, rawURL string, pg *PageConfig) (*Result, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("pageharvest: invalid URL %q: %w", rawURL, err)
	}
	return r.render(ctx, rawURL, pg, false)
}

// RenderFile prints a local HTML file. Relative references, such as the
// SVG of a page wrapper, resolve against the file's directory.
func (r *Renderer) RenderFile(ctx context.Context, path string, pg *PageConfig) (*Result, error) {
	return r.renderFile(ctx, path, pg, false)
}

// renderFile prints a local file. With fit set the document margins are
// removed and only the first sheet is printed, see [fitStyleJS].
func (r *Renderer) renderFile(ctx context.Context, path string, pg *PageConfig, fit bool) (*Result, error) {
	if err := r.checkClosed(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("pageharvest: resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("pageharvest: %w", err)
	}
	return r.render(ctx, "file://"+filepath.ToSlash(abs), pg, fit)
}

// WrapperPageConfig returns a borderless sheet sized to a wrapper image
// of width x height CSS pixels.
func WrapperPageConfig(width, height int) PageConfig {
	const cmPerPx = 2.54 / 96
	return PageConfig{
		Size:            PageSize{Width: float64(width) * cmPerPx, Height: float64(height) * cmPerPx},
		Scale:           1.0,
		Borderless:      true,
		PrintBackground: true,
	}
}

// RenderPages prints the HTML wrappers page-{N}.html of dir to
// page{N}.pdf in outDir, in page order. Existing PDFs are kept unless
// overwrite is set. If pg is nil, a [WrapperPageConfig] of the default
// wrapper size is used.
//
// Every wrapper yields a single-page PDF: the default body margin and
// the inline image baseline gap are removed before printing, and only
// the first sheet is kept.
func (r *Renderer) RenderPages(ctx context.Context, dir, outDir string, rng PageRange, pg *PageConfig, overwrite bool) (*Report, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	if pg == nil {
		d := WrapperPageConfig(DefaultWrapperWidth, DefaultWrapperHeight)
		pg = &d
	}
	if outDir == "" {
		outDir = dir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("pageharvest: creating output directory: %w", err)
	}

	log := r.cfg.logger.With("component", "render")
	rep := &Report{OutDir: outDir, Total: rng.Count}
	for _, n := range rng.Pages() {
		src := filepath.Join(dir, HTMLName(n))
		dst := filepath.Join(outDir, PDFName(n))
		if !overwrite && fileExists(dst) {
			rep.Pages = append(rep.Pages, PageOutcome{Page: n, Path: dst, Skipped: true})
			r.cfg.report(Progress{Page: n, Done: len(rep.Pages), Total: rep.Total, Skipped: true})
			continue
		}
		if !fileExists(src) {
			err := fmt.Errorf("%w: %s", ErrMissingPage, src)
			rep.Pages = append(rep.Pages, PageOutcome{Page: n, Path: dst, Err: err})
			return rep, err
		}

		res, err := r.renderFile(ctx, src, pg, true)
		if err == nil {
			err = res.WriteToFile(dst, 0o644)
		}
		if err != nil {
			err = fmt.Errorf("page %d: %w", n, err)
			rep.Pages = append(rep.Pages, PageOutcome{Page: n, Path: dst, Err: err})
			return rep, err
		}
		log.Debug("page rendered", "page", n, "path", dst)
		rep.Pages = append(rep.Pages, PageOutcome{Page: n, Path: dst, Bytes: res.Len()})
		r.cfg.report(Progress{Page: n, Done: len(rep.Pages), Total: rep.Total})
	}
	return rep, nil
}

// fitStyleJS makes a wrapper image fill the sheet exactly.
const fitStyleJS = `(() => {
	const style = document.createElement("style");
	style.textContent = "html, body { margin: 0; padding: 0; } img { display: block; }";
	document.head.appendChild(style);
	return true;
})()`

// render performs the navigation and PDF generation in a new tab.
func (r *Renderer) render(ctx context.Context, targetURL string, pg *PageConfig, fit bool) (*Result, error) {
	if err := pg.Validate(); err != nil {
		return nil, err
	}
	if r.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.timeout)
		defer cancel()
	}

	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()

	// Tie the tab to the caller's context as well as to the browser.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	params := pg.printParams()
	actions := []chromedp.Action{
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if fit {
		var ok bool
		actions = append(actions, chromedp.Evaluate(fitStyleJS, &ok))
		params = params.WithPageRanges("1")
	}

	var buf []byte
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, _, err = params.Do(ctx)
		return err
	}))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("pageharvest: rendering failed: %w", ctx.Err())
		}
		return nil, fmt.Errorf("pageharvest: rendering failed: %w", err)
	}
	return &Result{data: buf}, nil
}

func (r *Renderer) checkClosed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}
