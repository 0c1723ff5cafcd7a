package pageharvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ViewerProfile names the elements of a paginated document viewer.
type ViewerProfile struct {
	// ContentSelector matches the SVG element of the current page.
	ContentSelector string `yaml:"content"`

	// BackgroundSelector matches the <img> holding the page background.
	BackgroundSelector string `yaml:"background"`

	// NextSelector matches the control that advances to the next page.
	NextSelector string `yaml:"next"`

	// PaginationSelector matches the element showing the page count.
	PaginationSelector string `yaml:"pagination"`

	// WrapperWidth and WrapperHeight size the image in the HTML wrapper.
	WrapperWidth  int `yaml:"wrapperWidth"`
	WrapperHeight int `yaml:"wrapperHeight"`
}

// DefaultViewerProfile returns the selectors of the supported viewer.
func DefaultViewerProfile() ViewerProfile {
	return ViewerProfile{
		ContentSelector:    ".lu-page-svg-container svg",
		BackgroundSelector: ".lu-page-background-image",
		NextSelector:       `[data-action="footer-next-page"]`,
		PaginationSelector: "#pagination > div > span",
		WrapperWidth:       DefaultWrapperWidth,
		WrapperHeight:      DefaultWrapperHeight,
	}
}

// withDefaults fills empty fields from [DefaultViewerProfile].
func (p ViewerProfile) withDefaults() ViewerProfile {
	d := DefaultViewerProfile()
	if p.ContentSelector == "" {
		p.ContentSelector = d.ContentSelector
	}
	if p.BackgroundSelector == "" {
		p.BackgroundSelector = d.BackgroundSelector
	}
	if p.NextSelector == "" {
		p.NextSelector = d.NextSelector
	}
	if p.PaginationSelector == "" {
		p.PaginationSelector = d.PaginationSelector
	}
	if p.WrapperWidth <= 0 {
		p.WrapperWidth = d.WrapperWidth
	}
	if p.WrapperHeight <= 0 {
		p.WrapperHeight = d.WrapperHeight
	}
	return p
}

// Login describes a form login performed before walking.
//
// When User is empty the form is left for the user to fill in a visible
// browser window; the walker only waits for SuccessSelector.
type Login struct {
	URL              string
	UserSelector     string
	PasswordSelector string
	SubmitSelector   string
	SuccessSelector  string
	User             string
	Password         string
	Timeout          time.Duration
}

// Walker defaults.
const (
	DefaultWalkDelay       = 1500 * time.Millisecond
	DefaultRecheckInterval = time.Second
	DefaultMaxRechecks     = 10
)

// WalkJob describes a viewer walk.
type WalkJob struct {
	// URL opens the viewer. [PagePlaceholder] is replaced by Range.Start.
	URL string

	// Range selects the pages. The viewer must show Range.Start after
	// loading URL. A zero Count walks to the last page of the pagination.
	Range PageRange

	// OutDir receives page-{N}.svg and page-{N}.html. Defaults to ".".
	OutDir string

	Profile ViewerProfile

	// Delay is waited before reading each page. Defaults to 1.5s.
	Delay time.Duration

	// RecheckInterval and MaxRechecks bound the wait for the viewer to
	// replace the previous page content.
	RecheckInterval time.Duration
	MaxRechecks     int

	// Login, if set, runs before the viewer is opened.
	Login *Login

	// Text also writes the text of each page SVG to page-{N}.txt.
	Text bool

	// Overwrite rewrites pages whose files already exist. Existing pages
	// are otherwise read and paged past without touching their files.
	Overwrite bool
}

func (j WalkJob) withDefaults() WalkJob {
	if j.OutDir == "" {
		j.OutDir = "."
	}
	if j.Delay <= 0 {
		j.Delay = DefaultWalkDelay
	}
	if j.RecheckInterval <= 0 {
		j.RecheckInterval = DefaultRecheckInterval
	}
	if j.MaxRechecks <= 0 {
		j.MaxRechecks = DefaultMaxRechecks
	}
	j.Profile = j.Profile.withDefaults()
	return j
}

// Walker walks a paginated viewer in a single browser tab and saves the
// vector content of every page.
type Walker struct {
	cfg harvestConfig
}

// NewWalker creates a Walker. The browser starts with [Walker.Walk].
func NewWalker(opts ...Option) *Walker {
	return &Walker{cfg: newConfig(opts)}
}

// pageSnapshot is the state of the viewer read by snapshotJS.
type pageSnapshot struct {
	Found      bool   `json:"found"`
	Markup     string `json:"markup"`
	Inner      string `json:"inner"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Walk runs job and returns once the last page was saved or a page failed.
func (w *Walker) Walk(ctx context.Context, job WalkJob) (*Report, error) {
	if job.URL == "" {
		return nil, errors.New("pageharvest: viewer URL is empty")
	}
	if err := job.Range.Validate(); err != nil {
		return nil, err
	}
	job = job.withDefaults()
	if err := os.MkdirAll(job.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("pageharvest: creating output directory: %w", err)
	}

	browserCtx, cancel, err := w.startBrowser(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if job.Login != nil {
		if err := w.login(browserCtx, job.Login); err != nil {
			return nil, err
		}
	}

	if err := w.run(browserCtx, chromedp.Navigate(PageURL(job.URL, job.Range.Start))); err != nil {
		return nil, fmt.Errorf("pageharvest: opening viewer: %w", err)
	}

	rng := job.Range
	if rng.Count == 0 {
		total, err := w.DetectPageCount(browserCtx, job.Profile.PaginationSelector)
		if err != nil {
			return nil, err
		}
		rng.Count = total - rng.Start + 1
		if rng.Count < 1 {
			return nil, fmt.Errorf("%w: start page %d beyond last page %d", ErrInvalidRange, rng.Start, total)
		}
	}

	return w.walkPages(browserCtx, job, rng)
}

// startBrowser starts the single browser of a walk. The returned cancel
// func stops it.
func (w *Walker) startBrowser(ctx context.Context) (context.Context, context.CancelFunc, error) {
	allocOpts, err := w.cfg.allocatorOptions()
	if err != nil {
		return nil, nil, err
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("pageharvest: starting browser: %w", err)
	}
	return browserCtx, cancel, nil
}

// walkPages reads, saves and advances past every page of rng in order.
func (w *Walker) walkPages(ctx context.Context, job WalkJob, rng PageRange) (*Report, error) {
	log := w.cfg.logger.With("component", "walk")
	rep := &Report{OutDir: job.OutDir, Total: rng.Count}
	pages := rng.Pages()

	var previous string
	for i, n := range pages {
		if err := sleepCtx(ctx, job.Delay); err != nil {
			return rep, err
		}
		log.Info("processing page", "page", n, "total", rng.End())

		snap, err := w.awaitChange(ctx, job, previous)
		if err != nil {
			err = fmt.Errorf("page %d: %w", n, err)
			rep.Pages = append(rep.Pages, PageOutcome{Page: n, Err: err})
			return rep, err
		}
		previous = snap.Inner

		out, err := w.savePage(job, n, snap)
		rep.Pages = append(rep.Pages, out)
		if err != nil {
			return rep, err
		}
		w.cfg.report(Progress{Page: n, Done: len(rep.Pages), Total: rep.Total, Skipped: out.Skipped})

		if i == len(pages)-1 {
			break
		}
		if err := w.next(ctx, job.Profile.NextSelector); err != nil {
			return rep, fmt.Errorf("page %d: %w", n, err)
		}
	}
	return rep, nil
}

// awaitChange snapshots the viewer until its content differs from
// previous, rechecking at most job.MaxRechecks times.
func (w *Walker) awaitChange(ctx context.Context, job WalkJob, previous string) (*pageSnapshot, error) {
	for attempt := 0; ; attempt++ {
		snap, err := w.snapshot(ctx, job.Profile, job.Text)
		if err != nil {
			return nil, err
		}
		if !snap.Found {
			return nil, ErrNoContent
		}
		if previous == "" || snap.Inner != previous {
			return snap, nil
		}
		if attempt >= job.MaxRechecks {
			return nil, fmt.Errorf("%w after %d rechecks", ErrContentUnchanged, attempt)
		}
		w.cfg.logger.Debug("content has not changed, rechecking", "in", job.RecheckInterval)
		if err := sleepCtx(ctx, job.RecheckInterval); err != nil {
			return nil, err
		}
	}
}

// savePage writes the SVG, its HTML wrapper and optionally its text.
func (w *Walker) savePage(job WalkJob, n int, snap *pageSnapshot) (PageOutcome, error) {
	svgPath := filepath.Join(job.OutDir, SVGName(n))
	htmlPath := filepath.Join(job.OutDir, HTMLName(n))
	out := PageOutcome{Page: n, Path: svgPath}

	if !job.Overwrite && fileExists(svgPath) && fileExists(htmlPath) {
		out.Skipped = true
		return out, nil
	}

	doc, err := SerializeSVG(snap.Markup)
	if err != nil {
		out.Err = fmt.Errorf("page %d: %w", n, err)
		return out, out.Err
	}
	wrapper := WrapperHTML(n, snap.Background, job.Profile.WrapperWidth, job.Profile.WrapperHeight)

	files := []struct {
		path string
		data string
	}{
		{svgPath, doc},
		{htmlPath, wrapper},
	}
	if job.Text {
		files = append(files, struct {
			path string
			data string
		}{filepath.Join(job.OutDir, TextName(n)), snap.Text})
	}
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.data), 0o644); err != nil {
			out.Err = fmt.Errorf("page %d: %w", n, err)
			return out, out.Err
		}
	}
	out.Bytes = len(doc)
	return out, nil
}

// snapshotJS reads the current page. Text nodes are deduplicated the way
// the viewer repeats them across tspans.
const snapshotJS = `(() => {
	const svg = document.querySelector(%s);
	const bg = document.querySelector(%s);
	const snap = {found: svg !== null, markup: "", inner: "", background: "", text: ""};
	if (bg && bg.src) {
		snap.background = bg.src;
	}
	if (!svg) {
		return snap;
	}
	snap.markup = new XMLSerializer().serializeToString(svg);
	snap.inner = svg.innerHTML;
	if (%t) {
		const seen = new Set();
		const parts = [];
		svg.querySelectorAll("text, tspan").forEach((el) => {
			const t = (el.textContent || "").trim();
			if (t && !seen.has(t)) {
				seen.add(t);
				parts.push(t);
			}
		});
		snap.text = parts.join(" ");
	}
	return snap;
})()`

func (w *Walker) snapshot(ctx context.Context, p ViewerProfile, withText bool) (*pageSnapshot, error) {
	var snap pageSnapshot
	js := fmt.Sprintf(snapshotJS, jsString(p.ContentSelector), jsString(p.BackgroundSelector), withText)
	if err := w.run(ctx, chromedp.Evaluate(js, &snap)); err != nil {
		return nil, fmt.Errorf("pageharvest: reading page: %w", err)
	}
	return &snap, nil
}

// nextJS dispatches a bubbling click on the next-page control.
const nextJS = `(() => {
	const el = document.querySelector(%s);
	if (!el) {
		return false;
	}
	el.dispatchEvent(new Event("click", {bubbles: true, cancelable: false}));
	return true;
})()`

func (w *Walker) next(ctx context.Context, selector string) error {
	var clicked bool
	if err := w.run(ctx, chromedp.Evaluate(fmt.Sprintf(nextJS, jsString(selector)), &clicked)); err != nil {
		return fmt.Errorf("pageharvest: advancing page: %w", err)
	}
	if !clicked {
		return fmt.Errorf("%w: %s", ErrNextControlMissing, selector)
	}
	return nil
}

var digits = regexp.MustCompile(`[0-9]+`)

// paginationJS returns the text of the pagination element, or "".
const paginationJS = `(() => {
	const el = document.querySelector(%s);
	return el ? (el.innerText || el.textContent || "") : "";
})()`

// DetectPageCount reads the total page count from the viewer pagination
// of the page open in ctx. The last number of the element text is taken,
// so both "416" and "1 / 416" yield 416.
func (w *Walker) DetectPageCount(ctx context.Context, selector string) (int, error) {
	if selector == "" {
		selector = DefaultViewerProfile().PaginationSelector
	}
	js := fmt.Sprintf(paginationJS, jsString(selector))

	var text string
	for attempt := 0; attempt < DefaultMaxRechecks; attempt++ {
		if err := w.run(ctx, chromedp.Evaluate(js, &text)); err != nil {
			return 0, fmt.Errorf("pageharvest: reading pagination: %w", err)
		}
		if nums := digits.FindAllString(text, -1); len(nums) > 0 {
			total, err := strconv.Atoi(nums[len(nums)-1])
			if err == nil && total > 0 {
				return total, nil
			}
		}
		if err := sleepCtx(ctx, 500*time.Millisecond); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w: pagination text %q", ErrPageCountUnknown, text)
}

// login fills and submits the login form, then waits for the success
// marker. Credentials are never logged.
func (w *Walker) login(ctx context.Context, l *Login) error {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	w.cfg.logger.Info("logging in", "url", l.URL, "manual", l.User == "")
	actions := []chromedp.Action{chromedp.Navigate(l.URL)}
	if l.User != "" {
		actions = append(actions,
			chromedp.WaitVisible(l.UserSelector, chromedp.ByQuery),
			chromedp.SendKeys(l.UserSelector, l.User, chromedp.ByQuery),
			chromedp.SendKeys(l.PasswordSelector, l.Password, chromedp.ByQuery),
			chromedp.Click(l.SubmitSelector, chromedp.ByQuery),
		)
	}
	if l.SuccessSelector != "" {
		actions = append(actions, chromedp.WaitVisible(l.SuccessSelector, chromedp.ByQuery))
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return nil
}

// run executes actions bounded by the per-page timeout.
func (w *Walker) run(ctx context.Context, actions ...chromedp.Action) error {
	if w.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.timeout)
		defer cancel()
	}
	return chromedp.Run(ctx, actions...)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
