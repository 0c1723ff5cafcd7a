package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	pageharvest "github.com/porticus-lab/go-page-harvest"
	"github.com/porticus-lab/go-page-harvest/internal/config"
	"github.com/porticus-lab/go-page-harvest/internal/ledger"
	hlog "github.com/porticus-lab/go-page-harvest/internal/log"
	"github.com/porticus-lab/go-page-harvest/internal/report"
)

// session carries what a command needs once its flags are parsed.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	quiet  bool
	report string         // Markdown summary path, "-" for stdout
	ledger *ledger.Ledger // nil when history is disabled
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		logger: hlog.New(cmd.ErrOrStderr(), cfg.Verbose),
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	s.quiet, _ = cmd.Flags().GetBool("quiet")
	s.report, _ = cmd.Flags().GetString("report")
	slog.SetDefault(s.logger)

	if cfg.DBDir != "" {
		l, err := ledger.Open(cfg.DBDir, ledger.DefaultOptions())
		if err != nil {
			s.logger.Warn("run history disabled", "error", err)
		} else {
			s.ledger = l
		}
	}
	return s, nil
}

func (s *session) close() {
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.logger.Warn("closing run history", "error", err)
		}
	}
}

// outDir returns the configured output directory or the default one.
func (s *session) outDir() string {
	if s.cfg.OutDir != "" {
		return s.cfg.OutDir
	}
	return pageharvest.DefaultExportDir
}

// options translates the configuration into library options.
func (s *session) options(progress func(pageharvest.Progress)) []pageharvest.Option {
	opts := []pageharvest.Option{
		pageharvest.WithTimeout(s.cfg.Timeout),
		pageharvest.WithHeadless(s.cfg.Headless),
		pageharvest.WithLogger(s.logger),
	}
	if s.cfg.ChromePath != "" {
		opts = append(opts, pageharvest.WithChromePath(s.cfg.ChromePath))
	}
	if s.cfg.AutoDownload {
		opts = append(opts, pageharvest.WithAutoDownload())
	}
	if s.cfg.NoSandbox {
		opts = append(opts, pageharvest.WithNoSandbox())
	}
	if progress != nil {
		opts = append(opts, pageharvest.WithProgress(progress))
	}
	return opts
}

// walkLogin returns the configured login. A login without user is
// completed by hand, so the browser window is shown for it.
func (s *session) walkLogin() *pageharvest.Login {
	login := s.cfg.WalkLogin()
	if login != nil && login.User == "" && s.cfg.Headless {
		s.logger.Info("manual login, showing the browser window")
		s.cfg.Headless = false
	}
	return login
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// startRun records the start of a run. The run is kept in memory only
// when history is disabled. Credentials in url are masked before the URL
// is stored or reported.
func (s *session) startRun(ctx context.Context, kind, url string) *ledger.Run {
	url = hlog.RedactURL(url)
	if s.ledger != nil {
		run, err := s.ledger.StartRun(ctx, kind, url)
		if err == nil {
			return run
		}
		s.logger.Warn("recording run", "error", err)
	}
	return &ledger.Run{Kind: kind, URL: url, Started: time.Now().UTC(), Status: ledger.StatusRunning}
}

// finishRun records the pages and the result of run, prints the summary
// and returns runErr.
func (s *session) finishRun(ctx context.Context, run *ledger.Run, pages []ledger.Page, runErr error) error {
	ctx = context.WithoutCancel(ctx)

	run.Finished = time.Now().UTC()
	run.Status = ledger.StatusSucceeded
	var stored error
	if runErr != nil {
		run.Status, run.Error = ledger.StatusFailed, hlog.RedactText(runErr.Error())
		stored = errors.New(run.Error)
	}

	if s.ledger != nil && run.ID != "" {
		for _, p := range pages {
			p.RunID = run.ID
			if err := s.ledger.RecordPage(ctx, p); err != nil {
				s.logger.Warn("recording page", "page", p.Page, "error", err)
			}
		}
		if err := s.ledger.FinishRun(ctx, run.ID, stored); err != nil {
			s.logger.Warn("recording run", "error", err)
		}
	}

	if s.report != "" {
		if err := s.writeReport(run, pages); err != nil {
			s.logger.Warn("writing report", "path", s.report, "error", err)
		}
	}
	return runErr
}

// writeReport writes the Markdown summary of run to the --report path.
func (s *session) writeReport(run *ledger.Run, pages []ledger.Page) error {
	if s.report == "-" {
		return report.Write(s.stdout, run, pages)
	}
	f, err := os.Create(s.report)
	if err != nil {
		return err
	}
	if err := report.Write(f, run, pages); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// reportPages converts a library report into history pages.
func reportPages(rep *pageharvest.Report) []ledger.Page {
	if rep == nil {
		return nil
	}
	pages := make([]ledger.Page, 0, len(rep.Pages))
	for _, o := range rep.Pages {
		p := ledger.Page{Page: o.Page, Path: o.Path, Bytes: o.Bytes, Skipped: o.Skipped}
		if o.Err != nil {
			p.Error = hlog.RedactText(o.Err.Error())
		}
		pages = append(pages, p)
	}
	return pages
}

// summarize prints a one line summary of rep to stderr.
func (s *session) summarize(verb string, rep *pageharvest.Report) {
	if rep == nil || s.quiet {
		return
	}
	fmt.Fprintf(s.stderr, "%s %d page(s), skipped %d, in %s\n", verb, rep.Written(), rep.Skipped(), rep.OutDir)
}

// progress is a lazily created progress bar fed by library callbacks.
type progress struct {
	w    io.Writer
	desc string
	bar  *progressbar.ProgressBar
}

func (s *session) progress(desc string) *progress {
	w := s.stderr
	if s.quiet {
		w = io.Discard
	}
	return &progress{w: w, desc: desc}
}

// update moves the bar to p. The bar is created on the first update,
// when the number of pages is known.
func (p *progress) update(pr pageharvest.Progress) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(pr.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(p.desc),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(pr.Done)
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
