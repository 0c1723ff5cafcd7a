package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	pageharvest "github.com/porticus-lab/go-page-harvest"
	"github.com/porticus-lab/go-page-harvest/internal/config"
	"github.com/porticus-lab/go-page-harvest/internal/server"
)

// HTTP server timeouts.
const (
	serverReadTimeout     = 15 * time.Second
	serverIdleTimeout     = 60 * time.Second
	serverShutdownTimeout = 30 * time.Second
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run export and walk jobs behind an HTTP API",
		Long: `Serve starts an HTTP server that queues export and walk jobs and runs them
one at a time. A walk job also renders and assembles its pages, so every
completed job offers one PDF book for download.

Viewer selectors, the login and the browser options come from the config
file and the global flags; requests only name the pages.

API:
  POST /api/jobs             {"kind":"walk","url":"...","start":1,"pages":0,"title":"..."}
  GET  /api/jobs             list jobs
  GET  /api/jobs/{id}        job status
  GET  /api/jobs/{id}/events status as server-sent events
  GET  /api/jobs/{id}/book   the assembled PDF
  GET  /health`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	cmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().String("work-dir", "", "Directory for job files (default: jobs in the data directory)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	s.report = ""

	if err := s.cfg.Validate(false); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	addr, _ := cmd.Flags().GetString("addr")
	workDir, _ := cmd.Flags().GetString("work-dir")
	if workDir == "" {
		workDir = filepath.Join(config.XDGDataDir(), "jobs")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	srv := server.New(&jobRunner{s: s, login: s.walkLogin()}, workDir, s.logger)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: serverReadTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if !s.quiet {
		fmt.Fprintf(s.stderr, "serving on http://%s\n", addr)
	}
	return g.Wait()
}

// jobRunner runs server jobs with the library and records them in the
// run history.
type jobRunner struct {
	s     *session
	login *pageharvest.Login
}

func (r *jobRunner) Run(ctx context.Context, req server.Request, dir string, progress func(string, pageharvest.Progress)) (string, error) {
	pagesDir := filepath.Join(dir, "pages")
	book := filepath.Join(dir, pageharvest.SanitizeFilename(req.Title)+".pdf")
	phase := func(name string) func(pageharvest.Progress) {
		return func(p pageharvest.Progress) { progress(name, p) }
	}

	run := r.s.startRun(ctx, "serve-"+req.Kind, req.URL)
	rng, rep, err := r.harvest(ctx, req, pagesDir, phase)
	if err == nil && req.Kind == server.KindWalk {
		rep, err = r.render(ctx, pagesDir, rng, phase("render"))
	}
	if err == nil {
		var files []string
		files, err = pageharvest.CollectPDFs(pagesDir, rng)
		if err == nil {
			err = pageharvest.Assemble(ctx, files, book)
		}
	}
	if err := r.s.finishRun(ctx, run, reportPages(rep), err); err != nil {
		return "", err
	}
	return book, nil
}

// harvest exports or walks the pages of req and returns the range that
// was actually handled.
func (r *jobRunner) harvest(ctx context.Context, req server.Request, dir string, phase func(string) func(pageharvest.Progress)) (pageharvest.PageRange, *pageharvest.Report, error) {
	cfg := r.s.cfg
	rng := req.Range()

	if req.Kind == server.KindExport {
		pg := pageharvest.ExportPageConfig()
		pg.Scale = cfg.Scale
		rep, err := pageharvest.NewExporter(r.s.options(phase(req.Kind))...).Export(ctx, pageharvest.ExportJob{
			URL:          req.URL,
			Range:        rng,
			OutDir:       dir,
			Page:         &pg,
			WaitSelector: cfg.WaitSelector,
			SettleDelay:  cfg.SettleDelay,
		})
		return rng, rep, err
	}

	rep, err := pageharvest.NewWalker(r.s.options(phase(req.Kind))...).Walk(ctx, pageharvest.WalkJob{
		URL:     req.URL,
		Range:   rng,
		OutDir:  dir,
		Profile: cfg.Profile,
		Delay:   cfg.Delay,
		Login:   r.login,
		Text:    cfg.Text,
	})
	if rep != nil {
		rng.Count = rep.Total
	}
	return rng, rep, err
}

func (r *jobRunner) render(ctx context.Context, dir string, rng pageharvest.PageRange, progress func(pageharvest.Progress)) (*pageharvest.Report, error) {
	rd, err := pageharvest.NewRenderer(r.s.options(progress)...)
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	pg := pageharvest.WrapperPageConfig(r.s.cfg.Profile.WrapperWidth, r.s.cfg.Profile.WrapperHeight)
	return rd.RenderPages(ctx, dir, dir, rng, &pg, false)
}
