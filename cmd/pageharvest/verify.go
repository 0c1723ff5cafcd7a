package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pageharvest "github.com/porticus-lab/go-page-harvest"
	"github.com/porticus-lab/go-page-harvest/internal/config"
	"github.com/porticus-lab/go-page-harvest/internal/ledger"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every page PDF is readable",
		Long: `Verify opens every page{N}.pdf of the range and reports the files that
are missing, unreadable or empty. With --text the text of every page is
printed to stdout.`,
		Args: cobra.NoArgs,
		RunE: runVerifyCmd,
	}

	addRangeFlags(cmd, "Directory holding the page PDFs (default \""+pageharvest.DefaultExportDir+"\")")
	cmd.Flags().Int("concurrency", config.DefaultVerifyConcurrency, "Files checked at once")
	cmd.Flags().Bool("text", false, "Print the text of every page")
	return cmd
}

func runVerifyCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.cfg.Validate(false); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	dir := s.outDir()
	rng := s.cfg.Range()
	if rng.Count == 0 {
		rng = pageharvest.LocalRange(dir, rng.Start, pageharvest.PDFName)
		if rng.Count == 0 {
			return fmt.Errorf("%w: %s has no %s", errNoPages, dir, pageharvest.PDFName(rng.Start))
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	run := s.startRun(ctx, "verify", "")
	rep, err := pageharvest.Verify(ctx, dir, rng, s.cfg.Concurrency)

	var pages []ledger.Page
	if rep != nil {
		for _, c := range rep.Pages {
			p := ledger.Page{Page: c.Page, Path: c.Path}
			if c.Err != nil {
				p.Error = c.Err.Error()
				s.logger.Warn("page failed verification", "page", c.Page, "error", c.Err)
			}
			pages = append(pages, p)
		}
		if err == nil && !rep.OK() {
			err = fmt.Errorf("%d of %d page(s) failed verification", len(rep.Failed()), len(rep.Pages))
		}
	}

	if err == nil && s.cfg.Text {
		for _, c := range rep.Pages {
			texts, textErr := pageharvest.PageText(c.Path)
			if textErr != nil {
				s.logger.Warn("reading page text", "page", c.Page, "error", textErr)
				continue
			}
			fmt.Fprintf(s.stdout, "--- page %d ---\n%s\n", c.Page, strings.Join(texts, "\n"))
		}
	}
	if err == nil && !s.quiet {
		fmt.Fprintf(s.stderr, "verified %d page(s) in %s\n", len(rep.Pages), dir)
	}
	return s.finishRun(ctx, run, pages, err)
}
