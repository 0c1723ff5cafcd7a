package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pageharvest "github.com/porticus-lab/go-page-harvest"
)

// errPagesRequired is returned when export runs without a page count.
var errPagesRequired = errors.New("--pages is required: export cannot read the page count")

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print every page to PDF with a fresh browser per page",
		Long: `Export prints each page of the range to pages/page{N}.pdf.

For every page a new headless browser is started with its own profile, the
URL is loaded, the page is printed once the load event fired and the browser
is terminated. Pages are handled one after another, in order.

Examples:
  # Print 12 pages, the page number is part of the URL
  pageharvest export --url 'https://viewer.example.com/book#/page/{page}' --pages 12

  # Wait for the page SVG and give the viewer an extra second
  pageharvest export -u https://viewer.example.com/book -n 3 --wait-selector svg --settle 1s`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("url", "u", "", "Page URL; "+pageharvest.PagePlaceholder+" is replaced by the page number")
	addRangeFlags(cmd, "Output directory (default \""+pageharvest.DefaultExportDir+"\")")
	addOverwriteFlag(cmd)
	cmd.Flags().Float64("scale", pageharvest.ExportPageConfig().Scale, "Print scale")
	cmd.Flags().String("wait-selector", "", "CSS selector that must be visible before printing")
	cmd.Flags().Duration("settle", 0, "Extra wait after the load event")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.cfg.Validate(true); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if s.cfg.Pages == 0 {
		return fmt.Errorf("configuration error: %w", errPagesRequired)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	pg := pageharvest.ExportPageConfig()
	pg.Scale = s.cfg.Scale

	bar := s.progress("Exporting")
	exp := pageharvest.NewExporter(s.options(bar.update)...)

	run := s.startRun(ctx, "export", s.cfg.URL)
	rep, err := exp.Export(ctx, pageharvest.ExportJob{
		URL:          s.cfg.URL,
		Range:        s.cfg.Range(),
		OutDir:       s.outDir(),
		Page:         &pg,
		Overwrite:    s.cfg.Overwrite,
		WaitSelector: s.cfg.WaitSelector,
		SettleDelay:  s.cfg.SettleDelay,
	})
	bar.finish()
	s.summarize("exported", rep)
	return s.finishRun(ctx, run, reportPages(rep), err)
}
