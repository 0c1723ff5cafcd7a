package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pageharvest "github.com/porticus-lab/go-page-harvest"
	"github.com/porticus-lab/go-page-harvest/internal/config"
)

// NewWalkCmd creates the walk command.
func NewWalkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Page through a viewer and save every page as SVG",
		Long: `Walk opens the viewer once and pages through it. For every page it
saves the page SVG as page-{N}.svg and an HTML wrapper page-{N}.html that
shows the SVG over the page background, then clicks the next page control.

Without --pages the page count is read from the viewer pagination.

When the config file holds a login section the login form is filled in
first. A login without user is left to you in a visible browser window.
The password may also be given in the ` + config.PasswordEnv + ` environment
variable.

Examples:
  pageharvest walk --url 'https://viewer.example.com/#/book/42/page/{page}'
  pageharvest walk -u https://viewer.example.com/book -s 10 -n 5 --text`,
		Args: cobra.NoArgs,
		RunE: runWalkCmd,
	}

	cmd.Flags().StringP("url", "u", "", "Viewer URL; "+pageharvest.PagePlaceholder+" is replaced by the start page")
	addRangeFlags(cmd, "Output directory (default \""+pageharvest.DefaultExportDir+"\")")
	addOverwriteFlag(cmd)
	cmd.Flags().Duration("delay", pageharvest.DefaultWalkDelay, "Wait before reading each page")
	cmd.Flags().Int("max-rechecks", pageharvest.DefaultMaxRechecks, "Re-reads of a page that still shows the previous content")
	cmd.Flags().Bool("text", false, "Also save the page text as page-{N}.txt")

	defaults := pageharvest.DefaultViewerProfile()
	cmd.Flags().String("content-selector", defaults.ContentSelector, "Selector of the page SVG")
	cmd.Flags().String("background-selector", defaults.BackgroundSelector, "Selector of the page background image")
	cmd.Flags().String("next-selector", defaults.NextSelector, "Selector of the next page control")
	cmd.Flags().String("pagination-selector", defaults.PaginationSelector, "Selector of the element showing the page count")
	cmd.Flags().Int("width", defaults.WrapperWidth, "Image width in the HTML wrapper")
	cmd.Flags().Int("height", defaults.WrapperHeight, "Image height in the HTML wrapper")

	addLoginFlags(cmd)
	return cmd
}

func runWalkCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.cfg.Validate(true); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	login := s.walkLogin()
	maxRechecks, err := cmd.Flags().GetInt("max-rechecks")
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	bar := s.progress("Walking")
	w := pageharvest.NewWalker(s.options(bar.update)...)

	run := s.startRun(ctx, "walk", s.cfg.URL)
	rep, err := w.Walk(ctx, pageharvest.WalkJob{
		URL:         s.cfg.URL,
		Range:       s.cfg.Range(),
		OutDir:      s.outDir(),
		Profile:     s.cfg.Profile,
		Delay:       s.cfg.Delay,
		MaxRechecks: maxRechecks,
		Login:       login,
		Text:        s.cfg.Text,
		Overwrite:   s.cfg.Overwrite,
	})
	bar.finish()
	s.summarize("walked", rep)
	return s.finishRun(ctx, run, reportPages(rep), err)
}
