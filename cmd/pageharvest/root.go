package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-page-harvest/internal/config"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pageharvest",
		Short: "Save the pages of a web document viewer",
		Long: `pageharvest saves the pages of a paginated web document viewer.

export prints every page to PDF, launching a fresh headless browser per page.
walk pages through a running viewer and saves each page as SVG plus an HTML
wrapper carrying the page background. render turns those wrappers into PDFs,
assemble merges page PDFs into a single book and verify checks them.
library lists the books a viewer account holds and serve runs export and
walk jobs behind an HTTP API.

Options can be kept in .pageharvest.yaml in the current or home directory.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Configuration file (default: "+config.DefaultConfigFile+" in current or home directory)")
	pf.BoolP("verbose", "v", false, "Enable verbose logging")
	pf.BoolP("quiet", "q", false, "Hide progress bars")
	pf.String("chrome", "", "Path to the Chrome or Chromium binary")
	pf.Bool("auto-download", false, "Download a Chromium build when none is installed")
	pf.Bool("no-sandbox", false, "Disable the Chrome sandbox (needed in some containers)")
	pf.Bool("show-browser", false, "Run the browser with a visible window")
	pf.DurationP("timeout", "t", config.DefaultTimeout, "Timeout for a single page")
	pf.String("data-dir", config.XDGDataDir(), "Directory of the run history database")
	pf.Bool("no-history", false, "Do not record the run in the history database")
	pf.String("report", "", "Write a Markdown summary of the run to this file (\"-\" for stdout)")

	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewWalkCmd())
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewAssembleCmd())
	cmd.AddCommand(NewVerifyCmd())
	cmd.AddCommand(NewLibraryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pageharvest:", err)
		os.Exit(1)
	}
}
