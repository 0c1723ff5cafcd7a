package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pageharvest "github.com/porticus-lab/go-page-harvest"
	"github.com/porticus-lab/go-page-harvest/internal/ledger"
)

// NewAssembleCmd creates the assemble command.
func NewAssembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Merge the page PDFs into a single document",
		Long: `Assemble merges page{N}.pdf of the range, in page order, into one PDF
and checks the merged document has one page per input file.

Without --pages every consecutive page from --start is merged.`,
		Args: cobra.NoArgs,
		RunE: runAssembleCmd,
	}

	addRangeFlags(cmd, "Directory holding the page PDFs (default \""+pageharvest.DefaultExportDir+"\")")
	cmd.Flags().String("title", "", "Document title, used for the output file name")
	cmd.Flags().StringP("book", "b", "", "Output file (default: <title>.pdf)")
	return cmd
}

func runAssembleCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.cfg.Validate(false); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	title, _ := cmd.Flags().GetString("title")
	book, _ := cmd.Flags().GetString("book")
	if book == "" {
		book = pageharvest.SanitizeFilename(title) + ".pdf"
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

	run := s.startRun(ctx, "assemble", "")
	files, err := pageharvest.CollectPDFs(dir, rng)
	if err == nil {
		err = pageharvest.Assemble(ctx, files, book)
	}

	var pages []ledger.Page
	if err == nil {
		p := ledger.Page{Page: rng.Start, Path: book}
		if fi, statErr := os.Stat(book); statErr == nil {
			p.Bytes = int(fi.Size())
		}
		pages = append(pages, p)
		if !s.quiet {
			fmt.Fprintf(s.stderr, "assembled %d page(s) into %s\n", len(files), book)
		}
	}
	return s.finishRun(ctx, run, pages, err)
}
