package main

import (
	"fmt"

	"github.com/spf13/cobra"

	pageharvest "github.com/porticus-lab/go-page-harvest"
	"github.com/porticus-lab/go-page-harvest/internal/report"
)

// NewLibraryCmd creates the library command.
func NewLibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List the books of the viewer library",
		Long: `Library opens the library page, after the login when one is configured,
and prints its books as a Markdown table.

With --book-url every book also gets the viewer URL walk accepts. The URL
template takes ` + pageharvest.BookPlaceholder + ` for the book ID and usually keeps ` + pageharvest.PagePlaceholder + `.

Example:
  pageharvest library --url https://viewer.example.com/library \
    --book-url 'https://viewer.example.com/#doc/{book}/{page}'`,
		Args: cobra.NoArgs,
		RunE: runLibraryCmd,
	}

	cmd.Flags().StringP("url", "u", "", "Library page URL")
	cmd.Flags().String("book-url", "", "Viewer URL of a book; "+pageharvest.BookPlaceholder+" is replaced by the book ID")
	addLoginFlags(cmd)
	return cmd
}

func runLibraryCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.cfg.Validate(true); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	login := s.walkLogin()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	w := pageharvest.NewWalker(s.options(nil)...)
	run := s.startRun(ctx, "library", s.cfg.URL)
	books, err := w.Library(ctx, pageharvest.LibraryJob{
		URL:     s.cfg.URL,
		Profile: s.cfg.Library,
		BookURL: s.cfg.BookURL,
		Login:   login,
	})
	if err == nil {
		err = report.WriteLibrary(s.stdout, books)
	}
	return s.finishRun(ctx, run, nil, err)
}
