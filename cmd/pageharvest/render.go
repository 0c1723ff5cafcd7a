package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pageharvest "github.com/porticus-lab/go-page-harvest"
)

// errNoPages is returned when no page file of the range exists.
var errNoPages = errors.New("no pages found")

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the HTML wrappers of a walk to PDF",
		Long: `Render prints every page-{N}.html written by walk to page{N}.pdf,
sized to the wrapper image and without margins. One browser is used for
all pages.

Without --pages every consecutive page from --start is rendered.`,
		Args: cobra.NoArgs,
		RunE: runRenderCmd,
	}

	addRangeFlags(cmd, "Output directory (default: the input directory)")
	addOverwriteFlag(cmd)
	cmd.Flags().StringP("in", "i", "", "Directory holding the HTML wrappers (default \""+pageharvest.DefaultExportDir+"\")")
	cmd.Flags().Int("width", pageharvest.DefaultWrapperWidth, "Wrapper image width in CSS pixels")
	cmd.Flags().Int("height", pageharvest.DefaultWrapperHeight, "Wrapper image height in CSS pixels")
	return cmd
}

func runRenderCmd(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.cfg.Validate(false); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	in, err := cmd.Flags().GetString("in")
	if err != nil {
		return err
	}
	if in == "" {
		in = pageharvest.DefaultExportDir
	}
	out := s.cfg.OutDir
	if out == "" {
		out = in
	}

	rng := s.cfg.Range()
	if rng.Count == 0 {
		rng = pageharvest.LocalRange(in, rng.Start, pageharvest.HTMLName)
		if rng.Count == 0 {
			return fmt.Errorf("%w: %s has no %s", errNoPages, in, pageharvest.HTMLName(rng.Start))
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	bar := s.progress("Rendering")
	r, err := pageharvest.NewRenderer(s.options(bar.update)...)
	if err != nil {
		return err
	}
	defer r.Close()

	pg := pageharvest.WrapperPageConfig(s.cfg.Profile.WrapperWidth, s.cfg.Profile.WrapperHeight)

	run := s.startRun(ctx, "render", "")
	rep, err := r.RenderPages(ctx, in, out, rng, &pg, s.cfg.Overwrite)
	bar.finish()
	s.summarize("rendered", rep)
	return s.finishRun(ctx, run, reportPages(rep), err)
}
