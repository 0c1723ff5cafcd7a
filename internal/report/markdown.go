// Package report renders Markdown summaries of recorded runs.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	pageharvest "github.com/porticus-lab/go-page-harvest"
	"github.com/porticus-lab/go-page-harvest/internal/ledger"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// Write renders run and its pages as Markdown to w.
func Write(w io.Writer, run *ledger.Run, pages []ledger.Page) error {
	md := markdown.NewMarkdown(w)

	md.H1(fmt.Sprintf("pageharvest %s run", run.Kind))
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   summaryRows(run, pages),
	})
	md.PlainText("")

	writeAlert(md, run, pages)

	if len(pages) > 0 {
		md.H2("Pages")
		md.PlainText("")
		rows := make([][]string, 0, len(pages))
		for _, p := range pages {
			rows = append(rows, []string{strconv.Itoa(p.Page), "`" + p.Path + "`", strconv.Itoa(p.Bytes), pageStatus(p)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Page", "File", "Bytes", "Status"},
			Rows:   rows,
		})
		md.PlainText("")
	}
	return md.Build()
}

// WriteHistory renders a table of runs, newest first as given.
func WriteHistory(w io.Writer, runs []ledger.Run) error {
	md := markdown.NewMarkdown(w)
	md.H1("pageharvest history")
	md.PlainText("")
	if len(runs) == 0 {
		md.Note("No runs recorded yet.")
		return md.Build()
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{"`" + r.ID + "`", r.Kind, r.Started.Local().Format(timeLayout), duration(&r), r.Status})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Run", "Kind", "Started", "Duration", "Status"},
		Rows:   rows,
	})
	return md.Build()
}

// WriteLibrary renders the books of a library listing.
func WriteLibrary(w io.Writer, books []pageharvest.Book) error {
	md := markdown.NewMarkdown(w)
	md.H1("pageharvest library")
	md.PlainText("")
	if len(books) == 0 {
		md.Note("The library has no books.")
		return md.Build()
	}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		u := "-"
		if b.URL != "" {
			u = "`" + b.URL + "`"
		}
		rows = append(rows, []string{b.ID, b.Title, u})
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Title", "URL"},
		Rows:   rows,
	})
	return md.Build()
}

func summaryRows(run *ledger.Run, pages []ledger.Page) [][]string {
	written, skipped, failed := count(pages)
	rows := [][]string{
		{"Run", "`" + run.ID + "`"},
		{"Started", run.Started.Local().Format(timeLayout)},
		{"Duration", duration(run)},
		{"Status", run.Status},
		{"Pages written", strconv.Itoa(written)},
		{"Pages skipped", strconv.Itoa(skipped)},
		{"Pages failed", strconv.Itoa(failed)},
	}
	if run.URL != "" {
		rows = append(rows[:1], append([][]string{{"URL", "`" + run.URL + "`"}}, rows[1:]...)...)
	}
	return rows
}

func writeAlert(md *markdown.Markdown, run *ledger.Run, pages []ledger.Page) {
	_, _, failed := count(pages)
	switch {
	case run.Status == ledger.StatusFailed:
		md.Cautionf("Run failed: %s", run.Error)
		md.PlainText("")
	case failed > 0:
		md.Warningf("%d page(s) failed.", failed)
		md.PlainText("")
	case run.Status == ledger.StatusRunning:
		md.Note("Run has not finished. It may still be in progress or was interrupted.")
		md.PlainText("")
	}
}

func count(pages []ledger.Page) (written, skipped, failed int) {
	for _, p := range pages {
		switch {
		case p.Error != "":
			failed++
		case p.Skipped:
			skipped++
		default:
			written++
		}
	}
	return written, skipped, failed
}

func pageStatus(p ledger.Page) string {
	switch {
	case p.Error != "":
		return "failed: " + p.Error
	case p.Skipped:
		return "skipped"
	default:
		return "written"
	}
}

func duration(r *ledger.Run) string {
	if r.Finished.IsZero() {
		return "-"
	}
	return r.Finished.Sub(r.Started).Round(time.Millisecond).String()
}
