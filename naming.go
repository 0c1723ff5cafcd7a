package pageharvest

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// PagePlaceholder is replaced by the page number in target URLs.
const PagePlaceholder = "{page}"

// PDFName returns the file name of an exported page PDF.
func PDFName(page int) string {
	return fmt.Sprintf("page%d.pdf", page)
}

// SVGName returns the file name of a harvested page SVG.
func SVGName(page int) string {
	return fmt.Sprintf("page-%d.svg", page)
}

// HTMLName returns the file name of the HTML wrapper for a page SVG.
func HTMLName(page int) string {
	return fmt.Sprintf("page-%d.html", page)
}

// TextName returns the file name of the text extracted from a page SVG.
func TextName(page int) string {
	return fmt.Sprintf("page-%d.txt", page)
}

// PageURL expands [PagePlaceholder] in template. A template without the
// placeholder is returned as is, so every page loads the same URL.
func PageURL(template string, page int) string {
	return strings.ReplaceAll(template, PagePlaceholder, strconv.Itoa(page))
}

// PageRange selects Count pages starting at Start (1-based).
// A zero Count means "all pages", resolved by the walker from the
// viewer pagination.
type PageRange struct {
	Start int
	Count int
}

// Validate checks the range bounds.
func (r PageRange) Validate() error {
	if r.Start < 1 {
		return fmt.Errorf("%w: start page %d, want >= 1", ErrInvalidRange, r.Start)
	}
	if r.Count < 0 {
		return fmt.Errorf("%w: page count %d, want >= 0", ErrInvalidRange, r.Count)
	}
	return nil
}

// End returns the last page number of the range.
func (r PageRange) End() int {
	return r.Start + r.Count - 1
}

// Pages returns the page numbers of the range in ascending order.
func (r PageRange) Pages() []int {
	if r.Count <= 0 {
		return nil
	}
	pages := make([]int, r.Count)
	for i := range pages {
		pages[i] = r.Start + i
	}
	return pages
}

// SanitizeFilename replaces characters that are not allowed in file names
// on common filesystems.
func SanitizeFilename(name string) string {
	r := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_",
	)
	s := strings.TrimSpace(r.Replace(name))
	if s == "" {
		return "document"
	}
	return s
}

// LocalRange returns the range of consecutive pages, starting at start,
// whose file name(page) exists in dir. It is used to find the pages
// of an earlier run. The Count is 0 when the first page is missing.
func LocalRange(dir string, start int, name func(int) string) PageRange {
	rng := PageRange{Start: start}
	for fileExists(filepath.Join(dir, name(start+rng.Count))) {
		rng.Count++
	}
	return rng
}
