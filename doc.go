// Package pageharvest saves the pages of a paginated web document viewer.
//
// Two independent strategies are provided:
//
//   - [Exporter] prints every page to PDF. Each page gets a fresh headless
//     browser with its own profile, attached over the Chrome DevTools
//     Protocol. The browser is killed before the next page starts.
//   - [Walker] opens the viewer once and pages through it, saving the SVG
//     of every page with an HTML wrapper that shows the SVG over the page
//     background.
//
// # Exporting pages
//
// The page number is substituted for [PagePlaceholder] in the URL:
//
//	exp := pageharvest.NewExporter(pageharvest.WithNoSandbox())
//	rep, err := exp.Export(ctx, pageharvest.ExportJob{
//	    URL:   "https://viewer.example.com/book#/page/{page}",
//	    Range: pageharvest.PageRange{Start: 1, Count: 20},
//	})
//
// Pages are written as pages/page{N}.pdf using [ExportPageConfig]:
// an 8.3 x 11.7 inch sheet at half scale with backgrounds. Existing
// files are kept unless [ExportJob.Overwrite] is set.
//
// # Walking a viewer
//
//	w := pageharvest.NewWalker()
//	rep, err := w.Walk(ctx, pageharvest.WalkJob{
//	    URL:   "https://viewer.example.com/book",
//	    Range: pageharvest.PageRange{Start: 1}, // count read from the pagination
//	})
//
// The elements of the viewer are named by a [ViewerProfile]. A page whose
// content still equals the previous page is re-read a bounded number of
// times before the walk fails with [ErrContentUnchanged].
//
// # Rendering, assembling and verifying
//
// A [Renderer] prints the HTML wrappers of a walk to page PDFs with one
// long-lived browser. [Assemble] merges page PDFs into a single document
// and [Verify] checks that each page PDF is readable.
//
// Chrome or Chromium must be installed, or use [WithAutoDownload].
package pageharvest
