package pageharvest

import (
	"fmt"

	"github.com/chromedp/cdproto/page"
)

// PageSize represents paper dimensions in centimeters.
type PageSize struct {
	Width  float64 // Width in centimeters.
	Height float64 // Height in centimeters.
}

// Standard paper sizes.
var (
	A3     = PageSize{Width: 29.7, Height: 42.0}
	A4     = PageSize{Width: 21.0, Height: 29.7}
	A5     = PageSize{Width: 14.8, Height: 21.0}
	Letter = PageSize{Width: 21.59, Height: 27.94}
	Legal  = PageSize{Width: 21.59, Height: 35.56}

	// ViewerA4 is the 8.3 x 11.7 inch sheet used for viewer exports.
	ViewerA4 = PageSize{Width: 8.3 * 2.54, Height: 11.7 * 2.54}
)

// Orientation represents the page orientation.
type Orientation int

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota
	// Landscape rotates the page to horizontal orientation.
	Landscape
)

// Margin represents page margins in centimeters.
type Margin struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// UniformMargin returns a Margin with the same value on all sides.
func UniformMargin(cm float64) Margin {
	return Margin{Top: cm, Right: cm, Bottom: cm, Left: cm}
}

// chromeDefaultMargin is the margin Chrome applies when none is given (0.4in).
const chromeDefaultMargin = 1.016

// PageConfig controls the PDF printing parameters.
//
// A nil PageConfig or zero-value fields use the defaults of
// [DefaultPageConfig].
type PageConfig struct {
	// Size specifies the paper size. Defaults to A4.
	Size PageSize

	// Orientation specifies portrait or landscape. Defaults to Portrait.
	Orientation Orientation

	// Margin specifies page margins in centimeters. Defaults to Chrome's
	// own 0.4 inch on all sides.
	Margin Margin

	// Scale of the webpage rendering. Must be between 0.1 and 2.0.
	// Defaults to 1.0.
	Scale float64

	// Borderless prints without margins, overriding Margin.
	Borderless bool

	// PrintBackground enables printing of background colors and images.
	PrintBackground bool

	// DisplayHeaderFooter enables the header and footer templates.
	DisplayHeaderFooter bool

	// HeaderTemplate and FooterTemplate use Chrome's print template
	// format (classes date, title, url, pageNumber, totalPages).
	HeaderTemplate string
	FooterTemplate string

	// PreferCSSPageSize gives precedence to any CSS @page size declared
	// in the document over the Size field.
	PreferCSSPageSize bool
}

// DefaultPageConfig returns the configuration used for nil PageConfigs.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:            A4,
		Orientation:     Portrait,
		Margin:          UniformMargin(chromeDefaultMargin),
		Scale:           1.0,
		PrintBackground: true,
	}
}

// ExportPageConfig returns the print settings of the viewer export:
// 8.3 x 11.7 inch portrait sheet at half scale with backgrounds and
// without header or footer.
func ExportPageConfig() PageConfig {
	return PageConfig{
		Size:            ViewerA4,
		Orientation:     Portrait,
		Margin:          UniformMargin(chromeDefaultMargin),
		Scale:           0.5,
		PrintBackground: true,
	}
}

// resolved returns a PageConfig with all zero values replaced by defaults.
func (p *PageConfig) resolved() PageConfig {
	d := DefaultPageConfig()
	if p == nil {
		return d
	}
	r := *p
	if r.Size == (PageSize{}) {
		r.Size = d.Size
	}
	if r.Scale <= 0 {
		r.Scale = d.Scale
	}
	if r.Margin == (Margin{}) {
		r.Margin = d.Margin
	}
	if r.Borderless {
		r.Margin = Margin{}
	}
	return r
}

// Validate reports settings Chrome would reject.
func (p *PageConfig) Validate() error {
	r := p.resolved()
	if r.Scale < 0.1 || r.Scale > 2.0 {
		return fmt.Errorf("pageharvest: scale %.2f out of range [0.1, 2.0]", r.Scale)
	}
	if r.Size.Width <= 0 || r.Size.Height <= 0 {
		return fmt.Errorf("pageharvest: invalid paper size %vx%v cm", r.Size.Width, r.Size.Height)
	}
	return nil
}

// cmToInches converts centimeters to inches.
func cmToInches(cm float64) float64 {
	return cm / 2.54
}

// paperDimensions returns the paper width and height in inches,
// accounting for orientation.
func (p *PageConfig) paperDimensions() (width, height float64) {
	r := p.resolved()
	w := cmToInches(r.Size.Width)
	h := cmToInches(r.Size.Height)
	if r.Orientation == Landscape {
		return h, w
	}
	return w, h
}

// marginInches returns margins converted to inches.
func (p *PageConfig) marginInches() (top, right, bottom, left float64) {
	r := p.resolved()
	return cmToInches(r.Margin.Top),
		cmToInches(r.Margin.Right),
		cmToInches(r.Margin.Bottom),
		cmToInches(r.Margin.Left)
}

// printParams builds the Page.printToPDF command. The PDF is always
// transferred inline as base64, which cdproto decodes for us.
func (p *PageConfig) printParams() *page.PrintToPDFParams {
	r := p.resolved()
	width, height := p.paperDimensions()
	top, right, bottom, left := p.marginInches()

	params := page.PrintToPDF().
		WithPaperWidth(width).
		WithPaperHeight(height).
		WithMarginTop(top).
		WithMarginRight(right).
		WithMarginBottom(bottom).
		WithMarginLeft(left).
		WithScale(r.Scale).
		WithPrintBackground(r.PrintBackground).
		WithLandscape(r.Orientation == Landscape).
		WithPreferCSSPageSize(r.PreferCSSPageSize).
		WithDisplayHeaderFooter(r.DisplayHeaderFooter).
		WithTransferMode(page.PrintToPDFTransferModeReturnAsBase64)

	if r.HeaderTemplate != "" {
		params = params.WithHeaderTemplate(r.HeaderTemplate)
	}
	if r.FooterTemplate != "" {
		params = params.WithFooterTemplate(r.FooterTemplate)
	}
	return params
}
