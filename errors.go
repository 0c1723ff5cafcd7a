package pageharvest

import "errors"

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Renderer].
	ErrClosed = errors.New("pageharvest: renderer is closed")

	// ErrInvalidRange is returned for a page range that starts below 1 or
	// has a negative count.
	ErrInvalidRange = errors.New("pageharvest: invalid page range")

	// ErrNoContent is returned when the viewer has no page SVG element.
	ErrNoContent = errors.New("pageharvest: page content element not found")

	// ErrContentUnchanged is returned when the viewer still shows the
	// previous page after all rechecks.
	ErrContentUnchanged = errors.New("pageharvest: page content did not change")

	// ErrNextControlMissing is returned when the next-page control cannot
	// be found.
	ErrNextControlMissing = errors.New("pageharvest: next page control not found")

	// ErrPageCountUnknown is returned when the page count could not be
	// read from the viewer pagination.
	ErrPageCountUnknown = errors.New("pageharvest: page count unknown")

	// ErrLoginFailed is returned when the login success marker never appears.
	ErrLoginFailed = errors.New("pageharvest: login failed")

	// ErrMissingPage is returned when a page file of a range is absent.
	ErrMissingPage = errors.New("pageharvest: missing page file")

	// ErrPageCountMismatch is returned when an assembled document does not
	// hold one page per input file.
	ErrPageCountMismatch = errors.New("pageharvest: page count mismatch")
)
