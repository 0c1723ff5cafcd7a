package pageharvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// BookPlaceholder is replaced by the book ID in a book URL template.
const BookPlaceholder = "{book}"

// DefaultLibraryWait bounds the wait for the first library item.
const DefaultLibraryWait = 10 * time.Second

// LibraryProfile names the elements of the viewer's library page.
type LibraryProfile struct {
	// ItemSelector matches one element per book.
	ItemSelector string `yaml:"items"`

	// IDAttribute is the item attribute holding the book ID.
	IDAttribute string `yaml:"idAttribute"`

	// TitleSelector matches the title inside an item.
	TitleSelector string `yaml:"title"`
}

// DefaultLibraryProfile returns the library selectors of the supported
// viewer. Its first list item is a header and is skipped.
func DefaultLibraryProfile() LibraryProfile {
	return LibraryProfile{
		ItemSelector:  "#libraryItems > li:not(:first-child)",
		IDAttribute:   "data-last-available-version",
		TitleSelector: ".lu-library-item-title",
	}
}

func (p LibraryProfile) withDefaults() LibraryProfile {
	d := DefaultLibraryProfile()
	if p.ItemSelector == "" {
		p.ItemSelector = d.ItemSelector
	}
	if p.IDAttribute == "" {
		p.IDAttribute = d.IDAttribute
	}
	if p.TitleSelector == "" {
		p.TitleSelector = d.TitleSelector
	}
	return p
}

// LibraryJob describes a library listing.
type LibraryJob struct {
	// URL opens the library page.
	URL string

	Profile LibraryProfile

	// BookURL is the viewer URL of a book, with [BookPlaceholder] for its
	// ID. It usually keeps [PagePlaceholder] so the result feeds a walk.
	// Empty leaves Book.URL empty.
	BookURL string

	// Login, if set, runs before the library is opened.
	Login *Login

	// Wait bounds the wait for the first item. Defaults to
	// [DefaultLibraryWait]; a library still empty by then has no books.
	Wait time.Duration
}

// Book is one entry of the library.
type Book struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// BookURL substitutes id for [BookPlaceholder] in template.
func BookURL(template, id string) string {
	if template == "" {
		return ""
	}
	return strings.ReplaceAll(template, BookPlaceholder, id)
}

// libraryJS lists the library items. Items without an ID or a title are
// left out.
const libraryJS = `(() => {
	const books = [];
	document.querySelectorAll(%s).forEach((item) => {
		const id = (item.getAttribute(%s) || "").trim();
		const title = item.querySelector(%s);
		const text = title ? (title.innerText || title.textContent || "").trim() : "";
		if (id && text) {
			books.push({id: id, title: text});
		}
	});
	return books;
})()`

// Library lists the books of the viewer library in page order.
func (w *Walker) Library(ctx context.Context, job LibraryJob) ([]Book, error) {
	if job.URL == "" {
		return nil, errors.New("pageharvest: library URL is empty")
	}
	p := job.Profile.withDefaults()
	wait := job.Wait
	if wait <= 0 {
		wait = DefaultLibraryWait
	}

	browserCtx, cancel, err := w.startBrowser(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if job.Login != nil {
		if err := w.login(browserCtx, job.Login); err != nil {
			return nil, err
		}
	}
	if err := w.run(browserCtx, chromedp.Navigate(job.URL)); err != nil {
		return nil, fmt.Errorf("pageharvest: opening library: %w", err)
	}

	js := fmt.Sprintf(libraryJS, jsString(p.ItemSelector), jsString(p.IDAttribute), jsString(p.TitleSelector))
	deadline := time.Now().Add(wait)
	for {
		var books []Book
		if err := w.run(browserCtx, chromedp.Evaluate(js, &books)); err != nil {
			return nil, fmt.Errorf("pageharvest: reading library: %w", err)
		}
		if len(books) > 0 || !time.Now().Before(deadline) {
			for i := range books {
				books[i].URL = BookURL(job.BookURL, books[i].ID)
			}
			w.cfg.logger.Debug("library read", "books", len(books))
			return books, nil
		}
		if err := sleepCtx(browserCtx, 250*time.Millisecond); err != nil {
			return nil, err
		}
	}
}
