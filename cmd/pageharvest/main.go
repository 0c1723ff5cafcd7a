// Package main provides the pageharvest command.
//
// pageharvest saves the pages of a web-based document viewer, either as
// PDFs printed by an isolated headless browser per page or as SVG
// snapshots taken while paging through the viewer.
//
// Usage:
//
//	pageharvest export --url 'https://viewer.example.com/book#page={page}' --pages 20
//	pageharvest walk --url 'https://viewer.example.com/book' --text
//	pageharvest render && pageharvest assemble --title "My Book"
//
// See --help for all available options.
package main

func main() {
	Execute()
}
