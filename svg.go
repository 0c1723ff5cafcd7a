package pageharvest

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	svgNamespace   = "http://www.w3.org/2000/svg"
	xlinkNamespace = "http://www.w3.org/1999/xlink"

	// xmlDeclaration is the prolog of every written SVG file.
	xmlDeclaration = "<?xml version=\"1.0\" standalone=\"no\"?>\r\n"
)

var (
	// svgRoot matches an unprefixed svg start tag.
	svgRoot           = regexp.MustCompile(`^<svg[\s/>]`)
	hasSVGNamespace   = regexp.MustCompile(`^<svg[^>]+xmlns="http://www\.w3\.org/2000/svg"`)
	hasXLinkNamespace = regexp.MustCompile(`^<svg[^>]+"http://www\.w3\.org/1999/xlink"`)
)

// SerializeSVG turns serialized SVG markup into a standalone document.
// The root element gains the SVG and XLink namespace declarations it
// lacks and the markup is prefixed with an XML declaration.
// SerializeSVG is idempotent.
func SerializeSVG(markup string) (string, error) {
	src := strings.TrimSpace(markup)
	src = strings.TrimPrefix(src, strings.TrimSpace(xmlDeclaration))
	src = strings.TrimLeft(src, "\r\n\t ")
	if src == "" {
		return "", ErrNoContent
	}
	if !svgRoot.MatchString(src) {
		return "", fmt.Errorf("pageharvest: markup is not an svg element: %.20q", src)
	}

	if !hasSVGNamespace.MatchString(src) {
		src = `<svg xmlns="` + svgNamespace + `"` + strings.TrimPrefix(src, "<svg")
	}
	if !hasXLinkNamespace.MatchString(src) {
		src = `<svg xmlns:xlink="` + xlinkNamespace + `"` + strings.TrimPrefix(src, "<svg")
	}
	return xmlDeclaration + src, nil
}
