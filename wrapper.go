package pageharvest

import (
	"strings"
	"text/template"
)

// Wrapper dimensions of the viewer page image, in CSS pixels.
const (
	DefaultWrapperWidth  = 1928
	DefaultWrapperHeight = 2721
)

var wrapperTmpl = template.Must(template.New("wrapper").Funcs(template.FuncMap{
	"cssString": cssString,
}).Parse(`<html>
  <style>
    img {
      background-image: url("{{ cssString .Background }}");
    }
  </style>
  <img src="./{{ .SVG }}" alt="" height="{{ .Height }}" width="{{ .Width }}" />
</html>
`))

// WrapperHTML returns the HTML page that shows the SVG of page over its
// background image. The SVG is referenced relative to the wrapper, so
// both files must be kept side by side.
func WrapperHTML(page int, background string, width, height int) string {
	if width <= 0 {
		width = DefaultWrapperWidth
	}
	if height <= 0 {
		height = DefaultWrapperHeight
	}
	var b strings.Builder
	// The template only prints strings and ints; Execute cannot fail.
	_ = wrapperTmpl.Execute(&b, struct {
		Background string
		SVG        string
		Width      int
		Height     int
	}{background, SVGName(page), width, height})
	return b.String()
}

// cssString escapes s for use inside a double-quoted CSS string.
func cssString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\a `,
		"\r", `\d `,
		"<", `\3c `,
	)
	return r.Replace(s)
}
