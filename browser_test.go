package pageharvest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// chromeAvailable reports whether a Chrome/Chromium executable is in PATH.
func chromeAvailable() bool {
	for _, name := range []string{
		"chromium-browser", "chromium", "google-chrome",
		"google-chrome-stable", "chrome",
	} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

func skipIfNoChrome(t *testing.T) {
	t.Helper()
	if !chromeAvailable() {
		t.Skip("skipping: Chrome/Chromium not found in PATH")
	}
}

// testOptions are the options every browser test runs with.
func testOptions() []Option {
	return []Option{WithNoSandbox(), WithTimeout(30 * time.Second)}
}

// viewer configures the fake document viewer served by newViewer.
type viewer struct {
	pages      int
	stuck      bool // the next control does not advance
	noSVG      bool // pages have no svg element
	noNext     bool // the next control is missing
	pagination string
}

// newViewer serves a single page application that mimics the markup of
// the supported viewer: one page SVG, a background image, a next control
// and a pagination label.
func newViewer(t *testing.T, v viewer) *httptest.Server {
	t.Helper()
	if v.pagination == "" {
		v.pagination = fmt.Sprintf("1 / %d", v.pages)
	}
	next := `<button data-action="footer-next-page">next</button>`
	if v.noNext {
		next = ""
	}
	svg := `<svg width="100" height="100"><text x="10" y="20"><tspan>Page ${page}</tspan></text></svg>`
	if v.noSVG {
		svg = ""
	}
	advance := "page < total"
	if v.stuck {
		advance = "false"
	}

	page := `<!DOCTYPE html>
<html><body>
<div id="pagination"><div><span>` + v.pagination + `</span></div></div>
<img class="lu-page-background-image" src="/bg/1.png">
<div class="lu-page-svg-container"></div>
` + next + `
<script>
  let page = 1;
  const total = ` + fmt.Sprint(v.pages) + `;
  function render() {
    document.querySelector(".lu-page-svg-container").innerHTML = ` + "`" + svg + "`" + `;
    document.querySelector(".lu-page-background-image").src = "/bg/" + page + ".png";
  }
  const btn = document.querySelector('[data-action="footer-next-page"]');
  if (btn) {
    btn.addEventListener("click", () => {
      if (` + advance + `) {
        page++;
        render();
      }
    });
  }
  render();
</script>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/bg/"):
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/print/"):
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, "<html><body><h1>Printed %s</h1></body></html>", strings.TrimPrefix(r.URL.Path, "/print/"))
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, page)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}
