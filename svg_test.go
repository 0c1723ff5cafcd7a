package pageharvest

import (
	"errors"
	"strings"
	"testing"
)

func TestSerializeSVG(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"bare", `<svg width="10" height="10"><rect/></svg>`},
		{"no attributes", `<svg><g/></svg>`},
		{"svg namespace", `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1 1"></svg>`},
		{"both namespaces", `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink"><use xlink:href="#a"/></svg>`},
		{"surrounding space", "\n  <svg viewBox=\"0 0 1 1\"></svg>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SerializeSVG(tt.markup)
			if err != nil {
				t.Fatalf("SerializeSVG: %v", err)
			}
			if !strings.HasPrefix(got, "<?xml version=\"1.0\" standalone=\"no\"?>\r\n<svg") {
				t.Errorf("missing XML declaration: %q", got)
			}
			if n := strings.Count(got, `xmlns="http://www.w3.org/2000/svg"`); n != 1 {
				t.Errorf("svg namespace declared %d times: %q", n, got)
			}
			if n := strings.Count(got, `xmlns:xlink="http://www.w3.org/1999/xlink"`); n != 1 {
				t.Errorf("xlink namespace declared %d times: %q", n, got)
			}
			if !strings.HasSuffix(got, "</svg>") {
				t.Errorf("content was altered: %q", got)
			}

			again, err := SerializeSVG(got)
			if err != nil {
				t.Fatalf("second SerializeSVG: %v", err)
			}
			if again != got {
				t.Errorf("not idempotent:\nfirst  %q\nsecond %q", got, again)
			}
		})
	}
}

func TestSerializeSVG_Errors(t *testing.T) {
	if _, err := SerializeSVG("  "); !errors.Is(err, ErrNoContent) {
		t.Errorf("empty markup error = %v, want ErrNoContent", err)
	}
	for _, markup := range []string{
		"<div>not svg</div>",
		`<svg:svg xmlns:svg="http://www.w3.org/2000/svg"/>`,
		"<svgfoo></svgfoo>",
	} {
		if _, err := SerializeSVG(markup); err == nil {
			t.Errorf("SerializeSVG(%q): expected error", markup)
		}
	}
}

func TestSerializeSVG_SelfClosingRoot(t *testing.T) {
	got, err := SerializeSVG("<svg/>")
	if err != nil {
		t.Fatalf("SerializeSVG: %v", err)
	}
	if !strings.HasSuffix(got, `xmlns="http://www.w3.org/2000/svg"/>`) {
		t.Errorf("unexpected document %q", got)
	}
}
