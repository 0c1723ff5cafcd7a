package main

import (
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	if cmd.Use != "pageharvest" {
		t.Errorf("expected use 'pageharvest', got %q", cmd.Use)
	}
	if cmd.Version == "" {
		t.Error("expected non-empty version")
	}

	t.Run("persistent flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"config", "verbose", "quiet", "chrome", "auto-download", "no-sandbox", "show-browser", "timeout", "data-dir", "no-history", "report"} {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("missing persistent flag --%s", name)
			}
		}
		if f := cmd.PersistentFlags().Lookup("verbose"); f != nil && f.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", f.Shorthand)
		}
	})

	t.Run("subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"export": false, "walk": false, "render": false, "assemble": false,
			"verify": false, "library": false, "serve": false, "history": false, "version": false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("missing subcommand %q", name)
			}
		}
	})
}

func TestRangeCommandsShareFlags(t *testing.T) {
	t.Parallel()

	for _, sub := range NewRootCmd().Commands() {
		switch sub.Name() {
		case "export", "walk", "render", "assemble", "verify":
		default:
			continue
		}
		for _, name := range []string{"start", "pages", "out"} {
			if sub.Flags().Lookup(name) == nil {
				t.Errorf("%s: missing flag --%s", sub.Name(), name)
			}
		}
	}
}
