package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-page-harvest/internal/config"
)

// subcommand returns the named subcommand of a fresh root with args parsed.
func subcommand(t *testing.T, name string, args ...string) *cobra.Command {
	t.Helper()
	root := NewRootCmd()
	cmd, _, err := root.Find([]string{name})
	if err != nil {
		t.Fatalf("Find(%q): %v", name, err)
	}
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildConfig_Flags(t *testing.T) {
	dataDir := t.TempDir()
	cmd := subcommand(t, "walk",
		"--url", "https://viewer.example.com/#/page/{page}",
		"--start", "3",
		"-n", "7",
		"--out", "book",
		"--delay", "2s",
		"--text",
		"--next-selector", "#next",
		"--show-browser",
		"--timeout", "5s",
		"--data-dir", dataDir,
	)

	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.URL != "https://viewer.example.com/#/page/{page}" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.StartPage != 3 || cfg.Pages != 7 {
		t.Errorf("range = %d+%d, want 3+7", cfg.StartPage, cfg.Pages)
	}
	if cfg.OutDir != "book" || cfg.Delay != 2*time.Second || !cfg.Text {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Profile.NextSelector != "#next" {
		t.Errorf("NextSelector = %q", cfg.Profile.NextSelector)
	}
	if cfg.Profile.ContentSelector == "" {
		t.Error("untouched selector lost its default")
	}
	if cfg.Headless {
		t.Error("--show-browser did not disable headless mode")
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.DBDir != dataDir {
		t.Errorf("DBDir = %q, want %q", cfg.DBDir, dataDir)
	}
	if cfg.Login != nil {
		t.Errorf("Login = %+v, want nil", cfg.Login)
	}
}

func TestBuildConfig_FileThenFlags(t *testing.T) {
	path := writeConfig(t, `
url: https://viewer.example.com/file
start: 2
pages: 4
delay: 3s
profile:
  content: "#page svg"
login:
  url: https://viewer.example.com/login
  user: reader
  password: from-file
  userSelector: "#user"
  passwordSelector: "#pass"
  submitSelector: "#go"
`)
	cmd := subcommand(t, "walk", "--config", path, "--pages", "9", "--password", "from-flag")

	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.URL != "https://viewer.example.com/file" || cfg.StartPage != 2 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Pages != 9 {
		t.Errorf("Pages = %d, flag should override file", cfg.Pages)
	}
	if cfg.Delay != 3*time.Second {
		t.Errorf("Delay = %v, default flag should not override file", cfg.Delay)
	}
	if cfg.Profile.ContentSelector != "#page svg" {
		t.Errorf("ContentSelector = %q", cfg.Profile.ContentSelector)
	}
	if cfg.Login == nil || cfg.Login.User != "reader" || cfg.Login.Password != "from-flag" {
		t.Errorf("Login = %+v", cfg.Login)
	}
	if err := cfg.Validate(true); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBuildConfig_LoginFlagsOnly(t *testing.T) {
	cmd := subcommand(t, "walk", "--login-url", "https://viewer.example.com/login")
	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Login == nil || cfg.Login.URL != "https://viewer.example.com/login" {
		t.Fatalf("Login = %+v", cfg.Login)
	}
	if cfg.WalkLogin().User != "" {
		t.Error("expected a manual login without user")
	}
}

func TestBuildConfig_LoginFromFlagsAndEnv(t *testing.T) {
	t.Setenv(config.PasswordEnv, "secret")
	cmd := subcommand(t, "walk",
		"--url", "https://viewer.example.com/book",
		"--login-url", "https://viewer.example.com/login",
		"--user", "alice",
		"--user-selector", "#user",
		"--password-selector", "#pass",
		"--submit-selector", "button[type=submit]",
		"--success-selector", "#library",
	)
	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if err := cfg.Validate(true); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	l := cfg.WalkLogin()
	if l.Password != "secret" {
		t.Errorf("Password = %q, want it from %s", l.Password, config.PasswordEnv)
	}
	if l.SubmitSelector != "button[type=submit]" || l.SuccessSelector != "#library" {
		t.Errorf("selectors = %+v", l)
	}
}

func TestBuildConfig_LoginUserWithoutSelectors(t *testing.T) {
	t.Setenv(config.PasswordEnv, "secret")
	cmd := subcommand(t, "walk",
		"--url", "https://viewer.example.com/book",
		"--login-url", "https://viewer.example.com/login",
		"--user", "alice",
	)
	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Login.Password != "secret" {
		t.Errorf("Password = %q, want it from %s", cfg.Login.Password, config.PasswordEnv)
	}
	if err := cfg.Validate(true); !errors.Is(err, config.ErrLoginIncomplete) {
		t.Errorf("Validate() = %v, want ErrLoginIncomplete", err)
	}
}

func TestBuildConfig_NoHistory(t *testing.T) {
	cmd := subcommand(t, "verify", "--no-history")
	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.DBDir != "" {
		t.Errorf("DBDir = %q, want empty", cfg.DBDir)
	}
}

func TestBuildConfig_MissingConfigFile(t *testing.T) {
	cmd := subcommand(t, "export", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := buildConfig(cmd)
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestExportRequiresPages(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"export", "--url", "https://example.com", "--no-history"})
	err := root.Execute()
	if !errors.Is(err, errPagesRequired) {
		t.Errorf("error = %v, want errPagesRequired", err)
	}
}

func TestWalkRequiresURL(t *testing.T) {
	root := NewRootCmd()
	root.SetArgs([]string{"walk", "--no-history"})
	err := root.Execute()
	if !errors.Is(err, config.ErrNoURL) {
		t.Errorf("error = %v, want ErrNoURL", err)
	}
}
