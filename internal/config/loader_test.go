package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	content := `
url: "https://viewer.example.com/#/book/3/page/{page}"
start: 4
pages: 12
out: book
delay: 2s
scale: 0.8
text: true
profile:
  next: "#next"
  wrapperWidth: 1000
login:
  url: https://viewer.example.com/login
  user: reader
  userSelector: "#user"
  passwordSelector: "#pass"
  submitSelector: "#go"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PasswordEnv, "from-env")

	f, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}

	cfg := NewConfig()
	f.Apply(cfg)
	if cfg.Login == nil || cfg.Login.Password != "" {
		t.Fatalf("Apply read the environment: %+v", cfg.Login)
	}
	cfg.ApplyEnv()

	if cfg.URL != "https://viewer.example.com/#/book/3/page/{page}" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.StartPage != 4 || cfg.Pages != 12 || cfg.OutDir != "book" {
		t.Errorf("range/out = %d %d %q", cfg.StartPage, cfg.Pages, cfg.OutDir)
	}
	if cfg.Delay != 2*time.Second || cfg.Scale != 0.8 || !cfg.Text {
		t.Errorf("delay/scale/text = %v %v %v", cfg.Delay, cfg.Scale, cfg.Text)
	}
	if cfg.Profile.NextSelector != "#next" || cfg.Profile.WrapperWidth != 1000 {
		t.Errorf("profile = %+v", cfg.Profile)
	}
	if cfg.Profile.ContentSelector == "" || cfg.Profile.WrapperHeight == 0 {
		t.Errorf("unset profile fields lost their defaults: %+v", cfg.Profile)
	}
	if cfg.Login == nil || cfg.Login.Password != "from-env" {
		t.Errorf("login password not read from %s: %+v", PasswordEnv, cfg.Login)
	}
	if err := cfg.Validate(true); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("pages: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(bad); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestApply_ZeroValuesKeepDefaults(t *testing.T) {
	cfg := NewConfig()
	(&File{}).Apply(cfg)
	want := NewConfig()
	if cfg.StartPage != want.StartPage || cfg.Delay != want.Delay || cfg.Profile != want.Profile || cfg.Login != nil {
		t.Errorf("empty file changed the config: %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(PasswordEnv, "from-env")

	cfg := NewConfig()
	cfg.ApplyEnv()
	if cfg.Login != nil {
		t.Fatalf("ApplyEnv created a login: %+v", cfg.Login)
	}

	cfg.Login = &LoginConfig{URL: "https://x", User: "u", Password: "explicit"}
	cfg.ApplyEnv()
	if cfg.Login.Password != "explicit" {
		t.Errorf("Password = %q, want the configured one", cfg.Login.Password)
	}

	cfg.Login.Password = ""
	cfg.ApplyEnv()
	if cfg.Login.Password != "from-env" {
		t.Errorf("Password = %q, want %q", cfg.Login.Password, "from-env")
	}
}

func TestFindConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("pages: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(%q) = %q", path, got)
	}
	if got := FindConfigFile(path + ".missing"); got != "" {
		t.Errorf("FindConfigFile(missing) = %q, want empty", got)
	}
}
