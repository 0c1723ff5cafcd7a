// Package config holds the command line configuration of pageharvest:
// defaults, validation and the optional YAML profile file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	pageharvest "github.com/porticus-lab/go-page-harvest"
)

// AppName is the application name used for XDG directory paths.
const AppName = "pageharvest"

// Default configuration values.
const (
	// DefaultTimeout bounds a single page. Viewer pages carrying large
	// backgrounds can take a while to reach the load event.
	DefaultTimeout = 60 * time.Second

	// DefaultStartPage is the first page of a run.
	DefaultStartPage = 1

	// DefaultVerifyConcurrency is the number of PDFs checked at once.
	DefaultVerifyConcurrency = 4
)

// Sentinel errors returned by Validate.
var (
	ErrNoURL             = errors.New("no target URL (pass --url or set url in the config file)")
	ErrInvalidStartPage  = errors.New("start page must be >= 1")
	ErrInvalidPageCount  = errors.New("page count must be >= 0")
	ErrInvalidTimeout    = errors.New("timeout must not be negative")
	ErrInvalidDelay      = errors.New("delay must not be negative")
	ErrInvalidScale      = errors.New("scale must be between 0.1 and 2.0")
	ErrLoginIncomplete   = errors.New("login needs url, user, password and form selectors (--user-selector, --password-selector, --submit-selector or the login section of the config file)")
	ErrInvalidConcurrent = errors.New("concurrency must be >= 1")
)

// Config holds every option of a pageharvest run. It is filled from the
// config file first and from command line flags second.
type Config struct {
	// URL is the viewer or page URL; "{page}" is replaced by the page number.
	URL string

	// StartPage and Pages select the range. Pages == 0 lets the walker
	// read the count from the viewer.
	StartPage int
	Pages     int

	// OutDir is the directory artifacts are written to.
	OutDir string

	// Overwrite regenerates artifacts that already exist.
	Overwrite bool

	Timeout      time.Duration
	Delay        time.Duration
	SettleDelay  time.Duration
	WaitSelector string

	// Scale is the print scale of exported pages.
	Scale float64

	Headless     bool
	NoSandbox    bool
	ChromePath   string
	AutoDownload bool

	Verbose bool

	Profile pageharvest.ViewerProfile
	Login   *LoginConfig

	// Library names the elements of the library page and BookURL turns a
	// book ID into a viewer URL.
	Library pageharvest.LibraryProfile
	BookURL string

	// Text also stores the text of every walked page.
	Text bool

	// Concurrency bounds parallel verification.
	Concurrency int

	// DBDir holds the run history database. Empty disables history.
	DBDir string
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		StartPage:   DefaultStartPage,
		Timeout:     DefaultTimeout,
		Delay:       pageharvest.DefaultWalkDelay,
		Scale:       pageharvest.ExportPageConfig().Scale,
		Headless:    true,
		Profile:     pageharvest.DefaultViewerProfile(),
		Library:     pageharvest.DefaultLibraryProfile(),
		Concurrency: DefaultVerifyConcurrency,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for pageharvest.
// On Linux: ~/.local/share/pageharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Range returns the configured page range.
func (c *Config) Range() pageharvest.PageRange {
	return pageharvest.PageRange{Start: c.StartPage, Count: c.Pages}
}

// Validate checks the options shared by every command. needURL is false
// for commands working on local files only.
func (c *Config) Validate(needURL bool) error {
	if needURL && c.URL == "" {
		return ErrNoURL
	}
	if c.StartPage < 1 {
		return ErrInvalidStartPage
	}
	if c.Pages < 0 {
		return ErrInvalidPageCount
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 || c.SettleDelay < 0 {
		return ErrInvalidDelay
	}
	if c.Scale < 0.1 || c.Scale > 2.0 {
		return ErrInvalidScale
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrent
	}
	if c.Login != nil {
		if err := c.Login.validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoginConfig describes the login form of the viewer.
type LoginConfig struct {
	URL              string        `yaml:"url"`
	User             string        `yaml:"user"`
	Password         string        `yaml:"password"`
	UserSelector     string        `yaml:"userSelector"`
	PasswordSelector string        `yaml:"passwordSelector"`
	SubmitSelector   string        `yaml:"submitSelector"`
	SuccessSelector  string        `yaml:"successSelector"`
	Timeout          time.Duration `yaml:"timeout"`
}

// validate requires the form selectors unless the login is manual, which
// is the case when no user is configured.
func (l *LoginConfig) validate() error {
	if l.URL == "" {
		return ErrLoginIncomplete
	}
	if l.User == "" {
		return nil
	}
	if l.Password == "" || l.UserSelector == "" || l.PasswordSelector == "" || l.SubmitSelector == "" {
		return ErrLoginIncomplete
	}
	return nil
}

// ApplyEnv fills the login password from [PasswordEnv] when a login is
// configured without one. It runs after the file and the flags were
// applied, so the variable serves both.
func (c *Config) ApplyEnv() {
	if c.Login != nil && c.Login.Password == "" {
		c.Login.Password = os.Getenv(PasswordEnv)
	}
}

// WalkLogin converts the login configuration for the walker. It returns nil when
// no login is configured.
func (c *Config) WalkLogin() *pageharvest.Login {
	if c.Login == nil {
		return nil
	}
	l := c.Login
	return &pageharvest.Login{
		URL:              l.URL,
		UserSelector:     l.UserSelector,
		PasswordSelector: l.PasswordSelector,
		SubmitSelector:   l.SubmitSelector,
		SuccessSelector:  l.SuccessSelector,
		User:             l.User,
		Password:         l.Password,
		Timeout:          l.Timeout,
	}
}
