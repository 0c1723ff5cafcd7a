package pageharvest

import (
	"log/slog"
	"time"
)

// harvestConfig holds internal configuration shared by the Exporter,
// Walker and Renderer.
type harvestConfig struct {
	chromePath   string
	autoDownload bool
	timeout      time.Duration
	noSandbox    bool
	headless     bool
	logger       *slog.Logger
	progress     func(Progress)
}

func defaultConfig() harvestConfig {
	return harvestConfig{
		timeout:  60 * time.Second,
		headless: true,
	}
}

func newConfig(opts []Option) harvestConfig {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// Option configures an [Exporter], [Walker] or [Renderer].
type Option func(*harvestConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default standard locations are searched automatically.
func WithChromePath(path string) Option {
	return func(c *harvestConfig) {
		c.chromePath = path
	}
}

// WithAutoDownload fetches a compatible Chromium build when no
// executable path is configured. The binary is cached by rod's launcher.
func WithAutoDownload() Option {
	return func(c *harvestConfig) {
		c.autoDownload = true
	}
}

// WithTimeout sets the maximum duration for a single page.
// Defaults to 60 seconds. A zero or negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *harvestConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *harvestConfig) {
		c.noSandbox = true
	}
}

// WithHeadless toggles headless mode. A visible window is mostly useful
// to complete a login by hand.
func WithHeadless(headless bool) Option {
	return func(c *harvestConfig) {
		c.headless = headless
	}
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(c *harvestConfig) {
		c.logger = l
	}
}

// WithProgress registers a callback invoked after every page.
func WithProgress(fn func(Progress)) Option {
	return func(c *harvestConfig) {
		c.progress = fn
	}
}

// Progress describes the state of a run after a page has been handled.
type Progress struct {
	Page    int // page number just handled
	Done    int // pages handled so far, including skipped ones
	Total   int // pages in the run
	Skipped bool
}

func (c *harvestConfig) report(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}
