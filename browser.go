package pageharvest

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
)

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("pageharvest: downloading browser: %w", err)
	}
	return path, nil
}

// browserPath returns the executable to launch, or "" to let the
// launcher look in the usual places.
func (c *harvestConfig) browserPath() (string, error) {
	if c.chromePath != "" {
		return c.chromePath, nil
	}
	if c.autoDownload {
		return resolveBrowser()
	}
	if p, ok := launcher.LookPath(); ok {
		return p, nil
	}
	return "", nil
}

// isolatedBrowser is a browser process started for a single page. It owns
// a throwaway user data directory that is removed by kill.
type isolatedBrowser struct {
	controlURL string
	l          *launcher.Launcher
}

// launchIsolated starts a fresh headless browser and returns its DevTools
// websocket URL. The caller must call kill once done with it.
func launchIsolated(ctx context.Context, cfg *harvestConfig) (*isolatedBrowser, error) {
	bin, err := cfg.browserPath()
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Context(ctx).
		Leakless(false).
		Headless(cfg.headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("no-first-run")
	if bin != "" {
		l = l.Bin(bin)
	}
	if cfg.noSandbox {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("pageharvest: launching browser: %w", err)
	}
	return &isolatedBrowser{controlURL: u, l: l}, nil
}

// kill terminates the browser process and removes its profile directory.
func (b *isolatedBrowser) kill() {
	b.l.Kill()
	b.l.Cleanup()
}

// allocatorOptions returns the exec allocator options for a long-lived
// browser, as used by the Walker and the Renderer.
func (c *harvestConfig) allocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", c.headless),
	)
	if c.chromePath != "" || c.autoDownload {
		bin, err := c.browserPath()
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.ExecPath(bin))
	}
	if c.noSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts, nil
}
