package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/porticus-lab/go-page-harvest/internal/config"
)

// addRangeFlags adds the page selection flags shared by every command
// working on a page range.
func addRangeFlags(cmd *cobra.Command, outUsage string) {
	cmd.Flags().IntP("start", "s", config.DefaultStartPage, "First page number")
	cmd.Flags().IntP("pages", "n", 0, "Number of pages (0: detect)")
	cmd.Flags().StringP("out", "o", "", outUsage)
}

func addOverwriteFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("overwrite", false, "Regenerate files that already exist")
}

// addLoginFlags adds the flags of the login performed before the viewer
// or the library is opened.
func addLoginFlags(cmd *cobra.Command) {
	cmd.Flags().String("login-url", "", "Login page opened first")
	cmd.Flags().String("user", "", "Login user name")
	cmd.Flags().String("password", "", "Login password (prefer "+config.PasswordEnv+")")
	cmd.Flags().String("user-selector", "", "Selector of the login user field")
	cmd.Flags().String("password-selector", "", "Selector of the login password field")
	cmd.Flags().String("submit-selector", "", "Selector of the login submit button")
	cmd.Flags().String("success-selector", "", "Selector visible once logged in")
}

// buildConfig loads the configuration file and applies the flags the
// user set on top of it. Flags left at their default never override the
// file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	if found := config.FindConfigFile(path); found != "" {
		f, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", found, err)
		}
		f.Apply(cfg)
	} else if path != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}

	showBrowser := false
	err := errors.Join(
		changed(flags, "url", flags.GetString, &cfg.URL),
		changed(flags, "start", flags.GetInt, &cfg.StartPage),
		changed(flags, "pages", flags.GetInt, &cfg.Pages),
		changed(flags, "out", flags.GetString, &cfg.OutDir),
		changed(flags, "overwrite", flags.GetBool, &cfg.Overwrite),
		changed(flags, "timeout", flags.GetDuration, &cfg.Timeout),
		changed(flags, "delay", flags.GetDuration, &cfg.Delay),
		changed(flags, "settle", flags.GetDuration, &cfg.SettleDelay),
		changed(flags, "wait-selector", flags.GetString, &cfg.WaitSelector),
		changed(flags, "scale", flags.GetFloat64, &cfg.Scale),
		changed(flags, "text", flags.GetBool, &cfg.Text),
		changed(flags, "concurrency", flags.GetInt, &cfg.Concurrency),
		changed(flags, "chrome", flags.GetString, &cfg.ChromePath),
		changed(flags, "auto-download", flags.GetBool, &cfg.AutoDownload),
		changed(flags, "no-sandbox", flags.GetBool, &cfg.NoSandbox),
		changed(flags, "show-browser", flags.GetBool, &showBrowser),
		changed(flags, "data-dir", flags.GetString, &cfg.DBDir),
		changed(flags, "content-selector", flags.GetString, &cfg.Profile.ContentSelector),
		changed(flags, "background-selector", flags.GetString, &cfg.Profile.BackgroundSelector),
		changed(flags, "next-selector", flags.GetString, &cfg.Profile.NextSelector),
		changed(flags, "pagination-selector", flags.GetString, &cfg.Profile.PaginationSelector),
		changed(flags, "width", flags.GetInt, &cfg.Profile.WrapperWidth),
		changed(flags, "height", flags.GetInt, &cfg.Profile.WrapperHeight),
		changed(flags, "book-url", flags.GetString, &cfg.BookURL),
		loginFlags(cfg, flags),
	)
	if err != nil {
		return nil, err
	}
	if showBrowser {
		cfg.Headless = false
	}
	cfg.ApplyEnv()

	if v, e := flags.GetBool("no-history"); e == nil && v {
		cfg.DBDir = ""
	}
	if v, e := flags.GetBool("verbose"); e == nil {
		cfg.Verbose = v
	}
	return cfg, nil
}

// changed copies the value of flag name into dst when the user set it.
// Flags the command does not define are ignored.
func changed[T any](flags *pflag.FlagSet, name string, get func(string) (T, error), dst *T) error {
	if flags.Lookup(name) == nil || !flags.Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// loginFlags applies the login flags, creating the login section when the
// config file has none.
func loginFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	names := []string{"login-url", "user", "password", "user-selector", "password-selector", "submit-selector", "success-selector"}
	set := false
	for _, n := range names {
		if flags.Lookup(n) != nil && flags.Changed(n) {
			set = true
		}
	}
	if !set {
		return nil
	}
	if cfg.Login == nil {
		cfg.Login = &config.LoginConfig{}
	}
	return errors.Join(
		changed(flags, "login-url", flags.GetString, &cfg.Login.URL),
		changed(flags, "user", flags.GetString, &cfg.Login.User),
		changed(flags, "password", flags.GetString, &cfg.Login.Password),
		changed(flags, "user-selector", flags.GetString, &cfg.Login.UserSelector),
		changed(flags, "password-selector", flags.GetString, &cfg.Login.PasswordSelector),
		changed(flags, "submit-selector", flags.GetString, &cfg.Login.SubmitSelector),
		changed(flags, "success-selector", flags.GetString, &cfg.Login.SuccessSelector),
	)
}
