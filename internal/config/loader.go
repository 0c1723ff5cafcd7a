package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	pageharvest "github.com/porticus-lab/go-page-harvest"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".pageharvest.yaml"

// PasswordEnv is read when the login password is not configured.
const PasswordEnv = "PAGEHARVEST_PASSWORD"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the YAML configuration file.
type File struct {
	URL          string                     `yaml:"url"`
	Start        int                        `yaml:"start"`
	Pages        int                        `yaml:"pages"`
	Out          string                     `yaml:"out"`
	Overwrite    bool                       `yaml:"overwrite"`
	Timeout      time.Duration              `yaml:"timeout"`
	Delay        time.Duration              `yaml:"delay"`
	SettleDelay  time.Duration              `yaml:"settleDelay"`
	WaitSelector string                     `yaml:"waitSelector"`
	Scale        float64                    `yaml:"scale"`
	Text         bool                       `yaml:"text"`
	Profile      pageharvest.ViewerProfile  `yaml:"profile"`
	Login        *LoginConfig               `yaml:"login"`
	Library      pageharvest.LibraryProfile `yaml:"library"`
	BookURL      string                     `yaml:"bookUrl"`
}

// LoadConfigFile reads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file:
// configPath if given, then the current directory, then the home directory.
// It returns "" when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Apply copies the values set in f over c. Zero values leave c untouched.
func (f *File) Apply(c *Config) {
	if f.URL != "" {
		c.URL = f.URL
	}
	if f.Start != 0 {
		c.StartPage = f.Start
	}
	if f.Pages != 0 {
		c.Pages = f.Pages
	}
	if f.Out != "" {
		c.OutDir = f.Out
	}
	if f.Overwrite {
		c.Overwrite = true
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.Delay != 0 {
		c.Delay = f.Delay
	}
	if f.SettleDelay != 0 {
		c.SettleDelay = f.SettleDelay
	}
	if f.WaitSelector != "" {
		c.WaitSelector = f.WaitSelector
	}
	if f.Scale != 0 {
		c.Scale = f.Scale
	}
	if f.Text {
		c.Text = true
	}
	mergeProfile(&c.Profile, f.Profile)
	if f.Library.ItemSelector != "" {
		c.Library.ItemSelector = f.Library.ItemSelector
	}
	if f.Library.IDAttribute != "" {
		c.Library.IDAttribute = f.Library.IDAttribute
	}
	if f.Library.TitleSelector != "" {
		c.Library.TitleSelector = f.Library.TitleSelector
	}
	if f.BookURL != "" {
		c.BookURL = f.BookURL
	}
	if f.Login != nil {
		l := *f.Login
		c.Login = &l
	}
}

func mergeProfile(dst *pageharvest.ViewerProfile, src pageharvest.ViewerProfile) {
	if src.ContentSelector != "" {
		dst.ContentSelector = src.ContentSelector
	}
	if src.BackgroundSelector != "" {
		dst.BackgroundSelector = src.BackgroundSelector
	}
	if src.NextSelector != "" {
		dst.NextSelector = src.NextSelector
	}
	if src.PaginationSelector != "" {
		dst.PaginationSelector = src.PaginationSelector
	}
	if src.WrapperWidth > 0 {
		dst.WrapperWidth = src.WrapperWidth
	}
	if src.WrapperHeight > 0 {
		dst.WrapperHeight = src.WrapperHeight
	}
}
