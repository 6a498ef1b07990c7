package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	// AppName is used for XDG directory paths.
	AppName = "transparencia"

	DefaultAddr = ":8080"

	// The delays reproduce the pacing of the original demo: a long search,
	// then a short pause per analyzed page and per downloaded file.
	DefaultSearchDelay   = 2 * time.Second
	DefaultAnalyzeDelay  = 1 * time.Second
	DefaultDownloadDelay = 1500 * time.Millisecond

	DefaultSessionTTL = 30 * time.Minute
)

type Config struct {
	// Addr is the host:port the web UI listens on.
	Addr string `yaml:"addr"`

	SearchDelay   time.Duration `yaml:"search_delay"`
	AnalyzeDelay  time.Duration `yaml:"analyze_delay"`
	DownloadDelay time.Duration `yaml:"download_delay"`

	// SessionTTL is how long an idle browser session is kept in memory.
	// Zero keeps sessions until the process exits.
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Seed fixes the random source so runs are reproducible. Zero picks a
	// random seed at startup.
	Seed uint64 `yaml:"seed"`

	// Verbose switches logging to slog.LevelDebug.
	Verbose bool `yaml:"verbose"`

	// ConfigFilePath is the file LoadFile read, if any.
	ConfigFilePath string `yaml:"-"`
}

func NewConfig() *Config {
	return &Config{
		Addr:          DefaultAddr,
		SearchDelay:   DefaultSearchDelay,
		AnalyzeDelay:  DefaultAnalyzeDelay,
		DownloadDelay: DefaultDownloadDelay,
		SessionTTL:    DefaultSessionTTL,
	}
}

// DefaultConfigPath returns the config file looked up when none is given.
// On Linux: ~/.config/transparencia/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// DisableDelays turns every simulated delay off.
func (c *Config) DisableDelays() {
	c.SearchDelay = 0
	c.AnalyzeDelay = 0
	c.DownloadDelay = 0
}

// Validate returns the first invalid setting found.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidAddr
	}
	if c.SearchDelay < 0 || c.AnalyzeDelay < 0 || c.DownloadDelay < 0 {
		return ErrInvalidDelay
	}
	if c.SessionTTL < 0 {
		return ErrInvalidSessionTTL
	}
	return nil
}
