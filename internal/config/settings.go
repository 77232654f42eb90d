package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultLinkSelector matches the file attachment anchors of a course page.
	DefaultLinkSelector = "a.file_item.attachment_icon_link"

	// DefaultEntrySelector is the list the download controls attach to.
	DefaultEntrySelector = ".files ul.quick_view_pill_list"

	// DefaultArchiveName is the file name of the delivered archive.
	DefaultArchiveName = "kona.zip"

	// DefaultScratchCapacity is reserved up front since the final archive
	// size is not known when the run starts.
	DefaultScratchCapacity int64 = 4 * 1024 * 1024 * 1024

	envPrefix = "KONA"
)

// Settings holds all configuration options.
type Settings struct {
	// Output settings
	OutputDir   string `mapstructure:"output_dir"`
	ArchiveName string `mapstructure:"archive_name"`

	// Scratch storage for the archive while it is being written
	ScratchDir      string `mapstructure:"scratch_dir"`
	ScratchCapacity int64  `mapstructure:"scratch_capacity"`

	// Discovery
	LinkSelector  string `mapstructure:"link_selector"`
	EntrySelector string `mapstructure:"entry_selector"`

	// Transport
	UserAgent    string        `mapstructure:"user_agent"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"` // 0 disables the timeout

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // console, json
	Verbose   bool   `mapstructure:"verbose"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:   ".",
		ArchiveName: DefaultArchiveName,

		ScratchDir:      os.TempDir(),
		ScratchCapacity: DefaultScratchCapacity,

		LinkSelector:  DefaultLinkSelector,
		EntrySelector: DefaultEntrySelector,

		UserAgent:    "KonaDownloader/1.0",
		FetchTimeout: 0,

		LogLevel:  "info",
		LogFormat: "console",
		Verbose:   false,
	}
}

// Load reads settings from a config file and the environment.
//
// An empty path skips the file and only applies defaults and KONA_*
// variables. A missing file is not an error.
func Load(path string) (*Settings, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Save writes settings to a config file. The format follows the extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	v := viper.New()
	for key, value := range s.Map() {
		v.Set(key, value)
	}
	return v.WriteConfigAs(path)
}

// Validate checks the settings for values the downloader cannot work with.
func (s *Settings) Validate() error {
	var errs []error

	if strings.TrimSpace(s.ArchiveName) == "" {
		errs = append(errs, errors.New("archive_name must not be empty"))
	}
	if strings.ContainsAny(s.ArchiveName, `/\`) {
		errs = append(errs, fmt.Errorf("archive_name %q must be a file name, not a path", s.ArchiveName))
	}
	if s.ScratchCapacity <= 0 {
		errs = append(errs, fmt.Errorf("scratch_capacity must be positive, got %d", s.ScratchCapacity))
	}
	if strings.TrimSpace(s.LinkSelector) == "" {
		errs = append(errs, errors.New("link_selector must not be empty"))
	}
	if s.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must not be negative, got %s", s.FetchTimeout))
	}
	switch s.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be console or json, got %q", s.LogFormat))
	}

	return errors.Join(errs...)
}

// ArchivePath returns where the delivered archive is written.
func (s *Settings) ArchivePath() string {
	return filepath.Join(s.OutputDir, s.ArchiveName)
}

func newViper() *viper.Viper {
	v := viper.New()

	for key, value := range DefaultSettings().Map() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Map returns the settings keyed by their config names.
func (s *Settings) Map() map[string]any {
	return map[string]any{
		"output_dir":       s.OutputDir,
		"archive_name":     s.ArchiveName,
		"scratch_dir":      s.ScratchDir,
		"scratch_capacity": s.ScratchCapacity,
		"link_selector":    s.LinkSelector,
		"entry_selector":   s.EntrySelector,
		"user_agent":       s.UserAgent,
		"fetch_timeout":    s.FetchTimeout,
		"log_level":        s.LogLevel,
		"log_format":       s.LogFormat,
		"verbose":          s.Verbose,
	}
}
