// Package config loads the settings of the pagecheck command from an optional
// pagecheck.yaml, PAGECHECK_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/networkteam/pagecheck"
	"github.com/networkteam/pagecheck/page"
)

// EnvPrefix is the prefix of environment variables, e.g. PAGECHECK_BASE_URL.
const EnvPrefix = "PAGECHECK"

// FileName is the config file looked up in the working directory.
const FileName = "pagecheck"

type Config struct {
	BaseURL       string         `mapstructure:"base_url" yaml:"base_url"`
	Ref           string         `mapstructure:"ref" yaml:"ref"`
	Headless      bool           `mapstructure:"headless" yaml:"headless"`
	Parallel      int            `mapstructure:"parallel" yaml:"parallel"`
	AssetsDir     string         `mapstructure:"assets_dir" yaml:"assets_dir"`
	Fixtures      string         `mapstructure:"fixtures" yaml:"fixtures"`
	Tags          []string       `mapstructure:"tags" yaml:"tags"`
	Report        string         `mapstructure:"report" yaml:"report"`
	ScreenshotDir string         `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	PreviewHosts  []string       `mapstructure:"preview_hosts" yaml:"preview_hosts"`
	Dashboard     string         `mapstructure:"dashboard" yaml:"dashboard"`
	Timeouts      TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
	Log           LogConfig      `mapstructure:"log" yaml:"log"`
}

// TimeoutsConfig overrides the bounded waits. Zero keeps the default.
type TimeoutsConfig struct {
	Element       time.Duration `mapstructure:"element" yaml:"element"`
	Navigation    time.Duration `mapstructure:"navigation" yaml:"navigation"`
	PathAvailable time.Duration `mapstructure:"path_available" yaml:"path_available"`
	FormReveal    time.Duration `mapstructure:"form_reveal" yaml:"form_reveal"`
	ImageUpload   time.Duration `mapstructure:"image_upload" yaml:"image_upload"`
	PDFUpload     time.Duration `mapstructure:"pdf_upload" yaml:"pdf_upload"`
	Preview       time.Duration `mapstructure:"preview" yaml:"preview"`
	FormRetry     time.Duration `mapstructure:"form_retry" yaml:"form_retry"`
	ThankYou      time.Duration `mapstructure:"thank_you" yaml:"thank_you"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// File enables a JSON log file rotated by size.
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", page.DefaultBaseURL)
	v.SetDefault("ref", pagecheck.DefaultRef)
	v.SetDefault("headless", true)
	v.SetDefault("parallel", 1)
	v.SetDefault("assets_dir", "assets")
	v.SetDefault("report", "pagecheck-report/index.html")
	v.SetDefault("screenshot_dir", "pagecheck-report/screenshots")
	v.SetDefault("dashboard", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
}

// Load reads the config file, if any, and the environment into a Config.
// An empty file looks for pagecheck.yaml in the working directory; a missing
// file is not an error then.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have no usable fallback.
func (c Config) Validate() error {
	var errs []error
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel must be at least 1, got %d", c.Parallel))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url must not be empty"))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return level, nil
}

// PageTimeouts converts the overrides for the page objects.
func (t TimeoutsConfig) PageTimeouts() page.Timeouts {
	return page.Timeouts{
		Element:         t.Element,
		Navigation:      t.Navigation,
		PathAvailable:   t.PathAvailable,
		FormReveal:      t.FormReveal,
		ImageUpload:     t.ImageUpload,
		PDFUpload:       t.PDFUpload,
		Preview:         t.Preview,
		FormRetryBudget: t.FormRetry,
		ThankYou:        t.ThankYou,
	}
}

// Options maps the config to suite options.
func (c Config) Options(logger *slog.Logger) pagecheck.Options {
	return pagecheck.Options{
		BaseURL:       c.BaseURL,
		Ref:           c.Ref,
		Headless:      c.Headless,
		Parallelism:   c.Parallel,
		AssetsDir:     c.AssetsDir,
		Timeouts:      c.Timeouts.PageTimeouts(),
		Logger:        logger,
		PreviewHosts:  c.PreviewHosts,
		ScreenshotDir: c.ScreenshotDir,
	}
}
