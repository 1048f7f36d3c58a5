package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/handiism/thucloud-downloader/internal/http"
	"github.com/handiism/thucloud-downloader/internal/model"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "THUCLOUD_"

// ErrInvalidSettings is wrapped by every Validate error.
var ErrInvalidSettings = errors.New("config: invalid settings")

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	DownloadsPath          string   `json:"downloads_path" yaml:"downloads_path"`
	MaxConcurrentDownloads int      `json:"max_concurrent_downloads" yaml:"max_concurrent_downloads"`
	ExcludeExtensions      []string `json:"exclude_extensions" yaml:"exclude_extensions"`
	ChunkSize              int      `json:"chunk_size" yaml:"chunk_size"`
	JobTimeout             float64  `json:"job_timeout" yaml:"job_timeout"` // seconds, 0 disables

	// Connection settings
	DownloadMaxRetries    int     `json:"download_max_retries" yaml:"download_max_retries"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown" yaml:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent" yaml:"download_retry_exponent"`
	RequestTimeout        float64 `json:"request_timeout" yaml:"request_timeout"`
	UserAgent             string  `json:"user_agent" yaml:"user_agent"`

	// Discovery settings
	BaseURL  string `json:"base_url" yaml:"base_url"` // used for bare share IDs
	MaxDepth int    `json:"max_depth" yaml:"max_depth"`

	// Logging
	LogLevel string `json:"log_level" yaml:"log_level"` // debug, info, warn, error
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		DownloadsPath:          ".",
		MaxConcurrentDownloads: 5,
		ExcludeExtensions:      nil,
		ChunkSize:              512 * 1024,
		JobTimeout:             0,

		DownloadMaxRetries:    3,
		DownloadRetryCooldown: 0.2,
		DownloadRetryExponent: 4.0,
		RequestTimeout:        60,
		UserAgent:             "thucloud-dl",

		BaseURL:  "https://cloud.tsinghua.edu.cn",
		MaxDepth: 256,

		LogLevel: "info",
	}
}

// Load reads settings from a YAML (.yaml, .yml) or JSON file.
//
// A missing file yields the defaults. Keys absent from the file keep their
// default values.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isYAML(path) {
		err = yaml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a YAML or JSON file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LoadEnv loads .env files (missing ones are ignored) into the process
// environment and then applies THUCLOUD_* variables to s.
//
// Variables already set in the environment win over .env entries.
func (s *Settings) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return s.applyEnv(os.LookupEnv)
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}

	str("DOWNLOADS_PATH", &s.DownloadsPath)
	integer("MAX_CONCURRENT_DOWNLOADS", &s.MaxConcurrentDownloads)
	if v, ok := lookup(EnvPrefix + "EXCLUDE_EXTENSIONS"); ok {
		s.ExcludeExtensions = model.ParseExtensionList(v).Slice()
	}
	integer("CHUNK_SIZE", &s.ChunkSize)
	float("JOB_TIMEOUT", &s.JobTimeout)
	integer("DOWNLOAD_MAX_RETRIES", &s.DownloadMaxRetries)
	float("DOWNLOAD_RETRY_COOLDOWN", &s.DownloadRetryCooldown)
	float("DOWNLOAD_RETRY_EXPONENT", &s.DownloadRetryExponent)
	float("REQUEST_TIMEOUT", &s.RequestTimeout)
	str("USER_AGENT", &s.UserAgent)
	str("BASE_URL", &s.BaseURL)
	integer("MAX_DEPTH", &s.MaxDepth)
	str("LOG_LEVEL", &s.LogLevel)

	return errors.Join(errs...)
}

// Validate checks that every option is usable.
func (s *Settings) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...))
	}

	if s.DownloadsPath == "" {
		fail("downloads_path must not be empty")
	}
	if s.MaxConcurrentDownloads < 1 {
		fail("max_concurrent_downloads must be at least 1, got %d", s.MaxConcurrentDownloads)
	}
	if s.ChunkSize < 1 {
		fail("chunk_size must be positive, got %d", s.ChunkSize)
	}
	if s.JobTimeout < 0 {
		fail("job_timeout must not be negative")
	}
	if s.DownloadMaxRetries < 0 {
		fail("download_max_retries must not be negative")
	}
	if s.DownloadRetryCooldown < 0 {
		fail("download_retry_cooldown must not be negative")
	}
	if s.DownloadRetryExponent < 1 {
		fail("download_retry_exponent must be at least 1")
	}
	if s.RequestTimeout < 0 {
		fail("request_timeout must not be negative")
	}
	if s.MaxDepth < 0 {
		fail("max_depth must not be negative")
	}
	if u, err := url.Parse(s.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail("base_url %q is not an http(s) URL", s.BaseURL)
	}
	if _, err := s.Level(); err != nil {
		fail("%v", err)
	}

	return errors.Join(errs...)
}

// Level parses LogLevel.
func (s *Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", s.LogLevel, err)
	}
	return level, nil
}

// Exclusions returns ExcludeExtensions as a set.
func (s *Settings) Exclusions() model.ExtensionSet {
	return model.NewExtensionSet(s.ExcludeExtensions...)
}

// ToHTTPOptions converts settings to client options.
func (s *Settings) ToHTTPOptions(log *slog.Logger) http.Options {
	opts := http.DefaultOptions()
	opts.Timeout = seconds(s.RequestTimeout)
	opts.UserAgent = s.UserAgent
	opts.MaxRetries = s.DownloadMaxRetries
	opts.RetryCooldown = seconds(s.DownloadRetryCooldown)
	opts.RetryExponent = s.DownloadRetryExponent
	opts.Logger = log
	return opts
}

// JobTimeoutDuration returns JobTimeout as a duration.
func (s *Settings) JobTimeoutDuration() time.Duration {
	return seconds(s.JobTimeout)
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
