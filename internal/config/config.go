package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/browser"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/components/telemetry"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/internal/scrapers/ecorp"
	"github.com/Arbaz-Dispo/data-processing-utils-georgia/lib/configutil"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	EnvRequestID   = "REQUEST_ID"
	EnvCI          = "GITHUB_ACTIONS"
	EnvMaxAttempts = "GAENTITY_MAX_ATTEMPTS"
	EnvChromePath  = "GAENTITY_CHROME_PATH"
	EnvOutputDir   = "GAENTITY_OUTPUT_DIR"
)

type BrowserConfig struct {
	// Headful shows the browser window, runs are headless otherwise.
	Headful              bool    `json:"headful"`
	ExecPath             string  `json:"exec_path"`
	UserAgent            string  `json:"user_agent"`
	Locale               string  `json:"locale"`
	WindowWidth          int     `json:"window_width"`
	WindowHeight         int     `json:"window_height"`
	ActionTimeoutSeconds float64 `json:"action_timeout_seconds"`
}

type ChallengeConfig struct {
	TimeoutSeconds       float64 `json:"timeout_seconds"`
	PollIntervalSeconds  float64 `json:"poll_interval_seconds"`
	ResultTimeoutSeconds float64 `json:"result_timeout_seconds"`
	SettleDelaySeconds   float64 `json:"settle_delay_seconds"`
	DetectByTitle        bool    `json:"detect_by_title"`
	ReloadOnTimeout      bool    `json:"reload_on_timeout"`
}

type DiagnosticsConfig struct {
	Disabled bool `json:"disabled"`
	// CIOnly keeps captures only when running inside CI.
	CIOnly    bool   `json:"ci_only"`
	Directory string `json:"directory"`
}

type Config struct {
	SearchURL   string            `json:"search_url"`
	MaxAttempts int               `json:"max_attempts"`
	OutputDir   string            `json:"output_dir"`
	Browser     BrowserConfig     `json:"browser"`
	Challenge   ChallengeConfig   `json:"challenge"`
	Diagnostics DiagnosticsConfig `json:"diagnostics"`
	Telemetry   telemetry.Config  `json:"telemetry"`
}

func Defaults() Config {
	opts := ecorp.DefaultOptions()
	return Config{
		SearchURL:   opts.SearchURL,
		MaxAttempts: opts.MaxAttempts,
		OutputDir:   ".",
		Browser: BrowserConfig{
			UserAgent:            ecorp.DefaultUserAgent,
			Locale:               "en-US",
			WindowWidth:          1366,
			WindowHeight:         900,
			ActionTimeoutSeconds: 30,
		},
		Challenge: ChallengeConfig{
			TimeoutSeconds:       opts.ChallengeTimeout.Seconds(),
			PollIntervalSeconds:  opts.PollInterval.Seconds(),
			ResultTimeoutSeconds: opts.ResultTimeout.Seconds(),
			SettleDelaySeconds:   opts.SettleDelay.Seconds(),
		},
		Diagnostics: DiagnosticsConfig{
			Directory: "screenshots",
		},
	}
}

// Env is what a run takes from its environment rather than the config file.
type Env struct {
	RequestID string
	CI        bool
}

// Load reads the config file at `path` (and its local override) on top of the
// defaults, then applies the environment. Variables from the dotenv file at
// `dotenv` are used when the process environment does not set them, a missing
// dotenv file is ignored.
func Load(path, dotenv string) (Config, Env, error) {
	cfg, err := configutil.ReadConfigWithDefaults(path, Defaults())
	if err != nil {
		return Config{}, Env{}, err
	}

	lookup, err := envLookup(dotenv)
	if err != nil {
		return Config{}, Env{}, err
	}

	env, err := ApplyEnv(&cfg, lookup)
	if err != nil {
		return Config{}, Env{}, err
	}
	return cfg, env, nil
}

// envLookup reads the process environment, falling back to the variables of the
// dotenv file at `dotenv` (if any).
func envLookup(dotenv string) (func(string) (string, bool), error) {
	fileEnv := map[string]string{}
	if dotenv != "" {
		var err error
		fileEnv, err = godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return os.LookupEnv, fmt.Errorf("read %s: %w", dotenv, err)
		}
	}
	return func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		if ok {
			return value, true
		}
		value, ok = fileEnv[key]
		return value, ok
	}, nil
}

// Fallback resolves the Env and output directory of a run whose configuration
// could not be loaded, so that its failure can still be written out. Invalid
// variables are skipped.
func Fallback(dotenv string) (Env, string) {
	lookup, _ := envLookup(dotenv)
	cfg := Defaults()
	env, _ := ApplyEnv(&cfg, lookup)
	return env, cfg.OutputDir
}

// ApplyEnv overrides `cfg` from the environment described by `lookup`.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) (Env, error) {
	var env Env

	env.RequestID, _ = lookup(EnvRequestID)
	if env.RequestID == "" {
		env.RequestID = uuid.NewString()
	}
	ci, _ := lookup(EnvCI)
	env.CI = ci == "true"

	if path, ok := lookup(EnvChromePath); ok && path != "" {
		cfg.Browser.ExecPath = path
	}
	if dir, ok := lookup(EnvOutputDir); ok && dir != "" {
		cfg.OutputDir = dir
	}
	if raw, ok := lookup(EnvMaxAttempts); ok && raw != "" {
		attempts, err := strconv.Atoi(raw)
		if err != nil || attempts < 1 {
			return env, fmt.Errorf("%s must be a positive integer, got %q", EnvMaxAttempts, raw)
		}
		cfg.MaxAttempts = attempts
	}
	return env, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.SearchURL == "" {
		errs = append(errs, errors.New("search_url must not be empty"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts))
	}
	if c.Challenge.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("challenge.timeout_seconds must be positive"))
	}
	if c.Challenge.PollIntervalSeconds <= 0 {
		errs = append(errs, errors.New("challenge.poll_interval_seconds must be positive"))
	}
	return errors.Join(errs...)
}

// DiagnosticsEnabled reports whether checkpoint captures should be written.
func (c Config) DiagnosticsEnabled(env Env) bool {
	if c.Diagnostics.Disabled {
		return false
	}
	if c.Diagnostics.CIOnly {
		return env.CI
	}
	return true
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c Config) DriverOptions() ecorp.Options {
	opts := ecorp.DefaultOptions()
	opts.SearchURL = c.SearchURL
	opts.MaxAttempts = c.MaxAttempts
	opts.ChallengeTimeout = seconds(c.Challenge.TimeoutSeconds)
	opts.PollInterval = seconds(c.Challenge.PollIntervalSeconds)
	opts.ResultTimeout = seconds(c.Challenge.ResultTimeoutSeconds)
	opts.SettleDelay = seconds(c.Challenge.SettleDelaySeconds)
	opts.DetectChallengeByTitle = c.Challenge.DetectByTitle
	opts.ReloadOnChallengeTimeout = c.Challenge.ReloadOnTimeout
	return opts
}

func (c Config) ChromedpOptions() browser.ChromedpOptions {
	return browser.ChromedpOptions{
		Headless:      !c.Browser.Headful,
		ExecPath:      c.Browser.ExecPath,
		UserAgent:     c.Browser.UserAgent,
		Locale:        c.Browser.Locale,
		WindowWidth:   c.Browser.WindowWidth,
		WindowHeight:  c.Browser.WindowHeight,
		ActionTimeout: seconds(c.Browser.ActionTimeoutSeconds),
	}
}
