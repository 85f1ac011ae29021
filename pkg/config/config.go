// Package config loads the configuration of codepad.
//
// Values come from, in increasing order of precedence: built-in defaults, a
// YAML file, a .env file and the environment, and explicit overrides (usually
// from command-line flags).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"src.codepad.dev/pkg/lang"
	"src.codepad.dev/pkg/shortcut"
	"src.codepad.dev/pkg/ui"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CODEPAD_"

// DefaultRunTimeout is the run timeout of the interactive frontends.
const DefaultRunTimeout = 10 * time.Second

// Config holds the configuration.
type Config struct {
	// Listen address of the web server.
	Listen string `yaml:"listen"`
	// Initial content of new documents.
	Placeholder string `yaml:"placeholder"`
	// Initial language of new documents.
	Language string `yaml:"language"`
	// Runs are interrupted after this long. 0 means no limit.
	RunTimeout time.Duration `yaml:"run_timeout"`
	// Maximum call stack size of the JavaScript engine. 0 means the engine
	// default.
	MaxCallStack   int      `yaml:"max_call_stack"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Log            Log      `yaml:"log"`
	Keys           Keys     `yaml:"keys"`
	// Styles of the parts of the terminal screen, such as "error: bold red".
	Styles map[string]string `yaml:"styles"`
}

// Log holds the logging configuration.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Keys holds the shortcut configuration. An empty list keeps the default
// chords of the action.
type Keys struct {
	Run       []string `yaml:"run"`
	ToggleVim []string `yaml:"toggle_vim"`
}

// Overrides optionally overrides values from files and the environment.
//
// A nil pointer means "use the file/environment/default value".
type Overrides struct {
	// Path of the YAML file. If nil, $CODEPAD_CONFIG or DefaultPath is used,
	// and a missing file is not an error.
	Path *string
	// Path of the .env file. If nil, ".env" in the working directory is used.
	// A missing .env file is never an error.
	DotEnv *string

	Listen     *string
	Language   *string
	RunTimeout *time.Duration
	LogLevel   *string
	LogFile    *string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:         ":8080",
		Language:       lang.Default.String(),
		RunTimeout:     DefaultRunTimeout,
		AllowedOrigins: []string{"*"},
		Log:            Log{Level: "info"},
	}
}

// DefaultPath returns the default path of the YAML file, or "" if the user
// configuration directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "codepad", "config.yaml")
}

// Load loads the configuration and applies any explicit overrides.
func Load(o Overrides) (*Config, error) {
	cfg := Default()

	path, explicit := os.Getenv(EnvPrefix+"CONFIG"), false
	if o.Path != nil {
		path, explicit = *o.Path, true
	} else if path != "" {
		explicit = true
	} else {
		path = DefaultPath()
	}
	if path != "" {
		err := cfg.readFile(path)
		if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}

	dotEnv := ".env"
	if o.DotEnv != nil {
		dotEnv = *o.DotEnv
	}
	if dotEnv != "" {
		// Variables already in the environment take precedence.
		if err := godotenv.Load(dotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", dotEnv, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	setIf(&cfg.Listen, o.Listen)
	setIf(&cfg.Language, o.Language)
	setIf(&cfg.RunTimeout, o.RunTimeout)
	setIf(&cfg.Log.Level, o.LogLevel)
	setIf(&cfg.Log.File, o.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Listen = ":" + port
	}
	for name, p := range map[string]*string{
		"LISTEN":      &c.Listen,
		"PLACEHOLDER": &c.Placeholder,
		"LANGUAGE":    &c.Language,
		"LOG_LEVEL":   &c.Log.Level,
		"LOG_FILE":    &c.Log.File,
	} {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*p = v
		}
	}
	if v := os.Getenv(EnvPrefix + "RUN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sRUN_TIMEOUT: %w", EnvPrefix, err)
		}
		c.RunTimeout = d
	}
	if v := os.Getenv(EnvPrefix + "MAX_CALL_STACK"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_CALL_STACK: %w", EnvPrefix, err)
		}
		c.MaxCallStack = n
	}
	if v := os.Getenv(EnvPrefix + "ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	return nil
}

// Validate checks the values that have constraints.
func (c *Config) Validate() error {
	if _, err := lang.Parse(c.Language); err != nil {
		return fmt.Errorf("language: %w", err)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run_timeout: must not be negative, got %v", c.RunTimeout)
	}
	if c.MaxCallStack < 0 {
		return fmt.Errorf("max_call_stack: must not be negative, got %d", c.MaxCallStack)
	}
	if err := c.Keys.Apply(shortcut.Bindings{}); err != nil {
		return fmt.Errorf("keys: %w", err)
	}
	for part, style := range c.Styles {
		if _, err := ui.ParseStyle(style); err != nil {
			return fmt.Errorf("styles: %s: %w", part, err)
		}
	}
	return nil
}

// Lang returns the configured language. It must only be called on a
// validated Config.
func (c *Config) Lang() lang.Language {
	l, _ := lang.Parse(c.Language)
	return l
}

// Apply replaces the chords of b with the configured ones.
func (k Keys) Apply(b shortcut.Bindings) error {
	for a, keys := range map[shortcut.Action][]string{
		shortcut.Run:           k.Run,
		shortcut.ToggleOverlay: k.ToggleVim,
	} {
		if len(keys) == 0 {
			continue
		}
		if err := b.Set(a, keys); err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func setIf[T any](p *T, override *T) {
	if override != nil {
		*p = *override
	}
}
