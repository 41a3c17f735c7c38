// Package config loads domsnap settings from YAML, .env files and BUA_*
// environment variables, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/anxuanzi/bua-dom/browser"
	"github.com/anxuanzi/bua-dom/dom"
)

// Config is the top-level configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	DOM     DOMConfig     `yaml:"dom"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Headless       *bool                 `yaml:"headless"`
	ControlURL     string                `yaml:"control_url"`
	Viewport       browser.Viewport      `yaml:"viewport"`
	Stealth        browser.StealthConfig `yaml:"stealth"`
	AllowedDomains []string              `yaml:"allowed_domains"`
}

// DOMConfig controls snapshots and selector synthesis.
type DOMConfig struct {
	ViewportExpansion *int     `yaml:"viewport_expansion"`
	Highlight         bool     `yaml:"highlight"`
	DynamicAttributes bool     `yaml:"dynamic_attributes"`
	IncludeAttributes []string `yaml:"include_attributes"`
	Debug             bool     `yaml:"debug"`
}

// HistoryConfig locates the history database.
type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads path (optional, may be empty), then .env, then the
// environment, and fills defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Headless == nil {
		t := true
		c.Browser.Headless = &t
	}
	if c.Browser.Viewport.Width <= 0 {
		c.Browser.Viewport.Width = 1280
	}
	if c.Browser.Viewport.Height <= 0 {
		c.Browser.Viewport.Height = 800
	}
	if c.DOM.ViewportExpansion == nil {
		e := 500
		c.DOM.ViewportExpansion = &e
	}
	if c.DOM.IncludeAttributes == nil {
		c.DOM.IncludeAttributes = append([]string(nil), dom.DefaultIncludeAttributes...)
	}
	if c.History.DBPath == "" {
		c.History.DBPath = "data/history.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	if v, ok := lookupBool(lookup, "BUA_HEADLESS"); ok {
		c.Browser.Headless = &v
	}
	if v, ok := lookup("BUA_CONTROL_URL"); ok {
		c.Browser.ControlURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("BUA_ALLOWED_DOMAINS"); ok {
		c.Browser.AllowedDomains = splitList(v)
	}
	if v, ok := lookupBool(lookup, "BUA_STEALTH"); ok {
		c.Browser.Stealth.Enabled = v
	}
	if v, ok := lookupInt(lookup, "BUA_VIEWPORT_EXPANSION"); ok {
		c.DOM.ViewportExpansion = &v
	}
	if v, ok := lookupBool(lookup, "BUA_HIGHLIGHT"); ok {
		c.DOM.Highlight = v
	}
	if v, ok := lookupBool(lookup, "BUA_DYNAMIC_ATTRIBUTES"); ok {
		c.DOM.DynamicAttributes = v
	}
	if v, ok := lookupBool(lookup, "BUA_DEBUG"); ok {
		c.DOM.Debug = v
	}
	if v, ok := lookup("BUA_HISTORY_DB"); ok {
		c.History.DBPath = strings.TrimSpace(v)
	}
	if v, ok := lookup("BUA_LOG_LEVEL"); ok {
		c.Log.Level = strings.TrimSpace(v)
	}
	if v, ok := lookupBool(lookup, "BUA_LOG_PRETTY"); ok {
		c.Log.Pretty = v
	}
}

// lookupBool accepts 1/true/yes/on and 0/false/no/off. Anything else is
// treated as unset.
func lookupBool(lookup lookupFunc, name string) (bool, bool) {
	raw, ok := lookup(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func lookupInt(lookup lookupFunc, name string) (int, bool) {
	raw, ok := lookup(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// BrowserSession converts the browser and DOM sections into a session
// config.
func (c *Config) BrowserSession(log *zerolog.Logger) browser.Config {
	return browser.Config{
		ControlURL:        c.Browser.ControlURL,
		Headless:          c.Browser.Headless == nil || *c.Browser.Headless,
		Viewport:          c.Browser.Viewport,
		Stealth:           c.Browser.Stealth,
		AllowedDomains:    c.Browser.AllowedDomains,
		DynamicAttributes: c.DOM.DynamicAttributes,
		Logger:            log,
	}
}

// StateOptions converts the DOM section into snapshot options.
func (c *Config) StateOptions() browser.StateOptions {
	opts := browser.DefaultStateOptions()
	opts.HighlightElements = c.DOM.Highlight
	opts.Debug = c.DOM.Debug
	if c.DOM.ViewportExpansion != nil {
		opts.ViewportExpansion = *c.DOM.ViewportExpansion
	}
	return opts
}

// Logger builds the root logger described by the log section.
func (c *Config) Logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("config: log level %q: %w", c.Log.Level, err)
	}
	var log zerolog.Logger
	if c.Log.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger(), nil
}
