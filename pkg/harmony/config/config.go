// Package config loads client settings from an optional HCL file, HARMONY_*
// environment variables and command line overrides, in that order of
// increasing precedence.
//
// A config file looks like:
//
//	api_url         = "https://chat.example.com"
//	state_path      = pathexpand("~/.harmony/state.db")
//	log_level       = "info"
//	history_max_age = "P14D"
//
//	listen {
//	  filter = "select(.username != $me) | .content"
//	  vars   = { me = env.USER }
//	}
//
// Expressions can use the cty standard library functions and an env object
// holding the process environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rickb777/date/period"
	"go.uber.org/zap/zapcore"
)

// DefaultFileName is looked up in the user config directory when no file is
// given explicitly.
const DefaultFileName = "config.hcl"

// Settings are the raw, user facing values. Empty fields fall through to the
// next source.
type Settings struct {
	APIURL               string `env:"API_URL"`
	WSURL                string `env:"WS_URL"`
	StatePath            string `env:"STATE_PATH"`
	LogLevel             string `env:"LOG_LEVEL"`
	HistoryMaxAge        string `env:"HISTORY_MAX_AGE"`
	HistoryPruneSchedule string `env:"HISTORY_PRUNE_SCHEDULE"`
	RequestTimeout       string `env:"REQUEST_TIMEOUT"`
	DialTimeout          string `env:"DIAL_TIMEOUT"`
	ListenFilter         string `env:"LISTEN_FILTER"`

	// ListenVars can only be set from the config file.
	ListenVars map[string]any
}

// Merge overlays the non-empty fields of other onto s.
func (s *Settings) Merge(other Settings) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&s.APIURL, other.APIURL)
	set(&s.WSURL, other.WSURL)
	set(&s.StatePath, other.StatePath)
	set(&s.LogLevel, other.LogLevel)
	set(&s.HistoryMaxAge, other.HistoryMaxAge)
	set(&s.HistoryPruneSchedule, other.HistoryPruneSchedule)
	set(&s.RequestTimeout, other.RequestTimeout)
	set(&s.DialTimeout, other.DialTimeout)
	set(&s.ListenFilter, other.ListenFilter)
	if other.ListenVars != nil {
		s.ListenVars = other.ListenVars
	}
}

// Defaults returns the built in settings.
func Defaults() Settings {
	return Settings{
		APIURL:               "http://localhost:3000",
		StatePath:            defaultStatePath(),
		LogLevel:             "warn",
		HistoryMaxAge:        "P30D",
		HistoryPruneSchedule: "@every 1h",
		RequestTimeout:       "30s",
		DialTimeout:          "30s",
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".harmony", "state.db")
	}
	return filepath.Join(dir, "harmony", "state.db")
}

// DefaultFile returns the config file used when none is named, or "" if the
// user config directory is unknown.
func DefaultFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "harmony", DefaultFileName)
}

// Config is the resolved configuration.
type Config struct {
	APIURL               string
	WSURL                string
	StatePath            string
	LogLevel             zapcore.Level
	HistoryMaxAge        time.Duration
	HistoryPruneSchedule string
	RequestTimeout       time.Duration
	DialTimeout          time.Duration
	ListenFilter         string
	ListenVars           map[string]any
}

// Resolve validates s and converts it into a Config. A missing ws_url is
// derived from api_url by swapping http for ws and https for wss.
func (s Settings) Resolve() (*Config, error) {
	apiURL := strings.TrimRight(s.APIURL, "/")
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("api_url: %q is not an http or https URL", s.APIURL)
	}

	wsURL := strings.TrimRight(s.WSURL, "/")
	if wsURL == "" {
		wsURL = WebSocketURL(u)
	} else if w, err := url.Parse(wsURL); err != nil || w.Host == "" || (w.Scheme != "ws" && w.Scheme != "wss") {
		return nil, fmt.Errorf("ws_url: %q is not a ws or wss URL", s.WSURL)
	}

	if s.StatePath == "" {
		return nil, fmt.Errorf("state_path is required")
	}

	level, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}

	maxAge, err := ParsePeriod(s.HistoryMaxAge)
	if err != nil {
		return nil, fmt.Errorf("history_max_age: %w", err)
	}

	requestTimeout, err := ParseDuration(s.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("request_timeout: %w", err)
	}

	dialTimeout, err := ParseDuration(s.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial_timeout: %w", err)
	}

	return &Config{
		APIURL:               apiURL,
		WSURL:                wsURL,
		StatePath:            s.StatePath,
		LogLevel:             level,
		HistoryMaxAge:        maxAge,
		HistoryPruneSchedule: s.HistoryPruneSchedule,
		RequestTimeout:       requestTimeout,
		DialTimeout:          dialTimeout,
		ListenFilter:         s.ListenFilter,
		ListenVars:           s.ListenVars,
	}, nil
}

// WebSocketURL maps an API base URL onto the matching realtime URL.
func WebSocketURL(api *url.URL) string {
	ws := *api
	if ws.Scheme == "https" {
		ws.Scheme = "wss"
	} else {
		ws.Scheme = "ws"
	}
	return strings.TrimRight(ws.String(), "/")
}

// ParsePeriod parses an ISO-8601 period such as "P30D" or "PT12H" into an
// approximate duration. Zero and negative periods are rejected.
func ParsePeriod(s string) (time.Duration, error) {
	p, err := period.Parse(s)
	if err != nil {
		return 0, err
	}
	d := p.DurationApprox()
	if d <= 0 {
		return 0, fmt.Errorf("period %q must be positive", s)
	}
	return d, nil
}

// ParseDuration accepts either a Go duration ("30s") or an ISO-8601 period
// ("PT30S").
func ParseDuration(s string) (time.Duration, error) {
	if strings.HasPrefix(strings.ToUpper(s), "P") {
		return ParsePeriod(s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}
