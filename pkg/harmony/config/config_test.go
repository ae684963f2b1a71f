package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

//go:embed testdata/harmony.hcl
var harmonyHCL []byte

var testEnviron = map[string]string{
	"CHAT_HOST": "Chat.Example.COM",
	"STATE_DIR": "/var/lib/harmony",
	"USER":      "alice",
}

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestParseBytes(t *testing.T) {
	s, diags := ParseBytes(harmonyHCL, "harmony.hcl", testEnviron)
	require.False(t, diags.HasErrors(), diags.Error())

	assert.Equal(t, "https://chat.example.com/", s.APIURL)
	assert.Equal(t, "/var/lib/harmony/state.db", s.StatePath)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "P14D", s.HistoryMaxAge)
	assert.Equal(t, "PT10S", s.RequestTimeout)
	assert.Empty(t, s.DialTimeout)
	assert.Equal(t, "select(.username != $me) | .content", s.ListenFilter)
	assert.Equal(t, map[string]any{"me": "alice", "prefix": "> "}, s.ListenVars)
}

func TestParseBytesErrors(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":           `api_url = `,
		"unknown setting":  `colour = "blue"`,
		"unknown variable": `api_url = nope.x`,
		"vars not object":  "listen {\n  vars = \"x\"\n}",
	} {
		t.Run(name, func(t *testing.T) {
			_, diags := ParseBytes([]byte(src), name+".hcl", nil)
			assert.True(t, diags.HasErrors())
		})
	}
}

func TestEnvObject(t *testing.T) {
	obj := EnvObject(map[string]string{"HOME": "/home/a", "1BAD.NAME": "x"})
	assert.Equal(t, "/home/a", obj.GetAttr("HOME").AsString())
	assert.Equal(t, "x", obj.GetAttr("_BAD_NAME").AsString())

	assert.True(t, EnvObject(nil).Type().IsObjectType())
}

func TestSanitizeEnvVarName(t *testing.T) {
	tests := map[string]string{
		"":       "_",
		"PATH":   "PATH",
		"my-var": "my-var",
		"-dash":  "_dash",
		"9lives": "_lives",
		"a.b:c":  "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeEnvVarName(in), in)
	}
}

func TestResolve(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Defaults().Resolve()
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:3000", cfg.APIURL)
		assert.Equal(t, "ws://localhost:3000", cfg.WSURL)
		assert.Equal(t, zapcore.WarnLevel, cfg.LogLevel)
		assert.Equal(t, 30*24*time.Hour, cfg.HistoryMaxAge)
		assert.Equal(t, "@every 1h", cfg.HistoryPruneSchedule)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 30*time.Second, cfg.DialTimeout)
		assert.NotEmpty(t, cfg.StatePath)
	})

	t.Run("ws url derived from https", func(t *testing.T) {
		s := Defaults()
		s.APIURL = "https://chat.example.com/base/"
		cfg, err := s.Resolve()
		require.NoError(t, err)
		assert.Equal(t, "https://chat.example.com/base", cfg.APIURL)
		assert.Equal(t, "wss://chat.example.com/base", cfg.WSURL)
	})

	t.Run("explicit ws url", func(t *testing.T) {
		s := Defaults()
		s.WSURL = "wss://rt.example.com/"
		cfg, err := s.Resolve()
		require.NoError(t, err)
		assert.Equal(t, "wss://rt.example.com", cfg.WSURL)
	})

	for name, mutate := range map[string]func(*Settings){
		"bad api url":      func(s *Settings) { s.APIURL = "ftp://x" },
		"relative api url": func(s *Settings) { s.APIURL = "/api" },
		"bad ws url":       func(s *Settings) { s.WSURL = "http://x" },
		"no state path":    func(s *Settings) { s.StatePath = "" },
		"bad log level":    func(s *Settings) { s.LogLevel = "loud" },
		"bad max age":      func(s *Settings) { s.HistoryMaxAge = "30 days" },
		"zero max age":     func(s *Settings) { s.HistoryMaxAge = "P0D" },
		"bad timeout":      func(s *Settings) { s.RequestTimeout = "soon" },
		"negative timeout": func(s *Settings) { s.DialTimeout = "-1s" },
	} {
		t.Run(name, func(t *testing.T) {
			s := Defaults()
			mutate(&s)
			_, err := s.Resolve()
			assert.Error(t, err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = ParseDuration("PT2M")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	d, err = ParsePeriod("PT12H")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, d)
}

func TestLoad(t *testing.T) {
	t.Run("precedence", func(t *testing.T) {
		path := writeFile(t, harmonyHCL)
		environ := map[string]string{
			"CHAT_HOST":                 "chat.example.com",
			"STATE_DIR":                 "/srv",
			"USER":                      "alice",
			"HARMONY_LOG_LEVEL":         "debug",
			"HARMONY_DIAL_TIMEOUT":      "5s",
			"HARMONY_HISTORY_MAX_AGE":   "P7D",
			"HARMONY_LISTEN_FILTER":     ".content",
			"HARMONY_REQUEST_TIMEOUT":   "",
			"UNRELATED_HISTORY_MAX_AGE": "P1D",
		}

		cfg, err := NewLoader().
			WithFile(path).
			WithEnvironment(environ).
			WithOverrides(Settings{HistoryMaxAge: "P1D"}).
			WithLogger(nil).
			Load()
		require.NoError(t, err)

		assert.Equal(t, "https://chat.example.com", cfg.APIURL)
		assert.Equal(t, "wss://chat.example.com", cfg.WSURL)
		assert.Equal(t, "/srv/state.db", cfg.StatePath)
		assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
		assert.Equal(t, 5*time.Second, cfg.DialTimeout)
		assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 24*time.Hour, cfg.HistoryMaxAge)
		assert.Equal(t, ".content", cfg.ListenFilter)
		assert.Equal(t, map[string]any{"me": "alice", "prefix": "> "}, cfg.ListenVars)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := NewLoader().
			WithFile(filepath.Join(t.TempDir(), "nope.hcl")).
			WithEnvironment(map[string]string{}).
			Load()
		assert.Error(t, err)
	})

	t.Run("missing default file is ignored", func(t *testing.T) {
		b := NewLoader().WithEnvironment(map[string]string{})
		b.file = filepath.Join(t.TempDir(), "nope.hcl")

		cfg, err := b.Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:3000", cfg.APIURL)
	})

	t.Run("no file", func(t *testing.T) {
		cfg, err := NewLoader().
			WithFile("").
			WithEnvironment(map[string]string{"HARMONY_API_URL": "http://10.0.0.1:8080"}).
			Load()
		require.NoError(t, err)
		assert.Equal(t, "ws://10.0.0.1:8080", cfg.WSURL)
	})

	t.Run("invalid file", func(t *testing.T) {
		path := writeFile(t, []byte(`log_level = `))
		_, err := NewLoader().WithFile(path).WithEnvironment(map[string]string{}).Load()
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := NewLoader().
			WithFile("").
			WithEnvironment(map[string]string{"HARMONY_LOG_LEVEL": "loud"}).
			Load()
		assert.ErrorContains(t, err, "log_level")
	})
}
