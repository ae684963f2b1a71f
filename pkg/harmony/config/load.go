package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "HARMONY_"

// LoaderBuilder provides a fluent interface for loading configuration.
type LoaderBuilder struct {
	file      string
	explicit  bool
	environ   map[string]string
	overrides Settings
	logger    *zap.Logger
}

// NewLoader creates a loader reading the default config file, if it exists,
// and the process environment.
func NewLoader() *LoaderBuilder {
	return &LoaderBuilder{
		file:   DefaultFile(),
		logger: zap.NewNop(),
	}
}

// WithFile names the config file. Unlike the default file it must exist. An
// empty path disables file loading.
func (b *LoaderBuilder) WithFile(path string) *LoaderBuilder {
	b.file = path
	b.explicit = path != ""
	return b
}

// WithEnvironment replaces the process environment, mainly for tests.
func (b *LoaderBuilder) WithEnvironment(environ map[string]string) *LoaderBuilder {
	b.environ = environ
	return b
}

// WithOverrides sets values that win over every other source, typically
// command line flags.
func (b *LoaderBuilder) WithOverrides(overrides Settings) *LoaderBuilder {
	b.overrides = overrides
	return b
}

// WithLogger sets the logger for the loader.
func (b *LoaderBuilder) WithLogger(logger *zap.Logger) *LoaderBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// Load merges defaults, the config file, the environment and the overrides,
// then resolves the result.
func (b *LoaderBuilder) Load() (*Config, error) {
	logger := b.logger.Named("config")

	environ := b.environ
	if environ == nil {
		environ = Environ()
	}

	settings := Defaults()

	if b.file != "" {
		_, err := os.Stat(b.file)
		switch {
		case err == nil:
			fromFile, diags := ParseFile(b.file, environ)
			if diags.HasErrors() {
				return nil, diags
			}
			settings.Merge(fromFile)
			logger.Debug("Loaded config file", zap.String("path", b.file))
		case errors.Is(err, fs.ErrNotExist) && !b.explicit:
			logger.Debug("No config file", zap.String("path", b.file))
		default:
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	var fromEnv Settings
	err := env.ParseWithOptions(&fromEnv, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	settings.Merge(fromEnv)
	settings.Merge(b.overrides)

	return settings.Resolve()
}
