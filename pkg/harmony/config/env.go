package config

import (
	"os"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Environ returns the process environment as a map.
func Environ() map[string]string {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			environ[parts[0]] = parts[1]
		}
	}
	return environ
}

// EnvObject returns a cty object with one string attribute per environment
// variable, for use as the env variable in config expressions.
func EnvObject(environ map[string]string) cty.Value {
	attrs := make(map[string]cty.Value, len(environ))
	for key, value := range environ {
		attrs[sanitizeEnvVarName(key)] = cty.StringVal(value)
	}

	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

// sanitizeEnvVarName maps an environment variable name onto a valid HCL
// identifier by replacing invalid characters with underscores.
func sanitizeEnvVarName(name string) string {
	if name == "" {
		return "_"
	}

	var b strings.Builder
	for i, r := range name {
		if isIdentChar(r) && (i > 0 || !isDigit(r) && r != '-') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || isDigit(r) || r == '_' || r == '-'
}
