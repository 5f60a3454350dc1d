// Package flags provides shared flag accessors for CLI commands.
// This package exists to avoid import cycles between the root command
// and noun subpackages (hooks, backup).
package flags

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

// Output formats accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// configFlag holds the value of the --config flag.
var configFlag string

// loaded is the configuration resolved by the root command.
var loaded *config.Config

// GetConfigFlag returns the current value of the --config flag.
func GetConfigFlag() string {
	return configFlag
}

// SetConfigFlag sets the --config flag value.
func SetConfigFlag(path string) {
	configFlag = path
}

// Config returns the configuration loaded by the root command, or the
// defaults when nothing has been loaded.
func Config() *config.Config {
	if loaded == nil {
		return config.Default()
	}
	return loaded
}

// SetConfig records the configuration subcommands should use.
func SetConfig(cfg *config.Config) {
	loaded = cfg
}

// CheckFormat validates a --format value.
func CheckFormat(format string) error {
	switch strings.ToLower(format) {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return errors.NewUserError(
			errors.Mark(errors.Newf("unknown output format %q", format), errors.ErrValidation),
			"Use one of: text, json, yaml")
	}
}

// Encode writes v to w as JSON or YAML. The text format is rendered by the
// caller; Encode rejects it.
func Encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encoding JSON output")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encoding YAML output")
		}
		return errors.Wrap(enc.Close(), "encoding YAML output")
	default:
		return errors.Newf("format %q is not structured", format)
	}
}

// Structured reports whether format is encoded by Encode.
func Structured(format string) bool {
	f := strings.ToLower(format)
	return f == FormatJSON || f == FormatYAML
}
