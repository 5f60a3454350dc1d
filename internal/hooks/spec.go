package hooks

import (
	"time"
)

// Spec is the flat, serializable form of an Action. Kind selects which of
// the remaining fields apply.
type Spec struct {
	Kind string `toml:"action" mapstructure:"action" json:"action" yaml:"action"`

	// script
	Command    string            `toml:"command,omitempty" mapstructure:"command" json:"command,omitempty" yaml:"command,omitempty"`
	Args       []string          `toml:"args,omitempty" mapstructure:"args" json:"args,omitempty" yaml:"args,omitempty"`
	Timeout    int               `toml:"timeout,omitempty" mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
	WorkingDir string            `toml:"working_dir,omitempty" mapstructure:"working_dir" json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	EnvVars    map[string]string `toml:"env_vars,omitempty" mapstructure:"env_vars" json:"env_vars,omitempty" yaml:"env_vars,omitempty"`

	// log and notify
	Message string `toml:"message,omitempty" mapstructure:"message" json:"message,omitempty" yaml:"message,omitempty"`
	Level   string `toml:"level,omitempty" mapstructure:"level" json:"level,omitempty" yaml:"level,omitempty"`
	Title   string `toml:"title,omitempty" mapstructure:"title" json:"title,omitempty" yaml:"title,omitempty"`

	// backup
	Path        string `toml:"path,omitempty" mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	Destination string `toml:"destination,omitempty" mapstructure:"destination" json:"destination,omitempty" yaml:"destination,omitempty"`

	// cleanup
	Patterns    []string `toml:"patterns,omitempty" mapstructure:"patterns" json:"patterns,omitempty" yaml:"patterns,omitempty"`
	Directories []string `toml:"directories,omitempty" mapstructure:"directories" json:"directories,omitempty" yaml:"directories,omitempty"`
	TempFiles   bool     `toml:"temp_files,omitempty" mapstructure:"temp_files" json:"temp_files,omitempty" yaml:"temp_files,omitempty"`
}

// Action converts the spec into an Action. Defaults are applied for an
// unset script timeout (30s) and log level (info).
func (s Spec) Action() (Action, error) {
	switch Kind(s.Kind) {
	case KindScript:
		timeout := DefaultTimeout
		if s.Timeout > 0 {
			timeout = time.Duration(s.Timeout) * time.Second
		}
		return Script{
			Command:    s.Command,
			Args:       s.Args,
			Timeout:    timeout,
			WorkingDir: s.WorkingDir,
			EnvVars:    s.EnvVars,
		}, nil
	case KindLog:
		level := s.Level
		if level == "" {
			level = DefaultLogLevel
		}
		return Log{Message: s.Message, Level: level}, nil
	case KindNotify:
		return Notify{Message: s.Message, Title: s.Title}, nil
	case KindBackup:
		return Backup{Path: s.Path, Destination: s.Destination}, nil
	case KindCleanup:
		return Cleanup{Patterns: s.Patterns, Directories: s.Directories, TempFiles: s.TempFiles}, nil
	case "":
		return nil, invalid("hook is missing the action key")
	default:
		return nil, invalid("unknown hook action %q", s.Kind)
	}
}

// SpecFor returns the serializable form of a.
func SpecFor(a Action) Spec {
	switch v := a.(type) {
	case Script:
		spec := Spec{
			Kind:       string(KindScript),
			Command:    v.Command,
			Args:       v.Args,
			WorkingDir: v.WorkingDir,
			EnvVars:    v.EnvVars,
		}
		if v.Timeout > 0 && v.Timeout != DefaultTimeout {
			spec.Timeout = int(v.Timeout / time.Second)
		}
		return spec
	case Log:
		spec := Spec{Kind: string(KindLog), Message: v.Message}
		if v.Level != DefaultLogLevel {
			spec.Level = v.Level
		}
		return spec
	case Notify:
		return Spec{Kind: string(KindNotify), Message: v.Message, Title: v.Title}
	case Backup:
		return Spec{Kind: string(KindBackup), Path: v.Path, Destination: v.Destination}
	case Cleanup:
		return Spec{Kind: string(KindCleanup), Patterns: v.Patterns, Directories: v.Directories, TempFiles: v.TempFiles}
	default:
		return Spec{Kind: string(a.Kind())}
	}
}

// Actions converts specs into actions, stopping at the first invalid spec.
func Actions(specs []Spec) ([]Action, error) {
	actions := make([]Action, 0, len(specs))
	for _, s := range specs {
		a, err := s.Action()
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}
