package hooks

import "github.com/thoreinstein/dotsnapshot/internal/errors"

// Phase names a lifecycle checkpoint at which hooks run.
type Phase string

// Lifecycle phases, in the order a snapshot or restore encounters them.
const (
	PreSnapshot  Phase = "pre-snapshot"
	PostSnapshot Phase = "post-snapshot"
	PrePlugin    Phase = "pre-plugin"
	PostPlugin   Phase = "post-plugin"
	PreRestore   Phase = "pre-restore"
	PostRestore  Phase = "post-restore"
)

// Phases returns every lifecycle phase.
func Phases() []Phase {
	return []Phase{PreSnapshot, PostSnapshot, PrePlugin, PostPlugin, PreRestore, PostRestore}
}

// String returns the kebab-case phase name used in configuration.
func (p Phase) String() string {
	return string(p)
}

// Global reports whether the phase applies to a whole run rather than to a
// single plugin.
func (p Phase) Global() bool {
	switch p {
	case PreSnapshot, PostSnapshot, PreRestore, PostRestore:
		return true
	default:
		return false
	}
}

// ParsePhase converts a configuration name into a Phase.
func ParsePhase(name string) (Phase, error) {
	for _, p := range Phases() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", errors.Mark(errors.Newf("unknown hook phase %q", name), errors.ErrValidation)
}
