package validator

import (
	"os"
	"slices"
	"strconv"

	"github.com/thoreinstein/dotsnapshot/internal/config"
	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/hooks"
	"github.com/thoreinstein/dotsnapshot/internal/logging"
	"github.com/thoreinstein/dotsnapshot/internal/paths"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
)

// ValidateConfig reports structural problems in cfg, include_plugins
// selectors that match none of the known plugin names, and a missing
// output directory.
func ValidateConfig(cfg *config.Config, known []string) *Result {
	result := &Result{}

	for _, err := range config.Validate(cfg) {
		// Individual hook specs are reported by ValidateHooks below.
		var hookErr *config.HookError
		if errors.As(err, &hookErr) && hookErr.Index >= 0 {
			continue
		}
		result.Add(issueFor(err))
	}
	if cfg == nil {
		return result
	}

	for i, sel := range cfg.IncludePlugins {
		if !selectsAny(sel, known) {
			result.AddWarning("include_plugins["+strconv.Itoa(i)+"]", "matches no registered plugin", sel)
		}
	}
	for _, name := range sortedKeys(cfg.Plugins) {
		if len(known) > 0 && !slices.Contains(known, name) {
			result.AddWarning("plugins."+name, "configures an unknown plugin", nil)
		}
	}

	if dir := cfg.SnapshotsDir(); dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			result.AddInfo("output_dir", "does not exist yet and will be created", dir)
		}
	}

	result.Merge(ValidateHooks(cfg, known))
	return result
}

// ValidateHooks checks every configured hook as it would run: specs must
// convert to actions, and each action must pass its own Validate against
// the configured scripts directory. Hooks of unknown plugins are warnings.
func ValidateHooks(cfg *config.Config, known []string) *Result {
	result := &Result{}
	if cfg == nil {
		return result
	}
	hctx := hooks.NewContext("", "", cfg.HooksConfig())
	mgr := hooks.NewManager(logging.NewDiscard())

	check := func(scope string, phase hooks.Phase) {
		specs := cfg.Specs(scope, phase)
		actions := make([]hooks.Action, 0, len(specs))
		indexes := make([]int, 0, len(specs))
		kinds := make([]string, 0, len(specs))
		for i, spec := range specs {
			action, err := spec.Action()
			if err != nil {
				result.Add(hookIssue(scope, phase, i, spec.Kind, err.Error(), nil))
				continue
			}
			actions = append(actions, action)
			indexes = append(indexes, i)
			kinds = append(kinds, spec.Kind)
		}

		for j, err := range mgr.ValidateHooks(actions, hctx.WithPlugin(scope)) {
			if err != nil {
				result.Add(hookIssue(scope, phase, indexes[j], kinds[j], err.Error(), actions[j].String()))
			}
		}
	}

	for _, phase := range config.GlobalPhases() {
		check("", phase)
	}
	for _, name := range sortedKeys(cfg.Plugins) {
		if len(known) > 0 && !slices.Contains(known, name) && len(cfg.Plugins[name].Hooks) > 0 {
			result.AddWarning("plugins."+name+".hooks", "hooks configured for an unknown plugin", nil)
		}
		for _, phase := range config.PluginPhases() {
			check(name, phase)
		}
	}

	if dir := paths.ExpandHome(cfg.HooksConfig().ScriptsDir); dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) && usesScripts(cfg) {
			result.AddWarning("hooks.scripts_dir", "directory does not exist", dir)
		}
	}
	return result
}

func issueFor(err error) Issue {
	var hookErr *config.HookError
	if errors.As(err, &hookErr) {
		field := "global.hooks." + hookErr.Phase
		if hookErr.Scope != "" {
			field = "plugins." + hookErr.Scope + ".hooks." + hookErr.Phase
		}
		if hookErr.Index >= 0 {
			field += "[" + strconv.Itoa(hookErr.Index) + "]"
		}
		return Issue{Severity: SeverityError, Field: field, Message: hookErr.Err.Error(), Plugin: hookErr.Scope, Phase: hookErr.Phase}
	}
	var pathErr *config.PathError
	if errors.As(err, &pathErr) {
		return Issue{Severity: SeverityError, Field: pathErr.Field, Message: pathErr.Err.Error(), Value: pathErr.Path}
	}
	return Issue{Severity: SeverityError, Message: err.Error()}
}

func hookIssue(scope string, phase hooks.Phase, i int, kind, msg string, value any) Issue {
	return Issue{
		Severity: SeverityError,
		Field:    hookField(scope, phase, i),
		Message:  msg,
		Value:    value,
		Plugin:   scope,
		Phase:    phase.String(),
		Action:   kind,
	}
}

func hookField(scope string, phase hooks.Phase, i int) string {
	prefix := "global.hooks."
	if scope != "" {
		prefix = "plugins." + scope + ".hooks."
	}
	return prefix + phase.String() + "[" + strconv.Itoa(i) + "]"
}

func selectsAny(sel string, known []string) bool {
	if len(known) == 0 {
		return true
	}
	for _, name := range known {
		if plugin.Matches(name, []string{sel}) {
			return true
		}
	}
	return false
}

func usesScripts(cfg *config.Config) bool {
	uses := func(specs map[string][]hooks.Spec) bool {
		for _, list := range specs {
			for _, s := range list {
				if s.Kind == string(hooks.KindScript) {
					return true
				}
			}
		}
		return false
	}
	if uses(cfg.Global.Hooks) {
		return true
	}
	for _, pc := range cfg.Plugins {
		if uses(pc.Hooks) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
