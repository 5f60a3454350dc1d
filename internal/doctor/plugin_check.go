package doctor

import (
	"context"
	"fmt"

	"github.com/thoreinstein/dotsnapshot/internal/plugin"
)

// PluginCheck validates that each plugin selected by include_plugins can
// run on this machine.
type PluginCheck struct {
	registry *plugin.Registry
	include  []string
}

var _ Check = (*PluginCheck)(nil)

// NewPluginCheck creates a check over the plugins in reg matching include.
// An empty include selects every plugin.
func NewPluginCheck(reg *plugin.Registry, include []string) *PluginCheck {
	return &PluginCheck{registry: reg, include: include}
}

// Name returns the unique identifier for this check.
func (c *PluginCheck) Name() string {
	return "plugins"
}

// Category returns the grouping for this check.
func (c *PluginCheck) Category() string {
	return "plugins"
}

// Run validates every selected plugin.
func (c *PluginCheck) Run(ctx context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
	}

	selected := c.registry.Select(c.include)
	if selected.Len() == 0 {
		result.Status = SeverityWarning
		result.Message = "include_plugins matches no plugins"
		result.FixHint = "run: dotsnapshot plugins"
		return result
	}

	unavailable := make(map[string]any)
	for _, e := range selected.Entries() {
		if err := e.Plugin.Validate(ctx); err != nil {
			unavailable[e.Name] = err.Error()
		}
	}

	if len(unavailable) > 0 {
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d of %d plugins cannot run here", len(unavailable), selected.Len())
		result.Details = map[string]any{"unavailable": unavailable}
		result.FixHint = "install the missing tools or narrow include_plugins"
		return result
	}

	result.Status = SeverityPass
	result.Message = fmt.Sprintf("%d plugins ready", selected.Len())
	return result
}
