package plugin_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/plugin"
	"github.com/thoreinstein/dotsnapshot/internal/plugin/plugintest"
)

func TestNewRegistry(t *testing.T) {
	r := plugin.NewRegistry()
	require.NotNil(t, r)
	assert.Nil(t, r.Names())
	assert.Zero(t, r.Len())
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name    string
		plugin  string
		wantErr error
	}{
		{"simple", "homebrew_brewfile", nil},
		{"dash", "vscode-settings", nil},
		{"uppercase", "Homebrew", plugin.ErrInvalidPluginName},
		{"empty", "", plugin.ErrInvalidPluginName},
		{"leading digit", "1brew", plugin.ErrInvalidPluginName},
		{"path", "../evil", plugin.ErrInvalidPluginName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := plugin.NewRegistry()
			err := r.Register(tt.plugin, &plugintest.Fake{})
			if tt.wantErr == nil {
				require.NoError(t, err)
				_, ok := r.Get(tt.plugin)
				assert.True(t, ok)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register("npm_global_packages", &plugintest.Fake{}))

	err := r.Register("npm_global_packages", &plugintest.Fake{})
	assert.True(t, errors.Is(err, plugin.ErrPluginAlreadyRegistered))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Register_Nil(t *testing.T) {
	r := plugin.NewRegistry()
	err := r.Register("nil_plugin", nil)
	assert.True(t, errors.Is(err, plugin.ErrInvalidPluginName))
}

func TestRegistry_EntriesSorted(t *testing.T) {
	r := plugin.NewRegistry()
	for _, name := range []string{"vscode_settings", "homebrew_brewfile", "npm_global_packages"} {
		require.NoError(t, r.Register(name, &plugintest.Fake{}))
	}

	assert.Equal(t, []string{"homebrew_brewfile", "npm_global_packages", "vscode_settings"}, r.Names())

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "homebrew_brewfile", entries[0].Name)
	assert.NotNil(t, entries[0].Plugin)
}

func TestRegistry_Select(t *testing.T) {
	r := plugin.NewRegistry()
	for _, name := range []string{"homebrew_brewfile", "vscode_settings", "vscode_extensions", "static_files"} {
		require.NoError(t, r.Register(name, &plugintest.Fake{}))
	}

	tests := []struct {
		name      string
		selectors []string
		want      []string
	}{
		{"empty selects all", nil, []string{"homebrew_brewfile", "static_files", "vscode_extensions", "vscode_settings"}},
		{"all keyword", []string{"all"}, []string{"homebrew_brewfile", "static_files", "vscode_extensions", "vscode_settings"}},
		{"exact name", []string{"static_files"}, []string{"static_files"}},
		{"substring", []string{"vscode"}, []string{"vscode_extensions", "vscode_settings"}},
		{"category", []string{"Homebrew"}, []string{"homebrew_brewfile"}},
		{"no match", []string{"cargo"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Select(tt.selectors).Names())
		})
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := plugin.NewRegistry()
	require.NoError(t, r.Register("base", &plugintest.Fake{}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Get("base")
			_ = r.Names()
			_ = r.Entries()
		}()
	}
	wg.Wait()
}
