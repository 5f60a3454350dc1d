package hooks

import (
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
)

func TestSpec_Action(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want Action
	}{
		{
			name: "script with defaults",
			spec: Spec{Kind: "script", Command: "run.sh", Args: []string{"{snapshot_name}"}},
			want: Script{Command: "run.sh", Args: []string{"{snapshot_name}"}, Timeout: DefaultTimeout},
		},
		{
			name: "script with timeout",
			spec: Spec{Kind: "script", Command: "run.sh", Timeout: 5, WorkingDir: "~", EnvVars: map[string]string{"A": "b"}},
			want: Script{Command: "run.sh", Timeout: 5 * time.Second, WorkingDir: "~", EnvVars: map[string]string{"A": "b"}},
		},
		{
			name: "log default level",
			spec: Spec{Kind: "log", Message: "hi"},
			want: Log{Message: "hi", Level: "info"},
		},
		{
			name: "notify",
			spec: Spec{Kind: "notify", Message: "m", Title: "t"},
			want: Notify{Message: "m", Title: "t"},
		},
		{
			name: "backup",
			spec: Spec{Kind: "backup", Path: "~/a", Destination: "~/b"},
			want: Backup{Path: "~/a", Destination: "~/b"},
		},
		{
			name: "cleanup",
			spec: Spec{Kind: "cleanup", Patterns: []string{"*.tmp"}, Directories: []string{"/tmp"}, TempFiles: true},
			want: Cleanup{Patterns: []string{"*.tmp"}, Directories: []string{"/tmp"}, TempFiles: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Action()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Converting back yields a spec describing the same action.
			again, err := SpecFor(got).Action()
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestSpec_Action_Unknown(t *testing.T) {
	_, err := Spec{Kind: "email"}.Action()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = Spec{}.Action()
	require.Error(t, err)
}

func TestSpec_TOML(t *testing.T) {
	const doc = `
[[hooks]]
action = "script"
command = "backup.sh"
args = ["--dest", "{snapshot_dir}"]
timeout = 60

[[hooks]]
action = "cleanup"
patterns = ["*.tmp"]
temp_files = true
`
	var parsed struct {
		Hooks []Spec `toml:"hooks"`
	}
	require.NoError(t, toml.Unmarshal([]byte(doc), &parsed))

	actions, err := Actions(parsed.Hooks)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	assert.Equal(t, Script{
		Command: "backup.sh",
		Args:    []string{"--dest", "{snapshot_dir}"},
		Timeout: time.Minute,
	}, actions[0])
	assert.Equal(t, Cleanup{Patterns: []string{"*.tmp"}, TempFiles: true}, actions[1])

	_, err = Actions([]Spec{{Kind: "log", Message: "x"}, {Kind: "bogus"}})
	assert.Error(t, err)
}
