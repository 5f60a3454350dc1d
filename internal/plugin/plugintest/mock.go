package plugintest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/thoreinstein/dotsnapshot/internal/hooks"
)

// MockPlugin is a testify mock of plugin.Plugin.
type MockPlugin struct {
	mock.Mock
}

// NewMockPlugin creates a MockPlugin whose expectations are asserted when
// the test finishes.
func NewMockPlugin(t *testing.T) *MockPlugin {
	m := &MockPlugin{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPlugin) Description() string {
	return m.Called().String(0)
}

func (m *MockPlugin) Execute(ctx context.Context, snapshotDir string) (string, error) {
	args := m.Called(ctx, snapshotDir)
	return args.String(0), args.Error(1)
}

func (m *MockPlugin) Validate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockPlugin) TargetPath() string {
	return m.Called().String(0)
}

func (m *MockPlugin) OutputFile() string {
	return m.Called().String(0)
}

func (m *MockPlugin) RestoreTargetDir() string {
	return m.Called().String(0)
}

func (m *MockPlugin) Hooks(phase hooks.Phase) []hooks.Action {
	args := m.Called(phase)
	if v := args.Get(0); v != nil {
		return v.([]hooks.Action)
	}
	return nil
}

func (m *MockPlugin) CreatesOwnOutputFiles() bool {
	return m.Called().Bool(0)
}

func (m *MockPlugin) Restore(ctx context.Context, snapshotPath, targetPath string, dryRun bool) ([]string, error) {
	args := m.Called(ctx, snapshotPath, targetPath, dryRun)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}
