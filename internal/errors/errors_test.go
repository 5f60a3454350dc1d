package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError_Error(t *testing.T) {
	assert.Equal(t, "resource not found", NewExitError(ErrNotFound, ExitUser).Error())
	assert.Equal(t, "exit code 2", NewExitError(nil, ExitSystem).Error())
	assert.Equal(t, "reading snapshot: resource not found",
		NewSystemError(Wrap(ErrNotFound, "reading snapshot"), "").Error())
}

func TestExitError_Chain(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"sentinel", NewUserError(ErrNotFound, ""), ErrNotFound, true},
		{"stdlib wrap", NewExitError(fmt.Errorf("hook: %w", ErrTimeout), ExitSystem), ErrTimeout, true},
		{"marked", NewConfigError(Mark(New("max_concurrency must be positive"), ErrInvalidConfig)), ErrInvalidConfig, true},
		{"other sentinel", NewUserError(ErrNotFound, ""), ErrValidation, false},
		{"nil inner", NewExitError(nil, ExitUser), ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.target))
		})
	}
}

func TestConstructors(t *testing.T) {
	inner := New("boom")
	tests := []struct {
		name       string
		err        *ExitError
		code       int
		suggestion string
	}{
		{"exit", NewExitError(inner, ExitSystem), ExitSystem, ""},
		{"user", NewUserError(inner, "Run: dotsnapshot list"), ExitUser, "Run: dotsnapshot list"},
		{"system", NewSystemError(inner, "check disk space"), ExitSystem, "check disk space"},
		{"config", NewConfigError(inner), ExitUser, "Run: dotsnapshot config validate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, inner, tt.err.Err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.suggestion, tt.err.Suggestion)
		})
	}
}

func TestNewPartialFailure(t *testing.T) {
	err := NewPartialFailure("plugins", 2, 5)

	assert.Equal(t, ExitSystem, err.Code)
	assert.True(t, Is(err, ErrPartialFailure))
	assert.Equal(t, "2 of 5 plugins failed: partial failure", err.Error())
	assert.NotEmpty(t, err.Suggestion)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", New("bad flag"), ExitUser},
		{"system", NewSystemError(ErrExecution, ""), ExitSystem},
		{"wrapped system", Wrap(NewSystemError(ErrExecution, ""), "snapshot"), ExitSystem},
		{"stdlib wrapped", fmt.Errorf("restore: %w", NewPartialFailure("plugins", 1, 3)), ExitSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestSuggestionOf(t *testing.T) {
	assert.Empty(t, SuggestionOf(New("plain")))
	assert.Equal(t, "Run: dotsnapshot list",
		SuggestionOf(Wrap(NewUserError(ErrNotFound, "Run: dotsnapshot list"), "restore")))
}

func TestMark(t *testing.T) {
	err := Mark(New("hook command is empty"), ErrValidation)

	require.Error(t, err)
	assert.Equal(t, "hook command is empty", err.Error())
	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrExecution))
	assert.True(t, Is(Wrap(err, "loading hooks"), ErrValidation))
}
