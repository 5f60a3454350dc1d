package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Text(t *testing.T) {
	for _, s := range []Severity{SeverityError, SeverityWarning, SeverityInfo} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var got Severity
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}

	assert.Equal(t, "unknown", Severity(7).String())
	var s Severity
	assert.Error(t, s.UnmarshalText([]byte("fatal")))
}

func TestIssue_Error(t *testing.T) {
	tests := []struct {
		name  string
		issue Issue
		want  string
	}{
		{
			name:  "field and value",
			issue: Issue{Severity: SeverityError, Field: "max_concurrency", Message: "must be positive", Value: -1},
			want:  "error: max_concurrency: must be positive (got -1)",
		},
		{
			name:  "message only",
			issue: Issue{Severity: SeverityWarning, Message: "no plugins selected"},
			want:  "warning: no plugins selected",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.issue.Error())
		})
	}
}

func TestResult(t *testing.T) {
	var r Result
	assert.False(t, r.HasErrors())
	assert.False(t, r.HasWarnings())

	r.AddWarning("include_plugins", "matches nothing", "zsh*")
	r.AddInfo("hooks.scripts_dir", "does not exist yet", nil)
	assert.False(t, r.HasErrors())
	assert.True(t, r.HasWarnings())

	other := &Result{}
	other.AddError("output_dir", "is required", nil)
	r.Merge(other)
	r.Merge(nil)

	require.Len(t, r.Issues, 3)
	assert.True(t, r.HasErrors())
	assert.Equal(t, "output_dir", r.Errors()[0].Field)
	assert.Len(t, r.Warnings(), 1)
	assert.Len(t, r.Filter(SeverityInfo), 1)

	var nilResult *Result
	assert.Empty(t, nilResult.Errors())
}
