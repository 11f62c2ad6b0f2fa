package waitspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	spec, err := Parse([]string{"max=1"})
	require.NoError(t, err)
	assert.Equal(t, 1, spec.MaxLag)
	assert.Equal(t, 3600, spec.Timeout)
	assert.Equal(t, 1, spec.Check)
	assert.False(t, spec.Continue)
}

func TestParseAllKeys(t *testing.T) {
	spec, err := Parse([]string{"max=5", "timeout=300", "continue=yes"})
	require.NoError(t, err)
	assert.Equal(t, 5, spec.MaxLag)
	assert.Equal(t, 300, spec.Timeout)
	assert.True(t, spec.Continue)
}

func TestParseCaseInsensitive(t *testing.T) {
	spec, err := Parse([]string{"MAX=2", "Timeout=60", "Continue=NO"})
	require.NoError(t, err)
	assert.Equal(t, 2, spec.MaxLag)
	assert.Equal(t, 60, spec.Timeout)
	assert.False(t, spec.Continue)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		wantErr error
	}{
		{"empty", []string{}, ErrEmptySpec},
		{"nil", nil, ErrEmptySpec},
		{"no equals", []string{"max"}, ErrMalformedToken},
		{"empty key", []string{"=1"}, ErrMalformedToken},
		{"empty value", []string{"max="}, ErrMalformedToken},
		{"unknown key", []string{"foo=1", "max=1"}, ErrUnknownKey},
		{"unknown key check", []string{"max=1", "check=5"}, ErrUnknownKey},
		{"non integer max", []string{"max=abc"}, ErrNonIntegerValue},
		{"negative max", []string{"max=-1"}, ErrNonIntegerValue},
		{"float timeout", []string{"max=1", "timeout=1.5"}, ErrNonIntegerValue},
		{"bad continue", []string{"max=1", "continue=maybe"}, ErrInvalidContinueValue},
		{"missing max", []string{"timeout=10"}, ErrMissingMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.tokens)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseErrorNamesToken(t *testing.T) {
	_, err := Parse([]string{"max=abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"max=abc"`)
}

func TestParseLastKeyWins(t *testing.T) {
	spec, err := Parse([]string{"max=1", "max=9"})
	require.NoError(t, err)
	assert.Equal(t, 9, spec.MaxLag)
}
