package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel_Ordering(t *testing.T) {
	levels := Levels()
	assert.Len(t, levels, 6)
	for i := 1; i < len(levels); i++ {
		assert.Less(t, levels[i-1], levels[i])
	}
	assert.Equal(t, Verbose, Minimum)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "Information", Information.String())
	assert.Equal(t, "Fatal", Fatal.String())
	assert.Equal(t, "Level(42)", Level(42).String())
	assert.False(t, Level(42).Valid())
	assert.True(t, Warning.Valid())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"verbose":      Verbose,
		"TRACE":        Verbose,
		"debug":        Debug,
		"info":         Information,
		" Information": Information,
		"warn":         Warning,
		"Warning":      Warning,
		"error":        Error,
		"fatal":        Fatal,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
