package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
}

func TestDefaultKeyMap_Keys(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"Quit", km.Quit, []string{"q", "ctrl+c"}},
		{"Help", km.Help, []string{"?"}},
		{"Back", km.Back, []string{"esc"}},
		{"Ask", km.Ask, []string{"enter"}},
		{"Mode", km.Mode, []string{"tab"}},
		{"Up", km.Up, []string{"up", "k"}},
		{"Down", km.Down, []string{"down", "j"}},
		{"Select", km.Select, []string{"enter"}},
		{"Cancel", km.Cancel, []string{"esc"}},
		{"NewQuestion", km.NewQuestion, []string{"n"}},
		{"Expand", km.Expand, []string{"enter"}},
		{"Trace", km.Trace, []string{"t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Key, "binding should have help key")
		})
	}
}

func TestShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	bindings := km.ShortHelp()

	require.Len(t, bindings, 3)
	assert.Equal(t, km.Ask, bindings[0])
	assert.Equal(t, km.Mode, bindings[1])
	assert.Equal(t, km.Back, bindings[2])
}

func TestAnswerHelp(t *testing.T) {
	km := DefaultKeyMap()

	bindings := km.AnswerHelp()

	require.Len(t, bindings, 5)
	assert.Equal(t, km.NewQuestion, bindings[0])
	assert.Equal(t, km.Trace, bindings[3])
}

func TestFullHelp(t *testing.T) {
	km := DefaultKeyMap()

	bindings := km.FullHelp()

	assert.Len(t, bindings, 5)    // 5 groups
	assert.Len(t, bindings[0], 3) // Up, Down, Select
	assert.Len(t, bindings[1], 3) // Ask, Mode, NewQuestion
	assert.Len(t, bindings[4], 2) // Help, Quit
}

func TestMatches_True(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("q", km.Quit))
	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.True(t, Matches("tab", km.Mode))
	assert.True(t, Matches("t", km.Trace))
	assert.True(t, Matches("k", km.Up))
}

func TestMatches_False(t *testing.T) {
	km := DefaultKeyMap()

	assert.False(t, Matches("x", km.Quit))
	assert.False(t, Matches("a", km.Help))
	assert.False(t, Matches("down", km.Up))
}
