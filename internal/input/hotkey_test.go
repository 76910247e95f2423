package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.design/x/hotkey"
)

func TestParseHotkey(t *testing.T) {
	mods, key, err := parseHotkey("Ctrl+Shift+Space")
	require.NoError(t, err)
	assert.Equal(t, []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, mods)
	assert.Equal(t, hotkey.KeySpace, key)

	mods, key, err = parseHotkey("alt + f9")
	require.NoError(t, err)
	assert.Equal(t, []hotkey.Modifier{platformModifiers["alt"]}, mods)
	assert.Equal(t, hotkey.KeyF9, key)
}

func TestParseHotkeyErrors(t *testing.T) {
	for _, in := range []string{"", "ctrl+shift", "ctrl+a+b", "ctrl+pageup"} {
		_, _, err := parseHotkey(in)
		assert.Error(t, err, in)
	}
}

func TestToggleState(t *testing.T) {
	var seen []bool
	h := NewHotkeyManager(func(active bool) { seen = append(seen, active) })

	assert.True(t, h.Toggle())
	assert.False(t, h.Toggle())
	h.SetActive(true)
	assert.True(t, h.Active())
	assert.Empty(t, seen, "Toggle does not invoke the callback")
}
