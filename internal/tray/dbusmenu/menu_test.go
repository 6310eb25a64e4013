package dbusmenu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemTypeFromStringOnlyRecognizesSeparator(t *testing.T) {
	assert.Equal(t, ItemSeparator, ItemTypeFromString("separator"))
	assert.Equal(t, ItemStandard, ItemTypeFromString("standard"))
	assert.Equal(t, ItemStandard, ItemTypeFromString("garbage"))
}

func TestToggleStateFromIntCoercion(t *testing.T) {
	assert.Equal(t, ToggleUnchecked, ToggleStateFromInt(0))
	assert.Equal(t, ToggleChecked, ToggleStateFromInt(1))
	assert.Equal(t, ToggleUnknown, ToggleStateFromInt(99))
}

func TestToggleStateIntReverseMapping(t *testing.T) {
	assert.Equal(t, int32(0), ToggleUnchecked.Int())
	assert.Equal(t, int32(1), ToggleChecked.Int())
	assert.Equal(t, int32(-1), ToggleUnknown.Int())
}

func TestDispositionFromStringExactMatchesOnly(t *testing.T) {
	assert.Equal(t, DispositionWarning, DispositionFromString("warning"))
	assert.Equal(t, DispositionAlert, DispositionFromString("alert"))
	assert.Equal(t, DispositionNormal, DispositionFromString("Warning"))
	assert.Equal(t, DispositionNormal, DispositionFromString(""))
}

func TestChildrenDisplayFromStringAlwaysSubmenu(t *testing.T) {
	assert.Equal(t, ChildrenSubmenu, ChildrenDisplayFromString("anything"))
	assert.Equal(t, ChildrenSubmenu, ChildrenDisplayFromString(""))
}

func TestNewMenuItemDefaults(t *testing.T) {
	item := NewMenuItem(5)
	require.True(t, item.Enabled)
	require.True(t, item.Visible)
	assert.Equal(t, ItemStandard, item.Type)
	assert.Equal(t, ToggleNone, item.ToggleType)
	assert.Equal(t, ToggleUnchecked, item.ToggleState)
	assert.Equal(t, DispositionNormal, item.Disposition)
	assert.Equal(t, ChildrenSubmenu, item.ChildrenDisplay)
}

func TestFromRawPropsAppliesCoercions(t *testing.T) {
	item := FromRawProps(RawProps{
		ID: 3,
		Props: map[string]any{
			"label":        "Quit",
			"enabled":      false,
			"type":         "separator",
			"toggle-state": int32(1),
			"disposition":  "alert",
		},
	})
	assert.Equal(t, "Quit", item.Label)
	assert.False(t, item.Enabled)
	assert.Equal(t, ItemSeparator, item.Type)
	assert.Equal(t, ToggleChecked, item.ToggleState)
	assert.Equal(t, DispositionAlert, item.Disposition)
	// Visible was not supplied; must keep NewMenuItem's default of true.
	assert.True(t, item.Visible)
}
