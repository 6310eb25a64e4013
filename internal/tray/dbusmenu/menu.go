// Package dbusmenu models the com.canonical.dbusmenu tree used by
// system tray items for their right-click menu. Grounded verbatim on
// original_source/crates/wayle-systray/src/types/menu.rs's enum
// Default/coercion rules.
package dbusmenu

// ItemType mirrors MenuItemType: Default is Standard; From<&str> maps
// "separator" to Separator and anything else to Standard.
type ItemType int

const (
	ItemStandard ItemType = iota
	ItemSeparator
)

func (t ItemType) String() string {
	if t == ItemSeparator {
		return "separator"
	}
	return "standard"
}

// ItemTypeFromString implements the From<&str> coercion: only the
// exact string "separator" produces ItemSeparator.
func ItemTypeFromString(s string) ItemType {
	if s == "separator" {
		return ItemSeparator
	}
	return ItemStandard
}

// ToggleType mirrors ToggleType: Default is None.
type ToggleType int

const (
	ToggleNone ToggleType = iota
	ToggleCheckmark
	ToggleRadio
)

// ToggleTypeFromString implements the From<&str> coercion.
func ToggleTypeFromString(s string) ToggleType {
	switch s {
	case "checkmark":
		return ToggleCheckmark
	case "radio":
		return ToggleRadio
	default:
		return ToggleNone
	}
}

// ToggleState mirrors ToggleState: Default is Unchecked. The wire
// representation is an int32 (0=Unchecked, 1=Checked, anything
// else=Unknown); the reverse mapping for emitting back over D-Bus is
// Unchecked=0, Checked=1, Unknown=-1.
type ToggleState int

const (
	ToggleUnchecked ToggleState = iota
	ToggleChecked
	ToggleUnknown
)

// ToggleStateFromInt implements the From<i32> coercion.
func ToggleStateFromInt(v int32) ToggleState {
	switch v {
	case 0:
		return ToggleUnchecked
	case 1:
		return ToggleChecked
	default:
		return ToggleUnknown
	}
}

// Int implements the reverse From<ToggleState> for i32 coercion.
func (s ToggleState) Int() int32 {
	switch s {
	case ToggleUnchecked:
		return 0
	case ToggleChecked:
		return 1
	default:
		return -1
	}
}

// Disposition mirrors Disposition: Default is Normal; From<&str>
// matches the four exact lowercase strings and falls back to Normal.
type Disposition int

const (
	DispositionNormal Disposition = iota
	DispositionInformative
	DispositionWarning
	DispositionAlert
)

// DispositionFromString implements the From<&str> coercion.
func DispositionFromString(s string) Disposition {
	switch s {
	case "informative":
		return DispositionInformative
	case "warning":
		return DispositionWarning
	case "alert":
		return DispositionAlert
	default:
		return DispositionNormal
	}
}

// ChildrenDisplay mirrors ChildrenDisplay: it has exactly one variant,
// and From<&str> always returns it regardless of input, per menu.rs.
type ChildrenDisplay int

const (
	ChildrenSubmenu ChildrenDisplay = iota
)

// ChildrenDisplayFromString always returns ChildrenSubmenu.
func ChildrenDisplayFromString(string) ChildrenDisplay {
	return ChildrenSubmenu
}

// MenuItem is a single node in the DBusMenu tree.
type MenuItem struct {
	ID              int32
	Label           string
	Enabled         bool
	Visible         bool
	Type            ItemType
	ToggleType      ToggleType
	ToggleState     ToggleState
	IconName        string
	IconData        []byte
	AccessibleDesc  string
	Shortcut        [][]string
	Disposition     Disposition
	ChildrenDisplay ChildrenDisplay
	Children        []*MenuItem
}

// NewMenuItem returns a MenuItem with every field at its documented
// default (Standard/None/Unchecked/Normal/Submenu, Enabled=true,
// Visible=true), matching menu.rs's Default impl.
func NewMenuItem(id int32) *MenuItem {
	return &MenuItem{
		ID:              id,
		Enabled:         true,
		Visible:         true,
		Type:            ItemStandard,
		ToggleType:      ToggleNone,
		ToggleState:     ToggleUnchecked,
		Disposition:     DispositionNormal,
		ChildrenDisplay: ChildrenSubmenu,
	}
}

// RawProps is the wire shape for a single item's property map as
// returned by GetLayout/GetGroupProperties (the DBusMenu
// "(int32, dict<string,variant>)" tuple).
type RawProps struct {
	ID    int32
	Props map[string]any
}

// FromRawProps builds a MenuItem by applying the documented
// From<&str>/From<i32> coercions to each recognized property key,
// defaulting any missing key.
func FromRawProps(raw RawProps) *MenuItem {
	item := NewMenuItem(raw.ID)
	if v, ok := raw.Props["label"].(string); ok {
		item.Label = v
	}
	if v, ok := raw.Props["enabled"].(bool); ok {
		item.Enabled = v
	}
	if v, ok := raw.Props["visible"].(bool); ok {
		item.Visible = v
	}
	if v, ok := raw.Props["type"].(string); ok {
		item.Type = ItemTypeFromString(v)
	}
	if v, ok := raw.Props["toggle-type"].(string); ok {
		item.ToggleType = ToggleTypeFromString(v)
	}
	if v, ok := raw.Props["toggle-state"].(int32); ok {
		item.ToggleState = ToggleStateFromInt(v)
	}
	if v, ok := raw.Props["icon-name"].(string); ok {
		item.IconName = v
	}
	if v, ok := raw.Props["accessible-desc"].(string); ok {
		item.AccessibleDesc = v
	}
	if v, ok := raw.Props["disposition"].(string); ok {
		item.Disposition = DispositionFromString(v)
	}
	if v, ok := raw.Props["children-display"].(string); ok {
		item.ChildrenDisplay = ChildrenDisplayFromString(v)
	}
	return item
}
