// Client-side GetLayout/Event plumbing for a single com.canonical.dbusmenu
// object. Grounded on original_source/crates/wayle-systray's menu-fetch
// flow (GetLayout with parentId=0, depth=-1, no property filter) and on
// internal/dbusutil's fetch-with-fallback idiom for individual property
// reads, generalized here to the dbusmenu "(u, v)" layout tuple shape.
package dbusmenu

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const ifaceName = "com.canonical.dbusmenu"

// Client talks to a single menu object exported by a StatusNotifierItem.
type Client struct {
	obj dbus.BusObject
}

// NewClient wraps the menu object at path on service.
func NewClient(conn *dbus.Conn, service string, path dbus.ObjectPath) *Client {
	return &Client{obj: conn.Object(service, path)}
}

// GetLayout fetches the full menu tree rooted at parentId=0 with
// depth=-1 and no property filter, per spec.md §4.6, and parses the
// nested "(i, a{sv}, av)" layout tuple into a MenuItem tree.
func (c *Client) GetLayout() (*MenuItem, error) {
	var revision uint32
	var layout dbus.Variant
	call := c.obj.Call(ifaceName+".GetLayout", 0, int32(0), int32(-1), []string{})
	if call.Err != nil {
		return nil, fmt.Errorf("GetLayout: %w", call.Err)
	}
	if err := call.Store(&revision, &layout); err != nil {
		return nil, fmt.Errorf("GetLayout: decode reply: %w", err)
	}
	return parseLayoutVariant(layout.Value())
}

// parseLayoutVariant decodes one "(i, a{sv}, av)" node: an int32 id, a
// property dict, and an array of variant-wrapped child nodes.
func parseLayoutVariant(v any) (*MenuItem, error) {
	tuple, ok := v.([]any)
	if !ok || len(tuple) != 3 {
		return nil, fmt.Errorf("malformed layout node: %T", v)
	}
	id, ok := tuple[0].(int32)
	if !ok {
		return nil, fmt.Errorf("malformed layout node id: %T", tuple[0])
	}
	props, _ := tuple[1].(map[string]dbus.Variant)
	rawProps := make(map[string]any, len(props))
	for k, val := range props {
		rawProps[k] = val.Value()
	}
	item := FromRawProps(RawProps{ID: id, Props: rawProps})

	children, _ := tuple[2].([]dbus.Variant)
	for _, childVariant := range children {
		childNode, ok := childVariant.Value().([]any)
		if !ok {
			continue
		}
		child, err := parseLayoutVariant(childNode)
		if err != nil {
			continue
		}
		item.Children = append(item.Children, child)
	}
	return item, nil
}

// Event sends a single clicked/hovered/opened/closed event for id to
// the menu's backing application.
func (c *Client) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) error {
	call := c.obj.Call(ifaceName+".Event", 0, id, eventID, data, timestamp)
	return call.Err
}

// EventEntry is a single entry of the batched EventGroup call.
type EventEntry struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

// EventGroup sends a batch of events in one call, per spec.md §4.6's
// "batched variant sends arrays of (id, event, timestamp)".
func (c *Client) EventGroup(entries []EventEntry) error {
	type wire struct {
		ID        int32
		EventID   string
		Data      dbus.Variant
		Timestamp uint32
	}
	wireEntries := make([]wire, len(entries))
	for i, e := range entries {
		wireEntries[i] = wire{ID: e.ID, EventID: e.EventID, Data: e.Data, Timestamp: e.Timestamp}
	}
	call := c.obj.Call(ifaceName+".EventGroup", 0, wireEntries)
	return call.Err
}
