// Package ipc implements Hyprland's line-oriented Unix socket
// protocols: .socket2.sock's one-way EVENT>>DATA event stream and
// .socket.sock's request/response query channel. Grounded on
// original_source/crates/wayle-hyprland/src/ipc/events/dispatcher.rs
// for the exact event-name table, per-event data grammar, and error
// substrings, and on the teacher's
// internal/homeassistant/websocket.go sendAndWait pattern for the
// request/response correlation used on the query socket.
package ipc

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/wayle-project/wayle/internal/eventbus"
)

// Event is a single parsed Hyprland event. Kind is the raw event name
// (e.g. "workspacev2", "fullscreen"); Fields holds the event-specific
// parsed data. Both v1 and v2 variants of an event (e.g. "workspace"
// and "workspacev2") are emitted independently and never deduplicated,
// per spec.md's dual-emission requirement.
type Event struct {
	Kind   string
	Fields map[string]string
}

// ParseError reports a malformed DATA payload for a recognized event.
// Dispatch returns it to the caller; EventStream logs it and continues,
// never aborting the event stream because one line failed to parse.
type ParseError struct {
	EventName string
	EventData string
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("hyprland event %q: %s (data=%q)", e.EventName, e.Reason, e.EventData)
}

// Dispatcher parses EVENT>>DATA lines from .socket2.sock and publishes
// them to both an internal notification bus (consumed by
// hyprland.Service's reconcile loop to keep its live collections
// current) and the public HyprlandEvent bus exposed to the front end.
type Dispatcher struct {
	internal *eventbus.Bus[Event]
	public   *eventbus.Bus[Event]
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher publishing to the given buses.
func NewDispatcher(internal, public *eventbus.Bus[Event], logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{internal: internal, public: public, logger: logger}
}

// Dispatch parses and routes a single raw line from .socket2.sock. A
// malformed DATA payload for a known event produces a *ParseError,
// which the caller should log and continue on, not treat as fatal. An
// unrecognized event name is not an error: it is logged at warn level
// and ignored, since Hyprland has historically added new event kinds.
func (d *Dispatcher) Dispatch(line string) error {
	name, data, ok := strings.Cut(line, ">>")
	if !ok {
		return &ParseError{EventName: "", EventData: line, Reason: "missing '>>' separator"}
	}

	fields, err := parseFields(name, data)
	if err != nil {
		return err
	}

	if !knownEvents[name] {
		d.logger.Warn("unknown hyprland event", "event", name, "data", data)
		return nil
	}

	ev := Event{Kind: name, Fields: fields}
	d.internal.Publish(ev)
	d.public.Publish(ev)
	return nil
}

// knownEvents lists every event name the original implementation's
// dispatcher recognizes. Unlisted names are logged and dropped rather
// than erroring, so a newer compositor version with an unknown event
// never breaks the stream.
var knownEvents = map[string]bool{
	"workspace": true, "workspacev2": true,
	"focusedmon": true, "focusedmonv2": true,
	"activewindow": true, "activewindowv2": true,
	"fullscreen":     true,
	"monitorremoved": true, "monitorremovedv2": true,
	"monitoradded": true, "monitoraddedv2": true,
	"createworkspace": true, "createworkspacev2": true,
	"destroyworkspace": true, "destroyworkspacev2": true,
	"moveworkspace": true, "moveworkspacev2": true,
	"renameworkspace": true,
	"activespecial":   true, "activespecialv2": true,
	"activelayout":      true,
	"openwindow":        true,
	"closewindow":       true,
	"movewindow":        true, "movewindowv2": true,
	"openlayer":         true,
	"closelayer":        true,
	"submap":            true,
	"changefloatingmode": true,
	"urgent":            true,
	"screencast":        true,
	"windowtitle":       true, "windowtitlev2": true,
	"togglegroup":       true,
	"moveintogroup":     true,
	"moveoutofgroup":    true,
	"ignoregrouplock":   true,
	"lockgroups":        true,
	"configreloaded":    true,
	"pin":               true,
	"minimized":         true,
	"bell":              true,
}

// parseFields applies the per-event data grammar. Most events are
// comma-separated positional fields stored under field0, field1, ...;
// a handful have event-specific semantics that must be validated
// exactly as the original implementation does, since front-end code
// depends on these coercions.
func parseFields(name, data string) (map[string]string, error) {
	switch name {
	case "fullscreen":
		if data != "0" && data != "1" {
			return nil, &ParseError{EventName: name, EventData: data, Reason: "invalid fullscreen value"}
		}
		return map[string]string{"state": data}, nil

	case "activelayout":
		kb, layout, ok := strings.Cut(data, ",")
		if !ok {
			return nil, &ParseError{EventName: name, EventData: data, Reason: "expected comma-separated keyboard,layout"}
		}
		return map[string]string{"keyboard": kb, "layout": layout}, nil

	case "submap":
		return map[string]string{"name": data}, nil

	case "screencast":
		state, owner, ok := strings.Cut(data, ",")
		if !ok {
			return nil, &ParseError{EventName: name, EventData: data, Reason: "expected comma-separated state,owner"}
		}
		if state != "0" && state != "1" {
			return nil, &ParseError{EventName: name, EventData: data, Reason: "invalid state value"}
		}
		if owner != "0" && owner != "1" {
			return nil, &ParseError{EventName: name, EventData: data, Reason: "invalid owner value"}
		}
		return map[string]string{"state": state, "owner": owner}, nil

	case "ignoregrouplock", "lockgroups":
		if data != "0" && data != "1" {
			return nil, &ParseError{EventName: name, EventData: data, Reason: "invalid locked value"}
		}
		return map[string]string{"locked": data}, nil

	case "configreloaded":
		return map[string]string{}, nil

	case "bell":
		if data == "" {
			return map[string]string{}, nil
		}
		addr := strings.TrimPrefix(data, "0x")
		return map[string]string{"address": addr}, nil

	default:
		return splitPositional(data), nil
	}
}

func splitPositional(data string) map[string]string {
	fields := make(map[string]string)
	if data == "" {
		return fields
	}
	parts := strings.Split(data, ",")
	for i, p := range parts {
		fields["field"+strconv.Itoa(i)] = p
	}
	return fields
}
