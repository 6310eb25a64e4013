// Package dbusutil provides the small set of D-Bus helpers shared by
// every backend adapter that talks to a system or session bus service
// (NetworkManager, UPower, BlueZ, StatusNotifierWatcher). Grounded on
// the godbus/dbus/v5 usage patterns in
// other_examples/manifests/davidolrik-overseer and
// other_examples/manifests/juju-juju, and on spec.md §7's requirement
// that a missing/wrong-typed D-Bus property degrade to a logged
// default rather than propagate a fatal error from a per-entity
// monitor.
package dbusutil

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// PropertyOrDefault fetches a single D-Bus property and returns def if
// the property is absent, the variant can't be type-asserted to T, or
// the call itself fails. Every failure is logged at debug level rather
// than propagated, matching spec.md §7's policy that per-entity
// property fetch failures degrade gracefully instead of killing the
// owning monitor.
func PropertyOrDefault[T any](obj dbus.BusObject, iface string, def T, logger *slog.Logger) T {
	if logger == nil {
		logger = slog.Default()
	}
	v, err := obj.GetProperty(iface)
	if err != nil {
		logger.Debug("dbus property fetch failed", "interface", iface, "error", err)
		return def
	}
	val, ok := v.Value().(T)
	if !ok {
		logger.Debug("dbus property wrong type", "interface", iface, "value", v.Value())
		return def
	}
	return val
}

// PropertyOptional fetches a single D-Bus property and reports whether
// it was present and type-correct, without logging on absence — used
// where a property's absence is expected and meaningful (e.g. probing
// whether a BlueZ device also exposes org.bluez.Battery1) rather than
// a degraded fallback.
func PropertyOptional[T any](obj dbus.BusObject, iface string) (T, bool) {
	var zero T
	v, err := obj.GetProperty(iface)
	if err != nil {
		return zero, false
	}
	val, ok := v.Value().(T)
	if !ok {
		return zero, false
	}
	return val, true
}

// ObjectPath validates that a D-Bus object path string is well-formed
// before use, returning ObjectNotFound-shaped error text on failure.
func ObjectPath(path string) (dbus.ObjectPath, error) {
	p := dbus.ObjectPath(path)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return p, nil
}

// SignalMatch builds a standard match rule for a given interface and
// member, scoped to one exact object path when path is non-empty (an
// empty member or path leaves that part unrestricted), used by every adapter that
// subscribes to PropertiesChanged or service-specific signals.
func SignalMatch(iface, member string, path dbus.ObjectPath) []dbus.MatchOption {
	opts := []dbus.MatchOption{
		dbus.WithMatchInterface(iface),
	}
	if member != "" {
		opts = append(opts, dbus.WithMatchMember(member))
	}
	if path != "" {
		opts = append(opts, dbus.WithMatchObjectPath(path))
	}
	return opts
}
