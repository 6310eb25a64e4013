// Package bluetooth is the BlueZ D-Bus backend facade: adapter/device
// live models and a pairing agent registered at
// /com/wayle/BluetoothAgent. Grounded on spec.md §6's BlueZ interface
// list (Adapter1/Device1/Battery1/AgentManager1) and
// original_source/crates/wayle-bluetooth.
package bluetooth

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/dbusutil"
	"github.com/wayle-project/wayle/internal/reactive"
)

// Device is the live form of a BlueZ Device1 object: a stable
// identity (object path, address) plus reactive Properties for
// everything BlueZ reports as changing, kept current by a per-device
// PropertiesChanged subscription scoped to the device's own object
// path, the same Live-Object pattern internal/network.Device and
// internal/battery.Device use for their own backends.
type Device struct {
	Path    string
	Address string

	Name      *reactive.Property[string]
	Paired    *reactive.Property[bool]
	Connected *reactive.Property[bool]
	Trusted   *reactive.Property[bool]
	Battery   *reactive.Property[int] // percentage, -1 if the device has no Battery1 interface

	conn   *dbus.Conn
	logger *slog.Logger
	cancel context.CancelFunc
}

var _ reactive.ModelMonitoring = (*Device)(nil)

// newDeviceSnapshot fetches a device's current properties (plus its
// Battery1 percentage, if present) and returns it unmonitored.
func newDeviceSnapshot(conn *dbus.Conn, path dbus.ObjectPath, logger *slog.Logger) *Device {
	obj := conn.Object(busName, path)
	battery := -1
	if pct, ok := dbusutil.PropertyOptional[byte](obj, batteryIface+".Percentage"); ok {
		battery = int(pct)
	}
	return &Device{
		Path:      string(path),
		Address:   dbusutil.PropertyOrDefault(obj, deviceIface+".Address", "", logger),
		Name:      reactive.New(dbusutil.PropertyOrDefault(obj, deviceIface+".Name", "", logger)),
		Paired:    reactive.New(dbusutil.PropertyOrDefault(obj, deviceIface+".Paired", false, logger)),
		Connected: reactive.New(dbusutil.PropertyOrDefault(obj, deviceIface+".Connected", false, logger)),
		Trusted:   reactive.New(dbusutil.PropertyOrDefault(obj, deviceIface+".Trusted", false, logger)),
		Battery:   reactive.New(battery),
		conn:      conn,
		logger:    logger,
	}
}

// StartMonitoring subscribes to PropertiesChanged scoped to this
// device's own object path (covering both org.bluez.Device1 and
// org.bluez.Battery1, which BlueZ exposes on the same object) and
// updates its Properties in place.
func (d *Device) StartMonitoring(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.conn.AddMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(d.Path))...); err != nil {
		d.logger.Debug("subscribe bluetooth device signals failed", "path", d.Path, "error", err)
	}

	sigCh := make(chan *dbus.Signal, 16)
	d.conn.Signal(sigCh)

	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if sig.Path != dbus.ObjectPath(d.Path) {
					continue
				}
				d.handlePropertiesChanged(sig)
			}
		}
	}()
}

func (d *Device) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	switch iface {
	case deviceIface:
		if v, ok := changed["Name"]; ok {
			if n, ok := v.Value().(string); ok {
				d.Name.Set(n)
			}
		}
		if v, ok := changed["Paired"]; ok {
			if b, ok := v.Value().(bool); ok {
				d.Paired.Set(b)
			}
		}
		if v, ok := changed["Connected"]; ok {
			if b, ok := v.Value().(bool); ok {
				d.Connected.Set(b)
			}
		}
		if v, ok := changed["Trusted"]; ok {
			if b, ok := v.Value().(bool); ok {
				d.Trusted.Set(b)
			}
		}
	case batteryIface:
		if v, ok := changed["Percentage"]; ok {
			if pct, ok := v.Value().(byte); ok {
				d.Battery.Set(int(pct))
			}
		}
	}
}

// Close cancels the device's monitoring goroutine, used as the cancel
// func passed into LiveCollection.Apply so removal cascades the
// cancellation.
func (d *Device) Close() {
	if d.cancel != nil {
		d.cancel()
	}
}

// Adapter is the live form of a BlueZ Adapter1 object: a stable
// identity (object path, address) plus reactive Properties for
// Powered/Discovering, kept current by a per-adapter PropertiesChanged
// subscription scoped to the adapter's own object path.
type Adapter struct {
	Path    string
	Address string

	Powered     *reactive.Property[bool]
	Discovering *reactive.Property[bool]

	conn   *dbus.Conn
	logger *slog.Logger
	cancel context.CancelFunc
}

var _ reactive.ModelMonitoring = (*Adapter)(nil)

func newAdapterSnapshot(conn *dbus.Conn, path dbus.ObjectPath, logger *slog.Logger) *Adapter {
	obj := conn.Object(busName, path)
	return &Adapter{
		Path:        string(path),
		Address:     dbusutil.PropertyOrDefault(obj, adapterIface+".Address", "", logger),
		Powered:     reactive.New(dbusutil.PropertyOrDefault(obj, adapterIface+".Powered", false, logger)),
		Discovering: reactive.New(dbusutil.PropertyOrDefault(obj, adapterIface+".Discovering", false, logger)),
		conn:        conn,
		logger:      logger,
	}
}

// StartMonitoring subscribes to PropertiesChanged scoped to this
// adapter's own object path.
func (a *Adapter) StartMonitoring(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.conn.AddMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(a.Path))...); err != nil {
		a.logger.Debug("subscribe bluetooth adapter signals failed", "path", a.Path, "error", err)
	}

	sigCh := make(chan *dbus.Signal, 16)
	a.conn.Signal(sigCh)

	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if sig.Path != dbus.ObjectPath(a.Path) {
					continue
				}
				a.handlePropertiesChanged(sig)
			}
		}
	}()
}

func (a *Adapter) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != adapterIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	if v, ok := changed["Powered"]; ok {
		if b, ok := v.Value().(bool); ok {
			a.Powered.Set(b)
		}
	}
	if v, ok := changed["Discovering"]; ok {
		if b, ok := v.Value().(bool); ok {
			a.Discovering.Set(b)
		}
	}
}

// Close cancels the adapter's monitoring goroutine.
func (a *Adapter) Close() {
	if a.cancel != nil {
		a.cancel()
	}
}
