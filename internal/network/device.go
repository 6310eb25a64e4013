package network

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/dbusutil"
	"github.com/wayle-project/wayle/internal/reactive"
)

// Device is the live form of a NetworkManager device: stable identity
// fields fetched once at construction plus reactive Properties for
// everything NetworkManager reports as changing, kept current by a
// per-device PropertiesChanged subscription scoped to the device's own
// object path. This is the Live-Object pattern of spec.md §4.3/"THE
// CORE" item #2, built the same way internal/tray.Item subscribes to
// its own service's signals rather than relying on a single
// service-wide fan-in.
type Device struct {
	Path      string
	Interface string
	Type      DeviceType

	State       *reactive.Property[DeviceState]
	ActiveAP    *reactive.Property[string] // access point BSSID, wifi devices only
	IPv4Address *reactive.Property[string]
	IPv6Address *reactive.Property[string] // not updated by StartMonitoring; stays ""

	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger
	cancel context.CancelFunc
}

var _ reactive.ModelMonitoring = (*Device)(nil)

// newDeviceSnapshot fetches a device's current properties and returns
// it unmonitored — the Reactive "get" half of spec.md §4.3. The
// caller must invoke StartMonitoring to obtain the "get_live" half.
func newDeviceSnapshot(conn *dbus.Conn, path dbus.ObjectPath, logger *slog.Logger) *Device {
	obj := conn.Object(nmBusName, path)
	devType := dbusutil.PropertyOrDefault(obj, deviceIface+".DeviceType", uint32(0), logger)
	state := dbusutil.PropertyOrDefault(obj, deviceIface+".State", uint32(0), logger)
	return &Device{
		Path:        string(path),
		Interface:   dbusutil.PropertyOrDefault(obj, deviceIface+".Interface", "", logger),
		Type:        deviceTypeFromNM(devType),
		State:       reactive.New(deviceStateFromNM(state)),
		ActiveAP:    reactive.New(""),
		IPv4Address: reactive.New(""),
		IPv6Address: reactive.New(""),
		conn:        conn,
		obj:         obj,
		logger:      logger,
	}
}

// StartMonitoring subscribes to PropertiesChanged scoped to this
// device's own object path and updates its Properties in place as
// events arrive, implementing the ModelMonitoring contract of
// spec.md §4.3. It returns once the subscription is armed; update
// delivery itself runs on a background goroutine bound to ctx.
func (d *Device) StartMonitoring(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.conn.AddMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(d.Path))...); err != nil {
		d.logger.Debug("subscribe device signals failed", "path", d.Path, "error", err)
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
	if !ok || (iface != deviceIface && iface != wirelessIface) {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	if v, ok := changed["State"]; ok {
		if nmState, ok := v.Value().(uint32); ok {
			d.State.Set(deviceStateFromNM(nmState))
		}
	}
	if v, ok := changed["ActiveAccessPoint"]; ok {
		if ap, ok := v.Value().(dbus.ObjectPath); ok {
			bssid := ""
			if ap != "/" {
				bssid = dbusutil.PropertyOrDefault(d.conn.Object(nmBusName, ap), apIface+".HwAddress", "", d.logger)
			}
			d.ActiveAP.Set(bssid)
		}
	}
	if v, ok := changed["Ip4Address"]; ok {
		if addr, ok := v.Value().(string); ok {
			d.IPv4Address.Set(addr)
		}
	}
}

// Close cancels the device's monitoring goroutine and releases its
// PropertiesChanged subscription; used as the cancel func passed into
// LiveCollection.Apply so removal cascades the cancellation.
func (d *Device) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	_ = d.conn.RemoveMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(d.Path))...)
}
