// Package battery is the UPower D-Bus backend facade: a live device
// model and orchestrator. Grounded on spec.md §6's UPower object list
// and original_source/crates/wayle-battery's device/monitoring split.
package battery

import (
	"context"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/dbusutil"
	"github.com/wayle-project/wayle/internal/reactive"
)

// State mirrors UPower's battery state enum.
type State int

const (
	StateUnknown State = iota
	StateCharging
	StateDischarging
	StateFullyCharged
	StatePendingCharge
	StatePendingDischarge
)

// Device is the live form of a UPower battery device: a stable
// identity (object path) plus reactive Properties for everything
// UPower reports as changing, kept current by a per-device
// PropertiesChanged subscription scoped to the device's own object
// path. This is the Live-Object pattern of spec.md §4.3, built the
// same way internal/network.Device subscribes to its own device path
// rather than relying on a bus-wide signal match.
type Device struct {
	Path string

	Percentage  *reactive.Property[float64]
	State       *reactive.Property[State]
	TimeToEmpty *reactive.Property[uint64] // seconds
	TimeToFull  *reactive.Property[uint64] // seconds
	EnergyRate  *reactive.Property[float64]
	IconName    *reactive.Property[string]

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
	obj := conn.Object(upowerBusName, path)
	return &Device{
		Path:        string(path),
		Percentage:  reactive.New(dbusutil.PropertyOrDefault(obj, deviceIface+".Percentage", 0.0, logger)),
		State:       reactive.New(stateFromUPower(dbusutil.PropertyOrDefault(obj, deviceIface+".State", uint32(0), logger))),
		TimeToEmpty: reactive.New(uint64(dbusutil.PropertyOrDefault(obj, deviceIface+".TimeToEmpty", int64(0), logger))),
		TimeToFull:  reactive.New(uint64(dbusutil.PropertyOrDefault(obj, deviceIface+".TimeToFull", int64(0), logger))),
		EnergyRate:  reactive.New(dbusutil.PropertyOrDefault(obj, deviceIface+".EnergyRate", 0.0, logger)),
		IconName:    reactive.New(dbusutil.PropertyOrDefault(obj, deviceIface+".IconName", "", logger)),
		conn:        conn,
		obj:         obj,
		logger:      logger,
	}
}

// StartMonitoring subscribes to PropertiesChanged scoped to this
// device's own object path and updates its Properties in place,
// implementing the ModelMonitoring contract of spec.md §4.3.
func (d *Device) StartMonitoring(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.conn.AddMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(d.Path))...); err != nil {
		d.logger.Debug("subscribe battery device signals failed", "path", d.Path, "error", err)
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
	if !ok || iface != deviceIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	if v, ok := changed["Percentage"]; ok {
		if pct, ok := v.Value().(float64); ok {
			d.Percentage.Set(pct)
		}
	}
	if v, ok := changed["State"]; ok {
		if st, ok := v.Value().(uint32); ok {
			d.State.Set(stateFromUPower(st))
		}
	}
	if v, ok := changed["TimeToEmpty"]; ok {
		if t, ok := v.Value().(int64); ok {
			d.TimeToEmpty.Set(uint64(t))
		}
	}
	if v, ok := changed["TimeToFull"]; ok {
		if t, ok := v.Value().(int64); ok {
			d.TimeToFull.Set(uint64(t))
		}
	}
	if v, ok := changed["EnergyRate"]; ok {
		if r, ok := v.Value().(float64); ok {
			d.EnergyRate.Set(r)
		}
	}
	if v, ok := changed["IconName"]; ok {
		if n, ok := v.Value().(string); ok {
			d.IconName.Set(n)
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

// stateFromUPower maps UPower's numeric device-state codes
// (1=charging, 2=discharging, 4=fully charged, 5=pending charge,
// 6=pending discharge) to State, defaulting to StateUnknown.
func stateFromUPower(code uint32) State {
	switch code {
	case 1:
		return StateCharging
	case 2:
		return StateDischarging
	case 4:
		return StateFullyCharged
	case 5:
		return StatePendingCharge
	case 6:
		return StatePendingDischarge
	default:
		return StateUnknown
	}
}
