package battery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/dbusutil"
	"github.com/wayle-project/wayle/internal/livecollection"
	"github.com/wayle-project/wayle/internal/reactive"
)

const (
	upowerBusName = "org.freedesktop.UPower"
	upowerObjPath = "/org/freedesktop/UPower"
	upowerIface   = "org.freedesktop.UPower"
	deviceIface   = "org.freedesktop.UPower.Device"
)

// Service orchestrates UPower battery devices: discovery, a live
// Devices collection of self-monitoring *Device entities, and an
// OnBattery Property tracking UPower's global on-battery state,
// reconciled off UPower's own DeviceAdded/DeviceRemoved signals the
// same way internal/network.Service reconciles off NetworkManager's.
type Service struct {
	conn   *dbus.Conn
	logger *slog.Logger

	Devices   *livecollection.LiveCollection[string, *Device]
	OnBattery *reactive.Property[bool]
}

var _ reactive.ServiceMonitoring = (*Service)(nil)

// New connects to the system bus.
func New(logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	upower := conn.Object(upowerBusName, dbus.ObjectPath(upowerObjPath))
	onBattery := dbusutil.PropertyOrDefault(upower, upowerIface+".OnBattery", false, logger)
	return &Service{
		conn:      conn,
		logger:    logger,
		Devices:   livecollection.New[string, *Device](),
		OnBattery: reactive.New(onBattery),
	}, nil
}

// Start discovers devices, arms each one's own monitoring, and
// subscribes to UPower's DeviceAdded/DeviceRemoved signals plus its
// own PropertiesChanged (for OnBattery) to reconcile as batteries
// come and go, running until ctx is cancelled. Per-device property
// changes are not handled here: each Device subscribes to its own
// PropertiesChanged stream via StartMonitoring.
func (s *Service) Start(ctx context.Context) error {
	if err := s.discoverDevices(ctx); err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}

	if err := s.conn.AddMatchSignal(dbusutil.SignalMatch(upowerIface, "", "")...); err != nil {
		return fmt.Errorf("subscribe UPower signals: %w", err)
	}
	if err := s.conn.AddMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(upowerObjPath))...); err != nil {
		return fmt.Errorf("subscribe UPower PropertiesChanged: %w", err)
	}
	sigCh := make(chan *dbus.Signal, 32)
	s.conn.Signal(sigCh)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				s.handleSignal(ctx, sig)
			}
		}
	}()
	return nil
}

func (s *Service) discoverDevices(ctx context.Context) error {
	upower := s.conn.Object(upowerBusName, dbus.ObjectPath(upowerObjPath))
	var paths []dbus.ObjectPath
	if err := upower.Call(upowerIface+".EnumerateDevices", 0).Store(&paths); err != nil {
		return err
	}
	for _, p := range paths {
		s.addDevice(ctx, p)
	}
	return nil
}

func (s *Service) addDevice(ctx context.Context, path dbus.ObjectPath) {
	if _, ok := s.Devices.Get(string(path)); ok {
		return
	}
	dev := newDeviceSnapshot(s.conn, path, s.logger)
	dev.StartMonitoring(ctx)
	s.Devices.Apply(livecollection.Change[string, *Device]{
		Kind: livecollection.Added, Key: string(path), Value: dev,
	}, dev.Close)
}

func (s *Service) handleSignal(ctx context.Context, sig *dbus.Signal) {
	switch sig.Name {
	case upowerIface + ".DeviceAdded":
		if len(sig.Body) == 1 {
			if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
				s.addDevice(ctx, path)
			}
		}
	case upowerIface + ".DeviceRemoved":
		if len(sig.Body) == 1 {
			if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
				s.Devices.Apply(livecollection.Change[string, *Device]{
					Kind: livecollection.Removed, Key: string(path),
				}, nil)
			}
		}
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if sig.Path != dbus.ObjectPath(upowerObjPath) || len(sig.Body) < 2 {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		if v, ok := changed["OnBattery"]; ok {
			if b, ok := v.Value().(bool); ok {
				s.OnBattery.Set(b)
			}
		}
	}
}

// Close disconnects from the system bus.
func (s *Service) Close() error {
	return s.conn.Close()
}
