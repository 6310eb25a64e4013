package network

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/dbusutil"
	"github.com/wayle-project/wayle/internal/livecollection"
	"github.com/wayle-project/wayle/internal/reactive"
)

const (
	nmBusName  = "org.freedesktop.NetworkManager"
	nmObjPath  = "/org/freedesktop/NetworkManager"
	nmIface    = "org.freedesktop.NetworkManager"
	deviceIface = "org.freedesktop.NetworkManager.Device"
	wirelessIface = "org.freedesktop.NetworkManager.Device.Wireless"
	apIface    = "org.freedesktop.NetworkManager.AccessPoint"
)

// Service is the NetworkManager orchestrator: a live Devices
// collection of self-monitoring *Device entities, visible
// AccessPoints per wifi device, and a Connectivity Property for
// NetworkManager's global connectivity state, reconciled off
// NetworkManager's DeviceAdded/DeviceRemoved signals.
type Service struct {
	conn   *dbus.Conn
	logger *slog.Logger

	Devices      *livecollection.LiveCollection[string, *Device]
	AccessPoints *livecollection.LiveCollection[string, AccessPoint]
	Connectivity *reactive.Property[string]

	// apPaths tracks object path -> BSSID so AccessPointRemoved can
	// resolve a key for the removed AP: by the time the signal fires,
	// GetProperty against the vanished AP object always fails.
	apPaths   map[dbus.ObjectPath]string
	apPathsMu sync.Mutex
}

var _ reactive.ServiceMonitoring = (*Service)(nil)

// New connects to the system bus and constructs the service. Connect
// failures propagate fully per spec.md §7 (constructor-level errors
// are not degraded).
func New(logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	nm := conn.Object(nmBusName, dbus.ObjectPath(nmObjPath))
	connectivity := connectivityFromNM(dbusutil.PropertyOrDefault(nm, nmIface+".Connectivity", uint32(0), logger))
	return &Service{
		conn:         conn,
		logger:       logger,
		Devices:      livecollection.New[string, *Device](),
		AccessPoints: livecollection.New[string, AccessPoint](),
		Connectivity: reactive.New(connectivity),
		apPaths:      make(map[dbus.ObjectPath]string),
	}, nil
}

// Start discovers devices, arms each one's own monitoring, and
// subscribes to NetworkManager's DeviceAdded/DeviceRemoved signals
// plus its own PropertiesChanged (for Connectivity) to reconcile the
// Devices collection as interfaces come and go, running until ctx is
// cancelled. Per-device property changes are not handled here: each
// Device subscribes to its own PropertiesChanged stream via
// StartMonitoring. Each wifi device's visible access points are
// seeded via GetAccessPoints and kept current via that device's own
// AccessPointAdded/AccessPointRemoved signals.
func (s *Service) Start(ctx context.Context) error {
	if err := s.discoverDevices(ctx); err != nil {
		return fmt.Errorf("discover devices: %w", err)
	}

	if err := s.conn.AddMatchSignal(dbusutil.SignalMatch(nmIface, "", "")...); err != nil {
		return fmt.Errorf("subscribe NetworkManager signals: %w", err)
	}
	if err := s.conn.AddMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(nmObjPath))...); err != nil {
		return fmt.Errorf("subscribe NetworkManager PropertiesChanged: %w", err)
	}
	if err := s.conn.AddMatchSignal(dbusutil.SignalMatch(wirelessIface, "", "")...); err != nil {
		return fmt.Errorf("subscribe wireless signals: %w", err)
	}

	sigCh := make(chan *dbus.Signal, 64)
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
	nm := s.conn.Object(nmBusName, dbus.ObjectPath(nmObjPath))
	var paths []dbus.ObjectPath
	if err := nm.Call(nmIface+".GetDevices", 0).Store(&paths); err != nil {
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

	if dev.Type == DeviceTypeWifi {
		s.scanAccessPoints(dev.Path)
	}
}

// scanAccessPoints issues GetAccessPoints against a wifi device's
// Wireless interface and seeds the AccessPoints collection, the
// Discovery half of spec.md §4.5 for wifi scan results.
func (s *Service) scanAccessPoints(devicePath string) {
	obj := s.conn.Object(nmBusName, dbus.ObjectPath(devicePath))
	var apPaths []dbus.ObjectPath
	if err := obj.Call(wirelessIface+".GetAccessPoints", 0).Store(&apPaths); err != nil {
		s.logger.Debug("get access points failed", "device", devicePath, "error", err)
		return
	}
	for _, p := range apPaths {
		s.addAccessPoint(p)
	}
}

func (s *Service) addAccessPoint(path dbus.ObjectPath) {
	obj := s.conn.Object(nmBusName, path)
	ap := AccessPoint{
		BSSID:     dbusutil.PropertyOrDefault(obj, apIface+".HwAddress", "", s.logger),
		SSID:      decodeSSID(dbusutil.PropertyOrDefault(obj, apIface+".Ssid", []byte(nil), s.logger)),
		Strength:  dbusutil.PropertyOrDefault(obj, apIface+".Strength", uint8(0), s.logger),
		Frequency: dbusutil.PropertyOrDefault(obj, apIface+".Frequency", uint32(0), s.logger),
		Secured:   dbusutil.PropertyOrDefault(obj, apIface+".WpaFlags", uint32(0), s.logger) != 0 || dbusutil.PropertyOrDefault(obj, apIface+".RsnFlags", uint32(0), s.logger) != 0,
	}
	if ap.BSSID == "" {
		return
	}
	s.apPathsMu.Lock()
	s.apPaths[path] = ap.BSSID
	s.apPathsMu.Unlock()
	s.AccessPoints.Apply(livecollection.Change[string, AccessPoint]{
		Kind: livecollection.Added, Key: ap.BSSID, Value: ap,
	}, nil)
}

// decodeSSID converts NetworkManager's raw SSID byte array into a
// displayable string; NetworkManager does not guarantee SSIDs are
// valid UTF-8, but Wayle's front end only displays them, so invalid
// sequences are kept as-is rather than rejected.
func decodeSSID(raw []byte) string {
	return string(raw)
}

// deviceTypeFromNM maps NMDeviceType codes (1=ethernet, 2=wifi) to
// DeviceType, defaulting unrecognized types to DeviceTypeUnknown.
func deviceTypeFromNM(nmType uint32) DeviceType {
	switch nmType {
	case 1:
		return DeviceTypeEthernet
	case 2:
		return DeviceTypeWifi
	default:
		return DeviceTypeUnknown
	}
}

// deviceStateFromNM collapses NMDeviceState's many numeric codes
// (10-120) into Wayle's coarse state enum.
func deviceStateFromNM(nmState uint32) DeviceState {
	switch {
	case nmState == 100:
		return StateConnected
	case nmState >= 40 && nmState < 100:
		return StateConnecting
	case nmState == 30 || nmState == 20:
		return StateDisconnected
	default:
		return StateUnknown
	}
}

func (s *Service) handleSignal(ctx context.Context, sig *dbus.Signal) {
	switch sig.Name {
	case nmIface + ".DeviceAdded":
		if len(sig.Body) == 1 {
			if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
				s.addDevice(ctx, path)
			}
		}
	case nmIface + ".DeviceRemoved":
		if len(sig.Body) == 1 {
			if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
				s.Devices.Apply(livecollection.Change[string, *Device]{
					Kind: livecollection.Removed, Key: string(path),
				}, nil)
			}
		}
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if sig.Path != dbus.ObjectPath(nmObjPath) || len(sig.Body) < 2 {
			return
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return
		}
		if v, ok := changed["Connectivity"]; ok {
			if code, ok := v.Value().(uint32); ok {
				s.Connectivity.Set(connectivityFromNM(code))
			}
		}
	case wirelessIface + ".AccessPointAdded":
		if len(sig.Body) == 1 {
			if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
				s.addAccessPoint(path)
			}
		}
	case wirelessIface + ".AccessPointRemoved":
		if len(sig.Body) == 1 {
			if path, ok := sig.Body[0].(dbus.ObjectPath); ok {
				s.apPathsMu.Lock()
				bssid, known := s.apPaths[path]
				delete(s.apPaths, path)
				s.apPathsMu.Unlock()
				if !known {
					return
				}
				s.AccessPoints.Apply(livecollection.Change[string, AccessPoint]{
					Kind: livecollection.Removed, Key: bssid,
				}, nil)
			}
		}
	}
}

// connectivityFromNM maps NMConnectivityState codes to the descriptive
// strings the front end displays.
func connectivityFromNM(code uint32) string {
	switch code {
	case 1:
		return "none"
	case 2:
		return "portal"
	case 3:
		return "limited"
	case 4:
		return "full"
	default:
		return "unknown"
	}
}

// Close disconnects from the system bus.
func (s *Service) Close() error {
	return s.conn.Close()
}
