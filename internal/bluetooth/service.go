package bluetooth

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
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	batteryIface = "org.bluez.Battery1"
	agentManager = "org.bluez.AgentManager1"
	agentPath    = "/com/wayle/BluetoothAgent"
	objManager   = "org.freedesktop.DBus.ObjectManager"
)

// Service orchestrates BlueZ adapters and devices: ObjectManager
// discovery seeds a live Adapters collection and a live Devices
// collection of self-monitoring *Adapter/*Device entities, reconciled
// off BlueZ's own InterfacesAdded/InterfacesRemoved signals — BlueZ's
// equivalent of NetworkManager's DeviceAdded/DeviceRemoved, since BlueZ
// exposes no top-level add/remove signal of its own. Per-object
// property changes are each entity's own concern, handled by its own
// StartMonitoring subscription.
type Service struct {
	conn   *dbus.Conn
	logger *slog.Logger

	Adapters *livecollection.LiveCollection[string, *Adapter]
	Devices  *livecollection.LiveCollection[string, *Device]
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
	return &Service{
		conn:     conn,
		logger:   logger,
		Adapters: livecollection.New[string, *Adapter](),
		Devices:  livecollection.New[string, *Device](),
	}, nil
}

// Start discovers existing objects via ObjectManager, arms each one's
// own monitoring, and subscribes to InterfacesAdded/InterfacesRemoved
// to reconcile the collections as adapters and devices come and go.
func (s *Service) Start(ctx context.Context) error {
	root := s.conn.Object(busName, "/")
	var managed map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := root.Call(objManager+".GetManagedObjects", 0).Store(&managed); err != nil {
		return fmt.Errorf("get managed objects: %w", err)
	}
	for path, ifaces := range managed {
		s.reconcileAdd(ctx, path, ifaces)
	}

	if err := s.conn.AddMatchSignal(dbusutil.SignalMatch(objManager, "", "")...); err != nil {
		return fmt.Errorf("subscribe ObjectManager signals: %w", err)
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

func (s *Service) reconcileAdd(ctx context.Context, path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) {
	if _, ok := ifaces[adapterIface]; ok {
		s.addAdapter(ctx, path)
	}
	if _, ok := ifaces[deviceIface]; ok {
		s.addDevice(ctx, path)
	}
}

func (s *Service) addAdapter(ctx context.Context, path dbus.ObjectPath) {
	if _, ok := s.Adapters.Get(string(path)); ok {
		return
	}
	a := newAdapterSnapshot(s.conn, path, s.logger)
	a.StartMonitoring(ctx)
	s.Adapters.Apply(livecollection.Change[string, *Adapter]{
		Kind: livecollection.Added, Key: string(path), Value: a,
	}, a.Close)
}

func (s *Service) addDevice(ctx context.Context, path dbus.ObjectPath) {
	if _, ok := s.Devices.Get(string(path)); ok {
		return
	}
	d := newDeviceSnapshot(s.conn, path, s.logger)
	d.StartMonitoring(ctx)
	s.Devices.Apply(livecollection.Change[string, *Device]{
		Kind: livecollection.Added, Key: string(path), Value: d,
	}, d.Close)
}

func (s *Service) handleSignal(ctx context.Context, sig *dbus.Signal) {
	switch sig.Name {
	case objManager + ".InterfacesAdded":
		if len(sig.Body) != 2 {
			return
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return
		}
		ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
		if !ok {
			return
		}
		s.reconcileAdd(ctx, path, ifaces)
	case objManager + ".InterfacesRemoved":
		if len(sig.Body) != 2 {
			return
		}
		path, ok := sig.Body[0].(dbus.ObjectPath)
		if !ok {
			return
		}
		removed, ok := sig.Body[1].([]string)
		if !ok {
			return
		}
		for _, iface := range removed {
			switch iface {
			case adapterIface:
				s.Adapters.Apply(livecollection.Change[string, *Adapter]{
					Kind: livecollection.Removed, Key: string(path),
				}, nil)
			case deviceIface:
				s.Devices.Apply(livecollection.Change[string, *Device]{
					Kind: livecollection.Removed, Key: string(path),
				}, nil)
			}
		}
	}
}

// RegisterAgent registers a pairing agent at /com/wayle/BluetoothAgent
// with the "KeyboardDisplay" capability and sets it as the default
// agent, per spec.md §6. Registration failure propagates fully.
func (s *Service) RegisterAgent(agent *PairingAgent) error {
	if err := s.conn.Export(agent, agentPath, "org.bluez.Agent1"); err != nil {
		return fmt.Errorf("export agent: %w", err)
	}
	manager := s.conn.Object(busName, "/org/bluez")
	if call := manager.Call(agentManager+".RegisterAgent", 0, dbus.ObjectPath(agentPath), "KeyboardDisplay"); call.Err != nil {
		return fmt.Errorf("register agent: %w", call.Err)
	}
	if call := manager.Call(agentManager+".RequestDefaultAgent", 0, dbus.ObjectPath(agentPath)); call.Err != nil {
		return fmt.Errorf("request default agent: %w", call.Err)
	}
	return nil
}

// Close disconnects from the system bus.
func (s *Service) Close() error {
	return s.conn.Close()
}
