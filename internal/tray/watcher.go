// Package tray implements the StatusNotifierItem Watcher and Host
// (spec.md §4.6), racing other potential watchers/hosts on the
// session bus using D-Bus's "do not queue" name-request semantics so
// the Auto-mode election never blocks.
package tray

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/wayle-project/wayle/internal/livecollection"
)

const (
	watcherBusName = "org.kde.StatusNotifierWatcher"
	watcherPath    = "/StatusNotifierWatcher"
	watcherIface   = "org.kde.StatusNotifierWatcher"
	itemIface      = "org.kde.StatusNotifierItem"
)

// Mode selects whether Wayle acts as the watcher, the host, or probes
// the bus to decide automatically (spec.md §4.6).
type Mode int

const (
	ModeAuto Mode = iota
	ModeWatcher
	ModeHost
)

// TrayItem is a live snapshot of a registered StatusNotifierItem.
type TrayItem struct {
	ServiceName string
	ObjectPath  dbus.ObjectPath
	IconName    string
	Title       string
	Status      string
}

// Watcher implements org.kde.StatusNotifierWatcher: it owns the
// RegisteredStatusNotifierItems list other hosts query, and is
// exported only by whichever Wayle instance wins the name-request
// race.
type Watcher struct {
	conn   *dbus.Conn
	logger *slog.Logger

	Items *livecollection.LiveCollection[string, TrayItem]

	IsWatcher bool

	mu    sync.Mutex
	hosts map[string]bool

	props *prop.Properties
}

// NewWatcher connects to the session bus.
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Watcher{
		conn:   conn,
		logger: logger,
		Items:  livecollection.New[string, TrayItem](),
		hosts:  make(map[string]bool),
	}, nil
}

// Start elects for the watcher role (if mode permits) and always
// elects for a uniquely-named host role. Resolves spec.md's preserved
// Auto-mode election-race open question: RequestName is called with
// NameFlagDoNotQueue so a losing instance observes
// RequestNameReplyExists synchronously rather than queuing behind the
// winner, and falls back to being a plain host.
func (w *Watcher) Start(ctx context.Context, mode Mode) error {
	if mode == ModeWatcher || mode == ModeAuto {
		reply, err := w.conn.RequestName(watcherBusName, dbus.NameFlagDoNotQueue)
		if err != nil {
			return fmt.Errorf("request watcher name: %w", err)
		}
		if reply == dbus.RequestNameReplyPrimaryOwner {
			w.IsWatcher = true
			if err := w.conn.Export(w, watcherPath, watcherIface); err != nil {
				return fmt.Errorf("export watcher: %w", err)
			}
			props, err := prop.Export(w.conn, watcherPath, map[string]map[string]*prop.Prop{
				watcherIface: {
					"RegisteredStatusNotifierItems": {
						Value: w.RegisteredStatusNotifierItems(), Writable: false, Emit: prop.EmitTrue,
					},
					"IsStatusNotifierHostRegistered": {
						Value: w.IsStatusNotifierHostRegistered(), Writable: false, Emit: prop.EmitTrue,
					},
					"ProtocolVersion": {Value: int32(0), Writable: false, Emit: prop.EmitFalse},
				},
			})
			if err != nil {
				return fmt.Errorf("export watcher properties: %w", err)
			}
			w.props = props
			w.logger.Info("elected as StatusNotifierWatcher")
		} else if mode == ModeWatcher {
			return fmt.Errorf("watcher role requested but name already owned (reply=%v)", reply)
		} else {
			w.logger.Debug("another instance already owns StatusNotifierWatcher; running as host only")
		}
	}

	hostName := fmt.Sprintf("org.kde.StatusNotifierHost-%d", os.Getpid())
	if _, err := w.conn.RequestName(hostName, dbus.NameFlagDoNotQueue); err != nil {
		return fmt.Errorf("request host name: %w", err)
	}

	if err := w.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return fmt.Errorf("subscribe NameOwnerChanged: %w", err)
	}
	sigCh := make(chan *dbus.Signal, 16)
	w.conn.Signal(sigCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				w.handleNameOwnerChanged(sig)
			}
		}
	}()
	return nil
}

func (w *Watcher) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}
	name, _ := sig.Body[0].(string)
	newOwner, _ := sig.Body[2].(string)
	if newOwner != "" {
		return
	}
	// Owner disappeared: drop any tray items that belonged to it and
	// tell consumers it is gone.
	if _, ok := w.Items.Get(name); ok {
		w.Items.Apply(livecollection.Change[string, TrayItem]{
			Kind: livecollection.Removed, Key: name,
		}, nil)
		w.emitSignal("StatusNotifierItemUnregistered", name)
		w.refreshItemsProperty()
	}
	w.mu.Lock()
	if w.hosts[name] {
		delete(w.hosts, name)
	}
	w.mu.Unlock()
}

// canonicalService extracts the bus-name portion of a
// RegisterStatusNotifierItem argument, which callers may supply either
// as a bare bus name (item exported at the fixed path
// /StatusNotifierItem) or as "bus-name/object-path", per spec.md §4.6.
func canonicalService(service string) (busName string, objectPath dbus.ObjectPath) {
	if i := strings.Index(service, "/"); i >= 0 {
		return service[:i], dbus.ObjectPath(service[i:])
	}
	return service, "/StatusNotifierItem"
}

// RegisterStatusNotifierItem implements
// org.kde.StatusNotifierWatcher.RegisterStatusNotifierItem. BlueZ-style
// callers pass either a full "service/path" string or a bare service
// name when the item is exported at the fixed path
// /StatusNotifierItem.
func (w *Watcher) RegisterStatusNotifierItem(service string, sender dbus.Sender) *dbus.Error {
	busName, objPath := canonicalService(service)
	if busName == "" {
		busName = string(sender)
	}
	item := TrayItem{ServiceName: busName, ObjectPath: objPath}
	_, existed := w.Items.Get(busName)
	w.Items.Apply(livecollection.Change[string, TrayItem]{
		Kind: livecollection.Added, Key: busName, Value: item,
	}, nil)
	w.logger.Debug("tray item registered", "service", busName, "path", objPath, "sender", sender)
	if !existed {
		w.emitSignal("StatusNotifierItemRegistered", busName)
	}
	w.refreshItemsProperty()
	return nil
}

// RegisterStatusNotifierHost implements
// org.kde.StatusNotifierWatcher.RegisterStatusNotifierHost.
func (w *Watcher) RegisterStatusNotifierHost(service string, sender dbus.Sender) *dbus.Error {
	name := service
	if name == "" {
		name = string(sender)
	}
	w.mu.Lock()
	_, existed := w.hosts[name]
	w.hosts[name] = true
	w.mu.Unlock()
	w.logger.Debug("tray host registered", "service", name, "sender", sender)
	if !existed {
		w.emitSignal("StatusNotifierHostRegistered")
	}
	if w.props != nil {
		w.props.SetMust(watcherIface, "IsStatusNotifierHostRegistered", true)
	}
	return nil
}

// refreshItemsProperty pushes the current RegisteredStatusNotifierItems
// snapshot into the exported org.freedesktop.DBus.Properties value,
// emitting PropertiesChanged to subscribed hosts.
func (w *Watcher) refreshItemsProperty() {
	if w.props == nil {
		return
	}
	w.props.SetMust(watcherIface, "RegisteredStatusNotifierItems", w.RegisteredStatusNotifierItems())
}

// RegisteredStatusNotifierItems implements the watcher's read-only
// property of the same name.
func (w *Watcher) RegisteredStatusNotifierItems() []string {
	items := w.Items.Snapshot()
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.ServiceName
	}
	return names
}

// IsStatusNotifierHostRegistered implements the watcher's read-only
// property of the same name: true once at least one host has
// registered.
func (w *Watcher) IsStatusNotifierHostRegistered() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hosts) > 0
}

// emitSignal broadcasts a StatusNotifierWatcher signal on the session
// bus; send failures (no subscribers) are silently ignored per
// spec.md §7.
func (w *Watcher) emitSignal(name string, args ...any) {
	if !w.IsWatcher {
		return
	}
	if err := w.conn.Emit(watcherPath, watcherIface+"."+name, args...); err != nil {
		w.logger.Debug("emit signal failed", "signal", name, "error", err)
	}
}

// Close disconnects from the session bus.
func (w *Watcher) Close() error {
	return w.conn.Close()
}
