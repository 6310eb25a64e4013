package tray

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/livecollection"
)

// Host implements the Host role of spec.md §4.6: it registers itself
// with whichever process owns org.kde.StatusNotifierWatcher (in-process
// or not), enumerates the items already registered there, and
// maintains a LiveCollection of live tray Items reconciled against the
// Watcher's StatusNotifierItemRegistered/Unregistered signals.
type Host struct {
	conn   *dbus.Conn
	logger *slog.Logger

	addMu sync.Mutex // serializes addItem's check-then-act against Items

	Items *livecollection.LiveCollection[string, *Item]
}

// NewHost wires a Host onto an already-connected session bus
// connection (shared with a Watcher in the same process when one was
// elected, or a bare connection when this instance lost the election).
func NewHost(conn *dbus.Conn, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{conn: conn, logger: logger, Items: livecollection.New[string, *Item]()}
}

// Start registers as a host, fetches the current item list, and
// subscribes to registration changes until ctx is cancelled.
func (h *Host) Start(ctx context.Context) error {
	watcherObj := h.conn.Object(watcherBusName, dbus.ObjectPath(watcherPath))
	hostName := fmt.Sprintf("org.kde.StatusNotifierHost-%d", os.Getpid())
	if call := watcherObj.Call(watcherIface+".RegisterStatusNotifierHost", 0, hostName); call.Err != nil {
		return fmt.Errorf("register as host: %w", call.Err)
	}

	var services []string
	if v, err := watcherObj.GetProperty(watcherIface + ".RegisteredStatusNotifierItems"); err == nil {
		services, _ = v.Value().([]string)
	} else {
		h.logger.Debug("fetch RegisteredStatusNotifierItems failed", "error", err)
	}
	for _, svc := range services {
		h.addItem(ctx, svc)
	}

	if err := h.conn.AddMatchSignal(dbus.WithMatchInterface(watcherIface)); err != nil {
		return fmt.Errorf("subscribe watcher signals: %w", err)
	}
	sigCh := make(chan *dbus.Signal, 16)
	h.conn.Signal(sigCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				h.handleWatcherSignal(ctx, sig)
			}
		}
	}()
	return nil
}

func (h *Host) handleWatcherSignal(ctx context.Context, sig *dbus.Signal) {
	switch signalMember(sig.Name) {
	case "StatusNotifierItemRegistered":
		if len(sig.Body) == 1 {
			if svc, ok := sig.Body[0].(string); ok {
				h.addItem(ctx, svc)
			}
		}
	case "StatusNotifierItemUnregistered":
		if len(sig.Body) == 1 {
			if svc, ok := sig.Body[0].(string); ok {
				h.Items.Apply(livecollection.Change[string, *Item]{
					Kind: livecollection.Removed, Key: svc,
				}, nil)
			}
		}
	}
}

func (h *Host) addItem(ctx context.Context, service string) {
	// Two StatusNotifierItemRegistered signals for the same service can
	// arrive concurrently; hold addMu across the whole check-then-act
	// so only one of them fetches, starts monitoring, and inserts —
	// otherwise the loser's Item.Close would never be reachable from
	// Items and its D-Bus subscription would leak.
	h.addMu.Lock()
	defer h.addMu.Unlock()

	if _, ok := h.Items.Get(service); ok {
		return
	}
	item, err := newItemSnapshot(h.conn, service, h.logger)
	if err != nil {
		h.logger.Warn("tray item fetch failed", "service", service, "error", err)
		return
	}
	item.StartMonitoring(ctx)
	h.Items.Apply(livecollection.Change[string, *Item]{
		Kind: livecollection.Added, Key: service, Value: item,
	}, item.Close)
}
