// Package hyprland is the service orchestrator for the Hyprland
// compositor backend: it owns the event-socket connection, dispatches
// incoming events through internal/hyprland/ipc, and reconciles them
// into live collections of workspaces, windows, and monitors plus a
// Property tracking the active workspace/window. Grounded on spec.md
// §4.9's orchestrator pattern (single task multiplexing cancellation +
// event receive, updating typed entity maps, publishing to
// Properties) and on
// other_examples/4026c4bf_davidolrik-overseer__.../state-orchestrator.go's
// "subscribe to my own event stream to maintain derived state" shape.
package hyprland

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/wayle-project/wayle/internal/eventbus"
	"github.com/wayle-project/wayle/internal/hyprland/ipc"
	"github.com/wayle-project/wayle/internal/livecollection"
	"github.com/wayle-project/wayle/internal/reactive"
)

// Service is the live Hyprland backend: a reconnecting event-stream
// reader plus reconciled live collections and derived Properties.
type Service struct {
	logger *slog.Logger
	events *eventbus.Bus[ipc.Event] // internal bus, consumed by reconcile
	public *eventbus.Bus[ipc.Event] // public events, re-exported to the front end

	Workspaces *livecollection.LiveCollection[int, Workspace]
	Windows    *livecollection.LiveCollection[string, Window]
	Monitors   *livecollection.LiveCollection[string, Monitor]

	ActiveWorkspace *reactive.Property[string]
	ActiveWindow    *reactive.Property[string]
}

// New creates a Hyprland service. Start must be called to begin
// consuming the compositor's event stream.
func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:          logger,
		events:          eventbus.New[ipc.Event](),
		public:          eventbus.New[ipc.Event](),
		Workspaces:      livecollection.New[int, Workspace](),
		Windows:         livecollection.New[string, Window](),
		Monitors:        livecollection.New[string, Monitor](),
		ActiveWorkspace: reactive.New(""),
		ActiveWindow:    reactive.New(""),
	}
}

// PublicEvents exposes the raw dispatched events to the front end.
func (s *Service) PublicEvents() *eventbus.Bus[ipc.Event] {
	return s.public
}

// Start dials .socket2.sock and reconciles events until ctx is
// cancelled, reconnecting with a fixed backoff if the socket drops
// (Hyprland itself restarting, or a brief race at Wayle startup before
// the compositor's sockets exist).
func (s *Service) Start(ctx context.Context) {
	internalCh := s.events.Subscribe(256)
	go s.reconcile(ctx, internalCh)

	dispatcher := ipc.NewDispatcher(s.events, s.public, s.logger)

	if requestSock, _, err := ipc.SocketPaths(); err != nil {
		s.logger.Warn("hyprland sockets unavailable", "error", err)
	} else {
		s.seedState(ctx, requestSock)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			_, eventSock, err := ipc.SocketPaths()
			if err != nil {
				s.logger.Warn("hyprland sockets unavailable", "error", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			if err := ipc.EventStream(ctx, eventSock, dispatcher); err != nil {
				s.logger.Warn("hyprland event stream disconnected", "error", err)
			}
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}()
}

// seedState queries .socket.sock's JSON commands for the compositor's
// current workspaces/windows/monitors so the LiveCollections are
// already populated at startup instead of staying empty until the
// next event arrives on .socket2.sock.
func (s *Service) seedState(ctx context.Context, requestSock string) {
	var workspaces []struct {
		ID      int    `json:"id"`
		Name    string `json:"name"`
		Monitor string `json:"monitor"`
	}
	if out, err := ipc.Query(ctx, requestSock, "j/workspaces"); err != nil {
		s.logger.Debug("hyprland query workspaces failed", "error", err)
	} else if err := json.Unmarshal(out, &workspaces); err != nil {
		s.logger.Debug("hyprland parse workspaces failed", "error", err)
	} else {
		for _, w := range workspaces {
			s.Workspaces.Apply(livecollection.Change[int, Workspace]{
				Kind:  livecollection.Added,
				Key:   w.ID,
				Value: Workspace{ID: w.ID, Name: w.Name, Monitor: w.Monitor},
			}, nil)
		}
	}

	var clients []struct {
		Address  string `json:"address"`
		Title    string `json:"title"`
		Class    string `json:"class"`
		Floating bool   `json:"floating"`
	}
	if out, err := ipc.Query(ctx, requestSock, "j/clients"); err != nil {
		s.logger.Debug("hyprland query clients failed", "error", err)
	} else if err := json.Unmarshal(out, &clients); err != nil {
		s.logger.Debug("hyprland parse clients failed", "error", err)
	} else {
		for _, c := range clients {
			s.Windows.Apply(livecollection.Change[string, Window]{
				Kind:  livecollection.Added,
				Key:   c.Address,
				Value: Window{Address: c.Address, Title: c.Title, Class: c.Class, Floating: c.Floating},
			}, nil)
		}
	}

	var monitors []struct {
		Name    string `json:"name"`
		Focused bool   `json:"focused"`
	}
	if out, err := ipc.Query(ctx, requestSock, "j/monitors"); err != nil {
		s.logger.Debug("hyprland query monitors failed", "error", err)
	} else if err := json.Unmarshal(out, &monitors); err != nil {
		s.logger.Debug("hyprland parse monitors failed", "error", err)
	} else {
		for _, m := range monitors {
			s.Monitors.Apply(livecollection.Change[string, Monitor]{
				Kind:  livecollection.Added,
				Key:   m.Name,
				Value: Monitor{Name: m.Name, Active: m.Focused},
			}, nil)
		}
	}
}

func (s *Service) reconcile(ctx context.Context, ch <-chan ipc.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			s.apply(ev)
		}
	}
}

func (s *Service) apply(ev ipc.Event) {
	switch ev.Kind {
	case "workspace":
		s.ActiveWorkspace.Set(ev.Fields["field0"])

	case "workspacev2":
		id, _ := strconv.Atoi(ev.Fields["field0"])
		name := ev.Fields["field1"]
		s.ActiveWorkspace.Set(name)
		s.Workspaces.Apply(livecollection.Change[int, Workspace]{
			Kind:  livecollection.Added,
			Key:   id,
			Value: Workspace{ID: id, Name: name},
		}, nil)

	case "destroyworkspacev2":
		id, _ := strconv.Atoi(ev.Fields["field0"])
		s.Workspaces.Apply(livecollection.Change[int, Workspace]{
			Kind: livecollection.Removed,
			Key:  id,
		}, nil)

	case "activewindowv2":
		addr := ev.Fields["field0"]
		s.ActiveWindow.Set(addr)

	case "openwindow":
		addr := ev.Fields["field0"]
		s.Windows.Apply(livecollection.Change[string, Window]{
			Kind:  livecollection.Added,
			Key:   addr,
			Value: Window{Address: addr, Class: ev.Fields["field2"], Title: ev.Fields["field3"]},
		}, nil)

	case "closewindow":
		addr := ev.Fields["field0"]
		s.Windows.Apply(livecollection.Change[string, Window]{
			Kind: livecollection.Removed,
			Key:  addr,
		}, nil)

	case "moveworkspacev2":
		id, _ := strconv.Atoi(ev.Fields["field0"])
		name := ev.Fields["field1"]
		monitor := ev.Fields["field2"]
		s.Workspaces.Apply(livecollection.Change[int, Workspace]{
			Kind:  livecollection.Added,
			Key:   id,
			Value: Workspace{ID: id, Name: name, Monitor: monitor},
		}, nil)

	case "changefloatingmode":
		addr := ev.Fields["field0"]
		win, ok := s.Windows.Get(addr)
		if !ok {
			return
		}
		win.Floating = ev.Fields["field1"] == "1"
		s.Windows.Apply(livecollection.Change[string, Window]{
			Kind: livecollection.Added, Key: addr, Value: win,
		}, nil)

	case "windowtitlev2":
		addr := ev.Fields["field0"]
		win, ok := s.Windows.Get(addr)
		if !ok {
			return
		}
		win.Title = ev.Fields["field1"]
		s.Windows.Apply(livecollection.Change[string, Window]{
			Kind: livecollection.Added, Key: addr, Value: win,
		}, nil)

	case "monitoraddedv2":
		name := ev.Fields["field1"]
		s.Monitors.Apply(livecollection.Change[string, Monitor]{
			Kind:  livecollection.Added,
			Key:   name,
			Value: Monitor{Name: name, Active: true},
		}, nil)

	case "monitorremovedv2":
		name := ev.Fields["field0"]
		s.Monitors.Apply(livecollection.Change[string, Monitor]{
			Kind: livecollection.Removed,
			Key:  name,
		}, nil)
	}
}
