package tray

import (
	"context"
	"fmt"
	"log/slog"
)

// Service is the top-level tray orchestrator: it owns the Watcher
// election and, regardless of whether this instance won that
// election, a Host that displays whatever items are registered with
// whichever Watcher ended up owning the bus name (spec.md §4.6).
type Service struct {
	Watcher *Watcher
	Host    *Host

	logger *slog.Logger
}

// New connects to the session bus and prepares the Watcher and Host.
func New(logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := NewWatcher(logger)
	if err != nil {
		return nil, err
	}
	return &Service{Watcher: w, Host: NewHost(w.conn, logger), logger: logger}, nil
}

// Start elects the watcher role per mode, then always starts the
// host. ModeHost additionally requires a Watcher to already be present
// on the bus (spec.md §4.6's "Host: refuse to start if no Watcher
// exists").
func (s *Service) Start(ctx context.Context, mode Mode) error {
	if mode == ModeHost && !s.watcherPresent() {
		return fmt.Errorf("host mode requested but no StatusNotifierWatcher is present on the session bus")
	}
	if err := s.Watcher.Start(ctx, mode); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := s.Host.Start(ctx); err != nil {
		return fmt.Errorf("start host: %w", err)
	}
	return nil
}

func (s *Service) watcherPresent() bool {
	var owned bool
	_ = s.Watcher.conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, watcherBusName).Store(&owned)
	return owned
}

// Close disconnects the shared session bus connection.
func (s *Service) Close() error {
	return s.Watcher.Close()
}
