// Package powerprofiles is the UPower.PowerProfiles D-Bus backend
// facade: the active profile plus the list of profiles the system
// supports, exposed as reactive.Property values the front end can
// observe, plus SetProfile to request a change. Grounded on spec.md §6
// and original_source/crates/wayle-power-profiles/src/types/profile.rs.
package powerprofiles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/wayle-project/wayle/internal/dbusutil"
	"github.com/wayle-project/wayle/internal/reactive"
)

const (
	busName   = "org.freedesktop.UPower.PowerProfiles"
	objPath   = "/org/freedesktop/UPower/PowerProfiles"
	iface     = "net.hadess.PowerProfiles"
)

// Profile mirrors the three power profiles UPower's daemon supports.
type Profile string

const (
	ProfilePowerSaver    Profile = "power-saver"
	ProfileBalanced      Profile = "balanced"
	ProfilePerformance   Profile = "performance"
	ProfileUnknown       Profile = ""
)

// Service is the PowerProfiles orchestrator.
type Service struct {
	conn   *dbus.Conn
	logger *slog.Logger

	ActiveProfile     *reactive.Property[Profile]
	AvailableProfiles *reactive.Property[[]Profile]
}

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
		conn:              conn,
		logger:            logger,
		ActiveProfile:     reactive.New(ProfileUnknown),
		AvailableProfiles: reactive.New[[]Profile](nil),
	}, nil
}

// Start reads the initial profile state and subscribes to
// PropertiesChanged for reconciliation.
func (s *Service) Start(ctx context.Context) error {
	obj := s.conn.Object(busName, dbus.ObjectPath(objPath))
	active := dbusutil.PropertyOrDefault(obj, iface+".ActiveProfile", "", s.logger)
	s.ActiveProfile.Set(Profile(active))
	s.AvailableProfiles.Set(profilesFromVariant(dbusutil.PropertyOrDefault(obj, iface+".Profiles", []map[string]dbus.Variant(nil), s.logger)))

	if err := s.conn.AddMatchSignal(dbusutil.SignalMatch(
		"org.freedesktop.DBus.Properties", "PropertiesChanged", dbus.ObjectPath(objPath))...); err != nil {
		return fmt.Errorf("subscribe PropertiesChanged: %w", err)
	}
	sigCh := make(chan *dbus.Signal, 16)
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
				if len(sig.Body) < 2 {
					continue
				}
				changed, ok := sig.Body[1].(map[string]dbus.Variant)
				if !ok {
					continue
				}
				if v, ok := changed["ActiveProfile"]; ok {
					if p, ok := v.Value().(string); ok {
						s.ActiveProfile.Set(Profile(p))
					}
				}
				if v, ok := changed["Profiles"]; ok {
					if ps, ok := v.Value().([]map[string]dbus.Variant); ok {
						s.AvailableProfiles.Set(profilesFromVariant(ps))
					}
				}
			}
		}
	}()
	return nil
}

// profilesFromVariant extracts the "Profile" key out of each entry of
// net.hadess.PowerProfiles' Profiles property, an array of
// a{sv} dicts (Profile/Driver keys) describing every profile the
// running daemon supports on this hardware.
func profilesFromVariant(entries []map[string]dbus.Variant) []Profile {
	if entries == nil {
		return nil
	}
	profiles := make([]Profile, 0, len(entries))
	for _, e := range entries {
		if v, ok := e["Profile"]; ok {
			if s, ok := v.Value().(string); ok {
				profiles = append(profiles, Profile(s))
			}
		}
	}
	return profiles
}

// SetProfile requests a profile change. Operation failures propagate
// to the caller per spec.md §7's OperationFailed taxonomy entry.
func (s *Service) SetProfile(ctx context.Context, p Profile) error {
	obj := s.conn.Object(busName, dbus.ObjectPath(objPath))
	call := obj.Call("org.freedesktop.DBus.Properties.Set", 0, iface, "ActiveProfile", dbus.MakeVariant(string(p)))
	if call.Err != nil {
		return fmt.Errorf("set power profile %q: %w", p, call.Err)
	}
	return nil
}

// Close disconnects from the system bus.
func (s *Service) Close() error {
	return s.conn.Close()
}
