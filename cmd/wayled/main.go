// Command wayled is the Wayle backplane daemon: it loads configuration,
// starts every backend service, and serves their reactive state to the
// front-end shell until terminated. Wiring style (config -> backends ->
// graceful-shutdown-goroutine-with-signal-channel) follows
// cmd/thane/main.go's runServe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayle-project/wayle/internal/audio"
	"github.com/wayle-project/wayle/internal/battery"
	"github.com/wayle-project/wayle/internal/bluetooth"
	"github.com/wayle-project/wayle/internal/cava"
	"github.com/wayle-project/wayle/internal/hyprland"
	"github.com/wayle-project/wayle/internal/modules/custom"
	"github.com/wayle-project/wayle/internal/network"
	"github.com/wayle-project/wayle/internal/powerprofiles"
	"github.com/wayle-project/wayle/internal/runtimestate"
	"github.com/wayle-project/wayle/internal/tray"
	"github.com/wayle-project/wayle/internal/wallpaper"
	"github.com/wayle-project/wayle/internal/wconfig"
	"github.com/wayle-project/wayle/internal/weather"
)

func main() {
	configPath := flag.String("config", "", "path to config.toml")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)

	switch flag.Arg(0) {
	case "", "serve":
		if err := runServe(logger, *configPath); err != nil {
			logger.Error("wayled exited with error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println("wayled (development build)")
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", flag.Arg(0))
		os.Exit(2)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func runServe(logger *slog.Logger, configPath string) error {
	path, err := wconfig.FindConfig(configPath)
	var raw wconfig.Raw
	configFound := err == nil
	if !configFound {
		logger.Warn("no config file found, running on compiled defaults", "error", err)
		raw = wconfig.Raw{}
	} else {
		logger.Info("loaded config", "path", path)
		raw, err = wconfig.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	statePath, err := runtimestate.Path()
	if err != nil {
		return fmt.Errorf("resolve runtime state path: %w", err)
	}
	state := runtimestate.Load(statePath)
	logger.Debug("loaded runtime state", "active_media_player", state.ActiveMediaPlayer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hypr := hyprland.New(logger)
	hypr.Start(ctx)

	var startErrs []error
	var closers []closer

	netSvc, err := network.New(logger)
	if err != nil {
		startErrs = append(startErrs, fmt.Errorf("network: %w", err))
	} else {
		closers = append(closers, netSvc)
		if err := netSvc.Start(ctx); err != nil {
			startErrs = append(startErrs, fmt.Errorf("network start: %w", err))
		}
	}

	btSvc, err := bluetooth.New(logger)
	if err != nil {
		startErrs = append(startErrs, fmt.Errorf("bluetooth: %w", err))
	} else {
		closers = append(closers, btSvc)
		if err := btSvc.Start(ctx); err != nil {
			startErrs = append(startErrs, fmt.Errorf("bluetooth start: %w", err))
		}
		// pairingRequests is buffered and not exposed outside this
		// function: a goroutine rejects every request until ctx is
		// done, so a RequestPinCode/RequestPasskey/... call from bluez
		// is never left blocked on an unread channel.
		pairingRequests := make(chan bluetooth.PairingRequest, 8)
		agent := bluetooth.NewPairingAgent(pairingRequests, logger)
		if err := btSvc.RegisterAgent(agent); err != nil {
			startErrs = append(startErrs, fmt.Errorf("bluetooth agent: %w", err))
		} else {
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case req := <-pairingRequests:
						logger.Warn("bluetooth pairing request auto-rejected (no front end attached)",
							"device", req.Device, "kind", req.Kind)
						req.Reply <- bluetooth.PairingReply{Accept: false}
					}
				}
			}()
		}
	}

	battSvc, err := battery.New(logger)
	if err != nil {
		startErrs = append(startErrs, fmt.Errorf("battery: %w", err))
	} else {
		closers = append(closers, battSvc)
		if err := battSvc.Start(ctx); err != nil {
			startErrs = append(startErrs, fmt.Errorf("battery start: %w", err))
		}
	}

	ppSvc, err := powerprofiles.New(logger)
	if err != nil {
		startErrs = append(startErrs, fmt.Errorf("powerprofiles: %w", err))
	} else {
		closers = append(closers, ppSvc)
		if err := ppSvc.Start(ctx); err != nil {
			startErrs = append(startErrs, fmt.Errorf("powerprofiles start: %w", err))
		}
	}

	// The audio backend requires a concrete PulseAudio adapter
	// (internal/audio.Backend) that is out of scope for this pass; see
	// DESIGN.md. audio.New has no caller; internal/audio's tests cover
	// only its conversion helpers.
	_ = audio.New

	traySvc, err := tray.New(logger)
	if err != nil {
		startErrs = append(startErrs, fmt.Errorf("tray: %w", err))
	} else {
		closers = append(closers, traySvc)
		if err := traySvc.Start(ctx, tray.ModeAuto); err != nil {
			startErrs = append(startErrs, fmt.Errorf("tray start: %w", err))
		}
	}

	wallSvc := wallpaper.New("", logger)
	if _, err := wallSvc.Query(ctx); err != nil {
		logger.Debug("swww query failed (swww may not be running yet)", "error", err)
	}

	cavaSvc := cava.New(cava.Config{Bars: 20, LowCutoff: 50, HighCutoff: 10000}, logger)
	cavaSvc.Start(ctx)

	weatherLocation := "London"
	if v, ok := raw.Lookup("weather.location"); ok {
		if s, ok := v.(string); ok {
			weatherLocation = s
		}
	}
	weatherSvc := weather.New(weather.NewOpenMeteoProvider(nil), weatherLocation, 30*time.Minute, logger)
	weatherSvc.Start(ctx)

	// Runtime overrides persist alongside config.toml in runtime.toml
	// (spec.md §6) and take effect on top of the config layer without
	// disturbing it, so a value set at runtime survives process
	// restarts but a config.toml edit still lands once the override is
	// cleared.
	runtimePath := wconfig.RuntimeConfigPath(path)
	runtimeRaw, err := wconfig.Load(runtimePath)
	if err != nil {
		logger.Warn("runtime overrides failed to load", "path", runtimePath, "error", err)
		runtimeRaw = wconfig.Raw{}
	}
	if v, ok := runtimeRaw.Lookup("weather.location"); ok {
		if s, ok := v.(string); ok {
			weatherSvc.Location.Set(s)
		}
	}

	customModules := make(map[string]*custom.Module)
	for id, cfg := range custom.LoadDefinitions(raw.Lookup, logger) {
		mod := custom.New(cfg, logger)
		mod.Start(ctx)
		customModules[id] = mod
		logger.Debug("started custom module", "id", id)
	}

	stopCh := make(chan struct{})
	if configFound {
		if cfgWatcher, werr := wconfig.NewWatcher(path, func() {
			newRaw, rerr := wconfig.Load(path)
			if rerr != nil {
				logger.Warn("config reload failed", "error", rerr)
				return
			}
			raw = newRaw
			// Two-phase reload per spec.md §4.2/§8: stage the removal
			// first so a key dropped from the reloaded file doesn't
			// keep its stale config-layer value, re-apply whatever
			// value is present, then commit once so the effective
			// value recomputes exactly once for this reload pass.
			weatherSvc.Location.ResetConfigLayer()
			if v, ok := raw.Lookup("weather.location"); ok {
				if s, ok := v.(string); ok {
					weatherSvc.Location.SetConfig(s)
				}
			}
			weatherSvc.Location.CommitConfigReload()
			for id, cfg := range custom.LoadDefinitions(raw.Lookup, logger) {
				if mod, ok := customModules[id]; ok {
					mod.UpdateConfig(ctx, cfg)
				} else {
					mod := custom.New(cfg, logger)
					mod.Start(ctx)
					customModules[id] = mod
				}
			}
			logger.Info("config reloaded", "path", path)
		}, logger); werr != nil {
			logger.Warn("config watcher failed to start", "error", werr)
		} else {
			cfgWatcher.Start(stopCh)
			closers = append(closers, cfgWatcher)
		}
	}

	for _, e := range startErrs {
		logger.Error("backend failed to start", "error", e)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		if err := runtimestate.Save(statePath, state); err != nil {
			logger.Warn("failed to save runtime state", "error", err)
		}
		runtimeOverrides := map[string]any{}
		if v, ok := weatherSvc.Location.ExtractRuntimeValues(); ok {
			runtimeOverrides["weather.location"] = v
		}
		if err := wconfig.SaveRuntime(runtimePath, runtimeOverrides); err != nil {
			logger.Warn("failed to save runtime overrides", "path", runtimePath, "error", err)
		}
		cancel()
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("backend shutdown error", "error", err)
			}
		}
	}()

	<-ctx.Done()
	return nil
}

// closer is satisfied by every backend service's Close method; on
// shutdown each successfully constructed service is drained through
// this interface to release its bus connection.
type closer interface {
	Close() error
}
