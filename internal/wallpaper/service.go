// Package wallpaper wraps swww, exposing per-monitor wallpaper state
// as reactive Properties and driving transitions via subprocess calls.
// Grounded on spec.md §6 (swww) and
// original_source/crates/wayle-wallpaper/src/service.rs.
package wallpaper

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/wayle-project/wayle/internal/livecollection"
	"github.com/wayle-project/wayle/internal/reactive"
)

// Fit mirrors swww's --resize modes (spec.md §6).
type Fit string

const (
	FitFit     Fit = "fit"
	FitFill    Fit = "fill"
	FitCrop    Fit = "crop"
	FitStretch Fit = "stretch"
	FitNo      Fit = "no"
)

// Options configures a single SetWallpaper invocation.
type Options struct {
	Fit            Fit
	TransitionType string
}

// MonitorWallpaper is the live wallpaper state for one monitor.
type MonitorWallpaper struct {
	Monitor string
	Path    string
	Fit     Fit
}

// Service orchestrates swww: a live per-monitor collection plus a
// Transitioning Property toggled for the duration of a swww img call.
type Service struct {
	logger        *slog.Logger
	swwwPath      string
	Monitors      *livecollection.LiveCollection[string, MonitorWallpaper]
	Transitioning *reactive.Property[bool]
}

// New creates a Service. swwwBin overrides the binary name/path used
// for subprocess calls (defaults to "swww").
func New(swwwBin string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if swwwBin == "" {
		swwwBin = "swww"
	}
	return &Service{
		logger:        logger,
		swwwPath:      swwwBin,
		Monitors:      livecollection.New[string, MonitorWallpaper](),
		Transitioning: reactive.New(false),
	}
}

// SetWallpaper runs `swww img <path> --outputs <mon> --resize <fit>
// --transition-type <t>`, with a 30 second hard timeout matching
// spec.md §5's subprocess timeout policy. A zero Options uses swww's
// own defaults for fit/transition.
func (s *Service) SetWallpaper(ctx context.Context, monitor, path string, opts Options) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s.Transitioning.Set(true)
	defer s.Transitioning.Set(false)

	args := []string{"img", path}
	if monitor != "" {
		args = append(args, "--outputs", monitor)
	}
	if opts.Fit != "" {
		args = append(args, "--resize", string(opts.Fit))
	}
	if opts.TransitionType != "" {
		args = append(args, "--transition-type", opts.TransitionType)
	}
	cmd := exec.CommandContext(ctx, s.swwwPath, args...)
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("swww img failed: %w (output: %s)", err, out.String())
	}

	s.Monitors.Apply(livecollection.Change[string, MonitorWallpaper]{
		Kind:  livecollection.Added,
		Key:   monitor,
		Value: MonitorWallpaper{Monitor: monitor, Path: path, Fit: opts.Fit},
	}, nil)
	return nil
}

// Query runs `swww query`, seeds the Monitors collection from its
// per-monitor status output, and returns that raw output. Used at
// startup to populate Monitors before any SetWallpaper call has
// happened this session.
func (s *Service) Query(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, s.swwwPath, "query")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("swww query failed: %w", err)
	}
	for _, mw := range parseQueryOutput(string(out)) {
		s.Monitors.Apply(livecollection.Change[string, MonitorWallpaper]{
			Kind: livecollection.Added, Key: mw.Monitor, Value: mw,
		}, nil)
	}
	return string(out), nil
}

// parseQueryOutput parses swww query's line-per-monitor status text,
// e.g. "eDP-1: 1920x1080, scale: 1, currently displaying: image: /path/to/wall.jpg",
// into one MonitorWallpaper per monitor. A monitor with no image
// currently set (swww reports "image: <none>" or omits the clause
// entirely) is skipped since there is no Path to report.
func parseQueryOutput(raw string) []MonitorWallpaper {
	var result []MonitorWallpaper
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		monitor, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		monitor = strings.TrimSpace(monitor)
		idx := strings.LastIndex(rest, "image:")
		if idx == -1 {
			continue
		}
		path := strings.TrimSpace(rest[idx+len("image:"):])
		if path == "" || path == "<none>" {
			continue
		}
		result = append(result, MonitorWallpaper{Monitor: monitor, Path: path})
	}
	return result
}
