// Package cava is a supplemental subsystem recovered from
// original_source/crates/wayle-cava/src/service.rs: it runs cava in
// raw-output mode and republishes each output frame as normalized bar
// levels. Implemented in the same subprocess-line-reader idiom as
// internal/modules/custom, since both are "long-running subprocess,
// one update per stdout line" adapters.
package cava

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wayle-project/wayle/internal/reactive"
)

// Config is the validated cava configuration spec.md §7 requires
// InvalidParameter checks for.
type Config struct {
	Bars       int
	LowCutoff  int
	HighCutoff int
}

// Validate enforces bars<=256 and high_cutoff>low_cutoff, returning an
// InvalidParameter-shaped error on violation.
func (c Config) Validate() error {
	if c.Bars <= 0 || c.Bars > 256 {
		return fmt.Errorf("invalid parameter: bars %d out of range (1-256)", c.Bars)
	}
	if c.HighCutoff <= c.LowCutoff {
		return fmt.Errorf("invalid parameter: high_cutoff %d must exceed low_cutoff %d", c.HighCutoff, c.LowCutoff)
	}
	return nil
}

// Service runs cava and republishes parsed bar levels.
type Service struct {
	logger *slog.Logger
	config *reactive.ConfigProperty[Config]
	Bars   *reactive.Property[[]float64]
}

// New creates a Service with the given compiled default configuration.
func New(def Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger: logger,
		config: reactive.NewConfigProperty(def),
		Bars:   reactive.New[[]float64](nil),
	}
}

// Start launches cava and reads frames until ctx is cancelled, per
// spec.md's watch-mode auto-restart-on-exit policy.
func (s *Service) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			cfg := s.config.Get()
			if err := cfg.Validate(); err != nil {
				s.logger.Error("cava config invalid", "error", err)
				return
			}
			if err := s.runOnce(ctx, cfg); err != nil {
				s.logger.Warn("cava process exited", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
}

func (s *Service) runOnce(ctx context.Context, cfg Config) error {
	cmd := exec.CommandContext(ctx, "cava", "-p", "/dev/stdin")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start cava: %w", err)
	}
	if _, err := io.WriteString(stdin, renderConfig(cfg)); err != nil {
		s.logger.Warn("write cava config failed", "error", err)
	}
	stdin.Close()

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		bars := parseFrame(scanner.Text(), cfg.Bars)
		if bars != nil {
			s.Bars.Set(bars)
		}
	}
	return cmd.Wait()
}

// renderConfig builds the INI-format config cava's "-p" flag expects,
// requesting raw ASCII output (one semicolon-separated frame per
// line) so runOnce's scanner can parse it with parseFrame.
func renderConfig(cfg Config) string {
	return fmt.Sprintf(
		"[general]\nbars = %d\nlower_cutoff_freq = %d\nhigher_cutoff_freq = %d\n\n"+
			"[output]\nmethod = raw\nraw_target = /dev/stdout\ndata_format = ascii\nascii_max_range = 255\n\n"+
			"[smoothing]\nnoise_reduction = 77\n",
		cfg.Bars, cfg.LowCutoff, cfg.HighCutoff,
	)
}

// parseFrame parses a semicolon-separated frame of integer bar values
// (cava's raw ASCII output format) into normalized [0,1] levels.
func parseFrame(line string, bars int) []float64 {
	if line == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(line, ";"), ";")
	levels := make([]float64, 0, bars)
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		levels = append(levels, float64(v)/255.0)
	}
	return levels
}
