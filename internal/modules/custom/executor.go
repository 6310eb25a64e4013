// Package custom implements the custom-module execution engine
// (spec.md §4.8): poll mode (fixed interval, 30s hard timeout) and
// watch mode (long-running subprocess, one update per stdout line,
// auto-restart on exit), output parsing, icon resolution, scroll
// debounce, and template rendering. Grounded on
// internal/unifi/poller.go's debounce-then-commit shape and
// internal/mqtt/subscriber.go's rate-limiting idiom for the scroll
// debounce.
package custom

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wayle-project/wayle/internal/reactive"
)

// Mode selects how a custom module's command is executed.
type Mode int

const (
	ModePoll Mode = iota
	ModeWatch
)

// maxOutputBytes bounds ParsedOutput detection per spec.md §4.8.
const maxOutputBytes = 64 * 1024

// pollTimeout is the hard per-invocation timeout for poll mode.
const pollTimeout = 30 * time.Second

// scrollDebounce coalesces rapid scroll-wheel events before the
// scroll command is invoked.
const scrollDebounce = 50 * time.Millisecond

// Config is a single custom module's definition.
type Config struct {
	Mode           Mode
	Command        string
	Interval       time.Duration
	ScrollUpCmd    string
	ScrollDownCmd  string
	HideIfEmpty    bool
	IconMap        map[string]string
	IconNames      []string
	DefaultIcon    string
	TemplateFormat string
	TooltipFormat  string
	ClassFormat    string
}

// ParsedOutput is a single execution's result: JSON-detected output is
// decoded into Fields; otherwise Text holds the raw trimmed output.
type ParsedOutput struct {
	Text   string
	Fields map[string]any
	IsJSON bool
}

// parseOutput applies the `{`/`[` prefix JSON-or-text detection rule,
// truncating to maxOutputBytes first per spec.md §4.8.
func parseOutput(raw []byte) ParsedOutput {
	if len(raw) > maxOutputBytes {
		raw = raw[:maxOutputBytes]
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return ParsedOutput{Text: ""}
	}
	if text[0] == '{' || text[0] == '[' {
		var fields map[string]any
		if err := json.Unmarshal([]byte(text), &fields); err == nil {
			return ParsedOutput{Text: text, Fields: fields, IsJSON: true}
		}
	}
	return ParsedOutput{Text: text}
}

// IsEmpty reports whether the output is empty, "0", or "false"
// (case-insensitive), matching the hide-if-empty semantics.
func (o ParsedOutput) IsEmpty() bool {
	v := strings.ToLower(strings.TrimSpace(o.Text))
	return v == "" || v == "0" || v == "false"
}

// ResolveIcon implements the icon resolution priority:
// icon_map[alt] -> icon_names[floor(percentage*N/101)] ->
// icon_map["default"] -> static icon_name.
func ResolveIcon(cfg Config, alt string, percentage *float64) string {
	if alt != "" {
		if icon, ok := cfg.IconMap[alt]; ok {
			return icon
		}
	}
	if percentage != nil && len(cfg.IconNames) > 0 {
		n := len(cfg.IconNames)
		idx := int(*percentage * float64(n) / 101.0)
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		return cfg.IconNames[idx]
	}
	if icon, ok := cfg.IconMap["default"]; ok {
		return icon
	}
	return cfg.DefaultIcon
}

// Module is a running instance of a single custom module.
type Module struct {
	id     string
	cfg    Config
	logger *slog.Logger

	Output *reactive.Property[ParsedOutput]

	// Label, Icon, Class, and Tooltip are the rendered bar-facing
	// properties, recomputed from Output and the current Config by
	// render whenever Output changes (spec.md §4.8's template
	// rendering, icon resolution, and class resolution).
	Label   *reactive.Property[string]
	Icon    *reactive.Property[string]
	Class   *reactive.Property[[]string]
	Tooltip *reactive.Property[string]

	scrollMu     sync.Mutex
	scrollTimer  *time.Timer
	pendingDelta int

	cancelRun context.CancelFunc
}

// New creates a Module with a fresh run id.
func New(cfg Config, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{
		id:      uuid.NewString(),
		cfg:     cfg,
		logger:  logger,
		Output:  reactive.New(ParsedOutput{}),
		Label:   reactive.New(""),
		Icon:    reactive.New(""),
		Class:   reactive.New[[]string](nil),
		Tooltip: reactive.New(""),
	}
}

// Start runs the module until ctx is cancelled or UpdateConfig triggers
// a restart, dispatching on Mode. Start derives and stores its own
// cancellation so a later restart can stop exactly this run without
// touching the caller's ctx. A render loop watches Output and keeps
// Label/Icon/Class/Tooltip current for as long as this run lasts.
func (m *Module) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.scrollMu.Lock()
	m.cancelRun = cancel
	m.scrollMu.Unlock()

	go m.renderLoop(runCtx)

	switch m.cfg.Mode {
	case ModeWatch:
		go m.runWatch(runCtx)
	default:
		go m.runPoll(runCtx)
	}
}

// renderLoop recomputes the rendered properties every time Output
// changes, against whatever Config is current at that moment, so a
// config-only reload (format/icon/class edits with no restart) takes
// effect on the next already-scheduled update per UpdateConfig's
// contract.
func (m *Module) renderLoop(ctx context.Context) {
	for output := range m.Output.Watch(ctx) {
		m.render(output)
	}
}

func (m *Module) render(output ParsedOutput) {
	m.scrollMu.Lock()
	cfg := m.cfg
	m.scrollMu.Unlock()

	label := output.Text
	if cfg.TemplateFormat != "" {
		label = RenderTemplate(cfg.TemplateFormat, output)
	}
	m.Label.Set(label)

	alt, _ := output.Fields["alt"].(string)
	m.Icon.Set(ResolveIcon(cfg, alt, percentageAsFloat(output)))

	m.Class.Set(ResolveClasses(cfg, output))

	tooltip := ""
	if t, ok := output.Fields["tooltip"].(string); ok {
		tooltip = t
	} else if cfg.TooltipFormat != "" {
		tooltip = RenderTemplate(cfg.TooltipFormat, output)
	}
	m.Tooltip.Set(tooltip)
}

func (m *Module) runPoll(ctx context.Context) {
	m.execOnce(ctx)
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.execOnce(ctx)
		}
	}
}

func (m *Module) execOnce(ctx context.Context) {
	execCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	cmd := exec.CommandContext(execCtx, "sh", "-c", m.cfg.Command)
	out, err := cmd.Output()
	if err != nil {
		m.logger.Warn("custom module poll failed", "id", m.id, "error", err)
		return
	}
	m.Output.Set(parseOutput(out))
}

// runWatch starts the long-running subprocess and republishes one
// update per stdout line, restarting automatically if the process
// exits (per spec.md §4.8's watch-mode auto-restart policy).
func (m *Module) runWatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := m.watchOnce(ctx); err != nil {
			m.logger.Warn("custom module watch process exited", "id", m.id, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (m *Module) watchOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", m.cfg.Command)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxOutputBytes)
	for scanner.Scan() {
		m.Output.Set(parseOutput(scanner.Bytes()))
	}
	return cmd.Wait()
}

// Scroll records a scroll-wheel delta, coalescing rapid events within
// scrollDebounce before invoking the configured up/down command once.
func (m *Module) Scroll(ctx context.Context, delta int) {
	m.scrollMu.Lock()
	defer m.scrollMu.Unlock()
	m.pendingDelta += delta
	if m.scrollTimer != nil {
		m.scrollTimer.Stop()
	}
	m.scrollTimer = time.AfterFunc(scrollDebounce, func() {
		m.scrollMu.Lock()
		delta := m.pendingDelta
		m.pendingDelta = 0
		m.scrollMu.Unlock()
		m.runScrollCommand(ctx, delta)
	})
}

func (m *Module) runScrollCommand(ctx context.Context, delta int) {
	var command string
	if delta > 0 {
		command = m.cfg.ScrollUpCmd
	} else if delta < 0 {
		command = m.cfg.ScrollDownCmd
	} else {
		return
	}
	if command == "" {
		return
	}
	execCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	if err := cmd.Run(); err != nil {
		m.logger.Warn("custom module scroll command failed", "id", m.id, "error", err)
	}
}

// RenderTemplate renders `{{ variable }}` / `{{ path.to.field |
// default('X') }}` style templates against a ParsedOutput's fields.
func RenderTemplate(tmpl string, output ParsedOutput) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		start := strings.Index(tmpl[i:], "{{")
		if start == -1 {
			b.WriteString(tmpl[i:])
			break
		}
		b.WriteString(tmpl[i : i+start])
		i += start
		end := strings.Index(tmpl[i:], "}}")
		if end == -1 {
			b.WriteString(tmpl[i:])
			break
		}
		expr := strings.TrimSpace(tmpl[i+2 : i+end])
		b.WriteString(evalExpr(expr, output))
		i += end + 2
	}
	return b.String()
}

func evalExpr(expr string, output ParsedOutput) string {
	path, def, hasDefault := strings.Cut(expr, "|")
	path = strings.TrimSpace(path)
	val, ok := lookupPath(path, output)
	if ok {
		return fmt.Sprint(val)
	}
	if hasDefault {
		return extractDefaultLiteral(def)
	}
	return ""
}

func extractDefaultLiteral(def string) string {
	def = strings.TrimSpace(def)
	def = strings.TrimPrefix(def, "default(")
	def = strings.TrimSuffix(def, ")")
	def = strings.Trim(def, "'\"")
	return def
}

func lookupPath(path string, output ParsedOutput) (any, bool) {
	if path == "output" || path == "text" {
		return output.Text, true
	}
	if !output.IsJSON {
		return nil, false
	}
	cur := any(output.Fields)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// ResolveClasses implements spec.md §4.8's class resolution: the
// parsed JSON's "class" field (string or array of strings) followed
// by the whitespace-split words of ClassFormat, deduplicated with the
// parsed field's entries taking precedence over ClassFormat's.
func ResolveClasses(cfg Config, output ParsedOutput) []string {
	seen := make(map[string]bool)
	var classes []string
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		classes = append(classes, c)
	}
	if output.IsJSON {
		switch v := output.Fields["class"].(type) {
		case string:
			add(v)
		case []any:
			for _, e := range v {
				if s, ok := e.(string); ok {
					add(s)
				}
			}
		}
	}
	for _, c := range strings.Fields(cfg.ClassFormat) {
		add(c)
	}
	return classes
}

// UpdateConfig applies the definition-change protocol for a config
// reload: if an execution-relevant field (Mode, Interval, or Command)
// changed, the running poller/watcher is restarted against the new
// definition; otherwise the new Config (format/icon/class/scroll
// settings) simply takes effect on the next already-scheduled update,
// without interrupting the running command.
func (m *Module) UpdateConfig(ctx context.Context, newCfg Config) {
	m.scrollMu.Lock()
	oldCfg := m.cfg
	restart := oldCfg.Mode != newCfg.Mode ||
		oldCfg.Interval != newCfg.Interval ||
		oldCfg.Command != newCfg.Command
	prevCancel := m.cancelRun
	m.cfg = newCfg
	m.scrollMu.Unlock()

	if restart {
		if prevCancel != nil {
			prevCancel()
		}
		m.Start(ctx)
	}
}

// percentageAsFloat is a small helper used by callers wiring a
// JSON "percentage" field into ResolveIcon.
func percentageAsFloat(output ParsedOutput) *float64 {
	v, ok := output.Fields["percentage"]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}
