package custom

import (
	"log/slog"
	"time"
)

// RawLookup is the subset of wconfig.Raw's interface this package
// needs, expressed as a function type so custom has no import
// dependency on internal/wconfig (spec.md §6's config schema is
// application-defined; this package only needs to read one array of
// tables out of it).
type RawLookup func(path string) (any, bool)

// LoadDefinitions decodes the `[[modules.custom]]` array of tables
// (keyed by id) out of a decoded TOML document into Module configs,
// logging and skipping malformed entries per spec.md §6's "unknown
// keys log and are ignored" policy.
func LoadDefinitions(lookup RawLookup, logger *slog.Logger) map[string]Config {
	if logger == nil {
		logger = slog.Default()
	}
	raw, ok := lookup("modules.custom")
	if !ok {
		return nil
	}
	entries, ok := raw.([]map[string]any)
	if !ok {
		if ifaceEntries, ok2 := raw.([]any); ok2 {
			entries = make([]map[string]any, 0, len(ifaceEntries))
			for _, e := range ifaceEntries {
				if m, ok3 := e.(map[string]any); ok3 {
					entries = append(entries, m)
				}
			}
		}
	}

	defs := make(map[string]Config, len(entries))
	for _, entry := range entries {
		id, _ := entry["id"].(string)
		if id == "" {
			logger.Warn("custom module entry missing id, skipping")
			continue
		}
		cfg := Config{
			Command:        stringField(entry, "command"),
			TemplateFormat: stringField(entry, "format"),
			TooltipFormat:  stringField(entry, "tooltip_format"),
			ClassFormat:    stringField(entry, "class_format"),
			DefaultIcon:    stringField(entry, "icon_name"),
			HideIfEmpty:    boolField(entry, "hide_if_empty"),
			ScrollUpCmd:    stringField(entry, "scroll_up"),
			ScrollDownCmd:  stringField(entry, "scroll_down"),
			IconNames:      stringSliceField(entry, "icon_names"),
			IconMap:        stringMapField(entry, "icon_map"),
		}
		if stringField(entry, "mode") == "watch" {
			cfg.Mode = ModeWatch
		}
		if ms, ok := entry["interval"].(int64); ok {
			cfg.Interval = time.Duration(ms) * time.Millisecond
		} else if ms, ok := entry["interval"].(float64); ok {
			cfg.Interval = time.Duration(ms) * time.Millisecond
		}
		defs[id] = cfg
	}
	return defs
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func stringSliceField(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMapField(m map[string]any, key string) map[string]string {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
