package custom

import "testing"

func TestLoadDefinitionsParsesEntries(t *testing.T) {
	lookup := func(path string) (any, bool) {
		if path != "modules.custom" {
			return nil, false
		}
		return []map[string]any{
			{
				"id":        "battery",
				"command":   "cat /sys/class/power_supply/BAT0/capacity",
				"mode":      "poll",
				"interval":  int64(1000),
				"format":    "{{ output }}%",
				"icon_names": []any{"a", "b", "c"},
			},
		}, true
	}
	defs := LoadDefinitions(lookup, nil)
	cfg, ok := defs["battery"]
	if !ok {
		t.Fatal("expected battery module to be defined")
	}
	if cfg.Mode != ModePoll {
		t.Fatalf("expected ModePoll, got %v", cfg.Mode)
	}
	if len(cfg.IconNames) != 3 {
		t.Fatalf("expected 3 icon names, got %v", cfg.IconNames)
	}
}

func TestLoadDefinitionsMissingIDSkipped(t *testing.T) {
	lookup := func(path string) (any, bool) {
		return []map[string]any{{"command": "echo hi"}}, true
	}
	defs := LoadDefinitions(lookup, nil)
	if len(defs) != 0 {
		t.Fatalf("expected no definitions, got %v", defs)
	}
}

func TestLoadDefinitionsNoKeyReturnsNil(t *testing.T) {
	defs := LoadDefinitions(func(string) (any, bool) { return nil, false }, nil)
	if defs != nil {
		t.Fatalf("expected nil, got %v", defs)
	}
}
