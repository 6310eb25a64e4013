package wconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsEmptyRaw(t *testing.T) {
	raw, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected empty document, got %v", raw)
	}
}

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "[bar.modules.clock]\nformat = \"%H:%M\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := raw.Lookup("bar.modules.clock.format")
	if !ok || v != "%H:%M" {
		t.Fatalf("expected %%H:%%M, got %v, %v", v, ok)
	}
	if _, ok := raw.Lookup("bar.modules.clock.missing"); ok {
		t.Fatal("expected missing key to not be found")
	}
}

func TestFindConfigExplicitMustExist(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestRuntimeConfigPath(t *testing.T) {
	got := RuntimeConfigPath("/etc/wayle/config.toml")
	want := "/etc/wayle/runtime.toml"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSaveRuntimeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.toml")
	if err := SaveRuntime(path, map[string]any{"weather.location": "Paris"}); err != nil {
		t.Fatalf("SaveRuntime: %v", err)
	}
	raw, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, ok := raw.Lookup("weather.location")
	if !ok || v != "Paris" {
		t.Fatalf("expected weather.location=Paris, got %v, %v", v, ok)
	}
}

func TestSaveRuntimeEmptyClearsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.toml")
	if err := SaveRuntime(path, map[string]any{"weather.location": "Paris"}); err != nil {
		t.Fatalf("SaveRuntime: %v", err)
	}
	if err := SaveRuntime(path, map[string]any{}); err != nil {
		t.Fatalf("SaveRuntime (clear): %v", err)
	}
	raw, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := raw.Lookup("weather.location"); ok {
		t.Fatal("expected override to be cleared")
	}
}
