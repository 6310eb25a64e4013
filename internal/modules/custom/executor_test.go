package custom

import "testing"

func TestParseOutputDetectsJSON(t *testing.T) {
	out := parseOutput([]byte(`{"percentage": 42, "alt": "full"}`))
	if !out.IsJSON {
		t.Fatal("expected JSON detection")
	}
	if out.Fields["alt"] != "full" {
		t.Fatalf("unexpected fields: %v", out.Fields)
	}
}

func TestParseOutputPlainText(t *testing.T) {
	out := parseOutput([]byte("  hello  \n"))
	if out.IsJSON {
		t.Fatal("expected plain text, not JSON")
	}
	if out.Text != "hello" {
		t.Fatalf("expected trimmed text, got %q", out.Text)
	}
}

func TestIsEmptyCaseInsensitive(t *testing.T) {
	for _, v := range []string{"", "0", "false", "FALSE", "False"} {
		out := ParsedOutput{Text: v}
		if !out.IsEmpty() {
			t.Fatalf("expected %q to be empty", v)
		}
	}
	if (ParsedOutput{Text: "1"}).IsEmpty() {
		t.Fatal("expected '1' to not be empty")
	}
}

func TestResolveIconPriority(t *testing.T) {
	cfg := Config{
		IconMap:   map[string]string{"muted": "mute-icon", "default": "default-icon"},
		IconNames: []string{"icon0", "icon1", "icon2"},
	}
	if got := ResolveIcon(cfg, "muted", nil); got != "mute-icon" {
		t.Fatalf("expected icon_map[alt] to win, got %s", got)
	}
	pct := 50.0
	if got := ResolveIcon(cfg, "", &pct); got != "icon1" {
		t.Fatalf("expected icon_names bucket, got %s", got)
	}
	if got := ResolveIcon(cfg, "", nil); got != "default-icon" {
		t.Fatalf("expected icon_map[default], got %s", got)
	}
	cfg2 := Config{DefaultIcon: "static-icon"}
	if got := ResolveIcon(cfg2, "", nil); got != "static-icon" {
		t.Fatalf("expected static icon_name fallback, got %s", got)
	}
}

func TestRenderTemplateVariableAndDefault(t *testing.T) {
	out := ParsedOutput{IsJSON: true, Fields: map[string]any{"level": "high"}}
	got := RenderTemplate("state: {{ level }}, missing: {{ other | default('n/a') }}", out)
	want := "state: high, missing: n/a"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderTemplatePlainTextField(t *testing.T) {
	out := ParsedOutput{Text: "42"}
	got := RenderTemplate("value: {{ text }}", out)
	if got != "value: 42" {
		t.Fatalf("unexpected render: %q", got)
	}
}
