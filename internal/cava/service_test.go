package cava

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{Bars: 20, LowCutoff: 50, HighCutoff: 10000}, true},
		{"zero bars", Config{Bars: 0, LowCutoff: 50, HighCutoff: 10000}, false},
		{"too many bars", Config{Bars: 257, LowCutoff: 50, HighCutoff: 10000}, false},
		{"high not above low", Config{Bars: 20, LowCutoff: 100, HighCutoff: 100}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestRenderConfigIncludesCutoffsAndRawOutput(t *testing.T) {
	out := renderConfig(Config{Bars: 20, LowCutoff: 50, HighCutoff: 10000})
	for _, want := range []string{"bars = 20", "lower_cutoff_freq = 50", "higher_cutoff_freq = 10000", "method = raw", "data_format = ascii"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderConfig output missing %q:\n%s", want, out)
		}
	}
}

func TestParseFrame(t *testing.T) {
	got := parseFrame("0;128;255;", 3)
	want := []float64{0, 128.0 / 255.0, 1.0}
	if len(got) != len(want) {
		t.Fatalf("parseFrame length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parseFrame[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseFrameEmptyLine(t *testing.T) {
	if got := parseFrame("", 10); got != nil {
		t.Errorf("parseFrame(\"\") = %v, want nil", got)
	}
}
