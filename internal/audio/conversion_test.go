package audio

import "testing"

func TestVolumeRoundtripWithinTolerance(t *testing.T) {
	for _, v := range []float64{0, 0.25, 0.5, 1.0, 1.5, 2.0, 3.0, 4.0} {
		vol := Volume{Levels: []float64{v, v}}
		pulse := ToPulse(vol)
		back := FromPulse(pulse)
		got := back.Average()
		diff := got - v
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.01 {
			t.Fatalf("roundtrip for %v produced %v, diff %v exceeds 0.01 tolerance", v, got, diff)
		}
	}
}

func TestToPulseUsesAverageAcrossChannels(t *testing.T) {
	vol := Volume{Levels: []float64{0.5, 1.0}}
	pulse := ToPulse(vol)
	want := uint32(0.75 * PulseVolumeNormal)
	for _, p := range pulse {
		if p != want {
			t.Fatalf("expected %d, got %d", want, p)
		}
	}
}

func TestAverageEmptyIsZero(t *testing.T) {
	if (Volume{}).Average() != 0 {
		t.Fatal("expected 0 average for empty channel set")
	}
}
