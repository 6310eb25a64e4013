package powerprofiles

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestProfilesFromVariant(t *testing.T) {
	entries := []map[string]dbus.Variant{
		{"Profile": dbus.MakeVariant("power-saver"), "Driver": dbus.MakeVariant("platform_profile")},
		{"Profile": dbus.MakeVariant("balanced")},
		{"Profile": dbus.MakeVariant("performance")},
	}
	got := profilesFromVariant(entries)
	want := []Profile{ProfilePowerSaver, ProfileBalanced, ProfilePerformance}
	if len(got) != len(want) {
		t.Fatalf("profilesFromVariant returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("profilesFromVariant[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestProfilesFromVariantNil(t *testing.T) {
	if got := profilesFromVariant(nil); got != nil {
		t.Errorf("profilesFromVariant(nil) = %v, want nil", got)
	}
}
