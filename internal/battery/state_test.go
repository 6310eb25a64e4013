package battery

import "testing"

func TestStateFromUPower(t *testing.T) {
	cases := map[uint32]State{
		1:  StateCharging,
		2:  StateDischarging,
		4:  StateFullyCharged,
		5:  StatePendingCharge,
		6:  StatePendingDischarge,
		0:  StateUnknown,
		99: StateUnknown,
	}
	for code, want := range cases {
		if got := stateFromUPower(code); got != want {
			t.Errorf("stateFromUPower(%d) = %v, want %v", code, got, want)
		}
	}
}
