package lifecycle

import "testing"

func TestPhaseTransitions(t *testing.T) {
	defer Set(Starting)

	tests := []struct {
		set      Phase
		shutdown bool
		name     string
	}{
		{Starting, false, "starting"},
		{Serving, false, "serving"},
		{Draining, true, "draining"},
		{Serving, false, "serving"},
	}
	for _, tt := range tests {
		Set(tt.set)
		if got := Current(); got != tt.set {
			t.Errorf("Current() = %v, want %v", got, tt.set)
		}
		if got := IsShuttingDown(); got != tt.shutdown {
			t.Errorf("IsShuttingDown() in %v = %v, want %v", tt.set, got, tt.shutdown)
		}
		if got := tt.set.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
}
