package traffic

import (
	"testing"
	"time"
)

func TestErrorRate_Empty(t *testing.T) {
	tr := NewTracker()
	errs, total := tr.ErrorRate(time.Minute)
	if errs != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", errs, total)
	}
}

func TestErrorRate_SuccessAndFailure(t *testing.T) {
	tr := NewTracker()
	tr.Record(Success)
	tr.Record(Success)
	tr.Record(Failure)
	errs, total := tr.ErrorRate(time.Minute)
	if errs != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", errs, total)
	}
}

func TestErrorRate_DeniedExcluded(t *testing.T) {
	tr := NewTracker()
	tr.Record(Success)
	tr.Record(Denied)
	tr.Record(Denied)
	errs, total := tr.ErrorRate(time.Minute)
	if errs != 0 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 1)", errs, total)
	}
	if n := tr.DenialCount(time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
}

func TestWindowAndPrune(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker()
	tr.now = func() time.Time { return now }

	tr.Record(Failure)
	now = now.Add(2 * time.Minute)
	tr.Record(Success)

	if errs, total := tr.ErrorRate(time.Minute); errs != 0 || total != 1 {
		t.Errorf("1m window = (%d, %d), want (0, 1)", errs, total)
	}
	if errs, total := tr.ErrorRate(3 * time.Minute); errs != 1 || total != 2 {
		t.Errorf("3m window = (%d, %d), want (1, 2)", errs, total)
	}

	now = now.Add(retention)
	tr.Record(Success)
	if len(tr.events) != 1 {
		t.Errorf("events after prune = %d, want 1", len(tr.events))
	}
}

func TestPackageLevel(t *testing.T) {
	Reset()
	defer Reset()
	Record(Failure)
	Record(Denied)
	if errs, total := ErrorRate(time.Minute); errs != 1 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 1)", errs, total)
	}
	if n := DenialCount(time.Minute); n != 1 {
		t.Errorf("DenialCount() = %d, want 1", n)
	}
}
