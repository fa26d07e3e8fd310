package types

import (
	"testing"
	"time"
)

func TestEscalationStatusForwardOnly(t *testing.T) {
	allowed := []struct{ from, to EscalationStatus }{
		{EscalationPending, EscalationAcknowledged},
		{EscalationPending, EscalationInProgress},
		{EscalationPending, EscalationResolved},
		{EscalationAcknowledged, EscalationInProgress},
		{EscalationAcknowledged, EscalationResolved},
		{EscalationInProgress, EscalationResolved},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransitionTo(tr.to) {
			t.Fatalf("%s -> %s should be allowed", tr.from, tr.to)
		}
	}

	forbidden := []struct{ from, to EscalationStatus }{
		{EscalationAcknowledged, EscalationPending},
		{EscalationInProgress, EscalationAcknowledged},
		{EscalationResolved, EscalationInProgress},
		{EscalationResolved, EscalationPending},
		{EscalationPending, EscalationPending},
		{EscalationResolved, EscalationResolved},
	}
	for _, tr := range forbidden {
		if tr.from.CanTransitionTo(tr.to) {
			t.Fatalf("%s -> %s should be forbidden", tr.from, tr.to)
		}
	}

	if EscalationPending.CanTransitionTo("ARCHIVED") {
		t.Fatalf("transition to unknown status should be forbidden")
	}
}

func TestEscalationBreachedIsDerived(t *testing.T) {
	deadline := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	esc := &Escalation{Status: EscalationPending, RequiredResponseBy: deadline}

	if esc.Breached(deadline.Add(-time.Minute)) {
		t.Fatalf("not yet past the deadline")
	}
	if !esc.Breached(deadline.Add(time.Minute)) {
		t.Fatalf("open escalation past the deadline should be breached")
	}

	esc.Status = EscalationResolved
	if esc.Breached(deadline.Add(time.Hour)) {
		t.Fatalf("resolved escalation never reads as breached")
	}

	var missing *Escalation
	if missing.Breached(deadline) {
		t.Fatalf("nil escalation is not breached")
	}
}
