package jobs

import (
	"errors"
	"testing"
)

func TestNextTransitions(t *testing.T) {
	cases := []struct {
		name    string
		current State
		event   Event
		want    State
		applies bool
	}{
		{"accept new", "", EventAccept, StatePending, true},
		{"accept after completed", StateCompleted, EventAccept, StatePending, true},
		{"accept after failed", StateFailed, EventAccept, StatePending, true},
		{"accept while pending", StatePending, EventAccept, StatePending, false},
		{"accept while processing", StateProcessing, EventAccept, StateProcessing, false},
		{"start pending", StatePending, EventStart, StateProcessing, true},
		{"start while processing", StateProcessing, EventStart, StateProcessing, false},
		{"complete processing", StateProcessing, EventComplete, StateCompleted, true},
		{"complete pending", StatePending, EventComplete, StatePending, false},
		{"fail processing", StateProcessing, EventFail, StateFailed, true},
		{"fail completed", StateCompleted, EventFail, StateCompleted, false},
		{"unknown event", StatePending, Event("bogus"), StatePending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, applies := Next(tc.current, tc.event)
			if got != tc.want || applies != tc.applies {
				t.Fatalf("Next(%q, %q) = (%q, %v), want (%q, %v)", tc.current, tc.event, got, applies, tc.want, tc.applies)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if StatePending.Terminal() || StateProcessing.Terminal() {
		t.Fatal("pending and processing must not be terminal")
	}
	if !StateCompleted.Terminal() || !StateFailed.Terminal() {
		t.Fatal("completed and failed must be terminal")
	}
}

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())

	if !tracker.Accept("doc.pdf") {
		t.Fatal("first accept should succeed")
	}
	if tracker.Status("doc.pdf").Status != StatePending {
		t.Fatalf("expected pending, got %q", tracker.Status("doc.pdf").Status)
	}

	if !tracker.Begin("doc.pdf") {
		t.Fatal("begin should succeed")
	}
	tracker.Complete("doc.pdf", 12, 48)

	job := tracker.Status("doc.pdf")
	if job.Status != StateCompleted {
		t.Fatalf("expected completed, got %q", job.Status)
	}
	if job.Pages != 12 || job.Chunks != 48 {
		t.Fatalf("expected counts 12/48, got %d/%d", job.Pages, job.Chunks)
	}
}

func TestTrackerSuppressesDuplicateAccept(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())

	if !tracker.Accept("doc.pdf") {
		t.Fatal("first accept should succeed")
	}
	if tracker.Accept("doc.pdf") {
		t.Fatal("accept while pending should be refused")
	}

	tracker.Begin("doc.pdf")
	if tracker.Accept("doc.pdf") {
		t.Fatal("accept while processing should be refused")
	}

	tracker.Complete("doc.pdf", 1, 1)
	if !tracker.Accept("doc.pdf") {
		t.Fatal("accept after completion should start a new job")
	}
}

func TestTrackerSuppressesDoubleBegin(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	tracker.Accept("doc.pdf")

	if !tracker.Begin("doc.pdf") {
		t.Fatal("first begin should succeed")
	}
	if tracker.Begin("doc.pdf") {
		t.Fatal("begin while processing should be refused")
	}
}

func TestTrackerFailRecordsError(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	tracker.Accept("doc.pdf")
	tracker.Begin("doc.pdf")
	tracker.Fail("doc.pdf", errors.New("no text content"))

	job := tracker.Status("doc.pdf")
	if job.Status != StateFailed {
		t.Fatalf("expected failed, got %q", job.Status)
	}
	if job.Error != "no text content" {
		t.Fatalf("unexpected error message: %q", job.Error)
	}
}

func TestTrackerStatusUnknown(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	if got := tracker.Status("missing.pdf").Status; got != StateNotFound {
		t.Fatalf("expected not_found, got %q", got)
	}
}

func TestTrackerRemoveAndClear(t *testing.T) {
	tracker := NewTracker(NewMemoryStore())
	tracker.Accept("a.pdf")
	tracker.Accept("b.pdf")

	tracker.Remove("a.pdf")
	if tracker.Status("a.pdf").Status != StateNotFound {
		t.Fatal("removed job should be unknown")
	}
	if len(tracker.All()) != 1 {
		t.Fatalf("expected 1 remaining job, got %d", len(tracker.All()))
	}

	tracker.Clear()
	if len(tracker.All()) != 0 {
		t.Fatalf("expected no jobs after clear, got %d", len(tracker.All()))
	}
}
