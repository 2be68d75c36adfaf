package domain

import (
	"testing"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := &Queue{}

	titles := []string{"first", "second", "third"}
	for i, title := range titles {
		pos := q.Append(NewTrack("stream://"+title, title, ""))
		if pos != i+1 {
			t.Errorf("Append(%q) position = %d, want %d", title, pos, i+1)
		}
	}

	for _, want := range titles {
		got := q.PopFront()
		if got == nil {
			t.Fatalf("PopFront() = nil, want track %q", want)
		}
		if got.Title != want {
			t.Errorf("PopFront().Title = %q, want %q", got.Title, want)
		}
	}

	if got := q.PopFront(); got != nil {
		t.Errorf("PopFront() on empty queue = %v, want nil", got)
	}
}

func TestQueue_Snapshot(t *testing.T) {
	q := &Queue{}
	q.Append(NewTrack("stream://a", "a", ""))
	q.Append(NewTrack("stream://b", "b", ""))

	snap := q.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() length = %d, want 2", len(snap))
	}

	// Mutating the queue must not affect an earlier snapshot.
	q.PopFront()
	if snap[0].Title != "a" || snap[1].Title != "b" {
		t.Errorf("snapshot changed after PopFront: %q, %q", snap[0].Title, snap[1].Title)
	}
}

func TestQueue_Clear(t *testing.T) {
	q := &Queue{}
	q.Append(NewTrack("stream://a", "a", ""))
	q.Append(NewTrack("stream://b", "b", ""))

	if n := q.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if !q.IsEmpty() {
		t.Error("queue not empty after Clear")
	}
	if n := q.Clear(); n != 0 {
		t.Errorf("Clear() on empty queue = %d, want 0", n)
	}
}
