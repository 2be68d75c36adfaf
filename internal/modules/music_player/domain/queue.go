package domain

// Queue is a strict FIFO of pending tracks. Append order is playback order.
// Queue is not safe for concurrent use; PlayerState serializes access.
type Queue struct {
	tracks []*Track
}

// Len returns the number of pending tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if no tracks are pending.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// Append adds a track to the tail and returns its 1-indexed position.
func (q *Queue) Append(t *Track) int {
	q.tracks = append(q.tracks, t)
	return len(q.tracks)
}

// PopFront removes and returns the head track, or nil if the queue is empty.
func (q *Queue) PopFront() *Track {
	if len(q.tracks) == 0 {
		return nil
	}
	head := q.tracks[0]
	q.tracks = q.tracks[1:]
	return head
}

// Snapshot returns a copy of the pending tracks in playback order.
func (q *Queue) Snapshot() []*Track {
	out := make([]*Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Clear drops all pending tracks and returns how many were dropped.
func (q *Queue) Clear() int {
	n := len(q.tracks)
	q.tracks = nil
	return n
}
