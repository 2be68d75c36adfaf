package domain

import (
	"sync"
	"sync/atomic"

	"github.com/disgoorg/snowflake/v2"
)

// PlayerState is the per-guild playback state. One instance exists per guild
// for the lifetime of the process (see StateRegistry).
//
// Two independent guards protect it: mu covers the queue, the current track
// and the start decision as one unit, so an append and the idle check cannot
// interleave with a pop; the candidate slot and the selection flag have their
// own synchronization and are never touched under mu.
type PlayerState struct {
	guildID snowflake.ID

	mu                sync.Mutex
	queue             Queue
	current           *Track
	active            bool // a play-next loop owns playback (Playing or Paused)
	lastTextChannelID snowflake.ID

	searchMu   sync.Mutex
	candidates []Candidate
	searchID   uint64

	chooseInFlight atomic.Bool
}

// NewPlayerState creates an idle PlayerState for the given guild.
func NewPlayerState(guildID snowflake.ID) *PlayerState {
	return &PlayerState{guildID: guildID}
}

// GuildID returns the guild this state belongs to.
func (p *PlayerState) GuildID() snowflake.ID {
	return p.guildID
}

// EnqueueAndReserveStart appends a track and, when no play-next loop is
// running, reserves the right to start one. The append and the reservation
// happen under one lock: of any number of concurrent callers, exactly one
// observes start == true.
func (p *PlayerState) EnqueueAndReserveStart(t *Track) (position int, start bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	position = p.queue.Append(t)
	if !p.active {
		p.active = true
		start = true
	}
	return position, start
}

// AdvanceToNext pops the queue head into current and returns it. When the
// queue is empty it clears current, releases the playback reservation and
// returns nil; the guild is then idle.
func (p *PlayerState) AdvanceToNext() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.queue.PopFront()
	p.current = next
	if next == nil {
		p.active = false
	}
	return next
}

// Current returns the track presently playing or paused, or nil when idle.
func (p *PlayerState) Current() *Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// IsActive reports whether a play-next loop owns playback for this guild.
func (p *PlayerState) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// QueueSnapshot returns the pending tracks in playback order.
func (p *PlayerState) QueueSnapshot() []*Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Snapshot()
}

// QueueLen returns the number of pending tracks.
func (p *PlayerState) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// ClearQueue drops all pending tracks and returns how many were dropped.
// The current track is not touched; stopping it is the caller's business.
func (p *PlayerState) ClearQueue() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Clear()
}

// Reset clears the queue and the current track and releases the playback
// reservation. Used when the bot leaves the voice channel.
func (p *PlayerState) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.Clear()
	p.current = nil
	p.active = false
}

// SetLastTextChannel remembers the text channel of the most recent command,
// used for unsolicited notifications.
func (p *PlayerState) SetLastTextChannel(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastTextChannelID = channelID
}

// LastTextChannel returns the remembered text channel, 0 if none yet.
func (p *PlayerState) LastTextChannel() snowflake.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTextChannelID
}

// SetCandidates replaces the stored search results wholesale and returns the
// new list's search ID. Selections carrying an older ID are stale.
func (p *PlayerState) SetCandidates(candidates []Candidate) uint64 {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	p.searchID++
	p.candidates = candidates
	return p.searchID
}

// Candidates returns the stored search results and their search ID.
// A nil slice means no search is pending.
func (p *PlayerState) Candidates() ([]Candidate, uint64) {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()
	return p.candidates, p.searchID
}

// ClearCandidates drops the stored results, but only when searchID still
// identifies them; a list stored by a newer search survives.
func (p *PlayerState) ClearCandidates(searchID uint64) {
	p.searchMu.Lock()
	defer p.searchMu.Unlock()

	if p.searchID == searchID {
		p.candidates = nil
	}
}

// BeginSelection marks a selection as in flight. It returns false when another
// selection is already being resolved; the caller must reject, not wait.
func (p *PlayerState) BeginSelection() bool {
	return p.chooseInFlight.CompareAndSwap(false, true)
}

// EndSelection clears the in-flight mark. Safe to call from any exit path.
func (p *PlayerState) EndSelection() {
	p.chooseInFlight.Store(false)
}
