package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// MemoryRegistry is an in-memory implementation of StateRegistry. States are
// created lazily and shared by pointer; the registry never copies them.
type MemoryRegistry struct {
	mu     sync.RWMutex
	states map[snowflake.ID]*domain.PlayerState
}

// NewMemoryRegistry creates a new MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		states: make(map[snowflake.ID]*domain.PlayerState),
	}
}

// GetOrCreate returns the guild's state, creating it on first reference.
// The double check under the write lock keeps two racing creators from
// producing two distinct states for one guild.
func (r *MemoryRegistry) GetOrCreate(guildID snowflake.ID) *domain.PlayerState {
	r.mu.RLock()
	state, ok := r.states[guildID]
	r.mu.RUnlock()
	if ok {
		return state
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.states[guildID]; ok {
		return state
	}
	state = domain.NewPlayerState(guildID)
	r.states[guildID] = state
	return state
}

// Get returns the guild's state, or nil if it was never created.
func (r *MemoryRegistry) Get(guildID snowflake.ID) *domain.PlayerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[guildID]
}

// Delete removes the guild's state.
func (r *MemoryRegistry) Delete(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, guildID)
}

// Count returns the number of tracked guilds (for testing/monitoring).
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// Ensure MemoryRegistry implements StateRegistry.
var _ domain.StateRegistry = (*MemoryRegistry)(nil)
