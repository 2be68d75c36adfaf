package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// StateRegistry maps guilds to their PlayerState. States are created lazily
// and live for the process lifetime unless explicitly evicted.
type StateRegistry interface {
	// GetOrCreate returns the guild's state, creating it on first reference.
	// Concurrent calls for the same guild must yield the same instance.
	GetOrCreate(guildID snowflake.ID) *PlayerState

	// Get returns the guild's state, or nil if it was never created.
	Get(guildID snowflake.ID) *PlayerState

	// Delete evicts the guild's state. A no-op if none exists.
	Delete(guildID snowflake.ID)
}
