package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// VoiceConnector drives the guild's voice connection and audio pipe.
// All methods are keyed by guild; a guild has at most one connection.
type VoiceConnector interface {
	// Join connects (or moves) the bot to the given voice channel.
	Join(ctx context.Context, guildID, channelID snowflake.ID) error

	// Leave disconnects the bot, stopping any active stream first.
	Leave(guildID snowflake.ID) error

	// Play starts streaming the track's audio endpoint. Completion, natural
	// or not, is reported as a TrackEndedEvent; Play never blocks until then.
	Play(guildID snowflake.ID, track *domain.Track) error

	// Pause suspends the active stream.
	Pause(guildID snowflake.ID) error

	// Resume continues a paused stream.
	Resume(guildID snowflake.ID) error

	// Stop aborts the active stream. The aborted session still reports a
	// TrackEndedEvent, which is what advances the queue.
	Stop(guildID snowflake.ID) error

	// IsPlaying reports whether a stream is active and not paused.
	IsPlaying(guildID snowflake.ID) bool

	// IsPaused reports whether a stream is active and paused.
	IsPaused(guildID snowflake.ID) bool

	// IsConnected reports whether the bot holds a voice connection.
	IsConnected(guildID snowflake.ID) bool

	// HumanListeners counts non-bot members in the bot's current voice
	// channel. Returns 0 when not connected.
	HumanListeners(guildID snowflake.ID) int
}
