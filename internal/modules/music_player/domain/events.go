package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// TrackEndedEvent is published by the audio pipe when a stream finishes or
// fails. It is the only way a completed play session re-enters the play-next
// loop: the pipe never calls back into playback directly.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	Err     error // nil on natural completion; transport errors are logged only
}

// PlaybackStartedEvent is published when a track starts streaming.
type PlaybackStartedEvent struct {
	GuildID snowflake.ID
	Track   *Track
}
