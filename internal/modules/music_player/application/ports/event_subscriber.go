package ports

import (
	"context"

	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// EventSubscriber registers handlers for playback events. Handlers for one
// event type run on a single dispatcher goroutine, in publish order.
type EventSubscriber interface {
	OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent))
	OnPlaybackStarted(handler func(context.Context, domain.PlaybackStartedEvent))
}
