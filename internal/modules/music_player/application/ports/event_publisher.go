package ports

import (
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// EventPublisher publishes playback events asynchronously.
type EventPublisher interface {
	PublishTrackEnded(event domain.TrackEndedEvent)
	PublishPlaybackStarted(event domain.PlaybackStartedEvent)
}
