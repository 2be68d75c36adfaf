package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
	"github.com/harunoki/yukibot/internal/modules/music_player/application/usecases"
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// PlaybackEventHandler turns completion events into queue advancement.
// TrackEndedEvents arrive on the bus dispatcher goroutine, never inside the
// audio pipe's own goroutine, so PlayNext is safe to run inline here.
type PlaybackEventHandler struct {
	playback   *usecases.PlaybackService
	subscriber ports.EventSubscriber
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(
	playback *usecases.PlaybackService,
	subscriber ports.EventSubscriber,
) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		playback:   playback,
		subscriber: subscriber,
	}
}

// Start registers event handlers with the subscriber.
func (h *PlaybackEventHandler) Start() {
	h.subscriber.OnTrackEnded(h.handleTrackEnded)

	slog.Debug("playback event handlers registered")
}

func (h *PlaybackEventHandler) handleTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	if event.Err != nil {
		// A mid-stream failure is logged and treated as completion; the loop
		// advances to the next track.
		slog.Error(
			"stream ended with error",
			"guild_id", event.GuildID,
			"error", event.Err,
		)
	}

	if err := h.playback.PlayNext(ctx, event.GuildID); err != nil {
		slog.Error(
			"failed to advance queue after track ended",
			"guild_id", event.GuildID,
			"error", err,
		)
	}
}

// NotificationEventHandler announces each started track in the guild's last
// used text channel.
type NotificationEventHandler struct {
	states     domain.StateRegistry
	subscriber ports.EventSubscriber
	notifier   ports.NotificationSender
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	states domain.StateRegistry,
	subscriber ports.EventSubscriber,
	notifier ports.NotificationSender,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		states:     states,
		subscriber: subscriber,
		notifier:   notifier,
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() {
	h.subscriber.OnPlaybackStarted(h.handlePlaybackStarted)

	slog.Debug("notification event handlers registered")
}

func (h *NotificationEventHandler) handlePlaybackStarted(_ context.Context, event domain.PlaybackStartedEvent) {
	state := h.states.Get(event.GuildID)
	if state == nil {
		return
	}

	text := fmt.Sprintf("Now playing: %s\n%s", event.Track.Title, event.Track.PageURL)
	h.notifier.NotifyGuild(event.GuildID, state.LastTextChannel(), text)
}
