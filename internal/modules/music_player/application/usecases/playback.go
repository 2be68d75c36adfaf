package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// PlaybackService owns the play-next loop: enqueueing, advancing through the
// queue on track completion and the pause/resume/skip/stop controls.
//
// Queue advancement is driven by TrackEndedEvents. The event bus dispatches
// them on a single goroutine, so at most one PlayNext runs per guild at a
// time; command handlers never advance the queue themselves beyond the
// initial start reserved by EnqueueAndReserveStart.
type PlaybackService struct {
	states    domain.StateRegistry
	voice     ports.VoiceConnector
	publisher ports.EventPublisher
	idleLeave *IdleLeaveService

	// Grace before auto-leave after the queue drains or playback is stopped.
	drainedGrace time.Duration
	stopGrace    time.Duration
}

// NewPlaybackService creates a PlaybackService.
func NewPlaybackService(
	states domain.StateRegistry,
	voice ports.VoiceConnector,
	publisher ports.EventPublisher,
	idleLeave *IdleLeaveService,
	drainedGrace time.Duration,
	stopGrace time.Duration,
) *PlaybackService {
	return &PlaybackService{
		states:       states,
		voice:        voice,
		publisher:    publisher,
		idleLeave:    idleLeave,
		drainedGrace: drainedGrace,
		stopGrace:    stopGrace,
	}
}

// EnqueueInput carries a fully resolved track and its request context.
type EnqueueInput struct {
	GuildID       snowflake.ID
	Track         *domain.Track
	TextChannelID snowflake.ID
}

// EnqueueOutput reports where the track landed.
type EnqueueOutput struct {
	// Position is the track's 1-based queue position at enqueue time.
	Position int
	// Started is true when this enqueue started playback rather than queueing
	// behind a running session.
	Started bool
}

// EnqueueAndMaybeStart appends the track to the guild's queue and starts the
// play-next loop if none is running. Exactly one of any number of concurrent
// enqueues into an idle guild starts the loop.
func (s *PlaybackService) EnqueueAndMaybeStart(ctx context.Context, input EnqueueInput) (*EnqueueOutput, error) {
	state := s.states.GetOrCreate(input.GuildID)
	if input.TextChannelID != 0 {
		state.SetLastTextChannel(input.TextChannelID)
	}

	position, start := state.EnqueueAndReserveStart(input.Track)
	s.idleLeave.Cancel(input.GuildID)

	if start {
		if err := s.PlayNext(ctx, input.GuildID); err != nil {
			return nil, err
		}
	}
	return &EnqueueOutput{Position: position, Started: start}, nil
}

// PlayNext advances the queue: it pops the next track and starts streaming
// it, or marks the guild idle and arms the auto-leave timer when the queue
// is empty. Called once to start the loop and then once per TrackEndedEvent.
func (s *PlaybackService) PlayNext(ctx context.Context, guildID snowflake.ID) error {
	state := s.states.GetOrCreate(guildID)

	track := state.AdvanceToNext()
	if track == nil {
		if s.voice.IsConnected(guildID) && s.voice.HumanListeners(guildID) == 0 {
			s.idleLeave.ScheduleWhileIdleIfUnarmed(guildID, s.drainedGrace)
		}
		return nil
	}
	s.idleLeave.Cancel(guildID)

	if !s.voice.IsConnected(guildID) {
		if track.VoiceChannelID == 0 {
			slog.Warn("dropping track with no voice channel to rejoin",
				"guild_id", guildID, "title", track.Title)
			s.publisher.PublishTrackEnded(domain.TrackEndedEvent{GuildID: guildID})
			return ErrUserNotInVoice
		}
		if err := s.voice.Join(ctx, guildID, track.VoiceChannelID); err != nil {
			slog.Error("failed to join voice channel",
				"guild_id", guildID, "channel_id", track.VoiceChannelID, "error", err)
			s.publisher.PublishTrackEnded(domain.TrackEndedEvent{GuildID: guildID, Err: err})
			return err
		}
	}

	if err := s.voice.Play(guildID, track); err != nil {
		slog.Error("failed to start stream",
			"guild_id", guildID, "title", track.Title, "error", err)
		// Report the failure as a completion so the loop moves on to the
		// next track instead of stalling with the reservation held.
		s.publisher.PublishTrackEnded(domain.TrackEndedEvent{GuildID: guildID, Err: err})
		return err
	}

	s.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{GuildID: guildID, Track: track})
	return nil
}

// Pause suspends the current stream.
func (s *PlaybackService) Pause(guildID snowflake.ID) error {
	if s.voice.IsPaused(guildID) {
		return ErrAlreadyPaused
	}
	if !s.voice.IsPlaying(guildID) {
		return ErrNotPlaying
	}
	return s.voice.Pause(guildID)
}

// Resume continues a paused stream.
func (s *PlaybackService) Resume(guildID snowflake.ID) error {
	if !s.voice.IsPaused(guildID) {
		return ErrNotPaused
	}
	return s.voice.Resume(guildID)
}

// Skip aborts the current stream. The aborted session reports a
// TrackEndedEvent, which is what advances the queue; Skip itself never pops.
func (s *PlaybackService) Skip(guildID snowflake.ID) (*domain.Track, error) {
	state := s.states.GetOrCreate(guildID)

	skipped := state.Current()
	if skipped == nil || (!s.voice.IsPlaying(guildID) && !s.voice.IsPaused(guildID)) {
		return nil, ErrNothingToSkip
	}
	if err := s.voice.Stop(guildID); err != nil {
		return nil, err
	}
	return skipped, nil
}

// Stop clears the queue and aborts the current stream, then arms a short
// auto-leave grace. Returns how many pending tracks were dropped.
func (s *PlaybackService) Stop(guildID snowflake.ID) (int, error) {
	state := s.states.GetOrCreate(guildID)

	cleared := state.ClearQueue()
	if s.voice.IsPlaying(guildID) || s.voice.IsPaused(guildID) {
		if err := s.voice.Stop(guildID); err != nil {
			return cleared, err
		}
	}
	if s.voice.IsConnected(guildID) && s.voice.HumanListeners(guildID) == 0 {
		s.idleLeave.ScheduleWhileIdle(guildID, s.stopGrace)
	}
	return cleared, nil
}

// NowPlaying returns the track currently playing or paused.
func (s *PlaybackService) NowPlaying(guildID snowflake.ID) (*domain.Track, error) {
	state := s.states.GetOrCreate(guildID)

	current := state.Current()
	if current == nil {
		return nil, ErrNotPlaying
	}
	return current, nil
}

// Queue returns the pending tracks in playback order. Empty is not an error.
func (s *PlaybackService) Queue(guildID snowflake.ID) []*domain.Track {
	return s.states.GetOrCreate(guildID).QueueSnapshot()
}
