package usecases

import (
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

const departureNotice = "Nobody's listening, so I'm heading out."

// IdleLeaveService disconnects the bot from voice channels nobody is
// listening to. At most one timer is pending per guild; rescheduling replaces
// the old timer, and a fired timer re-verifies the channel is still empty
// before acting.
type IdleLeaveService struct {
	states   domain.StateRegistry
	voice    ports.VoiceConnector
	notifier ports.NotificationSender

	// Grace used when a membership change leaves the channel empty.
	emptyChannelGrace time.Duration

	mu     sync.Mutex
	timers map[snowflake.ID]*time.Timer
}

// NewIdleLeaveService creates an IdleLeaveService.
func NewIdleLeaveService(
	states domain.StateRegistry,
	voice ports.VoiceConnector,
	notifier ports.NotificationSender,
	emptyChannelGrace time.Duration,
) *IdleLeaveService {
	return &IdleLeaveService{
		states:            states,
		voice:             voice,
		notifier:          notifier,
		emptyChannelGrace: emptyChannelGrace,
		timers:            map[snowflake.ID]*time.Timer{},
	}
}

// Schedule arms a departure for the guild after delay, replacing any pending
// timer. The departure only commits if the channel is still empty of humans
// when the timer fires; an active session does not block it, so a channel
// everyone walked out of is left even mid-track.
func (s *IdleLeaveService) Schedule(guildID snowflake.ID, delay time.Duration) {
	s.schedule(guildID, delay, false, true)
}

// ScheduleWhileIdle is Schedule for timers armed because playback went idle
// (queue drained, stop). Such a timer can outlive a Cancel racing in from a
// fresh enqueue, so it additionally abandons when a session turns out to be
// running at fire time.
func (s *IdleLeaveService) ScheduleWhileIdle(guildID snowflake.ID, delay time.Duration) {
	s.schedule(guildID, delay, true, true)
}

// ScheduleWhileIdleIfUnarmed is ScheduleWhileIdle except a pending timer is
// left in place. The drain that follows a stop command goes through here, so
// it cannot stretch the stop's shorter grace.
func (s *IdleLeaveService) ScheduleWhileIdleIfUnarmed(guildID snowflake.ID, delay time.Duration) {
	s.schedule(guildID, delay, true, false)
}

func (s *IdleLeaveService) schedule(guildID snowflake.ID, delay time.Duration, requireIdle, replace bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[guildID]; ok {
		if !replace {
			return
		}
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.fire(guildID, timer, requireIdle)
	})
	s.timers[guildID] = timer
}

// Cancel drops the pending timer if any. A timer that has already claimed its
// map entry in fire is past cancellation; this then does nothing.
func (s *IdleLeaveService) Cancel(guildID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[guildID]; ok {
		timer.Stop()
		delete(s.timers, guildID)
	}
}

// HandleMembershipChange reacts to a voice-state change in the guild. An
// empty channel arms the short grace; a human present cancels any pending
// departure. Safe to call repeatedly with the same observation.
func (s *IdleLeaveService) HandleMembershipChange(guildID snowflake.ID) {
	if !s.voice.IsConnected(guildID) {
		s.Cancel(guildID)
		return
	}
	if s.voice.HumanListeners(guildID) > 0 {
		s.Cancel(guildID)
		return
	}
	s.Schedule(guildID, s.emptyChannelGrace)
}

// fire runs on the timer goroutine. Claiming the map entry decides the race
// with Cancel and with a replacing Schedule: only the timer still registered
// for the guild may act, exactly once.
func (s *IdleLeaveService) fire(guildID snowflake.ID, self *time.Timer, requireIdle bool) {
	s.mu.Lock()
	if s.timers[guildID] != self {
		s.mu.Unlock()
		return
	}
	delete(s.timers, guildID)
	s.mu.Unlock()

	// Conditions may have changed during the delay; re-verify before acting.
	if !s.voice.IsConnected(guildID) {
		return
	}
	if s.voice.HumanListeners(guildID) > 0 {
		return
	}

	var lastChannel snowflake.ID
	if state := s.states.Get(guildID); state != nil {
		if requireIdle && state.IsActive() {
			return
		}
		lastChannel = state.LastTextChannel()
		state.Reset()
	}

	s.notifier.NotifyGuild(guildID, lastChannel, departureNotice)

	if err := s.voice.Leave(guildID); err != nil {
		slog.Warn("failed to leave voice channel", "guild_id", guildID, "error", err)
	}
	slog.Info("left idle voice channel", "guild_id", guildID)
}
