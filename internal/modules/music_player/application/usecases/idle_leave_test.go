package usecases

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestIdleLeaveService_FiresWhenChannelStaysEmpty(t *testing.T) {
	guildID := snowflake.ID(1)
	registry := newMockRegistry()
	voice := &mockVoice{connected: true}
	notifier := &mockNotifier{}
	service := NewIdleLeaveService(registry, voice, notifier, time.Hour)

	state := registry.GetOrCreate(guildID)
	state.SetLastTextChannel(snowflake.ID(42))
	state.EnqueueAndReserveStart(mockTrack("track-1"))

	service.Schedule(guildID, 10*time.Millisecond)

	if !waitFor(t, time.Second, func() bool { return voice.leaveCount() == 1 }) {
		t.Fatal("expected the bot to leave the voice channel")
	}
	if notifier.sentCount() != 1 {
		t.Errorf("expected 1 departure notice, got %d", notifier.sentCount())
	}
	if state.Current() != nil || state.QueueLen() != 0 || state.IsActive() {
		t.Error("expected player state to be reset on departure")
	}
}

func TestIdleLeaveService_CancelPreventsDeparture(t *testing.T) {
	guildID := snowflake.ID(1)
	registry := newMockRegistry()
	voice := &mockVoice{connected: true}
	notifier := &mockNotifier{}
	service := NewIdleLeaveService(registry, voice, notifier, time.Hour)

	service.Schedule(guildID, 20*time.Millisecond)
	service.Cancel(guildID)

	time.Sleep(80 * time.Millisecond)
	if voice.leaveCount() != 0 {
		t.Error("cancelled timer must not disconnect")
	}
	if notifier.sentCount() != 0 {
		t.Error("cancelled timer must not notify")
	}
}

func TestIdleLeaveService_FireRechecksConditions(t *testing.T) {
	guildID := snowflake.ID(1)

	t.Run("humans returned during the grace", func(t *testing.T) {
		registry := newMockRegistry()
		voice := &mockVoice{connected: true, listeners: 1}
		notifier := &mockNotifier{}
		service := NewIdleLeaveService(registry, voice, notifier, time.Hour)

		service.Schedule(guildID, 10*time.Millisecond)
		time.Sleep(80 * time.Millisecond)

		if voice.leaveCount() != 0 {
			t.Error("must not leave while a human is listening")
		}
	})

	t.Run("already disconnected", func(t *testing.T) {
		registry := newMockRegistry()
		voice := &mockVoice{}
		notifier := &mockNotifier{}
		service := NewIdleLeaveService(registry, voice, notifier, time.Hour)

		service.Schedule(guildID, 10*time.Millisecond)
		time.Sleep(80 * time.Millisecond)

		if voice.leaveCount() != 0 {
			t.Error("must not act on a dead connection")
		}
		if notifier.sentCount() != 0 {
			t.Error("must not notify when already disconnected")
		}
	})
}

func TestIdleLeaveService_ScheduleWhileIdle_AbandonsWhenSessionStarts(t *testing.T) {
	guildID := snowflake.ID(1)
	registry := newMockRegistry()
	voice := &mockVoice{connected: true}
	notifier := &mockNotifier{}
	service := NewIdleLeaveService(registry, voice, notifier, time.Hour)

	// The drain path arms this while idle; a fresh enqueue can start playback
	// after its Cancel was overtaken. The stale timer must not tear the new
	// session down.
	service.ScheduleWhileIdle(guildID, 10*time.Millisecond)
	registry.GetOrCreate(guildID).EnqueueAndReserveStart(mockTrack("track-1"))

	time.Sleep(80 * time.Millisecond)
	if voice.leaveCount() != 0 {
		t.Error("idle-armed timer must not disconnect a running session")
	}
	if notifier.sentCount() != 0 {
		t.Error("idle-armed timer must not notify while a session runs")
	}
}

func TestIdleLeaveService_RescheduleReplacesTimer(t *testing.T) {
	guildID := snowflake.ID(1)
	registry := newMockRegistry()
	voice := &mockVoice{connected: true}
	notifier := &mockNotifier{}
	service := NewIdleLeaveService(registry, voice, notifier, time.Hour)

	service.Schedule(guildID, 10*time.Millisecond)
	service.Schedule(guildID, 30*time.Millisecond)

	if !waitFor(t, time.Second, func() bool { return voice.leaveCount() > 0 }) {
		t.Fatal("expected the replacement timer to fire")
	}
	time.Sleep(80 * time.Millisecond)
	if got := voice.leaveCount(); got != 1 {
		t.Errorf("expected exactly one departure, got %d", got)
	}
}

func TestIdleLeaveService_HandleMembershipChange(t *testing.T) {
	guildID := snowflake.ID(1)

	t.Run("empty channel arms the short grace", func(t *testing.T) {
		registry := newMockRegistry()
		voice := &mockVoice{connected: true}
		notifier := &mockNotifier{}
		service := NewIdleLeaveService(registry, voice, notifier, 10*time.Millisecond)

		service.HandleMembershipChange(guildID)

		if !waitFor(t, time.Second, func() bool { return voice.leaveCount() == 1 }) {
			t.Fatal("expected departure after the empty-channel grace")
		}
	})

	t.Run("human present cancels a pending departure", func(t *testing.T) {
		registry := newMockRegistry()
		voice := &mockVoice{connected: true}
		notifier := &mockNotifier{}
		service := NewIdleLeaveService(registry, voice, notifier, 20*time.Millisecond)

		service.HandleMembershipChange(guildID)
		voice.mu.Lock()
		voice.listeners = 1
		voice.mu.Unlock()
		service.HandleMembershipChange(guildID)

		time.Sleep(80 * time.Millisecond)
		if voice.leaveCount() != 0 {
			t.Error("expected cancellation once a human joined")
		}
	})

	t.Run("not connected is a no-op", func(t *testing.T) {
		registry := newMockRegistry()
		voice := &mockVoice{}
		notifier := &mockNotifier{}
		service := NewIdleLeaveService(registry, voice, notifier, 10*time.Millisecond)

		service.HandleMembershipChange(guildID)

		time.Sleep(50 * time.Millisecond)
		if voice.leaveCount() != 0 {
			t.Error("expected no departure without a connection")
		}
	})
}
