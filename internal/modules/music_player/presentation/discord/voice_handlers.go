package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/usecases"
)

// VoiceEventHandlers feeds voice membership changes into the idle-leave
// scheduler.
type VoiceEventHandlers struct {
	idleLeave *usecases.IdleLeaveService
}

// NewVoiceEventHandlers creates new VoiceEventHandlers.
func NewVoiceEventHandlers(idleLeave *usecases.IdleLeaveService) *VoiceEventHandlers {
	return &VoiceEventHandlers{idleLeave: idleLeave}
}

// HandleVoiceStateUpdate runs on every voice state change in a guild the bot
// can see. The idle-leave service decides whether the change matters; calling
// it with an unchanged observation is harmless.
func (h *VoiceEventHandlers) HandleVoiceStateUpdate(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.GuildID == "" {
		return
	}
	// The bot's own joins and leaves are driven by the services themselves.
	if s.State.User != nil && event.UserID == s.State.User.ID {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Warn("unparseable guild ID in voice state update", "guild_id", event.GuildID)
		return
	}

	h.idleLeave.HandleMembershipChange(guildID)
}
