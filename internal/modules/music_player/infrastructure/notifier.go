package infrastructure

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
)

// Notifier sends plain text notices to Discord channels.
type Notifier struct {
	session *discordgo.Session
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
	}
}

// Send posts text to the given channel.
func (n *Notifier) Send(channelID snowflake.ID, text string) error {
	_, err := n.session.ChannelMessageSend(channelID.String(), text)
	return err
}

// NotifyGuild posts text to the preferred channel if it is known and
// writable, then falls back to the guild's system channel and finally to the
// first text channel the bot can send to. Best-effort: if every channel
// refuses the send, the notice is dropped with a log entry.
func (n *Notifier) NotifyGuild(guildID, preferredChannelID snowflake.ID, text string) {
	if preferredChannelID != 0 {
		if err := n.Send(preferredChannelID, text); err == nil {
			return
		}
	}

	guild, err := n.session.State.Guild(guildID.String())
	if err != nil {
		slog.Warn("guild not in state cache, dropping notification", "guild_id", guildID)
		return
	}

	if guild.SystemChannelID != "" {
		if _, err := n.session.ChannelMessageSend(guild.SystemChannelID, text); err == nil {
			return
		}
	}

	for _, channel := range guild.Channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if _, err := n.session.ChannelMessageSend(channel.ID, text); err == nil {
			return
		}
	}

	slog.Warn("no writable text channel found, dropping notification", "guild_id", guildID)
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
