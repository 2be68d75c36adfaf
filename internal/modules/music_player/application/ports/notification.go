package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// NotificationSender sends plain text notices to text channels.
type NotificationSender interface {
	// Send posts text to the given channel.
	Send(channelID snowflake.ID, text string) error

	// NotifyGuild posts text to the preferred channel, falling back to the
	// guild's system channel and then any writable text channel. Best-effort:
	// send failures are swallowed.
	NotifyGuild(guildID, preferredChannelID snowflake.ID, text string)
}
