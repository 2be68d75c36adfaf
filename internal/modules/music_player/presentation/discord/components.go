package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/usecases"
)

// Candidate buttons carry "music:pick:<searchID>:<index>" so a click can be
// matched against the list it was rendered for. Clicks on buttons from a
// superseded search fail as stale instead of resolving the wrong candidate.
const pickCustomIDPrefix = "music:pick:"

func pickCustomID(searchID uint64, index int) string {
	return fmt.Sprintf("%s%d:%d", pickCustomIDPrefix, searchID, index)
}

func parsePickCustomID(customID string) (searchID uint64, index int, ok bool) {
	rest, found := strings.CutPrefix(customID, pickCustomIDPrefix)
	if !found {
		return 0, 0, false
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	searchID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	index, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return searchID, index, true
}

// Discord allows at most five buttons per action row.
const buttonsPerRow = 5

// candidateButtons builds one numbered button per candidate, chunked into
// rows of five.
func candidateButtons(searchID uint64, count int) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var buttons []discordgo.MessageComponent
	for i := 1; i <= count; i++ {
		buttons = append(buttons, discordgo.Button{
			Label:    strconv.Itoa(i),
			Style:    discordgo.SecondaryButton,
			CustomID: pickCustomID(searchID, i),
		})
		if len(buttons) == buttonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: buttons})
			buttons = nil
		}
	}
	if len(buttons) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

// HandleInteractionCreate funnels candidate button clicks into the same
// selection path as the choose command.
func (h *Handlers) HandleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	searchID, index, ok := parsePickCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return
	}

	voiceChannelID, verr := h.voiceState.GetUserVoiceChannel(guildID, userID)
	if verr != nil || voiceChannelID == 0 {
		h.respond(s, i, errorText(usecases.ErrUserNotInVoice, h.prefix))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	out, err := h.search.Select(ctx, usecases.SelectInput{
		GuildID:        guildID,
		Index:          index,
		SearchID:       searchID,
		RequesterID:    userID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  channelID,
	})
	if err != nil {
		h.respond(s, i, errorText(err, h.prefix))
		return
	}

	if out.Started {
		h.resolveCandidateMessage(s, i, fmt.Sprintf("Playing **%s**.", out.Track.Title))
	} else {
		h.resolveCandidateMessage(s, i, fmt.Sprintf("Queued **%s** at position %d.", out.Track.Title, out.Position))
	}
}

// respond answers the click with a fresh message, leaving the candidate list
// and its buttons in place for another try.
func (h *Handlers) respond(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
		},
	})
	if err != nil {
		slog.Warn("failed to respond to interaction", "error", err)
	}
}

// resolveCandidateMessage replaces the candidate list with the outcome and
// strips the buttons, closing the selection.
func (h *Handlers) resolveCandidateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    text,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		slog.Warn("failed to update candidate message", "error", err)
	}
}
