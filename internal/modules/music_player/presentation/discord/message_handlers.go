package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
	"github.com/harunoki/yukibot/internal/modules/music_player/application/usecases"
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// Full resolution can hit the network several times.
const resolveTimeout = 60 * time.Second

// How long candidate buttons stay clickable before they are stripped from
// the message.
const candidateButtonLifetime = 60 * time.Second

// Handlers routes prefix commands and component interactions into the
// playback and search services.
type Handlers struct {
	playback   *usecases.PlaybackService
	search     *usecases.SearchService
	resolver   ports.TrackResolver
	voiceState ports.VoiceStateProvider
	prefix     string
}

// NewHandlers creates new Handlers.
func NewHandlers(
	playback *usecases.PlaybackService,
	search *usecases.SearchService,
	resolver ports.TrackResolver,
	voiceState ports.VoiceStateProvider,
	prefix string,
) *Handlers {
	return &Handlers{
		playback:   playback,
		search:     search,
		resolver:   resolver,
		voiceState: voiceState,
		prefix:     prefix,
	}
}

// HandleMessageCreate parses prefix commands out of guild messages.
func (h *Handlers) HandleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	cmd, args, ok := ParseCommand(h.prefix, m.Content)
	if !ok {
		return
	}

	ids, err := parseMessageIDs(m)
	if err != nil {
		slog.Warn("unparseable message IDs", "error", err)
		return
	}

	switch cmd {
	case CommandPlay:
		h.handlePlay(s, m, ids, args)
	case CommandChoose:
		h.handleChoose(s, m, ids, args)
	case CommandPause:
		h.replyResult(s, m, "Paused.", h.playback.Pause(ids.guildID))
	case CommandResume:
		h.replyResult(s, m, "Resumed.", h.playback.Resume(ids.guildID))
	case CommandSkip:
		h.handleSkip(s, m, ids)
	case CommandStop:
		h.handleStop(s, m, ids)
	case CommandNow:
		h.handleNow(s, m, ids)
	case CommandQueue:
		h.handleQueue(s, m, ids)
	}
}

type messageIDs struct {
	guildID   snowflake.ID
	channelID snowflake.ID
	authorID  snowflake.ID
}

func parseMessageIDs(m *discordgo.MessageCreate) (messageIDs, error) {
	guildID, err := snowflake.Parse(m.GuildID)
	if err != nil {
		return messageIDs{}, err
	}
	channelID, err := snowflake.Parse(m.ChannelID)
	if err != nil {
		return messageIDs{}, err
	}
	authorID, err := snowflake.Parse(m.Author.ID)
	if err != nil {
		return messageIDs{}, err
	}
	return messageIDs{guildID: guildID, channelID: channelID, authorID: authorID}, nil
}

func (h *Handlers) handlePlay(s *discordgo.Session, m *discordgo.MessageCreate, ids messageIDs, args string) {
	voiceChannelID, err := h.voiceState.GetUserVoiceChannel(ids.guildID, ids.authorID)
	if err != nil || voiceChannelID == 0 {
		h.reply(s, m, errorText(usecases.ErrUserNotInVoice, h.prefix))
		return
	}

	// No argument: play an attached file directly, no resolution needed.
	if args == "" {
		if len(m.Attachments) == 0 {
			h.reply(s, m, fmt.Sprintf("Give me a link or a search term, or attach an audio file: `%splay <query>`", h.prefix))
			return
		}
		attachment := m.Attachments[0]
		track := domain.NewTrack(attachment.URL, attachment.Filename, attachment.URL)
		h.enqueue(s, m, ids, voiceChannelID, track)
		return
	}

	query := domain.NewSearchQuery(args)

	if query.IsURL {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		track, err := h.resolver.ResolveOne(ctx, query.Query)
		if err != nil {
			slog.Warn("resolution failed", "query", query.Query, "error", err)
			h.reply(s, m, errorText(err, h.prefix))
			return
		}
		h.enqueue(s, m, ids, voiceChannelID, track)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	out, err := h.search.Search(ctx, usecases.SearchInput{
		GuildID:       ids.guildID,
		Query:         query.Query,
		TextChannelID: ids.channelID,
	})
	if err != nil {
		slog.Warn("search failed", "query", query.Query, "error", err)
		h.reply(s, m, errorText(err, h.prefix))
		return
	}

	h.sendCandidates(s, m, query.Query, out)
}

func (h *Handlers) enqueue(
	s *discordgo.Session,
	m *discordgo.MessageCreate,
	ids messageIDs,
	voiceChannelID snowflake.ID,
	track *domain.Track,
) {
	track.RequesterID = ids.authorID
	track.VoiceChannelID = voiceChannelID

	out, err := h.playback.EnqueueAndMaybeStart(context.Background(), usecases.EnqueueInput{
		GuildID:       ids.guildID,
		Track:         track,
		TextChannelID: ids.channelID,
	})
	if err != nil {
		h.reply(s, m, errorText(err, h.prefix))
		return
	}

	if out.Started {
		h.reply(s, m, fmt.Sprintf("Playing **%s**.", track.Title))
	} else {
		h.reply(s, m, fmt.Sprintf("Queued **%s** at position %d.", track.Title, out.Position))
	}
}

func (h *Handlers) handleChoose(s *discordgo.Session, m *discordgo.MessageCreate, ids messageIDs, args string) {
	index, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		h.reply(s, m, fmt.Sprintf("Tell me which number to play: `%schoose <number>`", h.prefix))
		return
	}

	voiceChannelID, verr := h.voiceState.GetUserVoiceChannel(ids.guildID, ids.authorID)
	if verr != nil || voiceChannelID == 0 {
		h.reply(s, m, errorText(usecases.ErrUserNotInVoice, h.prefix))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	out, err := h.search.Select(ctx, usecases.SelectInput{
		GuildID:        ids.guildID,
		Index:          index,
		RequesterID:    ids.authorID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  ids.channelID,
	})
	if err != nil {
		h.reply(s, m, errorText(err, h.prefix))
		return
	}

	if out.Started {
		h.reply(s, m, fmt.Sprintf("Playing **%s**.", out.Track.Title))
	} else {
		h.reply(s, m, fmt.Sprintf("Queued **%s** at position %d.", out.Track.Title, out.Position))
	}
}

func (h *Handlers) handleSkip(s *discordgo.Session, m *discordgo.MessageCreate, ids messageIDs) {
	skipped, err := h.playback.Skip(ids.guildID)
	if err != nil {
		h.reply(s, m, errorText(err, h.prefix))
		return
	}
	h.reply(s, m, fmt.Sprintf("Skipped **%s**.", skipped.Title))
}

func (h *Handlers) handleStop(s *discordgo.Session, m *discordgo.MessageCreate, ids messageIDs) {
	cleared, err := h.playback.Stop(ids.guildID)
	if err != nil {
		h.reply(s, m, errorText(err, h.prefix))
		return
	}
	switch cleared {
	case 0:
		h.reply(s, m, "Stopped.")
	case 1:
		h.reply(s, m, "Stopped and dropped 1 queued track.")
	default:
		h.reply(s, m, fmt.Sprintf("Stopped and dropped %d queued tracks.", cleared))
	}
}

func (h *Handlers) handleNow(s *discordgo.Session, m *discordgo.MessageCreate, ids messageIDs) {
	current, err := h.playback.NowPlaying(ids.guildID)
	if err != nil {
		h.reply(s, m, errorText(err, h.prefix))
		return
	}
	h.reply(s, m, fmt.Sprintf("Now playing: **%s**\n%s", current.Title, current.PageURL))
}

func (h *Handlers) handleQueue(s *discordgo.Session, m *discordgo.MessageCreate, ids messageIDs) {
	pending := h.playback.Queue(ids.guildID)
	if len(pending) == 0 {
		h.reply(s, m, "The queue is empty.")
		return
	}

	var b strings.Builder
	b.WriteString("Up next:\n")
	for i, track := range pending {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncateTitle(track.Title))
	}
	h.reply(s, m, b.String())
}

func (h *Handlers) sendCandidates(
	s *discordgo.Session,
	m *discordgo.MessageCreate,
	query string,
	out *usecases.SearchOutput,
) {
	var b strings.Builder
	fmt.Fprintf(&b, "Results for **%s**:\n", query)
	for i, candidate := range out.Candidates {
		fmt.Fprintf(&b, "%d. %s", i+1, truncateTitle(candidate.Title))
		if meta := candidateMeta(candidate); meta != "" {
			fmt.Fprintf(&b, " (%s)", meta)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Pick one with the buttons or `%schoose <number>`.", h.prefix)

	msg, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:    b.String(),
		Components: candidateButtons(out.SearchID, len(out.Candidates)),
		Reference:  m.Reference(),
	})
	if err != nil {
		slog.Warn("failed to send candidate list", "error", err)
		return
	}

	// Strip the buttons once the selection window closes. The message and
	// the stored candidates stay; text selection still works.
	time.AfterFunc(candidateButtonLifetime, func() {
		empty := []discordgo.MessageComponent{}
		_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         msg.ID,
			Channel:    msg.ChannelID,
			Components: &empty,
		})
		if err != nil {
			slog.Debug("failed to expire candidate buttons", "error", err)
		}
	})
}

// Long titles are cut so a full candidate list stays readable in one message.
const candidateTitleLimit = 70

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= candidateTitleLimit {
		return title
	}
	return string(runes[:candidateTitleLimit-1]) + "…"
}

func candidateMeta(c domain.Candidate) string {
	duration := c.FormattedDuration()
	switch {
	case c.Channel != "" && duration != "":
		return c.Channel + " • " + duration
	case c.Channel != "":
		return c.Channel
	default:
		return duration
	}
}

// reply answers the invoking message. Failures are logged, never propagated;
// a reply that cannot be delivered must not break command handling.
func (h *Handlers) reply(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); err != nil {
		slog.Warn("failed to send reply", "channel_id", m.ChannelID, "error", err)
	}
}

// replyResult replies with okText on success or the mapped error text.
func (h *Handlers) replyResult(s *discordgo.Session, m *discordgo.MessageCreate, okText string, err error) {
	if err != nil {
		h.reply(s, m, errorText(err, h.prefix))
		return
	}
	h.reply(s, m, okText)
}

// errorText converts a service error into a reply. Unknown errors get a
// generic message; the details live in the log.
func errorText(err error, prefix string) string {
	switch {
	case errors.Is(err, usecases.ErrUserNotInVoice):
		return "Join a voice channel first."
	case errors.Is(err, usecases.ErrNotPlaying):
		return "Nothing is playing."
	case errors.Is(err, usecases.ErrAlreadyPaused):
		return "Playback is already paused."
	case errors.Is(err, usecases.ErrNotPaused):
		return "Playback isn't paused."
	case errors.Is(err, usecases.ErrNothingToSkip):
		return "Nothing to skip."
	case errors.Is(err, usecases.ErrSelectionInProgress):
		return "Hold on, I'm still working on the previous selection."
	case errors.Is(err, usecases.ErrNoPendingSearch):
		return fmt.Sprintf("There's nothing to choose from. Search first with `%splay <query>`.", prefix)
	case errors.Is(err, usecases.ErrInvalidSelection):
		return "That number isn't in the list."
	case errors.Is(err, usecases.ErrStaleSelection):
		return "Those results are outdated. Search again."
	case errors.Is(err, ports.ErrNoResults):
		return "No results found."
	case errors.Is(err, ports.ErrNoStream):
		return "I couldn't find a playable audio stream for that."
	default:
		return "Something went wrong while processing that."
	}
}
