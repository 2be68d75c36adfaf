package infrastructure

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"layeh.com/gopus"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// 48kHz stereo, 20ms opus frames.
const (
	sampleRate     = 48000
	audioChannels  = 2
	frameSamples   = 960
	frameBytes     = frameSamples * audioChannels * 2 // s16le
	maxOpusBytes   = 4000
	pausePollDelay = 20 * time.Millisecond
)

// ErrVoiceNotConnected is returned when a playback command arrives for a
// guild with no voice connection.
var ErrVoiceNotConnected = errors.New("not connected to a voice channel")

// ErrStreamActive is returned when Play is called while a stream is running.
var ErrStreamActive = errors.New("a stream is already active")

// ErrNoActiveStream is returned by stream controls when nothing is streaming.
var ErrNoActiveStream = errors.New("no active stream")

// VoiceManager owns the per-guild Discord voice connections and the
// ffmpeg-to-opus audio pipe. Every stream, however it ends, publishes exactly
// one TrackEndedEvent; queue advancement happens on the event bus, never on
// the streaming goroutine.
type VoiceManager struct {
	session   *discordgo.Session
	publisher ports.EventPublisher

	mu    sync.Mutex
	conns map[snowflake.ID]*guildVoice
}

type guildVoice struct {
	conn   *discordgo.VoiceConnection
	stream *voiceStream
}

type voiceStream struct {
	cancel context.CancelFunc
	paused atomic.Bool
	done   chan struct{}
}

// NewVoiceManager creates a VoiceManager.
func NewVoiceManager(session *discordgo.Session, publisher ports.EventPublisher) *VoiceManager {
	return &VoiceManager{
		session:   session,
		publisher: publisher,
		conns:     make(map[snowflake.ID]*guildVoice),
	}
}

// Join connects the bot to the voice channel, or moves it if it is already
// connected elsewhere in the guild.
func (v *VoiceManager) Join(ctx context.Context, guildID, channelID snowflake.ID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if gv, ok := v.conns[guildID]; ok && gv.conn != nil && gv.conn.ChannelID == channelID.String() {
		return nil
	}

	conn, err := v.session.ChannelVoiceJoin(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return err
	}
	v.conns[guildID] = &guildVoice{conn: conn}

	slog.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)
	return nil
}

// Leave aborts any active stream and disconnects. The aborted stream still
// reports its TrackEndedEvent.
func (v *VoiceManager) Leave(guildID snowflake.ID) error {
	v.mu.Lock()
	gv, ok := v.conns[guildID]
	if !ok {
		v.mu.Unlock()
		return nil
	}
	delete(v.conns, guildID)
	stream := gv.stream
	v.mu.Unlock()

	if stream != nil {
		stream.cancel()
		<-stream.done
	}
	err := gv.conn.Disconnect()

	slog.Info("left voice channel", "guild_id", guildID)
	return err
}

// Play starts streaming the track's audio endpoint on a dedicated goroutine
// and returns immediately. Completion is reported via TrackEndedEvent.
func (v *VoiceManager) Play(guildID snowflake.ID, track *domain.Track) error {
	v.mu.Lock()
	gv, ok := v.conns[guildID]
	if !ok {
		v.mu.Unlock()
		return ErrVoiceNotConnected
	}
	if gv.stream != nil {
		select {
		case <-gv.stream.done:
			// Previous stream finished; its event is already on the bus.
		default:
			v.mu.Unlock()
			return ErrStreamActive
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream := &voiceStream{cancel: cancel, done: make(chan struct{})}
	gv.stream = stream
	conn := gv.conn
	v.mu.Unlock()

	go v.run(ctx, guildID, conn, stream, track)
	return nil
}

func (v *VoiceManager) run(
	ctx context.Context,
	guildID snowflake.ID,
	conn *discordgo.VoiceConnection,
	stream *voiceStream,
	track *domain.Track,
) {
	var streamErr error
	defer func() {
		close(stream.done)
		v.mu.Lock()
		if gv, ok := v.conns[guildID]; ok && gv.stream == stream {
			gv.stream = nil
		}
		v.mu.Unlock()

		if errors.Is(streamErr, context.Canceled) {
			streamErr = nil
		}
		v.publisher.PublishTrackEnded(domain.TrackEndedEvent{GuildID: guildID, Err: streamErr})
	}()

	slog.Info("starting stream", "guild_id", guildID, "title", track.Title)
	streamErr = v.pipe(ctx, conn, stream, track.StreamURL)
}

// pipe decodes the stream URL with ffmpeg and pushes 20ms opus frames into
// the voice connection until the source drains or ctx is cancelled.
func (v *VoiceManager) pipe(
	ctx context.Context,
	conn *discordgo.VoiceConnection,
	stream *voiceStream,
	streamURL string,
) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-i", streamURL,
		"-vn",
		"-ac", "2",
		"-ar", "48000",
		"-f", "s16le",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	encoder, err := gopus.NewEncoder(sampleRate, audioChannels, gopus.Audio)
	if err != nil {
		return err
	}

	if err := conn.Speaking(true); err != nil {
		slog.Warn("failed to set speaking state", "error", err)
	}
	defer func() {
		if err := conn.Speaking(false); err != nil {
			slog.Warn("failed to clear speaking state", "error", err)
		}
	}()

	raw := make([]byte, frameBytes)
	pcm := make([]int16, frameSamples*audioChannels)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if stream.paused.Load() {
			time.Sleep(pausePollDelay)
			continue
		}

		_, err := io.ReadFull(stdout, raw)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
		}
		frame, err := encoder.Encode(pcm, frameSamples, maxOpusBytes)
		if err != nil {
			return err
		}

		select {
		case conn.OpusSend <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pause suspends the active stream. The decoder keeps its place; ffmpeg
// stalls on its stdout buffer until resumed.
func (v *VoiceManager) Pause(guildID snowflake.ID) error {
	stream, err := v.activeStream(guildID)
	if err != nil {
		return err
	}
	stream.paused.Store(true)
	return nil
}

// Resume continues a paused stream.
func (v *VoiceManager) Resume(guildID snowflake.ID) error {
	stream, err := v.activeStream(guildID)
	if err != nil {
		return err
	}
	stream.paused.Store(false)
	return nil
}

// Stop aborts the active stream. The stream goroutine publishes the
// TrackEndedEvent on its way out.
func (v *VoiceManager) Stop(guildID snowflake.ID) error {
	stream, err := v.activeStream(guildID)
	if err != nil {
		return err
	}
	stream.cancel()
	return nil
}

func (v *VoiceManager) activeStream(guildID snowflake.ID) (*voiceStream, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	gv, ok := v.conns[guildID]
	if !ok {
		return nil, ErrVoiceNotConnected
	}
	if gv.stream == nil {
		return nil, ErrNoActiveStream
	}
	return gv.stream, nil
}

// IsPlaying reports whether a stream is active and not paused.
func (v *VoiceManager) IsPlaying(guildID snowflake.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	gv, ok := v.conns[guildID]
	return ok && gv.stream != nil && !gv.stream.paused.Load()
}

// IsPaused reports whether a stream is active and paused.
func (v *VoiceManager) IsPaused(guildID snowflake.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	gv, ok := v.conns[guildID]
	return ok && gv.stream != nil && gv.stream.paused.Load()
}

// IsConnected reports whether the bot holds a voice connection for the guild.
func (v *VoiceManager) IsConnected(guildID snowflake.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.conns[guildID]
	return ok
}

// HumanListeners counts non-bot members in the bot's current voice channel,
// read from the session's state cache. Returns 0 when not connected.
func (v *VoiceManager) HumanListeners(guildID snowflake.ID) int {
	v.mu.Lock()
	gv, ok := v.conns[guildID]
	v.mu.Unlock()
	if !ok || gv.conn == nil {
		return 0
	}
	channelID := gv.conn.ChannelID

	guild, err := v.session.State.Guild(guildID.String())
	if err != nil {
		return 0
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if vs.UserID == v.session.State.User.ID {
			continue
		}
		member, err := v.session.State.Member(guildID.String(), vs.UserID)
		if err == nil && member.User != nil && member.User.Bot {
			continue
		}
		count++
	}
	return count
}

// Close disconnects every guild. Used on module shutdown.
func (v *VoiceManager) Close() {
	v.mu.Lock()
	guildIDs := make([]snowflake.ID, 0, len(v.conns))
	for guildID := range v.conns {
		guildIDs = append(guildIDs, guildID)
	}
	v.mu.Unlock()

	for _, guildID := range guildIDs {
		if err := v.Leave(guildID); err != nil {
			slog.Warn("failed to disconnect on shutdown", "guild_id", guildID, "error", err)
		}
	}
}

// Ensure VoiceManager implements ports.VoiceConnector.
var _ ports.VoiceConnector = (*VoiceManager)(nil)
