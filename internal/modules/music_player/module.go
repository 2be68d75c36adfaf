package music_player

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"

	"github.com/harunoki/yukibot/internal/bot"
	"github.com/harunoki/yukibot/internal/modules/music_player/application"
	"github.com/harunoki/yukibot/internal/modules/music_player/application/usecases"
	"github.com/harunoki/yukibot/internal/modules/music_player/infrastructure"
	"github.com/harunoki/yukibot/internal/modules/music_player/presentation/discord"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.Module             = (*MusicPlayerModule)(nil)
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides per-guild queued music playback driven by
// prefix commands.
type MusicPlayerModule struct {
	config *Config

	handlers      *discord.Handlers
	voiceHandlers *discord.VoiceEventHandlers

	eventBus     *infrastructure.ChannelEventBus
	voiceManager *infrastructure.VoiceManager
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module. Playback is driven by
// prefix commands, so there are none.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return nil
}

// CommandHandlers returns the slash command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return nil
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.MessageCreate) {
			m.handlers.HandleMessageCreate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.InteractionCreate) {
			m.handlers.HandleInteractionCreate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.voiceHandlers.HandleVoiceStateUpdate(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init wires the module together.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("music_player module requires a Discord session")
	}

	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	registry := infrastructure.NewMemoryRegistry()
	m.voiceManager = infrastructure.NewVoiceManager(deps.Session, m.eventBus)
	notifier := infrastructure.NewNotifier(deps.Session)
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	resolver := infrastructure.NewYtdlpResolver()

	idleLeave := usecases.NewIdleLeaveService(
		registry,
		m.voiceManager,
		notifier,
		m.config.LeaveGraceEmptyChannel,
	)
	playback := usecases.NewPlaybackService(
		registry,
		m.voiceManager,
		m.eventBus,
		idleLeave,
		m.config.LeaveGraceQueueDrained,
		m.config.LeaveGraceStop,
	)
	search := usecases.NewSearchService(registry, resolver, playback, m.config.SearchLimit)

	application.NewPlaybackEventHandler(playback, m.eventBus).Start()
	application.NewNotificationEventHandler(registry, m.eventBus, notifier).Start()

	m.handlers = discord.NewHandlers(playback, search, resolver, voiceState, m.config.CommandPrefix)
	m.voiceHandlers = discord.NewVoiceEventHandlers(idleLeave)

	return nil
}

// Shutdown disconnects all voice sessions and stops the event bus.
func (m *MusicPlayerModule) Shutdown() error {
	if m.voiceManager != nil {
		m.voiceManager.Close()
	}
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	return nil
}
