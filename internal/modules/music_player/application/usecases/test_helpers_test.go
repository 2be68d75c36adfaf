package usecases

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

func mockTrack(title string) *domain.Track {
	t := domain.NewTrack("https://cdn.example.com/"+title, title, "https://example.com/watch?v="+title)
	t.RequesterID = snowflake.ID(123)
	return t
}

type mockRegistry struct {
	mu     sync.Mutex
	states map[snowflake.ID]*domain.PlayerState
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{states: make(map[snowflake.ID]*domain.PlayerState)}
}

func (m *mockRegistry) GetOrCreate(guildID snowflake.ID) *domain.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[guildID]; ok {
		return state
	}
	state := domain.NewPlayerState(guildID)
	m.states[guildID] = state
	return state
}

func (m *mockRegistry) Get(guildID snowflake.ID) *domain.PlayerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[guildID]
}

func (m *mockRegistry) Delete(guildID snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, guildID)
}

type mockVoice struct {
	mu sync.Mutex

	connected bool
	playing   bool
	paused    bool
	listeners int

	joinErr error
	playErr error

	joined  []snowflake.ID // channel IDs passed to Join
	played  []*domain.Track
	stopped int
	left    int
}

func (m *mockVoice) Join(_ context.Context, _, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.connected = true
	m.joined = append(m.joined, channelID)
	return nil
}

func (m *mockVoice) Leave(_ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.playing = false
	m.paused = false
	m.left++
	return nil
}

func (m *mockVoice) Play(_ snowflake.ID, track *domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	m.paused = false
	m.played = append(m.played, track)
	return nil
}

func (m *mockVoice) Pause(_ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = true
	return nil
}

func (m *mockVoice) Resume(_ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	m.paused = false
	return nil
}

func (m *mockVoice) Stop(_ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
	m.stopped++
	return nil
}

func (m *mockVoice) IsPlaying(_ snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *mockVoice) IsPaused(_ snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *mockVoice) IsConnected(_ snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockVoice) HumanListeners(_ snowflake.ID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listeners
}

func (m *mockVoice) leaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.left
}

type mockResolver struct {
	mu sync.Mutex

	resolveErr    error
	resolveResult *domain.Track
	searchErr     error
	searchResults []domain.Candidate

	resolved []string // queries passed to ResolveOne
}

func (m *mockResolver) ResolveOne(_ context.Context, queryOrPage string) (*domain.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolved = append(m.resolved, queryOrPage)
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	if m.resolveResult != nil {
		return m.resolveResult, nil
	}
	return mockTrack("resolved"), nil
}

func (m *mockResolver) SearchFlat(_ context.Context, _ string, _ int) ([]domain.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

type mockNotifier struct {
	mu       sync.Mutex
	sent     []string
	channels []snowflake.ID
}

func (m *mockNotifier) Send(channelID snowflake.ID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	m.channels = append(m.channels, channelID)
	return nil
}

func (m *mockNotifier) NotifyGuild(_, preferredChannelID snowflake.ID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	m.channels = append(m.channels, preferredChannelID)
}

func (m *mockNotifier) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type mockPublisher struct {
	mu              sync.Mutex
	trackEnded      []domain.TrackEndedEvent
	playbackStarted []domain.PlaybackStartedEvent
}

func (m *mockPublisher) PublishTrackEnded(event domain.TrackEndedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackEnded = append(m.trackEnded, event)
}

func (m *mockPublisher) PublishPlaybackStarted(event domain.PlaybackStartedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playbackStarted = append(m.playbackStarted, event)
}
