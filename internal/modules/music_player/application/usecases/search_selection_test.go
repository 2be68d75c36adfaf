package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

func mockCandidates(titles ...string) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(titles))
	for _, title := range titles {
		candidates = append(candidates, domain.Candidate{
			Title:   title,
			PageURL: "https://example.com/watch?v=" + title,
		})
	}
	return candidates
}

func newTestSearchService(
	registry *mockRegistry,
	resolver *mockResolver,
	voice *mockVoice,
) *SearchService {
	notifier := &mockNotifier{}
	idleLeave := NewIdleLeaveService(registry, voice, notifier, time.Hour)
	playback := NewPlaybackService(registry, voice, &mockPublisher{}, idleLeave, time.Hour, time.Hour)
	return NewSearchService(registry, resolver, playback, 5)
}

func TestSearchService_Search(t *testing.T) {
	guildID := snowflake.ID(1)

	t.Run("stores candidates for later selection", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{searchResults: mockCandidates("a", "b", "c")}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})

		out, err := service.Search(context.Background(), SearchInput{GuildID: guildID, Query: "some song"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out.Candidates) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(out.Candidates))
		}

		stored, searchID := registry.Get(guildID).Candidates()
		if len(stored) != 3 {
			t.Errorf("expected candidates to be stored, got %d", len(stored))
		}
		if searchID != out.SearchID {
			t.Errorf("stored search ID %d does not match output %d", searchID, out.SearchID)
		}
	})

	t.Run("new search replaces the previous list", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{searchResults: mockCandidates("a", "b")}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})

		first, err := service.Search(context.Background(), SearchInput{GuildID: guildID, Query: "first"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := service.Search(context.Background(), SearchInput{GuildID: guildID, Query: "second"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.SearchID <= first.SearchID {
			t.Errorf("expected a newer search ID, got %d then %d", first.SearchID, second.SearchID)
		}
	})

	t.Run("resolver failure propagates", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{searchErr: errors.New("upstream down")}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})

		if _, err := service.Search(context.Background(), SearchInput{GuildID: guildID, Query: "x"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSearchService_Select(t *testing.T) {
	guildID := snowflake.ID(1)

	search := func(t *testing.T, service *SearchService) uint64 {
		t.Helper()
		out, err := service.Search(context.Background(), SearchInput{GuildID: guildID, Query: "q"})
		if err != nil {
			t.Fatalf("unexpected search error: %v", err)
		}
		return out.SearchID
	}

	t.Run("resolves the chosen candidate and enqueues once", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{searchResults: mockCandidates("a", "b", "c")}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})
		searchID := search(t, service)

		out, err := service.Select(context.Background(), SelectInput{
			GuildID:     guildID,
			Index:       2,
			SearchID:    searchID,
			RequesterID: snowflake.ID(7),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.Started {
			t.Error("expected selection into an idle guild to start playback")
		}
		if len(resolver.resolved) != 1 || resolver.resolved[0] != "https://example.com/watch?v=b" {
			t.Errorf("expected full resolution of candidate b, got %v", resolver.resolved)
		}
		if out.Track.RequesterID != snowflake.ID(7) {
			t.Errorf("expected requester to be stamped, got %d", out.Track.RequesterID)
		}

		if stored, _ := registry.Get(guildID).Candidates(); stored != nil {
			t.Error("expected candidates to be cleared after a successful selection")
		}
	})

	t.Run("no pending search", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})

		_, err := service.Select(context.Background(), SelectInput{GuildID: guildID, Index: 1})
		if !errors.Is(err, ErrNoPendingSearch) {
			t.Errorf("expected ErrNoPendingSearch, got %v", err)
		}
	})

	t.Run("index out of range", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{searchResults: mockCandidates("a", "b")}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})
		search(t, service)

		for _, index := range []int{0, -1, 3} {
			if _, err := service.Select(context.Background(), SelectInput{
				GuildID: guildID,
				Index:   index,
			}); !errors.Is(err, ErrInvalidSelection) {
				t.Errorf("index %d: expected ErrInvalidSelection, got %v", index, err)
			}
		}
	})

	t.Run("stale search ID is rejected", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{searchResults: mockCandidates("a", "b")}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})
		oldID := search(t, service)
		search(t, service) // replaces the list

		_, err := service.Select(context.Background(), SelectInput{
			GuildID:  guildID,
			Index:    1,
			SearchID: oldID,
		})
		if !errors.Is(err, ErrStaleSelection) {
			t.Errorf("expected ErrStaleSelection, got %v", err)
		}
		if len(resolver.resolved) != 0 {
			t.Error("stale selection must never resolve the old candidate")
		}
	})

	t.Run("resolution failure keeps the candidate list for a retry", func(t *testing.T) {
		registry := newMockRegistry()
		resolver := &mockResolver{
			searchResults: mockCandidates("a", "b"),
			resolveErr:    errors.New("extraction failed"),
		}
		service := newTestSearchService(registry, resolver, &mockVoice{connected: true})
		search(t, service)

		if _, err := service.Select(context.Background(), SelectInput{GuildID: guildID, Index: 1}); err == nil {
			t.Fatal("expected error")
		}
		if stored, _ := registry.Get(guildID).Candidates(); len(stored) != 2 {
			t.Error("expected candidates to survive a failed resolution")
		}

		// Retrying with another index must work once the resolver recovers.
		resolver.mu.Lock()
		resolver.resolveErr = nil
		resolver.mu.Unlock()
		if _, err := service.Select(context.Background(), SelectInput{GuildID: guildID, Index: 2}); err != nil {
			t.Fatalf("unexpected retry error: %v", err)
		}
	})

	t.Run("concurrent selections: exactly one proceeds", func(t *testing.T) {
		registry := newMockRegistry()
		resolveStarted := make(chan struct{})
		resolveRelease := make(chan struct{})
		resolver := &blockingResolver{
			candidates: mockCandidates("a", "b"),
			started:    resolveStarted,
			release:    resolveRelease,
		}

		notifier := &mockNotifier{}
		voice := &mockVoice{connected: true}
		idleLeave := NewIdleLeaveService(registry, voice, notifier, time.Hour)
		playback := NewPlaybackService(registry, voice, &mockPublisher{}, idleLeave, time.Hour, time.Hour)
		service := NewSearchService(registry, resolver, playback, 5)

		if _, err := service.Search(context.Background(), SearchInput{GuildID: guildID, Query: "q"}); err != nil {
			t.Fatalf("unexpected search error: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(1)
		var firstErr error
		go func() {
			defer wg.Done()
			_, firstErr = service.Select(context.Background(), SelectInput{GuildID: guildID, Index: 1})
		}()

		<-resolveStarted
		// The first selection is parked inside resolution; a second one must
		// be rejected immediately, not queued.
		_, err := service.Select(context.Background(), SelectInput{GuildID: guildID, Index: 2})
		if !errors.Is(err, ErrSelectionInProgress) {
			t.Errorf("expected ErrSelectionInProgress, got %v", err)
		}

		close(resolveRelease)
		wg.Wait()
		if firstErr != nil {
			t.Fatalf("unexpected error from first selection: %v", firstErr)
		}

		// The guard must be released for later selections.
		if !registry.Get(guildID).BeginSelection() {
			t.Error("expected the in-flight guard to be clear")
		}
	})
}

// blockingResolver parks ResolveOne until released, to hold a selection in
// flight while the test exercises the guard.
type blockingResolver struct {
	candidates []domain.Candidate
	started    chan struct{}
	release    chan struct{}
	once       sync.Once
}

func (b *blockingResolver) ResolveOne(_ context.Context, _ string) (*domain.Track, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return mockTrack("resolved"), nil
}

func (b *blockingResolver) SearchFlat(_ context.Context, _ string, _ int) ([]domain.Candidate, error) {
	return b.candidates, nil
}
