package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// SearchService implements the two-phase search flow: a fast flat search
// stores lightweight candidates for the guild, and a later selection fully
// resolves exactly one of them into the queue.
type SearchService struct {
	states      domain.StateRegistry
	resolver    ports.TrackResolver
	playback    *PlaybackService
	searchLimit int
}

// NewSearchService creates a SearchService. searchLimit caps the candidate
// list length.
func NewSearchService(
	states domain.StateRegistry,
	resolver ports.TrackResolver,
	playback *PlaybackService,
	searchLimit int,
) *SearchService {
	return &SearchService{
		states:      states,
		resolver:    resolver,
		playback:    playback,
		searchLimit: searchLimit,
	}
}

// SearchInput identifies the guild and the free-text query.
type SearchInput struct {
	GuildID       snowflake.ID
	Query         string
	TextChannelID snowflake.ID
}

// SearchOutput carries the stored candidates and the ID selections must
// present to prove they refer to this list and not an older one.
type SearchOutput struct {
	Candidates []domain.Candidate
	SearchID   uint64
}

// Search runs a flat search and stores the results as the guild's pending
// candidates, replacing any prior list wholesale.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	state := s.states.GetOrCreate(input.GuildID)
	if input.TextChannelID != 0 {
		state.SetLastTextChannel(input.TextChannelID)
	}

	candidates, err := s.resolver.SearchFlat(ctx, input.Query, s.searchLimit)
	if err != nil {
		return nil, err
	}

	searchID := state.SetCandidates(candidates)
	return &SearchOutput{Candidates: candidates, SearchID: searchID}, nil
}

// SelectInput identifies one candidate of a stored list.
type SelectInput struct {
	GuildID snowflake.ID
	// Index is 1-based into the candidate list.
	Index int
	// SearchID pins the selection to a specific list; 0 accepts whatever list
	// is current. Button interactions carry the ID, text commands pass 0.
	SearchID       uint64
	RequesterID    snowflake.ID
	VoiceChannelID snowflake.ID
	TextChannelID  snowflake.ID
}

// SelectOutput reports the resolved track and where it landed in the queue.
type SelectOutput struct {
	Track    *domain.Track
	Position int
	Started  bool
}

// Select resolves the chosen candidate and enqueues it exactly once. A second
// selection arriving while one is being resolved is rejected immediately, and
// a selection against a list a newer search has replaced is rejected as stale.
// On resolution failure the candidate list is left in place for a retry.
func (s *SearchService) Select(ctx context.Context, input SelectInput) (*SelectOutput, error) {
	state := s.states.GetOrCreate(input.GuildID)

	if !state.BeginSelection() {
		return nil, ErrSelectionInProgress
	}
	defer state.EndSelection()

	candidates, searchID := state.Candidates()
	if candidates == nil {
		return nil, ErrNoPendingSearch
	}
	if input.SearchID != 0 && input.SearchID != searchID {
		return nil, ErrStaleSelection
	}
	if input.Index < 1 || input.Index > len(candidates) {
		return nil, ErrInvalidSelection
	}
	chosen := candidates[input.Index-1]

	// Full resolution is network-bound; no player-state locks are held here.
	track, err := s.resolver.ResolveOne(ctx, chosen.PageURL)
	if err != nil {
		return nil, err
	}
	track.RequesterID = input.RequesterID
	track.VoiceChannelID = input.VoiceChannelID

	out, err := s.playback.EnqueueAndMaybeStart(ctx, EnqueueInput{
		GuildID:       input.GuildID,
		Track:         track,
		TextChannelID: input.TextChannelID,
	})
	if err != nil {
		return nil, err
	}

	state.ClearCandidates(searchID)
	return &SelectOutput{Track: track, Position: out.Position, Started: out.Started}, nil
}
