package ports

import (
	"context"
	"errors"

	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// ErrNoResults is returned when a query matches nothing upstream.
var ErrNoResults = errors.New("no results found")

// ErrNoStream is returned when a page yields no usable audio endpoint.
var ErrNoStream = errors.New("no audio stream found")

// TrackResolver resolves user input into playable tracks. Both operations are
// network-bound and must never be called while holding player-state locks.
type TrackResolver interface {
	// ResolveOne fully resolves a URL or search term into a single playable
	// track, choosing the best available audio stream.
	ResolveOne(ctx context.Context, queryOrPage string) (*domain.Track, error)

	// SearchFlat returns up to count lightweight candidates for a search
	// term, in upstream ranking order. Page references are always absolute.
	SearchFlat(ctx context.Context, query string, count int) ([]domain.Candidate, error)
}
