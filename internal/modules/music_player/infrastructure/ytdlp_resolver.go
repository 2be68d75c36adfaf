package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"golang.org/x/time/rate"

	"github.com/harunoki/yukibot/internal/modules/music_player/application/ports"
	"github.com/harunoki/yukibot/internal/modules/music_player/domain"
)

// Highest-bitrate audio-only stream first, then combined audio+video, then
// whatever generic stream is left.
const audioFormatLadder = "bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best"

// retriableClientError marks extractions worth retrying with the fallback
// client identity. Anything else fails immediately.
const retriableClientError = "not available on this app"

const (
	primaryPlayerClient  = "youtube:player_client=web"
	fallbackPlayerClient = "youtube:player_client=android"
)

// YtdlpResolver resolves queries and page links through yt-dlp, with a
// lightweight search API as a fallback for flat searches. All upstream calls
// go through one shared rate limiter.
type YtdlpResolver struct {
	limiter *rate.Limiter
	search  *ytsearch.Client
}

// NewYtdlpResolver creates a YtdlpResolver.
func NewYtdlpResolver() *YtdlpResolver {
	return &YtdlpResolver{
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		search:  ytsearch.NewClient(nil),
	}
}

// ResolveOne fully resolves a URL or search term into a playable track. A
// "not available on this app" rejection from the primary client identity is
// retried once with the fallback identity; any other failure propagates.
func (r *YtdlpResolver) ResolveOne(ctx context.Context, queryOrPage string) (*domain.Track, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := domain.NewSearchQuery(queryOrPage)
	target := query.YtdlpQuery(1)

	track, err := r.extract(ctx, target, primaryPlayerClient)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), retriableClientError) {
		slog.Info("retrying extraction with fallback client", "query", queryOrPage)
		track, err = r.extract(ctx, target, fallbackPlayerClient)
	}
	return track, err
}

func (r *YtdlpResolver) extract(ctx context.Context, target, playerClient string) (*domain.Track, error) {
	res, err := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		NoPlaylist().
		Format(audioFormatLadder).
		Print("%(url)s\t%(title)s\t%(webpage_url)s").
		Run(ctx, "--extractor-args", playerClient, "--skip-download", target)
	if err != nil {
		if res != nil && res.Stderr != "" {
			return nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(res.Stderr))
		}
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 3 || fields[0] == "" || fields[0] == "NA" {
			continue
		}
		return domain.NewTrack(fields[0], fields[1], fields[2]), nil
	}
	return nil, fmt.Errorf("%w for %q", ports.ErrNoStream, target)
}

// SearchFlat returns up to count metadata-only candidates in upstream ranking
// order. yt-dlp's flat extraction is tried first; the search API covers for
// it when it fails or comes back empty.
func (r *YtdlpResolver) SearchFlat(ctx context.Context, query string, count int) ([]domain.Candidate, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := domain.NewSearchQuery(query).YtdlpQuery(count)

	candidates, err := r.flatSearch(ctx, target, count)
	if err != nil || len(candidates) == 0 {
		if err != nil {
			slog.Warn("flat search failed, falling back to search API", "query", query, "error", err)
		}
		candidates, err = r.apiSearch(ctx, query, count)
		if err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for %q", ports.ErrNoResults, query)
	}
	return candidates, nil
}

func (r *YtdlpResolver) flatSearch(ctx context.Context, target string, count int) ([]domain.Candidate, error) {
	res, err := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig().
		FlatPlaylist().
		Print("%(url)s\t%(title)s\t%(channel)s\t%(duration)s").
		PlaylistItems(fmt.Sprintf("1-%d", count)).
		Run(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	var candidates []domain.Candidate
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 4 || fields[0] == "" || fields[0] == "NA" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			PageURL:  normalizePageURL(fields[0]),
			Title:    fields[1],
			Channel:  fields[2],
			Duration: parseDurationSeconds(fields[3]),
		})
		if len(candidates) == count {
			break
		}
	}
	return candidates, nil
}

func (r *YtdlpResolver) apiSearch(ctx context.Context, query string, count int) ([]domain.Candidate, error) {
	res, err := r.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search api: %w", err)
	}

	var candidates []domain.Candidate
	for _, result := range res.Results {
		if result.VideoID == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			PageURL: "https://www.youtube.com/watch?v=" + result.VideoID,
			Title:   result.Title,
		})
		if len(candidates) == count {
			break
		}
	}
	return candidates, nil
}

// normalizePageURL turns a bare video ID from flat extraction into an
// absolute watch link. Already-absolute links pass through unchanged.
func normalizePageURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return "https://www.youtube.com/watch?v=" + ref
}

// parseDurationSeconds parses yt-dlp's duration print, which may be a float
// or "NA". Unknown durations come back as 0.
func parseDurationSeconds(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// Ensure YtdlpResolver implements ports.TrackResolver.
var _ ports.TrackResolver = (*YtdlpResolver)(nil)
