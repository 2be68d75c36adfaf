package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Track is a fully resolved, playable audio item. Immutable once constructed.
type Track struct {
	StreamURL string // endpoint the audio pipe opens
	Title     string
	PageURL   string // canonical source page; defaults to StreamURL

	RequesterID    snowflake.ID
	VoiceChannelID snowflake.ID // requester's voice channel at enqueue time
	EnqueuedAt     time.Time
}

// NewTrack creates a Track. An empty pageURL falls back to the stream endpoint,
// so PageURL is always usable for display.
func NewTrack(streamURL, title, pageURL string) *Track {
	if pageURL == "" {
		pageURL = streamURL
	}
	return &Track{
		StreamURL:  streamURL,
		Title:      title,
		PageURL:    pageURL,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Candidate is a lightweight, unresolved search hit. Produced only by flat
// search; it carries no playable stream.
type Candidate struct {
	Title    string
	PageURL  string
	Duration int    // seconds; 0 when unknown
	Channel  string // uploader/author label; may be empty
}

// FormattedDuration renders the duration as m:ss or h:mm:ss.
// Returns "" when the duration is unknown.
func (c Candidate) FormattedDuration() string {
	if c.Duration <= 0 {
		return ""
	}
	total := c.Duration
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return strconv.Itoa(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return strconv.Itoa(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
