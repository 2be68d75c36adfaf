package domain

import (
	"strconv"
	"strings"
)

// SearchQuery classifies user input as a direct URL or a search term.
type SearchQuery struct {
	Query string
	IsURL bool
}

// NewSearchQuery creates a SearchQuery from raw user input.
func NewSearchQuery(input string) SearchQuery {
	input = strings.TrimSpace(input)
	return SearchQuery{
		Query: input,
		IsURL: IsURL(input),
	}
}

// YtdlpQuery returns the query formatted for yt-dlp: the URL verbatim, or a
// "ytsearchN:" prefixed term for the top N results.
func (q SearchQuery) YtdlpQuery(count int) string {
	if q.IsURL {
		return q.Query
	}
	if count < 1 {
		count = 1
	}
	return "ytsearch" + strconv.Itoa(count) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q SearchQuery) IsValid() bool {
	return q.Query != ""
}

// IsURL reports whether the input looks like an absolute web link.
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://")
}
