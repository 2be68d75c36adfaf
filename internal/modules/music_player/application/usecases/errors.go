package usecases

import "errors"

// Errors reported back to the invoking user. None of these are fatal; the
// presentation layer converts them to reply text.
var (
	// ErrUserNotInVoice is returned when the command issuer has no voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when pausing an already paused stream.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNothingToSkip is returned when skip is issued with no active session.
	ErrNothingToSkip = errors.New("nothing to skip")

	// ErrSelectionInProgress is returned when a selection is already being
	// resolved for the guild. The request is rejected, never queued.
	ErrSelectionInProgress = errors.New("a selection is already being processed")

	// ErrNoPendingSearch is returned when a selection arrives with no stored
	// search results.
	ErrNoPendingSearch = errors.New("no search results to choose from")

	// ErrInvalidSelection is returned when the selection index is outside the
	// current candidate list.
	ErrInvalidSelection = errors.New("selection out of range")

	// ErrStaleSelection is returned when a selection references a candidate
	// list that a newer search has replaced.
	ErrStaleSelection = errors.New("search results are no longer current")
)
