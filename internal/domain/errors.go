package domain

import "errors"

var (
	// ErrInvalidSubject is returned when a participant tries to queue for an
	// empty or unknown subject. Surfaced to the requesting client.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrSubjectNotFound indicates the question store has no pool for a subject.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrRoomNotFound indicates a stale or unknown room identifier. Logged,
	// not surfaced: it means the caller raced with room disposal.
	ErrRoomNotFound = errors.New("room not found")
	// ErrAlreadyInRoom is returned when a participant tries to re-enter
	// matchmaking while their current battle is still live.
	ErrAlreadyInRoom = errors.New("participant already in a room")
)
