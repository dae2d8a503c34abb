package library

import (
	"errors"
)

var (
	// ErrUnreadableContainer means the container or its package document is
	// missing or malformed. Fatal for the import attempt.
	ErrUnreadableContainer = errors.New("unreadable container")

	// ErrNoExtractableText means the container parsed but every chapter was
	// filtered out. Fatal for the import attempt.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrCacheCorrupt marks a stored record that failed to decode. It is
	// handled as a miss and never shown to the user on its own.
	ErrCacheCorrupt = errors.New("cached book is corrupt")

	// ErrSyncUnavailable means change notifications could not be started.
	// Surfaces stay correct but only catch up on their next re-read.
	ErrSyncUnavailable = errors.New("sync unavailable")

	// ErrNotCached means the book has to be imported again from its file.
	ErrNotCached = errors.New("book not cached")

	ErrNoActiveBook = errors.New("no active book")
	ErrOutOfRange   = errors.New("excerpt index out of range")
)

// UserMessage returns the one-line message a shell shows for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreadableContainer):
		return "This file could not be read as an EPUB book."
	case errors.Is(err, ErrNoExtractableText):
		return "This book has no readable text."
	case errors.Is(err, ErrNotCached):
		return "This book is no longer cached. Import the file again."
	case errors.Is(err, ErrNoActiveBook):
		return "No book is open. Import an EPUB file to start."
	case errors.Is(err, ErrSyncUnavailable):
		return "Live sync is off. Progress from other windows shows up after a refresh."
	case errors.Is(err, ErrOutOfRange):
		return "That excerpt does not exist."
	default:
		return err.Error()
	}
}
