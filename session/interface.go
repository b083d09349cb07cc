package session

import "context"

// Store defines the interface for session storage operations.
// Implementations are interchangeable and do not own their connection.
type Store interface {
	// Load retrieves the session for a cookie value.
	// Returns nil if the session is not found (not an error).
	// Returns an ErrCorruption error if the stored session can not be decoded.
	Load(ctx context.Context, cookieValue string) (*Session, error)

	// Store inserts the session or overwrites the stored copy in place.
	// Returns the cookie value to send to the client, or "" if the session
	// carries none.
	Store(ctx context.Context, s *Session) (string, error)

	// Destroy deletes the session. Deleting a missing session is not an error.
	Destroy(ctx context.Context, s *Session) error

	// Clear deletes every session.
	Clear(ctx context.Context) error
}
