// Package session keeps one conversation context per logical session and
// serializes the utterances within a session. Contexts are stored as JSON
// snapshots so the same session can be served by any store backend.
package session

import (
	"context"
	"encoding/json"

	"github.com/proxmox-nli/internal/nli"
)

// Store persists conversation context snapshots keyed by session ID.
type Store interface {
	// Load returns the stored context for a session. Unknown or expired
	// sessions return domain.ErrSessionNotFound.
	Load(ctx context.Context, id string) (*nli.ConversationContext, error)

	// Save stores a snapshot of the context and refreshes its TTL.
	Save(ctx context.Context, id string, conv *nli.ConversationContext) error

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error

	// Len reports how many live sessions the store currently holds.
	Len(ctx context.Context) (int, error)

	// Close releases the backend (janitor goroutine, connection pool).
	Close() error
}

// encodeContext and decodeContext are the shared snapshot codec. Storing
// bytes rather than pointers is what makes a Save a snapshot: later
// mutations of the engine's context never leak into the store.

func encodeContext(conv *nli.ConversationContext) ([]byte, error) {
	return json.Marshal(conv)
}

func decodeContext(data []byte) (*nli.ConversationContext, error) {
	var conv nli.ConversationContext
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}
