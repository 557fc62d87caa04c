// Package storage provides the process-scoped session state of the engine.
// Nothing here survives a restart.
package storage

import (
	"context"

	"github.com/polisai/omnis/pkg/domain"
)

// SessionStore exposes the per-identity conversational state.
type SessionStore interface {
	// Upsert replaces the last prompt and attachments for identity, creating the
	// session on first use. The preferred view is preserved.
	Upsert(ctx context.Context, identity, prompt string, attachments []domain.Attachment) (domain.Session, error)

	// Get returns a copy of the session, or false if identity has none.
	Get(ctx context.Context, identity string) (domain.Session, bool)

	// Reset clears the prompt and attachments. The preferred view is kept unless
	// resetView is set, in which case it returns to the default view.
	Reset(ctx context.Context, identity string, resetView bool) error

	// SetPreferredView records an explicit view change, creating the session if needed.
	SetPreferredView(ctx context.Context, identity string, view domain.View) (domain.Session, error)

	// Count returns the number of known identities.
	Count() int

	Close() error
}
