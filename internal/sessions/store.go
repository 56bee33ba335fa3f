// Package sessions keeps one ledger per browser session.
package sessions

import (
	"context"
	"errors"
	"strings"

	"github.com/deliotti/tucosto-backend/internal/ledger"
)

var ErrSessionIDRequired = errors.New("session id is required")

// Store loads and persists session ledgers. Load returns an empty ledger for
// an unknown session. Update applies fn to the session ledger and saves the
// result only when fn succeeds.
type Store interface {
	Load(ctx context.Context, sessionID string) (*ledger.Ledger, error)
	Save(ctx context.Context, sessionID string, l *ledger.Ledger) error
	Delete(ctx context.Context, sessionID string) error
	Update(ctx context.Context, sessionID string, fn func(*ledger.Ledger) error) error
}

func normalizeID(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrSessionIDRequired
	}
	return id, nil
}
