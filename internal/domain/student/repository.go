package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores the roster between runs.
type Repository interface {
	// ListAll returns every stored student ordered by batch then ID.
	ListAll(ctx context.Context) (Roster, error)

	// ReplaceAll swaps the stored roster for r in one transaction.
	ReplaceAll(ctx context.Context, r Roster) error
}
