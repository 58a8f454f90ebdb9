package ports

import "context"

// EconomyPort reads player currency. Stakes are only checked against balances;
// the engine never settles them.
type EconomyPort interface {
	// GetBalance retrieves the current gold balance for a user.
	GetBalance(ctx context.Context, userID string) (int64, error)
}
