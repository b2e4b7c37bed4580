package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/mfakit/pkg/pg"
)

// WalletAuthMethod marks accounts that sign in with a crypto wallet only.
const WalletAuthMethod = "wallet"

const eligibilitySQL = `SELECT is_active, auth_method FROM profiles WHERE id = $1`

// Eligibility reads the profiles table: active accounts that do not sign in
// with a wallet may use MFA. Unknown accounts are not eligible.
type Eligibility struct {
	pool *pgxpool.Pool
}

func NewEligibility(pool *pgxpool.Pool) *Eligibility {
	return &Eligibility{pool: pool}
}

func (e *Eligibility) IsEligibleForMFA(ctx context.Context, userID string) (bool, error) {
	var (
		active bool
		method string
	)
	err := e.pool.QueryRow(ctx, eligibilitySQL, userID).Scan(&active, &method)
	if pg.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load profile: %w", err)
	}
	return active && method != WalletAuthMethod, nil
}
