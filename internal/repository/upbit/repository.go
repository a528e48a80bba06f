package upbit

import (
	"context"

	"coinboard/internal/domain"
)

// Repository stores at most one Upbit account per user.
type Repository interface {
	FindByUser(ctx context.Context, userID int64) (*domain.UpbitAccount, error)
	// Save inserts the account or replaces the keys of the user's existing one.
	Save(ctx context.Context, a domain.UpbitAccount) (*domain.UpbitAccount, error)
	DeleteByUser(ctx context.Context, userID int64) error
	ExistsByUser(ctx context.Context, userID int64) (bool, error)
}
