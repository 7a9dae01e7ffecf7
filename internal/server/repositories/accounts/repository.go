package accounts

import (
	"context"

	"github.com/vidtube/vidtube/internal/server/models"
)

// Repository is the durable account store. It owns the uniqueness
// invariants: Create returns common.ErrorConflict when the storage layer's
// unique constraints on username/email reject the write, which is the
// authoritative conflict signal (any earlier existence check is advisory).
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id, fullName, email string) error
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) error
	UpdateCoverImageURL(ctx context.Context, id, coverImageURL string) error
}
