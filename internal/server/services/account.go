package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/logging"
	"github.com/vidtube/vidtube/internal/server/auth"
	"github.com/vidtube/vidtube/internal/server/models"
	"github.com/vidtube/vidtube/internal/server/repositories/repomanager"
	"github.com/vidtube/vidtube/internal/server/storage"
)

// AccountService covers profile operations on an already authenticated
// account: reading the current profile, changing the password, and
// updating details or media assets.
type AccountService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  storage.AssetStore
	hasher *auth.PasswordHasher
	logger logging.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *sql.DB, repos repomanager.RepositoryManager, store storage.AssetStore,
	hasher *auth.PasswordHasher, logger logging.Logger) *AccountService {
	return &AccountService{
		db:     db,
		repos:  repos,
		store:  store,
		hasher: hasher,
		logger: logger.With("module", "accounts"),
	}
}

// GetCurrent returns the public projection of the account.
func (s *AccountService) GetCurrent(ctx context.Context, accountID string) (*models.PublicAccount, error) {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Public(), nil
}

// ChangePassword verifies the old password and stores a digest of the new
// one. A wrong old password fails with common.ErrorUnauthorized.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if oldPassword == "" || newPassword == "" {
		return common.ErrorValidation
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(oldPassword, account.PasswordHash) {
		s.logger.Info(ctx, "password change with wrong old password", "account_id", accountID)
		return common.ErrorUnauthorized
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error(ctx, "password hashing failed", "error", err.Error())
		return common.ErrorInternal
	}

	repo := s.repos.Accounts(s.db)
	if err := repo.UpdatePasswordHash(ctx, accountID, passwordHash); err != nil {
		return s.mapRepoError(ctx, err)
	}

	s.logger.Info(ctx, "password changed", "account_id", accountID)
	return nil
}

// UpdateDetails stores a new display name and email and returns the
// updated public projection. An email collision with another account fails
// with common.ErrorConflict.
func (s *AccountService) UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.PublicAccount, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repos.Accounts(s.db)
	if err := repo.UpdateDetails(ctx, accountID, fullName, email); err != nil {
		return nil, s.mapRepoError(ctx, err)
	}

	return s.GetCurrent(ctx, accountID)
}

// UpdateAvatar uploads a freshly staged avatar and stores its URL. If the
// row update fails, the just-uploaded asset is deleted again.
func (s *AccountService) UpdateAvatar(ctx context.Context, accountID, localPath string) (*models.PublicAccount, error) {
	return s.updateAsset(ctx, accountID, localPath, s.repos.Accounts(s.db).UpdateAvatarURL)
}

// UpdateCoverImage is UpdateAvatar for the optional cover image.
func (s *AccountService) UpdateCoverImage(ctx context.Context, accountID, localPath string) (*models.PublicAccount, error) {
	return s.updateAsset(ctx, accountID, localPath, s.repos.Accounts(s.db).UpdateCoverImageURL)
}

// TODO: delete the replaced avatar/cover object once delete handles are
// persisted alongside URLs; today only the fresh upload's handle is known
// in-process.
func (s *AccountService) updateAsset(ctx context.Context, accountID, localPath string,
	update func(ctx context.Context, id, url string) error) (*models.PublicAccount, error) {

	if localPath == "" {
		return nil, common.ErrorValidation
	}

	asset, err := s.store.Upload(ctx, localPath)
	if err != nil {
		s.logger.Error(ctx, "asset upload failed", "error", err.Error())
		return nil, common.ErrorUploadFailed
	}

	if err := update(ctx, accountID, asset.URL); err != nil {
		if delErr := s.store.Delete(ctx, asset.DeleteHandle); delErr != nil {
			s.logger.Error(ctx, "compensating asset delete failed", "handle", asset.DeleteHandle, "error", delErr.Error())
		}
		return nil, s.mapRepoError(ctx, err)
	}

	return s.GetCurrent(ctx, accountID)
}

func (s *AccountService) findAccount(ctx context.Context, accountID string) (*models.Account, error) {
	repo := s.repos.Accounts(s.db)

	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, s.mapRepoError(ctx, err)
	}
	return account, nil
}

func (s *AccountService) mapRepoError(ctx context.Context, err error) error {
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorConflict) {
		return err
	}
	s.logger.Error(ctx, "repository error", "error", err.Error())
	return common.ErrorInternal
}
