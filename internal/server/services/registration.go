// Package services contains server-side business logic: registration with
// compensating asset cleanup, the session token lifecycle, and account
// profile operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/dbx"
	"github.com/vidtube/vidtube/internal/logging"
	"github.com/vidtube/vidtube/internal/server/auth"
	"github.com/vidtube/vidtube/internal/server/models"
	"github.com/vidtube/vidtube/internal/server/repositories/repomanager"
	"github.com/vidtube/vidtube/internal/server/storage"
)

// RegisterInput carries the fields of a registration request. Avatar is
// mandatory; the cover image is optional. Paths point at files staged by
// the upload middleware.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

// RegistrationService creates accounts. An account write and the uploads
// backing it form one logical transaction: when the write fails, every
// asset uploaded for the attempt is deleted again so no orphaned media
// remains.
type RegistrationService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  storage.AssetStore
	hasher *auth.PasswordHasher
	logger logging.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(db *sql.DB, repos repomanager.RepositoryManager, store storage.AssetStore,
	hasher *auth.PasswordHasher, logger logging.Logger) *RegistrationService {
	return &RegistrationService{
		db:     db,
		repos:  repos,
		store:  store,
		hasher: hasher,
		logger: logger.With("module", "registration"),
	}
}

// Register validates the input, uploads the staged assets, creates the
// account and returns its public projection.
//
// Order matters: validation happens before any I/O, the advisory existence
// check is a fast path only (the unique constraints checked during create
// are authoritative), and uploads run sequentially so the compensation
// bookkeeping stays a plain slice.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*models.PublicAccount, error) {

	fullName := strings.TrimSpace(in.FullName)
	email := strings.TrimSpace(in.Email)
	username := strings.ToLower(strings.TrimSpace(in.Username))
	password := strings.TrimSpace(in.Password)

	if fullName == "" || email == "" || username == "" || password == "" {
		return nil, common.ErrorValidation
	}
	if in.AvatarPath == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repos.Accounts(s.db)

	if _, err := repo.FindByUsernameOrEmail(ctx, username, email); err == nil {
		return nil, common.ErrorConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "existence check failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	var uploaded []*storage.Asset

	avatar, err := s.store.Upload(ctx, in.AvatarPath)
	if err != nil {
		s.logger.Error(ctx, "avatar upload failed", "error", err.Error())
		return nil, common.ErrorUploadFailed
	}
	uploaded = append(uploaded, avatar)

	coverImageURL := ""
	if in.CoverImagePath != "" {
		cover, err := s.store.Upload(ctx, in.CoverImagePath)
		if err != nil {
			// the account can exist without a cover image
			s.logger.Warn(ctx, "cover image upload failed", "error", err.Error())
		} else {
			uploaded = append(uploaded, cover)
			coverImageURL = cover.URL
		}
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		s.deleteUploaded(ctx, uploaded)
		s.logger.Error(ctx, "password hashing failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	account := &models.Account{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  passwordHash,
		AvatarURL:     avatar.URL,
		CoverImageURL: coverImageURL,
	}

	var fetched *models.Account
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repos.Accounts(tx)
		created, err := repoTx.Create(ctx, account)
		if err != nil {
			return err
		}
		fetched, err = repoTx.FindByID(ctx, created.ID)
		return err
	})
	if err != nil {
		s.deleteUploaded(ctx, uploaded)
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		if errors.Is(err, common.ErrorNotFound) {
			// the write went through but the record is not observable
			s.logger.Error(ctx, "created account could not be re-fetched", "username", username)
			return nil, common.ErrorInternal
		}
		s.logger.Error(ctx, "account create failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "account registered", "account_id", fetched.ID, "username", fetched.Username)

	return fetched.Public(), nil
}

// deleteUploaded reverses the attempt's uploads. A failed delete is logged
// and never masks the primary error.
func (s *RegistrationService) deleteUploaded(ctx context.Context, assets []*storage.Asset) {
	for _, a := range assets {
		if err := s.store.Delete(ctx, a.DeleteHandle); err != nil {
			s.logger.Error(ctx, "compensating asset delete failed", "handle", a.DeleteHandle, "error", err.Error())
		}
	}
}
