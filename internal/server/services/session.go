package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strings"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/logging"
	"github.com/vidtube/vidtube/internal/server/auth"
	"github.com/vidtube/vidtube/internal/server/config"
	"github.com/vidtube/vidtube/internal/server/models"
	"github.com/vidtube/vidtube/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService drives the per-account session state machine:
// - Login: verify credentials and mint a token pair
// - Refresh: rotate the allow-listed refresh token and mint a new pair
// - Logout: clear the stored refresh token
//
// Exactly one refresh token per account is valid at a time; a new login or
// rotation overwrites it, silently ending any other client's session. Two
// refresh calls racing on the same stored token can both pass the
// comparison before either writes; last-write-wins then strands one of the
// freshly issued tokens. That narrow window is accepted rather than
// serialized with per-account locks.
type SessionService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	tokens *auth.TokenIssuer
	hasher *auth.PasswordHasher
	logger logging.Logger
}

// NewSessionService constructs a SessionService using repositories, the
// password hasher, and token settings from server config.
func NewSessionService(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config,
	hasher *auth.PasswordHasher, logger logging.Logger) *SessionService {
	return &SessionService{
		db:    db,
		repos: repos,
		tokens: auth.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
			cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration),
		hasher: hasher,
		logger: logger.With("module", "sessions"),
	}
}

// Login verifies the credentials and, on success, returns the account's
// public projection plus a fresh token pair, persisting the refresh token
// as the account's single allow-listed one.
//
// An unknown identifier and a wrong password surface identically as
// common.ErrorUnauthorized so responses cannot be used to enumerate
// accounts; the two cases are only told apart in the log.
func (s *SessionService) Login(ctx context.Context, usernameOrEmail, password string) (*models.PublicAccount, *TokenPair, error) {

	identifier := strings.TrimSpace(usernameOrEmail)
	if identifier == "" || password == "" {
		return nil, nil, common.ErrorValidation
	}

	repo := s.repos.Accounts(s.db)

	account, err := repo.FindByUsernameOrEmail(ctx, strings.ToLower(identifier), identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "login attempt for unknown account")
			return nil, nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "account lookup failed", "error", err.Error())
		return nil, nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.logger.Info(ctx, "login attempt with wrong password", "account_id", account.ID)
		return nil, nil, common.ErrorUnauthorized
	}

	pair, err := s.issueTokenPair(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "session started", "account_id", account.ID)

	return account.Public(), pair, nil
}

// Refresh exchanges a presented refresh token for a new token pair.
//
// The token must carry a valid signature and expiry, and must byte-equal
// the account's stored refresh token. A mismatch — including reuse of an
// already rotated-out token — fails with common.ErrorUnauthorized and does
// not revoke the currently valid session. On match the stored token is
// overwritten with the new one (rotation); that write is the last
// observable effect of the call.
func (s *SessionService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {

	accountID, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		// expired and invalid are logged apart but surface identically
		s.logger.Info(ctx, "refresh token rejected", "reason", err.Error())
		return nil, common.ErrorUnauthorized
	}

	repo := s.repos.Accounts(s.db)

	account, err := repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "refresh token for unknown account", "account_id", accountID)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "account lookup failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	if account.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*account.RefreshToken), []byte(presented)) != 1 {
		s.logger.Warn(ctx, "refresh token not on allow-list", "account_id", account.ID)
		return nil, common.ErrorUnauthorized
	}

	pair, err := s.issueTokenPair(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "session refreshed", "account_id", account.ID)

	return pair, nil
}

// Logout clears the account's stored refresh token. Logging out an account
// with no active session is a no-op success.
func (s *SessionService) Logout(ctx context.Context, accountID string) error {
	repo := s.repos.Accounts(s.db)

	if err := repo.SetRefreshToken(ctx, accountID, nil); err != nil {
		s.logger.Error(ctx, "clearing refresh token failed", "account_id", accountID, "error", err.Error())
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "session ended", "account_id", accountID)
	return nil
}

// VerifyAccessToken validates an access token and returns the account id it
// was issued for. Used by the HTTP middleware guarding protected routes.
func (s *SessionService) VerifyAccessToken(token string) (string, error) {
	return s.tokens.VerifyAccessToken(token)
}

func (s *SessionService) issueTokenPair(ctx context.Context, accountID string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(accountID)
	if err != nil {
		s.logger.Error(ctx, "issuing access token failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	refresh, err := s.tokens.IssueRefreshToken(accountID)
	if err != nil {
		s.logger.Error(ctx, "issuing refresh token failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	repo := s.repos.Accounts(s.db)
	if err := repo.SetRefreshToken(ctx, accountID, &refresh); err != nil {
		s.logger.Error(ctx, "persisting refresh token failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
