// Package accounts provides a PostgreSQL-backed repository for account
// records.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/dbx"
	"github.com/vidtube/vidtube/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// isUniqueViolation reports whether err is a Postgres 23505 unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Create inserts a new account and fills in the storage-assigned fields.
// A unique-constraint rejection on username or email yields
// common.ErrorConflict.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {

	query := `
		INSERT INTO accounts (username, email, full_name, password_hash, avatar_url, cover_image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.Email, account.FullName,
		account.PasswordHash, account.AvatarURL, account.CoverImageURL).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// FindByID returns the account with the given id, or common.ErrorNotFound.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// FindByUsernameOrEmail returns the account matching either the username or
// the email, or common.ErrorNotFound. Callers pass the username lower-cased;
// emails are compared as stored.
func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	query := `
		SELECT id, username, email, full_name, password_hash, avatar_url, cover_image_url, refresh_token, created_at, updated_at
		FROM accounts
		WHERE username = $1 OR email = $2
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, username, email))
}

// SetRefreshToken overwrites the account's single allow-listed refresh
// token. A nil token clears it.
func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	query := `
		UPDATE accounts SET refresh_token = $2, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdatePasswordHash stores a new password digest for the account.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE accounts SET password_hash = $2, updated_at = now()
		WHERE id = $1
		RETURNING id
	`
	return r.execReturningID(ctx, query, id, passwordHash)
}

// UpdateDetails stores a new display name and email. An email collision with
// another account yields common.ErrorConflict.
func (r *PostgresRepository) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	query := `
		UPDATE accounts SET full_name = $2, email = $3, updated_at = now()
		WHERE id = $1
		RETURNING id
	`
	return r.execReturningID(ctx, query, id, fullName, email)
}

// UpdateAvatarURL stores a new avatar asset reference.
func (r *PostgresRepository) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	query := `
		UPDATE accounts SET avatar_url = $2, updated_at = now()
		WHERE id = $1
		RETURNING id
	`
	return r.execReturningID(ctx, query, id, avatarURL)
}

// UpdateCoverImageURL stores a new cover image asset reference.
func (r *PostgresRepository) UpdateCoverImageURL(ctx context.Context, id, coverImageURL string) error {
	query := `
		UPDATE accounts SET cover_image_url = $2, updated_at = now()
		WHERE id = $1
		RETURNING id
	`
	return r.execReturningID(ctx, query, id, coverImageURL)
}

func (r *PostgresRepository) execReturningID(ctx context.Context, query string, id string, args ...any) error {
	var returned string
	err := r.db.QueryRowContext(ctx, query, append([]any{id}, args...)...).Scan(&returned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		if isUniqueViolation(err) {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	var refreshToken sql.NullString

	err := row.Scan(&account.ID, &account.Username, &account.Email, &account.FullName,
		&account.PasswordHash, &account.AvatarURL, &account.CoverImageURL,
		&refreshToken, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if refreshToken.Valid {
		account.RefreshToken = &refreshToken.String
	}

	return account, nil
}
