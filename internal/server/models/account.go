// Package models defines the persistent entities of the account service.
package models

import "time"

// Account is the sole persistent entity: a registered user bound to its
// uploaded media assets.
//
// Username is stored lower-cased; username and email are each unique across
// all accounts, enforced by the storage layer. RefreshToken holds the single
// currently-valid refresh token for the account (a server-side allow-list of
// exactly one value), or nil when no session is active; any earlier token is
// implicitly invalid the instant a new one is written. CoverImageURL may be
// empty, AvatarURL never is once the account exists.
type Account struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	PasswordHash  string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicAccount is the only account representation returned across the
// service boundary. It carries no PasswordHash and no RefreshToken.
type PublicAccount struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Public returns the account's public projection.
func (a *Account) Public() *PublicAccount {
	return &PublicAccount{
		ID:            a.ID,
		Username:      a.Username,
		Email:         a.Email,
		FullName:      a.FullName,
		AvatarURL:     a.AvatarURL,
		CoverImageURL: a.CoverImageURL,
		CreatedAt:     a.CreatedAt,
	}
}
