package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/server/auth"
)

type registrationFixture struct {
	svc   *RegistrationService
	repo  *memRepo
	store *memStore
	mock  sqlmock.Sqlmock
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := newMemRepo()
	store := &memStore{}
	svc := NewRegistrationService(db, &fakeRepoManager{repo: repo}, store,
		auth.NewPasswordHasherWithCost(bcrypt.MinCost), discardLogger())

	return &registrationFixture{svc: svc, repo: repo, store: store, mock: mock}
}

func validInput() RegisterInput {
	return RegisterInput{
		FullName:       "Jane Doe",
		Email:          "jane@example.com",
		Username:       "Jane",
		Password:       "s3cret-pass",
		AvatarPath:     "/tmp/staged/avatar.png",
		CoverImagePath: "/tmp/staged/cover.png",
	}
}

func TestRegister_Success(t *testing.T) {
	f := newRegistrationFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	public, err := f.svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "jane", public.Username)
	assert.Equal(t, "jane@example.com", public.Email)
	assert.Equal(t, "Jane Doe", public.FullName)
	assert.NotEmpty(t, public.AvatarURL)
	assert.NotEmpty(t, public.CoverImageURL)
	assert.NotEmpty(t, public.ID)

	stored, err := f.repo.FindByID(context.Background(), public.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash, "password must be stored as a digest")
	assert.Nil(t, stored.RefreshToken, "registration must not start a session")

	assert.Len(t, f.store.uploaded, 2)
	assert.Empty(t, f.store.deleted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"full name", func(in *RegisterInput) { in.FullName = "  " }},
		{"email", func(in *RegisterInput) { in.Email = "" }},
		{"username", func(in *RegisterInput) { in.Username = "" }},
		{"password", func(in *RegisterInput) { in.Password = "" }},
		{"avatar", func(in *RegisterInput) { in.AvatarPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture(t)
			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.Register(context.Background(), in)
			assert.ErrorIs(t, err, common.ErrorValidation)
			assert.Empty(t, f.store.uploaded, "validation must fail before any upload")
		})
	}
}

func TestRegister_ExistingAccount(t *testing.T) {
	f := newRegistrationFixture(t)
	f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "whatever"))

	_, err := f.svc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, common.ErrorConflict)
	assert.Empty(t, f.store.uploaded, "existence check must run before any upload")
}

func TestRegister_CreateConflict_DeletesUploadedAssets(t *testing.T) {
	f := newRegistrationFixture(t)
	// the advisory check passes; the unique constraint rejects the write
	f.repo.createErr = common.ErrorConflict
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, common.ErrorConflict)

	assert.ElementsMatch(t, []string{"obj-1", "obj-2"}, f.store.deleted,
		"both uploaded assets must be deleted on a failed create")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_AvatarUploadFails(t *testing.T) {
	f := newRegistrationFixture(t)
	f.store.uploadErr = errors.New("backend unavailable")
	f.store.uploadErrFor = "avatar"

	_, err := f.svc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, common.ErrorUploadFailed)

	_, err = f.repo.FindByUsernameOrEmail(context.Background(), "jane", "jane@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound, "no account may be created without an avatar")
}

func TestRegister_CoverUploadFailureIsTolerated(t *testing.T) {
	f := newRegistrationFixture(t)
	f.store.uploadErr = errors.New("backend unavailable")
	f.store.uploadErrFor = "cover"
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	public, err := f.svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, public.AvatarURL)
	assert.Empty(t, public.CoverImageURL, "the account exists without a cover image")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRegister_RefetchFails(t *testing.T) {
	f := newRegistrationFixture(t)
	f.repo.findErr = common.ErrorNotFound
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Len(t, f.store.deleted, 2, "uploads are reversed when the write cannot be observed")
}

func TestRegister_RepoErrorDuringExistenceCheck(t *testing.T) {
	f := newRegistrationFixture(t)
	f.repo.findLoginErr = errors.New("db down")

	_, err := f.svc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Empty(t, f.store.uploaded)
}
