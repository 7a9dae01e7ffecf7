package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/server/auth"
)

type accountFixture struct {
	svc   *AccountService
	repo  *memRepo
	store *memStore
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	repo := newMemRepo()
	store := &memStore{}
	svc := NewAccountService(nil, &fakeRepoManager{repo: repo}, store,
		auth.NewPasswordHasherWithCost(bcrypt.MinCost), discardLogger())
	return &accountFixture{svc: svc, repo: repo, store: store}
}

func TestGetCurrent(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "pw"))

	public, err := f.svc.GetCurrent(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, public.ID)
	assert.Equal(t, "jane", public.Username)

	_, err = f.svc.GetCurrent(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestChangePassword(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "old-pass"))
	hasher := auth.NewPasswordHasherWithCost(bcrypt.MinCost)

	require.NoError(t, f.svc.ChangePassword(context.Background(), a.ID, "old-pass", "new-pass"))

	stored, err := f.repo.FindByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, hasher.Verify("new-pass", stored.PasswordHash))
	assert.False(t, hasher.Verify("old-pass", stored.PasswordHash))
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "old-pass"))

	err := f.svc.ChangePassword(context.Background(), a.ID, "not-the-password", "new-pass")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestChangePassword_Blank(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "old-pass"))

	assert.ErrorIs(t, f.svc.ChangePassword(context.Background(), a.ID, "", "new-pass"), common.ErrorValidation)
	assert.ErrorIs(t, f.svc.ChangePassword(context.Background(), a.ID, "old-pass", "  "), common.ErrorValidation)
}

func TestUpdateDetails(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "pw"))

	public, err := f.svc.UpdateDetails(context.Background(), a.ID, "Jane Q. Doe", "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Q. Doe", public.FullName)
	assert.Equal(t, "jane.doe@example.com", public.Email)
}

func TestUpdateDetails_EmailConflict(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "pw"))
	f.repo.add(accountWithCredentials(t, "john", "john@example.com", "pw"))

	_, err := f.svc.UpdateDetails(context.Background(), a.ID, "Jane Doe", "john@example.com")
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestUpdateDetails_Blank(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.UpdateDetails(context.Background(), "acc-1", " ", "jane@example.com")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpdateAvatar(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "pw"))

	public, err := f.svc.UpdateAvatar(context.Background(), a.ID, "/tmp/staged/avatar.png")
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/obj-1", public.AvatarURL)
	assert.Empty(t, f.store.deleted)
}

func TestUpdateAvatar_UploadFails(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "pw"))
	f.store.uploadErr = errors.New("backend unavailable")

	_, err := f.svc.UpdateAvatar(context.Background(), a.ID, "/tmp/staged/avatar.png")
	assert.ErrorIs(t, err, common.ErrorUploadFailed)

	stored, err := f.repo.FindByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/seed-avatar", stored.AvatarURL, "a failed upload leaves the avatar untouched")
}

func TestUpdateAvatar_PersistFailureDeletesFreshAsset(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "pw"))
	f.repo.updAvatarErr = errors.New("db down")

	_, err := f.svc.UpdateAvatar(context.Background(), a.ID, "/tmp/staged/avatar.png")
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.Equal(t, []string{"obj-1"}, f.store.deleted, "the orphaned upload must be deleted")
}

func TestUpdateAvatar_BlankPath(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.svc.UpdateAvatar(context.Background(), "acc-1", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, f.store.uploaded)
}

func TestUpdateCoverImage(t *testing.T) {
	f := newAccountFixture(t)
	a := f.repo.add(accountWithCredentials(t, "jane", "jane@example.com", "pw"))

	public, err := f.svc.UpdateCoverImage(context.Background(), a.ID, "/tmp/staged/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/obj-1", public.CoverImageURL)
}
