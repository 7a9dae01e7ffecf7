package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/vidtube/internal/common"
	"github.com/vidtube/vidtube/internal/dbx"
	"github.com/vidtube/vidtube/internal/logging"
	"github.com/vidtube/vidtube/internal/server/auth"
	"github.com/vidtube/vidtube/internal/server/models"
	"github.com/vidtube/vidtube/internal/server/repositories/accounts"
	"github.com/vidtube/vidtube/internal/server/storage"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func accountWithCredentials(t *testing.T, username, email, password string) *models.Account {
	t.Helper()
	hash, err := auth.NewPasswordHasherWithCost(bcrypt.MinCost).Hash(password)
	if err != nil {
		t.Fatalf("hashing test password: %v", err)
	}
	return &models.Account{
		Username:     username,
		Email:        email,
		FullName:     "Test Account",
		PasswordHash: hash,
		AvatarURL:    "http://media.local/seed-avatar",
	}
}

// memRepo is an in-memory accounts.Repository with per-method error
// injection for failure-path tests.
type memRepo struct {
	mu     sync.Mutex
	nextID int
	byID   map[string]*models.Account

	createErr     error
	findErr       error
	findLoginErr  error
	setTokenErr   error
	updPwErr      error
	updDetailsErr error
	updAvatarErr  error
	updCoverErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*models.Account{}}
}

func (r *memRepo) add(a *models.Account) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if a.ID == "" {
		a.ID = fmt.Sprintf("acc-%d", r.nextID)
	}
	r.byID[a.ID] = a
	return a
}

func (r *memRepo) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	for _, existing := range r.byID {
		if existing.Username == account.Username || existing.Email == account.Email {
			r.mu.Unlock()
			return nil, common.ErrorConflict
		}
	}
	r.mu.Unlock()
	return r.add(account), nil
}

func (r *memRepo) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *memRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	if r.findLoginErr != nil {
		return nil, r.findLoginErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Username == username || a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	if r.setTokenErr != nil {
		return r.setTokenErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.RefreshToken = token
	return nil
}

func (r *memRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	if r.updPwErr != nil {
		return r.updPwErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (r *memRepo) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	if r.updDetailsErr != nil {
		return r.updDetailsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for otherID, other := range r.byID {
		if otherID != id && other.Email == email {
			return common.ErrorConflict
		}
	}
	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.FullName = fullName
	a.Email = email
	return nil
}

func (r *memRepo) UpdateAvatarURL(ctx context.Context, id, avatarURL string) error {
	if r.updAvatarErr != nil {
		return r.updAvatarErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.AvatarURL = avatarURL
	return nil
}

func (r *memRepo) UpdateCoverImageURL(ctx context.Context, id, coverImageURL string) error {
	if r.updCoverErr != nil {
		return r.updCoverErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.CoverImageURL = coverImageURL
	return nil
}

var _ accounts.Repository = (*memRepo)(nil)

// fakeRepoManager hands out the same in-memory repository for every DBTX,
// which makes the transactional and non-transactional paths observable
// through one store.
type fakeRepoManager struct {
	repo accounts.Repository
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *fakeRepoManager) Accounts(db dbx.DBTX) accounts.Repository { return m.repo }

// memStore records uploads and deletes; uploadErrFor fails uploads whose
// staged path contains the substring.
type memStore struct {
	mu           sync.Mutex
	n            int
	uploaded     []string
	deleted      []string
	uploadErrFor string
	uploadErr    error
	deleteErr    error
}

func (s *memStore) Upload(ctx context.Context, localPath string) (*storage.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil && (s.uploadErrFor == "" || strings.Contains(localPath, s.uploadErrFor)) {
		return nil, s.uploadErr
	}
	s.n++
	handle := fmt.Sprintf("obj-%d", s.n)
	s.uploaded = append(s.uploaded, localPath)
	return &storage.Asset{
		URL:          "http://media.local/" + handle,
		DeleteHandle: handle,
	}, nil
}

func (s *memStore) Delete(ctx context.Context, deleteHandle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, deleteHandle)
	return nil
}

var _ storage.AssetStore = (*memStore)(nil)
