// Package httpapi exposes the account service over a JSON/multipart HTTP
// API and owns request authentication, upload staging and the response
// envelope.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vidtube/vidtube/internal/logging"
	"github.com/vidtube/vidtube/internal/server/config"
	"github.com/vidtube/vidtube/internal/server/models"
	"github.com/vidtube/vidtube/internal/server/services"
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.PublicAccount, error)
}

// SessionManager drives the token lifecycle.
type SessionManager interface {
	Login(ctx context.Context, usernameOrEmail, password string) (*models.PublicAccount, *services.TokenPair, error)
	Refresh(ctx context.Context, presented string) (*services.TokenPair, error)
	Logout(ctx context.Context, accountID string) error
	VerifyAccessToken(token string) (string, error)
}

// AccountManager covers profile operations behind authentication.
type AccountManager interface {
	GetCurrent(ctx context.Context, accountID string) (*models.PublicAccount, error)
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
	UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.PublicAccount, error)
	UpdateAvatar(ctx context.Context, accountID, localPath string) (*models.PublicAccount, error)
	UpdateCoverImage(ctx context.Context, accountID, localPath string) (*models.PublicAccount, error)
}

type HTTPServer struct {
	address      string
	tempDir      string
	registration Registrar
	sessions     SessionManager
	accounts     AccountManager
	logger       logging.Logger
}

func NewHTTPServer(cfg *config.Config, logger logging.Logger,
	registration Registrar, sessions SessionManager, accounts AccountManager) *HTTPServer {
	return &HTTPServer{
		address:      cfg.EndpointAddr,
		tempDir:      cfg.TempUploadDir,
		registration: registration,
		sessions:     sessions,
		accounts:     accounts,
		logger:       logger.With("module", "http_server"),
	}
}

// Router builds the route tree. Split out of Run so tests can drive the
// handlers through httptest without binding a socket.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", s.handleHealthcheck)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh-token", s.handleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)
				r.Post("/logout", s.handleLogout)
				r.Get("/current", s.handleCurrentAccount)
				r.Post("/change-password", s.handleChangePassword)
				r.Patch("/update-account-details", s.handleUpdateDetails)
				r.Patch("/update-avatar", s.handleUpdateAvatar)
				r.Patch("/update-cover-image", s.handleUpdateCoverImage)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
