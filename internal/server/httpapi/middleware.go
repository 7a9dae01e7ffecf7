package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidtube/vidtube/internal/common"
)

type ctxKey int

const accountIDKey ctxKey = iota

// accessTokenFromRequest extracts the access token from the Authorization
// bearer header or, failing that, from the accessToken cookie set at login.
func accessTokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// authenticate guards protected routes. It verifies the presented access
// token and stores the account id in the request context.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			respondError(w, common.ErrorUnauthorized)
			return
		}

		accountID, err := s.sessions.VerifyAccessToken(token)
		if err != nil {
			s.logger.Info(r.Context(), "access token rejected", "reason", err.Error())
			respondError(w, common.ErrorUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}
