package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "campusbook/pkg/errors"
	httputil "campusbook/pkg/http"
	"campusbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user id placed in the context by Required.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Required wraps an httprouter handle and rejects requests without a valid
// Bearer token. On success the user id is available via UserID.
func Required(m *JWTManager, log *logger.Logger) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, apperrors.Unauthorized("Missing or malformed Authorization header"))
				return
			}

			claims, err := m.Parse(tokenStr)
			if err != nil {
				log.Warn("Rejected invalid access token",
					"path", r.URL.Path,
					"error", err,
				)
				httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next(w, r.WithContext(ctx), ps)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
