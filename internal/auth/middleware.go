package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/birdboard/birdboard-backend/internal/logging"
	"github.com/birdboard/birdboard-backend/internal/users"
)

// UserStore maps a provider identity to an internal user id.
type UserStore interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (string, error)
}

// Identify resolves the caller and loads their user row. A request whose identity
// cannot be established continues as a guest; routes that need a user sit
// behind RequireUser.
func Identify(resolver Resolver, store UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := resolver.Resolve(c)
		if err != nil {
			if !errors.Is(err, ErrNoCredentials) {
				logging.FromContext(ctx).WithError(err).Info("rejected credentials, continuing as guest")
			}
			c.Next()
			return
		}

		userID, err := store.EnsureUser(ctx, users.UpsertUser{
			ExternalUID: id.UID,
			Email:       id.Email,
			DisplayName: id.Name,
		})
		if err != nil {
			logging.FromContext(ctx).WithError(err).Error("ensure user failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
			return
		}

		c.Set(CtxExternalUID, id.UID)
		c.Set(CtxUserID, userID)
		if id.Email != "" {
			c.Set(CtxEmail, id.Email)
		}

		entry := logging.FromContext(ctx).WithField("user_id", userID)
		c.Request = c.Request.WithContext(logging.WithEntry(ctx, entry))
		c.Next()
	}
}

// RequireUser sends guests to loginPath.
func RequireUser(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsGuest(c) {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}
