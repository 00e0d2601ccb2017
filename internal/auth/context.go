package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxExternalUID = "external_uid"
	CtxUserID      = "user_id"
	CtxEmail       = "email"
)

// UserID returns the internal id of the signed-in user, or "" for a guest.
// It is set by Identify.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

// ExternalUID returns the uid asserted by the identity provider.
func ExternalUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxExternalUID))
}

// IsGuest reports whether no user was identified for the request.
func IsGuest(c *gin.Context) bool {
	return UserID(c) == ""
}
