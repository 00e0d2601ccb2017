package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/birdboard/birdboard-backend/config"
)

// ErrNoCredentials means the request carried nothing to identify a user with.
var ErrNoCredentials = errors.New("no credentials")

// Identity is what the provider asserts about the caller.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Resolver extracts the caller's identity from a request.
type Resolver interface {
	Resolve(c *gin.Context) (*Identity, error)
}

// NewResolver returns the resolver for the configured auth mode.
// verifier is only used in firebase mode.
func NewResolver(mode string, verifier TokenVerifier) (Resolver, error) {
	switch mode {
	case config.AuthModeFirebase:
		if verifier == nil {
			return nil, fmt.Errorf("firebase auth mode needs a token verifier")
		}
		return &FirebaseResolver{verifier: verifier}, nil
	case config.AuthModeHeader:
		return HeaderResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// FirebaseResolver verifies "Authorization: Bearer <id token>".
type FirebaseResolver struct {
	verifier TokenVerifier
}

func NewFirebaseResolver(verifier TokenVerifier) *FirebaseResolver {
	return &FirebaseResolver{verifier: verifier}
}

func (r *FirebaseResolver) Resolve(c *gin.Context) (*Identity, error) {
	token := extractToken(c)
	if token == "" {
		return nil, ErrNoCredentials
	}

	decoded, err := r.verifier.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	id := &Identity{UID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}

// HeaderResolver trusts X-User-Id. Local development and tests only.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(c *gin.Context) (*Identity, error) {
	uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
	if uid == "" {
		return nil, ErrNoCredentials
	}
	return &Identity{
		UID:   uid,
		Email: strings.TrimSpace(c.GetHeader("X-User-Email")),
		Name:  strings.TrimSpace(c.GetHeader("X-User-Name")),
	}, nil
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.EqualFold(bearerToken[:7], "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
