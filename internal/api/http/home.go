package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/birdboard/birdboard-backend/config"
)

// HomeHandler serves the landing and login entry points.
type HomeHandler struct {
	serviceName string
	version     string
	authMode    string
	loginPath   string
}

func NewHomeHandler(serviceName, version, authMode, loginPath string) *HomeHandler {
	return &HomeHandler{
		serviceName: serviceName,
		version:     version,
		authMode:    authMode,
		loginPath:   loginPath,
	}
}

func (h *HomeHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":  h.serviceName,
		"version":  h.version,
		"projects": "/projects",
	})
}

// Login is where guests are redirected. Sessions are not issued here; the
// response tells the client which credential to send.
func (h *HomeHandler) Login(c *gin.Context) {
	how := "send 'Authorization: Bearer <firebase id token>'"
	if h.authMode == config.AuthModeHeader {
		how = "send 'X-User-Id: <user id>'"
	}
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "authentication required",
		"login": how,
	})
}

func (h *HomeHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Home)
	r.GET(h.loginPath, h.Login)
}
