package auth

import (
	"errors"
	"net/http"

	"fileshare/models"

	"github.com/gin-gonic/gin"
)

// HandlerFunc runs with an authenticated, still-active user id.
type HandlerFunc func(c *gin.Context, userID string)

// Router is a wrapper that adds bearer-token verification and the
// user-directory liveness check in front of every handler.
type Router struct {
	Base      *gin.Engine
	Verifier  *TokenVerifier
	Directory models.UserDirectory
}

// Authenticate resolves the request's credential to a user id. It is also
// used by the websocket endpoint before the transport handshake.
func (r *Router) Authenticate(req *http.Request) (string, error) {
	token := BearerFromRequest(req)
	if token == "" {
		return "", &AuthError{Reason: "missing bearer token"}
	}
	userID, err := r.Verifier.Verify(token)
	if err != nil {
		return "", err
	}
	active, err := r.Directory.IsActive(userID)
	if err != nil {
		return "", err
	}
	if !active {
		return "", &AuthError{Reason: "subject is not active"}
	}
	return userID, nil
}

func (r *Router) baseExec(c *gin.Context, handler HandlerFunc) {
	userID, err := r.Authenticate(c.Request)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Reason})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "directory unavailable"})
		}
		return
	}
	handler(c, userID)
}

func (r *Router) GET(path string, handler HandlerFunc) {
	r.Base.GET(path, func(c *gin.Context) {
		r.baseExec(c, handler)
	})
}

func (r *Router) POST(path string, handler HandlerFunc) {
	r.Base.POST(path, func(c *gin.Context) {
		r.baseExec(c, handler)
	})
}

func (r *Router) PUT(path string, handler HandlerFunc) {
	r.Base.PUT(path, func(c *gin.Context) {
		r.baseExec(c, handler)
	})
}
