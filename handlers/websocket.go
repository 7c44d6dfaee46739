package handlers

import (
	"errors"
	"log"
	"net/http"

	"fileshare/auth"
	"fileshare/notifier"

	"github.com/gin-gonic/gin"
)

// WebSocketHandler authenticates the connection attempt and hands the
// request to the hub. The credential is checked before the transport
// handshake completes, so a rejected client never enters the registry.
type WebSocketHandler struct {
	Router *auth.Router
	Hub    *notifier.Hub
}

func (h *WebSocketHandler) Serve(c *gin.Context) {
	userID, err := h.Router.Authenticate(c.Request)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			c.JSON(http.StatusUnauthorized, Response{authErr.Reason})
		} else {
			log.Printf("websocket auth: %v", err)
			c.JSON(http.StatusInternalServerError, ServerErrorResponse)
		}
		return
	}
	h.Hub.Serve(c, userID)
}
