package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/push"
)

// ChannelProvisioner is the serialized validate-or-create channel flow.
type ChannelProvisioner interface {
	EnsureChannel(ctx context.Context, userID int) (push.Channel, error)
}

// PusherHandler exposes push-channel initialization.
type PusherHandler struct {
	provisioner ChannelProvisioner
	listenBase  string
}

// NewPusherHandler constructs a PusherHandler. listenBase is the externally
// reachable base URL clients use to open their channel listener.
func NewPusherHandler(provisioner ChannelProvisioner, listenBase string) *PusherHandler {
	return &PusherHandler{provisioner: provisioner, listenBase: listenBase}
}

// InitPusher handles POST /pusher/init.
func (h *PusherHandler) InitPusher(c *gin.Context) {
	userID := c.GetInt("userID")

	channel, err := h.provisioner.EnsureChannel(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, err, "could not initialize channel")
		return
	}

	serverPath := fmt.Sprintf("%s/ws/channels/%d?key=%s", h.listenBase, channel.ID, url.QueryEscape(channel.ConnectKey))
	c.JSON(http.StatusOK, gin.H{
		"channelId":  channel.ID,
		"connectKey": channel.ConnectKey,
		"serverPath": serverPath,
	})
}
