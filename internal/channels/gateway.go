package channels

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/push"
)

// backlogLimit bounds how many undelivered persistent payloads a channel
// retains; the oldest are dropped first.
const backlogLimit = 128

type channel struct {
	connectKey string
	conns      map[*websocket.Conn]bool
	backlog    [][]byte
}

// Gateway is the embedded push-channel service: it provisions channels,
// accepts client websocket listeners, and writes pushed payloads through.
// Payloads pushed with persist=true while no listener is connected are
// buffered and flushed on the next connect.
type Gateway struct {
	mu       sync.RWMutex
	nextID   int
	channels map[int]*channel
}

// NewGateway creates an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{channels: make(map[int]*channel)}
}

var _ push.ChannelRegistry = (*Gateway)(nil)

// CreateChannel allocates a channel id and connect key.
func (g *Gateway) CreateChannel(ctx context.Context) (push.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	key := uuid.NewString()
	g.channels[g.nextID] = &channel{
		connectKey: key,
		conns:      make(map[*websocket.Conn]bool),
	}
	return push.Channel{ID: g.nextID, ConnectKey: key}, nil
}

// ValidateChannel checks that the channel exists and the key matches.
func (g *Gateway) ValidateChannel(ctx context.Context, channelID int, connectKey string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %d: %w", channelID, models.ErrNotFound)
	}
	if ch.connectKey != connectKey {
		return fmt.Errorf("channel %d key mismatch: %w", channelID, models.ErrUnauthorized)
	}
	return nil
}

// Push writes the payload to every connected listener. With persist=true and
// no listener connected, the payload is buffered for the next connect.
func (g *Gateway) Push(ctx context.Context, channelID int, payload []byte, persist bool) error {
	g.mu.RLock()
	ch, ok := g.channels[channelID]
	if !ok {
		g.mu.RUnlock()
		return fmt.Errorf("channel %d: %w", channelID, models.ErrNotFound)
	}
	conns := make([]*websocket.Conn, 0, len(ch.conns))
	for conn := range ch.conns {
		conns = append(conns, conn)
	}
	g.mu.RUnlock()

	if len(conns) == 0 {
		if persist {
			g.buffer(channelID, payload)
		}
		return nil
	}

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.WithError(err).WithField("channel_id", channelID).Warn("channel write error")
			conn.Close()
			g.detach(channelID, conn)
			observability.IncWSEvent("channel", "ws_error")
		}
	}
	return nil
}

func (g *Gateway) buffer(channelID int, payload []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return
	}
	ch.backlog = append(ch.backlog, payload)
	if len(ch.backlog) > backlogLimit {
		ch.backlog = ch.backlog[len(ch.backlog)-backlogLimit:]
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Listen upgrades the connection, registers it on the channel and flushes any
// buffered payloads. The connection stays registered until the client closes.
func (g *Gateway) Listen(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ctx, span := otel.Tracer("messenger-service/channels").Start(c.Request.Context(), "channel.listen")
	defer span.End()

	if err := g.ValidateChannel(ctx, channelID, c.Query("key")); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("channel upgrade failed")
		return
	}

	backlog := g.attach(channelID, conn)
	observability.IncWSActive("channel")
	logrus.WithFields(logrus.Fields{
		"channel_id": channelID,
		"device_id":  observability.DeviceIDFromRequest(c.Request),
		"ip":         observability.IPFromRequest(c.Request),
	}).Info("channel listener connected")
	for _, payload := range backlog {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
	}

	go g.readLoop(channelID, conn)
}

func (g *Gateway) readLoop(channelID int, conn *websocket.Conn) {
	defer func() {
		g.detach(channelID, conn)
		observability.DecWSActive("channel")
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (g *Gateway) attach(channelID int, conn *websocket.Conn) [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return nil
	}
	ch.conns[conn] = true
	backlog := ch.backlog
	ch.backlog = nil
	return backlog
}

func (g *Gateway) detach(channelID int, conn *websocket.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.channels[channelID]; ok {
		delete(ch.conns, conn)
	}
}
