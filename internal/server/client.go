package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pfcuttle/cuttle/engine"
	"github.com/pfcuttle/cuttle/internal/game"
	"github.com/pfcuttle/cuttle/internal/models"
)

// sendBufferSize bounds the per-connection outbound queue. A connection
// that cannot drain it is dropped so a slow spectator never stalls players.
const sendBufferSize = 64

const pingInterval = 15 * time.Second

// Client is one authenticated websocket connection. Outbound events go
// through a buffered channel drained by a single writer goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	user *models.User

	// bound game; guarded by hub.mu
	gameID uuid.UUID
	role   game.Role

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, user *models.User) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		user:   user,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// enqueue queues an outbound frame. A full buffer drops the frame and
// closes the connection.
func (c *Client) enqueue(data []byte) {
	select {
	case <-c.closed:
	case c.send <- data:
	default:
		logrus.WithField("user_id", c.user.ID).Warn("send buffer full, dropping connection")
		c.close("send buffer overflow")
	}
}

func (c *Client) sendEvent(ev game.Event) {
	data, err := marshalEvent(ev)
	if err != nil {
		logrus.WithField("user_id", c.user.ID).Error("event marshal failed: ", err)
		return
	}
	c.enqueue(data)
}

func (c *Client) close(reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close(websocket.StatusPolicyViolation, reason)
		}
	})
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) writePump(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		select {
		case <-c.closed:
			return
		case <-ctx.Done():
			return
		case data := <-c.send:
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

// readLoop decodes intents until the socket drops, then hands the
// connection to the hub's disconnect path.
func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(c)
		c.close("")
	}()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		in, err := parseIntent(data)
		if err != nil {
			logrus.WithField("user_id", c.user.ID).Debug("bad intent: ", err)
			continue
		}
		c.dispatch(ctx, in)
	}
}

// dispatch routes one intent. Session errors already produced their
// rejected/fault event; transport-level errors get a fault reply here.
func (c *Client) dispatch(ctx context.Context, in *Intent) {
	switch in.Type {
	case IntentJoin:
		if err := c.hub.Join(ctx, c, in.GameID); err != nil {
			logrus.WithFields(logrus.Fields{
				"game_id": in.GameID, "user_id": c.user.ID,
			}).Warn("join failed: ", err)
		}
		return
	case IntentLeave:
		c.hub.Leave(c)
		return
	case IntentJoinRematch:
		if err := c.hub.JoinRematch(ctx, c); err != nil {
			logrus.WithField("user_id", c.user.ID).Warn("join-rematch failed: ", err)
		}
		return
	}

	s, err := c.boundSession(ctx)
	if err != nil {
		c.sendEvent(game.Event{Type: game.EventGameFault, Detail: err.Error()})
		return
	}

	switch in.Type {
	case IntentMove:
		mv, err := decodeMove(in)
		if err != nil {
			c.sendEvent(game.Event{
				Type: game.EventRejected, GameID: s.ID,
				Reason: engine.RejectIllegalMove, Detail: err.Error(),
			})
			return
		}
		_ = s.HandleMove(c.user.ID, mv)
	case IntentCounter:
		card, err := parseWireCard(in.Card)
		if err != nil {
			c.sendEvent(game.Event{
				Type: game.EventRejected, GameID: s.ID,
				Reason: engine.RejectIllegalMove, Detail: err.Error(),
			})
			return
		}
		_ = s.HandleCounter(c.user.ID, card)
	case IntentResolve:
		discards, err := decodeDiscards(in.Discards)
		if err != nil {
			c.sendEvent(game.Event{
				Type: game.EventRejected, GameID: s.ID,
				Reason: engine.RejectIllegalMove, Detail: err.Error(),
			})
			return
		}
		_ = s.HandleResolve(c.user.ID, discards)
	case IntentRematchVote:
		if in.Vote == nil {
			return
		}
		_ = s.HandleRematchVote(c.user.ID, *in.Vote)
	case IntentConcede:
		_ = s.HandleConcede(c.user.ID)
	default:
		logrus.WithField("user_id", c.user.ID).Debug("unknown intent type: ", in.Type)
	}
}

// boundSession resolves the session the connection is joined to.
func (c *Client) boundSession(ctx context.Context) (*game.Session, error) {
	c.hub.mu.Lock()
	gameID := c.gameID
	c.hub.mu.Unlock()
	if gameID == uuid.Nil {
		return nil, errNotJoined
	}
	return c.hub.manager.GetSession(ctx, gameID)
}
