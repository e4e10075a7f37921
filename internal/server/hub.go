package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pfcuttle/cuttle/internal/game"
)

// DefaultGracePeriod is how long a player binding outlives its socket.
const DefaultGracePeriod = 30 * time.Second

// Hub is the connection registry. It owns the conn↔(game, role) bindings,
// the insertion-ordered spectator lists and the reconnect grace timers, and
// it installs the broadcast callbacks on every session the manager creates.
type Hub struct {
	mu          sync.Mutex
	rooms       map[uuid.UUID]*room
	manager     *game.Manager
	gracePeriod time.Duration
}

// room is the per-game connection set.
type room struct {
	clients    map[*Client]struct{}
	spectators []*Client // insertion order
	// userID -> timer unbinding a disconnected player after the grace period
	graceTimers map[uuid.UUID]*time.Timer
}

// NewHub wires itself into the manager so callbacks are installed before a
// session can emit anything.
func NewHub(manager *game.Manager, gracePeriod time.Duration) *Hub {
	h := &Hub{
		rooms:       make(map[uuid.UUID]*room),
		manager:     manager,
		gracePeriod: gracePeriod,
	}
	manager.OnSessionCreated = h.attachSession
	return h
}

// attachSession installs the fan-out callbacks on a new session.
func (h *Hub) attachSession(s *game.Session) {
	gameID := s.ID
	s.BroadcastFn = func(ev game.Event) {
		h.broadcast(gameID, ev)
	}
	s.BroadcastToUserFn = func(userID uuid.UUID, ev game.Event) {
		h.sendToUser(gameID, userID, ev)
	}
}

func (h *Hub) roomFor(gameID uuid.UUID) *room {
	rm, ok := h.rooms[gameID]
	if !ok {
		rm = &room{
			clients:     make(map[*Client]struct{}),
			graceTimers: make(map[uuid.UUID]*time.Timer),
		}
		h.rooms[gameID] = rm
	}
	return rm
}

// Join binds a connection to a game. Players are recognized by identity;
// everyone else spectates. The connection gets one snapshot immediately, and
// spectator joins broadcast the updated spectator list.
func (h *Hub) Join(ctx context.Context, c *Client, gameID uuid.UUID) error {
	s, err := h.manager.GetSession(ctx, gameID)
	if err != nil {
		var ie *game.IntegrityError
		if errors.As(err, &ie) {
			c.sendEvent(game.Event{Type: game.EventGameFault, GameID: gameID, Detail: ie.Detail})
		}
		return err
	}
	role, err := s.AddPlayer(c.user)
	if err != nil {
		return err
	}

	h.mu.Lock()
	var prevID uuid.UUID
	var prevList []string
	if c.gameID != uuid.Nil && c.gameID != gameID {
		wasSpectator := c.role == game.RoleSpectator
		prevID = c.gameID
		h.unbindLocked(c, true)
		if rm, ok := h.rooms[prevID]; ok && wasSpectator {
			prevList = rm.spectatorNamesLocked()
		} else {
			prevID = uuid.Nil
		}
	}
	rm := h.roomFor(gameID)
	// a reconnecting player cancels their pending unbind
	if t, ok := rm.graceTimers[c.user.ID]; ok {
		t.Stop()
		delete(rm.graceTimers, c.user.ID)
	}
	// one live connection per identity per game
	for other := range rm.clients {
		if other != c && other.user.ID == c.user.ID {
			h.unbindLocked(other, false)
			other.close("superseded by a newer connection")
		}
	}
	rm.clients[c] = struct{}{}
	c.gameID, c.role = gameID, role
	var specList []string
	if role == game.RoleSpectator {
		rm.spectators = append(rm.spectators, c)
		specList = rm.spectatorNamesLocked()
	}
	h.mu.Unlock()

	if prevID != uuid.Nil {
		h.broadcast(prevID, game.Event{
			Type: game.EventSpectatorList, GameID: prevID, Spectators: prevList,
		})
	}
	if role == game.RoleSpectator {
		h.broadcast(gameID, game.Event{
			Type: game.EventSpectatorList, GameID: gameID, Spectators: specList,
		})
	}
	c.sendEvent(game.Event{Type: game.EventStateSnapshot, Game: s.Snapshot(), GameID: gameID})
	logrus.WithFields(logrus.Fields{
		"game_id": gameID, "user_id": c.user.ID, "role": role,
	}).Info("connection joined game")
	return nil
}

// JoinRematch moves the connection to the successor of its current game.
func (h *Hub) JoinRematch(ctx context.Context, c *Client) error {
	h.mu.Lock()
	gameID := c.gameID
	h.mu.Unlock()
	if gameID == uuid.Nil {
		return errors.New("no game joined")
	}
	s, err := h.manager.GetSession(ctx, gameID)
	if err != nil {
		return err
	}
	next := s.SuccessorID()
	if next == nil {
		return errors.New("no rematch started")
	}
	return h.Join(ctx, c, *next)
}

// Leave drops the binding on an explicit leave intent.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	gameID := c.gameID
	wasSpectator := c.role == game.RoleSpectator
	h.unbindLocked(c, true)
	var specList []string
	if rm, ok := h.rooms[gameID]; ok && wasSpectator {
		specList = rm.spectatorNamesLocked()
	}
	h.mu.Unlock()

	if wasSpectator && gameID != uuid.Nil {
		h.broadcast(gameID, game.Event{
			Type: game.EventSpectatorList, GameID: gameID, Spectators: specList,
		})
	}
}

// Disconnect handles a dropped socket. Spectator bindings are removed at
// once; a player binding outlives the socket by the grace period so a
// reconnect can reclaim it. Game state is never touched.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	gameID := c.gameID
	if gameID == uuid.Nil {
		h.mu.Unlock()
		return
	}
	if c.role == game.RoleSpectator {
		h.unbindLocked(c, true)
		var specList []string
		if rm, ok := h.rooms[gameID]; ok {
			specList = rm.spectatorNamesLocked()
		}
		h.mu.Unlock()
		h.broadcast(gameID, game.Event{
			Type: game.EventSpectatorList, GameID: gameID, Spectators: specList,
		})
		return
	}

	rm := h.roomFor(gameID)
	delete(rm.clients, c)
	userID := c.user.ID
	if h.gracePeriod > 0 {
		rm.graceTimers[userID] = time.AfterFunc(h.gracePeriod, func() {
			h.mu.Lock()
			if rm, ok := h.rooms[gameID]; ok {
				delete(rm.graceTimers, userID)
			}
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{
				"game_id": gameID, "user_id": userID,
			}).Info("player grace period expired")
		})
	}
	h.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"game_id": gameID, "user_id": userID,
	}).Info("player disconnected, grace period running")
}

// unbindLocked removes a connection from its room. Lock held.
func (h *Hub) unbindLocked(c *Client, clearBinding bool) {
	rm, ok := h.rooms[c.gameID]
	if ok {
		delete(rm.clients, c)
		for i, sc := range rm.spectators {
			if sc == c {
				rm.spectators = append(rm.spectators[:i], rm.spectators[i+1:]...)
				break
			}
		}
	}
	if clearBinding {
		c.gameID, c.role = uuid.Nil, ""
	}
}

func (rm *room) spectatorNamesLocked() []string {
	out := make([]string, len(rm.spectators))
	for i, c := range rm.spectators {
		out[i] = c.user.Username
	}
	return out
}

// broadcast marshals once and enqueues to every connection bound to the
// game. Enqueue is synchronous, so events of successive mutations keep
// their order per connection.
func (h *Hub) broadcast(gameID uuid.UUID, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithField("game_id", gameID).Error("event marshal failed: ", err)
		return
	}
	h.mu.Lock()
	rm, ok := h.rooms[gameID]
	if !ok {
		h.mu.Unlock()
		return
	}
	targets := make([]*Client, 0, len(rm.clients))
	for c := range rm.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// sendToUser delivers an event to one identity's connection in the game.
func (h *Hub) sendToUser(gameID, userID uuid.UUID, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithField("game_id", gameID).Error("event marshal failed: ", err)
		return
	}
	h.mu.Lock()
	var target *Client
	if rm, ok := h.rooms[gameID]; ok {
		for c := range rm.clients {
			if c.user.ID == userID {
				target = c
				break
			}
		}
	}
	h.mu.Unlock()
	if target != nil {
		target.enqueue(data)
	}
}

// hasGraceTimer reports whether a disconnected player still holds a binding.
func (h *Hub) hasGraceTimer(gameID, userID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[gameID]
	if !ok {
		return false
	}
	_, ok = rm.graceTimers[userID]
	return ok
}
