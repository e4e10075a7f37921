// Package game holds the per-game session layer: one Session per game id,
// serializing all mutation behind a mutex and fanning results out through
// broadcast callbacks installed by the connection registry.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pfcuttle/cuttle/engine"
	"github.com/pfcuttle/cuttle/internal/models"
)

// Status is the lifecycle state of a game.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"
	StatusArchived   Status = "archived"
)

// Role is a connection's relationship to a game.
type Role string

const (
	RolePlayer0   Role = "player-0"
	RolePlayer1   Role = "player-1"
	RoleSpectator Role = "spectator"
)

// DefaultCounterWindow is the expiry for an unanswered counter window.
// Zero disables the timer.
const DefaultCounterWindow = 90 * time.Second

// Session owns the authoritative state of one game. Every mutating entry
// point takes the session mutex, so mutations for a game id are strictly
// serialized and each broadcast is sent before the next mutation is accepted.
type Session struct {
	ID uuid.UUID

	mu              sync.Mutex
	users           [2]*models.User
	status          Status
	winnerID        *uuid.UUID
	state           engine.GameState
	votes           [2]*bool
	successor       *uuid.UUID
	rematchStarting bool
	firstSeat       uint8
	poisoned        bool

	counterWindow time.Duration
	counterTimer  *time.Timer
	stackSeq      uint64
	windowExpiry  time.Time

	actionIndex int

	store   Store
	journal Journal

	// BroadcastFn sends an event to every connection bound to this game id.
	BroadcastFn func(ev Event)
	// BroadcastToUserFn sends an event to one identity's connection only.
	BroadcastToUserFn func(userID uuid.UUID, ev Event)
	// OnFinished is invoked (outside the lock) when the game finishes.
	OnFinished func(s *Session, winner *uuid.UUID)
	// OnRematchAgreed is invoked (outside the lock) when both votes are true;
	// it must create and return the successor session.
	OnRematchAgreed func(s *Session) (*Session, error)
}

// NewSession creates a game in the waiting state.
func NewSession(id uuid.UUID, store Store, journal Journal, counterWindow time.Duration) *Session {
	return &Session{
		ID:            id,
		status:        StatusWaiting,
		counterWindow: counterWindow,
		store:         store,
		journal:       journal,
	}
}

// Resume rebuilds a session from a persisted record.
func Resume(rec *GameRecord, store Store, journal Journal, counterWindow time.Duration) *Session {
	s := NewSession(rec.ID, store, journal, counterWindow)
	s.status = rec.Status
	s.winnerID = rec.WinnerID
	s.successor = rec.SuccessorID
	s.votes[0], s.votes[1] = rec.P0Rematch, rec.P1Rematch
	s.firstSeat = rec.FirstSeat
	s.state = rec.State
	if rec.P0ID != nil {
		s.users[0] = &models.User{ID: *rec.P0ID, Username: rec.P0Username}
	}
	if rec.P1ID != nil {
		s.users[1] = &models.User{ID: *rec.P1ID, Username: rec.P1Username}
	}
	return s
}

// Poison marks the game id unserviceable (corrupted persisted state).
func (s *Session) Poison() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poisoned = true
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Users returns the seated players (entries may be nil while waiting).
func (s *Session) Users() [2]*models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users
}

// SeatOf maps an identity to its seat, or -1 for non-players.
// Callers holding no lock may use RoleOf instead.
func (s *Session) seatOf(userID uuid.UUID) int {
	for i, u := range s.users {
		if u != nil && u.ID == userID {
			return i
		}
	}
	return -1
}

// RoleOf resolves the role an identity holds in this game.
func (s *Session) RoleOf(userID uuid.UUID) Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.seatOf(userID) {
	case 0:
		return RolePlayer0
	case 1:
		return RolePlayer1
	default:
		return RoleSpectator
	}
}

// AddPlayer seats a user. The second seat filled starts the game. Returns
// the assigned role; a user who already holds a seat keeps it (reconnect).
func (s *Session) AddPlayer(u *models.User) (Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seat := s.seatOf(u.ID); seat >= 0 {
		return seatRole(uint8(seat)), nil
	}
	if s.status != StatusWaiting {
		return RoleSpectator, nil
	}
	for seat := range s.users {
		if s.users[seat] == nil {
			s.users[seat] = u
			if s.users[0] != nil && s.users[1] != nil {
				s.startLocked()
			} else {
				s.checkpointLocked()
			}
			return seatRole(uint8(seat)), nil
		}
	}
	return RoleSpectator, nil
}

func seatRole(seat uint8) Role {
	if seat == 0 {
		return RolePlayer0
	}
	return RolePlayer1
}

// SeedPlayers seats both users without starting; used by rematch creation
// before the deal.
func (s *Session) SeedPlayers(p0, p1 *models.User, firstSeat uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[0], s.users[1] = p0, p1
	s.firstSeat = firstSeat
	s.startLocked()
}

// startLocked deals and transitions to in-progress. Lock held.
func (s *Session) startLocked() {
	s.state = engine.NewGame(uint64(time.Now().UnixNano()))
	s.state.Deal(s.firstSeat)
	s.status = StatusInProgress
	s.logAction(uuid.Nil, "game_start", nil)
	s.checkpointLocked()
	s.broadcastSnapshotLocked(false)
	logrus.WithFields(logrus.Fields{
		"game_id": s.ID,
		"p0":      s.users[0].ID,
		"p1":      s.users[1].ID,
	}).Info("game started")
}

// HandleMove validates and applies a turn move for an identity.
func (s *Session) HandleMove(userID uuid.UUID, mv engine.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, err := s.gateMutation(userID)
	if err != nil {
		return err
	}
	if err := s.state.Apply(seat, mv); err != nil {
		return s.rejectLocked(userID, err)
	}
	s.logAction(userID, "move_"+string(mv.Kind), map[string]any{
		"card": mv.Card.String(), "target": mv.Target.String(),
	})
	s.afterMutationLocked(false)
	return nil
}

// HandleCounter plays a counter during an open window.
func (s *Session) HandleCounter(userID uuid.UUID, card engine.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, err := s.gateMutation(userID)
	if err != nil {
		return err
	}
	if err := s.state.Counter(seat, card); err != nil {
		return s.rejectLocked(userID, err)
	}
	s.logAction(userID, "counter", map[string]any{"card": card.String()})
	s.afterMutationLocked(false)
	return nil
}

// HandleResolve is the explicit pass / effect resolution intent. For a
// pending four the intent names the discards.
func (s *Session) HandleResolve(userID uuid.UUID, discards []engine.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, err := s.gateMutation(userID)
	if err != nil {
		return err
	}
	var applyErr error
	if len(discards) > 0 {
		applyErr = s.state.ResolveFourDiscard(seat, discards)
	} else {
		applyErr = s.state.Resolve(seat)
	}
	if applyErr != nil {
		return s.rejectLocked(userID, applyErr)
	}
	s.logAction(userID, "resolve", nil)
	s.afterMutationLocked(false)
	return nil
}

// HandleConcede finishes the game with the opponent as winner.
func (s *Session) HandleConcede(userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, err := s.gateMutation(userID)
	if err != nil {
		return err
	}
	s.state.Finished = true
	s.state.Winner = int8(1 - seat)
	s.logAction(userID, "concede", nil)
	s.afterMutationLocked(false)
	return nil
}

// gateMutation runs the shared preconditions: the game id must be
// serviceable, the identity must hold a seat, and the game must accept
// mutations. Lock held.
func (s *Session) gateMutation(userID uuid.UUID) (uint8, error) {
	if s.poisoned {
		return 0, s.faultLocked(userID, "game state is corrupted")
	}
	seat := s.seatOf(userID)
	if seat < 0 {
		return 0, s.rejectLocked(userID, &engine.Rejection{
			Reason: engine.RejectNotInGame, Detail: "spectators cannot act",
		})
	}
	switch s.status {
	case StatusInProgress:
		return uint8(seat), nil
	case StatusWaiting:
		return 0, s.rejectLocked(userID, &engine.Rejection{
			Reason: engine.RejectIllegalMove, Detail: "game has not started",
		})
	default: // finished, archived
		return 0, s.faultLocked(userID, "game is no longer in progress")
	}
}

// rejectLocked sends a rejected event to the originator only and returns the
// error for the caller. State is untouched by construction. Lock held.
func (s *Session) rejectLocked(userID uuid.UUID, err error) error {
	r, ok := engine.AsRejection(err)
	if !ok {
		return err
	}
	if s.BroadcastToUserFn != nil {
		s.BroadcastToUserFn(userID, Event{
			Type:   EventRejected,
			Reason: r.Reason,
			Detail: r.Detail,
			GameID: s.ID,
		})
	}
	return err
}

// faultLocked surfaces an integrity fault, distinct from rejections. Lock held.
func (s *Session) faultLocked(userID uuid.UUID, detail string) error {
	logrus.WithFields(logrus.Fields{"game_id": s.ID, "user_id": userID}).
		Warn("refusing mutation: ", detail)
	if s.BroadcastToUserFn != nil {
		s.BroadcastToUserFn(userID, Event{Type: EventGameFault, GameID: s.ID, Detail: detail})
	}
	return &IntegrityError{GameID: s.ID, Detail: detail}
}

// IntegrityError marks a game id that refuses mutations.
type IntegrityError struct {
	GameID uuid.UUID
	Detail string
}

func (e *IntegrityError) Error() string {
	return "game " + e.GameID.String() + ": " + e.Detail
}

// afterMutationLocked runs the shared post-mutation path: finish detection,
// checkpoint, timer upkeep and the single snapshot broadcast. Lock held.
func (s *Session) afterMutationLocked(timedOut bool) {
	finishedNow := false
	if s.state.Finished && s.status == StatusInProgress {
		s.status = StatusFinished
		if s.state.Winner >= 0 {
			id := s.users[s.state.Winner].ID
			s.winnerID = &id
		}
		finishedNow = true
	}
	s.checkpointLocked()
	s.armCounterTimerLocked()
	s.broadcastSnapshotLocked(timedOut)
	if finishedNow {
		if s.BroadcastFn != nil {
			s.BroadcastFn(Event{Type: EventGameOver, GameID: s.ID, Winner: s.winnerID})
		}
		s.logAction(uuid.Nil, "game_over", map[string]any{"winner": s.winnerID})
		if s.OnFinished != nil {
			winner := s.winnerID
			go s.OnFinished(s, winner)
		}
	}
}

// armCounterTimerLocked starts, restarts or cancels the counter-window
// expiry timer to match the top of the resolution stack. Lock held.
func (s *Session) armCounterTimerLocked() {
	s.stackSeq++
	s.windowExpiry = time.Time{}
	if s.counterTimer != nil {
		s.counterTimer.Stop()
		s.counterTimer = nil
	}
	if s.counterWindow <= 0 || s.status != StatusInProgress {
		return
	}
	responder, ok := s.state.Responder()
	if !ok {
		return
	}
	top := s.state.Stack[len(s.state.Stack)-1]
	if top.Kind != engine.PendingOneOff && top.Kind != engine.PendingCounter {
		return // obligations have no expiry
	}
	seq := s.stackSeq
	s.windowExpiry = time.Now().Add(s.counterWindow)
	s.counterTimer = time.AfterFunc(s.counterWindow, func() {
		s.expireCounterWindow(seq, responder)
	})
}

// expireCounterWindow resolves the window as an implicit pass if the
// responder has not acted since the timer was armed.
func (s *Session) expireCounterWindow(seq uint64, responder uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.stackSeq || s.status != StatusInProgress {
		return
	}
	if err := s.state.Resolve(responder); err != nil {
		logrus.WithFields(logrus.Fields{"game_id": s.ID}).
			Warn("counter-window expiry could not resolve: ", err)
		return
	}
	s.logAction(uuid.Nil, "counter_window_expired", map[string]any{"responder": responder})
	s.afterMutationLocked(true)
}

// HandleReconnect sends the current full snapshot to one identity's
// connection. Reconnection never mutates game state and never replays
// intermediate deltas.
func (s *Session) HandleReconnect(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BroadcastToUserFn == nil {
		return
	}
	ev := Event{Type: EventStateSnapshot, Game: s.snapshotLocked()}
	s.BroadcastToUserFn(userID, ev)
	logrus.WithFields(logrus.Fields{"game_id": s.ID, "user_id": userID}).
		Debug("snapshot re-sent on reconnect")
}

// Snapshot returns the current state view (used by join paths and tests).
func (s *Session) Snapshot() *StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// broadcastSnapshotLocked emits the single per-mutation snapshot. Lock held.
func (s *Session) broadcastSnapshotLocked(timedOut bool) {
	if s.BroadcastFn == nil {
		return
	}
	s.BroadcastFn(Event{
		Type:     EventStateSnapshot,
		Game:     s.snapshotLocked(),
		TimedOut: timedOut,
	})
}

// checkpointLocked persists the current record. The write itself runs
// asynchronously; persistence failures are logged, never fatal. Lock held.
func (s *Session) checkpointLocked() {
	if s.store == nil {
		return
	}
	rec := s.recordLocked()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.SaveGame(ctx, rec.ID, rec); err != nil {
			logrus.WithFields(logrus.Fields{"game_id": rec.ID}).
				Error("checkpoint failed: ", err)
		}
	}()
}

// recordLocked builds a persistence record from the current state. Lock held.
func (s *Session) recordLocked() *GameRecord {
	rec := &GameRecord{
		ID:          s.ID,
		Status:      s.status,
		WinnerID:    s.winnerID,
		SuccessorID: s.successor,
		P0Rematch:   s.votes[0],
		P1Rematch:   s.votes[1],
		FirstSeat:   s.firstSeat,
		State:       s.state.Clone(),
		UpdatedAt:   time.Now(),
	}
	if s.users[0] != nil {
		id := s.users[0].ID
		rec.P0ID, rec.P0Username = &id, s.users[0].Username
	}
	if s.users[1] != nil {
		id := s.users[1].ID
		rec.P1ID, rec.P1Username = &id, s.users[1].Username
	}
	return rec
}

// logAction journals an accepted mutation asynchronously. Lock held.
func (s *Session) logAction(actorID uuid.UUID, actionType string, payload map[string]any) {
	if s.journal == nil {
		return
	}
	s.actionIndex++
	rec := GameActionRecord{
		GameID:      s.ID,
		ActionIndex: s.actionIndex,
		ActorUserID: actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.journal.Record(ctx, rec); err != nil {
			logrus.WithFields(logrus.Fields{"game_id": rec.GameID}).
				Error("action journal failed: ", err)
		}
	}()
}
