package game

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pfcuttle/cuttle/engine"
)

// HandleRematchVote records a player's rematch vote on a finished game.
// A false vote resets both fields so a later offer starts clean. When both
// votes are true the successor game is created (via OnRematchAgreed), votes
// on the successor start null, and rematch-started goes to every bound
// connection.
func (s *Session) HandleRematchVote(userID uuid.UUID, vote bool) error {
	s.mu.Lock()
	if s.poisoned {
		defer s.mu.Unlock()
		return s.faultLocked(userID, "game state is corrupted")
	}
	seat := s.seatOf(userID)
	if seat < 0 {
		defer s.mu.Unlock()
		return s.rejectLocked(userID, &engine.Rejection{
			Reason: engine.RejectNotInGame, Detail: "spectators cannot vote",
		})
	}
	if s.status != StatusFinished {
		defer s.mu.Unlock()
		return s.rejectLocked(userID, &engine.Rejection{
			Reason: engine.RejectIllegalMove, Detail: "rematch vote requires a finished game",
		})
	}
	if s.successor != nil || s.rematchStarting {
		defer s.mu.Unlock()
		return s.rejectLocked(userID, &engine.Rejection{
			Reason: engine.RejectIllegalMove, Detail: "rematch already started",
		})
	}

	if !vote {
		s.votes[0], s.votes[1] = nil, nil
	} else {
		v := true
		s.votes[seat] = &v
	}
	s.logAction(userID, "rematch_vote", map[string]any{"vote": vote})
	agreed := s.votes[0] != nil && *s.votes[0] && s.votes[1] != nil && *s.votes[1]
	if agreed {
		s.rematchStarting = true
	}
	s.checkpointLocked()
	if s.BroadcastFn != nil {
		if vote && !agreed {
			s.BroadcastFn(Event{Type: EventRematchOffer, GameID: s.ID, OfferedBy: &userID})
		}
		s.BroadcastFn(Event{Type: EventStateSnapshot, Game: s.snapshotLocked()})
	}
	s.mu.Unlock()

	if !agreed {
		return nil
	}
	return s.startSuccessor()
}

// startSuccessor creates the follow-up game and announces it. Runs outside
// the session lock because creation goes through the manager.
func (s *Session) startSuccessor() error {
	if s.OnRematchAgreed == nil {
		return nil
	}
	next, err := s.OnRematchAgreed(s)
	if err != nil {
		s.mu.Lock()
		s.rematchStarting = false
		s.mu.Unlock()
		logrus.WithFields(logrus.Fields{"game_id": s.ID}).
			Error("rematch creation failed: ", err)
		return err
	}

	s.mu.Lock()
	id := next.ID
	s.successor = &id
	s.checkpointLocked()
	broadcast := s.BroadcastFn
	s.mu.Unlock()

	if broadcast != nil {
		broadcast(Event{Type: EventRematchStarted, GameID: id})
	}
	logrus.WithFields(logrus.Fields{"game_id": s.ID, "next_game_id": id}).
		Info("rematch started")
	return nil
}

// SuccessorID returns the follow-up game id once a rematch has started.
func (s *Session) SuccessorID() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successor
}

// RematchVotes returns the current vote fields.
func (s *Session) RematchVotes() [2]*bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.votes
}
