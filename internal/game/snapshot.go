package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/pfcuttle/cuttle/engine"
)

// StateView is the wire representation of a game. The same view goes to
// every bound connection; cards are rendered as two-letter codes.
type StateView struct {
	ID      uuid.UUID    `json:"id"`
	Status  Status       `json:"status"`
	Turn    uint8        `json:"turn"`
	Passes  uint8        `json:"passes"`
	Sides   [2]SideView  `json:"sides"`
	Deck    int          `json:"deckCount"`
	Scrap   []string     `json:"scrap"`
	Last    LastView     `json:"lastMove"`
	Pending *PendingView `json:"pending,omitempty"`
	Winner  *uuid.UUID   `json:"winner,omitempty"`

	P0Rematch *bool      `json:"p0Rematch"`
	P1Rematch *bool      `json:"p1Rematch"`
	Successor *uuid.UUID `json:"rematchGame,omitempty"`
}

// SideView is one player's half of the board.
type SideView struct {
	UserID      *uuid.UUID  `json:"userId,omitempty"`
	Username    string      `json:"username"`
	Hand        []string    `json:"hand"`
	Points      []PointView `json:"points"`
	Faces       []string    `json:"faceCards"`
	PointTotal  int         `json:"pointTotal"`
	PointsToWin int         `json:"pointsToWin"`
}

// PointView is a point card with its attached jacks in steal order.
type PointView struct {
	Card  string   `json:"card"`
	Jacks []string `json:"jacks,omitempty"`
}

// LastView mirrors the last accepted move for client animation.
type LastView struct {
	Actor  uint8  `json:"actor"`
	Kind   string `json:"kind,omitempty"`
	Card   string `json:"card,omitempty"`
	Target string `json:"target,omitempty"`
}

// PendingView describes the open resolution stack or obligation.
type PendingView struct {
	Kind          string     `json:"kind"`
	Responder     uint8      `json:"responder"`
	Stack         []string   `json:"stack"`
	BaseCard      string     `json:"baseCard"`
	Target        string     `json:"target,omitempty"`
	CannotCounter bool       `json:"cannotCounter"`
	Revealed      string     `json:"revealed,omitempty"`
	Expiry        *time.Time `json:"expiresAt,omitempty"`
}

func cardCodes(cards []engine.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

// snapshotLocked builds the current StateView. Lock held.
func (s *Session) snapshotLocked() *StateView {
	st := &s.state
	v := &StateView{
		ID:        s.ID,
		Status:    s.status,
		Turn:      st.Turn,
		Passes:    st.Passes,
		Deck:      len(st.Deck),
		Scrap:     cardCodes(st.Scrap),
		Winner:    s.winnerID,
		P0Rematch: s.votes[0],
		P1Rematch: s.votes[1],
		Successor: s.successor,
	}
	for seat := 0; seat < engine.NumPlayers; seat++ {
		sv := SideView{
			Hand:        cardCodes(st.Hands[seat]),
			Faces:       cardCodes(st.Faces[seat]),
			PointTotal:  st.PointTotal(uint8(seat)),
			PointsToWin: st.PointsToWin(uint8(seat)),
		}
		if u := s.users[seat]; u != nil {
			id := u.ID
			sv.UserID, sv.Username = &id, u.Username
		}
		sv.Points = make([]PointView, len(st.Points[seat]))
		for i, pc := range st.Points[seat] {
			sv.Points[i] = PointView{Card: pc.Card.String(), Jacks: cardCodes(pc.Jacks)}
		}
		v.Sides[seat] = sv
	}
	if st.Last.Kind != "" {
		v.Last = LastView{
			Actor:  st.Last.Player,
			Kind:   string(st.Last.Kind),
			Card:   st.Last.Card.String(),
			Target: st.Last.Target.String(),
		}
	}
	if len(st.Stack) > 0 {
		v.Pending = s.pendingViewLocked()
	}
	return v
}

// pendingViewLocked renders the resolution stack. Lock held.
func (s *Session) pendingViewLocked() *PendingView {
	st := &s.state
	top := st.Stack[len(st.Stack)-1]
	base := st.Stack[0]
	pv := &PendingView{
		Kind:     top.Kind.String(),
		Stack:    make([]string, len(st.Stack)),
		BaseCard: base.Card.String(),
	}
	for i, e := range st.Stack {
		pv.Stack[i] = e.Card.String()
	}
	if base.TargetKind != engine.TargetNone {
		pv.Target = base.Target.String()
	}
	if responder, ok := st.Responder(); ok {
		pv.Responder = responder
		pv.CannotCounter = st.CannotCounter()
	}
	if c := st.RevealedCard(); c != engine.NoCard {
		pv.Revealed = c.String()
	}
	if !s.windowExpiry.IsZero() {
		t := s.windowExpiry
		pv.Expiry = &t
	}
	return pv
}
