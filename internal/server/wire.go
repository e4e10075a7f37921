// Package server is the websocket transport: it authenticates connections,
// binds them to games with a role, decodes intents and fans session events
// out to every bound connection.
package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pfcuttle/cuttle/engine"
	"github.com/pfcuttle/cuttle/internal/game"
)

// Intent is the client→server envelope. Fields beyond Type and GameID are
// read per intent type.
type Intent struct {
	Type   string    `json:"type"`
	GameID uuid.UUID `json:"gameId"`

	// move
	Kind       string `json:"kind,omitempty"`
	Card       string `json:"card,omitempty"`
	Target     string `json:"target,omitempty"`
	TargetZone string `json:"targetZone,omitempty"`
	FromDeck   bool   `json:"fromDeck,omitempty"`

	// resolve (four discard)
	Discards []string `json:"discards,omitempty"`

	// rematch-vote
	Vote *bool `json:"vote,omitempty"`
}

const (
	IntentJoin        = "join"
	IntentLeave       = "leave"
	IntentMove        = "move"
	IntentCounter     = "counter"
	IntentResolve     = "resolve"
	IntentRematchVote = "rematch-vote"
	IntentJoinRematch = "join-rematch"
	IntentConcede     = "concede"
)

// decodeMove translates the wire fields into an engine move.
func decodeMove(in *Intent) (engine.Move, error) {
	mv := engine.Move{Kind: engine.MoveKind(in.Kind), FromDeck: in.FromDeck}
	switch mv.Kind {
	case engine.MoveDraw, engine.MovePoints, engine.MoveScuttle,
		engine.MoveFaceCard, engine.MoveJack, engine.MoveOneOff,
		engine.MoveTargetedOneOff:
	default:
		return mv, fmt.Errorf("unknown move kind %q", in.Kind)
	}
	if mv.Kind != engine.MoveDraw {
		c, err := engine.ParseCard(in.Card)
		if err != nil {
			return mv, err
		}
		mv.Card = c
	}
	mv.Target = engine.NoCard
	if in.Target != "" {
		tgt, err := engine.ParseCard(in.Target)
		if err != nil {
			return mv, err
		}
		mv.Target = tgt
	}
	switch in.TargetZone {
	case "":
		mv.TargetKind = engine.TargetNone
	case "point":
		mv.TargetKind = engine.TargetPoint
	case "face":
		mv.TargetKind = engine.TargetFace
	case "scrap":
		mv.TargetKind = engine.TargetScrap
	default:
		return mv, fmt.Errorf("unknown target zone %q", in.TargetZone)
	}
	return mv, nil
}

func decodeDiscards(codes []string) ([]engine.Card, error) {
	out := make([]engine.Card, 0, len(codes))
	for _, code := range codes {
		c, err := engine.ParseCard(code)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseIntent(data []byte) (*Intent, error) {
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	if in.Type == "" {
		return nil, fmt.Errorf("intent missing type")
	}
	return &in, nil
}

func parseWireCard(code string) (engine.Card, error) {
	return engine.ParseCard(code)
}

func marshalEvent(ev game.Event) ([]byte, error) {
	return json.Marshal(ev)
}

var errNotJoined = errors.New("no game joined")
