package game

import (
	"github.com/google/uuid"

	"github.com/pfcuttle/cuttle/engine"
)

// EventType represents the type of a game-related event sent to clients.
type EventType string

const (
	// EventStateSnapshot carries the full current table state. Exactly one is
	// broadcast per accepted mutation; a reconnecting client receives one
	// privately.
	EventStateSnapshot EventType = "state-snapshot"
	// EventRejected is sent to the originating connection only, with one of
	// the closed rejection reasons.
	EventRejected EventType = "rejected"
	// EventSpectatorList announces the current ordered spectator usernames.
	EventSpectatorList EventType = "spectator-list"
	// EventRematchOffer tells the other side a player wants a rematch.
	EventRematchOffer EventType = "rematch-offer"
	// EventGameOver announces the winner (nil on stalemate).
	EventGameOver EventType = "game-over"
	// EventRematchStarted publishes the successor game id to every
	// connection of the finished game.
	EventRematchStarted EventType = "rematch-started"
	// EventGameFault marks the game id unserviceable (integrity fault).
	EventGameFault EventType = "game-fault"
)

// Event is the standard server→client message shape.
type Event struct {
	Type EventType `json:"type"`

	Game *StateView `json:"game,omitempty"` // snapshots

	Reason engine.RejectReason `json:"reason,omitempty"` // rejections
	Detail string              `json:"detail,omitempty"`

	Winner *uuid.UUID `json:"winner,omitempty"` // game-over

	GameID     uuid.UUID  `json:"gameId,omitempty"`     // rematch-started, faults
	OfferedBy  *uuid.UUID `json:"offeredBy,omitempty"`  // rematch-offer
	Spectators []string   `json:"spectators,omitempty"` // spectator-list

	// TimedOut marks a snapshot produced by a counter-window expiry rather
	// than an explicit pass.
	TimedOut bool `json:"timedOut,omitempty"`
}
