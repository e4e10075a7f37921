package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfcuttle/cuttle/engine"
)

// ErrGameNotFound is returned by Store implementations for unknown game ids.
var ErrGameNotFound = errors.New("game not found")

// GameRecord is the persisted form of a session. The engine state serializes
// as-is; everything else is session bookkeeping.
type GameRecord struct {
	ID          uuid.UUID        `json:"id"`
	Status      Status           `json:"status"`
	P0ID        *uuid.UUID       `json:"p0Id"`
	P1ID        *uuid.UUID       `json:"p1Id"`
	P0Username  string           `json:"p0Username,omitempty"`
	P1Username  string           `json:"p1Username,omitempty"`
	WinnerID    *uuid.UUID       `json:"winnerId"`
	SuccessorID *uuid.UUID       `json:"successorId"`
	P0Rematch   *bool            `json:"p0Rematch"`
	P1Rematch   *bool            `json:"p1Rematch"`
	FirstSeat   uint8            `json:"firstSeat"`
	State       engine.GameState `json:"state"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Store is the persistence boundary. The session calls SaveGame on every
// accepted mutation and LoadGame when a game id is not resident in memory.
type Store interface {
	LoadGame(ctx context.Context, id uuid.UUID) (*GameRecord, error)
	SaveGame(ctx context.Context, id uuid.UUID, rec *GameRecord) error
}

// GameActionRecord is one accepted mutation, journaled for audit/replay.
type GameActionRecord struct {
	GameID      uuid.UUID      `json:"gameId"`
	ActionIndex int            `json:"actionIndex"`
	ActorUserID uuid.UUID      `json:"actorUserId"`
	ActionType  string         `json:"actionType"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}

// Journal receives the action records. Implementations must be safe for
// concurrent use; failures are logged by the caller, never fatal.
type Journal interface {
	Record(ctx context.Context, rec GameActionRecord) error
}

// MemoryStore is an in-process Store for tests and storeless deployments.
type MemoryStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*GameRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[uuid.UUID]*GameRecord)}
}

func (m *MemoryStore) LoadGame(_ context.Context, id uuid.UUID) (*GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	cp := *rec
	return &cp, nil
}

// SaveGame upserts a record. Writes are issued asynchronously, so a record
// older than the stored one is skipped; UpdatedAt is assigned under the
// session lock and orders the snapshots.
func (m *MemoryStore) SaveGame(_ context.Context, id uuid.UUID, rec *GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.games[id]; ok && prev.UpdatedAt.After(rec.UpdatedAt) {
		return nil
	}
	cp := *rec
	m.games[id] = &cp
	return nil
}
