package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Manager owns the resident sessions. Lookups that miss fall through to the
// store; records that fail to load cleanly poison the game id so no further
// mutations are served against unknown state.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	poisoned map[uuid.UUID]bool

	store         Store
	journal       Journal
	counterWindow time.Duration

	// OnSessionCreated lets the transport layer install broadcast callbacks
	// before any event can fire.
	OnSessionCreated func(s *Session)
}

// NewManager builds a Manager. store may be nil for in-memory-only play.
func NewManager(store Store, journal Journal, counterWindow time.Duration) *Manager {
	return &Manager{
		sessions:      make(map[uuid.UUID]*Session),
		poisoned:      make(map[uuid.UUID]bool),
		store:         store,
		journal:       journal,
		counterWindow: counterWindow,
	}
}

// CreateGame makes a fresh waiting session under a new id.
func (m *Manager) CreateGame() *Session {
	s := NewSession(uuid.New(), m.store, m.journal, m.counterWindow)
	m.wire(s)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	logrus.WithField("game_id", s.ID).Info("game created")
	return s
}

// GetSession returns the session for a game id, reviving it from the store
// when it is not resident. A corrupt record poisons the id.
func (m *Manager) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	if m.poisoned[id] {
		m.mu.Unlock()
		return nil, &IntegrityError{GameID: id, Detail: "game state is corrupted"}
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil, ErrGameNotFound
	}
	rec, err := m.store.LoadGame(ctx, id)
	if errors.Is(err, ErrGameNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		m.mu.Lock()
		m.poisoned[id] = true
		m.mu.Unlock()
		logrus.WithField("game_id", id).Error("poisoning game id, load failed: ", err)
		return nil, &IntegrityError{GameID: id, Detail: "game state is corrupted"}
	}

	s := Resume(rec, m.store, m.journal, m.counterWindow)
	m.wire(s)
	m.mu.Lock()
	// another goroutine may have revived it first
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()
	logrus.WithField("game_id", id).Info("game revived from store")
	return s, nil
}

// wire installs the manager-side hooks on a session.
func (m *Manager) wire(s *Session) {
	s.OnRematchAgreed = m.createRematch
	if m.OnSessionCreated != nil {
		m.OnSessionCreated(s)
	}
}

// createRematch builds the successor game for a finished session: same
// players, opposite first seat, dealt immediately with both vote fields null.
func (m *Manager) createRematch(prev *Session) (*Session, error) {
	users := prev.Users()
	if users[0] == nil || users[1] == nil {
		return nil, errors.New("rematch requires two seated players")
	}
	next := NewSession(uuid.New(), m.store, m.journal, m.counterWindow)
	m.wire(next)
	m.mu.Lock()
	m.sessions[next.ID] = next
	m.mu.Unlock()

	prev.mu.Lock()
	firstSeat := 1 - prev.firstSeat
	prev.mu.Unlock()
	next.SeedPlayers(users[0], users[1], firstSeat)
	return next, nil
}

// Archive removes a resident session after marking it archived. Further
// mutation intents against the id fault.
func (m *Manager) Archive(id uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	if s.status == StatusFinished {
		s.status = StatusArchived
		s.checkpointLocked()
	}
	s.mu.Unlock()
}
