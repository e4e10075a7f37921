package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfcuttle/cuttle/internal/game"
	"github.com/pfcuttle/cuttle/internal/models"
)

func newTestHub(t *testing.T, grace time.Duration) (*Hub, *game.Manager) {
	t.Helper()
	m := game.NewManager(game.NewMemoryStore(), nil, 0)
	h := NewHub(m, grace)
	return h, m
}

// testClient is a hub-bound connection without a socket; events are read
// straight off the send channel.
func testClient(h *Hub, username string) *Client {
	return newClient(h, nil, &models.User{ID: uuid.New(), Username: username})
}

func nextEvent(t *testing.T, c *Client) game.Event {
	t.Helper()
	select {
	case data := <-c.send:
		var ev game.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event on send channel")
		return game.Event{}
	}
}

func drainEvents(c *Client) []game.Event {
	var out []game.Event
	for {
		select {
		case data := <-c.send:
			var ev game.Event
			if json.Unmarshal(data, &ev) == nil {
				out = append(out, ev)
			}
		default:
			return out
		}
	}
}

func TestJoinAssignsSeatsThenSpectator(t *testing.T) {
	h, m := newTestHub(t, 0)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	spec := testClient(h, "carol")

	require.NoError(t, h.Join(ctx, p0, s.ID))
	assert.Equal(t, game.RolePlayer0, p0.role)
	require.NoError(t, h.Join(ctx, p1, s.ID))
	assert.Equal(t, game.RolePlayer1, p1.role)
	assert.Equal(t, game.StatusInProgress, s.Status())

	require.NoError(t, h.Join(ctx, spec, s.ID))
	assert.Equal(t, game.RoleSpectator, spec.role)

	// the spectator's own queue: spectator-list, then the snapshot
	ev := nextEvent(t, spec)
	assert.Equal(t, game.EventSpectatorList, ev.Type)
	assert.Equal(t, []string{"carol"}, ev.Spectators)
	ev = nextEvent(t, spec)
	assert.Equal(t, game.EventStateSnapshot, ev.Type)
	require.NotNil(t, ev.Game)
	assert.Equal(t, game.StatusInProgress, ev.Game.Status)
}

func TestSpectatorListKeepsJoinOrder(t *testing.T) {
	h, m := newTestHub(t, 0)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))

	names := []string{"spec1", "spec2", "spec3"}
	specs := make([]*Client, len(names))
	for i, n := range names {
		specs[i] = testClient(h, n)
		require.NoError(t, h.Join(ctx, specs[i], s.ID))
	}
	drainEvents(p0)

	// middle spectator leaves; order of the rest is preserved
	h.Leave(specs[1])
	var listEv *game.Event
	for _, ev := range drainEvents(p0) {
		if ev.Type == game.EventSpectatorList {
			e := ev
			listEv = &e
		}
	}
	require.NotNil(t, listEv)
	assert.Equal(t, []string{"spec1", "spec3"}, listEv.Spectators)
}

func TestPlayerMoveBroadcastsToAllBoundConnections(t *testing.T) {
	h, m := newTestHub(t, 0)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	spec := testClient(h, "carol")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))
	require.NoError(t, h.Join(ctx, spec, s.ID))
	drainEvents(p0)
	drainEvents(p1)
	drainEvents(spec)

	require.NoError(t, s.HandleConcede(p0.user.ID))

	for _, c := range []*Client{p0, p1, spec} {
		evs := drainEvents(c)
		var snaps, overs int
		for _, ev := range evs {
			switch ev.Type {
			case game.EventStateSnapshot:
				snaps++
			case game.EventGameOver:
				overs++
			}
		}
		assert.Equal(t, 1, snaps, "one snapshot per mutation for %s", c.user.Username)
		assert.Equal(t, 1, overs)
	}
}

func TestSpectatorIntentRejectedPrivately(t *testing.T) {
	h, m := newTestHub(t, 0)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	spec := testClient(h, "carol")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))
	require.NoError(t, h.Join(ctx, spec, s.ID))
	drainEvents(p0)
	drainEvents(p1)
	drainEvents(spec)

	spec.dispatch(ctx, &Intent{Type: IntentMove, Kind: "draw"})

	evs := drainEvents(spec)
	require.Len(t, evs, 1)
	assert.Equal(t, game.EventRejected, evs[0].Type)
	assert.Equal(t, "not-in-game", string(evs[0].Reason))
	assert.Empty(t, drainEvents(p0), "players must not see the rejection")
}

func TestMalformedCounterCardRejectedAsIllegalMove(t *testing.T) {
	h, m := newTestHub(t, 0)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))
	drainEvents(p1)

	p1.dispatch(ctx, &Intent{Type: IntentCounter, Card: "XX"})

	evs := drainEvents(p1)
	require.Len(t, evs, 1)
	assert.Equal(t, game.EventRejected, evs[0].Type)
	assert.Equal(t, "illegal-move", string(evs[0].Reason))
}

func TestSpectatorSwitchingGamesUpdatesOldList(t *testing.T) {
	h, m := newTestHub(t, 0)
	first := m.CreateGame()
	second := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	require.NoError(t, h.Join(ctx, p0, first.ID))

	spec1 := testClient(h, "spec1")
	spec2 := testClient(h, "spec2")
	require.NoError(t, h.Join(ctx, spec1, first.ID))
	require.NoError(t, h.Join(ctx, spec2, first.ID))
	drainEvents(p0)

	// spec1 moves to another game; the first game's list must shrink
	require.NoError(t, h.Join(ctx, spec1, second.ID))

	var listEv *game.Event
	for _, ev := range drainEvents(p0) {
		if ev.Type == game.EventSpectatorList && ev.GameID == first.ID {
			e := ev
			listEv = &e
		}
	}
	require.NotNil(t, listEv, "old game never saw the updated spectator list")
	assert.Equal(t, []string{"spec2"}, listEv.Spectators)
}

func TestDisconnectedPlayerKeepsBindingThroughGrace(t *testing.T) {
	h, m := newTestHub(t, 50*time.Millisecond)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))

	h.Disconnect(p0)
	assert.True(t, h.hasGraceTimer(s.ID, p0.user.ID))

	// reconnect with a fresh connection under the same identity
	p0again := newClient(h, nil, p0.user)
	require.NoError(t, h.Join(ctx, p0again, s.ID))
	assert.False(t, h.hasGraceTimer(s.ID, p0again.user.ID))
	assert.Equal(t, game.RolePlayer0, p0again.role)

	ev := nextEvent(t, p0again)
	assert.Equal(t, game.EventStateSnapshot, ev.Type)
}

func TestGraceExpiryDropsTimer(t *testing.T) {
	h, m := newTestHub(t, 20*time.Millisecond)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))

	h.Disconnect(p0)
	require.Eventually(t, func() bool {
		return !h.hasGraceTimer(s.ID, p0.user.ID)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, game.StatusInProgress, s.Status(), "disconnect must not mutate the game")
}

func TestSpectatorDisconnectDropsBindingImmediately(t *testing.T) {
	h, m := newTestHub(t, time.Minute)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	spec := testClient(h, "carol")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))
	require.NoError(t, h.Join(ctx, spec, s.ID))
	drainEvents(p0)

	h.Disconnect(spec)

	var listEv *game.Event
	for _, ev := range drainEvents(p0) {
		if ev.Type == game.EventSpectatorList {
			e := ev
			listEv = &e
		}
	}
	require.NotNil(t, listEv)
	assert.Empty(t, listEv.Spectators)
}

func TestFullSendBufferClosesConnection(t *testing.T) {
	h, m := newTestHub(t, 0)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	slow := testClient(h, "carol")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))
	require.NoError(t, h.Join(ctx, slow, s.ID))

	for i := 0; i < sendBufferSize+4; i++ {
		slow.enqueue([]byte(`{}`))
	}
	select {
	case <-slow.closed:
	default:
		t.Fatal("overflowing connection was not closed")
	}

	// players still receive events
	drainEvents(p0)
	require.NoError(t, s.HandleConcede(p0.user.ID))
	evs := drainEvents(p0)
	assert.NotEmpty(t, evs)
}

func TestJoinRematchFollowsSuccessor(t *testing.T) {
	h, m := newTestHub(t, 0)
	s := m.CreateGame()
	ctx := context.Background()

	p0 := testClient(h, "alice")
	p1 := testClient(h, "bob")
	require.NoError(t, h.Join(ctx, p0, s.ID))
	require.NoError(t, h.Join(ctx, p1, s.ID))
	require.NoError(t, s.HandleConcede(p0.user.ID))
	require.NoError(t, s.HandleRematchVote(p0.user.ID, true))
	require.NoError(t, s.HandleRematchVote(p1.user.ID, true))
	next := s.SuccessorID()
	require.NotNil(t, next)

	require.NoError(t, h.JoinRematch(ctx, p0))
	assert.Equal(t, *next, p0.gameID)
	assert.Equal(t, game.RolePlayer0, p0.role)
}
