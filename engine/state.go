package engine

// NumPlayers is fixed: Cuttle is a two-player game.
const NumPlayers = 2

// DeckSize is the standard 52-card deck; Cuttle plays without jokers.
const DeckSize = 52

// PointCard is a card in a point pile together with the jacks attached to it.
// Jacks are ordered oldest first; ownership of the point card follows the
// pile it sits in, not the jack chain.
type PointCard struct {
	Card  Card   `json:"card"`
	Jacks []Card `json:"jacks,omitempty"`
}

// PendingKind tags an entry on the resolution stack.
type PendingKind uint8

const (
	PendingOneOff      PendingKind = iota // a one-off awaiting its counter window
	PendingCounter                        // a two countering the entry below
	PendingFourDiscard                    // opponent must discard after a resolved four
	PendingSevenPlay                      // player must play the revealed deck top after a resolved seven
)

var pendingKindNames = [...]string{"one-off", "counter", "four-discard", "seven-play"}

func (k PendingKind) String() string {
	if int(k) < len(pendingKindNames) {
		return pendingKindNames[k]
	}
	return "unknown"
}

// TargetKind says which zone a targeted one-off points at.
type TargetKind uint8

const (
	TargetNone  TargetKind = iota
	TargetPoint            // an opponent point card
	TargetFace             // an opponent face card
	TargetScrap            // any card in the scrap pile (threes)
)

// PendingEntry is one open interaction on the resolution stack. The stack is
// plain data so it serializes into reconnect snapshots as-is.
type PendingEntry struct {
	Kind       PendingKind `json:"kind"`
	Player     uint8       `json:"player"` // who played it, or who must act for obligations
	Card       Card        `json:"card"`   // NoCard for obligations
	Target     Card        `json:"target"` // NoCard when untargeted
	TargetKind TargetKind  `json:"targetKind"`
}

// LastMove summarizes the most recent accepted mutation, for display and for
// last-played bookkeeping.
type LastMove struct {
	Kind   MoveKind `json:"kind"`
	Player uint8    `json:"player"`
	Card   Card     `json:"card"`
	Target Card     `json:"target"`
}

// GameState is the authoritative table state of one Cuttle game. All fields
// are plain data: the whole struct round-trips through JSON for persistence
// and snapshot broadcast.
type GameState struct {
	Hands  [NumPlayers][]Card      `json:"hands"`
	Points [NumPlayers][]PointCard `json:"points"`
	Faces  [NumPlayers][]Card      `json:"faces"`

	// Deck is ordered; the draw end is the back of the slice.
	Deck  []Card `json:"deck"`
	Scrap []Card `json:"scrap"`

	Turn   uint8 `json:"turn"`
	Passes uint8 `json:"passes"` // consecutive empty-deck passes; 3 ends in stalemate

	Stack []PendingEntry `json:"stack,omitempty"`

	Finished bool `json:"finished"`
	// Winner is the seat of the winning player, or -1 (no winner / stalemate).
	Winner int8 `json:"winner"`

	Last LastMove `json:"last"`

	RNG uint64 `json:"rng"`
}

// xorshift64 RNG, seeded once at NewGame.
func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// NewGame initializes a GameState with a full ordered deck. The deck is not
// yet shuffled or dealt.
func NewGame(seed uint64) GameState {
	g := GameState{Winner: -1, RNG: seed}
	if g.RNG == 0 {
		g.RNG = 1 // xorshift can't start at 0
	}
	g.Deck = make([]Card, 0, DeckSize)
	for suit := SuitClubs; suit <= SuitSpades; suit++ {
		for rank := RankAce; rank <= RankKing; rank++ {
			g.Deck = append(g.Deck, NewCard(suit, rank))
		}
	}
	return g
}

// Deal shuffles the deck and deals the opening hands: five cards to the
// player going first, six to the dealer.
func (g *GameState) Deal(first uint8) {
	// Fisher-Yates shuffle.
	for i := len(g.Deck) - 1; i > 0; i-- {
		j := int(g.nextRand() % uint64(i+1))
		g.Deck[i], g.Deck[j] = g.Deck[j], g.Deck[i]
	}

	dealer := 1 - first
	for i := 0; i < 5; i++ {
		g.Hands[first] = append(g.Hands[first], g.drawCard())
	}
	for i := 0; i < 6; i++ {
		g.Hands[dealer] = append(g.Hands[dealer], g.drawCard())
	}
	g.Turn = first
}

// drawCard pops the draw end of the deck. Callers must check emptiness.
func (g *GameState) drawCard() Card {
	c := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	return c
}

// PointTotal returns the current point score of a seat.
func (g *GameState) PointTotal(seat uint8) int {
	total := 0
	for _, pc := range g.Points[seat] {
		total += pc.Card.Points()
	}
	return total
}

// kingCount returns the number of kings in a seat's face-card pile.
func (g *GameState) kingCount(seat uint8) int {
	n := 0
	for _, c := range g.Faces[seat] {
		if c.Rank() == RankKing {
			n++
		}
	}
	return n
}

// winThresholds maps king count to the points needed to win.
var winThresholds = [...]int{21, 14, 10, 5, 0}

// PointsToWin returns the score a seat needs to win, given its kings.
func (g *GameState) PointsToWin(seat uint8) int {
	kings := g.kingCount(seat)
	if kings > 4 {
		kings = 4
	}
	return winThresholds[kings]
}

// checkWin marks the game finished if either seat has reached its threshold.
// The seat that just acted is checked first so simultaneous thresholds favor
// the actor.
func (g *GameState) checkWin(actor uint8) {
	if g.Finished {
		return
	}
	for _, seat := range [2]uint8{actor, 1 - actor} {
		if g.PointTotal(seat) >= g.PointsToWin(seat) {
			g.Finished = true
			g.Winner = int8(seat)
			return
		}
	}
}

// Responder returns the seat that must act on the top of the resolution
// stack, and false when the stack is empty.
func (g *GameState) Responder() (uint8, bool) {
	if len(g.Stack) == 0 {
		return 0, false
	}
	top := g.Stack[len(g.Stack)-1]
	switch top.Kind {
	case PendingOneOff, PendingCounter:
		return 1 - top.Player, true
	default: // obligations are acted on by their own player
		return top.Player, true
	}
}

// CannotCounter reports whether the current counter window cannot legally be
// answered: the responder holds no two. Obligations never open a counter
// window.
func (g *GameState) CannotCounter() bool {
	responder, ok := g.Responder()
	if !ok {
		return false
	}
	top := g.Stack[len(g.Stack)-1]
	if top.Kind != PendingOneOff && top.Kind != PendingCounter {
		return false
	}
	for _, c := range g.Hands[responder] {
		if c.Rank() == RankTwo {
			return false
		}
	}
	return true
}

// RevealedCard returns the deck-top card revealed by a pending seven, or
// NoCard when no seven is resolving.
func (g *GameState) RevealedCard() Card {
	if len(g.Stack) == 0 {
		return NoCard
	}
	if g.Stack[len(g.Stack)-1].Kind != PendingSevenPlay {
		return NoCard
	}
	if len(g.Deck) == 0 {
		return NoCard
	}
	return g.Deck[len(g.Deck)-1]
}

// handIndex returns the index of card in seat's hand, or -1.
func (g *GameState) handIndex(seat uint8, card Card) int {
	for i, c := range g.Hands[seat] {
		if c == card {
			return i
		}
	}
	return -1
}

// removeFromHand removes card from seat's hand. Callers must have validated
// presence first.
func (g *GameState) removeFromHand(seat uint8, card Card) {
	i := g.handIndex(seat, card)
	g.Hands[seat] = append(g.Hands[seat][:i], g.Hands[seat][i+1:]...)
}

// pointIndex returns the index of card in seat's point pile, or -1.
func (g *GameState) pointIndex(seat uint8, card Card) int {
	for i, pc := range g.Points[seat] {
		if pc.Card == card {
			return i
		}
	}
	return -1
}

// faceIndex returns the index of card in seat's face pile, or -1.
func (g *GameState) faceIndex(seat uint8, card Card) int {
	for i, c := range g.Faces[seat] {
		if c == card {
			return i
		}
	}
	return -1
}

// scrapIndex returns the index of card in the scrap pile, or -1.
func (g *GameState) scrapIndex(card Card) int {
	for i, c := range g.Scrap {
		if c == card {
			return i
		}
	}
	return -1
}

// scrapPointCard moves a point pile entry and its jack chain to the scrap.
func (g *GameState) scrapPointCard(seat uint8, idx int) {
	pc := g.Points[seat][idx]
	g.Scrap = append(g.Scrap, pc.Card)
	g.Scrap = append(g.Scrap, pc.Jacks...)
	g.Points[seat] = append(g.Points[seat][:idx], g.Points[seat][idx+1:]...)
}

// Clone returns a deep copy of the state. Snapshot construction works on
// clones so broadcast encoding never races a later mutation.
func (g *GameState) Clone() GameState {
	out := *g
	for seat := 0; seat < NumPlayers; seat++ {
		out.Hands[seat] = append([]Card(nil), g.Hands[seat]...)
		out.Faces[seat] = append([]Card(nil), g.Faces[seat]...)
		out.Points[seat] = make([]PointCard, len(g.Points[seat]))
		for i, pc := range g.Points[seat] {
			out.Points[seat][i] = PointCard{Card: pc.Card, Jacks: append([]Card(nil), pc.Jacks...)}
		}
	}
	out.Deck = append([]Card(nil), g.Deck...)
	out.Scrap = append([]Card(nil), g.Scrap...)
	out.Stack = append([]PendingEntry(nil), g.Stack...)
	return out
}
