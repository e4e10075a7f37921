// Package engine implements the Cuttle card game rules.
//
// The package is pure: it holds no locks, performs no I/O, and logs nothing.
// A GameState is mutated only through validated operations (Apply, Counter,
// Resolve and the follow-up resolvers), each of which either rejects the
// request and leaves the state untouched or applies it atomically.
package engine

import "fmt"

// Suit constants, packed into the upper 4 bits of Card.
// The ordering matters: it is the scuttle tie-break order, lowest first.
const (
	SuitClubs    uint8 = 0
	SuitDiamonds uint8 = 1
	SuitHearts   uint8 = 2
	SuitSpades   uint8 = 3
)

// Rank constants, packed into the lower 4 bits of Card.
const (
	RankAce   uint8 = 1
	RankTwo   uint8 = 2
	RankThree uint8 = 3
	RankFour  uint8 = 4
	RankFive  uint8 = 5
	RankSix   uint8 = 6
	RankSeven uint8 = 7
	RankEight uint8 = 8
	RankNine  uint8 = 9
	RankTen   uint8 = 10
	RankJack  uint8 = 11
	RankQueen uint8 = 12
	RankKing  uint8 = 13
)

// Card is a packed uint8: upper 4 bits = suit, lower 4 bits = rank.
type Card uint8

// NoCard represents the absence of a card.
const NoCard Card = 0xFF

// NewCard constructs a Card from suit and rank.
func NewCard(suit, rank uint8) Card {
	return Card((suit << 4) | (rank & 0x0F))
}

// Suit returns the suit bits (upper 4).
func (c Card) Suit() uint8 { return uint8(c) >> 4 }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() uint8 { return uint8(c) & 0x0F }

// Points returns the point value when played as a point card:
// Ace through Ten score their rank; royals score nothing.
func (c Card) Points() int {
	r := c.Rank()
	if r >= RankAce && r <= RankTen {
		return int(r)
	}
	return 0
}

// IsPointCard reports whether the card may be played for points (Ace–Ten).
func (c Card) IsPointCard() bool {
	r := c.Rank()
	return r >= RankAce && r <= RankTen
}

// IsRoyal reports whether the card is a Jack, Queen or King.
func (c Card) IsRoyal() bool {
	return c.Rank() >= RankJack
}

// IsFaceCardPlayable reports whether the card may sit in a face-card pile:
// Kings and Queens for their standing effects, Eights as glasses.
func (c Card) IsFaceCardPlayable() bool {
	r := c.Rank()
	return r == RankKing || r == RankQueen || r == RankEight
}

// oneOffRanks marks the ranks playable as one-off effects.
var oneOffRanks = map[uint8]bool{
	RankAce:   true,
	RankTwo:   true,
	RankThree: true,
	RankFour:  true,
	RankFive:  true,
	RankSix:   true,
	RankSeven: true,
	RankNine:  true,
}

// HasOneOff reports whether the card has a one-off effect when played to the scrap.
func (c Card) HasOneOff() bool { return oneOffRanks[c.Rank()] }

// IsTargetedOneOff reports whether the card's one-off requires a target.
func (c Card) IsTargetedOneOff() bool {
	r := c.Rank()
	return r == RankTwo || r == RankThree || r == RankNine
}

// OutscuttledBy reports whether attacker beats c in a scuttle:
// strictly higher rank, or equal rank with the higher suit.
func (c Card) OutscuttledBy(attacker Card) bool {
	if attacker.Rank() != c.Rank() {
		return attacker.Rank() > c.Rank()
	}
	return attacker.Suit() > c.Suit()
}

var rankLetters = [...]byte{0: '?', RankAce: 'A', RankTwo: '2', RankThree: '3', RankFour: '4',
	RankFive: '5', RankSix: '6', RankSeven: '7', RankEight: '8', RankNine: '9',
	RankTen: 'T', RankJack: 'J', RankQueen: 'Q', RankKing: 'K'}

var suitLetters = [...]byte{SuitClubs: 'C', SuitDiamonds: 'D', SuitHearts: 'H', SuitSpades: 'S'}

// String renders the card as a two-letter code, e.g. "AS" for the Ace of
// Spades or "TC" for the Ten of Clubs. NoCard renders as "--".
func (c Card) String() string {
	if c == NoCard {
		return "--"
	}
	r, s := c.Rank(), c.Suit()
	if r < RankAce || r > RankKing || s > SuitSpades {
		return "??"
	}
	return string([]byte{rankLetters[r], suitLetters[s]})
}

// ParseCard parses a two-letter card code produced by Card.String.
func ParseCard(code string) (Card, error) {
	if len(code) != 2 {
		return NoCard, fmt.Errorf("bad card code %q", code)
	}
	var rank, suit uint8
	found := false
	for r := RankAce; r <= RankKing; r++ {
		if rankLetters[r] == code[0] {
			rank = r
			found = true
			break
		}
	}
	if !found {
		return NoCard, fmt.Errorf("bad rank in card code %q", code)
	}
	found = false
	for s := SuitClubs; s <= SuitSpades; s++ {
		if suitLetters[s] == code[1] {
			suit = s
			found = true
			break
		}
	}
	if !found {
		return NoCard, fmt.Errorf("bad suit in card code %q", code)
	}
	return NewCard(suit, rank), nil
}

// MustCard is ParseCard for code known to be valid; it panics otherwise.
// Intended for tests and fixtures.
func MustCard(code string) Card {
	c, err := ParseCard(code)
	if err != nil {
		panic(err)
	}
	return c
}
