package engine

// MoveKind enumerates the turn actions a player may take.
type MoveKind string

const (
	MoveDraw           MoveKind = "draw"
	MovePoints         MoveKind = "play-points"
	MoveScuttle        MoveKind = "scuttle"
	MoveFaceCard       MoveKind = "play-face-card"
	MoveJack           MoveKind = "play-jack"
	MoveOneOff         MoveKind = "play-one-off"
	MoveTargetedOneOff MoveKind = "play-targeted-one-off"
)

// Move is a proposed turn action. Card is the card being played (ignored for
// draws); Target names the card a scuttle, jack or targeted one-off points
// at. FromDeck marks the follow-up play of a resolved seven, whose source is
// the revealed deck top instead of the hand.
type Move struct {
	Kind       MoveKind   `json:"kind"`
	Card       Card       `json:"card"`
	Target     Card       `json:"target"`
	TargetKind TargetKind `json:"targetKind"`
	FromDeck   bool       `json:"fromDeck,omitempty"`
}

// MaxHandSize caps draws; drawing at the cap is illegal.
const MaxHandSize = 8

// StalematePasses is the number of consecutive empty-deck passes that end the
// game with no winner.
const StalematePasses = 3

// Apply validates and applies a move for the acting seat. On rejection the
// state is untouched; on success the state reflects the move and, for
// one-offs, an opened counter window.
//
// Preconditions are checked in order, first failure wins: game in progress,
// no open resolution (seven follow-ups excepted), valid seat, seat's turn,
// card present in its source, then move-specific legality.
func (g *GameState) Apply(actor uint8, mv Move) error {
	if actor >= NumPlayers {
		return reject(RejectNotInGame, "seat %d is not a player", actor)
	}
	if g.Finished {
		return reject(RejectIllegalMove, "game is finished")
	}
	if mv.FromDeck {
		return g.applySevenPlay(actor, mv)
	}
	if len(g.Stack) > 0 {
		return reject(RejectIllegalMove, "a resolution is in progress")
	}
	if actor != g.Turn {
		return reject(RejectOutOfTurn, "it is seat %d's turn", g.Turn)
	}
	if mv.Kind == MoveDraw {
		return g.applyDraw(actor)
	}
	if g.handIndex(actor, mv.Card) < 0 {
		return reject(RejectIllegalMove, "card %s is not in hand", mv.Card)
	}
	if err := g.validatePlay(actor, mv); err != nil {
		return err
	}
	g.removeFromHand(actor, mv.Card)
	g.commitPlay(actor, mv)
	return nil
}

// applyDraw draws the deck top, or passes when the deck is empty. Three
// consecutive passes end the game in a stalemate.
func (g *GameState) applyDraw(actor uint8) error {
	if len(g.Deck) == 0 {
		g.Passes++
		g.Last = LastMove{Kind: MoveDraw, Player: actor, Card: NoCard, Target: NoCard}
		if g.Passes >= StalematePasses {
			g.Finished = true
			g.Winner = -1
			return nil
		}
		g.Turn = 1 - actor
		return nil
	}
	if len(g.Hands[actor]) >= MaxHandSize {
		return reject(RejectIllegalMove, "hand is full")
	}
	c := g.drawCard()
	g.Hands[actor] = append(g.Hands[actor], c)
	g.Passes = 0
	g.Last = LastMove{Kind: MoveDraw, Player: actor, Card: NoCard, Target: NoCard}
	g.Turn = 1 - actor
	return nil
}

// validatePlay checks move-specific legality without mutating anything.
// The card is known to be in the actor's source already.
func (g *GameState) validatePlay(actor uint8, mv Move) error {
	opp := 1 - actor
	switch mv.Kind {
	case MovePoints:
		if !mv.Card.IsPointCard() {
			return reject(RejectIllegalMove, "%s cannot be played for points", mv.Card)
		}

	case MoveScuttle:
		if !mv.Card.IsPointCard() {
			return reject(RejectIllegalMove, "%s cannot scuttle", mv.Card)
		}
		if g.pointIndex(opp, mv.Target) < 0 {
			return reject(RejectIllegalTarget, "%s is not an opponent point card", mv.Target)
		}
		if !mv.Target.OutscuttledBy(mv.Card) {
			return reject(RejectIllegalMove, "%s does not beat %s", mv.Card, mv.Target)
		}

	case MoveFaceCard:
		if !mv.Card.IsFaceCardPlayable() {
			return reject(RejectIllegalMove, "%s is not a face card", mv.Card)
		}

	case MoveJack:
		if mv.Card.Rank() != RankJack {
			return reject(RejectIllegalMove, "%s is not a jack", mv.Card)
		}
		if g.pointIndex(opp, mv.Target) < 0 {
			return reject(RejectIllegalTarget, "%s is not an opponent point card", mv.Target)
		}
		if g.kingCount(opp) > 0 {
			return reject(RejectIllegalTarget, "a king protects %s", mv.Target)
		}

	case MoveOneOff:
		if !mv.Card.HasOneOff() {
			return reject(RejectIllegalMove, "%s has no one-off effect", mv.Card)
		}
		if mv.Card.IsTargetedOneOff() {
			return reject(RejectIllegalMove, "%s requires a target", mv.Card)
		}
		if mv.Card.Rank() == RankFour && len(g.Hands[opp]) == 0 {
			return reject(RejectIllegalMove, "opponent has no cards to discard")
		}

	case MoveTargetedOneOff:
		if !mv.Card.IsTargetedOneOff() {
			return reject(RejectIllegalMove, "%s is not a targeted one-off", mv.Card)
		}
		return g.validateOneOffTarget(actor, mv)

	default:
		return reject(RejectIllegalMove, "unknown move kind %q", mv.Kind)
	}
	return nil
}

// validateOneOffTarget checks the target of a two, three or nine.
func (g *GameState) validateOneOffTarget(actor uint8, mv Move) error {
	opp := 1 - actor
	switch mv.Card.Rank() {
	case RankTwo:
		if mv.TargetKind != TargetFace || g.faceIndex(opp, mv.Target) < 0 {
			return reject(RejectIllegalTarget, "%s is not an opponent face card", mv.Target)
		}
		if g.QueenProtects(opp, mv.Target) {
			return reject(RejectIllegalTarget, "a queen protects %s", mv.Target)
		}

	case RankThree:
		if mv.TargetKind != TargetScrap || g.scrapIndex(mv.Target) < 0 {
			return reject(RejectIllegalTarget, "%s is not in the scrap pile", mv.Target)
		}

	case RankNine:
		switch mv.TargetKind {
		case TargetPoint:
			if g.pointIndex(opp, mv.Target) < 0 {
				return reject(RejectIllegalTarget, "%s is not an opponent point card", mv.Target)
			}
		case TargetFace:
			if g.faceIndex(opp, mv.Target) < 0 {
				return reject(RejectIllegalTarget, "%s is not an opponent face card", mv.Target)
			}
		default:
			return reject(RejectIllegalTarget, "a nine targets a point or face card")
		}
		if g.QueenProtects(opp, mv.Target) {
			return reject(RejectIllegalTarget, "a queen protects %s", mv.Target)
		}
	}
	return nil
}

// QueenProtects reports whether a standing queen of the defender covers the
// target. A queen protects every card of its owner except herself, so a
// second queen covers the first.
func (g *GameState) QueenProtects(defender uint8, target Card) bool {
	for _, c := range g.Faces[defender] {
		if c.Rank() == RankQueen && c != target {
			return true
		}
	}
	return false
}

// commitPlay applies an already-validated play whose card has been removed
// from its source.
func (g *GameState) commitPlay(actor uint8, mv Move) {
	opp := 1 - actor
	g.Last = LastMove{Kind: mv.Kind, Player: actor, Card: mv.Card, Target: mv.Target}

	switch mv.Kind {
	case MovePoints:
		g.Points[actor] = append(g.Points[actor], PointCard{Card: mv.Card})
		g.Passes = 0
		g.Turn = opp
		g.checkWin(actor)

	case MoveScuttle:
		idx := g.pointIndex(opp, mv.Target)
		g.scrapPointCard(opp, idx)
		g.Scrap = append(g.Scrap, mv.Card)
		g.Passes = 0
		g.Turn = opp

	case MoveFaceCard:
		g.Faces[actor] = append(g.Faces[actor], mv.Card)
		g.Passes = 0
		g.Turn = opp
		g.checkWin(actor) // kings lower the threshold

	case MoveJack:
		idx := g.pointIndex(opp, mv.Target)
		pc := g.Points[opp][idx]
		pc.Jacks = append(pc.Jacks, mv.Card)
		g.Points[opp] = append(g.Points[opp][:idx], g.Points[opp][idx+1:]...)
		g.Points[actor] = append(g.Points[actor], pc)
		g.Passes = 0
		g.Turn = opp
		g.checkWin(actor)

	case MoveOneOff, MoveTargetedOneOff:
		// The card leaves the hand now; it reaches the scrap when the stack
		// drains. The turn does not pass until resolution completes.
		entry := PendingEntry{
			Kind:       PendingOneOff,
			Player:     actor,
			Card:       mv.Card,
			Target:     NoCard,
			TargetKind: TargetNone,
		}
		if mv.Kind == MoveTargetedOneOff {
			entry.Target = mv.Target
			entry.TargetKind = mv.TargetKind
		}
		g.Stack = append(g.Stack, entry)
		g.Passes = 0
	}
}

// applySevenPlay handles the follow-up move of a resolved seven: the acting
// player plays the revealed deck top as a normal move.
func (g *GameState) applySevenPlay(actor uint8, mv Move) error {
	if len(g.Stack) == 0 || g.Stack[len(g.Stack)-1].Kind != PendingSevenPlay {
		return reject(RejectIllegalMove, "no seven is resolving")
	}
	entry := g.Stack[len(g.Stack)-1]
	if entry.Player != actor {
		return reject(RejectOutOfTurn, "seat %d must play the revealed card", entry.Player)
	}
	revealed := g.RevealedCard()
	if revealed == NoCard || mv.Card != revealed {
		return reject(RejectIllegalMove, "%s is not the revealed card", mv.Card)
	}
	if mv.Kind == MoveDraw {
		return reject(RejectIllegalMove, "the revealed card must be played")
	}
	// Validate against a stack with the seven entry popped so a one-off
	// played from the deck sees an empty stack.
	g.Stack = g.Stack[:len(g.Stack)-1]
	if err := g.validatePlay(actor, mv); err != nil {
		g.Stack = append(g.Stack, entry)
		return err
	}
	g.drawCard() // the validated revealed card
	g.commitPlay(actor, mv)
	return nil
}
