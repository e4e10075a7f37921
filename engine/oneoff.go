package engine

// Counter plays a two from the responder's hand against the pending one-off
// (or against a previous counter), reopening the window for the other side.
func (g *GameState) Counter(actor uint8, card Card) error {
	if actor >= NumPlayers {
		return reject(RejectNotInGame, "seat %d is not a player", actor)
	}
	if g.Finished {
		return reject(RejectIllegalMove, "game is finished")
	}
	responder, ok := g.Responder()
	if !ok {
		return reject(RejectIllegalMove, "nothing to counter")
	}
	top := g.Stack[len(g.Stack)-1]
	if top.Kind != PendingOneOff && top.Kind != PendingCounter {
		return reject(RejectCannotCounter, "%s cannot be countered", top.Kind)
	}
	if actor != responder {
		return reject(RejectOutOfTurn, "seat %d holds the counter window", responder)
	}
	if card.Rank() != RankTwo {
		return reject(RejectIllegalMove, "only a two can counter")
	}
	if g.handIndex(actor, card) < 0 {
		return reject(RejectIllegalMove, "card %s is not in hand", card)
	}
	g.removeFromHand(actor, card)
	g.Stack = append(g.Stack, PendingEntry{
		Kind:   PendingCounter,
		Player: actor,
		Card:   card,
		Target: NoCard,
	})
	return nil
}

// Resolve is the responder's explicit pass. For a counter window it drains
// the stack: an odd number of counters negates the base one-off, every
// stacked card goes to the scrap, and the turn passes to the one-off
// player's opponent (unless the effect leaves a follow-up obligation). For a
// pending seven it scraps the revealed card instead of playing it.
func (g *GameState) Resolve(actor uint8) error {
	if actor >= NumPlayers {
		return reject(RejectNotInGame, "seat %d is not a player", actor)
	}
	if g.Finished {
		return reject(RejectIllegalMove, "game is finished")
	}
	responder, ok := g.Responder()
	if !ok {
		return reject(RejectIllegalMove, "nothing to resolve")
	}
	if actor != responder {
		return reject(RejectOutOfTurn, "seat %d must respond", responder)
	}
	top := g.Stack[len(g.Stack)-1]
	switch top.Kind {
	case PendingFourDiscard:
		return reject(RejectIllegalMove, "two cards must be discarded")
	case PendingSevenPlay:
		g.Stack = g.Stack[:len(g.Stack)-1]
		if len(g.Deck) > 0 {
			g.Scrap = append(g.Scrap, g.drawCard())
		}
		g.Turn = 1 - actor
		return nil
	}
	g.drain()
	return nil
}

// drain empties the counter stack, scraps every stacked card, applies the
// base one-off unless negated, and hands the turn to the one-off player's
// opponent when no obligation remains.
func (g *GameState) drain() {
	base := g.Stack[0]
	counters := len(g.Stack) - 1
	for _, e := range g.Stack {
		g.Scrap = append(g.Scrap, e.Card)
	}
	g.Stack = g.Stack[:0]

	if counters%2 == 0 {
		g.applyOneOff(base)
	}
	if len(g.Stack) == 0 {
		g.Turn = 1 - base.Player
	}
}

// applyOneOff performs the effect of a resolved one-off. Follow-up
// obligations (four, seven) are pushed onto the now-empty stack.
func (g *GameState) applyOneOff(e PendingEntry) {
	opp := 1 - e.Player
	switch e.Card.Rank() {
	case RankAce:
		// Scrap every point card in play, jack chains included.
		for seat := uint8(0); seat < NumPlayers; seat++ {
			for len(g.Points[seat]) > 0 {
				g.scrapPointCard(seat, 0)
			}
		}

	case RankTwo:
		if idx := g.faceIndex(opp, e.Target); idx >= 0 {
			g.Scrap = append(g.Scrap, e.Target)
			g.Faces[opp] = append(g.Faces[opp][:idx], g.Faces[opp][idx+1:]...)
		}

	case RankThree:
		if idx := g.scrapIndex(e.Target); idx >= 0 {
			g.Hands[e.Player] = append(g.Hands[e.Player], e.Target)
			g.Scrap = append(g.Scrap[:idx], g.Scrap[idx+1:]...)
		}

	case RankFour:
		if len(g.Hands[opp]) > 0 {
			g.Stack = append(g.Stack, PendingEntry{
				Kind:   PendingFourDiscard,
				Player: opp,
				Card:   NoCard,
				Target: NoCard,
			})
		}

	case RankFive:
		for i := 0; i < 2 && len(g.Deck) > 0 && len(g.Hands[e.Player]) < MaxHandSize; i++ {
			g.Hands[e.Player] = append(g.Hands[e.Player], g.drawCard())
		}

	case RankSix:
		for seat := uint8(0); seat < NumPlayers; seat++ {
			g.Scrap = append(g.Scrap, g.Faces[seat]...)
			g.Faces[seat] = nil
		}

	case RankSeven:
		if len(g.Deck) > 0 {
			g.Stack = append(g.Stack, PendingEntry{
				Kind:   PendingSevenPlay,
				Player: e.Player,
				Card:   NoCard,
				Target: NoCard,
			})
		}

	case RankNine:
		switch e.TargetKind {
		case TargetPoint:
			if idx := g.pointIndex(opp, e.Target); idx >= 0 {
				pc := g.Points[opp][idx]
				g.Points[opp] = append(g.Points[opp][:idx], g.Points[opp][idx+1:]...)
				g.Hands[opp] = append(g.Hands[opp], pc.Card)
				g.Scrap = append(g.Scrap, pc.Jacks...)
			}
		case TargetFace:
			if idx := g.faceIndex(opp, e.Target); idx >= 0 {
				g.Faces[opp] = append(g.Faces[opp][:idx], g.Faces[opp][idx+1:]...)
				g.Hands[opp] = append(g.Hands[opp], e.Target)
			}
		}
	}
}

// ResolveFourDiscard satisfies the discard obligation left by a resolved
// four. The obligated player names two cards from their hand (or their whole
// hand when fewer remain).
func (g *GameState) ResolveFourDiscard(actor uint8, discards []Card) error {
	if actor >= NumPlayers {
		return reject(RejectNotInGame, "seat %d is not a player", actor)
	}
	if g.Finished {
		return reject(RejectIllegalMove, "game is finished")
	}
	if len(g.Stack) == 0 || g.Stack[len(g.Stack)-1].Kind != PendingFourDiscard {
		return reject(RejectIllegalMove, "no discard is owed")
	}
	top := g.Stack[len(g.Stack)-1]
	if actor != top.Player {
		return reject(RejectOutOfTurn, "seat %d owes the discard", top.Player)
	}
	need := 2
	if len(g.Hands[actor]) < need {
		need = len(g.Hands[actor])
	}
	if len(discards) != need {
		return reject(RejectIllegalMove, "exactly %d cards must be discarded", need)
	}
	if need == 2 && discards[0] == discards[1] {
		return reject(RejectIllegalMove, "discards must be distinct")
	}
	for _, c := range discards {
		if g.handIndex(actor, c) < 0 {
			return reject(RejectIllegalMove, "card %s is not in hand", c)
		}
	}
	for _, c := range discards {
		g.removeFromHand(actor, c)
		g.Scrap = append(g.Scrap, c)
	}
	g.Stack = g.Stack[:len(g.Stack)-1]
	g.Turn = actor
	return nil
}
