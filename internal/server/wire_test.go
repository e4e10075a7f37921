package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfcuttle/cuttle/engine"
)

func TestDecodeMove(t *testing.T) {
	mv, err := decodeMove(&Intent{Type: IntentMove, Kind: "play-points", Card: "7H"})
	require.NoError(t, err)
	assert.Equal(t, engine.MovePoints, mv.Kind)
	assert.Equal(t, engine.MustCard("7H"), mv.Card)
	assert.Equal(t, engine.NoCard, mv.Target)

	mv, err = decodeMove(&Intent{
		Type: IntentMove, Kind: "play-targeted-one-off",
		Card: "9C", Target: "KD", TargetZone: "face",
	})
	require.NoError(t, err)
	assert.Equal(t, engine.TargetFace, mv.TargetKind)
	assert.Equal(t, engine.MustCard("KD"), mv.Target)
}

func TestDecodeMoveDrawNeedsNoCard(t *testing.T) {
	mv, err := decodeMove(&Intent{Type: IntentMove, Kind: "draw"})
	require.NoError(t, err)
	assert.Equal(t, engine.MoveDraw, mv.Kind)
}

func TestDecodeMoveRejectsGarbage(t *testing.T) {
	_, err := decodeMove(&Intent{Type: IntentMove, Kind: "steal-the-deck"})
	assert.Error(t, err)

	_, err = decodeMove(&Intent{Type: IntentMove, Kind: "play-points", Card: "XX"})
	assert.Error(t, err)

	_, err = decodeMove(&Intent{
		Type: IntentMove, Kind: "play-targeted-one-off",
		Card: "2C", Target: "KD", TargetZone: "moon",
	})
	assert.Error(t, err)
}

func TestParseIntent(t *testing.T) {
	in, err := parseIntent([]byte(`{"type":"counter","card":"2S"}`))
	require.NoError(t, err)
	assert.Equal(t, IntentCounter, in.Type)
	assert.Equal(t, "2S", in.Card)

	_, err = parseIntent([]byte(`{"card":"2S"}`))
	assert.Error(t, err)

	_, err = parseIntent([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeDiscards(t *testing.T) {
	cards, err := decodeDiscards([]string{"4C", "9D"})
	require.NoError(t, err)
	assert.Equal(t, []engine.Card{engine.MustCard("4C"), engine.MustCard("9D")}, cards)

	_, err = decodeDiscards([]string{"4C", "zz"})
	assert.Error(t, err)
}
