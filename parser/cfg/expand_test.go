package cfg

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustExpand(t *testing.T, grammar string) (MusicString, error) {
	t.Helper()
	g, err := ParseGrammar(grammar)
	require.NoError(t, err)
	return g.Expand()
}

func TestExpandFlat(t *testing.T) {
	got, err := mustExpand(t, "start S\nS = :4c<1> B\nB = :4d<1>")
	require.NoError(t, err)

	want, err := ParseMusicString(":4c<1> :4d<1>")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExpandInsideBrackets(t *testing.T) {
	got, err := mustExpand(t, "start S\nS = [x2][A] {A | B}\nA = :4c<1>\nB = :4e<1>")
	require.NoError(t, err)
	assert.Equal(t, "[x2][:4c<1>] {:4c<1> | :4e<1>}", got.String())
}

func TestExpandLastProductionWins(t *testing.T) {
	got, err := mustExpand(t, "start S\nS = :4c<1>\nS = :4g<1>")
	require.NoError(t, err)
	assert.Equal(t, ":4g<1>", got.String())
}

func TestExpandUndefined(t *testing.T) {
	_, err := mustExpand(t, "start S\nS = :4c<1> Missing")
	var undefined *UndefinedNonTerminalError
	require.ErrorAs(t, err, &undefined)
	assert.Equal(t, NonTerminal("Missing"), undefined.Name)
}

func TestExpandRecursionLimit(t *testing.T) {
	tests := []string{
		"start S\nS = S :4c",
		"start S\nS = :4c T\nT = :4d S",
		"start S\nS = [x2][S]",
	}
	for _, grammar := range tests {
		_, err := mustExpand(t, grammar)
		assert.ErrorIs(t, err, ErrExpansionDepthExceeded, grammar)
	}
}

func TestExpandDeepButFinite(t *testing.T) {
	// A chain of 100 productions is well inside the limit.
	grammar := "start N0\n"
	for i := 0; i < 100; i++ {
		grammar += "N" + strconv.Itoa(i) + " = :4c<1> N" + strconv.Itoa(i+1) + "\n"
	}
	grammar += "N100 = :4d<1>\n"

	got, err := mustExpand(t, grammar)
	require.NoError(t, err)
	assert.Len(t, got, 101)
}
