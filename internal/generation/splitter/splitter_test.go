package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTurn = "Here's a bakery landing page with a warm palette.\n\n" +
	"```html\n<!DOCTYPE html>\n<html><body><h1>Crumb</h1></body></html>\n```\n\n" +
	"Let me know if you want a menu section."

func TestSplit_NoFence(t *testing.T) {
	testCases := []string{
		"",
		"Sure, let me build that.",
		"Trailing whitespace stays while streaming  \n",
		"A generic fence ```go\nfmt.Println()\n``` is not the artifact fence",
	}

	for _, buf := range testCases {
		c := Split(buf)
		assert.Equal(t, StateNone, c.State)
		assert.Equal(t, buf, c.Narration)
		assert.Zero(t, c.CodeBytes)
		assert.Empty(t, c.Code)
	}
}

func TestFinalize_TrimsTrailingWhitespace(t *testing.T) {
	c := Finalize("All done.  \n\n")
	assert.Equal(t, StateNone, c.State)
	assert.Equal(t, "All done.", c.Narration)
}

func TestSplit_Building(t *testing.T) {
	buf := "Building a portfolio.\n\n```html\n<!DOCTYPE html>\n<ht"

	c := Split(buf)
	assert.Equal(t, StateBuilding, c.State)
	assert.Equal(t, "Building a portfolio.", c.Narration)
	assert.Equal(t, len("\n<!DOCTYPE html>\n<ht"), c.CodeBytes)
	assert.NotContains(t, c.Narration, "```")
	assert.Empty(t, c.Code)
}

func TestSplit_BuildingCountsCharacters(t *testing.T) {
	c := Split("```html\nçé")
	assert.Equal(t, StateBuilding, c.State)
	assert.Equal(t, 3, c.CodeBytes)
}

func TestSplit_Ready(t *testing.T) {
	c := Split(sampleTurn)

	require.Equal(t, StateReady, c.State)
	assert.Equal(t, "<!DOCTYPE html>\n<html><body><h1>Crumb</h1></body></html>", c.Code)
	assert.Equal(t,
		"Here's a bakery landing page with a warm palette.\n\n\n\nLet me know if you want a menu section.",
		c.Narration)
	assert.True(t, strings.HasPrefix(c.Code, "<!DOCTYPE html>"))
}

func TestSplit_EmptyFencedBlock(t *testing.T) {
	c := Split("Nothing yet ```html```")
	assert.Equal(t, StateReady, c.State)
	assert.Equal(t, "", c.Code)
	assert.Equal(t, "Nothing yet", c.Narration)
}

func TestSplit_OnlyFirstOpeningFenceHonored(t *testing.T) {
	buf := "intro ```html\n<p>one</p>\n``` middle ```html\n<p>two</p>\n``` outro"

	c := Split(buf)
	assert.Equal(t, StateReady, c.State)
	assert.Equal(t, "<p>one</p>", c.Code)
	assert.Equal(t, "intro  middle ```html\n<p>two</p>\n``` outro", c.Narration)
}

func TestSplit_Idempotent(t *testing.T) {
	for _, buf := range []string{"", "hi", "a ```html\n<p", sampleTurn} {
		assert.Equal(t, Split(buf), Split(buf))
	}
}

func TestSplit_StateNeverRegresses(t *testing.T) {
	rank := map[State]int{StateNone: 0, StateBuilding: 1, StateReady: 2}

	prev := StateNone
	for i := 0; i <= len(sampleTurn); i++ {
		c := Split(sampleTurn[:i])
		require.GreaterOrEqual(t, rank[c.State], rank[prev], "prefix length %d", i)
		prev = c.State
	}
	assert.Equal(t, StateReady, prev)
}

func TestExtract(t *testing.T) {
	code, ok := Extract(sampleTurn)
	assert.True(t, ok)
	assert.True(t, strings.HasPrefix(code, "<!DOCTYPE html>"))

	_, ok = Extract("no artifact here")
	assert.False(t, ok)

	_, ok = Extract("```html\n<div>")
	assert.False(t, ok)
}

func TestReplay(t *testing.T) {
	chunks := []string{"Here you go.\n", "```ht", "ml\n<h1>", "Hi</h1>\n", "```", " Enjoy!"}

	c := Replay(chunks)
	assert.Equal(t, StateReady, c.State)
	assert.Equal(t, "<h1>Hi</h1>", c.Code)
	assert.Equal(t, "Here you go.\n Enjoy!", c.Narration)

	assert.Equal(t, StateBuilding, Replay(chunks[:3]).State)
	assert.Equal(t, StateNone, Replay(chunks[:2]).State)
}
