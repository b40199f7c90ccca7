// Package splitter classifies a model response buffer into chat narration and
// the fenced HTML artifact embedded in it.
//
// Split is a pure function of the buffer: callers re-run it on the whole
// accumulated text after every chunk instead of patching state incrementally.
package splitter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	OpenFence  = "```html"
	CloseFence = "```"
)

// State is the progress of the code artifact within a turn.
type State string

const (
	StateNone     State = "none"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

// Classification is the view a client should render for a buffer.
type Classification struct {
	Narration string `json:"narration"`
	State     State  `json:"codeState"`
	// CodeBytes counts characters received after the opening fence. Progress
	// signal only, set while building.
	CodeBytes int `json:"codeBytes"`
	// Code is the trimmed artifact, set only when State is ready.
	Code string `json:"code,omitempty"`
}

// Split classifies buffer. Only the first opening fence is honored: the
// artifact ends at the first closing fence after it, and any later fenced
// block stays in the narration.
func Split(buffer string) Classification {
	open := strings.Index(buffer, OpenFence)
	if open == -1 {
		return Classification{Narration: buffer, State: StateNone}
	}

	before := buffer[:open]
	rest := buffer[open+len(OpenFence):]

	closeIdx := strings.Index(rest, CloseFence)
	if closeIdx == -1 {
		return Classification{
			Narration: strings.TrimRightFunc(before, unicode.IsSpace),
			State:     StateBuilding,
			CodeBytes: utf8.RuneCountInString(rest),
		}
	}

	after := rest[closeIdx+len(CloseFence):]
	return Classification{
		Narration: strings.TrimSpace(before + after),
		State:     StateReady,
		Code:      strings.TrimSpace(rest[:closeIdx]),
	}
}

// Finalize is Split plus the end-of-turn trailing trim that is skipped while
// streaming to avoid visual jitter.
func Finalize(buffer string) Classification {
	c := Split(buffer)
	if c.State == StateNone {
		c.Narration = strings.TrimRightFunc(c.Narration, unicode.IsSpace)
	}
	return c
}

// Extract returns the finished artifact of buffer, if any.
func Extract(buffer string) (string, bool) {
	c := Split(buffer)
	if c.State != StateReady {
		return "", false
	}
	return c.Code, true
}

// Replay derives the classification from an ordered log of text chunks, the
// way a stream consumer does after each received event.
func Replay(chunks []string) Classification {
	var b strings.Builder
	for _, ch := range chunks {
		b.WriteString(ch)
	}
	return Split(b.String())
}
