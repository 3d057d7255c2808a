package zbar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeRunTransitions(t *testing.T) {
	var seen []string
	run := &decodeRun{observe: func(from, to decodeState) { seen = append(seen, from.String()+">"+to.String()) }}

	run.advance(stateBufferAttached)
	run.advance(stateDecoded)
	run.advance(stateBufferReleased)

	assert.True(t, run.released())
	assert.Equal(t, []string{
		"idle>buffer-attached",
		"buffer-attached>decoded",
		"decoded>buffer-released",
	}, seen)
}

func TestDecodeRunRejectsIllegalTransitions(t *testing.T) {
	illegal := []struct {
		from, to decodeState
	}{
		{stateIdle, stateDecoded},
		{stateIdle, stateBufferReleased},
		{stateBufferAttached, stateExtracted},
		{stateExtracted, stateDecoded},
		{stateBufferReleased, stateBufferReleased},
		{stateBufferReleased, stateBufferAttached},
	}
	for _, tt := range illegal {
		run := &decodeRun{state: tt.from}
		assert.Panics(t, func() { run.advance(tt.to) }, "%s -> %s", tt.from, tt.to)
	}
}
