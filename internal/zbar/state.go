package zbar

import "fmt"

// decodeState tracks one Scan call from buffer hand-off to buffer release.
type decodeState int

const (
	stateIdle decodeState = iota
	stateBufferAttached
	stateDecoded
	stateExtracted
	stateBufferReleased
)

func (s decodeState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateBufferAttached:
		return "buffer-attached"
	case stateDecoded:
		return "decoded"
	case stateExtracted:
		return "extracted"
	case stateBufferReleased:
		return "buffer-released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// decodeObserver, when set, sees every transition of every Scan call.
var decodeObserver func(from, to decodeState)

// BufferReleased is reachable from every state after attachment so that a
// failed decode still frees the pixels.
var decodeTransitions = map[decodeState][]decodeState{
	stateIdle:           {stateBufferAttached},
	stateBufferAttached: {stateDecoded, stateBufferReleased},
	stateDecoded:        {stateExtracted, stateBufferReleased},
	stateExtracted:      {stateBufferReleased},
}

type decodeRun struct {
	state   decodeState
	observe func(from, to decodeState)
}

// advance panics on an illegal transition; reaching one is a bug in this
// package, not a caller error.
func (r *decodeRun) advance(to decodeState) {
	for _, next := range decodeTransitions[r.state] {
		if next == to {
			from := r.state
			r.state = to
			if r.observe != nil {
				r.observe(from, to)
			}
			return
		}
	}
	panic(fmt.Sprintf("zbar: illegal decode transition %s -> %s", r.state, to))
}

func (r *decodeRun) released() bool { return r.state == stateBufferReleased }
