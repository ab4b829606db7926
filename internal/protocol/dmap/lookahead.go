package dmap

import (
	"github.com/danmuck/dmapctl/internal/protocol/codes"
	"github.com/danmuck/dmapctl/internal/protocol/tlv"
)

// entry is a record resolved against the dictionary.
type entry struct {
	rec   tlv.Record
	code  codes.ContentCode
	known bool
	off   int // absolute offset of the record header
}

type aheadState uint8

const (
	aheadEmpty aheadState = iota
	aheadPending
)

// lookahead holds at most one record read past the end of a run.
type lookahead struct {
	state aheadState
	held  entry
}

// push stores e; it reports false when a record is already pending.
func (l *lookahead) push(e entry) bool {
	if l.state == aheadPending {
		return false
	}
	l.held = e
	l.state = aheadPending
	return true
}

func (l *lookahead) take() (entry, bool) {
	if l.state == aheadEmpty {
		return entry{}, false
	}
	e := l.held
	l.held = entry{}
	l.state = aheadEmpty
	return e, true
}

func (l *lookahead) pending() bool {
	return l.state == aheadPending
}
