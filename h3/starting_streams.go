package h3

import (
	"fmt"
	"sync"

	"github.com/OkutaniDaichi0106/goh3/quic"
)

// startingStreams is the set of streams awaiting start on one connection.
// Every operation is atomic on its own; tryRemove's result decides which
// caller owns a stream's terminal transition.
type startingStreams struct {
	mu      sync.Mutex
	streams map[quic.StreamID]*startingStream
	closed  bool
}

func newStartingStreams() *startingStreams {
	return &startingStreams{
		streams: make(map[quic.StreamID]*startingStream),
	}
}

// insert adds s and reports whether it was added.
// It returns false once the set is closed. A duplicate stream ID means the
// transport handed out the same stream twice and panics.
func (ss *startingStreams) insert(s *startingStream) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.closed {
		return false
	}

	if _, ok := ss.streams[s.id]; ok {
		panic(fmt.Sprintf("h3: duplicate starting stream %d", s.id))
	}

	ss.streams[s.id] = s
	return true
}

// tryRemove removes the stream with the given ID if present.
// Exactly one caller observes true for a given stream.
func (ss *startingStreams) tryRemove(id quic.StreamID) (*startingStream, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.streams[id]
	if !ok {
		return nil, false
	}
	delete(ss.streams, id)
	return s, true
}

// snapshot returns the current members. The slice is not affected by later
// inserts or removals.
func (ss *startingStreams) snapshot() []*startingStream {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	streams := make([]*startingStream, 0, len(ss.streams))
	for _, s := range ss.streams {
		streams = append(streams, s)
	}
	return streams
}

// close rejects all further inserts.
func (ss *startingStreams) close() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.closed = true
}

func (ss *startingStreams) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	return len(ss.streams)
}
