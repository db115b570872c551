package native

import "sync"

// FrameSlot is the triple-buffered, overwrite-on-produce mailbox backing
// LatestFrame in the Go-side backends.
//
// Three buffers rotate between three roles: one the producer is writing
// (scratch), one holding the newest complete frame (ready), and one the
// consumer is holding (held). Publish writes scratch and swaps it with
// ready; Latest swaps held with ready when a newer frame exists. The
// producer therefore never touches the buffer the consumer holds; the
// bytes returned by Latest stay intact until the consumer's own next
// Latest call trades them back in. That lock-plus-swap handshake is the
// synchronization the raw frame-pointer handoff otherwise leaves to call
// ordering.
//
// There is no queue: a ready frame the consumer never picked up is simply
// replaced, and the drop is counted. Latency beats completeness on a live
// render path. All three buffers are owned by the slot and reused; steady
// state allocates nothing.
//
// Single consumer only. Any number of sequential producers is fine (the
// decoder callback thread in practice).
type FrameSlot struct {
	mu   sync.Mutex
	bufs [3][]byte
	dims [3][2]int // width, height per buffer

	held, ready, scratch int // role → buffer index, always a permutation of {0,1,2}

	seq          uint64 // frames published
	readySeq     uint64 // seq of the frame currently in ready
	deliveredSeq uint64 // seq of the frame last returned by Latest
	drops        uint64
}

// NewFrameSlot returns an empty slot with the three buffer roles assigned.
func NewFrameSlot() *FrameSlot {
	return &FrameSlot{held: 0, ready: 1, scratch: 2}
}

// Publish copies data into the scratch buffer and promotes it to ready.
// data is BGRA, tightly packed, width*height*4 bytes; the slot does not
// retain a reference to it past the call.
func (s *FrameSlot) Publish(data []byte, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.bufs[s.scratch]
	if cap(buf) < len(data) {
		buf = make([]byte, len(data))
	}
	buf = buf[:len(data)]
	copy(buf, data)
	s.bufs[s.scratch] = buf
	s.dims[s.scratch] = [2]int{width, height}

	// The ready frame was never delivered: it is about to be replaced.
	if s.readySeq > s.deliveredSeq {
		s.drops++
	}

	s.ready, s.scratch = s.scratch, s.ready
	s.seq++
	s.readySeq = s.seq
}

// Latest returns the newest published frame and its dimensions, or false
// when nothing has been published yet. Calling it again before the next
// Publish redelivers the same frame. The returned slice stays valid until
// the consumer's next Latest call.
func (s *FrameSlot) Latest() (data []byte, width, height int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq == 0 {
		return nil, 0, 0, false
	}
	if s.readySeq > s.deliveredSeq {
		s.held, s.ready = s.ready, s.held
		s.deliveredSeq = s.readySeq
		// readySeq now describes the held buffer; the stale frame parked
		// in ready will be recycled as scratch on a later Publish.
	}
	d := s.dims[s.held]
	return s.bufs[s.held], d[0], d[1], true
}

// Dimensions returns the newest published width and height, 0,0 before
// the first frame.
func (s *FrameSlot) Dimensions() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == 0 {
		return 0, 0
	}
	idx := s.ready
	if s.readySeq <= s.deliveredSeq {
		idx = s.held
	}
	return s.dims[idx][0], s.dims[idx][1]
}

// Seq returns the number of frames published so far.
func (s *FrameSlot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Drops returns how many published frames were replaced before the
// consumer ever saw them.
func (s *FrameSlot) Drops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

// Reset clears the slot back to the no-frame state. Called by Open when
// a new source replaces the current one.
func (s *FrameSlot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
	s.readySeq = 0
	s.deliveredSeq = 0
	s.drops = 0
	for i := range s.dims {
		s.dims[i] = [2]int{}
	}
}
