package parser

// stackBlockSize is the number of frames allocated per stack block.
const stackBlockSize = 100

// frameStack is a block-allocated stack of parse frames. Blocks are linked
// both ways and retained after pops, so a session that shrinks and regrows
// reuses its blocks instead of reallocating them.
type frameStack struct {
	head  *frameBlock
	cur   *frameBlock
	used  int // frames occupied in cur
	depth int
}

type frameBlock struct {
	prev, next *frameBlock
	frames     [stackBlockSize]frame
}

// push appends a zeroed frame and returns it.
func (s *frameStack) push() *frame {
	if s.cur == nil {
		if s.head == nil {
			s.head = &frameBlock{}
		}
		s.cur = s.head
		s.used = 0
	} else if s.used == stackBlockSize {
		if s.cur.next == nil {
			s.cur.next = &frameBlock{prev: s.cur}
		}
		s.cur = s.cur.next
		s.used = 0
	}
	f := &s.cur.frames[s.used]
	*f = frame{}
	s.used++
	s.depth++
	return f
}

// top returns the open frame, or nil when the stack is empty.
func (s *frameStack) top() *frame {
	if s.depth == 0 {
		return nil
	}
	return &s.cur.frames[s.used-1]
}

// pop discards the open frame. The frame's contents are cleared so the
// finished subtree is not pinned by the retained block.
func (s *frameStack) pop() {
	s.cur.frames[s.used-1] = frame{}
	s.used--
	s.depth--
	if s.used == 0 {
		s.cur = s.cur.prev
		s.used = stackBlockSize
		if s.cur == nil {
			s.used = 0
		}
	}
}

// reset empties the stack while keeping allocated blocks for reuse.
func (s *frameStack) reset() {
	for s.depth > 0 {
		s.pop()
	}
}
