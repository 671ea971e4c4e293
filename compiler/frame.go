package compiler

// frame tracks the operand stack height of one function activation during
// code generation. Height is split into nested blocks so that leaving a
// block knows how many slots to pop.
type frame struct {
	size   int   // current height above the frame pointer
	blocks []int // per-block height contribution, innermost last
}

func newFrame() *frame {
	// The outermost entry holds formals and anything pushed outside a block.
	return &frame{blocks: []int{0}}
}

func (f *frame) openBlock() {
	f.blocks = append(f.blocks, 0)
}

// closeBlock removes the innermost block and returns its height.
func (f *frame) closeBlock() int {
	n := f.blocks[len(f.blocks)-1]
	f.blocks = f.blocks[:len(f.blocks)-1]
	f.size -= n
	return n
}

func (f *frame) change(n int) {
	f.size += n
	f.blocks[len(f.blocks)-1] += n
}

// frameStack is the generator's stack of function frames.
type frameStack struct {
	frames []*frame
}

func (s *frameStack) open()  { s.frames = append(s.frames, newFrame()) }
func (s *frameStack) close() { s.frames = s.frames[:len(s.frames)-1] }

func (s *frameStack) top() *frame { return s.frames[len(s.frames)-1] }

// size is the next free frame-relative offset.
func (s *frameStack) size() int { return s.top().size }
