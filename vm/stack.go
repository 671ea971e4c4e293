package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/tinyvm/pkg/bytecode"
)

// RuntimeStack is the operand stack plus the stack of frame pointers that
// partition it. The bottom frame starts at 0 and is never popped.
type RuntimeStack struct {
	values []bytecode.Value
	frames []int
}

// NewRuntimeStack returns an empty stack with room for capacity values.
func NewRuntimeStack(capacity int) *RuntimeStack {
	if capacity < 0 {
		capacity = 0
	}
	return &RuntimeStack{
		values: make([]bytecode.Value, 0, capacity),
		frames: []int{0},
	}
}

// Len is the number of values on the stack.
func (s *RuntimeStack) Len() int { return len(s.values) }

// FramePointer is the base of the current frame.
func (s *RuntimeStack) FramePointer() int { return s.frames[len(s.frames)-1] }

// Depth is the number of frames, including the bottom one.
func (s *RuntimeStack) Depth() int { return len(s.frames) }

// Push adds v to the top of the stack.
func (s *RuntimeStack) Push(v bytecode.Value) { s.values = append(s.values, v) }

// Pop removes the top value. It will not pop below the current frame.
func (s *RuntimeStack) Pop() (bytecode.Value, error) {
	if len(s.values) <= s.FramePointer() {
		return bytecode.Value{}, ErrStackUnderflow
	}
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v, nil
}

// Peek returns the top value without removing it.
func (s *RuntimeStack) Peek() (bytecode.Value, error) {
	if len(s.values) == 0 {
		return bytecode.Value{}, ErrStackUnderflow
	}
	return s.values[len(s.values)-1], nil
}

// PopN discards n values from the current frame.
func (s *RuntimeStack) PopN(n int) error {
	if n < 0 || n > len(s.values)-s.FramePointer() {
		return fmt.Errorf("pop %d with %d in frame: %w", n, len(s.values)-s.FramePointer(), ErrStackUnderflow)
	}
	s.values = s.values[:len(s.values)-n]
	return nil
}

func (s *RuntimeStack) slot(offset int) (int, error) {
	i := s.FramePointer() + offset
	if offset < 0 || i >= len(s.values) {
		return 0, fmt.Errorf("slot %d outside frame of %d: %w", offset, len(s.values)-s.FramePointer(), ErrStackUnderflow)
	}
	return i, nil
}

// Load returns the value at offset from the frame pointer.
func (s *RuntimeStack) Load(offset int) (bytecode.Value, error) {
	i, err := s.slot(offset)
	if err != nil {
		return bytecode.Value{}, err
	}
	return s.values[i], nil
}

// Store overwrites the value at offset from the frame pointer.
func (s *RuntimeStack) Store(offset int, v bytecode.Value) error {
	i, err := s.slot(offset)
	if err != nil {
		return err
	}
	s.values[i] = v
	return nil
}

// NewFrame starts a frame that takes the top n values as its first slots.
func (s *RuntimeStack) NewFrame(n int) error {
	base := len(s.values) - n
	if n < 0 || base < s.FramePointer() {
		return fmt.Errorf("frame of %d arguments: %w", n, ErrStackUnderflow)
	}
	s.frames = append(s.frames, base)
	return nil
}

// PopFrame discards the current frame and its values.
func (s *RuntimeStack) PopFrame() error {
	if len(s.frames) == 1 {
		return fmt.Errorf("pop of bottom frame: %w", ErrStackUnderflow)
	}
	s.values = s.values[:s.FramePointer()]
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Values returns a copy of the stack, bottom first.
func (s *RuntimeStack) Values() []bytecode.Value {
	out := make([]bytecode.Value, len(s.values))
	copy(out, s.values)
	return out
}

// Frames returns a copy of the frame pointers, outermost first.
func (s *RuntimeStack) Frames() []int {
	out := make([]int, len(s.frames))
	copy(out, s.frames)
	return out
}

// Frame returns the values of the current frame.
func (s *RuntimeStack) Frame() []bytecode.Value {
	out := make([]bytecode.Value, len(s.values)-s.FramePointer())
	copy(out, s.values[s.FramePointer():])
	return out
}

func (s *RuntimeStack) reset() {
	s.values = s.values[:0]
	s.frames = s.frames[:1]
}

// String renders the stack grouped by frame: [1,2] [3].
func (s *RuntimeStack) String() string {
	var sb strings.Builder
	for f, base := range s.frames {
		end := len(s.values)
		if f+1 < len(s.frames) {
			end = s.frames[f+1]
		}
		if f > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('[')
		for i := base; i < end; i++ {
			if i > base {
				sb.WriteByte(',')
			}
			sb.WriteString(s.values[i].Literal())
		}
		sb.WriteByte(']')
	}
	return sb.String()
}
