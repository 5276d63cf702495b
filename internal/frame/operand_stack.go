package frame

import (
	"fmt"

	"github.com/embervm/embervm/internal/runtime"
)

// OperandStack is a Java frame's operand stack, bounded by max_stack.
// Semantic depth counts wide values (long/double) as 2, matching the
// bytecode verifier's accounting, even though the backing slice only ever
// holds one runtime.Value per pushed operand.
type OperandStack struct {
	maxStack int
	depth    int // semantic depth (wide values count 2)
	values   []runtime.Value
}

func NewOperandStack(maxStack int) *OperandStack {
	return &OperandStack{maxStack: maxStack, values: make([]runtime.Value, 0, maxStack)}
}

func (s *OperandStack) Depth() int { return s.depth }

func (s *OperandStack) Push(v runtime.Value) error {
	if s.depth+v.Type.Category() > s.maxStack {
		return fmt.Errorf("frame: operand stack overflow (max_stack=%d)", s.maxStack)
	}
	s.values = append(s.values, v)
	s.depth += v.Type.Category()
	return nil
}

func (s *OperandStack) Pop() (runtime.Value, error) {
	if len(s.values) == 0 {
		return runtime.Value{}, fmt.Errorf("frame: operand stack underflow")
	}
	n := len(s.values) - 1
	v := s.values[n]
	s.values = s.values[:n]
	s.depth -= v.Type.Category()
	return v, nil
}

// PopN pops n values off the stack and returns a function that yields
// them one at a time in pop order — i.e. the first call returns the value
// that was on top of the stack, so a caller that pushed arguments in
// method-declaration order receives them in reverse declaration order
// and must reverse them itself to recover declaration order.
func (s *OperandStack) PopN(n int) (func() (runtime.Value, bool), error) {
	popped := make([]runtime.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := s.Pop()
		if err != nil {
			return nil, err
		}
		popped[i] = v
	}
	i := 0
	return func() (runtime.Value, bool) {
		if i >= len(popped) {
			return runtime.Value{}, false
		}
		v := popped[len(popped)-1-i]
		i++
		return v, true
	}, nil
}

// Peek returns the top value without removing it.
func (s *OperandStack) Peek() (runtime.Value, error) {
	if len(s.values) == 0 {
		return runtime.Value{}, fmt.Errorf("frame: operand stack empty")
	}
	return s.values[len(s.values)-1], nil
}

// PeekAt returns the value n positions below the top (0 == top).
func (s *OperandStack) PeekAt(n int) (runtime.Value, error) {
	idx := len(s.values) - 1 - n
	if idx < 0 || idx >= len(s.values) {
		return runtime.Value{}, fmt.Errorf("frame: peek-at %d out of range", n)
	}
	return s.values[idx], nil
}

// InsertAt inserts v at position n from the top (0 == push on top),
// shifting existing entries down, used by dup_x1/dup_x2-style opcodes.
func (s *OperandStack) InsertAt(n int, v runtime.Value) error {
	idx := len(s.values) - n
	if idx < 0 || idx > len(s.values) {
		return fmt.Errorf("frame: insert-at %d out of range", n)
	}
	if s.depth+v.Type.Category() > s.maxStack {
		return fmt.Errorf("frame: operand stack overflow (max_stack=%d)", s.maxStack)
	}
	s.values = append(s.values, runtime.Value{})
	copy(s.values[idx+1:], s.values[idx:len(s.values)-1])
	s.values[idx] = v
	s.depth += v.Type.Category()
	return nil
}
