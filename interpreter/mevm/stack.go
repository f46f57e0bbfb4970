package mevm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/holiman/uint256"
)

// maxStackSize is the maximum number of elements the machine stack may hold.
const maxStackSize = 1024

// stack is the 1024-element 256-bit word-wide stack of the machine. It is a
// fixed-size stack to prevent memory reallocation during execution. Bounds
// are not checked by the accessors; the dispatch loop verifies stack limits
// before every instruction.
//
// Each stack consumes 1024 * 32 bytes = 32KB of memory. To avoid the
// allocation overhead of creating and destroying stacks for every frame, a
// reuse pool is provided. Obtain an empty stack with newStack() and return
// it with returnStack(s).
//
// The stack itself is not thread-safe; newStack() and returnStack() are.
type stack struct {
	data         [maxStackSize]uint256.Int
	stackPointer int
}

// push adds a copy of the given value to the top of the stack.
func (s *stack) push(d *uint256.Int) {
	s.data[s.stackPointer] = *d
	s.stackPointer++
}

// pushUndefined adds an element with an undefined value to the top of the
// stack and returns a pointer to it, to be initialized by the caller.
func (s *stack) pushUndefined() *uint256.Int {
	s.stackPointer++
	return &s.data[s.stackPointer-1]
}

// pop removes the top element from the stack and returns a pointer to it.
// The pointer is only valid until the next push operation.
func (s *stack) pop() *uint256.Int {
	s.stackPointer--
	return &s.data[s.stackPointer]
}

// peek returns a pointer to the top element of the stack without removing
// it. The pointer is only valid until the next operation on the stack.
func (s *stack) peek() *uint256.Int {
	return &s.data[s.len()-1]
}

// peekN returns a pointer to the n-th element from the top of the stack
// without removing it. The top element is at index 0, so peekN(0) is
// equivalent to peek().
func (s *stack) peekN(n int) *uint256.Int {
	return &s.data[s.len()-n-1]
}

// len returns the number of elements on the stack.
func (s *stack) len() int {
	return s.stackPointer
}

// swap exchanges the top element with the n-th element below it.
func (s *stack) swap(n int) {
	s.data[s.len()-n-1], s.data[s.len()-1] = s.data[s.len()-1], s.data[s.len()-n-1]
}

// dup duplicates the n-th element from the top and pushes the copy to the
// top of the stack. dup(0) duplicates the top element.
func (s *stack) dup(n int) {
	s.data[s.stackPointer] = s.data[s.stackPointer-n-1]
	s.stackPointer++
}

func (s *stack) String() string {
	b := strings.Builder{}
	for i := 0; i < s.len(); i++ {
		b.WriteString(fmt.Sprintf("    [%4d] %v\n", s.len()-i-1, s.peekN(i).Hex()))
	}
	return b.String()
}

var stackPool = sync.Pool{
	New: func() any {
		return &stack{}
	},
}

// newStack returns an empty stack instance from the reuse pool.
func newStack() *stack {
	return stackPool.Get().(*stack)
}

// returnStack returns the stack to the reuse pool. Any stack may only be
// returned once; this is not checked internally.
func returnStack(s *stack) {
	s.stackPointer = 0
	stackPool.Put(s)
}
