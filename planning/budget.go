package planning

import (
	"fmt"
	"sync"
)

// StepBudget caps the number of plan steps a single Execute call may run.
type StepBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewStepBudget creates a budget of max steps. If max <= 0, steps are
// unlimited.
func NewStepBudget(max int) *StepBudget {
	return &StepBudget{max: max}
}

// Take consumes one step and fails once the budget is exceeded.
func (b *StepBudget) Take() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	if b.max > 0 && b.count > b.max {
		return newError(KindExecutePlanError, fmt.Sprintf("exceeded max plan steps: %d", b.max), nil)
	}

	return nil
}

// Used returns the number of steps taken so far.
func (b *StepBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}

// Remaining returns how many steps are left, or -1 when unlimited.
func (b *StepBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max <= 0 {
		return -1
	}

	if b.count >= b.max {
		return 0
	}
	return b.max - b.count
}
