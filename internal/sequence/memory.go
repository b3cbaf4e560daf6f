package sequence

import (
	"context"
	"sync"
)

// Memory is a process-local Sequencer for tests.
type Memory struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemory constructs an empty Memory sequencer.
func NewMemory() *Memory {
	return &Memory{values: map[string]int64{}}
}

func (m *Memory) Next(_ context.Context, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name]++
	return m.values[name], nil
}
