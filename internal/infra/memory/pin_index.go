package memory

import (
	"context"
	"sync"
)

// PINIndex reserves live PINs in memory with set-if-absent semantics.
type PINIndex struct {
	mu   sync.Mutex
	pins map[string]string
}

func NewPINIndex() *PINIndex {
	return &PINIndex{pins: make(map[string]string)}
}

func (i *PINIndex) Reserve(_ context.Context, pin, sessionID string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, taken := i.pins[pin]; taken {
		return false, nil
	}
	i.pins[pin] = sessionID
	return true, nil
}

func (i *PINIndex) Release(_ context.Context, pin string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.pins, pin)
	return nil
}
