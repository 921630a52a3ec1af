// Package pin mints the six-digit codes players enter to join a session.
// A PIN is unique among non-completed sessions and may be reused after the
// session it identified completes.
package pin

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"globalquiz-service/internal/domain"
)

// Index reserves PINs while their session is live. Reserve reports false
// when the PIN is already held by another session.
type Index interface {
	Reserve(ctx context.Context, pin, sessionID string) (bool, error)
	Release(ctx context.Context, pin string) error
}

const defaultAttempts = 25

// Generator draws random PINs and reserves them against the index.
type Generator struct {
	index    Index
	attempts int

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(index Index) *Generator {
	return &Generator{
		index:    index,
		attempts: defaultAttempts,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Mint reserves a fresh PIN for the session, retrying on collisions up to
// the attempt ceiling.
func (g *Generator) Mint(ctx context.Context, sessionID string) (string, error) {
	for i := 0; i < g.attempts; i++ {
		code := g.draw()
		ok, err := g.index.Reserve(ctx, code, sessionID)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", domain.ErrPINExhausted
}

// Release frees the PIN for reuse once its session completed.
func (g *Generator) Release(ctx context.Context, pin string) error {
	return g.index.Release(ctx, pin)
}

func (g *Generator) draw() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%06d", 100000+g.rnd.Intn(900000))
}
