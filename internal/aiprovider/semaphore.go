package aiprovider

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Semaphores is a process-wide registry of named weighted semaphores, one
// per provider. A semaphore's capacity is the weight passed on its first
// Acquire; the concrete providers pass fixed capacities (anthropic 4,
// openai 8, ollama 1), so a Policy's MaxConcurrentRequests does not change
// them.
type Semaphores struct {
	mu    sync.Mutex
	byName map[string]*semaphore.Weighted
}

func NewSemaphores() *Semaphores {
	return &Semaphores{byName: make(map[string]*semaphore.Weighted)}
}

// Acquire blocks until a slot for name is available, creating the
// semaphore on first use with the given weight.
func (s *Semaphores) Acquire(ctx context.Context, name string, weight int) error {
	return s.forName(name, weight).Acquire(ctx, 1)
}

func (s *Semaphores) Release(name string, weight int) {
	s.forName(name, weight).Release(1)
}

func (s *Semaphores) forName(name string, weight int) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.byName[name]
	if !ok {
		sem = semaphore.NewWeighted(int64(weight))
		s.byName[name] = sem
	}
	return sem
}
