package quizgen

import (
	"context"
	"sync"

	"wiki-quiz/internal/domain"
)

// MemoryModelPreference keeps the last working model for this process only.
type MemoryModelPreference struct {
	mu    sync.RWMutex
	model string
}

func NewMemoryModelPreference() *MemoryModelPreference {
	return &MemoryModelPreference{}
}

func (p *MemoryModelPreference) Preferred(_ context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model, nil
}

func (p *MemoryModelPreference) Remember(_ context.Context, model string) error {
	p.mu.Lock()
	p.model = model
	p.mu.Unlock()
	return nil
}

var _ domain.ModelPreference = (*MemoryModelPreference)(nil)
