package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// ModelProvider enables runtime hot-swap of the language model. It holds a
// mutex-protected reference to the current driven.LanguageModel and itself
// satisfies the port, so services keep a single reference while the backing
// model is replaced.
type ModelProvider struct {
	mu    sync.RWMutex
	model driven.LanguageModel
}

var _ driven.LanguageModel = (*ModelProvider)(nil)

// NewModelProvider creates a provider with the given initial model. model
// may be nil when no provider key is configured.
func NewModelProvider(model driven.LanguageModel) *ModelProvider {
	return &ModelProvider{model: model}
}

// Get returns the current model, or nil.
func (p *ModelProvider) Get() driven.LanguageModel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// Replace swaps the current model. The next Complete call uses the new one.
func (p *ModelProvider) Replace(model driven.LanguageModel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

// HasModel returns true if a non-nil model is currently held.
func (p *ModelProvider) HasModel() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model != nil
}

// Complete delegates to the current model. Without one it fails with
// model.ErrConfigurationMissing.
func (p *ModelProvider) Complete(ctx context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	m := p.Get()
	if m == nil {
		return driven.Completion{}, fmt.Errorf("language model not configured: %w", model.ErrConfigurationMissing)
	}
	return m.Complete(ctx, req)
}

// ReloadOn rebuilds the model with load every time trigger fires, until ctx
// is done or trigger is closed. A failed load keeps the current model.
func (p *ModelProvider) ReloadOn(ctx context.Context, trigger <-chan os.Signal, load func() (driven.LanguageModel, error), logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-trigger:
			if !ok {
				return
			}
			m, err := load()
			if err != nil {
				logger.Error("language model reload failed, keeping current model", "error", err)
				continue
			}
			p.Replace(m)
			logger.Info("language model reloaded", "configured", p.HasModel())
		}
	}
}
