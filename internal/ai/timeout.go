package ai

import (
	"context"
	"time"
)

// WrapTimeout bounds every upstream call with its own deadline. The parent
// context still wins if it is cancelled earlier.
func WrapTimeout(p IProvider, timeout time.Duration) IProvider {
	if p == nil || timeout <= 0 {
		return p
	}
	return &timeoutProvider{next: p, timeout: timeout}
}

type timeoutProvider struct {
	next    IProvider
	timeout time.Duration
}

func (p *timeoutProvider) Name() string {
	return p.next.Name()
}

func (p *timeoutProvider) Chat(ctx context.Context, model string, msgs []Message, opts ChatOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.Chat(ctx, model, msgs, opts)
}

func (p *timeoutProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.Embed(ctx, model, texts)
}
