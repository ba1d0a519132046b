package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable means the upstream AI capability cannot be used at all:
// missing credential, unknown provider, unreachable endpoint. The core never
// retries it; retry policy belongs to the caller.
var ErrUnavailable = errors.New("ai service unavailable")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type ChatOptions struct {
	MaxTokens   int
	Temperature float32
}

type IProvider interface {
	Name() string
	Chat(ctx context.Context, model string, msgs []Message, opts ChatOptions) (string, error)
	// Embed maps a batch of texts to vectors in a single upstream call.
	// The result is parallel to the input: one vector per text, all of the
	// same dimension.
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

type IChatter interface {
	Chat(ctx context.Context, msgs []Message, opts ChatOptions) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

type chatter struct {
	provider IProvider
	model    string
}

func NewChatter(p IProvider, model string) IChatter {
	return &chatter{provider: p, model: model}
}

func (c *chatter) Chat(ctx context.Context, msgs []Message, opts ChatOptions) (string, error) {
	return c.provider.Chat(ctx, c.model, msgs, opts)
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.provider.Embed(ctx, e.model, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
