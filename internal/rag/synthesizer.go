package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/habitat-apps/docchat/internal/ai"
)

// ErrSynthesisFailed wraps any completion-capability failure during answer
// generation. Callers substitute a user-visible fallback; the core never
// retries.
var ErrSynthesisFailed = errors.New("answer synthesis failed")

// NoEvidenceResponse is the terminal, non-error reply when retrieval finds
// nothing to ground an answer on.
const NoEvidenceResponse = "I couldn't find relevant information in the document to answer your question. Please make sure you've uploaded a document and try rephrasing your question."

const systemPrompt = `You are a helpful assistant that answers questions about legal documents related to real estate and renting.

Use the provided document context to answer questions accurately. If the information isn't in the document, say so clearly.

Guidelines:
- Be precise and cite specific sections when possible
- Explain legal terms in simple language
- If something is unclear, suggest consulting a legal professional
- Focus on practical implications for renters/tenants
- Be helpful but not provide legal advice

Document Context:
%s
`

type SynthesizerConfig struct {
	MaxTokens    int
	Temperature  float32
	HistoryLimit int
	ExcerptLimit int
}

type Source struct {
	Excerpt    string  `json:"excerpt"`
	Similarity float32 `json:"similarity"`
}

type Answer struct {
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
}

// Synthesizer turns retrieved evidence plus trailing conversation history
// into a grounded answer with provenance excerpts.
type Synthesizer struct {
	chatter   ai.IChatter
	retriever *Retriever
	cfg       SynthesizerConfig
}

func NewSynthesizer(chatter ai.IChatter, retriever *Retriever, cfg SynthesizerConfig) *Synthesizer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 6
	}
	if cfg.ExcerptLimit <= 0 {
		cfg.ExcerptLimit = 200
	}
	return &Synthesizer{chatter: chatter, retriever: retriever, cfg: cfg}
}

func (s *Synthesizer) Answer(ctx context.Context, docID, query string, history []ai.Message) (*Answer, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))
	results, err := s.retriever.Retrieve(ctx, docID, query)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		logger.Info("no relevant chunks for query")
		return &Answer{Response: NoEvidenceResponse, Sources: []Source{}}, nil
	}

	evidence := make([]string, 0, len(results))
	for _, result := range results {
		evidence = append(evidence, result.Chunk)
	}
	system := fmt.Sprintf(systemPrompt, strings.Join(evidence, "\n\n"))
	if historyBlock := renderHistory(history, s.cfg.HistoryLimit); historyBlock != "" {
		system += "\nPrevious conversation:\n" + historyBlock + "\n"
	}

	msgs := []ai.Message{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: query},
	}
	resp, err := s.chatter.Chat(ctx, msgs, ai.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		logger.Error("completion failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	sources := make([]Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, Source{
			Excerpt:    truncate(result.Chunk, s.cfg.ExcerptLimit),
			Similarity: result.Score,
		})
	}
	logger.Debug("answer synthesized", zap.Int("sources", len(sources)))
	return &Answer{Response: resp, Sources: sources}, nil
}

// renderHistory keeps the trailing limit turns in chronological order,
// one "role: content" line per turn.
func renderHistory(history []ai.Message, limit int) string {
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, turn.Role+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
