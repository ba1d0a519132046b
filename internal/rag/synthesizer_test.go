package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitat-apps/docchat/internal/ai"
	"github.com/habitat-apps/docchat/internal/rag"
)

type fakeChatter struct {
	reply string
	err   error
	msgs  []ai.Message
	opts  ai.ChatOptions
}

func (f *fakeChatter) Chat(_ context.Context, msgs []ai.Message, opts ai.ChatOptions) (string, error) {
	f.msgs = msgs
	f.opts = opts
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestSynthesizer(t *testing.T, chatter ai.IChatter, chunks []string, vectors [][]float32) *rag.Synthesizer {
	t.Helper()
	index := rag.NewVectorIndex()
	if len(chunks) > 0 {
		require.NoError(t, index.Put("doc", chunks, vectors))
	}
	embedder := &fakeEmbedder{fallback: []float32{1, 0}}
	retriever := rag.NewRetriever(embedder, index, 3)
	return rag.NewSynthesizer(chatter, retriever, rag.SynthesizerConfig{
		MaxTokens:   321,
		Temperature: 0.25,
	})
}

func TestAnswerNoEvidence(t *testing.T) {
	chatter := &fakeChatter{reply: "should never be called"}
	synth := newTestSynthesizer(t, chatter, nil, nil)

	answer, err := synth.Answer(context.Background(), "doc", "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, rag.NoEvidenceResponse, answer.Response)
	assert.Empty(t, answer.Sources)
	assert.Nil(t, chatter.msgs)
}

func TestAnswerBuildsPromptAndSources(t *testing.T) {
	chatter := &fakeChatter{reply: "the tenant pays rent monthly"}
	long := strings.Repeat("clause ", 50) // > 200 chars
	synth := newTestSynthesizer(t, chatter,
		[]string{long, "short clause"},
		[][]float32{{1, 0}, {0.5, 0.5}},
	)
	history := []ai.Message{
		{Role: ai.RoleUser, Content: "hi"},
		{Role: ai.RoleAssistant, Content: "hello"},
	}

	answer, err := synth.Answer(context.Background(), "doc", "who pays rent?", history)
	require.NoError(t, err)
	assert.Equal(t, "the tenant pays rent monthly", answer.Response)

	require.Len(t, chatter.msgs, 2)
	assert.Equal(t, ai.RoleSystem, chatter.msgs[0].Role)
	assert.Contains(t, chatter.msgs[0].Content, "short clause")
	assert.Contains(t, chatter.msgs[0].Content, "user: hi")
	assert.Contains(t, chatter.msgs[0].Content, "assistant: hello")
	assert.Equal(t, ai.RoleUser, chatter.msgs[1].Role)
	assert.Equal(t, "who pays rent?", chatter.msgs[1].Content)
	assert.Equal(t, 321, chatter.opts.MaxTokens)
	assert.InDelta(t, 0.25, chatter.opts.Temperature, 1e-6)

	// sources follow retrieval rank order and are excerpt-bounded
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, 203, len(answer.Sources[0].Excerpt)) // 200 chars + "..."
	assert.True(t, strings.HasSuffix(answer.Sources[0].Excerpt, "..."))
	assert.Equal(t, "short clause", answer.Sources[1].Excerpt)
	assert.GreaterOrEqual(t, answer.Sources[0].Similarity, answer.Sources[1].Similarity)
}

func TestAnswerHistoryWindow(t *testing.T) {
	chatter := &fakeChatter{reply: "ok"}
	synth := newTestSynthesizer(t, chatter, []string{"clause"}, [][]float32{{1, 0}})

	var history []ai.Message
	for i := 0; i < 10; i++ {
		role := ai.RoleUser
		if i%2 == 1 {
			role = ai.RoleAssistant
		}
		history = append(history, ai.Message{Role: role, Content: "m" + string(rune('0'+i))})
	}

	_, err := synth.Answer(context.Background(), "doc", "q", history)
	require.NoError(t, err)
	system := chatter.msgs[0].Content
	// only the trailing 6 turns make it into the prompt, oldest first
	assert.NotContains(t, system, "m3")
	assert.Contains(t, system, "user: m4")
	assert.Contains(t, system, "assistant: m9")
	assert.Less(t, strings.Index(system, "user: m4"), strings.Index(system, "assistant: m9"))
}

func TestAnswerCompletionFailure(t *testing.T) {
	chatter := &fakeChatter{err: errors.New("boom")}
	synth := newTestSynthesizer(t, chatter, []string{"clause"}, [][]float32{{1, 0}})

	_, err := synth.Answer(context.Background(), "doc", "q", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrSynthesisFailed)
}

func TestAnswerEmbeddingFailurePassesThrough(t *testing.T) {
	index := rag.NewVectorIndex()
	require.NoError(t, index.Put("doc", []string{"clause"}, [][]float32{{1, 0}}))
	retriever := rag.NewRetriever(&fakeEmbedder{err: ai.ErrUnavailable}, index, 3)
	synth := rag.NewSynthesizer(&fakeChatter{}, retriever, rag.SynthesizerConfig{})

	_, err := synth.Answer(context.Background(), "doc", "q", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrUnavailable)
	assert.NotErrorIs(t, err, rag.ErrSynthesisFailed)
}
