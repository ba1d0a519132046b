package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/habitat-apps/docchat/internal/model"
)

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "short question kept as is",
			question: "What is the notice period?",
			want:     "What is the notice period?",
		},
		{
			name:     "exactly at limit kept as is",
			question: strings.Repeat("a", 50),
			want:     strings.Repeat("a", 50),
		},
		{
			name:     "long question truncated with ellipsis",
			question: strings.Repeat("a", 60),
			want:     strings.Repeat("a", 50) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, truncateTitle(tt.question))
		})
	}
}

func TestTruncateTitleMultibyte(t *testing.T) {
	question := strings.Repeat("ü", 60)
	got := truncateTitle(question)
	require.Equal(t, strings.Repeat("ü", 50)+"...", got)
}

func TestToHistory(t *testing.T) {
	msgs := []model.ChatMessage{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hi there"},
	}
	history := toHistory(msgs)
	require.Len(t, history, 2)
	require.Equal(t, model.RoleUser, history[0].Role)
	require.Equal(t, "hello", history[0].Content)
	require.Equal(t, model.RoleAssistant, history[1].Role)
	require.Equal(t, "hi there", history[1].Content)
}

func TestToHistoryEmpty(t *testing.T) {
	require.Empty(t, toHistory(nil))
}

func TestSessionLockReuse(t *testing.T) {
	s := NewChatService(nil, nil, nil, nil)
	require.Same(t, s.sessionLock("s1"), s.sessionLock("s1"))
	require.NotSame(t, s.sessionLock("s1"), s.sessionLock("s2"))
}
