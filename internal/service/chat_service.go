package service

import (
	"context"
	"strings"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/habitat-apps/docchat/internal/ai"
	"github.com/habitat-apps/docchat/internal/model"
	appErr "github.com/habitat-apps/docchat/internal/pkg/errors"
	"github.com/habitat-apps/docchat/internal/rag"
	"github.com/habitat-apps/docchat/internal/repo"
)

// NoDocumentResponse is returned when a session has no document attached.
const NoDocumentResponse = "I'm sorry, but I need a document to be uploaded to answer your questions. Please upload a legal document first."

// ProcessingErrorResponse is stored as the assistant turn when answer
// synthesis fails; the user's question is kept either way.
const ProcessingErrorResponse = "I encountered an error while processing your question. Please try again."

const defaultSessionTitle = "New Chat"

const titleLimit = 50

type AskResult struct {
	UserMessage      *model.ChatMessage `json:"user_message"`
	AssistantMessage *model.ChatMessage `json:"assistant_message"`
	Sources          []rag.Source       `json:"sources"`
}

type ChatService struct {
	sessions    *repo.SessionRepo
	messages    *repo.MessageRepo
	docs        *repo.DocumentRepo
	synthesizer *rag.Synthesizer

	lockMu       sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

func NewChatService(sessions *repo.SessionRepo, messages *repo.MessageRepo, docs *repo.DocumentRepo, synthesizer *rag.Synthesizer) *ChatService {
	return &ChatService{
		sessions:     sessions,
		messages:     messages,
		docs:         docs,
		synthesizer:  synthesizer,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

func (s *ChatService) CreateSession(ctx context.Context, userID, docID, title string) (*model.ChatSession, error) {
	if docID != "" {
		if _, err := s.docs.GetByID(ctx, userID, docID); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(title) == "" {
		title = defaultSessionTitle
	}
	now := nowUnix()
	session := &model.ChatSession{
		ID:         newID(),
		UserID:     userID,
		DocumentID: docID,
		Title:      title,
		Ctime:      now,
		Mtime:      now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]model.ChatSession, error) {
	return s.sessions.List(ctx, userID)
}

func (s *ChatService) GetSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	return s.sessions.GetByID(ctx, userID, sessionID)
}

func (s *ChatService) ListMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if _, err := s.sessions.GetByID(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.messages.ListBySession(ctx, sessionID)
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.sessions.GetByID(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.messages.DeleteBySession(ctx, sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, userID, sessionID)
}

// Ask runs one question/answer turn. Turns on the same session are
// serialized so the stored history never interleaves; different sessions
// proceed in parallel. Both the question and the answer are persisted even
// when synthesis fails, in which case the assistant turn is a fixed apology.
func (s *ChatService) Ask(ctx context.Context, userID, sessionID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrInvalid
	}
	session, err := s.sessions.GetByID(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	prior, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := nowUnix()
	userMsg := &model.ChatMessage{
		ID:        newID(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Content:   question,
		Ctime:     now,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, err
	}

	response := NoDocumentResponse
	var sources []rag.Source
	if session.DocumentID != "" {
		answer, err := s.synthesizer.Answer(ctx, session.DocumentID, question, toHistory(prior))
		if err != nil {
			logutil.GetLogger(ctx).Error("answer synthesis failed",
				zap.String("session_id", sessionID),
				zap.String("document_id", session.DocumentID),
				zap.Error(err))
			response = ProcessingErrorResponse
		} else {
			response = answer.Response
			sources = answer.Sources
		}
	}

	assistantMsg := &model.ChatMessage{
		ID:        newID(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   response,
		Ctime:     nowUnix(),
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if len(prior) == 0 && session.Title == defaultSessionTitle {
		if err := s.sessions.UpdateTitle(ctx, sessionID, truncateTitle(question), nowUnix()); err != nil {
			logutil.GetLogger(ctx).Error("update session title failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	} else if err := s.sessions.Touch(ctx, sessionID, nowUnix()); err != nil {
		logutil.GetLogger(ctx).Error("touch session failed", zap.String("session_id", sessionID), zap.Error(err))
	}

	return &AskResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Sources:          sources,
	}, nil
}

func (s *ChatService) sessionLock(sessionID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionLocks[sessionID] = lock
	}
	return lock
}

func toHistory(msgs []model.ChatMessage) []ai.Message {
	history := make([]ai.Message, 0, len(msgs))
	for _, msg := range msgs {
		history = append(history, ai.Message{Role: msg.Role, Content: msg.Content})
	}
	return history
}

func truncateTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= titleLimit {
		return question
	}
	return string(runes[:titleLimit]) + "..."
}
