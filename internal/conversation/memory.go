package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"polychat/internal/core"
)

// memoryStore keeps conversations in a mutex-guarded map. It is the default
// backend; transcripts do not survive a restart.
type memoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore() Store {
	return &memoryStore{conversations: make(map[string]*Conversation)}
}

func (s *memoryStore) Create(_ context.Context, provider string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Provider:  provider,
		Messages:  []core.HistoryMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()

	return cloneConversation(conv), nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	conv, ok := s.conversations[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *memoryStore) AppendMessage(_ context.Context, id string, msg core.HistoryMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]Conversation, error) {
	s.mu.RLock()
	out := make([]Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, Conversation{
			ID:        conv.ID,
			Provider:  conv.Provider,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

func (s *memoryStore) Close() error { return nil }

// cloneConversation copies a conversation so callers never share the
// store's backing slice.
func cloneConversation(conv *Conversation) *Conversation {
	out := *conv
	out.Messages = make([]core.HistoryMessage, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return &out
}
