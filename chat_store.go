package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// chatContextSize is how many recent non-system messages are sent with each prompt.
const chatContextSize = 5

// chatSession is one conversation opened from a chat_window command.
type chatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Engine    string    `json:"engine"`
	Model     string    `json:"model"`
	Seed      string    `json:"seed"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// chatStore owns the chat sessions of one App. Sessions live in memory only.
type chatStore struct {
	mu       sync.Mutex
	sessions map[string]*chatSession
	order    []string
	system   func() InstructionsConfig
}

func newChatStore(instructions func() InstructionsConfig) *chatStore {
	return &chatStore{sessions: map[string]*chatSession{}, system: instructions}
}

// Open starts a session for seed. The seed prompt is kept for the frontend to
// send; nothing is completed here.
func (s *chatStore) Open(seed ChatSeed) ChatWindowRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.sessions[id] = &chatSession{
		ID:        id,
		Engine:    seed.Engine,
		Model:     seed.Model,
		Seed:      seed.Prompt,
		Messages:  []Message{{Role: RoleSystem, Content: s.system().Chat}},
		CreatedAt: time.Now(),
	}
	s.order = append(s.order, id)
	return ChatWindowRef{ID: id}
}

// Get returns a copy of the session.
func (s *chatStore) Get(id string) (chatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return chatSession{}, false
	}
	cp := *sess
	cp.Messages = append([]Message(nil), sess.Messages...)
	return cp, true
}

// List returns sessions oldest first.
func (s *chatStore) List() []chatSession {
	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	s.mu.Unlock()
	out := make([]chatSession, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.Get(id); ok {
			out = append(out, sess)
		}
	}
	return out
}

// Send completes prompt in the session with llm and appends the question and
// the answer. After the first answer the session gets a title. A blank prompt is
// ignored.
func (s *chatStore) Send(ctx context.Context, id, prompt string, llm llmClient) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil
	}
	if llm == nil {
		return "", ErrNoLLM
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return "", fmt.Errorf("chat %q not found", id)
	}
	question := Message{Role: RoleUser, Content: prompt}
	history := relevantMessages(append(append([]Message(nil), sess.Messages...), question))
	model, engine := sess.Model, sess.Engine
	s.mu.Unlock()

	resp, err := llm.Complete(ctx, history, CompletionOptions{Model: model})
	if err != nil {
		return "", &LLMError{Engine: engine, Model: model, Err: err}
	}

	// the exchange is recorded only once answered, so a retry is not doubled
	s.mu.Lock()
	sess.Messages = append(sess.Messages, question, Message{Role: RoleAssistant, Content: resp.Content})
	needsTitle := sess.Title == "" && countRole(sess.Messages, RoleAssistant) == 1
	var titleInput []Message
	if needsTitle {
		titleInput = []Message{
			{Role: RoleSystem, Content: s.system().Titling},
			sess.Messages[1],
			sess.Messages[2],
		}
	}
	s.mu.Unlock()

	if needsTitle {
		if t, err := llm.Complete(ctx, titleInput, CompletionOptions{Model: model}); err == nil {
			s.mu.Lock()
			sess.Title = cleanTitle(t.Content)
			s.mu.Unlock()
		}
	}
	return resp.Content, nil
}

// relevantMessages keeps the system prompt and the last few exchanges.
func relevantMessages(all []Message) []Message {
	var system []Message
	var rest []Message
	for _, m := range all {
		if m.Role == RoleSystem {
			if system == nil {
				system = []Message{m}
			}
			continue
		}
		rest = append(rest, m)
	}
	if len(rest) > chatContextSize {
		rest = rest[len(rest)-chatContextSize:]
	}
	return append(system, rest...)
}

func countRole(msgs []Message, role string) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

// cleanTitle strips the "Title:" prefix and quotes models like to add.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Title:")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}
