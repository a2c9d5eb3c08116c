package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/empathyai/companion/internal/model/chat"
)

// ChatLog is the remote append-only message store.
type ChatLog interface {
	Append(ctx context.Context, m chat.Message) error
}

// ReplyRequest is the payload of the response-generation call.
type ReplyRequest struct {
	UserID  string
	Text    string
	ChatID  string
	Emotion string
}

// ReplyService generates the companion's answer to a user message.
type ReplyService interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

// Synchronizer maintains the per-user, time-ordered, duplicate-free message
// view, combining the live subscription with optimistic local sends.
//
// The view is an id-indexed set with insertion order preserved: the same
// merge applies to optimistic entries and to every delivered snapshot, so no
// id ever appears twice regardless of redeliveries. Exactly-once delivery of
// AI replies across client instances is still not guaranteed: the text-level
// duplicate check in Send only sees this client's view.
type Synchronizer struct {
	log     ChatLog
	replies ReplyService
	errors  ErrorSink

	mu      sync.Mutex
	view    []chat.Message
	index   map[string]int
	sending bool

	newID func() string
	now   func() time.Time
}

// NewSynchronizer wires the synchronizer to its remote collaborators.
func NewSynchronizer(log ChatLog, replies ReplyService, errors ErrorSink) *Synchronizer {
	return &Synchronizer{
		log:     log,
		replies: replies,
		errors:  errors,
		index:   make(map[string]int),
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Messages returns the current view, ordered for display.
func (s *Synchronizer) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]chat.Message, len(s.view))
	copy(copied, s.view)
	return copied
}

// Reset drops the whole view. Called by the session gate on sign-out.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = nil
	s.index = make(map[string]int)
}

// ApplySnapshot merges a subscription-delivered snapshot into the view.
// Known ids are updated in place, new ids appended; nothing is dropped.
func (s *Synchronizer) ApplySnapshot(snapshot []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range snapshot {
		s.merge(m)
	}
}

// merge requires s.mu held.
func (s *Synchronizer) merge(m chat.Message) {
	if at, ok := s.index[m.ID]; ok {
		s.view[at] = m
		return
	}
	s.index[m.ID] = len(s.view)
	s.view = append(s.view, m)
}

// Send runs the optimistic send protocol: append locally, persist remotely,
// request a generated reply, and persist the reply unless an identical
// AI-authored text is already visible. Sending with no signed-in user or
// while a prior send is still pending is a no-op.
func (s *Synchronizer) Send(ctx context.Context, userID, text, emotionTag string) error {
	text = strings.TrimSpace(text)
	if userID == "" || text == "" {
		return nil
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil
	}
	s.sending = true

	msg := chat.Message{
		ID:        s.newID(),
		UserID:    userID,
		Text:      text,
		Sender:    chat.SenderUser,
		Emotion:   emotionTag,
		Timestamp: s.now().UTC(),
	}
	s.merge(msg)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	if err := s.log.Append(ctx, msg); err != nil {
		s.errors.emit(CategoryChat, "Failed to send message. Please try again.", err)
		return err
	}

	reply, err := s.replies.GenerateReply(ctx, ReplyRequest{
		UserID:  userID,
		Text:    text,
		ChatID:  msg.ID,
		Emotion: emotionTag,
	})
	if err != nil {
		s.errors.emit(CategoryChat, "Failed to send message. Please try again.", err)
		return err
	}
	if reply == "" {
		return nil
	}

	if s.hasAIText(reply) {
		return nil
	}

	aiMsg := chat.Message{
		ID:        s.newID(),
		UserID:    userID,
		Text:      reply,
		Sender:    chat.SenderAI,
		Timestamp: s.now().UTC(),
	}
	if err := s.log.Append(ctx, aiMsg); err != nil {
		s.errors.emit(CategoryChat, "Failed to send message. Please try again.", err)
		return err
	}
	return nil
}

func (s *Synchronizer) hasAIText(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.view {
		if m.Sender == chat.SenderAI && m.Text == text {
			return true
		}
	}
	return false
}
