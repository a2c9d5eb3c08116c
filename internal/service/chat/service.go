// Package chat owns the per-user append-only message log and fans out
// full ordered snapshots to live subscribers.
package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/empathyai/companion/internal/model/chat"
)

var (
	ErrUserRequired  = errors.New("user id is required")
	ErrTextRequired  = errors.New("message text is required")
	ErrInvalidSender = errors.New("sender must be user or ai")
)

// Log is the durable message storage behind the service.
type Log interface {
	Insert(ctx context.Context, m chat.Message) error
	ByUser(ctx context.Context, userID string) ([]chat.Message, error)
}

// Service validates appends, reads history and notifies subscribers.
type Service struct {
	log Log

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []chat.Message
}

// NewService wraps the given log.
func NewService(store Log) *Service {
	return &Service{
		log:  store,
		subs: make(map[string]map[int]chan []chat.Message),
	}
}

// Append stores a message and pushes a fresh snapshot to the user's
// subscribers. A missing id is assigned; a zero timestamp is stamped UTC now.
func (s *Service) Append(ctx context.Context, m chat.Message) (chat.Message, error) {
	if m.UserID == "" {
		return chat.Message{}, ErrUserRequired
	}
	if m.Text == "" {
		return chat.Message{}, ErrTextRequired
	}
	if !m.Sender.Valid() {
		return chat.Message{}, ErrInvalidSender
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	if err := s.log.Insert(ctx, m); err != nil {
		return chat.Message{}, err
	}

	s.notify(ctx, m.UserID)
	return m, nil
}

// History returns the user's messages ordered by timestamp ascending.
func (s *Service) History(ctx context.Context, userID string) ([]chat.Message, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	return s.log.ByUser(ctx, userID)
}

// Subscribe registers a snapshot channel for userID. The current snapshot is
// delivered immediately. The returned cancel function releases the channel;
// after cancel the channel is closed and must not be read as live.
func (s *Service) Subscribe(ctx context.Context, userID string) (<-chan []chat.Message, func(), error) {
	if userID == "" {
		return nil, nil, ErrUserRequired
	}

	// Buffered by one: a slow consumer only ever misses intermediate
	// snapshots, never the latest.
	ch := make(chan []chat.Message, 1)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]chan []chat.Message)
	}
	s.subs[userID][id] = ch
	s.mu.Unlock()

	snapshot, err := s.log.ByUser(ctx, userID)
	if err == nil {
		ch <- snapshot
	} else {
		log.Printf("[chat] initial snapshot for user=%s failed: %v", userID, err)
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if subs, ok := s.subs[userID]; ok {
			if _, live := subs[id]; live {
				delete(subs, id)
				close(ch)
			}
			if len(subs) == 0 {
				delete(s.subs, userID)
			}
		}
	}
	return ch, cancel, nil
}

func (s *Service) notify(ctx context.Context, userID string) {
	s.mu.Lock()
	targets := make([]chan []chat.Message, 0, len(s.subs[userID]))
	for _, ch := range s.subs[userID] {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	snapshot, err := s.log.ByUser(ctx, userID)
	if err != nil {
		log.Printf("[chat] snapshot for user=%s failed: %v", userID, err)
		return
	}

	for _, ch := range targets {
		// Replace a stale pending snapshot rather than blocking.
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// MemoryLog is an in-memory Log for tests and storage-free runs.
type MemoryLog struct {
	mu   sync.RWMutex
	byID map[string][]chat.Message
}

// NewMemoryLog returns an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{byID: make(map[string][]chat.Message)}
}

// Insert appends the message to the user's log.
func (l *MemoryLog) Insert(_ context.Context, m chat.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := append(l.byID[m.UserID], m)
	// Keep timestamp order without assuming callers append in order.
	for i := len(msgs) - 1; i > 0 && msgs[i].Timestamp.Before(msgs[i-1].Timestamp); i-- {
		msgs[i], msgs[i-1] = msgs[i-1], msgs[i]
	}
	l.byID[m.UserID] = msgs
	return nil
}

// ByUser lists the user's messages ordered by timestamp ascending.
func (l *MemoryLog) ByUser(_ context.Context, userID string) ([]chat.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	msgs := l.byID[userID]
	copied := make([]chat.Message, len(msgs))
	copy(copied, msgs)
	return copied, nil
}
