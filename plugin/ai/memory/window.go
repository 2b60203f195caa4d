package memory

import (
	"context"
	"sync"
	"time"
)

// Window keeps a per-session sliding window of messages in process.
// Thread-safe for concurrent access.
type Window struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
	maxSize  int
	idleTTL  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type sessionData struct {
	messages   []Message
	lastAccess time.Time
}

// NewWindow creates a window store keeping at most maxSize messages per session.
// Sessions idle for longer than idleTTL are dropped by a background loop.
func NewWindow(maxSize int, idleTTL time.Duration) *Window {
	if maxSize <= 0 {
		maxSize = 20
	}
	if idleTTL <= 0 {
		idleTTL = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Window{
		sessions: make(map[string]*sessionData),
		maxSize:  maxSize,
		idleTTL:  idleTTL,
		ctx:      ctx,
		cancel:   cancel,
	}
	w.wg.Add(1)
	go w.cleanupLoop()
	return w
}

// Close stops the cleanup goroutine.
func (w *Window) Close() {
	w.cancel()
	w.wg.Wait()
}

// Load returns the most recent messages of a session, oldest first.
func (w *Window) Load(_ context.Context, sessionID string, limit int) ([]Message, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, exists := w.sessions[sessionID]
	if !exists || len(session.messages) == 0 {
		return []Message{}, nil
	}
	session.lastAccess = time.Now()

	messages := session.messages
	if limit > 0 && limit < len(messages) {
		messages = messages[len(messages)-limit:]
	}

	result := make([]Message, len(messages))
	copy(result, messages)
	return result, nil
}

// Save appends messages to a session, dropping the oldest beyond the window size.
func (w *Window) Save(_ context.Context, sessionID string, msgs ...Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, exists := w.sessions[sessionID]
	if !exists {
		session = &sessionData{messages: make([]Message, 0, w.maxSize)}
		w.sessions[sessionID] = session
	}

	now := time.Now()
	for _, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		session.messages = append(session.messages, msg)
	}
	session.lastAccess = now

	if len(session.messages) > w.maxSize {
		session.messages = session.messages[len(session.messages)-w.maxSize:]
	}
	return nil
}

// Clear removes all messages of a session.
func (w *Window) Clear(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sessions, sessionID)
}

// SessionCount returns the number of sessions with a window.
func (w *Window) SessionCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sessions)
}

func (w *Window) cleanupLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.evictIdle(time.Now())
		}
	}
}

func (w *Window) evictIdle(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for sessionID, session := range w.sessions {
		if now.Sub(session.lastAccess) > w.idleTTL {
			delete(w.sessions, sessionID)
		}
	}
}

var _ Backend = (*Window)(nil)
