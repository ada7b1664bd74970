package claude

import (
	"context"
	"sync"
)

// Session serializes invocations through a single abortable slot. One request
// runs at a time; Abort cancels whichever request is in flight. Batch workers
// bypass the session and call the Invoker directly.
type Session struct {
	invoker Invoker

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSession wraps invoker with abort tracking.
func NewSession(invoker Invoker) *Session {
	return &Session{invoker: invoker}
}

// Invoke runs one request under the session's cancel slot.
func (s *Session) Invoke(ctx context.Context, prompt, workDir string) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	return s.invoker.Invoke(ctx, prompt, workDir)
}

// Abort cancels the in-flight invocation, if any.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
