// Package mock provides an in-memory Sender for development and tests.
package mock

import (
	"context"
	"sync"

	"github.com/xokuso/peluquerias-app-sub003/internal/mail"
)

// Sender records messages instead of delivering them. An optional Err makes
// every Send fail, for exercising retry paths.
type Sender struct {
	mu   sync.Mutex
	sent []mail.Message

	Err error
}

// NewSender creates an empty mock sender.
func NewSender() *Sender {
	return &Sender{}
}

// Name returns the transport name.
func (s *Sender) Name() string {
	return "mock"
}

// Send records the message, or fails when Err is set.
func (s *Sender) Send(_ context.Context, msg *mail.Message) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, *msg)
	return nil
}

// Sent returns a copy of everything delivered so far.
func (s *Sender) Sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mail.Message, len(s.sent))
	copy(out, s.sent)
	return out
}
