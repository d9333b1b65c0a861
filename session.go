/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package remotestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/suparena/remotestore/datastore"
	"github.com/suparena/remotestore/objectcontext"
	"github.com/suparena/remotestore/registry"
	"github.com/suparena/remotestore/storagemodels"
)

// managedContext is the type-erased view of an objectcontext.Context.
type managedContext interface {
	Save(ctx context.Context) error
	HasChanges() bool
	Reset()
	Close() error
}

// Session manages named object contexts of different entity types so they
// can be saved and closed together. The registry is safe for concurrent use;
// each context still belongs to a single goroutine.
type Session struct {
	mu       sync.RWMutex
	names    []string
	contexts map[string]managedContext
	logger   *slog.Logger
	closed   bool
}

// NewSession creates an empty session. A nil logger discards output.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		contexts: make(map[string]managedContext),
		logger:   logger,
	}
}

// OpenContext opens an object context over store and registers it under name.
func OpenContext[T any, P storagemodels.Entity[T]](s *Session, name string, store datastore.DataStore[T], entityType registry.EntityType, opts ...objectcontext.Option) (*objectcontext.Context[T, P], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}
	if _, exists := s.contexts[name]; exists {
		return nil, fmt.Errorf("context with name %q already registered", name)
	}

	opts = append([]objectcontext.Option{objectcontext.WithLogger(s.logger)}, opts...)
	oc, err := objectcontext.New[T, P](store, entityType, opts...)
	if err != nil {
		return nil, fmt.Errorf("open context %q: %w", name, err)
	}
	s.contexts[name] = oc
	s.names = append(s.names, name)
	return oc, nil
}

// ContextOf retrieves the context registered under name. It fails when the
// context manages a different entity type.
func ContextOf[T any, P storagemodels.Entity[T]](s *Session, name string) (*objectcontext.Context[T, P], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mc, exists := s.contexts[name]
	if !exists {
		return nil, fmt.Errorf("context with name %q not found", name)
	}
	oc, ok := mc.(*objectcontext.Context[T, P])
	if !ok {
		return nil, fmt.Errorf("context %q manages %T, not %T", name, mc, (*objectcontext.Context[T, P])(nil))
	}
	return oc, nil
}

// Names returns the registered context names in registration order.
func (s *Session) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// HasChanges reports whether any context has unsaved changes.
func (s *Session) HasChanges() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.names {
		if s.contexts[name].HasChanges() {
			return true
		}
	}
	return false
}

// Save saves every context in registration order, stopping at the first
// failure.
func (s *Session) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.names {
		if err := s.contexts[name].Save(ctx); err != nil {
			return fmt.Errorf("save %q: %w", name, err)
		}
	}
	return nil
}

// Reset discards unsaved changes in every context.
func (s *Session) Reset() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.names {
		s.contexts[name].Reset()
	}
}

// Close closes every context. Unsaved changes are discarded.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, name := range s.names {
		if s.contexts[name].HasChanges() {
			s.logger.Warn("closing context with unsaved changes", "context", name)
		}
		if err := s.contexts[name].Close(); err != nil {
			return fmt.Errorf("close %q: %w", name, err)
		}
	}
	return nil
}
