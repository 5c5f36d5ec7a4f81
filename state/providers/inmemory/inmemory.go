// Package inmemory provides a process-local state.Store backed by a
// map, suitable for tests and single-process agents. It registers
// itself under the name "inmemory" via init().
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/basalt-ai/basalt/state"
)

func init() {
	state.Register("inmemory", func(cfg state.Config) (state.Store, error) {
		return New(), nil
	})
}

// Store is an in-memory, concurrency-safe state.Store with key-scoped
// watch notifications.
type Store struct {
	mu       sync.Mutex
	data     map[string]any
	watchers map[string][]chan state.StateChange
	closed   bool
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		data:     make(map[string]any),
		watchers: make(map[string][]chan state.StateChange),
	}
}

var errClosed = fmt.Errorf("inmemory: store is closed")

func (s *Store) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	return s.data[key], nil
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	old := s.data[key]
	s.data[key] = value
	s.notifyLocked(key, state.StateChange{Key: key, OldValue: old, Value: value, Op: state.OpSet})
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	old, existed := s.data[key]
	if !existed {
		return nil
	}
	delete(s.data, key)
	s.notifyLocked(key, state.StateChange{Key: key, OldValue: old, Value: nil, Op: state.OpDelete})
	return nil
}

// Watch returns a channel of StateChange for key. The channel is
// buffered (capacity 16) so a slow reader does not block Set/Delete; it
// closes when ctx is done or the store is closed.
func (s *Store) Watch(ctx context.Context, key string) (<-chan state.StateChange, error) {
	s.mu.Lock()
	if err := s.checkOpen(ctx); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	ch := make(chan state.StateChange, 16)
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.removeWatcher(key, ch)
	}()

	return ch, nil
}

func (s *Store) removeWatcher(key string, ch chan state.StateChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	watchers := s.watchers[key]
	for i, w := range watchers {
		if w == ch {
			s.watchers[key] = append(watchers[:i], watchers[i+1:]...)
			close(ch)
			return
		}
	}
}

// notifyLocked delivers change to every watcher of key. Callers hold s.mu.
func (s *Store) notifyLocked(key string, change state.StateChange) {
	for _, ch := range s.watchers[key] {
		select {
		case ch <- change:
		default:
			// Slow watcher; drop rather than block Set/Delete.
		}
	}
}

// Close releases all resources and closes every outstanding watch
// channel. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	for _, watchers := range s.watchers {
		for _, ch := range watchers {
			close(ch)
		}
	}
	s.watchers = make(map[string][]chan state.StateChange)
	return nil
}
