package realtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/metrics"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

// Store is the realtime database: path-addressed JSON records with full-snapshot
// subscriptions per collection. Writes are serialized so every subscriber of a
// collection observes snapshots in write order.
type Store struct {
	backend Backend
	hub     *Hub
	log     zerolog.Logger

	mu     sync.Mutex
	guards map[string]int // paths covered by a live connection's disconnect write
	closed bool

	nextID atomic.Uint64
}

func NewStore(backend Backend, log zerolog.Logger) *Store {
	s := &Store{
		backend: backend,
		hub:     NewHub(),
		log:     log.With().Str("component", "realtime").Logger(),
		guards:  map[string]int{},
	}
	go s.hub.Start()
	s.log.Debug().Str("backend", fmt.Sprintf("%T", backend)).Msg("store opened")
	return s
}

// NewPushID returns a time-ordered id for Push.
func NewPushID() string {
	return ulid.Make().String()
}

func cleanPath(p string) (string, error) {
	c := refs.Clean(p)
	if c == "" {
		return "", apperr.ErrInvalidPath
	}
	return c, nil
}

// Subscribe delivers the current snapshot of collection and then one snapshot
// after every change. The returned cancel func is idempotent.
func (s *Store) Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (func(), error) {
	c, err := cleanPath(collection)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, apperr.ErrStoreClosed
	}
	entries, err := s.backend.List(ctx, c)
	if err != nil {
		return nil, apperr.ErrStoreFailure(err)
	}
	sub := &subscription{
		id:         s.nextID.Add(1),
		collection: c,
		fn:         fn,
		mailbox:    make(chan []Entry, 1),
		done:       make(chan struct{}),
	}
	if !s.hub.register(&registration{sub: sub, initial: entries}) {
		return nil, apperr.ErrStoreClosed
	}
	metrics.StoreSubscriptions.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.hub.unregister(sub)
			metrics.StoreSubscriptions.Dec()
		})
	}, nil
}

func (s *Store) Get(ctx context.Context, path string) (Value, bool, error) {
	p, err := cleanPath(path)
	if err != nil {
		return nil, false, err
	}
	v, ok, err := s.backend.Get(ctx, p)
	if err != nil {
		return nil, false, apperr.ErrStoreFailure(err)
	}
	return v, ok, nil
}

func (s *Store) List(ctx context.Context, collection string) ([]Entry, error) {
	c, err := cleanPath(collection)
	if err != nil {
		return nil, err
	}
	es, err := s.backend.List(ctx, c)
	if err != nil {
		return nil, apperr.ErrStoreFailure(err)
	}
	return es, nil
}

// Set replaces the record at path.
func (s *Store) Set(ctx context.Context, path string, v Value) error {
	return s.write(ctx, "set", path, func(Value, bool) (Value, bool) { return v, true })
}

// Update merges the top-level keys of patch into the record at path, creating it
// if needed. A nil field value removes that field.
func (s *Store) Update(ctx context.Context, path string, patch Value) error {
	return s.write(ctx, "update", path, func(cur Value, ok bool) (Value, bool) {
		if !ok {
			cur = Value{}
		}
		return merge(cur, patch), true
	})
}

func (s *Store) Remove(ctx context.Context, path string) error {
	return s.write(ctx, "remove", path, func(Value, bool) (Value, bool) { return nil, false })
}

// Push stores v under a new time-ordered key of collection and returns the key.
func (s *Store) Push(ctx context.Context, collection string, v Value) (string, error) {
	c, err := cleanPath(collection)
	if err != nil {
		return "", err
	}
	id := NewPushID()
	if err := s.Set(ctx, c+"/"+id, v); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) write(ctx context.Context, op, path string, apply func(cur Value, ok bool) (Value, bool)) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	collection, _ := refs.Split(p)
	if collection == "" {
		return apperr.ErrInvalidPath
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperr.ErrStoreClosed
	}

	cur, ok, err := s.backend.Get(ctx, p)
	if err != nil {
		return apperr.ErrStoreFailure(err)
	}
	next, keep := apply(cur, ok)
	if keep {
		next, err = normalize(next)
		if err != nil {
			return apperr.Wrap(apperr.CodeInvalidArgument, "value is not valid JSON", err)
		}
		err = s.backend.Put(ctx, p, next)
	} else {
		err = s.backend.Delete(ctx, p)
	}
	if err != nil {
		return apperr.ErrStoreFailure(err)
	}
	metrics.StoreWrites.WithLabelValues(op, refs.CollectionKind(collection)).Inc()

	entries, err := s.backend.List(ctx, collection)
	if err != nil {
		s.log.Error().Err(err).Str("collection", collection).Msg("snapshot after write failed")
		return nil
	}
	s.hub.publish(&event{collection: collection, entries: entries})
	return nil
}

func (s *Store) guard(path string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guards[path] += delta
	if s.guards[path] <= 0 {
		delete(s.guards, path)
	}
}

// Guarded reports whether a live connection will reset path when it goes away.
func (s *Store) Guarded(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guards[path] > 0
}

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close stops all subscriptions and closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.Stop()
	return s.backend.Close()
}
