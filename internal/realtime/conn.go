package realtime

import (
	"context"
	"sync"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/metrics"
)

// Conn is one client's attachment to the store. It owns the client's
// subscriptions and the writes to run when the client goes away.
type Conn struct {
	ID    string
	store *Store

	mu       sync.Mutex
	subs     map[string]func() // ref -> cancel
	cleanups map[string]Value  // path -> update applied on close
	closed   bool
}

func (s *Store) Connect(id string) *Conn {
	return &Conn{
		ID:       id,
		store:    s,
		subs:     map[string]func(){},
		cleanups: map[string]Value{},
	}
}

func (c *Conn) Store() *Store { return c.store }

// Subscribe registers a subscription under ref, replacing any previous one.
func (c *Conn) Subscribe(ctx context.Context, ref, collection string, fn SnapshotFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apperr.ErrStoreClosed
	}
	cancel, err := c.store.Subscribe(ctx, collection, fn)
	if err != nil {
		return err
	}
	if prev, ok := c.subs[ref]; ok {
		prev()
	}
	c.subs[ref] = cancel
	return nil
}

func (c *Conn) Unsubscribe(ref string) {
	c.mu.Lock()
	cancel, ok := c.subs[ref]
	delete(c.subs, ref)
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

// OnDisconnect arranges for patch to be merged into path when the connection
// closes, whether cleanly or not.
func (c *Conn) OnDisconnect(path string, patch Value) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apperr.ErrStoreClosed
	}
	if _, ok := c.cleanups[p]; !ok {
		c.store.guard(p, 1)
	}
	c.cleanups[p] = clone(patch)
	return nil
}

func (c *Conn) CancelOnDisconnect(path string) {
	p, err := cleanPath(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cleanups[p]; ok {
		delete(c.cleanups, p)
		c.store.guard(p, -1)
	}
}

// Announce registers the disconnect patch and then writes the live value while
// holding the connection lock, so no close can slip in between the two.
func (c *Conn) Announce(ctx context.Context, path string, live, onDisconnect Value) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return apperr.ErrStoreClosed
	}
	if _, ok := c.cleanups[p]; !ok {
		c.store.guard(p, 1)
	}
	c.cleanups[p] = clone(onDisconnect)
	return c.store.Update(ctx, p, live)
}

// Close cancels every subscription and runs the registered disconnect writes.
func (c *Conn) Close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	cleanups := c.cleanups
	c.subs = nil
	c.cleanups = nil
	c.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	for p, patch := range cleanups {
		if err := c.store.Update(ctx, p, patch); err != nil {
			c.store.log.Warn().Err(err).Str("conn", c.ID).Str("path", p).Msg("disconnect write failed")
		} else {
			metrics.DisconnectCleanups.Inc()
		}
		c.store.guard(p, -1)
	}
}
