package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/chat"
)

const maxRedialWait = 10 * time.Second

// Redialer keeps a session's store socket alive. When the current socket drops
// it dials a new one with the client's token and hands it to the session.
type Redialer struct {
	client  *Client
	session *chat.Session
	log     zerolog.Logger
	wait    func(attempt int) time.Duration

	mu      sync.Mutex
	current *Store
}

func NewRedialer(client *Client, session *chat.Session, first *Store, log zerolog.Logger) *Redialer {
	return &Redialer{
		client:  client,
		session: session,
		log:     log.With().Str("component", "redial").Logger(),
		wait:    backoff,
		current: first,
	}
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * time.Second
	if d > maxRedialWait {
		d = maxRedialWait
	}
	return d
}

// Store returns the socket currently in use.
func (r *Redialer) Store() *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Run blocks until ctx is done, then closes the current socket. It returns
// early if the account is signed out or the session leaves the room.
func (r *Redialer) Run(ctx context.Context) {
	defer func() { _ = r.Store().Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.Store().Done():
		}
		r.log.Warn().Msg("store socket dropped")
		if !r.redial(ctx) {
			return
		}
	}
}

func (r *Redialer) redial(ctx context.Context) bool {
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(r.wait(attempt)):
		}
		next, err := DialStore(ctx, r.client.Base(), r.client.Token(), r.log)
		if errors.Is(err, apperr.ErrNotLoggedIn) {
			r.log.Info().Msg("signed out, not redialing")
			return false
		}
		if err != nil {
			r.log.Debug().Err(err).Int("attempt", attempt).Msg("redial failed")
			continue
		}
		if err := r.session.ReconnectWith(ctx, next); err != nil || r.session.State() != chat.Active {
			_ = next.Close()
			if errors.Is(err, chat.ErrSessionClosed) || r.session.State() == chat.Disconnected {
				return false
			}
			r.log.Debug().Err(err).Int("attempt", attempt).Msg("rejoin failed")
			continue
		}
		r.mu.Lock()
		r.current = next
		r.mu.Unlock()
		r.log.Info().Int("attempt", attempt).Msg("store socket restored")
		return true
	}
}
