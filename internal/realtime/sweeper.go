package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/metrics"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

// Sweeper resets presence that nobody will reset anymore: typing and online
// flags older than StaleAfter whose owning connection is gone (for example
// after a server restart with a persistent backend).
type Sweeper struct {
	store      *Store
	cron       string
	staleAfter time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

func NewSweeper(store *Store, cronExpr string, staleAfter time.Duration, log zerolog.Logger) (*Sweeper, error) {
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid presence sweep cron expression: %s", cronExpr)
	}
	return &Sweeper{
		store:      store,
		cron:       cronExpr,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        log.With().Str("component", "sweeper").Logger(),
	}, nil
}

// Run sweeps on every tick of the cron expression until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(s.cron, s.now().UTC(), false)
		wait := time.Until(next)
		if err != nil {
			s.log.Error().Err(err).Str("cron", s.cron).Msg("next tick failed")
			wait = 30 * time.Second
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if err != nil {
			continue
		}
		n, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("presence sweep failed")
			continue
		}
		if n > 0 {
			s.log.Info().Int("reset", n).Msg("stale presence swept")
		}
	}
}

// Sweep runs one pass and returns how many records were reset.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.staleAfter).UnixMilli()
	reset := 0

	online, err := s.store.backend.Collections(ctx, "/online")
	if err != nil {
		return 0, err
	}
	for _, c := range online {
		if !refs.IsOnlineCollection(c) {
			continue
		}
		entries, err := s.store.List(ctx, c)
		if err != nil {
			return reset, err
		}
		for _, e := range entries {
			p := c + "/" + e.Key
			if !Bool(e.Value, "isOnline") || Int64(e.Value, "timestamp") > cutoff || s.store.Guarded(p) {
				continue
			}
			if err := s.store.Update(ctx, p, Value{"isOnline": false, "timestamp": now.UnixMilli()}); err != nil {
				return reset, err
			}
			reset++
		}
	}

	typing, err := s.store.backend.Collections(ctx, "/typing")
	if err != nil {
		return reset, err
	}
	for _, c := range typing {
		if !refs.IsTypingCollection(c) {
			continue
		}
		entries, err := s.store.List(ctx, c)
		if err != nil {
			return reset, err
		}
		for _, e := range entries {
			p := c + "/" + e.Key
			// a live owner stamps the flag once per burst and clears it itself
			if !Bool(e.Value, "isTyping") || Int64(e.Value, "timestamp") > cutoff || s.store.Guarded(p) {
				continue
			}
			if err := s.store.Update(ctx, p, Value{"isTyping": false}); err != nil {
				return reset, err
			}
			reset++
		}
	}
	metrics.PresenceSwept.Add(float64(reset))
	return reset, nil
}
