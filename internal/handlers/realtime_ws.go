package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/metrics"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

var errRateLimited = apperr.New(apperr.CodeUnavailable, "slow down")

// allowed decides whether uid may read or write p. Rooms are open to anyone
// holding the code; presence records are written only by their owner.
func allowed(uid string, write bool, p string) bool {
	parts := strings.Split(refs.Clean(p), "/")
	switch parts[0] {
	case "rooms":
		if len(parts) < 2 {
			return false
		}
		if write && len(parts) == 4 && (parts[2] == "online" || parts[2] == "typing") {
			return parts[3] == uid
		}
		return true
	case "users":
		if len(parts) < 2 {
			return false
		}
		return !write || parts[1] == uid
	case "chats":
		if write || len(parts) < 2 {
			return false
		}
		for _, id := range strings.Split(parts[1], "_") {
			if id == uid {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// storeSession is one socket attached to the realtime store.
type storeSession struct {
	h       *Handler
	ws      *websocket.Conn
	user    *models.User
	conn    *realtime.Conn
	limiter *rate.Limiter
	out     chan realtime.ServerFrame
	done    chan struct{}

	// closed when writePump stops touching ws
	pumpDone chan struct{}
}

// StoreSocketHandler GET /api/ws/store?token=
func (h *Handler) StoreSocketHandler(ws *websocket.Conn) {
	u, _ := ws.Locals(userKey).(*models.User)
	if u == nil {
		_ = ws.Close()
		return
	}
	s := &storeSession{
		h:       h,
		ws:      ws,
		user:    u,
		conn:    h.store.Connect(uuid.NewString()),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.Store.WriteRate), h.cfg.Store.WriteBurst),
		out:     make(chan realtime.ServerFrame, 32),
		done:    make(chan struct{}),

		pumpDone: make(chan struct{}),
	}
	metrics.StoreConnections.Inc()
	log := h.log.With().Str("conn", s.conn.ID).Str("user", u.ID).Logger()
	log.Debug().Msg("store socket opened")

	ctx, cancel := context.WithCancel(context.Background())
	go s.writePump()
	defer func() {
		close(s.done)
		// the websocket middleware recycles ws once this handler returns
		<-s.pumpDone
		cancel()
		closeCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		s.conn.Close(closeCtx)
		done()
		metrics.StoreConnections.Dec()
		log.Debug().Msg("store socket closed")
	}()

	for {
		var f realtime.ClientFrame
		if err := ws.ReadJSON(&f); err != nil {
			return
		}
		if err := s.handle(ctx, f); err != nil {
			s.send(realtime.ServerFrame{
				Type:  realtime.FrameError,
				Ref:   f.Ref,
				Path:  f.Path,
				Error: apperr.Public(err),
				Code:  string(apperr.CodeOf(err)),
			})
		}
	}
}

func (s *storeSession) writePump() {
	defer close(s.pumpDone)
	for {
		select {
		case f := <-s.out:
			if err := s.ws.WriteJSON(f); err != nil {
				// unblocks the read loop
				_ = s.ws.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *storeSession) send(f realtime.ServerFrame) {
	select {
	case s.out <- f:
	case <-s.done:
	}
}

func (s *storeSession) ack(f realtime.ClientFrame) {
	s.send(realtime.ServerFrame{Type: realtime.FrameAck, Ref: f.Ref, Path: f.Path})
}

func (s *storeSession) handle(ctx context.Context, f realtime.ClientFrame) error {
	if f.Op != realtime.OpUnsubscribe {
		if refs.Clean(f.Path) == "" {
			return apperr.ErrInvalidPath
		}
		write := realtime.IsWrite(f.Op) || f.Op == realtime.OpOnDisconnect
		if !allowed(s.user.ID, write, f.Path) {
			return apperr.Forbidden("not allowed")
		}
	}
	if realtime.IsWrite(f.Op) && !s.limiter.Allow() {
		metrics.RateLimitHits.Inc()
		return errRateLimited
	}

	store := s.conn.Store()
	switch f.Op {
	case realtime.OpSubscribe:
		if f.Ref == "" {
			return apperr.InvalidArg("subscribe needs a ref")
		}
		ref, path := f.Ref, f.Path
		err := s.conn.Subscribe(ctx, ref, path, func(es []realtime.Entry) {
			s.send(realtime.ServerFrame{Type: realtime.FrameSnapshot, Ref: ref, Path: path, Records: es})
		})
		if err != nil {
			return err
		}
	case realtime.OpUnsubscribe:
		s.conn.Unsubscribe(f.Ref)
	case realtime.OpSet:
		if err := store.Set(ctx, f.Path, f.Value); err != nil {
			return err
		}
	case realtime.OpUpdate:
		if err := store.Update(ctx, f.Path, f.Value); err != nil {
			return err
		}
	case realtime.OpRemove:
		if err := store.Remove(ctx, f.Path); err != nil {
			return err
		}
	case realtime.OpPush:
		key, err := store.Push(ctx, f.Path, f.Value)
		if err != nil {
			return err
		}
		s.send(realtime.ServerFrame{Type: realtime.FramePushed, Ref: f.Ref, Path: f.Path, Key: key})
		return nil
	case realtime.OpOnDisconnect:
		if err := s.conn.OnDisconnect(f.Path, f.Value); err != nil {
			return err
		}
	case realtime.OpCancelOnDisconnect:
		s.conn.CancelOnDisconnect(f.Path)
	case realtime.OpAnnounce:
		if err := s.conn.Announce(ctx, f.Path, f.Value, f.OnDisconnect); err != nil {
			return err
		}
	default:
		return apperr.InvalidArg("unknown op")
	}
	s.ack(f)
	return nil
}
