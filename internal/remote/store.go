// Package remote implements the chat session's store and auth collaborators
// against a running server.
package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
)

type subscription struct {
	fn      realtime.SnapshotFunc
	mailbox chan []realtime.Entry
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) stop() { s.once.Do(func() { close(s.done) }) }

// offer keeps only the newest undelivered snapshot so the read loop never
// waits on a slow consumer.
func (s *subscription) offer(es []realtime.Entry) {
	for {
		select {
		case s.mailbox <- es:
			return
		default:
		}
		select {
		case <-s.mailbox:
		default:
		}
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case es := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(es)
		}
	}
}

// Store speaks the store socket protocol over one websocket.
type Store struct {
	ws  *websocket.Conn
	log zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	next    int
	pending map[string]chan realtime.ServerFrame
	subs    map[string]*subscription
	closed  bool
	done    chan struct{}
}

// StoreURL turns a server base URL into the store socket URL.
func StoreURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = "/api/ws/store"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func DialStore(ctx context.Context, base, token string, log zerolog.Logger) (*Store, error) {
	target, err := StoreURL(base, token)
	if err != nil {
		return nil, apperr.InvalidArg("invalid server address")
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, apperr.ErrNotLoggedIn
		}
		return nil, apperr.ErrStoreFailure(err)
	}
	s := &Store{
		ws:      ws,
		log:     log,
		pending: map[string]chan realtime.ServerFrame{},
		subs:    map[string]*subscription{},
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Done is closed when the socket drops.
func (s *Store) Done() <-chan struct{} { return s.done }

func (s *Store) readLoop() {
	defer s.shutdown()
	for {
		var f realtime.ServerFrame
		if err := s.ws.ReadJSON(&f); err != nil {
			s.log.Debug().Err(err).Msg("store socket closed")
			return
		}
		s.mu.Lock()
		if f.Type == realtime.FrameSnapshot {
			sub := s.subs[f.Ref]
			s.mu.Unlock()
			if sub != nil {
				sub.offer(f.Records)
			}
			continue
		}
		reply := s.pending[f.Ref]
		delete(s.pending, f.Ref)
		s.mu.Unlock()
		if reply != nil {
			reply <- f
		} else if f.Type == realtime.FrameError {
			s.log.Warn().Str("path", f.Path).Str("error", f.Error).Msg("store error")
		}
	}
}

func (s *Store) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = map[string]*subscription{}
	s.pending = map[string]chan realtime.ServerFrame{}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
	close(s.done)
	_ = s.ws.Close()
}

func (s *Store) nextRef(prefix string) string {
	s.next++
	return prefix + strconv.Itoa(s.next)
}

func (s *Store) write(f realtime.ClientFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.ws.WriteJSON(f); err != nil {
		return apperr.ErrStoreFailure(err)
	}
	return nil
}

// call sends f and waits for its ack, pushed or error reply.
func (s *Store) call(ctx context.Context, f realtime.ClientFrame) (realtime.ServerFrame, error) {
	reply := make(chan realtime.ServerFrame, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return realtime.ServerFrame{}, apperr.ErrStoreClosed
	}
	if f.Ref == "" {
		f.Ref = s.nextRef("r")
	}
	s.pending[f.Ref] = reply
	s.mu.Unlock()

	forget := func() {
		s.mu.Lock()
		delete(s.pending, f.Ref)
		s.mu.Unlock()
	}
	if err := s.write(f); err != nil {
		forget()
		return realtime.ServerFrame{}, err
	}
	select {
	case r := <-reply:
		if r.Type == realtime.FrameError {
			return r, apperr.New(apperr.Code(r.Code), r.Error)
		}
		return r, nil
	case <-ctx.Done():
		forget()
		return realtime.ServerFrame{}, ctx.Err()
	case <-s.done:
		return realtime.ServerFrame{}, apperr.ErrStoreClosed
	}
}

func (s *Store) Subscribe(ctx context.Context, collection string, fn realtime.SnapshotFunc) (func(), error) {
	sub := &subscription{fn: fn, mailbox: make(chan []realtime.Entry, 1), done: make(chan struct{})}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperr.ErrStoreClosed
	}
	ref := s.nextRef("s")
	s.subs[ref] = sub
	s.mu.Unlock()
	go sub.run()

	drop := func() bool {
		s.mu.Lock()
		_, ok := s.subs[ref]
		delete(s.subs, ref)
		s.mu.Unlock()
		sub.stop()
		return ok
	}
	if _, err := s.call(ctx, realtime.ClientFrame{Op: realtime.OpSubscribe, Ref: ref, Path: collection}); err != nil {
		drop()
		return nil, err
	}
	return func() {
		if drop() {
			// the ack has nobody waiting for it and is ignored
			_ = s.write(realtime.ClientFrame{Op: realtime.OpUnsubscribe, Ref: ref})
		}
	}, nil
}

func (s *Store) Set(ctx context.Context, path string, v realtime.Value) error {
	_, err := s.call(ctx, realtime.ClientFrame{Op: realtime.OpSet, Path: path, Value: v})
	return err
}

func (s *Store) Update(ctx context.Context, path string, patch realtime.Value) error {
	_, err := s.call(ctx, realtime.ClientFrame{Op: realtime.OpUpdate, Path: path, Value: patch})
	return err
}

func (s *Store) Remove(ctx context.Context, path string) error {
	_, err := s.call(ctx, realtime.ClientFrame{Op: realtime.OpRemove, Path: path})
	return err
}

func (s *Store) Push(ctx context.Context, collection string, v realtime.Value) (string, error) {
	r, err := s.call(ctx, realtime.ClientFrame{Op: realtime.OpPush, Path: collection, Value: v})
	if err != nil {
		return "", err
	}
	return r.Key, nil
}

func (s *Store) OnDisconnect(ctx context.Context, path string, patch realtime.Value) error {
	_, err := s.call(ctx, realtime.ClientFrame{Op: realtime.OpOnDisconnect, Path: path, Value: patch})
	return err
}

func (s *Store) CancelOnDisconnect(ctx context.Context, path string) error {
	_, err := s.call(ctx, realtime.ClientFrame{Op: realtime.OpCancelOnDisconnect, Path: path})
	return err
}

// Close drops the socket. The server runs this client's disconnect writes.
func (s *Store) Close() error {
	s.writeMu.Lock()
	_ = s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	s.shutdown()
	return nil
}
