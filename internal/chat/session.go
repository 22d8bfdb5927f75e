// Package chat is the client side of a room: it turns the realtime store's
// snapshots into an ordered, decoded message list plus the partner's presence,
// and writes the local user's presence, typing flag and read receipts back.
//
// All session state is owned by one goroutine. Store callbacks, timer expiries
// and public method calls are queued to it as closures.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pelusa-v/bearboo-letters/internal/apperr"
	"github.com/pelusa-v/bearboo-letters/internal/codec"
	"github.com/pelusa-v/bearboo-letters/internal/models"
	"github.com/pelusa-v/bearboo-letters/internal/realtime"
	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

type State int

const (
	Disconnected State = iota
	Connecting
	NeedsPassphrase
	Active
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case NeedsPassphrase:
		return "needs-passphrase"
	case Active:
		return "active"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// View is what a renderer needs after every change.
type View struct {
	State    State
	Room     string
	Self     Identity
	Messages []models.Message
	Arrived  []models.Message // partner messages new in this update
	Partner  models.PartnerStatus
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient, user-facing message. It never carries raw errors.
type Notice struct {
	Level   NoticeLevel
	Message string
}

var (
	ErrSessionClosed = errors.New("chat: session closed")

	errBadPassphrase = apperr.InvalidArg("The passphrase must not be empty or contain ':'.")
	errConnLost      = apperr.New(apperr.CodeUnavailable, "Connection lost. Reconnecting...")
)

type Options struct {
	Store      Store
	Auth       Auth
	Codec      codec.Codec
	Room       string
	Passphrase string
	Clock      Clock
	// TypingTimeout defaults to TypingTimeout.
	TypingTimeout time.Duration
	Log           zerolog.Logger
}

type Session struct {
	storeMu sync.RWMutex
	store   Store // swapped by ReconnectWith
	auth    Auth
	codec   codec.Codec
	clock   Clock
	log     zerolog.Logger
	timeout time.Duration

	events   chan func()
	writes   chan func()
	quit     chan struct{}
	stopOnce sync.Once
	updates  chan View
	notices  chan Notice

	// owned by the loop goroutine
	state       State
	room        string
	self        Identity
	passphrase  string
	gen         uint64
	records     []realtime.Entry
	messages    []models.Message
	online      map[string]models.PresenceRecord
	typing      map[string]models.PresenceRecord
	receipts    *Receipts
	typer       *TypingTimer
	localTyping bool
	unsubs      []func()
	authCancel  func()
}

func NewSession(opts Options) (*Session, error) {
	if opts.Store == nil || opts.Auth == nil {
		return nil, errors.New("chat: store and auth are required")
	}
	room := refs.Room(opts.Room)
	if room == "" {
		return nil, apperr.InvalidArg("Please enter a room code.")
	}
	if opts.Passphrase != "" {
		if err := codec.ValidatePassphrase(opts.Passphrase); err != nil {
			return nil, errBadPassphrase
		}
	}
	if opts.Codec == nil {
		opts.Codec = codec.Base64{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = TypingTimeout
	}
	s := &Session{
		store:      opts.Store,
		auth:       opts.Auth,
		codec:      opts.Codec,
		clock:      opts.Clock,
		log:        opts.Log.With().Str("component", "chat").Str("room", room).Logger(),
		timeout:    opts.TypingTimeout,
		events:     make(chan func(), 64),
		writes:     make(chan func(), 64),
		quit:       make(chan struct{}),
		updates:    make(chan View, 1),
		notices:    make(chan Notice, 16),
		room:       room,
		passphrase: opts.Passphrase,
		online:     map[string]models.PresenceRecord{},
		typing:     map[string]models.PresenceRecord{},
		receipts:   NewReceipts(),
	}
	s.typer = NewTypingTimer(s.clock, s.timeout, func() { s.post(s.expireTyping) })
	s.authCancel = s.auth.OnAuthChange(func(u *Identity) {
		if u == nil {
			s.post(func() { s.signedOut() })
		}
	})
	go s.loop()
	go s.writer()
	return s, nil
}

func (s *Session) loop() {
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-s.quit:
			return
		}
	}
}

// writer applies the session's own writes in the order they were issued.
func (s *Session) writer() {
	for {
		select {
		case fn := <-s.writes:
			fn()
		case <-s.quit:
			return
		}
	}
}

// post queues fn without waiting for it.
func (s *Session) post(fn func()) {
	select {
	case s.events <- fn:
	case <-s.quit:
	}
}

// do runs fn on the loop and waits for it.
func (s *Session) do(fn func()) error {
	done := make(chan struct{})
	select {
	case s.events <- func() { fn(); close(done) }:
	case <-s.quit:
		return ErrSessionClosed
	}
	select {
	case <-done:
		return nil
	case <-s.quit:
		return ErrSessionClosed
	}
}

// Updates delivers the latest view after every change. Views nobody read yet
// are replaced by newer ones.
func (s *Session) Updates() <-chan View { return s.updates }

// Notices delivers transient notifications. They are dropped when nobody reads.
func (s *Session) Notices() <-chan Notice { return s.notices }

func (s *Session) View() View {
	var v View
	if err := s.do(func() { v = s.view(nil) }); err != nil {
		return View{State: Disconnected, Room: s.room}
	}
	return v
}

func (s *Session) State() State {
	return s.View().State
}

// Connect checks the signed-in user and, when a passphrase is known, opens the
// room. Without a passphrase the session waits in NeedsPassphrase.
func (s *Session) Connect(ctx context.Context) error {
	var err error
	if derr := s.do(func() { err = s.connect(ctx) }); derr != nil {
		return derr
	}
	return err
}

// ProvidePassphrase sets the shared passphrase. In an active session the
// current snapshot is decoded again with it.
func (s *Session) ProvidePassphrase(ctx context.Context, passphrase string) error {
	if err := codec.ValidatePassphrase(passphrase); err != nil {
		return errBadPassphrase
	}
	var err error
	if derr := s.do(func() {
		s.passphrase = passphrase
		switch s.state {
		case NeedsPassphrase:
			err = s.activate(ctx)
		case Active:
			s.receipts.Reset()
			s.applyMessages(s.records)
		}
	}); derr != nil {
		return derr
	}
	return err
}

// Logout leaves the room and signs out. Stored messages stay.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.do(func() { s.deactivate(ctx) }); err != nil {
		return err
	}
	if err := s.auth.Logout(ctx); err != nil {
		s.log.Warn().Err(err).Msg("logout failed")
		return err
	}
	return nil
}

// Close leaves the room and stops the session goroutine.
func (s *Session) Close(ctx context.Context) {
	_ = s.do(func() { s.deactivate(ctx) })
	if s.authCancel != nil {
		s.authCancel()
	}
	s.stopOnce.Do(func() { close(s.quit) })
}

// Typing reports local input activity. active=false means the input was
// cleared. While active, the flag expires after the timeout unless renewed.
func (s *Session) Typing(active bool) {
	s.post(func() {
		if s.state != Active {
			return
		}
		if !active {
			s.typer.Stop()
			s.setTyping(false)
			return
		}
		s.typer.Touch()
		if !s.localTyping {
			s.setTyping(true)
		}
	})
}

// Send encodes text with the passphrase and appends it to the room. Nothing is
// shown until the store echoes it back.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperr.InvalidArg("message is empty")
	}
	return s.send(ctx, models.Envelope{Text: text, Type: models.KindText})
}

// SendImage sends an image data URI with an optional caption.
func (s *Session) SendImage(ctx context.Context, imageURL, caption string) error {
	if imageURL == "" {
		return apperr.InvalidArg("image is empty")
	}
	return s.send(ctx, models.Envelope{Text: caption, Type: models.KindImage, ImageURL: imageURL})
}

// SendActivity shares a structured activity.
func (s *Session) SendActivity(ctx context.Context, act models.Activity, caption string) error {
	if act.Type == "" {
		return apperr.InvalidArg("activity type is required")
	}
	return s.send(ctx, models.Envelope{Text: caption, Type: models.KindActivity, Activity: &act})
}

func (s *Session) send(ctx context.Context, env models.Envelope) error {
	var (
		active     bool
		self       Identity
		passphrase string
	)
	if err := s.do(func() {
		active = s.state == Active
		self, passphrase = s.self, s.passphrase
	}); err != nil {
		return err
	}
	if !active {
		return apperr.ErrSessionInactive
	}

	env.Timestamp = s.clock.Now().UnixMilli()
	rec, err := NewRecord(env, self, passphrase, s.codec)
	if err != nil {
		s.log.Error().Err(err).Msg("encode message failed")
		s.notify(NoticeError, apperr.ErrSendFailed)
		return apperr.ErrSendFailed
	}
	v, err := realtime.Encode(rec)
	if err != nil {
		s.notify(NoticeError, apperr.ErrSendFailed)
		return apperr.ErrSendFailed
	}
	if _, err := s.st().Push(ctx, refs.Messages(s.room), v); err != nil {
		s.log.Warn().Err(err).Msg("send failed")
		s.notify(NoticeError, apperr.ErrSendFailed)
		return apperr.ErrSendFailed
	}
	s.Typing(false)
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	if s.state == Active || s.state == NeedsPassphrase {
		return nil
	}
	s.setState(Connecting)
	u := s.auth.CurrentUser()
	if u == nil {
		s.setState(Disconnected)
		return apperr.ErrNotLoggedIn
	}
	s.self = *u
	if s.passphrase == "" {
		s.setState(NeedsPassphrase)
		return nil
	}
	return s.activate(ctx)
}

// activate registers the offline fallback before announcing presence, then
// subscribes to the three room collections.
func (s *Session) activate(ctx context.Context) error {
	s.gen++
	gen := s.gen
	onlinePath := refs.Online(s.room, s.self.ID)
	typingPath := refs.Typing(s.room, s.self.ID)

	if err := s.st().OnDisconnect(ctx, onlinePath, realtime.Value{"isOnline": false}); err != nil {
		return s.fail(err, "register disconnect cleanup failed")
	}
	if err := s.st().OnDisconnect(ctx, typingPath, realtime.Value{"isTyping": false}); err != nil {
		return s.fail(err, "register disconnect cleanup failed")
	}
	if err := s.st().Update(ctx, onlinePath, realtime.Value{
		"isOnline":    true,
		"timestamp":   s.clock.Now().UnixMilli(),
		"displayName": s.self.DisplayName,
	}); err != nil {
		return s.fail(err, "announce presence failed")
	}

	subs := []struct {
		collection string
		apply      func([]realtime.Entry)
	}{
		{refs.Messages(s.room), s.applyMessages},
		{refs.TypingAll(s.room), s.applyTyping},
		{refs.OnlineAll(s.room), s.applyOnline},
	}
	for _, sub := range subs {
		apply := sub.apply
		cancel, err := s.st().Subscribe(ctx, sub.collection, func(es []realtime.Entry) {
			s.post(func() {
				if s.gen == gen {
					apply(es)
				}
			})
		})
		if err != nil {
			return s.fail(err, "subscribe failed")
		}
		s.unsubs = append(s.unsubs, cancel)
	}
	s.watchDrop(gen)
	s.setState(Active)
	s.log.Info().Str("user", s.self.ID).Msg("joined room")
	return nil
}

// watchDrop moves the session to Reconnecting when the store's connection goes
// away under an active generation.
func (s *Session) watchDrop(gen uint64) {
	d, ok := s.st().(Dropper)
	if !ok {
		return
	}
	done := d.Done()
	go func() {
		select {
		case <-done:
			s.post(func() {
				if s.gen == gen && s.state == Active {
					s.lost()
				}
			})
		case <-s.quit:
		}
	}()
}

// lost keeps the decoded messages on screen but stops treating them as live.
func (s *Session) lost() {
	s.log.Warn().Msg("store connection lost")
	s.gen++
	s.cancelSubs()
	s.typer.Stop()
	s.localTyping = false
	s.receipts.Reset()
	s.online = map[string]models.PresenceRecord{}
	s.typing = map[string]models.PresenceRecord{}
	s.setState(Reconnecting)
	s.notify(NoticeError, errConnLost)
}

func dropped(st Store) bool {
	d, ok := st.(Dropper)
	if !ok {
		return false
	}
	select {
	case <-d.Done():
		return true
	default:
		return false
	}
}

func (s *Session) st() Store {
	s.storeMu.RLock()
	defer s.storeMu.RUnlock()
	return s.store
}

// fail drops partial subscriptions and surfaces the reconnecting state.
func (s *Session) fail(err error, msg string) error {
	s.log.Error().Err(err).Msg(msg)
	s.cancelSubs()
	s.setState(Reconnecting)
	s.notify(NoticeError, errConnLost)
	return apperr.ErrStoreFailure(err)
}

func (s *Session) cancelSubs() {
	for _, cancel := range s.unsubs {
		cancel()
	}
	s.unsubs = nil
}

// Reconnect retries activation on the same store after a failure.
func (s *Session) Reconnect(ctx context.Context) error {
	return s.ReconnectWith(ctx, nil)
}

// ReconnectWith retries activation on store, a fresh connection replacing the
// one that dropped. A nil store keeps the current one. It does nothing unless
// the session is Reconnecting or its current store has already dropped.
func (s *Session) ReconnectWith(ctx context.Context, store Store) error {
	var err error
	if derr := s.do(func() {
		if s.state == Active && dropped(s.st()) {
			s.lost()
		}
		if s.state != Reconnecting {
			return
		}
		if store != nil {
			s.storeMu.Lock()
			s.store = store
			s.storeMu.Unlock()
		}
		err = s.activate(ctx)
	}); derr != nil {
		return derr
	}
	return err
}

func (s *Session) deactivate(ctx context.Context) {
	wasLive := s.state == Active || s.state == Reconnecting
	s.gen++
	s.cancelSubs()
	s.typer.Stop()
	if wasLive && s.self.ID != "" {
		if s.localTyping {
			s.write(ctx, refs.Typing(s.room, s.self.ID), realtime.Value{"isTyping": false}, nil)
		}
		onlinePath := refs.Online(s.room, s.self.ID)
		s.write(ctx, onlinePath, realtime.Value{
			"isOnline":  false,
			"timestamp": s.clock.Now().UnixMilli(),
		}, nil)
		s.flush()
		_ = s.st().CancelOnDisconnect(ctx, onlinePath)
		_ = s.st().CancelOnDisconnect(ctx, refs.Typing(s.room, s.self.ID))
		s.log.Info().Str("user", s.self.ID).Msg("left room")
	}
	s.passphrase = ""
	s.records = nil
	s.messages = nil
	s.online = map[string]models.PresenceRecord{}
	s.typing = map[string]models.PresenceRecord{}
	s.receipts.Reset()
	s.localTyping = false
	s.setState(Disconnected)
}

func (s *Session) signedOut() {
	if s.state == Disconnected {
		return
	}
	s.deactivate(context.Background())
	s.notify(NoticeInfo, apperr.ErrNotLoggedIn)
}

func (s *Session) applyMessages(es []realtime.Entry) {
	s.records = es
	mapped := MapEntries(es, s.self.ID, s.passphrase, s.codec)
	var arrived []models.Message
	s.messages, arrived = Merge(s.messages, mapped)

	for _, id := range s.receipts.Pending(s.messages) {
		id := id
		gen := s.gen
		s.write(context.Background(), refs.Message(s.room, id), realtime.Value{"read": true}, func(error) {
			s.post(func() {
				if s.gen == gen {
					s.receipts.Forget(id)
				}
			})
		})
	}
	s.emit(arrived)
}

func (s *Session) applyTyping(es []realtime.Entry) {
	s.typing = PresenceRecords(es)
	s.emit(nil)
}

func (s *Session) applyOnline(es []realtime.Entry) {
	s.online = PresenceRecords(es)
	s.emit(nil)
}

func (s *Session) expireTyping() {
	if s.state != Active || !s.localTyping {
		return
	}
	s.setTyping(false)
}

func (s *Session) setTyping(on bool) {
	if s.localTyping == on {
		return
	}
	s.localTyping = on
	patch := realtime.Value{"isTyping": on}
	if on {
		patch["timestamp"] = s.clock.Now().UnixMilli()
	}
	s.write(context.Background(), refs.Typing(s.room, s.self.ID), patch, nil)
}

// write queues an update for the writer goroutine. Failures are logged and
// shown; they are not retried here.
func (s *Session) write(ctx context.Context, path string, patch realtime.Value, onErr func(error)) {
	s.enqueue(func() {
		if err := s.st().Update(ctx, path, patch); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("write failed")
			s.notify(NoticeError, apperr.New(apperr.CodeUnavailable, apperr.MsgTryAgain))
			if onErr != nil {
				onErr(err)
			}
		}
	})
}

func (s *Session) enqueue(fn func()) {
	select {
	case s.writes <- fn:
	case <-s.quit:
	}
}

// flush waits until every queued write has been attempted.
func (s *Session) flush() {
	done := make(chan struct{})
	s.enqueue(func() { close(done) })
	select {
	case <-done:
	case <-s.quit:
	}
}

func (s *Session) setState(st State) {
	if s.state == st {
		return
	}
	s.log.Debug().Stringer("from", s.state).Stringer("to", st).Msg("session state")
	s.state = st
	s.emit(nil)
}

func (s *Session) view(arrived []models.Message) View {
	msgs := make([]models.Message, len(s.messages))
	copy(msgs, s.messages)
	st := models.PartnerStatus{
		PartnerOnline: ReducePresence(s.online, s.self.ID).PartnerOnline,
		PartnerTyping: ReducePresence(s.typing, s.self.ID).PartnerTyping,
	}
	return View{
		State:    s.state,
		Room:     s.room,
		Self:     s.self,
		Messages: msgs,
		Arrived:  arrived,
		Partner:  st,
	}
}

func (s *Session) emit(arrived []models.Message) {
	v := s.view(arrived)
	for {
		select {
		case s.updates <- v:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Session) notify(level NoticeLevel, err error) {
	select {
	case s.notices <- Notice{Level: level, Message: apperr.Public(err)}:
	default:
	}
}
