package chat

import (
	"context"
	"strconv"
	"sync"

	"github.com/pelusa-v/bearboo-letters/internal/realtime"
)

// Store is the realtime store as the session sees it. Implementations deliver
// full snapshots per collection, in write order for a given collection.
type Store interface {
	Subscribe(ctx context.Context, collection string, fn realtime.SnapshotFunc) (func(), error)
	Update(ctx context.Context, path string, patch realtime.Value) error
	Push(ctx context.Context, collection string, v realtime.Value) (string, error)
	// OnDisconnect registers a patch the store applies if this client goes away
	// without cleaning up.
	OnDisconnect(ctx context.Context, path string, patch realtime.Value) error
	CancelOnDisconnect(ctx context.Context, path string) error
}

// Dropper is implemented by stores whose connection can go away on its own.
// Done is closed when it does.
type Dropper interface {
	Done() <-chan struct{}
}

type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Auth is the account collaborator. Errors it returns are already categorized
// (see apperr) and safe to show.
type Auth interface {
	CurrentUser() *Identity
	OnAuthChange(fn func(*Identity)) (cancel func())
	Login(ctx context.Context, email, password string) (*Identity, error)
	Register(ctx context.Context, email, password, displayName string) (*Identity, error)
	Logout(ctx context.Context) error
}

// LocalStore adapts an in-process realtime connection.
type LocalStore struct {
	conn *realtime.Conn

	mu   sync.Mutex
	next int

	done     chan struct{}
	doneOnce sync.Once
}

func NewLocalStore(conn *realtime.Conn) *LocalStore {
	return &LocalStore{conn: conn, done: make(chan struct{})}
}

// Done is closed once Close has run.
func (l *LocalStore) Done() <-chan struct{} { return l.done }

func (l *LocalStore) Subscribe(ctx context.Context, collection string, fn realtime.SnapshotFunc) (func(), error) {
	l.mu.Lock()
	l.next++
	ref := collection + "#" + strconv.Itoa(l.next)
	l.mu.Unlock()
	if err := l.conn.Subscribe(ctx, ref, collection, fn); err != nil {
		return nil, err
	}
	return func() { l.conn.Unsubscribe(ref) }, nil
}

func (l *LocalStore) Update(ctx context.Context, path string, patch realtime.Value) error {
	return l.conn.Store().Update(ctx, path, patch)
}

func (l *LocalStore) Push(ctx context.Context, collection string, v realtime.Value) (string, error) {
	return l.conn.Store().Push(ctx, collection, v)
}

func (l *LocalStore) OnDisconnect(_ context.Context, path string, patch realtime.Value) error {
	return l.conn.OnDisconnect(path, patch)
}

func (l *LocalStore) CancelOnDisconnect(_ context.Context, path string) error {
	l.conn.CancelOnDisconnect(path)
	return nil
}

// Close drops the connection, running its disconnect writes.
func (l *LocalStore) Close(ctx context.Context) {
	l.conn.Close(ctx)
	l.doneOnce.Do(func() { close(l.done) })
}

// StaticAuth is a fixed identity for passphrase-only rooms, where the display
// name doubles as the sender id.
type StaticAuth struct {
	mu        sync.Mutex
	user      *Identity
	listeners map[int]func(*Identity)
	next      int
}

func NewStaticAuth(id Identity) *StaticAuth {
	return &StaticAuth{user: &id, listeners: map[int]func(*Identity){}}
}

func (a *StaticAuth) CurrentUser() *Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

func (a *StaticAuth) OnAuthChange(fn func(*Identity)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	id := a.next
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

func (a *StaticAuth) Login(_ context.Context, email, _ string) (*Identity, error) {
	return a.set(&Identity{ID: email, DisplayName: email}), nil
}

func (a *StaticAuth) Register(_ context.Context, email, _, displayName string) (*Identity, error) {
	return a.set(&Identity{ID: email, DisplayName: displayName}), nil
}

func (a *StaticAuth) Logout(context.Context) error {
	a.set(nil)
	return nil
}

func (a *StaticAuth) set(u *Identity) *Identity {
	a.mu.Lock()
	a.user = u
	fns := make([]func(*Identity), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
	return u
}
