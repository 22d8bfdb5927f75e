package realtime

import "sync"

// SnapshotFunc receives the full, key-sorted contents of a collection.
type SnapshotFunc func(entries []Entry)

type subscription struct {
	id         uint64
	collection string
	fn         SnapshotFunc

	mailbox chan []Entry // holds at most the latest undelivered snapshot
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// offer replaces any snapshot the subscriber has not consumed yet. Snapshots are
// full listings, so dropping an older one loses nothing.
func (s *subscription) offer(entries []Entry) {
	for {
		select {
		case s.mailbox <- entries:
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
		case entries := <-s.mailbox:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(cloneEntries(entries))
		}
	}
}

func cloneEntries(es []Entry) []Entry {
	out := make([]Entry, len(es))
	for i, e := range es {
		out[i] = Entry{Key: e.Key, Value: clone(e.Value)}
	}
	return out
}

type registration struct {
	sub     *subscription
	initial []Entry
}

type event struct {
	collection string
	entries    []Entry
}

// Hub owns the subscription table. All mutations go through its channels and are
// applied by the Start loop, so snapshots for one collection reach subscribers in
// write order.
type Hub struct {
	subs map[string]map[uint64]*subscription

	RegisterChan   chan *registration
	UnregisterChan chan *subscription
	PublishChan    chan *event
	quit           chan struct{}
	stopped        chan struct{}
	stopOnce       sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:           map[string]map[uint64]*subscription{},
		RegisterChan:   make(chan *registration),
		UnregisterChan: make(chan *subscription),
		PublishChan:    make(chan *event),
		quit:           make(chan struct{}),
		stopped:        make(chan struct{}),
	}
}

func (h *Hub) Start() {
	defer close(h.stopped)
	for {
		select {
		case r := <-h.RegisterChan:
			if _, ok := h.subs[r.sub.collection]; !ok {
				h.subs[r.sub.collection] = map[uint64]*subscription{}
			}
			h.subs[r.sub.collection][r.sub.id] = r.sub
			go r.sub.run()
			r.sub.offer(r.initial)

		case s := <-h.UnregisterChan:
			if set, ok := h.subs[s.collection]; ok {
				delete(set, s.id)
				if len(set) == 0 {
					delete(h.subs, s.collection)
				}
			}
			s.stop()

		case ev := <-h.PublishChan:
			for _, s := range h.subs[ev.collection] {
				s.offer(ev.entries)
			}

		case <-h.quit:
			for _, set := range h.subs {
				for _, s := range set {
					s.stop()
				}
			}
			h.subs = map[string]map[uint64]*subscription{}
			return
		}
	}
}

// Stop ends the loop and stops every subscriber.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.stopped
}

func (h *Hub) register(r *registration) bool {
	select {
	case h.RegisterChan <- r:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) unregister(s *subscription) {
	select {
	case h.UnregisterChan <- s:
	case <-h.quit:
		s.stop()
	}
}

func (h *Hub) publish(ev *event) {
	select {
	case h.PublishChan <- ev:
	case <-h.quit:
	}
}
