package realtime

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

// PebbleBackend keeps records in an embedded Pebble database keyed by path.
type PebbleBackend struct {
	db *pebble.DB
}

func OpenPebbleBackend(dir string) (*PebbleBackend, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleBackend{db: db}, nil
}

func (p *PebbleBackend) Get(_ context.Context, path string) (Value, bool, error) {
	b, closer, err := p.db.Get([]byte(path))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	v, err := decode(b)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (p *PebbleBackend) Put(_ context.Context, path string, v Value) error {
	b, err := jsonBytes(v)
	if err != nil {
		return err
	}
	return p.db.Set([]byte(path), b, pebble.Sync)
}

func (p *PebbleBackend) Delete(_ context.Context, path string) error {
	return p.db.Delete([]byte(path), pebble.Sync)
}

func (p *PebbleBackend) List(_ context.Context, collection string) ([]Entry, error) {
	prefix := []byte(collection + "/")
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]Entry, 0)
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		key := string(iter.Key()[len(prefix):])
		// only direct children
		if strings.Contains(key, "/") {
			continue
		}
		v, err := decode(iter.Value())
		if err != nil {
			continue
		}
		out = append(out, Entry{Key: key, Value: v})
	}
	sortEntries(out)
	return out, iter.Error()
}

func (p *PebbleBackend) Collections(_ context.Context, suffix string) ([]string, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	seen := map[string]bool{}
	for iter.First(); iter.Valid(); iter.Next() {
		c, _ := refs.Split(string(iter.Key()))
		if strings.HasSuffix(c, suffix) {
			seen[c] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, iter.Error()
}

func (p *PebbleBackend) Ping(context.Context) error {
	if p.db == nil {
		return errors.New("pebble: closed")
	}
	return nil
}

func (p *PebbleBackend) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
