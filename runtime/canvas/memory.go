package canvas

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Item
	order []string
	added int64

	subMu sync.Mutex
	subs  map[chan Update]struct{}

	now func() time.Time
}

// NewMemoryStore creates an empty canvas.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*Item),
		subs:  make(map[chan Update]struct{}),
		now:   time.Now,
	}
}

// AddPending implements Store.
func (s *MemoryStore) AddPending(_ context.Context, prompt string) (*Item, error) {
	s.mu.Lock()
	item := newPendingItem(uuid.NewString(), prompt, s.added, s.now())
	s.added++
	s.items[item.ID] = &item
	s.order = append(s.order, item.ID)
	s.mu.Unlock()

	s.publish(Update{Kind: UpdateAdded, Item: item})
	out := item
	return &out, nil
}

// Finalize implements Store.
func (s *MemoryStore) Finalize(_ context.Context, id, url string) error {
	if id == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	item.URL = url
	item.Pending = false
	snapshot := *item
	s.mu.Unlock()

	s.publish(Update{Kind: UpdateFinalized, Item: snapshot})
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Item, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *item
	return &out, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out, nil
}

// Subscribe implements Store.
func (s *MemoryStore) Subscribe(ctx context.Context) (<-chan Update, error) {
	ch := make(chan Update, subscriberBuffer)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	context.AfterFunc(ctx, func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.subMu.Unlock()
	})
	return ch, nil
}

func (s *MemoryStore) publish(u Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
