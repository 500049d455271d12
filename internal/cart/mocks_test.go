package cart

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medhelper/labcart/internal/cache"
	"github.com/medhelper/labcart/internal/domain"
	"github.com/medhelper/labcart/internal/repository"
)

// memRepository mimics the upsert and ownership rules of the Postgres store.
type memRepository struct {
	m      sync.Mutex
	carts  map[int64]*domain.Cart // by user
	lines  []domain.CartLine
	nextID int64
	err    error
	// afterList runs once ListLines has read its snapshot
	afterList func()
}

func newMemRepository() *memRepository {
	return &memRepository{carts: make(map[int64]*domain.Cart)}
}

func (r *memRepository) GetOrCreateCart(_ context.Context, userID int64) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	c, ok := r.carts[userID]
	if !ok {
		r.nextID++
		c = &domain.Cart{ID: r.nextID, UserID: userID, CreatedAt: time.Now()}
		r.carts[userID] = c
	}
	cp := *c
	return &cp, nil
}

func (r *memRepository) ListLines(_ context.Context, cartID int64) ([]domain.CartLine, error) {
	r.m.Lock()
	out := make([]domain.CartLine, 0)
	for _, l := range r.lines {
		if l.CartID == cartID {
			out = append(out, l)
		}
	}
	hook := r.afterList
	r.afterList = nil
	r.m.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (r *memRepository) UpsertLine(_ context.Context, cartID int64, add domain.LineAddition) (*domain.CartLine, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.lines {
		l := &r.lines[i]
		if l.CartID == cartID && l.AnalysisID == add.AnalysisID {
			l.Quantity += add.Quantity
			if add.ScheduledDate != nil {
				l.ScheduledDate = add.ScheduledDate
			}
			if add.ScheduledTime != nil {
				l.ScheduledTime = add.ScheduledTime
			}
			cp := *l
			return &cp, nil
		}
	}
	r.nextID++
	l := domain.CartLine{
		ID:            r.nextID,
		CartID:        cartID,
		AnalysisID:    add.AnalysisID,
		Quantity:      add.Quantity,
		ScheduledDate: add.ScheduledDate,
		ScheduledTime: add.ScheduledTime,
	}
	r.lines = append(r.lines, l)
	return &l, nil
}

func (r *memRepository) owner(cartID int64) int64 {
	for uid, c := range r.carts {
		if c.ID == cartID {
			return uid
		}
	}
	return 0
}

func (r *memRepository) FindLineForUser(_ context.Context, lineID, userID int64) (*domain.CartLine, error) {
	r.m.Lock()
	defer r.m.Unlock()
	for _, l := range r.lines {
		if l.ID == lineID && r.owner(l.CartID) == userID {
			cp := l
			return &cp, nil
		}
	}
	return nil, repository.ErrLineNotFound
}

func (r *memRepository) UpdateLineForUser(_ context.Context, userID int64, line *domain.CartLine) error {
	r.m.Lock()
	defer r.m.Unlock()
	for i, l := range r.lines {
		if l.ID == line.ID && r.owner(l.CartID) == userID {
			r.lines[i].Quantity = line.Quantity
			r.lines[i].ScheduledDate = line.ScheduledDate
			r.lines[i].ScheduledTime = line.ScheduledTime
			return nil
		}
	}
	return repository.ErrLineNotFound
}

func (r *memRepository) DeleteLineForUser(_ context.Context, lineID, userID int64) error {
	r.m.Lock()
	defer r.m.Unlock()
	for i, l := range r.lines {
		if l.ID == lineID && r.owner(l.CartID) == userID {
			r.lines = append(r.lines[:i], r.lines[i+1:]...)
			return nil
		}
	}
	return repository.ErrLineNotFound
}

type fakeCatalog struct {
	analyses map[int64]*domain.Analysis
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{analyses: map[int64]*domain.Analysis{
		1: {ID: 1, Title: "Complete blood count", Price: decimal.RequireFromString("3500.00"), Lab: &domain.Lab{ID: 1, Name: "Invivo"}},
		2: {ID: 2, Title: "Vitamin D (25-OH)", Price: decimal.RequireFromString("9800.50")},
	}}
}

func (c *fakeCatalog) GetAnalysis(_ context.Context, id int64) (*domain.Analysis, error) {
	a, ok := c.analyses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a, nil
}

func (c *fakeCatalog) GetAnalyses(ctx context.Context, ids []int64) (map[int64]*domain.Analysis, error) {
	out := make(map[int64]*domain.Analysis, len(ids))
	for _, id := range ids {
		a, err := c.GetAnalysis(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

type mockCache struct {
	m             sync.Mutex
	carts         map[int64]*domain.Cart
	versions      map[int64]int64
	invalidations int
	getErr        error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[int64]*domain.Cart), versions: make(map[int64]int64)}
}

func (c *mockCache) Get(_ context.Context, userID int64) (*domain.Cart, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	cart, ok := c.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (c *mockCache) Version(_ context.Context, userID int64) (int64, error) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.versions[userID], nil
}

func (c *mockCache) StoreIfCurrent(_ context.Context, userID, version int64, cart *domain.Cart) (bool, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.versions[userID] != version {
		return false, nil
	}
	c.carts[userID] = cart
	return true, nil
}

func (c *mockCache) Invalidate(_ context.Context, userID int64) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.carts, userID)
	c.versions[userID]++
	c.invalidations++
	return nil
}
