// Package memstore is an in-process store backend. Transactions work on
// private copies and validate the versions they read when they commit, so
// two checkouts racing for the same batch cannot both succeed.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

type itemRecord struct {
	item    *models.Item
	version int64
}

type customerRecord struct {
	customer *models.Customer // includes the committed ledger
	version  int64
}

type shopData struct {
	items       map[string]*itemRecord
	customers   map[string]*customerRecord
	phones      map[string]string // normalized phone -> customer id
	sales       map[string]*models.Sale
	idempotency map[string]string // idempotency key -> sale id
	invoiceSeq  int64
}

func newShopData() *shopData {
	return &shopData{
		items:       make(map[string]*itemRecord),
		customers:   make(map[string]*customerRecord),
		phones:      make(map[string]string),
		sales:       make(map[string]*models.Sale),
		idempotency: make(map[string]string),
	}
}

// Store keeps every shop's data in memory. Transactions of one shop run one
// at a time; different shops proceed in parallel.
type Store struct {
	mu     sync.RWMutex
	shops  map[string]*models.Shop
	emails map[string]string
	data   map[string]*shopData
	now    func() time.Time

	gatesMu sync.Mutex
	gates   map[string]chan struct{}
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		shops:  make(map[string]*models.Shop),
		emails: make(map[string]string),
		data:   make(map[string]*shopData),
		now:    time.Now,
		gates:  make(map[string]chan struct{}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Shops() store.ShopRepository {
	return &shopRepository{s: s}
}

// WithTransaction runs fn against private copies and publishes them only if
// fn succeeds. It holds the shop's gate for the whole call, so a transaction
// never sees another one of the same shop commit underneath it. Nesting a
// transaction of the same shop inside fn deadlocks.
func (s *Store) WithTransaction(ctx context.Context, shopID string, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	gate := s.gate(shopID)
	select {
	case gate <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", store.ErrPersistence, ctx.Err())
	}
	defer func() { <-gate }()

	t := newTx(s, shopID)
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	return s.commit(t)
}

// gate returns the shop's transaction semaphore.
func (s *Store) gate(shopID string) chan struct{} {
	s.gatesMu.Lock()
	defer s.gatesMu.Unlock()
	g, ok := s.gates[shopID]
	if !ok {
		g = make(chan struct{}, 1)
		s.gates[shopID] = g
	}
	return g
}

// shop returns the data of a shop, creating it on first use. Callers hold s.mu.
func (s *Store) shop(shopID string) *shopData {
	d, ok := s.data[shopID]
	if !ok {
		d = newShopData()
		s.data[shopID] = d
	}
	return d
}

// peek returns shop data without creating it. Callers hold s.mu for reading.
func (s *Store) peek(shopID string) *shopData {
	if d, ok := s.data[shopID]; ok {
		return d
	}
	return nil
}

// commit validates the versions t read and publishes its writes. The gate
// already excludes other transactions of the shop; validation still guards
// writers that bypass it. A transaction that wrote nothing has nothing to
// publish and cannot be stale.
func (s *Store) commit(t *tx) error {
	if !t.wrote() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.shop(t.shopID)

	// Validate everything before touching anything.
	for id, seen := range t.itemReads {
		var current int64
		if rec, ok := d.items[id]; ok {
			current = rec.version
		}
		if current != seen {
			return store.ErrStaleWrite
		}
	}
	for id := range t.newItems {
		if _, ok := d.items[id]; ok {
			return store.ErrStaleWrite
		}
	}
	for id, seen := range t.customerReads {
		var current int64
		if rec, ok := d.customers[id]; ok {
			current = rec.version
		}
		if current != seen {
			return store.ErrStaleWrite
		}
	}
	for _, id := range t.newCustomers {
		c := t.customers[id]
		if _, ok := d.customers[id]; ok {
			return store.ErrStaleWrite
		}
		if _, ok := d.phones[c.Phone]; ok {
			return store.ErrStaleWrite
		}
	}
	for _, sale := range t.sales {
		if _, ok := d.sales[sale.ID]; ok {
			return store.ErrStaleWrite
		}
		if sale.IdempotencyKey != "" {
			if _, ok := d.idempotency[sale.IdempotencyKey]; ok {
				return store.ErrStaleWrite
			}
		}
	}

	for id := range t.deletedItems {
		delete(d.items, id)
	}
	for id := range t.dirtyItems {
		if t.deletedItems[id] {
			continue
		}
		item := t.items[id].Clone()
		if rec, ok := d.items[id]; ok {
			rec.item = item
			rec.version++
		} else {
			d.items[id] = &itemRecord{item: item, version: 1}
		}
	}
	for _, id := range t.newCustomers {
		c := t.customers[id].Clone()
		d.customers[id] = &customerRecord{customer: c, version: 1}
		d.phones[c.Phone] = id
	}
	for id := range t.touchedCustomers {
		if rec, ok := d.customers[id]; ok && !t.isNewCustomer(id) {
			rec.customer = t.customers[id].Clone()
			rec.version++
		}
	}
	for _, sale := range t.sales {
		d.sales[sale.ID] = sale.Clone()
		if sale.IdempotencyKey != "" {
			d.idempotency[sale.IdempotencyKey] = sale.ID
		}
	}
	return nil
}

type shopRepository struct {
	s *Store
}

func (r *shopRepository) Create(ctx context.Context, shop *models.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(shop.Email)
	if _, ok := r.s.emails[email]; ok {
		return store.ErrDuplicateEmail
	}
	now := r.s.now()
	shop.CreatedAt = now
	shop.UpdatedAt = now
	cp := *shop
	r.s.shops[shop.ID] = &cp
	r.s.emails[email] = shop.ID
	return nil
}

func (r *shopRepository) Get(ctx context.Context, id string) (*models.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shop, ok := r.s.shops[id]
	if !ok {
		return nil, store.ErrShopNotFound
	}
	cp := *shop
	return &cp, nil
}

func (r *shopRepository) GetByEmail(ctx context.Context, email string) (*models.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrShopNotFound
	}
	cp := *r.s.shops[id]
	return &cp, nil
}

func sortItems(items []*models.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].ID < items[j].ID
	})
}

func sortCustomers(customers []*models.Customer) {
	sort.Slice(customers, func(i, j int) bool {
		if customers[i].Name != customers[j].Name {
			return customers[i].Name < customers[j].Name
		}
		return customers[i].ID < customers[j].ID
	})
}
