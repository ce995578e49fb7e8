package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"neodukaan-backend/internal/models"
	"neodukaan-backend/internal/store"
)

// tx buffers reads and writes of one transaction. It is used by one goroutine.
type tx struct {
	s      *Store
	shopID string

	items        map[string]*models.Item // working copies
	itemReads    map[string]int64        // version seen at first read
	newItems     map[string]bool
	dirtyItems   map[string]bool
	deletedItems map[string]bool

	customers        map[string]*models.Customer // working copies with ledger
	customerReads    map[string]int64
	newCustomers     []string
	touchedCustomers map[string]bool

	sales []*models.Sale
}

func newTx(s *Store, shopID string) *tx {
	return &tx{
		s:                s,
		shopID:           shopID,
		items:            make(map[string]*models.Item),
		itemReads:        make(map[string]int64),
		newItems:         make(map[string]bool),
		dirtyItems:       make(map[string]bool),
		deletedItems:     make(map[string]bool),
		customers:        make(map[string]*models.Customer),
		customerReads:    make(map[string]int64),
		touchedCustomers: make(map[string]bool),
	}
}

func (t *tx) ShopID() string                    { return t.shopID }
func (t *tx) Items() store.ItemAccessor         { return (*itemAccessor)(t) }
func (t *tx) Customers() store.CustomerAccessor { return (*customerAccessor)(t) }
func (t *tx) Ledger() store.LedgerAccessor      { return (*ledgerAccessor)(t) }
func (t *tx) Sales() store.SaleAccessor         { return (*saleAccessor)(t) }

func (t *tx) wrote() bool {
	return len(t.newItems) > 0 || len(t.dirtyItems) > 0 || len(t.deletedItems) > 0 ||
		len(t.newCustomers) > 0 || len(t.touchedCustomers) > 0 || len(t.sales) > 0
}

func (t *tx) isNewCustomer(id string) bool {
	for _, n := range t.newCustomers {
		if n == id {
			return true
		}
	}
	return false
}

// loadItem returns the working copy of an item, reading it on first use.
func (t *tx) loadItem(itemID string) (*models.Item, error) {
	if t.deletedItems[itemID] {
		return nil, store.ErrItemNotFound
	}
	if item, ok := t.items[itemID]; ok {
		return item, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	d := t.s.peek(t.shopID)
	if d == nil {
		return nil, store.ErrItemNotFound
	}
	rec, ok := d.items[itemID]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	item := rec.item.Clone()
	t.items[itemID] = item
	t.itemReads[itemID] = rec.version
	return item, nil
}

func (t *tx) loadCustomer(customerID string) (*models.Customer, error) {
	if c, ok := t.customers[customerID]; ok {
		return c, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	d := t.s.peek(t.shopID)
	if d == nil {
		return nil, store.ErrCustomerNotFound
	}
	rec, ok := d.customers[customerID]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	c := rec.customer.Clone()
	t.customers[customerID] = c
	t.customerReads[customerID] = rec.version
	return c, nil
}

type itemAccessor tx

func (a *itemAccessor) tx() *tx { return (*tx)(a) }

func (a *itemAccessor) Create(ctx context.Context, item *models.Item) error {
	t := a.tx()
	if _, ok := t.items[item.ID]; ok {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	now := t.s.now()
	item.ShopID = t.shopID
	item.CreatedAt = now
	item.UpdatedAt = now
	for i := range item.Batches {
		item.Batches[i].ItemID = item.ID
		if item.Batches[i].AddedAt.IsZero() {
			item.Batches[i].AddedAt = now
		}
	}
	t.items[item.ID] = item.Clone()
	t.newItems[item.ID] = true
	t.dirtyItems[item.ID] = true
	return nil
}

func (a *itemAccessor) Get(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := a.tx().loadItem(itemID)
	if err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

func (a *itemAccessor) GetForUpdate(ctx context.Context, itemID string) (*models.Item, error) {
	return a.Get(ctx, itemID)
}

func (a *itemAccessor) List(ctx context.Context) ([]*models.Item, error) {
	t := a.tx()

	t.s.mu.RLock()
	var ids []string
	if d := t.s.peek(t.shopID); d != nil {
		for id := range d.items {
			ids = append(ids, id)
		}
	}
	t.s.mu.RUnlock()
	for id := range t.newItems {
		ids = append(ids, id)
	}

	items := make([]*models.Item, 0, len(ids))
	for _, id := range ids {
		item, err := t.loadItem(id)
		if err == store.ErrItemNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, item.Clone())
	}
	sortItems(items)
	return items, nil
}

func (a *itemAccessor) Update(ctx context.Context, item *models.Item) error {
	t := a.tx()
	w, err := t.loadItem(item.ID)
	if err != nil {
		return err
	}
	w.Name = item.Name
	w.Category = item.Category
	w.Unit = item.Unit
	w.AlertQuantity = item.AlertQuantity
	w.UpdatedAt = t.s.now()
	item.UpdatedAt = w.UpdatedAt
	t.dirtyItems[item.ID] = true
	return nil
}

func (a *itemAccessor) Delete(ctx context.Context, itemID string) error {
	t := a.tx()
	if _, err := t.loadItem(itemID); err != nil {
		return err
	}
	delete(t.items, itemID)
	delete(t.dirtyItems, itemID)
	if t.newItems[itemID] {
		delete(t.newItems, itemID)
		return nil
	}
	t.deletedItems[itemID] = true
	return nil
}

func (a *itemAccessor) AddBatch(ctx context.Context, itemID string, batch *models.Batch) error {
	t := a.tx()
	w, err := t.loadItem(itemID)
	if err != nil {
		return err
	}
	batch.ItemID = itemID
	if batch.AddedAt.IsZero() {
		batch.AddedAt = t.s.now()
	}
	w.Batches = append(w.Batches, *batch)
	w.UpdatedAt = t.s.now()
	t.dirtyItems[itemID] = true
	return nil
}

func (a *itemAccessor) FindBatch(ctx context.Context, itemID, batchID string) (*models.Batch, error) {
	w, err := a.tx().loadItem(itemID)
	if err != nil {
		return nil, err
	}
	b := w.Batch(batchID)
	if b == nil {
		return nil, store.ErrBatchNotFound
	}
	cp := *b
	if b.ExpiryDate != nil {
		exp := *b.ExpiryDate
		cp.ExpiryDate = &exp
	}
	return &cp, nil
}

func (a *itemAccessor) DecrementBatch(ctx context.Context, itemID, batchID string, amount int) error {
	t := a.tx()
	w, err := t.loadItem(itemID)
	if err != nil {
		return err
	}
	b := w.Batch(batchID)
	if b == nil {
		return store.ErrBatchNotFound
	}
	if amount <= 0 || b.Quantity < amount {
		return store.ErrStaleWrite
	}
	b.Quantity -= amount
	w.UpdatedAt = t.s.now()
	t.dirtyItems[itemID] = true
	return nil
}

type customerAccessor tx

func (a *customerAccessor) tx() *tx { return (*tx)(a) }

func view(c *models.Customer) *models.Customer {
	cp := c.Clone()
	cp.TotalUdhaar = models.FoldBalance(c.Ledger)
	cp.Ledger = nil
	return cp
}

func (a *customerAccessor) Create(ctx context.Context, c *models.Customer) error {
	t := a.tx()
	if _, err := a.GetByPhone(ctx, c.Phone); err == nil {
		return store.ErrDuplicatePhone
	}
	now := t.s.now()
	c.ShopID = t.shopID
	c.CreatedAt = now
	c.UpdatedAt = now
	c.TotalUdhaar = 0
	w := c.Clone()
	w.Ledger = nil
	t.customers[c.ID] = w
	t.newCustomers = append(t.newCustomers, c.ID)
	return nil
}

func (a *customerAccessor) Get(ctx context.Context, customerID string) (*models.Customer, error) {
	c, err := a.tx().loadCustomer(customerID)
	if err != nil {
		return nil, err
	}
	return view(c), nil
}

func (a *customerAccessor) GetByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	t := a.tx()
	for _, id := range t.newCustomers {
		if t.customers[id].Phone == phone {
			return view(t.customers[id]), nil
		}
	}

	t.s.mu.RLock()
	var id string
	if d := t.s.peek(t.shopID); d != nil {
		id = d.phones[phone]
	}
	t.s.mu.RUnlock()

	if id == "" {
		return nil, store.ErrCustomerNotFound
	}
	return a.Get(ctx, id)
}

func (a *customerAccessor) List(ctx context.Context) ([]*models.Customer, error) {
	t := a.tx()

	t.s.mu.RLock()
	var ids []string
	if d := t.s.peek(t.shopID); d != nil {
		for id := range d.customers {
			ids = append(ids, id)
		}
	}
	t.s.mu.RUnlock()
	ids = append(ids, t.newCustomers...)

	customers := make([]*models.Customer, 0, len(ids))
	for _, id := range ids {
		c, err := t.loadCustomer(id)
		if err != nil {
			return nil, err
		}
		customers = append(customers, view(c))
	}
	sortCustomers(customers)
	return customers, nil
}

type ledgerAccessor tx

func (a *ledgerAccessor) tx() *tx { return (*tx)(a) }

func (a *ledgerAccessor) append(customerID string, entryType models.LedgerEntryType, amount models.Money, description, referenceID string) (*models.LedgerEntry, error) {
	t := a.tx()
	c, err := t.loadCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if err := store.CheckAppend(models.FoldBalance(c.Ledger), entryType, amount); err != nil {
		return nil, err
	}
	entry := models.LedgerEntry{
		ID:          uuid.New().String(),
		CustomerID:  customerID,
		EntryType:   entryType,
		Amount:      amount,
		Description: description,
		ReferenceID: referenceID,
		CreatedAt:   t.s.now(),
	}
	c.Ledger = append(c.Ledger, entry)
	c.UpdatedAt = entry.CreatedAt
	t.touchedCustomers[customerID] = true
	return &entry, nil
}

func (a *ledgerAccessor) AppendDebit(ctx context.Context, customerID string, amount models.Money, description, referenceID string) (*models.LedgerEntry, error) {
	return a.append(customerID, models.LedgerEntryTypeDebit, amount, description, referenceID)
}

func (a *ledgerAccessor) AppendCredit(ctx context.Context, customerID string, amount models.Money, description string) (*models.LedgerEntry, error) {
	return a.append(customerID, models.LedgerEntryTypeCredit, amount, description, "")
}

func (a *ledgerAccessor) CurrentBalance(ctx context.Context, customerID string) (models.Money, error) {
	c, err := a.tx().loadCustomer(customerID)
	if err != nil {
		return 0, err
	}
	return models.FoldBalance(c.Ledger), nil
}

func (a *ledgerAccessor) Entries(ctx context.Context, customerID string) ([]models.LedgerEntry, error) {
	c, err := a.tx().loadCustomer(customerID)
	if err != nil {
		return nil, err
	}
	return append([]models.LedgerEntry(nil), c.Ledger...), nil
}

type saleAccessor tx

func (a *saleAccessor) tx() *tx { return (*tx)(a) }

func (a *saleAccessor) Create(ctx context.Context, sale *models.Sale) error {
	t := a.tx()
	if sale.IdempotencyKey != "" {
		if _, err := a.FindByIdempotencyKey(ctx, sale.IdempotencyKey); err == nil {
			return store.ErrStaleWrite
		}
	}
	sale.ShopID = t.shopID
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = t.s.now()
	}
	t.sales = append(t.sales, sale.Clone())
	return nil
}

func (a *saleAccessor) Get(ctx context.Context, saleID string) (*models.Sale, error) {
	t := a.tx()
	for _, s := range t.sales {
		if s.ID == saleID {
			return s.Clone(), nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if d := t.s.peek(t.shopID); d != nil {
		if s, ok := d.sales[saleID]; ok {
			return s.Clone(), nil
		}
	}
	return nil, store.ErrSaleNotFound
}

func (a *saleAccessor) FindByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	t := a.tx()
	for _, s := range t.sales {
		if s.IdempotencyKey == key {
			return s.Clone(), nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if d := t.s.peek(t.shopID); d != nil {
		if id, ok := d.idempotency[key]; ok {
			return d.sales[id].Clone(), nil
		}
	}
	return nil, store.ErrSaleNotFound
}

func (a *saleAccessor) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Sale, error) {
	t := a.tx()
	in := func(s *models.Sale) bool {
		return !s.CreatedAt.Before(from) && s.CreatedAt.Before(to)
	}

	var sales []*models.Sale
	t.s.mu.RLock()
	if d := t.s.peek(t.shopID); d != nil {
		for _, s := range d.sales {
			if in(s) {
				sales = append(sales, s.Clone())
			}
		}
	}
	t.s.mu.RUnlock()
	for _, s := range t.sales {
		if in(s) {
			sales = append(sales, s.Clone())
		}
	}

	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].CreatedAt.Equal(sales[j].CreatedAt) {
			return sales[i].CreatedAt.Before(sales[j].CreatedAt)
		}
		return sales[i].InvoiceNumber < sales[j].InvoiceNumber
	})
	return sales, nil
}

// NextInvoiceNumber draws from a per-shop sequence. Like a database sequence
// it is not rolled back, so aborted checkouts leave gaps.
func (a *saleAccessor) NextInvoiceNumber(ctx context.Context) (string, error) {
	t := a.tx()
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	d := t.s.shop(t.shopID)
	d.invoiceSeq++
	return fmt.Sprintf("INV-%06d", d.invoiceSeq), nil
}
