package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// MemoryStore is the combined in-memory store: products, orders, payments, users.
type MemoryStore struct {
	mu             sync.RWMutex
	productsByID   map[string]domain.Product
	ordersByID     map[string]domain.Order
	paymentsByID   map[string]domain.Payment
	paymentByOrder map[string]string
	usersByEmail   map[string]domain.User
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	m.reset()
	return m
}

func (m *MemoryStore) reset() {
	m.productsByID = make(map[string]domain.Product)
	m.ordersByID = make(map[string]domain.Order)
	m.paymentsByID = make(map[string]domain.Payment)
	m.paymentByOrder = make(map[string]string)
	m.usersByEmail = make(map[string]domain.User)
}

// Close drops every collection. Later lookups report ErrNotFound.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var (
	_ Store             = (*MemoryStore)(nil)
	_ ProductRepository = (*MemoryStore)(nil)
	_ StockLedger       = (*MemoryStore)(nil)
)

func (m *MemoryStore) Products() ProductRepository { return m }
func (m *MemoryStore) Stock() StockLedger          { return m }
func (m *MemoryStore) Orders() OrderRepository     { return NewMemoryOrders(m) }
func (m *MemoryStore) Payments() PaymentRepository { return NewMemoryPayments(m) }
func (m *MemoryStore) Users() UserRepository       { return NewMemoryUsers(m) }
func (m *MemoryStore) Tx() TxManager               { return NewMemoryTx(m) }

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Patch(ctx context.Context, id string, fn func(p *domain.Product) error) (*domain.Product, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	p.ID = id
	m.productsByID[id] = p
	cp := p
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0, len(m.productsByID))
	for _, p := range m.productsByID {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// StockLedger implementation
func (m *MemoryStore) DecreaseStock(ctx context.Context, productID string, qty int64) (bool, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	m.productsByID[productID] = p
	return true, nil
}

func (m *MemoryStore) IncreaseStock(ctx context.Context, productID string, qty int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[productID]
	if !ok {
		return ErrNotFound
	}
	p.Stock += qty
	m.productsByID[productID] = p
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

// PaymentRepository implementation; the index is written on every Add, so a
// FAILED payment occupies the order's slot just like a CAPTURED one.
type MemoryPayments struct{ store *MemoryStore }

func NewMemoryPayments(store *MemoryStore) *MemoryPayments { return &MemoryPayments{store: store} }

var _ PaymentRepository = (*MemoryPayments)(nil)

func (mp *MemoryPayments) Add(ctx context.Context, p *domain.Payment) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	mp.store.paymentsByID[p.ID] = *p
	mp.store.paymentByOrder[p.OrderID] = p.ID
	return nil
}

func (mp *MemoryPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	p, ok := mp.store.paymentsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (mp *MemoryPayments) GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	id, ok := mp.store.paymentByOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	p, ok := mp.store.paymentsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

// UserRepository implementation
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (us *MemoryUsers) Add(ctx context.Context, u *domain.User) error {
	us.store.wlock(ctx)
	defer us.store.wunlock(ctx)
	key := strings.ToLower(u.Email)
	if _, taken := us.store.usersByEmail[key]; taken {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	us.store.usersByEmail[key] = *u
	return nil
}

func (us *MemoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	us.store.rlock(ctx)
	defer us.store.runlock(ctx)
	u, ok := us.store.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (us *MemoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	us.store.rlock(ctx)
	defer us.store.runlock(ctx)
	for _, u := range us.store.usersByEmail {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	// hold the write lock and mark the context so repositories skip their own locks
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
