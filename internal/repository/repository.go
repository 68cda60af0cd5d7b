package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain"
)

// ErrNotFound is returned when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique key is already taken.
var ErrAlreadyExists = errors.New("already exists")

// ProductFilter narrows a product listing.
type ProductFilter struct {
	ActiveOnly    bool
	NameSubstring string
}

// ProductRepository stores catalog entries.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	// Patch applies fn to the stored product under one write lock and
	// returns the result. Fields fn leaves alone, stock included, keep
	// whatever value they hold at that moment.
	Patch(ctx context.Context, id string, fn func(p *domain.Product) error) (*domain.Product, error)
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// StockLedger is the pair of primitive inventory operations. Each call is
// atomic on its own; callers never get a lock spanning two calls.
type StockLedger interface {
	// DecreaseStock returns false without mutating anything when the product
	// is missing or holds less than qty.
	DecreaseStock(ctx context.Context, productID string, qty int64) (bool, error)
	// IncreaseStock adds qty unconditionally; ErrNotFound if the product is missing.
	IncreaseStock(ctx context.Context, productID string, qty int64) error
}

// OrderRepository stores orders.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
}

// PaymentRepository stores payments and the order→payment index.
type PaymentRepository interface {
	// Add stores the payment and points the order's index entry at it.
	Add(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error)
}

// UserRepository stores accounts keyed by email.
type UserRepository interface {
	// Add fails with ErrAlreadyExists when the email is registered.
	Add(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// TxManager runs fn as one transaction. In memory that is the global write lock.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every collection behind one lifecycle so the backend can be
// replaced without touching the services.
type Store interface {
	Products() ProductRepository
	Stock() StockLedger
	Orders() OrderRepository
	Payments() PaymentRepository
	Users() UserRepository
	Tx() TxManager
	Close() error
}

// NoTx runs fn directly; services use it when operations should only take
// the per-call store lock.
type NoTx struct{}

func (NoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
