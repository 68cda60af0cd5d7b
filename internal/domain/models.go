package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices and totals go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultCurrency is the only settlement currency the shop supports.
const DefaultCurrency = "TRY"

// Role of an authenticated principal.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Principal is the authenticated caller handed to every service operation.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// User is a registered account. Users are keyed by email in the store.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

func (u User) Principal() Principal { return Principal{ID: u.ID, Role: u.Role} }

// Product is a catalog entry with its stock counter.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Stock    int64           `json:"stock"`
	IsActive bool            `json:"isActive"`
}

// OrderItem references a product; the order does not own it.
type OrderItem struct {
	ProductID string `json:"productId"`
	Qty       int64  `json:"qty"`
}

// Order is created once and afterwards only changes status.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currency    string          `json:"currency"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OwnedBy reports whether the principal may see this order.
func (o Order) OwnedBy(p Principal) bool { return o.UserID == p.ID }

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodTransfer
}

// Payment is a settlement attempt for an order.
type Payment struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      PaymentMethod   `json:"method"`
	Status      PaymentStatus   `json:"status"`
	ProviderRef string          `json:"providerRef"`
	CreatedAt   time.Time       `json:"createdAt"`
}
