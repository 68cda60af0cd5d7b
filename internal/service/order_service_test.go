package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

var (
	admin    = domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}
	customer = domain.Principal{ID: "cust-1", Role: domain.RoleCustomer}
	stranger = domain.Principal{ID: "cust-2", Role: domain.RoleCustomer}
)

type fixture struct {
	store    *repository.MemoryStore
	metrics  *metrics.Metrics
	products *ProductService
	orders   *OrderService
	payments *PaymentService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithTx(t, false)
}

func setupWithTx(t *testing.T, strict bool) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	var tx repository.TxManager = repository.NoTx{}
	if strict {
		tx = store.Tx()
	}
	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		store:    store,
		metrics:  m,
		products: NewProductService(store.Products(), nil),
		orders:   NewOrderService(store.Products(), store.Stock(), store.Orders(), tx, nil, m),
		payments: NewPaymentService(store.Orders(), store.Payments(), tx, nil, m),
	}
}

func (f *fixture) product(t *testing.T, name string, price int64, stock int64) *domain.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), admin, domain.Product{Name: name, Price: decimal.NewFromInt(price), Stock: stock, IsActive: true})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func (f *fixture) stock(t *testing.T, id string) int64 {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.Stock
}

func TestCreateOrder_ReservesStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", 100, 5)

	o, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 1}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if o.Status != domain.OrderStatusCreated || o.Currency != "TRY" || o.UserID != customer.ID {
		t.Fatalf("unexpected order: %+v", o)
	}
	if !o.TotalAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("total expected 100, got %s", o.TotalAmount)
	}
	if got := f.stock(t, p.ID); got != 4 {
		t.Fatalf("stock expected 4, got %d", got)
	}
	if got := testutil.ToFloat64(f.metrics.OrdersCreated); got != 1 {
		t.Fatalf("orders created metric = %v", got)
	}
}

func TestCreateOrder_NotEnoughStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", 100, 5)

	_, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 6}})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	var ise *domain.InsufficientStockError
	if !errors.As(err, &ise) || ise.ProductID != p.ID || ise.Available != 5 || ise.Requested != 6 {
		t.Fatalf("unexpected details: %+v", ise)
	}
	if got := f.stock(t, p.ID); got != 5 {
		t.Fatalf("stock changed: %d", got)
	}
	if got := testutil.ToFloat64(f.metrics.OrderFailures.WithLabelValues("insufficient_stock")); got != 1 {
		t.Fatalf("failure metric = %v", got)
	}
}

func TestCreateOrderAndCancel(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p1 := f.product(t, "A", 100, 5)
	p2 := f.product(t, "B", 20, 2)

	o, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p1.ID, Qty: 3}, {ProductID: p2.ID, Qty: 2}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if !o.TotalAmount.Equal(decimal.NewFromInt(340)) {
		t.Fatalf("total expected 340, got %s", o.TotalAmount)
	}
	if f.stock(t, p1.ID) != 2 || f.stock(t, p2.ID) != 0 {
		t.Fatalf("stock not decreased")
	}

	o2, err := f.orders.CancelOrder(ctx, customer, o.ID)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if o2.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled")
	}
	if f.stock(t, p1.ID) != 5 || f.stock(t, p2.ID) != 2 {
		t.Fatalf("stock not restored")
	}

	stored, _ := f.orders.GetOrder(ctx, customer, o.ID)
	if stored.Status != domain.OrderStatusCancelled {
		t.Fatalf("cancel not persisted")
	}
}

func TestCancelOrder_TerminalStates(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", 100, 10)

	t.Run("cancel twice", func(t *testing.T) {
		o, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 2}})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if _, err := f.orders.CancelOrder(ctx, customer, o.ID); err != nil {
			t.Fatalf("first cancel: %v", err)
		}
		before := f.stock(t, p.ID)
		if _, err := f.orders.CancelOrder(ctx, customer, o.ID); !errors.Is(err, domain.ErrAlreadyCancelled) {
			t.Fatalf("expected already cancelled, got %v", err)
		}
		if f.stock(t, p.ID) != before {
			t.Fatalf("second cancel released stock again")
		}
	})

	t.Run("cancel paid", func(t *testing.T) {
		o, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 1}})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if _, err := f.payments.CreatePayment(ctx, customer, o.ID, domain.PaymentMethodCard); err != nil {
			t.Fatalf("pay: %v", err)
		}
		before := f.stock(t, p.ID)
		if _, err := f.orders.CancelOrder(ctx, customer, o.ID); !errors.Is(err, domain.ErrAlreadyPaid) {
			t.Fatalf("expected already paid, got %v", err)
		}
		if f.stock(t, p.ID) != before {
			t.Fatalf("cancel of paid order touched stock")
		}
		stored, _ := f.orders.GetOrder(ctx, customer, o.ID)
		if stored.Status != domain.OrderStatusPaid {
			t.Fatalf("paid order status changed to %s", stored.Status)
		}
	})
}

func TestCancelOrder_Access(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", 100, 10)
	o, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 1}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.orders.CancelOrder(ctx, stranger, o.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for other customer, got %v", err)
	}
	if _, err := f.orders.CancelOrder(ctx, admin, o.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden for admin, got %v", err)
	}
	if _, err := f.orders.CancelOrder(ctx, customer, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}
	if f.stock(t, p.ID) != 9 {
		t.Fatalf("rejected cancels must not touch stock")
	}
}

func TestGetOrder_Access(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", 100, 10)
	o, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 1}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.orders.GetOrder(ctx, customer, o.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := f.orders.GetOrder(ctx, admin, o.ID); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if _, err := f.orders.GetOrder(ctx, stranger, o.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.orders.GetOrder(ctx, admin, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateOrder_OnlyCustomers(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", 100, 10)
	if _, err := f.orders.CreateOrder(ctx, admin, []domain.OrderItem{{ProductID: p.ID, Qty: 1}}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestValidateAndPrice(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cheap := f.product(t, "Cheap", 10, 100)
	mid := f.product(t, "Mid", 25, 100)
	pricey := f.product(t, "Pricey", 600, 100)
	scarce := f.product(t, "Scarce", 100, 1)
	inactive := f.product(t, "Gone", 100, 10)
	off := false
	if _, err := f.products.Update(ctx, admin, inactive.ID, ProductPatch{IsActive: &off}); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		items   []domain.OrderItem
		want    int64
		wantErr error
	}{
		{"empty cart", nil, 0, domain.ErrEmptyCart},
		{"qty zero", []domain.OrderItem{{ProductID: mid.ID, Qty: 0}}, 0, domain.ErrInvalidQuantity},
		{"qty eleven", []domain.OrderItem{{ProductID: mid.ID, Qty: 11}}, 0, domain.ErrInvalidQuantity},
		{"unknown product", []domain.OrderItem{{ProductID: "nope", Qty: 1}}, 0, domain.ErrProductNotFound},
		{"inactive", []domain.OrderItem{{ProductID: inactive.ID, Qty: 1}}, 0, domain.ErrProductInactive},
		{"scarce", []domain.OrderItem{{ProductID: scarce.ID, Qty: 2}}, 0, domain.ErrInsufficientStock},
		{"below min", []domain.OrderItem{{ProductID: cheap.ID, Qty: 1}}, 0, domain.ErrCartTotalTooLow},
		{"exactly min", []domain.OrderItem{{ProductID: cheap.ID, Qty: 5}}, 50, nil},
		{"sum of lines", []domain.OrderItem{{ProductID: cheap.ID, Qty: 3}, {ProductID: mid.ID, Qty: 4}}, 130, nil},
		{"exactly max", []domain.OrderItem{{ProductID: pricey.ID, Qty: 5}, {ProductID: pricey.ID, Qty: 3}, {ProductID: mid.ID, Qty: 8}}, 5000, nil},
		{"above max", []domain.OrderItem{{ProductID: pricey.ID, Qty: 9}}, 0, domain.ErrCartTotalTooHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total, currency, err := f.orders.ValidateAndPrice(ctx, tc.items)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !total.Equal(decimal.NewFromInt(tc.want)) || currency != "TRY" {
				t.Fatalf("got %s %s, want %d TRY", total, currency, tc.want)
			}
		})
	}

	// validation only reads stock
	if f.stock(t, cheap.ID) != 100 || f.stock(t, pricey.ID) != 100 {
		t.Fatalf("validation must not reserve")
	}
}

func TestCreateOrder_CartTotalTooLow(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "Cheap", 10, 10)

	if _, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 1}}); !errors.Is(err, domain.ErrCartTotalTooLow) {
		t.Fatalf("expected cart total too low, got %v", err)
	}
	if f.stock(t, p.ID) != 10 {
		t.Fatalf("stock changed")
	}
}

func TestCreateOrder_StrictTransactions(t *testing.T) {
	ctx := context.Background()
	f := setupWithTx(t, true)
	p := f.product(t, "A", 100, 2)

	o, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.orders.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 1}}); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if _, err := f.orders.CancelOrder(ctx, customer, o.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.stock(t, p.ID) != 2 {
		t.Fatalf("stock expected 2, got %d", f.stock(t, p.ID))
	}
}

type failingOrders struct {
	repository.OrderRepository
}

func (failingOrders) Create(context.Context, *domain.Order) error { return errors.New("disk full") }

func TestCreateOrder_InsertFailureReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "A", 100, 5)
	svc := NewOrderService(f.store.Products(), f.store.Stock(), failingOrders{f.store.Orders()}, nil, nil, nil)

	if _, err := svc.CreateOrder(ctx, customer, []domain.OrderItem{{ProductID: p.ID, Qty: 3}}); err == nil {
		t.Fatalf("expected insert error")
	}
	if f.stock(t, p.ID) != 5 {
		t.Fatalf("reservation leaked: stock %d", f.stock(t, p.ID))
	}
}
