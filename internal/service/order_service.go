package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// Business rules for a cart.
const (
	MinQty = 1
	MaxQty = 10
)

var (
	MinCartTotal = decimal.NewFromInt(50)
	MaxCartTotal = decimal.NewFromInt(5000)
)

// OrderService creates, cancels and reads orders.
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	reserver *StockReserver
	tx       repository.TxManager
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewOrderService wires the order workflow. With repository.NoTx every store
// call takes its own lock; with a store transaction manager validation,
// reservation and insert run under one lock.
func NewOrderService(products repository.ProductRepository, ledger repository.StockLedger, orders repository.OrderRepository, tx repository.TxManager, log *zap.Logger, m *metrics.Metrics) *OrderService {
	if log == nil {
		log = zap.NewNop()
	}
	if tx == nil {
		tx = repository.NoTx{}
	}
	return &OrderService{
		products: products,
		orders:   orders,
		reserver: NewStockReserver(ledger, products, log, m),
		tx:       tx,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ValidateAndPrice checks the cart against the catalog and returns its total.
// Stock is only read here; the reservation that follows can still fail.
func (s *OrderService) ValidateAndPrice(ctx context.Context, items []domain.OrderItem) (decimal.Decimal, string, error) {
	if len(items) == 0 {
		return decimal.Zero, "", domain.ErrEmptyCart
	}

	total := decimal.Zero
	for _, it := range items {
		if it.Qty < MinQty || it.Qty > MaxQty {
			return decimal.Zero, "", fmt.Errorf("%w: must be between %d and %d, got %d", domain.ErrInvalidQuantity, MinQty, MaxQty, it.Qty)
		}
		p, err := s.products.GetByID(ctx, it.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, "", fmt.Errorf("%w: %s", domain.ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return decimal.Zero, "", err
		}
		if !p.IsActive {
			return decimal.Zero, "", fmt.Errorf("%w: %s", domain.ErrProductInactive, it.ProductID)
		}
		if p.Stock < it.Qty {
			return decimal.Zero, "", &domain.InsufficientStockError{ProductID: it.ProductID, Available: p.Stock, Requested: it.Qty}
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Qty)))
	}

	if total.LessThan(MinCartTotal) {
		return decimal.Zero, "", fmt.Errorf("%w: must be at least %s %s, got %s", domain.ErrCartTotalTooLow, MinCartTotal, domain.DefaultCurrency, total)
	}
	if total.GreaterThan(MaxCartTotal) {
		return decimal.Zero, "", fmt.Errorf("%w: cannot exceed %s %s, got %s", domain.ErrCartTotalTooHigh, MaxCartTotal, domain.DefaultCurrency, total)
	}
	return total, domain.DefaultCurrency, nil
}

// CreateOrder prices the cart, reserves stock and stores the order as CREATED.
func (s *OrderService) CreateOrder(ctx context.Context, who domain.Principal, items []domain.OrderItem) (*domain.Order, error) {
	if who.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers can place orders", domain.ErrForbidden)
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		total, currency, err := s.ValidateAndPrice(ctx, items)
		if err != nil {
			return err
		}
		if err := s.reserver.Reserve(ctx, items); err != nil {
			return err
		}

		o := domain.Order{
			UserID:      who.ID,
			Items:       items,
			TotalAmount: total,
			Currency:    currency,
			Status:      domain.OrderStatusCreated,
			CreatedAt:   s.now(),
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			if rerr := s.reserver.Release(ctx, items); rerr != nil {
				s.log.Error("release after failed insert", zap.Error(rerr))
			}
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		s.metrics.OrderFailed(failureReason(err))
		s.log.Info("order rejected", zap.String("user_id", who.ID), zap.Error(err))
		return nil, err
	}

	s.metrics.OrderCreated()
	s.log.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("user_id", who.ID),
		zap.String("total_amount", created.TotalAmount.String()))
	return created, nil
}

// GetOrder returns an order by id; only admins see other users' orders.
func (s *OrderService) GetOrder(ctx context.Context, who domain.Principal, id string) (*domain.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !who.IsAdmin() && !o.OwnedBy(who) {
		return nil, fmt.Errorf("%w: you can only view your own orders", domain.ErrForbidden)
	}
	return o, nil
}

// CancelOrder returns the stock of a CREATED order and marks it CANCELLED.
func (s *OrderService) CancelOrder(ctx context.Context, who domain.Principal, id string) (*domain.Order, error) {
	if who.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers can cancel orders", domain.ErrForbidden)
	}

	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if !o.OwnedBy(who) {
			return fmt.Errorf("%w: you can only cancel your own orders", domain.ErrForbidden)
		}
		// reject before touching stock
		if _, err := o.Status.Next(domain.OrderStatusCancelled); err != nil {
			return err
		}
		if err := s.reserver.Release(ctx, o.Items); err != nil {
			return err
		}
		if err := o.Cancel(); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCancelled()
	s.log.Info("order cancelled", zap.String("order_id", updated.ID), zap.String("user_id", who.ID))
	return updated, nil
}

func (s *OrderService) load(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return o, err
}

func failureReason(err error) string {
	reasons := []struct {
		target error
		label  string
	}{
		{domain.ErrEmptyCart, "empty_cart"},
		{domain.ErrInvalidQuantity, "invalid_quantity"},
		{domain.ErrProductNotFound, "product_not_found"},
		{domain.ErrProductInactive, "product_inactive"},
		{domain.ErrInsufficientStock, "insufficient_stock"},
		{domain.ErrCartTotalTooLow, "cart_total_too_low"},
		{domain.ErrCartTotalTooHigh, "cart_total_too_high"},
	}
	for _, r := range reasons {
		if errors.Is(err, r.target) {
			return r.label
		}
	}
	return "internal"
}
