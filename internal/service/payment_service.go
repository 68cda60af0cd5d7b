package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// SettlementTolerance absorbs rounding between the payment and order amounts.
var SettlementTolerance = decimal.NewFromFloat(0.01)

// PaymentService settles orders. Capture is simulated synchronously.
type PaymentService struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	tx       repository.TxManager
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewPaymentService(orders repository.OrderRepository, payments repository.PaymentRepository, tx repository.TxManager, log *zap.Logger, m *metrics.Metrics) *PaymentService {
	if log == nil {
		log = zap.NewNop()
	}
	if tx == nil {
		tx = repository.NoTx{}
	}
	return &PaymentService{
		orders:   orders,
		payments: payments,
		tx:       tx,
		log:      log,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreatePayment charges the full order total. An order gets one payment slot:
// once any payment is indexed for it, including a FAILED one, further
// attempts are rejected with domain.ErrPaymentExists.
func (s *PaymentService) CreatePayment(ctx context.Context, who domain.Principal, orderID string, method domain.PaymentMethod) (*domain.Payment, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unsupported payment method %q", domain.ErrInvalidInput, method)
	}

	var created *domain.Payment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
		}
		if err != nil {
			return err
		}
		if !who.IsAdmin() && !order.OwnedBy(who) {
			return fmt.Errorf("%w: you can only create payments for your own orders", domain.ErrForbidden)
		}
		// the index is consulted first so a repeat attempt on a settled order
		// reports the occupied slot rather than the order state
		_, err = s.payments.GetByOrder(ctx, order.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", domain.ErrPaymentExists, order.ID)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if order.Status != domain.OrderStatusCreated {
			return fmt.Errorf("%w: order %s is %s", domain.ErrInvalidOrderState, order.ID, order.Status)
		}

		payment := &domain.Payment{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			Amount:      order.TotalAmount,
			Currency:    order.Currency,
			Method:      method,
			Status:      domain.PaymentStatusInitiated,
			ProviderRef: "PROV-" + uuid.NewString(),
			CreatedAt:   s.now(),
		}
		if err := s.Capture(ctx, order, payment); err != nil {
			return err
		}
		created = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Capture settles an INITIATED payment against a CREATED order. On amount
// mismatch the payment is stored as FAILED and the order is left as is.
func (s *PaymentService) Capture(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	if order.Status != domain.OrderStatusCreated {
		return fmt.Errorf("%w: order %s is %s", domain.ErrInvalidOrderState, order.ID, order.Status)
	}

	if payment.Amount.Sub(order.TotalAmount).Abs().GreaterThan(SettlementTolerance) {
		if err := payment.Fail(); err != nil {
			return err
		}
		if err := s.payments.Add(ctx, payment); err != nil {
			return err
		}
		s.metrics.PaymentRecorded(string(payment.Status))
		s.log.Warn("payment failed",
			zap.String("payment_id", payment.ID),
			zap.String("order_id", order.ID),
			zap.String("amount", payment.Amount.String()),
			zap.String("order_total", order.TotalAmount.String()))
		return fmt.Errorf("%w: payment amount %s does not match order total %s",
			domain.ErrAmountMismatch, payment.Amount, order.TotalAmount)
	}

	if err := payment.Capture(); err != nil {
		return err
	}
	if err := order.MarkPaid(); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return err
	}
	if err := s.payments.Add(ctx, payment); err != nil {
		return err
	}
	s.metrics.PaymentRecorded(string(payment.Status))
	s.log.Info("payment captured",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", order.ID),
		zap.String("method", string(payment.Method)))
	return nil
}

// GetPayment is visible to admins and to the owner of the paid order.
func (s *PaymentService) GetPayment(ctx context.Context, who domain.Principal, id string) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if who.IsAdmin() {
		return p, nil
	}
	order, err := s.orders.GetByID(ctx, p.OrderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if order != nil && !order.OwnedBy(who) {
		return nil, fmt.Errorf("%w: you can only view payments for your own orders", domain.ErrForbidden)
	}
	return p, nil
}
