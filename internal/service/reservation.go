package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"
)

// compensation undoes one applied debit.
type compensation struct {
	productID string
	qty       int64
}

// compensations is applied in reverse order of registration.
type compensations []compensation

func (c *compensations) push(productID string, qty int64) {
	*c = append(*c, compensation{productID: productID, qty: qty})
}

func (c compensations) unwind(ctx context.Context, ledger repository.StockLedger) error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := ledger.IncreaseStock(ctx, c[i].productID, c[i].qty); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", c[i].productID, err))
		}
	}
	return errors.Join(errs...)
}

// StockReserver debits stock for every item of an order or for none of them.
// Each item is a separate ledger call, so two reservations racing on the same
// product can interleave between items; the ledger alone keeps stock >= 0.
type StockReserver struct {
	ledger   repository.StockLedger
	products repository.ProductRepository
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewStockReserver(ledger repository.StockLedger, products repository.ProductRepository, log *zap.Logger, m *metrics.Metrics) *StockReserver {
	if log == nil {
		log = zap.NewNop()
	}
	return &StockReserver{ledger: ledger, products: products, log: log, metrics: m}
}

// Reserve debits items in order. If a debit is refused the already debited
// items are restored and an *domain.InsufficientStockError is returned. A
// ledger error or a panic restores them as well before propagating.
func (r *StockReserver) Reserve(ctx context.Context, items []domain.OrderItem) error {
	var applied compensations
	defer func() {
		if rec := recover(); rec != nil {
			r.rollback(ctx, applied)
			panic(rec)
		}
	}()

	for _, it := range items {
		ok, err := r.ledger.DecreaseStock(ctx, it.ProductID, it.Qty)
		if err != nil {
			r.rollback(ctx, applied)
			return fmt.Errorf("reserve %s: %w", it.ProductID, err)
		}
		if !ok {
			r.rollback(ctx, applied)
			return &domain.InsufficientStockError{
				ProductID: it.ProductID,
				Available: r.available(ctx, it.ProductID),
				Requested: it.Qty,
			}
		}
		applied.push(it.ProductID, it.Qty)
	}
	return nil
}

// Release returns stock for items that were reserved earlier. Products that
// no longer exist are skipped.
func (r *StockReserver) Release(ctx context.Context, items []domain.OrderItem) error {
	var errs []error
	for _, it := range items {
		if err := r.ledger.IncreaseStock(ctx, it.ProductID, it.Qty); err != nil && !errors.Is(err, repository.ErrNotFound) {
			errs = append(errs, fmt.Errorf("release %s: %w", it.ProductID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *StockReserver) rollback(ctx context.Context, applied compensations) {
	if len(applied) == 0 {
		return
	}
	r.metrics.ReservationRolledBack()
	if err := applied.unwind(ctx, r.ledger); err != nil {
		r.log.Error("reservation rollback incomplete", zap.Int("items", len(applied)), zap.Error(err))
		return
	}
	r.log.Debug("reservation rolled back", zap.Int("items", len(applied)))
}

func (r *StockReserver) available(ctx context.Context, productID string) int64 {
	p, err := r.products.GetByID(ctx, productID)
	if err != nil {
		return 0
	}
	return p.Stock
}
