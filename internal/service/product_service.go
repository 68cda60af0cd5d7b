package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ProductService holds the catalog rules.
type ProductService struct {
	repo repository.ProductRepository
	log  *zap.Logger
}

func NewProductService(repo repository.ProductRepository, log *zap.Logger) *ProductService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductService{repo: repo, log: log}
}

// ProductPatch holds the optional fields of a product update.
type ProductPatch struct {
	Name     *string
	Price    *decimal.Decimal
	Stock    *int64
	IsActive *bool
}

func (s *ProductService) Create(ctx context.Context, who domain.Principal, p domain.Product) (*domain.Product, error) {
	if !who.IsAdmin() {
		return nil, fmt.Errorf("%w: admin access required", domain.ErrForbidden)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Currency == "" {
		p.Currency = domain.DefaultCurrency
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	cp.ID = ""
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.String("product_id", cp.ID), zap.String("name", cp.Name), zap.Int64("stock", cp.Stock))
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p, err
}

func (s *ProductService) Update(ctx context.Context, who domain.Principal, id string, patch ProductPatch) (*domain.Product, error) {
	if !who.IsAdmin() {
		return nil, fmt.Errorf("%w: admin access required", domain.ErrForbidden)
	}
	// stock is written only when the patch sets it, so concurrent
	// reservations are not rolled back by an unrelated edit
	p, err := s.repo.Patch(ctx, id, func(p *domain.Product) error {
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		if patch.IsActive != nil {
			p.IsActive = *patch.IsActive
		}
		return validateProduct(*p)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the active catalog, optionally narrowed to names containing q.
func (s *ProductService) List(ctx context.Context, q string) ([]domain.Product, error) {
	return s.repo.List(ctx, repository.ProductFilter{ActiveOnly: true, NameSubstring: strings.TrimSpace(q)})
}

func validateProduct(p domain.Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must be >= 0", domain.ErrInvalidInput)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must be >= 0", domain.ErrInvalidInput)
	}
	return nil
}
