package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// File is the on-disk catalog layout:
//
//	products:
//	  - name: Mouse
//	    price: 150
//	    stock: 50
type File struct {
	Products []Product `yaml:"products"`
}

type Product struct {
	Name     string  `yaml:"name"`
	Price    float64 `yaml:"price"`
	Currency string  `yaml:"currency"`
	Stock    int64   `yaml:"stock"`
	Active   *bool   `yaml:"active"`
}

// Defaults is the catalog used when no seed file is configured.
func Defaults() []domain.Product {
	mk := func(name string, price, stock int64) domain.Product {
		return domain.Product{Name: name, Price: decimal.NewFromInt(price), Currency: domain.DefaultCurrency, Stock: stock, IsActive: true}
	}
	return []domain.Product{
		mk("Laptop", 15000, 10),
		mk("Mouse", 150, 50),
		mk("Keyboard", 500, 30),
		mk("Monitor", 3000, 20),
	}
}

func Load(path string) ([]domain.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]domain.Product, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	out := make([]domain.Product, 0, len(f.Products))
	for i, p := range f.Products {
		if p.Name == "" || p.Price < 0 || p.Stock < 0 {
			return nil, fmt.Errorf("seed product %d: %w", i, domain.ErrInvalidInput)
		}
		currency := p.Currency
		if currency == "" {
			currency = domain.DefaultCurrency
		}
		active := true
		if p.Active != nil {
			active = *p.Active
		}
		out = append(out, domain.Product{
			Name:     p.Name,
			Price:    decimal.NewFromFloat(p.Price),
			Currency: currency,
			Stock:    p.Stock,
			IsActive: active,
		})
	}
	return out, nil
}

// Apply stores every product and returns how many were added.
func Apply(ctx context.Context, repo repository.ProductRepository, products []domain.Product) (int, error) {
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			return i, err
		}
	}
	return len(products), nil
}
