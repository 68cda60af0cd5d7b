package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const catalog = `
products:
  - name: Mouse
    price: 150
    stock: 50
  - name: Cable
    price: 12.5
    currency: TRY
    stock: 3
    active: false
`

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatal(err)
	}
	products, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if !products[0].IsActive || products[1].IsActive {
		t.Fatalf("active flags wrong: %+v", products)
	}
	if products[1].Price.String() != "12.5" || products[0].Currency != domain.DefaultCurrency {
		t.Fatalf("price/currency wrong: %+v", products)
	}

	store := repository.NewMemoryStore()
	n, err := Apply(context.Background(), store.Products(), products)
	if err != nil || n != 2 {
		t.Fatalf("apply: n=%d err=%v", n, err)
	}
	active, _ := store.List(context.Background(), repository.ProductFilter{ActiveOnly: true})
	if len(active) != 1 || active[0].Name != "Mouse" {
		t.Fatalf("unexpected active catalog: %+v", active)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("products:\n  - name: ''\n    price: 1\n")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := Parse([]byte("products: [")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if len(d) != 4 || d[0].Name != "Laptop" || d[0].Price.IntPart() != 15000 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
}
