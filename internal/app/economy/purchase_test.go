package economy

import (
	"context"
	"sync"
	"testing"

	"github.com/guildnet/guildpoints/internal/domain"
)

func seedProduct(t *testing.T, s *Service, name string, price, stock int64) *domain.Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), name, "", price, stock, "admin-1")
	if err != nil {
		t.Fatalf("CreateProduct(%s) error: %v", name, err)
	}
	return p
}

func TestPurchaseHappyPath(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, s, "buyer", domain.RoleMember)
	fundAccount(t, s, "buyer", 100)
	p := seedProduct(t, s, "mug", 30, 5)

	res, err := s.Purchase(ctx, p.ID, "buyer")
	if err != nil {
		t.Fatalf("Purchase() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Purchase() failed: %s", res.Message)
	}
	if res.Entry == nil || res.Entry.Amount != -30 || res.Entry.Reason != domain.ReasonPurchaseDebit {
		t.Fatalf("purchase entry = %+v", res.Entry)
	}

	mustBalance(t, s, "buyer", 70)
	mustLedgerConsistent(t, s, db, "buyer")

	got, err := db.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error: %v", err)
	}
	if got.Stock != 4 {
		t.Fatalf("stock = %d, want 4", got.Stock)
	}
}

func TestPurchaseInsufficientPoints(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, s, "buyer", domain.RoleMember)
	fundAccount(t, s, "buyer", 10)
	p := seedProduct(t, s, "jacket", 500, 3)

	res, err := s.Purchase(ctx, p.ID, "buyer")
	if err != nil {
		t.Fatalf("Purchase() error: %v", err)
	}
	if res.Success {
		t.Fatal("Purchase() succeeded with 10 pts against a 500 pt price")
	}
	if res.Message != msgInsufficientPoints {
		t.Fatalf("message = %q", res.Message)
	}

	// Nothing moved.
	mustBalance(t, s, "buyer", 10)
	got, _ := db.GetProduct(ctx, p.ID)
	if got.Stock != 3 {
		t.Fatalf("stock = %d, want 3", got.Stock)
	}
}

func TestPurchaseOutOfStock(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, s, "buyer", domain.RoleMember)
	fundAccount(t, s, "buyer", 100)
	p := seedProduct(t, s, "rare pin", 10, 0)

	res, err := s.Purchase(ctx, p.ID, "buyer")
	if err != nil {
		t.Fatalf("Purchase() error: %v", err)
	}
	if res.Success || res.Message != msgOutOfStock {
		t.Fatalf("result = %+v, want out of stock failure", res)
	}
	mustBalance(t, s, "buyer", 100)
}

func TestPurchaseInactiveProductNotFound(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, s, "buyer", domain.RoleMember)
	fundAccount(t, s, "buyer", 100)
	p := seedProduct(t, s, "retired", 10, 5)
	if err := s.DeactivateProduct(ctx, p.ID, "admin-1"); err != nil {
		t.Fatalf("DeactivateProduct() error: %v", err)
	}

	if _, err := s.Purchase(ctx, p.ID, "buyer"); !isNotFound(err) {
		t.Fatalf("Purchase(inactive) error = %v, want NotFound", err)
	}
}

func TestConcurrentPurchaseNeverOversells(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	seedAdmin(t, s)
	p := seedProduct(t, s, "last one", 10, 1)

	const n = 6
	buyers := make([]string, n)
	for i := range buyers {
		buyers[i] = string(rune('a'+i)) + "-buyer"
		seedAccount(t, s, buyers[i], domain.RoleMember)
		fundAccount(t, s, buyers[i], 50)
	}

	var wg sync.WaitGroup
	results := make([]*domain.PurchaseResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Purchase(ctx, p.ID, buyers[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("buyer %s unexpected error: %v", buyers[i], errs[i])
		}
		if results[i].Success {
			wins++
		} else if results[i].Message != msgOutOfStock {
			t.Fatalf("loser %s got %q, want out of stock", buyers[i], results[i].Message)
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1 for stock 1", wins)
	}

	got, _ := db.GetProduct(ctx, p.ID)
	if got.Stock != 0 {
		t.Fatalf("final stock = %d, want 0", got.Stock)
	}
	for _, b := range buyers {
		mustLedgerConsistent(t, s, db, b)
	}
}

func TestConcurrentPurchaseNeverDoubleCharges(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	seedAccount(t, s, "buyer", domain.RoleMember)
	fundAccount(t, s, "buyer", 30)
	p := seedProduct(t, s, "affordable once", 30, 10)

	const n = 6
	var wg sync.WaitGroup
	results := make([]*domain.PurchaseResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.Purchase(ctx, p.ID, "buyer")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r != nil && r.Success {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("successful purchases = %d, want 1 (balance covers one)", wins)
	}

	// Exactly one charge, and the rollback restored every losing decrement.
	mustBalance(t, s, "buyer", 0)
	mustLedgerConsistent(t, s, db, "buyer")
	got, _ := db.GetProduct(ctx, p.ID)
	if got.Stock != 9 {
		t.Fatalf("stock = %d, want 9 after one sale", got.Stock)
	}
}

func TestCatalogOrdersByPrice(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seedAdmin(t, s)
	seedProduct(t, s, "expensive", 300, 1)
	seedProduct(t, s, "cheap", 10, 1)
	mid := seedProduct(t, s, "mid", 100, 1)
	if err := s.DeactivateProduct(ctx, mid.ID, "admin-1"); err != nil {
		t.Fatalf("DeactivateProduct() error: %v", err)
	}

	items, err := s.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("catalog size = %d, want 2 (inactive hidden)", len(items))
	}
	if items[0].Name != "cheap" || items[1].Name != "expensive" {
		t.Fatalf("catalog order = %s, %s", items[0].Name, items[1].Name)
	}
}
