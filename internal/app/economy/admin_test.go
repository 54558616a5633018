package economy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/guildnet/guildpoints/internal/domain"
)

func TestPromoteAndDemote(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seedAdmin(t, s)
	seedAccount(t, s, "m1", domain.RoleMember)

	if err := s.PromoteToAdmin(ctx, "m1", "admin-1"); err != nil {
		t.Fatalf("PromoteToAdmin() error: %v", err)
	}
	a, _ := s.GetAccount(ctx, "m1")
	if a.Role != domain.RoleAdmin {
		t.Fatalf("role after promote = %s", a.Role)
	}

	if err := s.DemoteToMember(ctx, "m1", "admin-1"); err != nil {
		t.Fatalf("DemoteToMember() error: %v", err)
	}
	a, _ = s.GetAccount(ctx, "m1")
	if a.Role != domain.RoleMember {
		t.Fatalf("role after demote = %s", a.Role)
	}

	trail, err := s.AuditTrail(ctx, "admin-1")
	if err != nil {
		t.Fatalf("AuditTrail() error: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("audit rows = %d, want 2", len(trail))
	}
}

func TestSelfDemotionRejected(t *testing.T) {
	s, _ := newTestService(t)
	seedAdmin(t, s)

	err := s.DemoteToMember(context.Background(), "admin-1", "admin-1")
	if !isPrecondition(err) {
		t.Fatalf("self DemoteToMember() error = %v, want Precondition", err)
	}
	if !strings.Contains(err.Error(), "yourself") {
		t.Fatalf("self-demotion message = %q", err)
	}
}

func TestPromoteRequiresAdmin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, s, "m1", domain.RoleMember)
	seedAccount(t, s, "m2", domain.RoleMember)

	if err := s.PromoteToAdmin(ctx, "m2", "m1"); !isForbidden(err) {
		t.Fatalf("PromoteToAdmin() by member error = %v, want Forbidden", err)
	}
}

func TestAdjustPoints(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	seedAdmin(t, s)
	seedAccount(t, s, "m1", domain.RoleMember)

	if _, err := s.AdjustPoints(ctx, "m1", 120, "event bonus", "admin-1"); err != nil {
		t.Fatalf("AdjustPoints(+120) error: %v", err)
	}
	entry, err := s.AdjustPoints(ctx, "m1", -20, "typo fix", "admin-1")
	if err != nil {
		t.Fatalf("AdjustPoints(-20) error: %v", err)
	}
	if entry.Amount != -20 || entry.Reason != domain.ReasonAdminAdjustment {
		t.Fatalf("adjustment entry = %+v", entry)
	}
	mustBalance(t, s, "m1", 100)
	mustLedgerConsistent(t, s, db, "m1")

	// Negative adjustment below the balance bounces like any debit.
	if _, err := s.AdjustPoints(ctx, "m1", -500, "", "admin-1"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("AdjustPoints(-500) error = %v, want InsufficientFunds", err)
	}
	if _, err := s.AdjustPoints(ctx, "m1", 0, "", "admin-1"); !isPrecondition(err) {
		t.Fatalf("AdjustPoints(0) error = %v, want Precondition", err)
	}

	trail, _ := s.AuditTrail(ctx, "admin-1")
	adjusts := 0
	for _, r := range trail {
		if r.Action == domain.AuditAdjustPoints {
			adjusts++
		}
	}
	if adjusts != 2 {
		t.Fatalf("ADJUST_POINTS audit rows = %d, want 2", adjusts)
	}
}

func TestProductManagement(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	seedAdmin(t, s)
	seedAccount(t, s, "m1", domain.RoleMember)

	if _, err := s.CreateProduct(ctx, "mug", "", 10, 3, "m1"); !isForbidden(err) {
		t.Fatalf("CreateProduct() by member error = %v, want Forbidden", err)
	}
	if _, err := s.CreateProduct(ctx, "", "", 10, 3, "admin-1"); !isPrecondition(err) {
		t.Fatalf("CreateProduct() with empty name error = %v, want Precondition", err)
	}

	p, err := s.CreateProduct(ctx, "mug", "ceramic", 10, 3, "admin-1")
	if err != nil {
		t.Fatalf("CreateProduct() error: %v", err)
	}

	p.PricePoints = 15
	p.Stock = 8
	if err := s.UpdateProduct(ctx, *p, "admin-1"); err != nil {
		t.Fatalf("UpdateProduct() error: %v", err)
	}
	got, _ := db.GetProduct(ctx, p.ID)
	if got.PricePoints != 15 || got.Stock != 8 {
		t.Fatalf("after update: %+v", got)
	}

	missing := *p
	missing.ID = "nope"
	if err := s.UpdateProduct(ctx, missing, "admin-1"); !isNotFound(err) {
		t.Fatalf("UpdateProduct(missing) error = %v, want NotFound", err)
	}

	if err := s.DeactivateProduct(ctx, p.ID, "admin-1"); err != nil {
		t.Fatalf("DeactivateProduct() error: %v", err)
	}
	items, _ := s.Catalog(ctx)
	if len(items) != 0 {
		t.Fatalf("catalog still lists deactivated product")
	}
}

func TestRequestsVisibility(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seedAdmin(t, s)
	seedAccount(t, s, "partner-1", domain.RolePartner)
	seedAccount(t, s, "partner-2", domain.RolePartner)

	if _, err := s.SubmitRequest(ctx, "theirs", "", 10, "partner-1"); err != nil {
		t.Fatalf("SubmitRequest() error: %v", err)
	}

	// Own requests: fine. A peer partner's: forbidden. Admin: fine.
	if _, err := s.RequestsBy(ctx, "partner-1", "partner-1"); err != nil {
		t.Fatalf("own RequestsBy() error: %v", err)
	}
	if _, err := s.RequestsBy(ctx, "partner-1", "partner-2"); !isForbidden(err) {
		t.Fatalf("peer RequestsBy() error = %v, want Forbidden", err)
	}
	got, err := s.RequestsBy(ctx, "partner-1", "admin-1")
	if err != nil {
		t.Fatalf("admin RequestsBy() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("requests = %d, want 1", len(got))
	}
}
