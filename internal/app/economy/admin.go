package economy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Privileged Actions ─────────────────────────────────────────────────────
// Role management, manual point adjustments, and catalog edits. Every action
// here appends an audit row; none of them touch status, stock, or balance
// outside the four mutating ledger paths.

func (s *Service) audit(ctx context.Context, actorID string, action domain.AuditAction, targetID string, details map[string]any) {
	payload, _ := json.Marshal(details)
	if details == nil {
		payload = []byte("{}")
	}
	rec := domain.AuditRecord{
		ID:        newID(),
		ActorID:   actorID,
		Action:    action,
		TargetID:  targetID,
		Details:   string(payload),
		CreatedAt: s.now(),
	}
	if err := s.db.InsertAuditRecord(ctx, rec); err != nil {
		// The action itself already committed; losing the audit row is
		// surfaced in logs rather than failing the caller.
		log.Printf("[engine] audit write failed for %s on %s: %v", action, targetID, err)
	}
}

// PromoteToAdmin raises an account to the admin role.
func (s *Service) PromoteToAdmin(ctx context.Context, targetID, callerID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if _, err := s.account(ctx, targetID); err != nil {
		return err
	}
	if err := s.db.UpdateAccountRole(ctx, targetID, domain.RoleAdmin); err != nil {
		return storageErr("promote", err)
	}
	s.audit(ctx, callerID, domain.AuditPromoteAdmin, targetID, nil)
	log.Printf("[engine] %s promoted %s to admin", callerID, targetID)
	return nil
}

// DemoteToMember lowers an admin back to member. Self-demotion is rejected
// so a portal cannot lose its last admin by accident.
func (s *Service) DemoteToMember(ctx context.Context, targetID, callerID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if targetID == callerID {
		return fmt.Errorf("cannot demote yourself: %w", domain.ErrPrecondition)
	}
	if _, err := s.account(ctx, targetID); err != nil {
		return err
	}
	if err := s.db.UpdateAccountRole(ctx, targetID, domain.RoleMember); err != nil {
		return storageErr("demote", err)
	}
	s.audit(ctx, callerID, domain.AuditDemoteAdmin, targetID, nil)
	log.Printf("[engine] %s demoted %s to member", callerID, targetID)
	return nil
}

// GrantMoveTasks flags (or unflags) a member as a board mover.
func (s *Service) GrantMoveTasks(ctx context.Context, targetID string, canMove bool, callerID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if _, err := s.account(ctx, targetID); err != nil {
		return err
	}
	if err := s.db.SetCanMoveTasks(ctx, targetID, canMove); err != nil {
		return storageErr("grant move", err)
	}
	return nil
}

// AdjustPoints applies a manual admin adjustment: positive delta credits,
// negative delta debits (subject to the non-negative balance invariant).
func (s *Service) AdjustPoints(ctx context.Context, targetID string, delta int64, note, callerID string) (*domain.LedgerEntry, error) {
	if delta == 0 {
		return nil, fmt.Errorf("adjustment must be non-zero: %w", domain.ErrPrecondition)
	}

	var entry *domain.LedgerEntry
	var err error
	if delta > 0 {
		entry, err = s.Credit(ctx, targetID, delta, domain.ReasonAdminAdjustment, note, callerID)
	} else {
		entry, err = s.Debit(ctx, targetID, -delta, domain.ReasonAdminAdjustment, note, callerID)
	}
	if err != nil {
		return nil, err
	}

	s.audit(ctx, callerID, domain.AuditAdjustPoints, targetID, map[string]any{"delta": delta, "note": note})
	return entry, nil
}

// ─── Catalog Management ─────────────────────────────────────────────────────

// CreateProduct adds a catalog item. Admin-only.
func (s *Service) CreateProduct(ctx context.Context, name, description string, pricePoints, stock int64, callerID string) (*domain.Product, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("product name is required: %w", domain.ErrPrecondition)
	}
	if pricePoints < 0 || stock < 0 {
		return nil, fmt.Errorf("price and stock must be non-negative: %w", domain.ErrPrecondition)
	}

	p := domain.Product{
		ID:          newID(),
		Name:        name,
		Description: description,
		PricePoints: pricePoints,
		Stock:       stock,
		IsActive:    true,
		CreatedAt:   s.now(),
	}
	if err := s.db.InsertProduct(ctx, p); err != nil {
		return nil, storageErr("create product", err)
	}
	log.Printf("[engine] product %s created by %s (%d pts, stock %d)", p.ID, callerID, pricePoints, stock)
	return &p, nil
}

// UpdateProduct edits a catalog item. Setting stock here is an admin
// restock; purchases are the only path that decrements it.
func (s *Service) UpdateProduct(ctx context.Context, p domain.Product, callerID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if p.PricePoints < 0 || p.Stock < 0 {
		return fmt.Errorf("price and stock must be non-negative: %w", domain.ErrPrecondition)
	}
	existing, err := s.db.GetProduct(ctx, p.ID)
	if err != nil {
		return storageErr("update product", err)
	}
	if existing == nil {
		return fmt.Errorf("product %s: %w", p.ID, domain.ErrNotFound)
	}
	if err := s.db.UpdateProduct(ctx, p); err != nil {
		return storageErr("update product", err)
	}
	return nil
}

// DeactivateProduct pulls an item from the shop without deleting its
// purchase history.
func (s *Service) DeactivateProduct(ctx context.Context, productID, callerID string) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	p, err := s.db.GetProduct(ctx, productID)
	if err != nil {
		return storageErr("deactivate product", err)
	}
	if p == nil {
		return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
	}
	p.IsActive = false
	if err := s.db.UpdateProduct(ctx, *p); err != nil {
		return storageErr("deactivate product", err)
	}
	return nil
}
