package economy

import (
	"context"
	"fmt"

	"github.com/guildnet/guildpoints/internal/domain"
)

// ─── Authorization Gate ─────────────────────────────────────────────────────
// Thin, stateless decisions over the resolved identity's role and flags.
// Failures are always Forbidden, never silently ignored.

// IsAdmin reports whether the caller holds the admin role.
func (s *Service) IsAdmin(ctx context.Context, callerID string) (bool, error) {
	a, err := s.account(ctx, callerID)
	if err != nil {
		return false, err
	}
	return a.Role == domain.RoleAdmin, nil
}

// CanMoveTasks reports whether the caller may mutate the task board:
// admins always, members only when explicitly flagged. Read-only viewers
// observe but never mutate.
func (s *Service) CanMoveTasks(ctx context.Context, callerID string) (bool, error) {
	a, err := s.account(ctx, callerID)
	if err != nil {
		return false, err
	}
	return a.Role == domain.RoleAdmin || a.CanMoveTasks, nil
}

// IsPartner reports whether the caller holds the partner role. Partners may
// only submit requests and view their own.
func (s *Service) IsPartner(ctx context.Context, callerID string) (bool, error) {
	a, err := s.account(ctx, callerID)
	if err != nil {
		return false, err
	}
	return a.Role == domain.RolePartner, nil
}

func (s *Service) requireAdmin(ctx context.Context, callerID string) error {
	ok, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("caller %s is not an admin: %w", callerID, domain.ErrForbidden)
	}
	return nil
}

func (s *Service) requireMover(ctx context.Context, callerID string) error {
	ok, err := s.CanMoveTasks(ctx, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("caller %s may not move tasks: %w", callerID, domain.ErrForbidden)
	}
	return nil
}

func (s *Service) requirePartner(ctx context.Context, callerID string) error {
	ok, err := s.IsPartner(ctx, callerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("caller %s is not a partner: %w", callerID, domain.ErrForbidden)
	}
	return nil
}
