// Package economy implements the points-and-inventory engine: the task
// lifecycle state machine, the append-only points ledger, and the atomic
// purchase path.
//
// The engine:
//  1. Consumes a resolved caller identity (account id) from the auth collaborator
//  2. Gates every transition through the role/capability checks in authz.go
//  3. Performs each mutation as one store transaction with re-validated guards
//  4. Appends one ledger entry per economic event, in that same transaction
//
// Balances and stock are never written outside the four mutating paths
// (complete, purchase, credit, debit); everything else is a read.
package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guildnet/guildpoints/internal/domain"
	"github.com/guildnet/guildpoints/internal/infra/sqlite"
)

// Config controls engine behavior.
type Config struct {
	CompletedWindow time.Duration // how long completed tasks stay on the board (default: 72h)
	RecentLimit     int           // max rows for recent-transaction listings (default: 50)
}

// DefaultConfig returns the portal defaults.
func DefaultConfig() Config {
	return Config{
		CompletedWindow: 72 * time.Hour,
		RecentLimit:     50,
	}
}

// Service is the economy engine. All methods are safe for concurrent use;
// linearization of same-entity operations is delegated to the store's
// transactions.
type Service struct {
	cfg Config
	db  *sqlite.DB
	now func() time.Time
}

// New creates an economy engine on top of the ledger store.
func New(cfg Config, db *sqlite.DB) *Service {
	if cfg.CompletedWindow <= 0 {
		cfg.CompletedWindow = DefaultConfig().CompletedWindow
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultConfig().RecentLimit
	}
	return &Service{cfg: cfg, db: db, now: func() time.Time { return time.Now().UTC() }}
}

// newID mints an opaque entity id.
func newID() string { return uuid.NewString() }

// storageErr tags infrastructure failures so callers can distinguish
// "safe to retry from scratch" from business failures.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStorageUnavailable, err)
}

// ─── Accounts ───────────────────────────────────────────────────────────────

// EnsureAccount creates the account row for an externally issued identity if
// it does not exist yet. Balance always starts at 0; repeated calls return
// the stored row unchanged.
func (s *Service) EnsureAccount(ctx context.Context, id, name string, role domain.Role, category domain.Category) (*domain.Account, error) {
	existing, err := s.db.GetAccount(ctx, id)
	if err != nil {
		return nil, storageErr("ensure account", err)
	}
	if existing != nil {
		return existing, nil
	}

	a := domain.Account{
		ID:        id,
		Name:      name,
		Role:      role,
		Category:  category,
		CreatedAt: s.now(),
	}
	if err := s.db.InsertAccount(ctx, a); err != nil {
		return nil, storageErr("ensure account", err)
	}
	return &a, nil
}

// GetAccount returns one account.
func (s *Service) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	a, err := s.db.GetAccount(ctx, id)
	if err != nil {
		return nil, storageErr("get account", err)
	}
	if a == nil {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// ListAccounts returns every account, for the member board.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	out, err := s.db.ListAccounts(ctx)
	if err != nil {
		return nil, storageErr("list accounts", err)
	}
	return out, nil
}

// ─── Listings (read-only display collaborators) ─────────────────────────────

// BoardTasks returns the tasks visible on the board: all non-terminal tasks
// plus completed tasks inside the display window.
func (s *Service) BoardTasks(ctx context.Context) ([]domain.Task, error) {
	cutoff := s.now().Add(-s.cfg.CompletedWindow)
	out, err := s.db.ListBoardTasks(ctx, cutoff)
	if err != nil {
		return nil, storageErr("board tasks", err)
	}
	return out, nil
}

// PendingRequests returns all tasks awaiting admin approval.
func (s *Service) PendingRequests(ctx context.Context) ([]domain.Task, error) {
	out, err := s.db.ListTasksByStatus(ctx, domain.TaskPendingApproval)
	if err != nil {
		return nil, storageErr("pending requests", err)
	}
	return out, nil
}

// RequestsBy returns the tasks one account submitted. Partners may only see
// their own; admins may see anyone's.
func (s *Service) RequestsBy(ctx context.Context, creatorID, callerID string) ([]domain.Task, error) {
	caller, err := s.account(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role != domain.RoleAdmin && callerID != creatorID {
		return nil, fmt.Errorf("list requests of %s: %w", creatorID, domain.ErrForbidden)
	}
	out, err := s.db.ListTasksByCreator(ctx, creatorID)
	if err != nil {
		return nil, storageErr("requests by", err)
	}
	return out, nil
}

// Catalog returns the active products, cheapest first.
func (s *Service) Catalog(ctx context.Context) ([]domain.Product, error) {
	out, err := s.db.ListActiveProducts(ctx)
	if err != nil {
		return nil, storageErr("catalog", err)
	}
	return out, nil
}

// RecentTransactions returns the newest ledger entries for the admin screen.
func (s *Service) RecentTransactions(ctx context.Context, callerID string) ([]domain.LedgerEntry, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	out, err := s.db.ListRecentEntries(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, storageErr("recent transactions", err)
	}
	return out, nil
}

// AccountStatement returns one account's ledger entries, newest first. An
// account may read its own statement; admins may read any.
func (s *Service) AccountStatement(ctx context.Context, accountID, callerID string) ([]domain.LedgerEntry, error) {
	if callerID != accountID {
		if err := s.requireAdmin(ctx, callerID); err != nil {
			return nil, err
		}
	}
	out, err := s.db.ListAccountEntries(ctx, accountID, s.cfg.RecentLimit)
	if err != nil {
		return nil, storageErr("account statement", err)
	}
	return out, nil
}

// AuditTrail returns the newest audit rows. Admin-only.
func (s *Service) AuditTrail(ctx context.Context, callerID string) ([]domain.AuditRecord, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	out, err := s.db.ListAuditRecords(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, storageErr("audit trail", err)
	}
	return out, nil
}

// ─── Shared helpers ─────────────────────────────────────────────────────────

// account loads the caller's account or reports NotFound.
func (s *Service) account(ctx context.Context, id string) (*domain.Account, error) {
	a, err := s.db.GetAccount(ctx, id)
	if err != nil {
		return nil, storageErr("load account", err)
	}
	if a == nil {
		return nil, fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// IsBusinessFailure reports whether err is an expected negative result
// rather than an infrastructure or programming fault.
func IsBusinessFailure(err error) bool {
	return errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrPrecondition)
}
