// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the engine — it depends on nothing.
package domain

import "time"

// ─── Account Types ──────────────────────────────────────────────────────────

// Role classifies what an account is allowed to do.
type Role string

const (
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
	RoleClient  Role = "client"
	RolePartner Role = "partner"
)

// Category is a member's skill tier. It gates which tasks a member is
// eligible for on the board; the engine treats it as a display filter,
// not a hard precondition.
type Category string

const (
	CategoryJunior Category = "junior"
	CategoryPleno  Category = "pleno"
	CategorySenior Category = "senior"
)

// Account is a member of the portal. Balance is materialized and equals the
// sum of all ledger entries for the account at any committed read; it is
// mutated only through ledger operations, never by direct assignment.
type Account struct {
	ID           string    `json:"id"` // externally issued, opaque
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Category     Category  `json:"category"`
	CanMoveTasks bool      `json:"can_move_tasks"`
	Balance      int64     `json:"balance"`
	CreatedAt    time.Time `json:"created_at"`
}

// ─── Task Types ─────────────────────────────────────────────────────────────

// TaskStatus is a task's lifecycle state.
type TaskStatus string

const (
	TaskPendingApproval TaskStatus = "pending_approval"
	TaskOpen            TaskStatus = "open"
	TaskInProgress      TaskStatus = "in_progress"
	TaskCompleted       TaskStatus = "completed" // terminal; reward issued exactly once
)

// Task is a unit of work carrying a fixed point reward.
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	PointsReward     int64      `json:"points_reward"`
	CategoryRequired Category   `json:"category_required"`
	AssignedTo       string     `json:"assigned_to,omitempty"` // empty = unassigned
	Status           TaskStatus `json:"status"`
	CreatedBy        string     `json:"created_by,omitempty"` // set for partner requests
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ─── Product Types ──────────────────────────────────────────────────────────

// Product is one catalog item purchasable with points.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PricePoints int64     `json:"price_points"`
	Stock       int64     `json:"stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ─── Ledger Types ───────────────────────────────────────────────────────────

// EntryReason is the business reason for a ledger entry.
type EntryReason string

const (
	ReasonTaskReward      EntryReason = "task_reward"
	ReasonPurchaseDebit   EntryReason = "purchase_debit"
	ReasonAdminAdjustment EntryReason = "manual_admin_adjustment"
)

// LedgerEntry is one immutable, signed point movement. Entries are
// append-only; the existence of a task_reward entry referencing a task is
// the proof that the task's reward was already paid.
type LedgerEntry struct {
	ID          string      `json:"id"`
	AccountID   string      `json:"account_id"`
	Amount      int64       `json:"amount"` // positive = credit, negative = debit
	Reason      EntryReason `json:"reason"`
	TaskID      string      `json:"task_id,omitempty"`
	ProductID   string      `json:"product_id,omitempty"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ─── Audit Types ────────────────────────────────────────────────────────────

// AuditAction identifies a privileged action kind.
type AuditAction string

const (
	AuditPromoteAdmin   AuditAction = "PROMOTE_ADMIN"
	AuditDemoteAdmin    AuditAction = "DEMOTE_ADMIN"
	AuditCreateUser     AuditAction = "CREATE_USER"
	AuditDeleteUser     AuditAction = "DELETE_USER"
	AuditApproveRequest AuditAction = "APPROVE_REQUEST"
	AuditAdjustPoints   AuditAction = "ADJUST_POINTS"
)

// AuditRecord is one append-only row describing an administrative action.
// Not involved in economic invariants, but shares the append-only design.
type AuditRecord struct {
	ID        string      `json:"id"`
	ActorID   string      `json:"actor_id"`
	Action    AuditAction `json:"action"`
	TargetID  string      `json:"target_id,omitempty"`
	Details   string      `json:"details,omitempty"` // free-form JSON payload
	CreatedAt time.Time   `json:"created_at"`
}

// ─── Purchase Result ────────────────────────────────────────────────────────

// PurchaseResult reports the outcome of a purchase. Business-rule failures
// (insufficient points, out of stock) are reported here with Success=false,
// not as errors.
type PurchaseResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Entry   *LedgerEntry `json:"entry,omitempty"`
}
