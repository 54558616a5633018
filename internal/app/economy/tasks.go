package economy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/guildnet/guildpoints/internal/domain"
	"github.com/guildnet/guildpoints/internal/infra/observability"
	"github.com/guildnet/guildpoints/internal/infra/sqlite"
)

// ─── Task State Machine ─────────────────────────────────────────────────────
//
//	pending_approval ──approve──▶ open ◀──────┐
//	                               │ assign   │ transition(open)
//	                               ▼          │
//	                           in_progress ───┘
//	                               │ complete (pays reward, exactly once)
//	                               ▼
//	                           completed (terminal)

// CompleteOutcome is the success payload of Complete.
type CompleteOutcome struct {
	Task  domain.Task        `json:"task"`
	Entry domain.LedgerEntry `json:"entry"`
}

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", fmt.Errorf("title is required: %w", domain.ErrPrecondition)
	}
	return t, nil
}

// SubmitRequest files a partner task request. Requests always start in
// pending_approval regardless of input; the suggested reward is advisory
// until an admin approves it.
func (s *Service) SubmitRequest(ctx context.Context, title, description string, suggestedReward int64, requesterID string) (*domain.Task, error) {
	if err := s.requirePartner(ctx, requesterID); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if suggestedReward < 0 {
		return nil, fmt.Errorf("reward must be non-negative: %w", domain.ErrPrecondition)
	}

	now := s.now()
	t := domain.Task{
		ID:               newID(),
		Title:            title,
		Description:      description,
		PointsReward:     suggestedReward,
		CategoryRequired: domain.CategoryJunior,
		Status:           domain.TaskPendingApproval,
		CreatedBy:        requesterID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.db.InsertTask(ctx, t); err != nil {
		return nil, storageErr("submit request", err)
	}

	observability.TaskTransitions.WithLabelValues(string(domain.TaskPendingApproval)).Inc()
	log.Printf("[engine] request %s submitted by partner %s (suggested %d pts)", t.ID, requesterID, suggestedReward)
	return &t, nil
}

// ApproveRequest promotes a pending request to the open board with the
// admin-set final reward. The reward is frozen from this point on.
func (s *Service) ApproveRequest(ctx context.Context, taskID string, finalReward int64, callerID string) (*domain.Task, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if finalReward < 0 {
		return nil, fmt.Errorf("reward must be non-negative: %w", domain.ErrPrecondition)
	}

	t, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TaskPendingApproval {
		return nil, fmt.Errorf("task %s is %s, not pending_approval: %w", taskID, t.Status, domain.ErrInvalidState)
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := sqlite.ApproveTaskTx(tx, taskID, finalReward, now)
		if err != nil {
			return storageErr("approve request", err)
		}
		if !ok {
			// A racer approved (or otherwise moved) the task between our read
			// and the guarded write.
			observability.Conflicts.WithLabelValues("approve").Inc()
			return fmt.Errorf("task %s left pending_approval concurrently: %w", taskID, domain.ErrConflict)
		}
		details, _ := json.Marshal(map[string]any{"final_reward": finalReward})
		return sqlite.InsertAuditRecordTx(tx, domain.AuditRecord{
			ID:        newID(),
			ActorID:   callerID,
			Action:    domain.AuditApproveRequest,
			TargetID:  taskID,
			Details:   string(details),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskOpen
	t.PointsReward = finalReward
	t.UpdatedAt = now
	observability.TaskTransitions.WithLabelValues(string(domain.TaskOpen)).Inc()
	log.Printf("[engine] request %s approved by %s (final %d pts)", taskID, callerID, finalReward)
	return t, nil
}

// CreateTask creates an open task directly, bypassing approval. Admin-only.
func (s *Service) CreateTask(ctx context.Context, title, description string, reward int64, minCategory domain.Category, callerID string) (*domain.Task, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if reward < 0 {
		return nil, fmt.Errorf("reward must be non-negative: %w", domain.ErrPrecondition)
	}
	if minCategory == "" {
		minCategory = domain.CategoryJunior
	}

	now := s.now()
	t := domain.Task{
		ID:               newID(),
		Title:            title,
		Description:      description,
		PointsReward:     reward,
		CategoryRequired: minCategory,
		Status:           domain.TaskOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.db.InsertTask(ctx, t); err != nil {
		return nil, storageErr("create task", err)
	}

	observability.TaskTransitions.WithLabelValues(string(domain.TaskOpen)).Inc()
	log.Printf("[engine] task %s created by admin %s (%d pts)", t.ID, callerID, reward)
	return &t, nil
}

// Assign sets (or changes) the assignee and moves the task to in_progress.
// Reassignment is permitted until completion.
func (s *Service) Assign(ctx context.Context, taskID, memberID, callerID string) (*domain.Task, error) {
	if err := s.requireMover(ctx, callerID); err != nil {
		return nil, err
	}
	if _, err := s.account(ctx, memberID); err != nil {
		return nil, err
	}

	t, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TaskCompleted || t.Status == domain.TaskPendingApproval {
		return nil, fmt.Errorf("cannot assign task in state %s: %w", t.Status, domain.ErrInvalidState)
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := sqlite.AssignTaskTx(tx, taskID, memberID, now)
		if err != nil {
			return storageErr("assign", err)
		}
		if !ok {
			observability.Conflicts.WithLabelValues("assign").Inc()
			return fmt.Errorf("task %s changed state concurrently: %w", taskID, domain.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.AssignedTo = memberID
	t.Status = domain.TaskInProgress
	t.UpdatedAt = now
	observability.TaskTransitions.WithLabelValues(string(domain.TaskInProgress)).Inc()
	log.Printf("[engine] task %s assigned to %s by %s", taskID, memberID, callerID)
	return t, nil
}

// Transition moves a task between open and in_progress. Moving backward to
// open is allowed and never touches the ledger; completion has its own path.
func (s *Service) Transition(ctx context.Context, taskID string, target domain.TaskStatus, callerID string) (*domain.Task, error) {
	if err := s.requireMover(ctx, callerID); err != nil {
		return nil, err
	}
	if target != domain.TaskOpen && target != domain.TaskInProgress {
		return nil, fmt.Errorf("transition target must be open or in_progress, got %s: %w", target, domain.ErrInvalidState)
	}

	t, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TaskCompleted || t.Status == domain.TaskPendingApproval {
		return nil, fmt.Errorf("cannot move task in state %s: %w", t.Status, domain.ErrInvalidState)
	}
	if t.Status == target {
		return t, nil
	}
	if target == domain.TaskInProgress && t.AssignedTo == "" {
		return nil, fmt.Errorf("task needs an assignee: %w", domain.ErrPrecondition)
	}

	now := s.now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := sqlite.MoveTaskTx(tx, taskID, t.Status, target, now)
		if err != nil {
			return storageErr("transition", err)
		}
		if !ok {
			observability.Conflicts.WithLabelValues("transition").Inc()
			return fmt.Errorf("task %s changed state concurrently: %w", taskID, domain.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.Status = target
	t.UpdatedAt = now
	observability.TaskTransitions.WithLabelValues(string(target)).Inc()
	return t, nil
}

// Complete finishes an in_progress task and pays its reward to the assignee,
// exactly once. The in-transaction guard re-checks the status so that of N
// concurrent completers exactly one wins; the rest abort with Conflict and
// write nothing.
func (s *Service) Complete(ctx context.Context, taskID, callerID string) (*CompleteOutcome, error) {
	t, err := s.task(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.AssignedTo == "" {
		return nil, fmt.Errorf("task needs an assignee: %w", domain.ErrPrecondition)
	}
	if t.Status != domain.TaskInProgress {
		return nil, fmt.Errorf("task %s is %s, not in_progress: %w", taskID, t.Status, domain.ErrInvalidState)
	}
	if err := s.requireMover(ctx, callerID); err != nil {
		return nil, err
	}

	now := s.now()
	entry := domain.LedgerEntry{
		ID:          newID(),
		AccountID:   t.AssignedTo,
		Amount:      t.PointsReward,
		Reason:      domain.ReasonTaskReward,
		TaskID:      taskID,
		Description: fmt.Sprintf("reward: %s", t.Title),
		CreatedAt:   now,
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ok, err := sqlite.CompleteTaskTx(tx, taskID, now)
		if err != nil {
			return storageErr("complete", err)
		}
		if !ok {
			// Lost the race: someone completed (or reopened) the task after
			// our read. No ledger mutation happens.
			observability.Conflicts.WithLabelValues("complete").Inc()
			return fmt.Errorf("task %s already left in_progress: %w", taskID, domain.ErrConflict)
		}
		if t.PointsReward > 0 {
			if err := sqlite.CreditBalanceTx(tx, t.AssignedTo, t.PointsReward); err != nil {
				return storageErr("complete: credit", err)
			}
		}
		if err := sqlite.InsertLedgerEntryTx(tx, entry); err != nil {
			return storageErr("complete: ledger", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	t.Status = domain.TaskCompleted
	t.UpdatedAt = now
	observability.TaskTransitions.WithLabelValues(string(domain.TaskCompleted)).Inc()
	observability.RewardPayouts.Inc()
	observability.LedgerEntries.WithLabelValues(string(domain.ReasonTaskReward)).Inc()
	observability.PointsIssued.WithLabelValues(string(domain.ReasonTaskReward)).Add(float64(t.PointsReward))
	log.Printf("[engine] task %s completed by %s, %d pts to %s", taskID, callerID, t.PointsReward, t.AssignedTo)

	return &CompleteOutcome{Task: *t, Entry: entry}, nil
}

// task loads a task or reports NotFound.
func (s *Service) task(ctx context.Context, id string) (*domain.Task, error) {
	t, err := s.db.GetTask(ctx, id)
	if err != nil {
		return nil, storageErr("load task", err)
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}
