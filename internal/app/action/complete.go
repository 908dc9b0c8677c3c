package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"
)

// Complete finishes a due action. Only the caller that wins the
// in_progress→completed claim applies the world mutation; everyone else,
// including later retries, gets the recorded completion back.
//
// The returned error is reserved for infrastructure failures. Unknown,
// foreign and cancelled actions come back as a failed outcome.
func (u UseCase) Complete(ctx context.Context, req CompleteRequest) (lifecycle.Outcome, error) {
	req.ActionID = strings.TrimSpace(req.ActionID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.ActionID == "" {
		return u.failedOutcome(req.ActionID, "", invalid(ErrInvalidRequest)), nil
	}
	now := u.now()

	pending, err := u.Actions.FindPending(ctx, req.ActionID)
	if errors.Is(err, ports.ErrNotFound) {
		return u.replay(ctx, req)
	}
	if err != nil {
		return lifecycle.Outcome{}, u.failed(fmt.Errorf("find action %s: %w", req.ActionID, err))
	}
	if pending.PlayerID != req.PlayerID {
		return u.failedOutcome(pending.ID, pending.Type, invalid(ErrActionNotOwned)), nil
	}
	if out, done := settledOutcome(pending); done {
		return out, nil
	}
	if !pending.Due(now) {
		remaining := pending.RemainingSeconds(now)
		if u.Metrics != nil {
			u.Metrics.RecordPending()
		}
		return lifecycle.Outcome{
			Status:           lifecycle.OutcomePending,
			ActionID:         pending.ID,
			ActionType:       pending.Type,
			RemainingSeconds: remaining,
			Err:              &NotDueError{ActionID: pending.ID, RemainingSeconds: remaining},
		}, nil
	}

	var out lifecycle.Outcome
	won := false
	err = u.Locks.Do(pending.CityID, func() error {
		return u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			claimed, err := u.Actions.ClaimCompletion(txCtx, pending.ID, now)
			if err != nil {
				return err
			}
			if !claimed {
				out, err = u.afterLostClaim(txCtx, pending)
				return err
			}

			c, err := u.Cities.GetForUpdate(txCtx, pending.CityID)
			if err != nil {
				return fmt.Errorf("load city %s for action %s: %w", pending.CityID, pending.ID, err)
			}
			expectedVersion := c.Version
			result, err := u.applyCompletion(&c, pending, now)
			if err != nil {
				return err
			}
			c.Version = expectedVersion + 1
			if err := u.Cities.SaveWithVersion(txCtx, c, expectedVersion); err != nil {
				return err
			}
			if err := u.Actions.MoveToCompleted(txCtx, pending.Completed(now, result)); err != nil {
				return err
			}
			completedAt := now
			out = lifecycle.Outcome{
				Status:      lifecycle.OutcomeCompleted,
				ActionID:    pending.ID,
				ActionType:  pending.Type,
				CompletedAt: &completedAt,
			}
			won = true
			return nil
		})
	})
	if err != nil {
		return lifecycle.Outcome{}, u.failed(err)
	}
	if won {
		if u.Metrics != nil {
			u.Metrics.RecordCompleted(pending.Type)
		}
		u.logger().Info("action completed",
			"action_id", pending.ID,
			"city_id", pending.CityID,
			"action_type", pending.Type,
		)
	}
	return out, nil
}

// replay answers a completion for an action that already left the pending
// store.
func (u UseCase) replay(ctx context.Context, req CompleteRequest) (lifecycle.Outcome, error) {
	record, err := u.Actions.FindCompleted(ctx, req.ActionID)
	if errors.Is(err, ports.ErrNotFound) {
		return u.failedOutcome(req.ActionID, "", invalid(ErrActionNotFound)), nil
	}
	if err != nil {
		return lifecycle.Outcome{}, u.failed(fmt.Errorf("find completed action %s: %w", req.ActionID, err))
	}
	if record.PlayerID != req.PlayerID {
		return u.failedOutcome(record.OriginalActionID, record.Type, invalid(ErrActionNotOwned)), nil
	}
	return completedOutcome(record), nil
}

// afterLostClaim runs inside the loser's transaction, once the winner's
// changes are visible.
func (u UseCase) afterLostClaim(ctx context.Context, pending lifecycle.PendingAction) (lifecycle.Outcome, error) {
	current, err := u.Actions.FindPending(ctx, pending.ID)
	if err == nil {
		if out, done := settledOutcome(current); done {
			return out, nil
		}
		return u.failedOutcome(pending.ID, pending.Type, invalid(ErrActionNotInProgress)), nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return lifecycle.Outcome{}, err
	}
	// the pending row is dropped together with the audit insert
	record, err := u.Actions.FindCompleted(ctx, pending.ID)
	if errors.Is(err, ports.ErrNotFound) {
		return u.failedOutcome(pending.ID, pending.Type, invalid(ErrActionNotFound)), nil
	}
	if err != nil {
		return lifecycle.Outcome{}, err
	}
	return completedOutcome(record), nil
}

func (u UseCase) applyCompletion(c *city.City, a lifecycle.PendingAction, now time.Time) (map[string]any, error) {
	switch p := a.Payload.(type) {
	case lifecycle.BuildPayload:
		def, err := u.Catalog.Building(p.BuildingType)
		if err != nil {
			return nil, err
		}
		cell := c.Grid.Cell(p.Position)
		if cell == nil || !cell.Building.UnderConstruction() || cell.Building.ActionID != a.ID {
			return nil, fmt.Errorf("%w: action %s at (%d,%d)", ErrPlaceholderMissing, a.ID, p.Position.X, p.Position.Y)
		}
		// Production accrued so far belongs to the layout without the new building.
		u.Simulator.Materialize(c, now)

		b := cell.Building
		b.Operational = true
		b.ConstructionProgress = 100
		b.Workers = def.WorkersRequired
		b.ActionID = ""
		b.ConstructionStarted = nil
		b.ConstructionEnds = nil
		unlocked := c.Grid.UnlockSides(p.Position, def.ConnectionSides)
		return map[string]any{
			"building_id":    b.ID,
			"building_type":  b.Type,
			"position":       p.Position,
			"unlocked_cells": unlocked,
		}, nil
	case lifecycle.ResearchPayload:
		c.UnlockTech(p.TechID)
		if c.CurrentResearch == p.TechID {
			c.CurrentResearch = ""
		}
		return map[string]any{"tech_id": p.TechID}, nil
	default:
		return nil, fmt.Errorf("complete action %s: %w", a.ID, ErrUnsupportedActionType)
	}
}

// settledOutcome reports the outcome of an action already out of
// in_progress.
func settledOutcome(a lifecycle.PendingAction) (lifecycle.Outcome, bool) {
	switch a.Status {
	case lifecycle.StatusCompleted:
		out := lifecycle.Outcome{Status: lifecycle.OutcomeCompleted, ActionID: a.ID, ActionType: a.Type}
		if a.CompletedAt != nil {
			at := *a.CompletedAt
			out.CompletedAt = &at
		}
		return out, true
	case lifecycle.StatusCancelled:
		err := invalid(ErrActionCancelled)
		return lifecycle.Outcome{
			Status:     lifecycle.OutcomeFailed,
			ActionID:   a.ID,
			ActionType: a.Type,
			Error:      err.Error(),
			Err:        err,
		}, true
	}
	return lifecycle.Outcome{}, false
}

func completedOutcome(record lifecycle.CompletedAction) lifecycle.Outcome {
	at := record.CompletedAt
	return lifecycle.Outcome{
		Status:      lifecycle.OutcomeCompleted,
		ActionID:    record.OriginalActionID,
		ActionType:  record.Type,
		CompletedAt: &at,
	}
}

func (u UseCase) failedOutcome(actionID string, t lifecycle.ActionType, err *ValidationError) lifecycle.Outcome {
	if u.Metrics != nil {
		u.Metrics.RecordRejected()
	}
	return lifecycle.Outcome{
		Status:     lifecycle.OutcomeFailed,
		ActionID:   actionID,
		ActionType: t,
		Error:      err.Error(),
		Err:        err,
	}
}
