package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"
)

// Cancel stops an in-progress action owned by the requester. A build's
// placeholder is removed from the grid and a research frees the slot.
// Deducted resources are refunded only when Economy.RefundOnCancel is set.
func (u UseCase) Cancel(ctx context.Context, req CancelRequest) (bool, error) {
	req.ActionID = strings.TrimSpace(req.ActionID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.ActionID == "" {
		return false, u.rejected(invalid(ErrInvalidRequest))
	}

	pending, err := u.Actions.FindPending(ctx, req.ActionID)
	if errors.Is(err, ports.ErrNotFound) {
		if _, cerr := u.Actions.FindCompleted(ctx, req.ActionID); cerr == nil {
			return false, u.rejected(invalid(ErrActionNotInProgress))
		}
		return false, u.rejected(invalid(ErrActionNotFound))
	}
	if err != nil {
		return false, u.failed(fmt.Errorf("find action %s: %w", req.ActionID, err))
	}
	if pending.PlayerID != req.PlayerID {
		return false, u.rejected(invalid(ErrActionNotOwned))
	}
	if pending.Status.Terminal() {
		return false, u.rejected(invalid(ErrActionNotInProgress))
	}

	now := u.now()
	err = u.Locks.Do(pending.CityID, func() error {
		return u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			ok, err := u.Actions.MarkCancelled(txCtx, pending.ID)
			if err != nil {
				return err
			}
			if !ok {
				return invalid(ErrActionNotInProgress)
			}
			c, err := u.Cities.GetForUpdate(txCtx, pending.CityID)
			if err != nil {
				return fmt.Errorf("load city %s for action %s: %w", pending.CityID, pending.ID, err)
			}
			expectedVersion := c.Version

			var cost city.Resources
			switch p := pending.Payload.(type) {
			case lifecycle.BuildPayload:
				if cell := c.Grid.Cell(p.Position); cell != nil && cell.Building.UnderConstruction() && cell.Building.ActionID == pending.ID {
					cell.Building = nil
				}
				if def, err := u.Catalog.Building(p.BuildingType); err == nil {
					cost = def.Cost
				}
			case lifecycle.ResearchPayload:
				if c.CurrentResearch == p.TechID {
					c.CurrentResearch = ""
				}
				if def, err := u.Catalog.Tech(p.TechID); err == nil {
					cost = def.CostVector()
				}
			}
			if u.Config.Economy.RefundOnCancel && len(cost) > 0 {
				u.Simulator.Materialize(&c, now)
				capacity := u.Simulator.CalculateCapacity(c.Grid, c.BaseCapacity)
				c.Resources = c.Resources.AddCapped(cost, capacity)
			}

			c.Version = expectedVersion + 1
			return u.Cities.SaveWithVersion(txCtx, c, expectedVersion)
		})
	})
	if err != nil {
		return false, u.failed(err)
	}
	if u.Metrics != nil {
		u.Metrics.RecordCancelled()
	}
	u.logger().Info("action cancelled",
		"action_id", pending.ID,
		"city_id", pending.CityID,
		"action_type", pending.Type,
		"refunded", u.Config.Economy.RefundOnCancel,
	)
	return true, nil
}
