package action

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"oceandepths/internal/domain/lifecycle"
)

// Sync attempts completion of every in-progress action of the player's city,
// earliest deadline first. It is the catch-up pass clients run on connect.
func (u UseCase) Sync(ctx context.Context, req SyncRequest) ([]lifecycle.Outcome, error) {
	actions, err := u.List(ctx, req)
	if err != nil {
		return nil, err
	}
	outcomes := make([]lifecycle.Outcome, 0, len(actions))
	for _, a := range actions {
		out, err := u.Complete(ctx, CompleteRequest{ActionID: a.ID, PlayerID: a.PlayerID})
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// List returns the in-progress actions of the player's city ordered by EndsAt.
func (u UseCase) List(ctx context.Context, req SyncRequest) ([]lifecycle.PendingAction, error) {
	req.CityID = strings.TrimSpace(req.CityID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.CityID == "" || req.PlayerID == "" {
		return nil, u.rejected(invalid(ErrInvalidRequest))
	}
	actions, err := u.Actions.ListInProgress(ctx, req.CityID, req.PlayerID)
	if err != nil {
		return nil, u.failed(fmt.Errorf("list actions for city %s: %w", req.CityID, err))
	}
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].EndsAt.Equal(actions[j].EndsAt) {
			return actions[i].ID < actions[j].ID
		}
		return actions[i].EndsAt.Before(actions[j].EndsAt)
	})
	return actions, nil
}
