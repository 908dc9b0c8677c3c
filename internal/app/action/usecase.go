// Package action is the action lifecycle manager: it starts, completes,
// cancels and catches up timed build and research actions against a city.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"oceandepths/internal/app/ports"
	"oceandepths/internal/config"
	"oceandepths/internal/domain/catalog"
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"
	"oceandepths/internal/domain/simulation"
	"oceandepths/internal/platform/keylock"

	"github.com/google/uuid"
)

type UseCase struct {
	TxManager ports.TxManager
	Cities    ports.CityRepository
	Actions   ports.ActionRepository
	Catalog   *catalog.Registry
	Simulator simulation.Simulator
	Config    config.Config
	Locks     *keylock.MutexMap
	Metrics   ports.ActionMetrics
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Start validates the request against the city's extrapolated resources,
// deducts the cost and records a pending action. The read-check-deduct runs
// under the city lock inside one transaction.
func (u UseCase) Start(ctx context.Context, req StartRequest) (StartResponse, error) {
	req.CityID = strings.TrimSpace(req.CityID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.CityID == "" || req.PlayerID == "" {
		return StartResponse{}, u.rejected(invalid(ErrInvalidRequest))
	}
	if req.Payload == nil || !req.Payload.ActionType().Startable() {
		return StartResponse{}, u.rejected(invalid(ErrUnsupportedActionType))
	}

	now := u.now()
	var out StartResponse
	err := u.Locks.Do(req.CityID, func() error {
		return u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			c, err := u.Cities.GetForUpdate(txCtx, req.CityID)
			if errors.Is(err, ports.ErrNotFound) {
				return &ValidationError{Reason: ErrCityNotFound, Detail: req.CityID}
			}
			if err != nil {
				return fmt.Errorf("load city %s: %w", req.CityID, err)
			}
			if !c.OwnedBy(req.PlayerID) {
				return invalid(ErrNotOwner)
			}
			expectedVersion := c.Version
			u.Simulator.Materialize(&c, now)

			actionID := u.newID()
			var (
				payload  lifecycle.Payload
				cost     city.Resources
				duration int
				apply    func(*city.City, lifecycle.PendingAction) *city.Building
			)
			switch p := req.Payload.(type) {
			case lifecycle.BuildPayload:
				def, err := u.checkBuild(c, p)
				if err != nil {
					return err
				}
				p.BuildingID = u.newID()
				payload, cost, duration = p, def.Cost, def.BuildTimeSeconds
				apply = func(c *city.City, a lifecycle.PendingAction) *city.Building {
					return placeUnderConstruction(c, p, a)
				}
			case lifecycle.ResearchPayload:
				def, err := u.checkResearch(c, p)
				if err != nil {
					return err
				}
				payload, cost, duration = p, def.CostVector(), def.ResearchTimeSeconds
				apply = func(c *city.City, _ lifecycle.PendingAction) *city.Building {
					c.CurrentResearch = p.TechID
					return nil
				}
			default:
				return invalid(ErrUnsupportedActionType)
			}

			if ch, ok := c.Resources.Covers(cost); !ok {
				return &ValidationError{
					Reason:    ErrInsufficientResources,
					Channel:   ch,
					Required:  cost.Get(ch),
					Available: c.Resources.Get(ch),
				}
			}
			c.Resources = c.Resources.Deduct(cost)

			pending := lifecycle.NewPending(actionID, c.ID, req.PlayerID, payload, now, duration)
			building := apply(&c, pending)
			c.Version = expectedVersion + 1
			if err := u.Cities.SaveWithVersion(txCtx, c, expectedVersion); err != nil {
				return err
			}
			if err := u.Actions.InsertPending(txCtx, pending); err != nil {
				return err
			}
			out = StartResponse{Action: pending, Resources: c.Resources.Clone(), Building: building}
			return nil
		})
	})
	if err != nil {
		return StartResponse{}, u.failed(err)
	}
	if u.Metrics != nil {
		u.Metrics.RecordStarted(out.Action.Type)
	}
	u.logger().Info("action started",
		"action_id", out.Action.ID,
		"city_id", out.Action.CityID,
		"action_type", out.Action.Type,
		"ends_at", out.Action.EndsAt,
	)
	return out, nil
}

func (u UseCase) checkBuild(c city.City, p lifecycle.BuildPayload) (catalog.BuildingDefinition, error) {
	def, err := u.Catalog.Building(p.BuildingType)
	if err != nil {
		return catalog.BuildingDefinition{}, &ValidationError{Reason: ErrUnknownBuilding, Detail: p.BuildingType}
	}
	if !u.Catalog.BuildingUnlocked(p.BuildingType, c.UnlockedTechs) {
		return catalog.BuildingDefinition{}, &ValidationError{Reason: ErrBuildingLocked, Detail: p.BuildingType}
	}
	pos := p.Position
	cell := c.Grid.Cell(pos)
	switch {
	case !c.Grid.Contains(pos), cell == nil:
		return catalog.BuildingDefinition{}, &ValidationError{Reason: ErrInvalidPosition, Position: &pos}
	case cell.Depth < 0:
		return catalog.BuildingDefinition{}, &ValidationError{Reason: ErrAboveSurface, Position: &pos}
	case !cell.Unlocked:
		return catalog.BuildingDefinition{}, &ValidationError{Reason: ErrCellLocked, Position: &pos}
	case cell.Building != nil:
		return catalog.BuildingDefinition{}, &ValidationError{Reason: ErrCellOccupied, Position: &pos}
	}
	return def, nil
}

func (u UseCase) checkResearch(c city.City, p lifecycle.ResearchPayload) (catalog.TechDefinition, error) {
	def, err := u.Catalog.Tech(p.TechID)
	if err != nil {
		return catalog.TechDefinition{}, &ValidationError{Reason: ErrUnknownTech, Detail: p.TechID}
	}
	if c.HasTech(p.TechID) {
		return catalog.TechDefinition{}, &ValidationError{Reason: ErrTechAlreadyUnlocked, Detail: p.TechID}
	}
	if !u.Catalog.CanResearch(p.TechID, c.UnlockedTechs) {
		return catalog.TechDefinition{}, &ValidationError{Reason: ErrPrerequisitesUnmet, Detail: strings.Join(def.Prerequisites, ",")}
	}
	if c.CurrentResearch != "" {
		return catalog.TechDefinition{}, &ValidationError{Reason: ErrResearchSlotOccupied, Detail: c.CurrentResearch}
	}
	return def, nil
}

func placeUnderConstruction(c *city.City, p lifecycle.BuildPayload, a lifecycle.PendingAction) *city.Building {
	started, ends := a.StartedAt, a.EndsAt
	b := &city.Building{
		ID:                  p.BuildingID,
		Type:                p.BuildingType,
		Position:            p.Position,
		Level:               1,
		ActionID:            a.ID,
		ConstructionStarted: &started,
		ConstructionEnds:    &ends,
	}
	c.Grid.Cell(p.Position).Building = b
	out := *b
	return &out
}

func (u UseCase) now() time.Time {
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	return now().Truncate(ports.TimeResolution)
}

func (u UseCase) newID() string {
	if u.NewID == nil {
		return uuid.NewString()
	}
	return u.NewID()
}

func (u UseCase) logger() *slog.Logger {
	if u.Logger == nil {
		return slog.Default()
	}
	return u.Logger
}

// failed records err on the metrics and returns it unchanged.
func (u UseCase) failed(err error) error {
	if u.Metrics == nil {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		u.Metrics.RecordRejected()
	case errors.Is(err, ports.ErrConflict):
		u.Metrics.RecordConflict()
	default:
		u.Metrics.RecordFailure()
	}
	return err
}

func (u UseCase) rejected(err *ValidationError) error {
	return u.failed(err)
}
