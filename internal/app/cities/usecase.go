// Package cities founds new cities and loads them for their owners.
package cities

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"oceandepths/internal/app/action"
	"oceandepths/internal/app/ports"
	"oceandepths/internal/config"
	"oceandepths/internal/domain/catalog"
	"oceandepths/internal/domain/city"
)

type CreateRequest struct {
	PlayerID string
	Name     string
}

type GetRequest struct {
	CityID   string
	PlayerID string
}

type UseCase struct {
	Cities  ports.CityRepository
	Catalog *catalog.Registry
	Config  config.Config
	Logger  *slog.Logger
	Now     func() time.Time
}

// Create founds a city laid out from the configured grid with the default
// resources, capacity and tier-1 technologies.
func (u UseCase) Create(ctx context.Context, req CreateRequest) (city.City, error) {
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	req.Name = strings.TrimSpace(req.Name)
	if req.PlayerID == "" {
		return city.City{}, action.ErrInvalidRequest
	}
	if req.Name == "" {
		req.Name = "New Atlantis"
	}
	workers := 0
	if def, err := u.Catalog.Building(catalog.CommandShip); err == nil {
		workers = def.WorkersRequired
	}
	now := time.Now()
	if u.Now != nil {
		now = u.Now()
	}
	now = now.Truncate(ports.TimeResolution)

	c := city.New(city.Founding{
		Name:             req.Name,
		PlayerID:         req.PlayerID,
		Width:            u.Config.Grid.Width,
		Depth:            u.Config.Grid.Height,
		AboveSurfaceRows: u.Config.Grid.AboveSurfaceRows,
		Resources:        u.Config.DefaultResources.Normalize(nil),
		Capacity:         u.Config.DefaultCapacity.Normalize(nil),
		UnlockedTechs:    u.Catalog.DefaultTechs(),
		CommandShipType:  catalog.CommandShip,
		CommandWorkers:   workers,
		Now:              now,
	})
	if err := u.Cities.Create(ctx, c); err != nil {
		return city.City{}, err
	}
	logger := u.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("city founded", "city_id", c.ID, "player_id", c.PlayerID)
	return c, nil
}

func (u UseCase) Get(ctx context.Context, req GetRequest) (city.City, error) {
	c, err := u.Cities.GetByID(ctx, strings.TrimSpace(req.CityID))
	if err != nil {
		return city.City{}, err
	}
	if !c.OwnedBy(strings.TrimSpace(req.PlayerID)) {
		return city.City{}, action.ErrNotOwner
	}
	return c, nil
}
