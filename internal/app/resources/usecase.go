// Package resources serves the lazily simulated resource vector of a city
// and reconciles it with client-side predictions.
package resources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"oceandepths/internal/app/action"
	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/simulation"
	"oceandepths/internal/platform/keylock"
)

type UseCase struct {
	TxManager        ports.TxManager
	Cities           ports.CityRepository
	Simulator        simulation.Simulator
	ToleranceSeconds int
	Locks            *keylock.MutexMap
	Metrics          ports.DriftMetrics
	Logger           *slog.Logger
	Now              func() time.Time
}

// Current evaluates the city's resources at now without persisting anything.
func (u UseCase) Current(ctx context.Context, req CurrentRequest) (CurrentResponse, error) {
	req.CityID = strings.TrimSpace(req.CityID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.CityID == "" || req.PlayerID == "" {
		return CurrentResponse{}, action.ErrInvalidRequest
	}
	c, err := u.Cities.GetByID(ctx, req.CityID)
	if err != nil {
		return CurrentResponse{}, cityError(req.CityID, err)
	}
	if !c.OwnedBy(req.PlayerID) {
		return CurrentResponse{}, action.ErrNotOwner
	}
	now := u.now()
	current, rates, capacity := u.Simulator.ResourcesAt(c, now)
	return CurrentResponse{
		CityID:       c.ID,
		Resources:    current,
		Capacity:     capacity,
		Rates:        rates,
		CalculatedAt: now,
	}, nil
}

// Sync persists the server-expected vector at now and reports how far the
// client prediction drifted from it. Client values are never stored.
func (u UseCase) Sync(ctx context.Context, req SyncRequest) (SyncResponse, error) {
	req.CityID = strings.TrimSpace(req.CityID)
	req.PlayerID = strings.TrimSpace(req.PlayerID)
	if req.CityID == "" || req.PlayerID == "" {
		return SyncResponse{}, action.ErrInvalidRequest
	}

	now := u.now()
	var out SyncResponse
	err := u.Locks.Do(req.CityID, func() error {
		return u.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
			c, err := u.Cities.GetForUpdate(txCtx, req.CityID)
			if err != nil {
				return cityError(req.CityID, err)
			}
			if !c.OwnedBy(req.PlayerID) {
				return action.ErrNotOwner
			}
			expectedVersion := c.Version
			expected, rates, capacity := u.Simulator.ResourcesAt(c, now)

			report := simulation.DriftReport{}
			if req.ClientResources != nil {
				report = simulation.DetectDrift(req.ClientResources, expected, rates, u.ToleranceSeconds)
			}

			c.Resources = expected
			c.LastSyncedAt = now
			c.Version = expectedVersion + 1
			if err := u.Cities.SaveWithVersion(txCtx, c, expectedVersion); err != nil {
				return err
			}
			out = SyncResponse{
				CityID:    c.ID,
				Resources: expected.Clone(),
				Capacity:  capacity,
				Rates:     rates,
				Drift:     report,
				SyncedAt:  now,
			}
			return nil
		})
	})
	if err != nil {
		return SyncResponse{}, err
	}

	if u.Metrics != nil {
		u.Metrics.RecordSync(out.Drift.Detected)
	}
	if out.Drift.Detected {
		u.logger().Warn("resource drift detected",
			"city_id", out.CityID,
			"channels", channelNames(out.Drift.Channels()),
		)
	}
	return out, nil
}

func cityError(cityID string, err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return &action.ValidationError{Reason: action.ErrCityNotFound, Detail: cityID}
	}
	return fmt.Errorf("load city %s: %w", cityID, err)
}

func channelNames(channels []city.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}

func (u UseCase) now() time.Time {
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	return now().Truncate(ports.TimeResolution)
}

func (u UseCase) logger() *slog.Logger {
	if u.Logger == nil {
		return slog.Default()
	}
	return u.Logger
}
