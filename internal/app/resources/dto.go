package resources

import (
	"time"

	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/simulation"
)

type CurrentRequest struct {
	CityID   string
	PlayerID string
}

type CurrentResponse struct {
	CityID       string                `json:"city_id"`
	Resources    city.Resources        `json:"resources"`
	Capacity     city.Resources        `json:"capacity"`
	Rates        simulation.RateReport `json:"rates"`
	CalculatedAt time.Time             `json:"calculated_at"`
}

type SyncRequest struct {
	CityID   string
	PlayerID string
	// ClientResources is the client's own prediction. Nil skips drift detection.
	ClientResources city.Resources
}

type SyncResponse struct {
	CityID    string                 `json:"city_id"`
	Resources city.Resources         `json:"resources"`
	Capacity  city.Resources         `json:"capacity"`
	Rates     simulation.RateReport  `json:"rates"`
	Drift     simulation.DriftReport `json:"drift"`
	SyncedAt  time.Time              `json:"synced_at"`
}
