package action

import (
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"
)

type StartRequest struct {
	CityID   string
	PlayerID string
	Payload  lifecycle.Payload
}

type StartResponse struct {
	Action    lifecycle.PendingAction
	Resources city.Resources
	Building  *city.Building
}

type CompleteRequest struct {
	ActionID string
	PlayerID string
}

type CancelRequest struct {
	ActionID string
	PlayerID string
}

type SyncRequest struct {
	CityID   string
	PlayerID string
}
