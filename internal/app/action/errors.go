package action

import (
	"errors"
	"fmt"

	"oceandepths/internal/domain/city"
)

// ErrValidation is wrapped by every caller-correctable failure.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidRequest        = fmt.Errorf("%w: invalid action request", ErrValidation)
	ErrUnsupportedActionType = fmt.Errorf("%w: unsupported action type", ErrValidation)
	ErrCityNotFound          = fmt.Errorf("%w: city not found", ErrValidation)
	ErrNotOwner              = fmt.Errorf("%w: city not owned by player", ErrValidation)
	ErrUnknownBuilding       = fmt.Errorf("%w: unknown building type", ErrValidation)
	ErrUnknownTech           = fmt.Errorf("%w: unknown technology", ErrValidation)
	ErrInvalidPosition       = fmt.Errorf("%w: position outside grid", ErrValidation)
	ErrAboveSurface          = fmt.Errorf("%w: cannot build above the surface", ErrValidation)
	ErrCellLocked            = fmt.Errorf("%w: cell locked", ErrValidation)
	ErrCellOccupied          = fmt.Errorf("%w: cell occupied", ErrValidation)
	ErrBuildingLocked        = fmt.Errorf("%w: building type not unlocked", ErrValidation)
	ErrInsufficientResources = fmt.Errorf("%w: insufficient resources", ErrValidation)
	ErrTechAlreadyUnlocked   = fmt.Errorf("%w: technology already unlocked", ErrValidation)
	ErrPrerequisitesUnmet    = fmt.Errorf("%w: prerequisites not met", ErrValidation)
	ErrResearchSlotOccupied  = fmt.Errorf("%w: research already in progress", ErrValidation)
	ErrActionNotFound        = fmt.Errorf("%w: action not found", ErrValidation)
	ErrActionNotOwned        = fmt.Errorf("%w: action not owned by player", ErrValidation)
	ErrActionCancelled       = fmt.Errorf("%w: action cancelled", ErrValidation)
	ErrActionNotInProgress   = fmt.Errorf("%w: action not in progress", ErrValidation)
)

var (
	// ErrActionNotDue is the "try later" signal of a completion that came too early.
	ErrActionNotDue = errors.New("action not yet due")
	// ErrPlaceholderMissing means the grid lost the construction placeholder
	// of an in-progress build; the city document is inconsistent.
	ErrPlaceholderMissing = errors.New("construction placeholder missing")
)

type ValidationError struct {
	Reason    error
	Channel   city.Channel
	Required  int
	Available int
	Position  *city.Position
	Detail    string
}

func (e *ValidationError) Error() string {
	msg := e.Reason.Error()
	switch {
	case e.Channel != "":
		return fmt.Sprintf("%s: %s requires %d, have %d", msg, e.Channel, e.Required, e.Available)
	case e.Position != nil:
		return fmt.Sprintf("%s at (%d,%d)", msg, e.Position.X, e.Position.Y)
	case e.Detail != "":
		return msg + ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

type NotDueError struct {
	ActionID         string
	RemainingSeconds int
}

func (e *NotDueError) Error() string {
	return fmt.Sprintf("%s: %d seconds remaining", ErrActionNotDue, e.RemainingSeconds)
}

func (e *NotDueError) Unwrap() error {
	return ErrActionNotDue
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidRequest, "invalid_request"},
	{ErrUnsupportedActionType, "unsupported_action_type"},
	{ErrCityNotFound, "city_not_found"},
	{ErrNotOwner, "not_owner"},
	{ErrUnknownBuilding, "unknown_building"},
	{ErrUnknownTech, "unknown_tech"},
	{ErrInvalidPosition, "invalid_position"},
	{ErrAboveSurface, "above_surface"},
	{ErrCellLocked, "cell_locked"},
	{ErrCellOccupied, "cell_occupied"},
	{ErrBuildingLocked, "building_locked"},
	{ErrInsufficientResources, "insufficient_resources"},
	{ErrTechAlreadyUnlocked, "tech_already_unlocked"},
	{ErrPrerequisitesUnmet, "prerequisites_unmet"},
	{ErrResearchSlotOccupied, "research_slot_occupied"},
	{ErrActionNotFound, "action_not_found"},
	{ErrActionNotOwned, "action_not_owned"},
	{ErrActionCancelled, "action_cancelled"},
	{ErrActionNotInProgress, "action_not_in_progress"},
	{ErrActionNotDue, "action_not_due"},
}

// Code maps err to a stable machine-readable code; "" when err is not one of
// the lifecycle errors.
func Code(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

func invalid(reason error) *ValidationError {
	return &ValidationError{Reason: reason}
}
