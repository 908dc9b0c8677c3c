package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"oceandepths/internal/app/action"
	"oceandepths/internal/app/cities"
	"oceandepths/internal/app/ports"
	"oceandepths/internal/app/resources"
	"oceandepths/internal/config"
	"oceandepths/internal/domain/city"
	"oceandepths/internal/domain/lifecycle"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const playerIDHeader = "X-Player-ID"

type Handler struct {
	ActionUC    action.UseCase
	ResourcesUC resources.UseCase
	CitiesUC    cities.UseCase
	KPI         kpiSnapshotProvider
	Logger      *slog.Logger
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(defaultCORSPolicy().middleware())

	v1 := s.Group("/api/v1")
	v1.POST("/cities", h.createCity)
	v1.GET("/cities/:city_id", h.getCity)

	actions := v1.Group("/actions")
	actions.POST("/start", h.startAction)
	actions.POST("/complete", h.completeAction)
	actions.POST("/cancel/:action_id", h.cancelAction)
	actions.GET("/pending/:city_id", h.pendingActions)
	actions.POST("/sync/:city_id", h.syncActions)

	v1.GET("/resources/:city_id", h.currentResources)
	v1.POST("/resources/sync", h.syncResources)

	s.GET("/ops/kpi", h.kpi)
}

type createCityRequest struct {
	Name string `json:"name"`
}

type startRequest struct {
	CityID     string          `json:"city_id"`
	ActionType string          `json:"action_type"`
	Data       json.RawMessage `json:"data"`
}

type completeRequest struct {
	ActionID string `json:"action_id"`
}

type resourceSyncRequest struct {
	CityID          string         `json:"city_id"`
	ClientResources city.Resources `json:"client_resources"`
}

type actionView struct {
	ID              string               `json:"action_id"`
	CityID          string               `json:"city_id"`
	ActionType      lifecycle.ActionType `json:"action_type"`
	Status          lifecycle.Status     `json:"status"`
	StartedAt       time.Time            `json:"started_at"`
	EndsAt          time.Time            `json:"ends_at"`
	DurationSeconds int                  `json:"duration_seconds"`
	Data            lifecycle.Payload    `json:"data"`
}

type startResponse struct {
	Action    actionView     `json:"action"`
	Resources city.Resources `json:"resources"`
	Building  *city.Building `json:"base,omitempty"`
}

type cityView struct {
	ID              string         `json:"city_id"`
	Name            string         `json:"name"`
	Grid            city.Grid      `json:"grid"`
	Resources       city.Resources `json:"resources"`
	Capacity        city.Resources `json:"capacity"`
	UnlockedTechs   []string       `json:"unlocked_techs"`
	CurrentResearch string         `json:"current_research,omitempty"`
	LastSyncedAt    time.Time      `json:"resources_last_synced_at"`
	Settings        syncSettings   `json:"settings"`
}

// syncSettings tells clients how often to push resource syncs and how long
// to wait before retrying a pending completion.
type syncSettings struct {
	ResourceSyncIntervalSeconds int `json:"resource_sync_interval_seconds"`
	ActionCompleteRetrySeconds  int `json:"action_complete_retry_seconds"`
	ErrorToleranceSeconds       int `json:"error_tolerance_seconds"`
}

func newActionView(a lifecycle.PendingAction) actionView {
	return actionView{
		ID:              a.ID,
		CityID:          a.CityID,
		ActionType:      a.Type,
		Status:          a.Status,
		StartedAt:       a.StartedAt,
		EndsAt:          a.EndsAt,
		DurationSeconds: a.DurationSeconds,
		Data:            a.Payload,
	}
}

func newCityView(c city.City, cfg config.Config) cityView {
	return cityView{
		ID:              c.ID,
		Name:            c.Name,
		Grid:            c.Grid,
		Resources:       c.Resources,
		Capacity:        c.BaseCapacity,
		UnlockedTechs:   c.UnlockedTechs,
		CurrentResearch: c.CurrentResearch,
		LastSyncedAt:    c.LastSyncedAt,
		Settings: syncSettings{
			ResourceSyncIntervalSeconds: cfg.Sync.IntervalSeconds,
			ActionCompleteRetrySeconds:  cfg.Sync.CompleteRetrySeconds,
			ErrorToleranceSeconds:       cfg.Sync.ToleranceSeconds,
		},
	}
}

func (h Handler) createCity(c context.Context, ctx *app.RequestContext) {
	var body createCityRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	created, err := h.CitiesUC.Create(c, cities.CreateRequest{PlayerID: playerID(ctx), Name: body.Name})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, newCityView(created, h.CitiesUC.Config))
}

func (h Handler) getCity(c context.Context, ctx *app.RequestContext) {
	got, err := h.CitiesUC.Get(c, cities.GetRequest{CityID: ctx.Param("city_id"), PlayerID: playerID(ctx)})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, newCityView(got, h.CitiesUC.Config))
}

func (h Handler) startAction(c context.Context, ctx *app.RequestContext) {
	var body startRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	t := lifecycle.ActionType(strings.TrimSpace(body.ActionType))
	if !t.Startable() {
		writeErrorBody(ctx, consts.StatusBadRequest, action.Code(action.ErrUnsupportedActionType), action.ErrUnsupportedActionType.Error())
		return
	}
	if len(body.Data) == 0 {
		body.Data = json.RawMessage("{}")
	}
	payload, err := lifecycle.DecodePayload(t, body.Data)
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_action_data", err.Error())
		return
	}

	resp, err := h.ActionUC.Start(c, action.StartRequest{CityID: body.CityID, PlayerID: playerID(ctx), Payload: payload})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, startResponse{
		Action:    newActionView(resp.Action),
		Resources: resp.Resources,
		Building:  resp.Building,
	})
}

func (h Handler) completeAction(c context.Context, ctx *app.RequestContext) {
	var body completeRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	out, err := h.ActionUC.Complete(c, action.CompleteRequest{ActionID: body.ActionID, PlayerID: playerID(ctx)})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeOutcome(ctx, out)
}

func (h Handler) cancelAction(c context.Context, ctx *app.RequestContext) {
	actionID := ctx.Param("action_id")
	ok, err := h.ActionUC.Cancel(c, action.CancelRequest{ActionID: actionID, PlayerID: playerID(ctx)})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"action_id": actionID,
		"cancelled": ok,
	})
}

func (h Handler) pendingActions(c context.Context, ctx *app.RequestContext) {
	list, err := h.ActionUC.List(c, action.SyncRequest{CityID: ctx.Param("city_id"), PlayerID: playerID(ctx)})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	views := make([]actionView, 0, len(list))
	for _, a := range list {
		views = append(views, newActionView(a))
	}
	ctx.JSON(consts.StatusOK, map[string]any{"actions": views})
}

func (h Handler) syncActions(c context.Context, ctx *app.RequestContext) {
	outcomes, err := h.ActionUC.Sync(c, action.SyncRequest{CityID: ctx.Param("city_id"), PlayerID: playerID(ctx)})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	if outcomes == nil {
		outcomes = []lifecycle.Outcome{}
	}
	ctx.JSON(consts.StatusOK, map[string]any{"outcomes": outcomes})
}

func (h Handler) currentResources(c context.Context, ctx *app.RequestContext) {
	resp, err := h.ResourcesUC.Current(c, resources.CurrentRequest{CityID: ctx.Param("city_id"), PlayerID: playerID(ctx)})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) syncResources(c context.Context, ctx *app.RequestContext) {
	var body resourceSyncRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.ResourcesUC.Sync(c, resources.SyncRequest{
		CityID:          body.CityID,
		PlayerID:        playerID(ctx),
		ClientResources: body.ClientResources,
	})
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func playerID(ctx *app.RequestContext) string {
	return strings.TrimSpace(string(ctx.GetHeader(playerIDHeader)))
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// writeOutcome maps a completion outcome onto a status code. A pending
// outcome is not an error: the client retries after remaining_seconds, which is
// also sent as Retry-After.
func (h Handler) writeOutcome(ctx *app.RequestContext, out lifecycle.Outcome) {
	switch out.Status {
	case lifecycle.OutcomeCompleted:
		ctx.JSON(consts.StatusOK, out)
	case lifecycle.OutcomePending:
		ctx.Response.Header.Set(retryAfterHeader, strconv.Itoa(out.RemainingSeconds))
		ctx.JSON(consts.StatusAccepted, out)
	default:
		status := statusFor(out.Err)
		ctx.JSON(status, map[string]any{
			"status":      out.Status,
			"action_id":   out.ActionID,
			"action_type": out.ActionType,
			"error": map[string]string{
				"code":    codeFor(out.Err),
				"message": out.Error,
			},
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, action.ErrNotOwner), errors.Is(err, action.ErrActionNotOwned):
		return consts.StatusForbidden
	case errors.Is(err, action.ErrCityNotFound), errors.Is(err, action.ErrActionNotFound):
		return consts.StatusNotFound
	case errors.Is(err, action.ErrActionNotDue):
		return consts.StatusAccepted
	case errors.Is(err, action.ErrValidation):
		return consts.StatusBadRequest
	case errors.Is(err, ports.ErrConflict):
		return consts.StatusConflict
	case errors.Is(err, ports.ErrNotFound):
		return consts.StatusNotFound
	default:
		return consts.StatusInternalServerError
	}
}

func codeFor(err error) string {
	if code := action.Code(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, ports.ErrConflict):
		return "conflict"
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

func (h Handler) writeError(ctx *app.RequestContext, err error) {
	status := statusFor(err)
	if status == consts.StatusInternalServerError {
		h.logger().Error("request failed",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"error", err,
		)
		writeErrorBody(ctx, status, "internal_error", "internal error")
		return
	}
	body := map[string]any{
		"code":    codeFor(err),
		"message": err.Error(),
	}
	var verr *action.ValidationError
	if errors.As(err, &verr) {
		if verr.Channel != "" {
			body["details"] = map[string]any{
				"channel":   verr.Channel,
				"required":  verr.Required,
				"available": verr.Available,
			}
		}
		if verr.Position != nil {
			body["details"] = map[string]any{"position": verr.Position}
		}
	}
	ctx.JSON(status, map[string]any{"error": body})
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func (h Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
