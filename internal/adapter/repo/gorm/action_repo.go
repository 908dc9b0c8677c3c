package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oceandepths/internal/adapter/repo/gorm/model"
	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/lifecycle"

	"gorm.io/gorm"
)

type ActionRepo struct {
	db *gorm.DB
}

func NewActionRepo(db *gorm.DB) ActionRepo {
	return ActionRepo{db: db}
}

func (r ActionRepo) InsertPending(ctx context.Context, a lifecycle.PendingAction) error {
	payload, err := lifecycle.EncodePayload(a.Payload)
	if err != nil {
		return fmt.Errorf("encode payload of action %s: %w", a.ID, err)
	}
	m := model.PendingAction{
		ID:              a.ID,
		CityID:          a.CityID,
		PlayerID:        a.PlayerID,
		ActionType:      string(a.Type),
		Status:          string(a.Status),
		StartedAt:       a.StartedAt,
		EndsAt:          a.EndsAt,
		DurationSeconds: int32(a.DurationSeconds),
		Payload:         payload,
		CompletedAt:     a.CompletedAt,
		CreatedAt:       a.CreatedAt,
	}
	if err := getDBFromCtx(ctx, r.db).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrConflict
		}
		return err
	}
	return nil
}

func (r ActionRepo) FindPending(ctx context.Context, actionID string) (lifecycle.PendingAction, error) {
	var m model.PendingAction
	if err := getDBFromCtx(ctx, r.db).Where("id = ?", actionID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lifecycle.PendingAction{}, ports.ErrNotFound
		}
		return lifecycle.PendingAction{}, err
	}
	return pendingFromModel(m)
}

func (r ActionRepo) FindCompleted(ctx context.Context, actionID string) (lifecycle.CompletedAction, error) {
	var m model.CompletedAction
	if err := getDBFromCtx(ctx, r.db).Where("original_action_id = ?", actionID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lifecycle.CompletedAction{}, ports.ErrNotFound
		}
		return lifecycle.CompletedAction{}, err
	}
	return completedFromModel(m)
}

// ClaimCompletion is a single conditional UPDATE; a concurrent claimer blocks
// on the row lock and then matches zero rows.
func (r ActionRepo) ClaimCompletion(ctx context.Context, actionID string, at time.Time) (bool, error) {
	res := getDBFromCtx(ctx, r.db).Model(&model.PendingAction{}).
		Where("id = ? AND status = ?", actionID, string(lifecycle.StatusInProgress)).
		Updates(map[string]any{
			"status":       string(lifecycle.StatusCompleted),
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r ActionRepo) MoveToCompleted(ctx context.Context, record lifecycle.CompletedAction) error {
	payload, err := lifecycle.EncodePayload(record.Payload)
	if err != nil {
		return fmt.Errorf("encode payload of action %s: %w", record.OriginalActionID, err)
	}
	result := record.Result
	if result == nil {
		result = map[string]any{}
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result of action %s: %w", record.OriginalActionID, err)
	}
	m := model.CompletedAction{
		OriginalActionID: record.OriginalActionID,
		CityID:           record.CityID,
		PlayerID:         record.PlayerID,
		ActionType:       string(record.Type),
		StartedAt:        record.StartedAt,
		EndsAt:           record.EndsAt,
		CompletedAt:      record.CompletedAt,
		DurationSeconds:  int32(record.DurationSeconds),
		Payload:          payload,
		Result:           resultJSON,
	}

	return getDBFromCtx(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ports.ErrConflict
			}
			return err
		}
		return tx.Where("id = ?", record.OriginalActionID).Delete(&model.PendingAction{}).Error
	})
}

func (r ActionRepo) MarkCancelled(ctx context.Context, actionID string) (bool, error) {
	res := getDBFromCtx(ctx, r.db).Model(&model.PendingAction{}).
		Where("id = ? AND status = ?", actionID, string(lifecycle.StatusInProgress)).
		Update("status", string(lifecycle.StatusCancelled))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r ActionRepo) ListInProgress(ctx context.Context, cityID, playerID string) ([]lifecycle.PendingAction, error) {
	rows := []model.PendingAction{}
	err := getDBFromCtx(ctx, r.db).
		Where("city_id = ? AND player_id = ? AND status = ?", cityID, playerID, string(lifecycle.StatusInProgress)).
		Order("ends_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]lifecycle.PendingAction, 0, len(rows))
	for _, row := range rows {
		a, err := pendingFromModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func pendingFromModel(m model.PendingAction) (lifecycle.PendingAction, error) {
	t := lifecycle.ActionType(m.ActionType)
	payload, err := lifecycle.DecodePayload(t, m.Payload)
	if err != nil {
		return lifecycle.PendingAction{}, fmt.Errorf("action %s: %w", m.ID, err)
	}
	return lifecycle.PendingAction{
		ID:              m.ID,
		CityID:          m.CityID,
		PlayerID:        m.PlayerID,
		Type:            t,
		StartedAt:       m.StartedAt,
		EndsAt:          m.EndsAt,
		DurationSeconds: int(m.DurationSeconds),
		Status:          lifecycle.Status(m.Status),
		Payload:         payload,
		CompletedAt:     m.CompletedAt,
		CreatedAt:       m.CreatedAt,
	}, nil
}

func completedFromModel(m model.CompletedAction) (lifecycle.CompletedAction, error) {
	t := lifecycle.ActionType(m.ActionType)
	payload, err := lifecycle.DecodePayload(t, m.Payload)
	if err != nil {
		return lifecycle.CompletedAction{}, fmt.Errorf("action %s: %w", m.OriginalActionID, err)
	}
	var result map[string]any
	if len(m.Result) > 0 {
		if err := json.Unmarshal(m.Result, &result); err != nil {
			return lifecycle.CompletedAction{}, fmt.Errorf("action %s: decode result: %w", m.OriginalActionID, err)
		}
	}
	return lifecycle.CompletedAction{
		OriginalActionID: m.OriginalActionID,
		CityID:           m.CityID,
		PlayerID:         m.PlayerID,
		Type:             t,
		StartedAt:        m.StartedAt,
		EndsAt:           m.EndsAt,
		CompletedAt:      m.CompletedAt,
		DurationSeconds:  int(m.DurationSeconds),
		Payload:          payload,
		Result:           result,
	}, nil
}
