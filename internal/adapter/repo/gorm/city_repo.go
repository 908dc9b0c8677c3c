package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oceandepths/internal/adapter/repo/gorm/model"
	"oceandepths/internal/app/ports"
	"oceandepths/internal/domain/city"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CityRepo struct {
	db *gorm.DB
}

func NewCityRepo(db *gorm.DB) CityRepo {
	return CityRepo{db: db}
}

func (r CityRepo) GetByID(ctx context.Context, cityID string) (city.City, error) {
	return r.get(getDBFromCtx(ctx, r.db), cityID)
}

// GetForUpdate takes a row lock held until the surrounding transaction ends.
// Outside a transaction it degrades to GetByID.
func (r CityRepo) GetForUpdate(ctx context.Context, cityID string) (city.City, error) {
	db := getDBFromCtx(ctx, r.db)
	if inTx(ctx) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(db, cityID)
}

func (r CityRepo) get(db *gorm.DB, cityID string) (city.City, error) {
	var m model.City
	if err := db.Where("id = ?", cityID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return city.City{}, ports.ErrNotFound
		}
		return city.City{}, err
	}
	return cityFromModel(m)
}

func (r CityRepo) Create(ctx context.Context, c city.City) error {
	m, err := cityToModel(c)
	if err != nil {
		return err
	}
	if err := getDBFromCtx(ctx, r.db).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrConflict
		}
		return err
	}
	return nil
}

func (r CityRepo) SaveWithVersion(ctx context.Context, c city.City, expectedVersion int64) error {
	m, err := cityToModel(c)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"name":                     m.Name,
		"grid":                     m.Grid,
		"resources":                m.Resources,
		"base_capacity":            m.BaseCapacity,
		"unlocked_techs":           m.UnlockedTechs,
		"current_research":         m.CurrentResearch,
		"resources_last_synced_at": m.ResourcesLastSyncedAt,
		"version":                  m.Version,
		"updated_at":               time.Now(),
	}

	res := getDBFromCtx(ctx, r.db).Model(&model.City{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}

func (r CityRepo) ListIDsByPlayer(ctx context.Context, playerID string) ([]string, error) {
	ids := []string{}
	err := getDBFromCtx(ctx, r.db).Model(&model.City{}).
		Where("player_id = ?", playerID).
		Order("created_at").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func cityToModel(c city.City) (model.City, error) {
	grid, err := json.Marshal(c.Grid)
	if err != nil {
		return model.City{}, fmt.Errorf("encode grid: %w", err)
	}
	resources, _ := json.Marshal(nonNil(c.Resources))
	capacity, _ := json.Marshal(nonNil(c.BaseCapacity))
	techs := c.UnlockedTechs
	if techs == nil {
		techs = []string{}
	}
	unlocked, _ := json.Marshal(techs)

	m := model.City{
		ID:              c.ID,
		PlayerID:        c.PlayerID,
		Name:            c.Name,
		Grid:            grid,
		Resources:       resources,
		BaseCapacity:    capacity,
		UnlockedTechs:   unlocked,
		CurrentResearch: c.CurrentResearch,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
	}
	if !c.LastSyncedAt.IsZero() {
		at := c.LastSyncedAt
		m.ResourcesLastSyncedAt = &at
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return m, nil
}

func cityFromModel(m model.City) (city.City, error) {
	c := city.City{
		ID:              m.ID,
		PlayerID:        m.PlayerID,
		Name:            m.Name,
		CurrentResearch: m.CurrentResearch,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
	}
	if err := json.Unmarshal(m.Grid, &c.Grid); err != nil {
		return city.City{}, fmt.Errorf("decode grid of city %s: %w", m.ID, err)
	}
	if len(m.Resources) > 0 {
		if err := json.Unmarshal(m.Resources, &c.Resources); err != nil {
			return city.City{}, fmt.Errorf("decode resources of city %s: %w", m.ID, err)
		}
	}
	if len(m.BaseCapacity) > 0 {
		if err := json.Unmarshal(m.BaseCapacity, &c.BaseCapacity); err != nil {
			return city.City{}, fmt.Errorf("decode capacity of city %s: %w", m.ID, err)
		}
	}
	if len(m.UnlockedTechs) > 0 {
		if err := json.Unmarshal(m.UnlockedTechs, &c.UnlockedTechs); err != nil {
			return city.City{}, fmt.Errorf("decode techs of city %s: %w", m.ID, err)
		}
	}
	if m.ResourcesLastSyncedAt != nil {
		c.LastSyncedAt = m.ResourcesLastSyncedAt.UTC()
	}
	return c, nil
}

func nonNil(r city.Resources) city.Resources {
	if r == nil {
		return city.Resources{}
	}
	return r
}
