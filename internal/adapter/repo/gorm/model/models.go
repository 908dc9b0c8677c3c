package model

import "time"

const (
	TableNameCity            = "cities"
	TableNamePendingAction   = "pending_actions"
	TableNameCompletedAction = "completed_actions"
)

// City mapped from table <cities>
type City struct {
	ID                    string     `gorm:"column:id;primaryKey" json:"id"`
	PlayerID              string     `gorm:"column:player_id;not null" json:"player_id"`
	Name                  string     `gorm:"column:name;not null" json:"name"`
	Grid                  []byte     `gorm:"column:grid;type:jsonb;not null" json:"grid"`
	Resources             []byte     `gorm:"column:resources;type:jsonb;not null" json:"resources"`
	BaseCapacity          []byte     `gorm:"column:base_capacity;type:jsonb;not null" json:"base_capacity"`
	UnlockedTechs         []byte     `gorm:"column:unlocked_techs;type:jsonb;not null" json:"unlocked_techs"`
	CurrentResearch       string     `gorm:"column:current_research;not null" json:"current_research"`
	ResourcesLastSyncedAt *time.Time `gorm:"column:resources_last_synced_at" json:"resources_last_synced_at"`
	Version               int64      `gorm:"column:version;not null" json:"version"`
	CreatedAt             time.Time  `gorm:"column:created_at;not null;default:now()" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;not null;default:now()" json:"updated_at"`
}

// TableName City's table name
func (*City) TableName() string {
	return TableNameCity
}

// PendingAction mapped from table <pending_actions>
type PendingAction struct {
	ID              string     `gorm:"column:id;primaryKey" json:"id"`
	CityID          string     `gorm:"column:city_id;not null" json:"city_id"`
	PlayerID        string     `gorm:"column:player_id;not null" json:"player_id"`
	ActionType      string     `gorm:"column:action_type;not null" json:"action_type"`
	Status          string     `gorm:"column:status;not null" json:"status"`
	StartedAt       time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndsAt          time.Time  `gorm:"column:ends_at;not null" json:"ends_at"`
	DurationSeconds int32      `gorm:"column:duration_seconds;not null" json:"duration_seconds"`
	Payload         []byte     `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null;default:now()" json:"created_at"`
}

// TableName PendingAction's table name
func (*PendingAction) TableName() string {
	return TableNamePendingAction
}

// CompletedAction mapped from table <completed_actions>
type CompletedAction struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	OriginalActionID string    `gorm:"column:original_action_id;not null" json:"original_action_id"`
	CityID           string    `gorm:"column:city_id;not null" json:"city_id"`
	PlayerID         string    `gorm:"column:player_id;not null" json:"player_id"`
	ActionType       string    `gorm:"column:action_type;not null" json:"action_type"`
	StartedAt        time.Time `gorm:"column:started_at;not null" json:"started_at"`
	EndsAt           time.Time `gorm:"column:ends_at;not null" json:"ends_at"`
	CompletedAt      time.Time `gorm:"column:completed_at;not null" json:"completed_at"`
	DurationSeconds  int32     `gorm:"column:duration_seconds;not null" json:"duration_seconds"`
	Payload          []byte    `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Result           []byte    `gorm:"column:result;type:jsonb;not null" json:"result"`
}

// TableName CompletedAction's table name
func (*CompletedAction) TableName() string {
	return TableNameCompletedAction
}
