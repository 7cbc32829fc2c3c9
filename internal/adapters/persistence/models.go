package persistence

import (
	"time"
)

// PlayerModel represents the users table
type PlayerModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Username  string    `gorm:"column:username;uniqueIndex;not null"`
	Email     string    `gorm:"column:email;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (PlayerModel) TableName() string {
	return "users"
}

// ResourceModel represents the resources table (one row per user)
type ResourceModel struct {
	UserID     string     `gorm:"column:user_id;primaryKey"`
	Wood       int        `gorm:"column:wood;not null;default:0;check:chk_resources_wood,wood >= 0"`
	Food       int        `gorm:"column:food;not null;default:0;check:chk_resources_food,food >= 0"`
	LastTickAt *time.Time `gorm:"column:last_tick_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (ResourceModel) TableName() string {
	return "resources"
}

// TickLogModel represents the resource_tick_logs table
type TickLogModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	UserID         string    `gorm:"column:user_id;not null;index:idx_tick_logs_user_ticked,priority:1"`
	Username       string    `gorm:"column:username;not null"`
	WoodAdded      int       `gorm:"column:wood_added;not null"`
	FoodAdded      int       `gorm:"column:food_added;not null"`
	TotalWoodAfter int       `gorm:"column:total_wood_after;not null"`
	TotalFoodAfter int       `gorm:"column:total_food_after;not null"`
	Success        bool      `gorm:"column:success;not null"`
	ErrorMessage   *string   `gorm:"column:error_message;type:text"`
	TickedAt       time.Time `gorm:"column:ticked_at;not null;index;index:idx_tick_logs_user_ticked,priority:2"`
}

func (TickLogModel) TableName() string {
	return "resource_tick_logs"
}

// ConstructionTaskModel represents the construction_tasks table
type ConstructionTaskModel struct {
	ID              string     `gorm:"column:id;primaryKey"`
	UserID          string     `gorm:"column:user_id;not null;index"`
	UpgradeType     string     `gorm:"column:upgrade_type;not null"`
	UpgradeName     string     `gorm:"column:upgrade_name;not null"`
	WoodCost        int        `gorm:"column:wood_cost;not null"`
	FoodCost        int        `gorm:"column:food_cost;not null"`
	DurationSeconds int        `gorm:"column:duration_seconds;not null"`
	Status          string     `gorm:"column:status;not null;index"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null;autoUpdateTime:false"`
	StartedAt       *time.Time `gorm:"column:started_at"`
	DueAt           *time.Time `gorm:"column:due_at;index"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
}

func (ConstructionTaskModel) TableName() string {
	return "construction_tasks"
}

// QueueMessageModel represents the queue_messages table backing the durable task queue
type QueueMessageModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	Queue          string     `gorm:"column:queue;not null;uniqueIndex:idx_queue_job_task,priority:1;index:idx_queue_available,priority:1"`
	Job            string     `gorm:"column:job;not null;uniqueIndex:idx_queue_job_task,priority:2"`
	TaskID         string     `gorm:"column:task_id;not null;uniqueIndex:idx_queue_job_task,priority:3"`
	Payload        string     `gorm:"column:payload;type:text;not null"`
	Attempts       int        `gorm:"column:attempts;not null;default:0"`
	LeaseToken     string     `gorm:"column:lease_token"`
	LeaseExpiresAt *time.Time `gorm:"column:lease_expires_at"`
	AvailableAt    time.Time  `gorm:"column:available_at;not null;index:idx_queue_available,priority:2"`
	AckedAt        *time.Time `gorm:"column:acked_at"`
	DeadLetteredAt *time.Time `gorm:"column:dead_lettered_at"`
	LastError      string     `gorm:"column:last_error;type:text"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (QueueMessageModel) TableName() string {
	return "queue_messages"
}
