package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Department struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description *string   `json:"description"`
	Color       string    `gorm:"type:varchar(16)" json:"color"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Area struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	DepartmentID string    `gorm:"type:varchar(36);index;not null" json:"department_id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Description  *string   `json:"description"`
	SortOrder    int       `gorm:"default:0" json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Task is soft-deleted through IsActive so past schedules keep their reference.
type Task struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AreaID      string    `gorm:"type:varchar(36);index;not null" json:"area_id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description *string   `json:"description"`
	Frequency   Frequency `gorm:"type:varchar(16);not null;default:daily" json:"frequency"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Schedule is one occurrence of a task assigned to a member on a date.
// ScheduledDate is "YYYY-MM-DD"; RotationMonth is its "YYYY-MM" bucket, fixed
// at creation.
type Schedule struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TaskID        string    `gorm:"type:varchar(36);not null;uniqueIndex:uk_schedule_task_date,priority:1" json:"task_id"`
	MemberID      string    `gorm:"type:varchar(36);index;not null" json:"member_id"`
	ScheduledDate string    `gorm:"type:varchar(10);not null;uniqueIndex:uk_schedule_task_date,priority:2;index" json:"scheduled_date"`
	RotationMonth string    `gorm:"type:varchar(7);index;not null" json:"rotation_month"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Completion struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ScheduleID  string    `gorm:"type:varchar(36);index;not null" json:"schedule_id"`
	CompletedBy string    `gorm:"type:varchar(36);not null" json:"completed_by"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
	Notes       *string   `json:"notes"`
}

type Member struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ExternalID   *string   `gorm:"type:varchar(191);uniqueIndex" json:"user_id"`
	DepartmentID string    `gorm:"type:varchar(36);index;not null" json:"department_id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	Email        *string   `gorm:"type:varchar(255)" json:"email"`
	AvatarURL    *string   `gorm:"type:varchar(512)" json:"avatar_url"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	SortOrder    int       `gorm:"default:0" json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (d *Department) BeforeCreate(*gorm.DB) error { return assignID(&d.ID) }
func (a *Area) BeforeCreate(*gorm.DB) error       { return assignID(&a.ID) }
func (t *Task) BeforeCreate(*gorm.DB) error       { return assignID(&t.ID) }
func (s *Schedule) BeforeCreate(*gorm.DB) error   { return assignID(&s.ID) }
func (c *Completion) BeforeCreate(*gorm.DB) error { return assignID(&c.ID) }
func (m *Member) BeforeCreate(*gorm.DB) error     { return assignID(&m.ID) }

func assignID(id *string) error {
	if *id != "" {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v.String()
	return nil
}

// All lists the entities for AutoMigrate.
func All() []any {
	return []any{&Department{}, &Area{}, &Task{}, &Schedule{}, &Completion{}, &Member{}}
}

func (Department) TableName() string { return "departments" }
func (Area) TableName() string       { return "cleaning_areas" }
func (Task) TableName() string       { return "cleaning_tasks" }
func (Schedule) TableName() string   { return "schedules" }
func (Completion) TableName() string { return "completions" }
func (Member) TableName() string     { return "members" }
