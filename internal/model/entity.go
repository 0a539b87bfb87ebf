package model

import "time"

// ScheduleDetail is a schedule joined with everything a calendar cell shows.
type ScheduleDetail struct {
	ID            string         `json:"id"`
	ScheduledDate string         `json:"scheduled_date"`
	RotationMonth string         `json:"rotation_month"`
	Task          TaskRef        `json:"task"`
	Member        MemberRef      `json:"member"`
	Completion    *CompletionRef `json:"completion"`
}

type TaskRef struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Frequency Frequency `json:"frequency"`
	Color     string    `json:"color"`
	Area      AreaRef   `json:"area"`
}

type AreaRef struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Department DepartmentRef `json:"department"`
}

type DepartmentRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type MemberRef struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type CompletionRef struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completed_at"`
	CompletedBy string    `json:"completed_by"`
}

type CalendarDay struct {
	Date      string           `json:"date"`
	Weekday   string           `json:"weekday"`
	InMonth   bool             `json:"in_month"`
	IsToday   bool             `json:"is_today"`
	Schedules []ScheduleDetail `json:"schedules"`
}

type CalendarMonth struct {
	Month string        `json:"month"`
	Prev  string        `json:"prev"`
	Next  string        `json:"next"`
	Days  []CalendarDay `json:"days"`
}

// ScheduleView is one entry with what the assignee has to do.
type ScheduleView struct {
	ScheduleDetail
	DayOfWeek string          `json:"day_of_week"`
	IsToday   bool            `json:"is_today"`
	Checklist []ChecklistItem `json:"checklist"`
}

type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Order int    `json:"order"`
}

// NextSchedule is the member's next upcoming duty.
type NextSchedule struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	DayOfWeek  string `json:"day_of_week"`
	Task       string `json:"task"`
	Area       string `json:"area"`
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	IsToday    bool   `json:"is_today"`
}

type Stats struct {
	Departments int64 `json:"departments"`
	Members     int64 `json:"members"`
	Areas       int64 `json:"areas"`
	Tasks       int64 `json:"tasks"`
}

// Identity is what the identity provider tells us about a signed-in user.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	AvatarURL  string
}

type CallbackRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	Created bool   `json:"created"`
	User    User   `json:"user"`
}

type User struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AvatarURL    *string `json:"avatar_url"`
	DepartmentID string  `json:"department_id"`
	IsAdmin      bool    `json:"is_admin"`
}

type CompleteRequest struct {
	Notes string `json:"notes"`
}

type GenerateRequest struct {
	Year  int `json:"year" binding:"required"`
	Month int `json:"month" binding:"required"`
}

type AssignRequest struct {
	MemberID string   `json:"member_id" binding:"required"`
	TaskIDs  []string `json:"task_ids"`
	From     string   `json:"from"`
	To       string   `json:"to"`
}
