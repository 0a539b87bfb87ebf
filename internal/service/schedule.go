package service

import (
	"context"
	"fmt"
	"time"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/model"

	"gorm.io/gorm"
)

type ScheduleService struct {
	db  *gorm.DB
	loc *time.Location
}

func NewScheduleService(db *gorm.DB, loc *time.Location) *ScheduleService {
	return &ScheduleService{db: db, loc: loc}
}

type nextRow struct {
	ID            string
	ScheduledDate string
	TaskName      string
	AreaName      string
	MemberID      string
	MemberName    string
}

// Next returns the member's earliest entry on or after today, or nil when
// nothing is scheduled.
func (s *ScheduleService) Next(ctx context.Context, memberID string, today time.Time) (*model.NextSchedule, error) {
	todayKey := calendar.FormatDate(today.In(s.loc))

	var rows []nextRow
	err := s.db.WithContext(ctx).Table("schedules AS s").
		Select("s.id, s.scheduled_date, t.name AS task_name, a.name AS area_name, m.id AS member_id, m.name AS member_name").
		Joins("JOIN cleaning_tasks t ON t.id = s.task_id").
		Joins("JOIN cleaning_areas a ON a.id = t.area_id").
		Joins("JOIN members m ON m.id = s.member_id").
		Where("s.member_id = ? AND s.scheduled_date >= ?", memberID, todayKey).
		Order("s.scheduled_date, s.id").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("next schedule: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	r := rows[0]
	day, err := calendar.ParseDate(r.ScheduledDate, s.loc)
	if err != nil {
		return nil, err
	}
	return &model.NextSchedule{
		ID:         r.ID,
		Date:       r.ScheduledDate,
		DayOfWeek:  calendar.WeekdayJa(day),
		Task:       r.TaskName,
		Area:       r.AreaName,
		MemberID:   r.MemberID,
		MemberName: r.MemberName,
		IsToday:    r.ScheduledDate == todayKey,
	}, nil
}
