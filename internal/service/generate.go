package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/model"

	"gorm.io/gorm"
)

type DepartmentReport struct {
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
	Members      int    `json:"members"`
	Tasks        int    `json:"tasks"`
	Created      int    `json:"created"`
	Skipped      string `json:"skipped,omitempty"`
}

type GenerateReport struct {
	Month       string             `json:"month"`
	Removed     int64              `json:"removed"`
	Created     int                `json:"created"`
	Departments []DepartmentReport `json:"departments"`
}

// GenerateService overwrites a month with a rotation built per department.
type GenerateService struct {
	db      *gorm.DB
	catalog *CatalogSync
	loc     *time.Location
	log     *slog.Logger
}

func NewGenerateService(db *gorm.DB, catalog *CatalogSync, loc *time.Location, log *slog.Logger) *GenerateService {
	return &GenerateService{db: db, catalog: catalog, loc: loc, log: log}
}

// GenerateMonth deletes the month's entries and their completions, then
// for every department rotates the active members day by day over the
// active tasks: daily tasks every day, weekly tasks on Mondays, monthly
// tasks on the 1st. Task i on day d goes to members[(d-1+i) mod n].
func (s *GenerateService) GenerateMonth(ctx context.Context, m calendar.Month) (*GenerateReport, error) {
	report := &GenerateReport{Month: m.Key(), Departments: []DepartmentReport{}}
	var created []model.Schedule

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		monthIDs := tx.Model(&model.Schedule{}).Select("id").Where("rotation_month = ?", m.Key())
		if err := tx.Where("schedule_id IN (?)", monthIDs).Delete(&model.Completion{}).Error; err != nil {
			return fmt.Errorf("delete completions: %w", err)
		}
		res := tx.Where("rotation_month = ?", m.Key()).Delete(&model.Schedule{})
		if res.Error != nil {
			return fmt.Errorf("delete schedules: %w", res.Error)
		}
		report.Removed = res.RowsAffected

		var depts []model.Department
		if err := tx.Order("sort_order, name").Find(&depts).Error; err != nil {
			return fmt.Errorf("list departments: %w", err)
		}

		for _, d := range depts {
			dr := DepartmentReport{DepartmentID: d.ID, Name: d.Name}

			var members []model.Member
			if err := tx.Where("department_id = ? AND is_active = ?", d.ID, true).
				Order("sort_order, created_at, id").Find(&members).Error; err != nil {
				return fmt.Errorf("list members of %s: %w", d.Name, err)
			}
			var tasks []model.Task
			if err := tx.Joins("JOIN cleaning_areas ON cleaning_areas.id = cleaning_tasks.area_id").
				Where("cleaning_areas.department_id = ? AND cleaning_tasks.is_active = ?", d.ID, true).
				Order("cleaning_areas.sort_order, cleaning_tasks.sort_order, cleaning_tasks.name").
				Find(&tasks).Error; err != nil {
				return fmt.Errorf("list tasks of %s: %w", d.Name, err)
			}
			dr.Members, dr.Tasks = len(members), len(tasks)

			switch {
			case len(members) == 0:
				dr.Skipped = "no active members"
			case len(tasks) == 0:
				dr.Skipped = "no active tasks"
			default:
				entries := rotate(m, s.loc, tasks, members)
				if len(entries) > 0 {
					if err := tx.CreateInBatches(&entries, 200).Error; err != nil {
						return fmt.Errorf("insert schedules of %s: %w", d.Name, err)
					}
				}
				dr.Created = len(entries)
				report.Created += len(entries)
				created = append(created, entries...)
			}
			report.Departments = append(report.Departments, dr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("generate.ok", "month", report.Month, "removed", report.Removed, "created", report.Created)
	if s.catalog != nil && len(created) > 0 {
		go s.catalog.SyncSchedules(context.WithoutCancel(ctx), created)
	}
	return report, nil
}

func rotate(m calendar.Month, loc *time.Location, tasks []model.Task, members []model.Member) []model.Schedule {
	var out []model.Schedule
	n := len(members)
	for _, day := range m.Days(loc) {
		d := day.Day()
		for i, t := range tasks {
			if !due(t.Frequency, day) {
				continue
			}
			out = append(out, model.Schedule{
				TaskID:        t.ID,
				MemberID:      members[(d-1+i)%n].ID,
				ScheduledDate: calendar.FormatDate(day),
				RotationMonth: calendar.RotationMonth(day),
			})
		}
	}
	return out
}

func due(f model.Frequency, day time.Time) bool {
	switch f {
	case model.FrequencyWeekly:
		return day.Weekday() == time.Monday
	case model.FrequencyMonthly:
		return day.Day() == 1
	default:
		return true
	}
}
