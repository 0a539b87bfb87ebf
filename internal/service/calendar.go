package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/model"
	"cleaning-duty/internal/realtime"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"gorm.io/gorm"
)

type CalendarService struct {
	db     *gorm.DB
	hub    *realtime.Hub
	colors *ColorTable
	loc    *time.Location
	now    func() time.Time
	log    *slog.Logger
}

func NewCalendarService(db *gorm.DB, hub *realtime.Hub, loc *time.Location, log *slog.Logger) *CalendarService {
	return &CalendarService{
		db:     db,
		hub:    hub,
		colors: NewColorTable(),
		loc:    loc,
		now:    time.Now,
		log:    log,
	}
}

func (s *CalendarService) Colors() *ColorTable { return s.colors }

// scheduleRow is one row of the month join. Completion columns are nil when
// the entry has none.
type scheduleRow struct {
	ScheduleID      string
	ScheduledDate   string
	RotationMonth   string
	TaskID          string
	TaskName        string
	TaskFrequency   string
	AreaID          string
	AreaName        string
	DepartmentID    string
	DepartmentName  string
	DepartmentColor *string
	MemberID        string
	MemberName      string
	MemberAvatarURL *string
	CompletionID    *string
	CompletedAt     *time.Time
	CompletedBy     *string
}

func goquDialect(db *gorm.DB) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "postgres"
	case "sqlite":
		return "sqlite3"
	default:
		return "mysql"
	}
}

func (s *CalendarService) monthSQL(m calendar.Month) (string, error) {
	query, _, err := s.projection().Where(goqu.I("s.rotation_month").Eq(m.Key())).ToSQL()
	if err != nil {
		return "", fmt.Errorf("build month query: %w", err)
	}
	return query, nil
}

func (s *CalendarService) entrySQL(id string) (string, error) {
	query, _, err := s.projection().Where(goqu.I("s.id").Eq(id)).ToSQL()
	if err != nil {
		return "", fmt.Errorf("build entry query: %w", err)
	}
	return query, nil
}

func (s *CalendarService) projection() *goqu.SelectDataset {
	return goqu.Dialect(goquDialect(s.db)).
		From(goqu.T("schedules").As("s")).
		Join(goqu.T("cleaning_tasks").As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("s.task_id")))).
		Join(goqu.T("cleaning_areas").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("t.area_id")))).
		Join(goqu.T("departments").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("a.department_id")))).
		Join(goqu.T("members").As("m"), goqu.On(goqu.I("m.id").Eq(goqu.I("s.member_id")))).
		LeftJoin(goqu.T("completions").As("c"), goqu.On(goqu.I("c.schedule_id").Eq(goqu.I("s.id")))).
		Select(
			goqu.I("s.id").As("schedule_id"),
			goqu.I("s.scheduled_date").As("scheduled_date"),
			goqu.I("s.rotation_month").As("rotation_month"),
			goqu.I("t.id").As("task_id"),
			goqu.I("t.name").As("task_name"),
			goqu.I("t.frequency").As("task_frequency"),
			goqu.I("a.id").As("area_id"),
			goqu.I("a.name").As("area_name"),
			goqu.I("d.id").As("department_id"),
			goqu.I("d.name").As("department_name"),
			goqu.I("d.color").As("department_color"),
			goqu.I("m.id").As("member_id"),
			goqu.I("m.name").As("member_name"),
			goqu.I("m.avatar_url").As("member_avatar_url"),
			goqu.I("c.id").As("completion_id"),
			goqu.I("c.completed_at").As("completed_at"),
			goqu.I("c.completed_by").As("completed_by"),
		).
		Order(
			goqu.I("s.scheduled_date").Asc(),
			goqu.I("s.id").Asc(),
			goqu.I("c.completed_at").Asc(),
			goqu.I("c.id").Asc(),
		)
}

// Month returns every entry of the rotation month with its task, area,
// department, member and first completion, ordered by date.
func (s *CalendarService) Month(ctx context.Context, m calendar.Month) ([]model.ScheduleDetail, error) {
	query, err := s.monthSQL(m)
	if err != nil {
		return nil, err
	}
	var rows []scheduleRow
	if err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query month %s: %w", m, err)
	}
	return s.fold(rows), nil
}

// Entry returns one schedule entry with its weekday label and the checklist
// for its task.
func (s *CalendarService) Entry(ctx context.Context, id string) (*model.ScheduleView, error) {
	query, err := s.entrySQL(id)
	if err != nil {
		return nil, err
	}
	var rows []scheduleRow
	if err := s.db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query schedule %s: %w", id, err)
	}
	entries := s.fold(rows)
	if len(entries) == 0 {
		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}

	v := &model.ScheduleView{ScheduleDetail: entries[0], Checklist: Checklist(entries[0].Task.Name)}
	if d, err := calendar.ParseDate(v.ScheduledDate, s.loc); err == nil {
		v.DayOfWeek = calendar.WeekdayJa(d)
		v.IsToday = calendar.FormatDate(s.now().In(s.loc)) == v.ScheduledDate
	}
	return v, nil
}

func (s *CalendarService) fold(rows []scheduleRow) []model.ScheduleDetail {
	out := make([]model.ScheduleDetail, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if seen[r.ScheduleID] {
			continue
		}
		seen[r.ScheduleID] = true

		deptColor := ""
		if r.DepartmentColor != nil {
			deptColor = *r.DepartmentColor
		}
		d := model.ScheduleDetail{
			ID:            r.ScheduleID,
			ScheduledDate: r.ScheduledDate,
			RotationMonth: r.RotationMonth,
			Task: model.TaskRef{
				ID:        r.TaskID,
				Name:      r.TaskName,
				Frequency: model.Frequency(r.TaskFrequency),
				Color:     s.colors.Color(r.AreaName, deptColor),
				Area: model.AreaRef{
					ID:   r.AreaID,
					Name: r.AreaName,
					Department: model.DepartmentRef{
						ID:    r.DepartmentID,
						Name:  r.DepartmentName,
						Color: deptColor,
					},
				},
			},
			Member: model.MemberRef{ID: r.MemberID, Name: r.MemberName, AvatarURL: r.MemberAvatarURL},
		}
		if r.CompletionID != nil {
			c := &model.CompletionRef{ID: *r.CompletionID}
			if r.CompletedAt != nil {
				c.CompletedAt = *r.CompletedAt
			}
			if r.CompletedBy != nil {
				c.CompletedBy = *r.CompletedBy
			}
			d.Completion = c
		}
		out = append(out, d)
	}
	return out
}

// Grid lays the month's entries onto a Sunday-first calendar grid.
func (s *CalendarService) Grid(ctx context.Context, m calendar.Month) (*model.CalendarMonth, error) {
	entries, err := s.Month(ctx, m)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string][]model.ScheduleDetail)
	for _, e := range entries {
		byDate[e.ScheduledDate] = append(byDate[e.ScheduledDate], e)
	}

	today := calendar.FormatDate(s.now().In(s.loc))
	grid := &model.CalendarMonth{Month: m.Key(), Prev: m.Prev().Key(), Next: m.Next().Key()}
	for _, day := range m.GridDays(s.loc) {
		key := calendar.FormatDate(day)
		schedules := byDate[key]
		if schedules == nil {
			schedules = []model.ScheduleDetail{}
		}
		grid.Days = append(grid.Days, model.CalendarDay{
			Date:      key,
			Weekday:   calendar.WeekdayJa(day),
			InMonth:   m.Contains(day),
			IsToday:   key == today,
			Schedules: schedules,
		})
	}
	return grid, nil
}

// Watch emits the month once, then again after every completion change,
// until ctx is done. Emit errors stop the watch.
func (s *CalendarService) Watch(ctx context.Context, m calendar.Month, emit func([]model.ScheduleDetail) error) error {
	sub := s.hub.Subscribe("completions", realtime.EventInsert, realtime.EventUpdate, realtime.EventDelete)
	defer sub.Close()

	refresh := func() error {
		entries, err := s.Month(ctx, m)
		if err != nil {
			return err
		}
		return emit(entries)
	}
	if err := refresh(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-sub.C:
			if !ok {
				return nil
			}
			s.log.Debug("calendar.refresh", "month", m.Key(), "event", c.Type)
			if err := refresh(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
