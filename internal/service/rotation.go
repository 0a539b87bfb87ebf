package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/core/schedule"
	"cleaning-duty/internal/model"

	"gorm.io/gorm"
)

type AssignStatus string

const (
	StatusAssigned  AssignStatus = "assigned"
	StatusSkipped   AssignStatus = "skipped"
	StatusExhausted AssignStatus = "exhausted"
)

type AssignRequest struct {
	MemberID string
	TaskIDs  []string
	From     time.Time
	To       time.Time
}

type AssignResult struct {
	Status   AssignStatus    `json:"status"`
	Entry    *model.Schedule `json:"entry,omitempty"`
	Attempts int             `json:"attempts"`
	Reason   string          `json:"reason,omitempty"`
}

// RotationService places a member on one random task and day.
type RotationService struct {
	db       *gorm.DB
	log      *slog.Logger
	attempts int

	mu  sync.Mutex
	rng *rand.Rand
}

type RotationOption func(*RotationService)

// WithRand fixes the random source; tests pass a seeded PCG.
func WithRand(r *rand.Rand) RotationOption {
	return func(s *RotationService) { s.rng = r }
}

func WithAttempts(n int) RotationOption {
	return func(s *RotationService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func WithRotationLogger(l *slog.Logger) RotationOption {
	return func(s *RotationService) { s.log = l }
}

func NewRotationService(db *gorm.DB, opts ...RotationOption) *RotationService {
	s := &RotationService{
		db:       db,
		log:      slog.Default(),
		attempts: 3,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Assign tries up to the configured number of random (task, day) pairs.
// Only active tasks of the member's department are candidates.
// A pair that is already taken counts as a failed attempt. Nothing to pick
// from is a skip; only store failures are returned as errors.
func (s *RotationService) Assign(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	var m model.Member
	if err := s.db.WithContext(ctx).Where("id = ?", req.MemberID).First(&m).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("member %s: %w", req.MemberID, ErrNotFound)
		}
		return nil, fmt.Errorf("load member: %w", err)
	}

	tasks, err := s.narrow(ctx, m.DepartmentID, req.TaskIDs)
	if err != nil {
		return nil, err
	}
	days := calendar.DaysBetween(req.From, req.To)
	g := schedule.CanAssign(schedule.AssignContext{
		MemberID:      m.ID,
		MemberActive:  m.IsActive,
		EligibleTasks: len(tasks),
		RemainingDays: len(days),
	})
	if !g.Allowed {
		s.log.Info("rotation.skip", "member", m.ID, "reason", g.Reason)
		return &AssignResult{Status: StatusSkipped, Reason: g.Reason}, nil
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		taskID, day := s.pick(tasks, days)
		entry := model.Schedule{
			TaskID:        taskID,
			MemberID:      m.ID,
			ScheduledDate: calendar.FormatDate(day),
			RotationMonth: calendar.RotationMonth(day),
		}
		err := s.db.WithContext(ctx).Create(&entry).Error
		if err == nil {
			s.log.Info("rotation.assigned", "member", m.ID, "task", taskID, "date", entry.ScheduledDate, "attempt", attempt)
			return &AssignResult{Status: StatusAssigned, Entry: &entry, Attempts: attempt}, nil
		}
		if !isDuplicate(err) {
			return nil, fmt.Errorf("insert schedule: %w", err)
		}
		s.log.Debug("rotation.conflict", "member", m.ID, "task", taskID, "date", entry.ScheduledDate, "attempt", attempt)
	}

	s.log.Warn("rotation.exhausted", "member", m.ID, "attempts", s.attempts)
	return &AssignResult{Status: StatusExhausted, Attempts: s.attempts, Reason: "all attempts conflicted"}, nil
}

// EligibleTasks lists the active tasks of a department's areas.
func (s *RotationService) EligibleTasks(ctx context.Context, departmentID string) ([]string, error) {
	var ids []string
	if err := s.eligible(ctx, departmentID).Pluck("cleaning_tasks.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("eligible tasks: %w", err)
	}
	return ids, nil
}

func (s *RotationService) eligible(ctx context.Context, departmentID string) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Task{}).
		Joins("JOIN cleaning_areas ON cleaning_areas.id = cleaning_tasks.area_id").
		Where("cleaning_areas.department_id = ? AND cleaning_tasks.is_active = ?", departmentID, true).
		Order("cleaning_areas.sort_order, cleaning_tasks.sort_order, cleaning_tasks.id")
}

// narrow keeps the requested ids that are active tasks of the department,
// in request order. Unknown, inactive and foreign ids are dropped.
func (s *RotationService) narrow(ctx context.Context, departmentID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var valid []string
	if err := s.eligible(ctx, departmentID).Where("cleaning_tasks.id IN ?", ids).Pluck("cleaning_tasks.id", &valid).Error; err != nil {
		return nil, fmt.Errorf("eligible tasks: %w", err)
	}
	ok := make(map[string]bool, len(valid))
	for _, id := range valid {
		ok[id] = true
	}
	out := make([]string, 0, len(valid))
	for _, id := range ids {
		if ok[id] {
			out = append(out, id)
			delete(ok, id)
		}
	}
	return out, nil
}

func (s *RotationService) pick(tasks []string, days []time.Time) (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tasks[s.rng.IntN(len(tasks))], days[s.rng.IntN(len(days))]
}
