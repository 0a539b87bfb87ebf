package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/model"

	"gorm.io/gorm"
)

// BootstrapService sets up a member the first time an identity signs in.
type BootstrapService struct {
	db          *gorm.DB
	rotation    *RotationService
	defaultDept string
	loc         *time.Location
	now         func() time.Time
	log         *slog.Logger
}

func NewBootstrapService(db *gorm.DB, rotation *RotationService, defaultDept string, loc *time.Location, log *slog.Logger) *BootstrapService {
	return &BootstrapService{
		db:          db,
		rotation:    rotation,
		defaultDept: defaultDept,
		loc:         loc,
		now:         time.Now,
		log:         log,
	}
}

// Ensure returns the member bound to the identity, creating it (and the
// default department) when absent. The very first member becomes admin.
// A new member gets one random duty for the rest of the month; failing to
// assign it does not fail the sign-in.
func (s *BootstrapService) Ensure(ctx context.Context, id model.Identity) (*model.Member, bool, error) {
	if id.ExternalID == "" {
		return nil, false, fmt.Errorf("identity without subject: %w", ErrInvalidInput)
	}
	db := s.db.WithContext(ctx)

	if m, err := s.byExternalID(ctx, id.ExternalID); err != nil || m != nil {
		return m, false, err
	}

	dept, err := s.department(ctx)
	if err != nil {
		return nil, false, err
	}

	var count int64
	if err := db.Model(&model.Member{}).Count(&count).Error; err != nil {
		return nil, false, fmt.Errorf("count members: %w", err)
	}

	ext := id.ExternalID
	m := model.Member{
		ExternalID:   &ext,
		DepartmentID: dept.ID,
		Name:         displayName(id),
		IsActive:     true,
		IsAdmin:      count == 0,
	}
	if id.Email != "" {
		email := id.Email
		m.Email = &email
	}
	if id.AvatarURL != "" {
		avatar := id.AvatarURL
		m.AvatarURL = &avatar
	}
	if err := db.Create(&m).Error; err != nil {
		if isDuplicate(err) {
			winner, lerr := s.byExternalID(ctx, id.ExternalID)
			if lerr != nil {
				return nil, false, lerr
			}
			if winner != nil {
				return winner, false, nil
			}
		}
		return nil, false, fmt.Errorf("create member: %w", err)
	}
	s.log.Info("bootstrap.created", "member", m.ID, "department", dept.Name, "admin", m.IsAdmin)

	s.assignFirstDuty(ctx, &m)
	return &m, true, nil
}

func (s *BootstrapService) byExternalID(ctx context.Context, ext string) (*model.Member, error) {
	var m model.Member
	err := s.db.WithContext(ctx).Where("external_id = ?", ext).First(&m).Error
	if err == nil {
		return &m, nil
	}
	if isNotFound(err) {
		return nil, nil
	}
	return nil, fmt.Errorf("load member: %w", err)
}

func (s *BootstrapService) department(ctx context.Context) (*model.Department, error) {
	db := s.db.WithContext(ctx)
	var d model.Department
	err := db.Where("name = ?", s.defaultDept).First(&d).Error
	if err == nil {
		return &d, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("load department: %w", err)
	}

	d = model.Department{Name: s.defaultDept}
	if err := db.Create(&d).Error; err != nil {
		if isDuplicate(err) {
			if err := db.Where("name = ?", s.defaultDept).First(&d).Error; err == nil {
				return &d, nil
			}
		}
		return nil, fmt.Errorf("create department: %w", err)
	}
	s.log.Info("bootstrap.department", "department", d.Name)
	return &d, nil
}

func (s *BootstrapService) assignFirstDuty(ctx context.Context, m *model.Member) {
	taskIDs, err := s.rotation.EligibleTasks(ctx, m.DepartmentID)
	if err != nil {
		s.log.Warn("bootstrap.assign.failed", "member", m.ID, "err", err)
		return
	}

	today := calendar.Day(s.now().In(s.loc))
	res, err := s.rotation.Assign(ctx, AssignRequest{
		MemberID: m.ID,
		TaskIDs:  taskIDs,
		From:     today,
		To:       calendar.MonthOf(today).Last(s.loc),
	})
	if err != nil {
		s.log.Warn("bootstrap.assign.failed", "member", m.ID, "err", err)
		return
	}
	if res.Status != StatusAssigned {
		s.log.Warn("bootstrap.assign.none", "member", m.ID, "status", res.Status, "reason", res.Reason)
	}
}

func displayName(id model.Identity) string {
	if n := strings.TrimSpace(id.Name); n != "" {
		return n
	}
	if local, _, _ := strings.Cut(id.Email, "@"); local != "" {
		return local
	}
	return "Unknown"
}
