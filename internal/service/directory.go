package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cleaning-duty/internal/model"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type DepartmentInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
	SortOrder   int     `json:"sort_order"`
}

type AreaInput struct {
	DepartmentID string  `json:"department_id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	SortOrder    int     `json:"sort_order"`
}

type TaskInput struct {
	AreaID      string          `json:"area_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Frequency   model.Frequency `json:"frequency"`
	IsActive    *bool           `json:"is_active"`
	SortOrder   int             `json:"sort_order"`
}

type MemberInput struct {
	DepartmentID string  `json:"department_id"`
	Name         string  `json:"name"`
	Email        *string `json:"email"`
	IsAdmin      bool    `json:"is_admin"`
	IsActive     *bool   `json:"is_active"`
	SortOrder    int     `json:"sort_order"`
}

// DirectoryService is the admin CRUD over departments, areas, tasks and
// members. Tasks and members are deactivated instead of deleted.
type DirectoryService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewDirectoryService(db *gorm.DB, log *slog.Logger) *DirectoryService {
	return &DirectoryService{db: db, log: log}
}

// Stats counts departments, active members, areas and active tasks.
func (s *DirectoryService) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, m any, where ...any) func() error {
		return func() error {
			q := s.db.WithContext(gctx).Model(m)
			if len(where) > 0 {
				q = q.Where(where[0], where[1:]...)
			}
			return q.Count(dst).Error
		}
	}
	g.Go(count(&st.Departments, &model.Department{}))
	g.Go(count(&st.Members, &model.Member{}, "is_active = ?", true))
	g.Go(count(&st.Areas, &model.Area{}))
	g.Go(count(&st.Tasks, &model.Task{}, "is_active = ?", true))
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

// --- departments ---

func (s *DirectoryService) ListDepartments(ctx context.Context) ([]model.Department, error) {
	var out []model.Department
	if err := s.db.WithContext(ctx).Order("sort_order, name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return out, nil
}

func (s *DirectoryService) CreateDepartment(ctx context.Context, in DepartmentInput) (*model.Department, error) {
	d := model.Department{}
	if err := applyDepartment(&d, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, writeErr("create department", err)
	}
	s.log.Info("directory.department.created", "department", d.ID, "name", d.Name)
	return &d, nil
}

func (s *DirectoryService) UpdateDepartment(ctx context.Context, id string, in DepartmentInput) (*model.Department, error) {
	var d model.Department
	if err := s.first(ctx, &d, id); err != nil {
		return nil, err
	}
	if err := applyDepartment(&d, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&d).Error; err != nil {
		return nil, writeErr("update department", err)
	}
	return &d, nil
}

// DeleteDepartment removes the department with its areas, tasks and
// members, and every schedule and completion hanging off them.
func (s *DirectoryService) DeleteDepartment(ctx context.Context, id string) error {
	var d model.Department
	if err := s.first(ctx, &d, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		areaIDs := tx.Model(&model.Area{}).Select("id").Where("department_id = ?", id)
		taskIDs := tx.Model(&model.Task{}).Select("id").Where("area_id IN (?)", areaIDs)
		memberIDs := tx.Model(&model.Member{}).Select("id").Where("department_id = ?", id)

		if err := deleteSchedulesWhere(tx, "task_id IN (?)", taskIDs); err != nil {
			return err
		}
		if err := deleteSchedulesWhere(tx, "member_id IN (?)", memberIDs); err != nil {
			return err
		}
		if err := tx.Where("area_id IN (?)", areaIDs).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := tx.Where("department_id = ?", id).Delete(&model.Area{}).Error; err != nil {
			return fmt.Errorf("delete areas: %w", err)
		}
		if err := tx.Where("department_id = ?", id).Delete(&model.Member{}).Error; err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		return tx.Delete(&d).Error
	})
	if err != nil {
		return fmt.Errorf("delete department %s: %w", id, err)
	}
	s.log.Info("directory.department.deleted", "department", id)
	return nil
}

func applyDepartment(d *model.Department, in DepartmentInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("department name is required: %w", ErrInvalidInput)
	}
	d.Name, d.Description, d.Color, d.SortOrder = name, in.Description, in.Color, in.SortOrder
	return nil
}

// --- areas ---

func (s *DirectoryService) ListAreas(ctx context.Context, departmentID string) ([]model.Area, error) {
	q := s.db.WithContext(ctx).Order("sort_order, name")
	if departmentID != "" {
		q = q.Where("department_id = ?", departmentID)
	}
	var out []model.Area
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return out, nil
}

func (s *DirectoryService) CreateArea(ctx context.Context, in AreaInput) (*model.Area, error) {
	a := model.Area{}
	if err := s.applyArea(ctx, &a, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, writeErr("create area", err)
	}
	return &a, nil
}

func (s *DirectoryService) UpdateArea(ctx context.Context, id string, in AreaInput) (*model.Area, error) {
	var a model.Area
	if err := s.first(ctx, &a, id); err != nil {
		return nil, err
	}
	if err := s.applyArea(ctx, &a, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&a).Error; err != nil {
		return nil, writeErr("update area", err)
	}
	return &a, nil
}

// DeleteArea removes the area, its tasks and their schedules and completions.
func (s *DirectoryService) DeleteArea(ctx context.Context, id string) error {
	var a model.Area
	if err := s.first(ctx, &a, id); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&model.Task{}).Select("id").Where("area_id = ?", id)
		if err := deleteSchedulesWhere(tx, "task_id IN (?)", taskIDs); err != nil {
			return err
		}
		if err := tx.Where("area_id = ?", id).Delete(&model.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		return tx.Delete(&a).Error
	})
	if err != nil {
		return fmt.Errorf("delete area %s: %w", id, err)
	}
	s.log.Info("directory.area.deleted", "area", id)
	return nil
}

func (s *DirectoryService) applyArea(ctx context.Context, a *model.Area, in AreaInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("area name is required: %w", ErrInvalidInput)
	}
	if err := s.mustExist(ctx, &model.Department{}, in.DepartmentID, "department"); err != nil {
		return err
	}
	a.DepartmentID, a.Name, a.Description, a.SortOrder = in.DepartmentID, name, in.Description, in.SortOrder
	return nil
}

// --- tasks ---

func (s *DirectoryService) ListTasks(ctx context.Context, areaID string, includeInactive bool) ([]model.Task, error) {
	q := s.db.WithContext(ctx).Order("sort_order, name")
	if areaID != "" {
		q = q.Where("area_id = ?", areaID)
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []model.Task
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (s *DirectoryService) CreateTask(ctx context.Context, in TaskInput) (*model.Task, error) {
	t := model.Task{IsActive: true}
	if err := s.applyTask(ctx, &t, in); err != nil {
		return nil, err
	}
	// Select("*") so an explicit is_active=false is not replaced by the column default.
	if err := s.db.WithContext(ctx).Select("*").Create(&t).Error; err != nil {
		return nil, writeErr("create task", err)
	}
	return &t, nil
}

func (s *DirectoryService) UpdateTask(ctx context.Context, id string, in TaskInput) (*model.Task, error) {
	var t model.Task
	if err := s.first(ctx, &t, id); err != nil {
		return nil, err
	}
	if err := s.applyTask(ctx, &t, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&t).Error; err != nil {
		return nil, writeErr("update task", err)
	}
	return &t, nil
}

// DeleteTask deactivates the task; its past schedules stay.
func (s *DirectoryService) DeleteTask(ctx context.Context, id string) error {
	return s.deactivate(ctx, &model.Task{}, id)
}

func (s *DirectoryService) applyTask(ctx context.Context, t *model.Task, in TaskInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("task name is required: %w", ErrInvalidInput)
	}
	freq := in.Frequency
	if freq == "" {
		freq = model.FrequencyDaily
	}
	if !freq.Valid() {
		return fmt.Errorf("unknown frequency %q: %w", in.Frequency, ErrInvalidInput)
	}
	if err := s.mustExist(ctx, &model.Area{}, in.AreaID, "area"); err != nil {
		return err
	}
	t.AreaID, t.Name, t.Description, t.Frequency, t.SortOrder = in.AreaID, name, in.Description, freq, in.SortOrder
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	return nil
}

// --- members ---

func (s *DirectoryService) ListMembers(ctx context.Context, departmentID string, includeInactive bool) ([]model.Member, error) {
	q := s.db.WithContext(ctx).Order("sort_order, name")
	if departmentID != "" {
		q = q.Where("department_id = ?", departmentID)
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []model.Member
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return out, nil
}

func (s *DirectoryService) GetMember(ctx context.Context, id string) (*model.Member, error) {
	var m model.Member
	if err := s.first(ctx, &m, id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *DirectoryService) CreateMember(ctx context.Context, in MemberInput) (*model.Member, error) {
	m := model.Member{IsActive: true}
	if err := s.applyMember(ctx, &m, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Select("*").Create(&m).Error; err != nil {
		return nil, writeErr("create member", err)
	}
	s.log.Info("directory.member.created", "member", m.ID, "name", m.Name)
	return &m, nil
}

func (s *DirectoryService) UpdateMember(ctx context.Context, id string, in MemberInput) (*model.Member, error) {
	var m model.Member
	if err := s.first(ctx, &m, id); err != nil {
		return nil, err
	}
	if err := s.applyMember(ctx, &m, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&m).Error; err != nil {
		return nil, writeErr("update member", err)
	}
	return &m, nil
}

// DeleteMember deactivates the member; existing schedules stay.
func (s *DirectoryService) DeleteMember(ctx context.Context, id string) error {
	return s.deactivate(ctx, &model.Member{}, id)
}

func (s *DirectoryService) applyMember(ctx context.Context, m *model.Member, in MemberInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("member name is required: %w", ErrInvalidInput)
	}
	if err := s.mustExist(ctx, &model.Department{}, in.DepartmentID, "department"); err != nil {
		return err
	}
	m.DepartmentID, m.Name, m.Email, m.IsAdmin, m.SortOrder = in.DepartmentID, name, in.Email, in.IsAdmin, in.SortOrder
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}
	return nil
}

// --- helpers ---

func (s *DirectoryService) first(ctx context.Context, dst any, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(dst).Error; err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("load %s: %w", id, err)
	}
	return nil
}

func (s *DirectoryService) mustExist(ctx context.Context, m any, id, what string) error {
	if id == "" {
		return fmt.Errorf("%s_id is required: %w", what, ErrInvalidInput)
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("check %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s does not exist: %w", what, id, ErrInvalidInput)
	}
	return nil
}

func (s *DirectoryService) deactivate(ctx context.Context, m any, id string) error {
	res := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("deactivate %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("check %s: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func deleteSchedulesWhere(tx *gorm.DB, cond string, sub *gorm.DB) error {
	ids := tx.Model(&model.Schedule{}).Select("id").Where(cond, sub)
	if err := tx.Where("schedule_id IN (?)", ids).Delete(&model.Completion{}).Error; err != nil {
		return fmt.Errorf("delete completions: %w", err)
	}
	if err := tx.Where(cond, sub).Delete(&model.Schedule{}).Error; err != nil {
		return fmt.Errorf("delete schedules: %w", err)
	}
	return nil
}

func writeErr(op string, err error) error {
	if isDuplicate(err) {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
