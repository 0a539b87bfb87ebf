package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestDepartmentCRUD(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDirectoryService(db, logger.Discard())
	ctx := context.Background()

	_, err := svc.CreateDepartment(ctx, DepartmentInput{Name: "  "})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	dev, err := svc.CreateDepartment(ctx, DepartmentInput{Name: "開発", Color: "#6366f1", SortOrder: 1})
	require.NoError(t, err)
	_, err = svc.CreateDepartment(ctx, DepartmentInput{Name: "総務"})
	require.NoError(t, err)

	_, err = svc.CreateDepartment(ctx, DepartmentInput{Name: "開発"})
	assert.True(t, errors.Is(err, ErrConflict))

	list, err := svc.ListDepartments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "総務", list[0].Name, "sort_order 0 first")

	upd, err := svc.UpdateDepartment(ctx, dev.ID, DepartmentInput{Name: "開発部", Color: "#000000"})
	require.NoError(t, err)
	assert.Equal(t, "開発部", upd.Name)
	assert.Equal(t, "#000000", upd.Color)

	_, err = svc.UpdateDepartment(ctx, "missing", DepartmentInput{Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteDepartmentCascades(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDirectoryService(db, logger.Discard())
	ctx := context.Background()

	dev := createDepartment(t, db, "開発", "")
	a := createArea(t, db, dev.ID, "トイレ", 0)
	task := createTask(t, db, a.ID, "トイレ掃除", model.FrequencyDaily, 0)
	m := createMember(t, db, dev.ID, "山田太郎", 0)
	s := createSchedule(t, db, task.ID, m.ID, "2026-02-09")
	createCompletion(t, db, s.ID, m.ID, time.Now())

	ops := createDepartment(t, db, "総務", "")
	oa := createArea(t, db, ops.ID, "受付", 0)
	ot := createTask(t, db, oa.ID, "ゴミ出し", model.FrequencyDaily, 0)
	om := createMember(t, db, ops.ID, "佐藤花子", 0)
	createSchedule(t, db, ot.ID, om.ID, "2026-02-09")

	require.NoError(t, svc.DeleteDepartment(ctx, dev.ID))

	assert.EqualValues(t, 1, countRows(t, db, &model.Department{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.Area{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.Task{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.Member{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.Schedule{}))
	assert.EqualValues(t, 0, countRows(t, db, &model.Completion{}))

	assert.True(t, errors.Is(svc.DeleteDepartment(ctx, dev.ID), ErrNotFound))
}

func TestDeleteAreaCascades(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDirectoryService(db, logger.Discard())
	ctx := context.Background()

	d := createDepartment(t, db, "開発", "")
	gone := createArea(t, db, d.ID, "トイレ", 0)
	kept := createArea(t, db, d.ID, "2階", 1)
	t1 := createTask(t, db, gone.ID, "トイレ掃除", model.FrequencyDaily, 0)
	t2 := createTask(t, db, kept.ID, "床掃除", model.FrequencyWeekly, 0)
	m := createMember(t, db, d.ID, "山田太郎", 0)
	s := createSchedule(t, db, t1.ID, m.ID, "2026-02-09")
	createCompletion(t, db, s.ID, m.ID, time.Now())
	createSchedule(t, db, t2.ID, m.ID, "2026-02-09")

	require.NoError(t, svc.DeleteArea(ctx, gone.ID))

	areas, err := svc.ListAreas(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, areas, 1)
	assert.Equal(t, kept.ID, areas[0].ID)
	assert.EqualValues(t, 1, countRows(t, db, &model.Task{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.Schedule{}))
	assert.EqualValues(t, 0, countRows(t, db, &model.Completion{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.Member{}))
}

func TestTaskLifecycle(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDirectoryService(db, logger.Discard())
	ctx := context.Background()
	d := createDepartment(t, db, "開発", "")
	a := createArea(t, db, d.ID, "トイレ", 0)

	_, err := svc.CreateTask(ctx, TaskInput{AreaID: a.ID, Name: "x", Frequency: "hourly"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = svc.CreateTask(ctx, TaskInput{AreaID: "missing", Name: "x"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	task, err := svc.CreateTask(ctx, TaskInput{AreaID: a.ID, Name: "トイレ掃除"})
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyDaily, task.Frequency)
	assert.True(t, task.IsActive)

	m := createMember(t, db, d.ID, "山田太郎", 0)
	createSchedule(t, db, task.ID, m.ID, "2026-02-09")

	require.NoError(t, svc.DeleteTask(ctx, task.ID))
	active, err := svc.ListTasks(ctx, a.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.ListTasks(ctx, a.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
	assert.EqualValues(t, 1, countRows(t, db, &model.Schedule{}), "past schedules stay")

	assert.True(t, errors.Is(svc.DeleteTask(ctx, "missing"), ErrNotFound))
}

func TestMemberLifecycle(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDirectoryService(db, logger.Discard())
	ctx := context.Background()
	d := createDepartment(t, db, "開発", "")

	m, err := svc.CreateMember(ctx, MemberInput{DepartmentID: d.ID, Name: "山田太郎"})
	require.NoError(t, err)
	assert.True(t, m.IsActive)
	assert.Nil(t, m.ExternalID)

	_, err = svc.CreateMember(ctx, MemberInput{DepartmentID: d.ID, Name: "佐藤花子"})
	require.NoError(t, err)

	admin := true
	upd, err := svc.UpdateMember(ctx, m.ID, MemberInput{DepartmentID: d.ID, Name: "山田", IsAdmin: admin})
	require.NoError(t, err)
	assert.True(t, upd.IsAdmin)

	require.NoError(t, svc.DeleteMember(ctx, m.ID))
	active, err := svc.ListMembers(ctx, d.ID, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "佐藤花子", active[0].Name)

	got, err := svc.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestStats(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDirectoryService(db, logger.Discard())
	d := createDepartment(t, db, "開発", "")
	a := createArea(t, db, d.ID, "トイレ", 0)
	createTask(t, db, a.ID, "トイレ掃除", model.FrequencyDaily, 0)
	off := createTask(t, db, a.ID, "窓拭き", model.FrequencyMonthly, 1)
	require.NoError(t, db.Model(off).Update("is_active", false).Error)
	createMember(t, db, d.ID, "山田太郎", 0)
	gone := createMember(t, db, d.ID, "佐藤花子", 1)
	require.NoError(t, db.Model(gone).Update("is_active", false).Error)

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Stats{Departments: 1, Members: 1, Areas: 1, Tasks: 1}, *st)
}

func TestCreateInactive(t *testing.T) {
	db, _ := setupTestDB(t)
	svc := NewDirectoryService(db, logger.Discard())
	ctx := context.Background()
	d := createDepartment(t, db, "開発", "")
	a := createArea(t, db, d.ID, "トイレ", 0)
	off := false

	task, err := svc.CreateTask(ctx, TaskInput{AreaID: a.ID, Name: "窓拭き", IsActive: &off})
	require.NoError(t, err)
	assert.False(t, task.IsActive)
	var storedTask model.Task
	require.NoError(t, db.Where("id = ?", task.ID).First(&storedTask).Error)
	assert.False(t, storedTask.IsActive)

	m, err := svc.CreateMember(ctx, MemberInput{DepartmentID: d.ID, Name: "佐藤花子", IsActive: &off})
	require.NoError(t, err)
	got, err := svc.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := svc.ListMembers(ctx, d.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	on, err := svc.CreateTask(ctx, TaskInput{AreaID: a.ID, Name: "トイレ掃除"})
	require.NoError(t, err)
	require.NoError(t, db.Where("id = ?", on.ID).First(&storedTask).Error)
	assert.True(t, storedTask.IsActive, "omitted is_active defaults to active")
}
