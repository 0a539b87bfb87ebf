package service

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/model"
	"cleaning-duty/internal/realtime"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var tokyo = mustLocation("Asia/Tokyo")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// setupTestDB opens a private in-memory database with the duty schema and
// change-feed callbacks installed.
func setupTestDB(t *testing.T) (*gorm.DB, *realtime.Hub) {
	t.Helper()
	dsn := fmt.Sprintf("file:duty_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	hub := realtime.NewHub(logger.Discard())
	require.NoError(t, realtime.RegisterCallbacks(db, hub))
	return db, hub
}

func seededRand() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, tokyo)
	require.NoError(t, err)
	return d
}

func createDepartment(t *testing.T, db *gorm.DB, name, color string) *model.Department {
	t.Helper()
	d := &model.Department{Name: name, Color: color}
	require.NoError(t, db.Create(d).Error)
	return d
}

func createArea(t *testing.T, db *gorm.DB, deptID, name string, sort int) *model.Area {
	t.Helper()
	a := &model.Area{DepartmentID: deptID, Name: name, SortOrder: sort}
	require.NoError(t, db.Create(a).Error)
	return a
}

func createTask(t *testing.T, db *gorm.DB, areaID, name string, freq model.Frequency, sort int) *model.Task {
	t.Helper()
	task := &model.Task{AreaID: areaID, Name: name, Frequency: freq, IsActive: true, SortOrder: sort}
	require.NoError(t, db.Create(task).Error)
	return task
}

func createMember(t *testing.T, db *gorm.DB, deptID, name string, sort int) *model.Member {
	t.Helper()
	m := &model.Member{DepartmentID: deptID, Name: name, IsActive: true, SortOrder: sort}
	require.NoError(t, db.Create(m).Error)
	return m
}

func createSchedule(t *testing.T, db *gorm.DB, taskID, memberID, date string) *model.Schedule {
	t.Helper()
	s := &model.Schedule{TaskID: taskID, MemberID: memberID, ScheduledDate: date, RotationMonth: date[:7]}
	require.NoError(t, db.Create(s).Error)
	return s
}

func createCompletion(t *testing.T, db *gorm.DB, scheduleID, by string, at time.Time) *model.Completion {
	t.Helper()
	c := &model.Completion{ScheduleID: scheduleID, CompletedBy: by, CompletedAt: at}
	require.NoError(t, db.Create(c).Error)
	return c
}
