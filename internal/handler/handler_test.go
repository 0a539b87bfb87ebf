package handler

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/middleware"
	"cleaning-duty/internal/model"
	"cleaning-duty/internal/realtime"
	"cleaning-duty/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	secret    = []byte("session-secret")
	idpSecret = []byte("idp-secret")
	dbSeq     atomic.Int64
)

func init() { gin.SetMode(gin.TestMode) }

type testApp struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, service.Migrate(db))

	log := logger.Discard()
	hub := realtime.NewHub(log)
	require.NoError(t, realtime.RegisterCallbacks(db, hub))
	loc := time.UTC

	rotation := service.NewRotationService(db, service.WithRotationLogger(log))
	directory := service.NewDirectoryService(db, log)
	h := Handlers{
		Auth:     NewAuthHandler(service.NewBootstrapService(db, rotation, "開発", loc, log), secret, idpSecret, 7*24*time.Hour),
		Me:       NewMeHandler(directory, service.NewScheduleService(db, loc)),
		Calendar: NewCalendarHandler(service.NewCalendarService(db, hub, loc, log), service.NewCompletionService(db, nil, log)),
		Admin:    NewAdminHandler(directory, service.NewGenerateService(db, nil, loc, log), rotation, loc),
	}
	r := gin.New()
	Register(r, h, secret, 7*24*time.Hour, directory)
	return &testApp{db: db, router: r}
}

func (a *testApp) do(method, path, token, body string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func idToken(t *testing.T, sub, name string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.com",
		"name":  name,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(idpSecret)
	require.NoError(t, err)
	return s
}

func (a *testApp) signIn(t *testing.T, sub, name string) model.LoginResponse {
	t.Helper()
	w := a.do(http.MethodPost, "/api/auth/callback", "", fmt.Sprintf(`{"id_token":%q}`, idToken(t, sub, name)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCallbackBootstrapsMembers(t *testing.T) {
	app := newTestApp(t)

	first := app.signIn(t, "g-1", "山田太郎")
	assert.True(t, first.Created)
	assert.True(t, first.User.IsAdmin)
	assert.NotEmpty(t, first.Token)

	again := app.signIn(t, "g-1", "山田太郎")
	assert.False(t, again.Created)
	assert.Equal(t, first.User.ID, again.User.ID)

	second := app.signIn(t, "g-2", "佐藤花子")
	assert.False(t, second.User.IsAdmin)

	w := app.do(http.MethodGet, "/api/me", second.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "佐藤花子")

	w = app.do(http.MethodPost, "/api/auth/callback", "", `{"id_token":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.do(http.MethodPost, "/api/auth/callback", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalendarEndpoints(t *testing.T) {
	app := newTestApp(t)
	tok := app.signIn(t, "g-1", "山田太郎").Token

	assert.Equal(t, http.StatusUnauthorized, app.do(http.MethodGet, "/api/calendar/2026-02", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, app.do(http.MethodGet, "/api/calendar/2026-2", tok, "").Code)

	w := app.do(http.MethodGet, "/api/calendar/2026-02", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	var grid model.CalendarMonth
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grid))
	assert.Len(t, grid.Days, 28)

	w = app.do(http.MethodGet, "/api/calendar/2026-02/schedules", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"month":"2026-02","schedules":[]}`, w.Body.String())

	w = app.do(http.MethodGet, "/api/me/next", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"next":null}`, w.Body.String())
}

func seedSchedule(t *testing.T, app *testApp, memberID, date string) *model.Schedule {
	t.Helper()
	var m model.Member
	require.NoError(t, app.db.Where("id = ?", memberID).First(&m).Error)
	a := &model.Area{DepartmentID: m.DepartmentID, Name: "トイレ"}
	require.NoError(t, app.db.Create(a).Error)
	task := &model.Task{AreaID: a.ID, Name: "トイレ掃除", Frequency: model.FrequencyDaily, IsActive: true}
	require.NoError(t, app.db.Create(task).Error)
	s := &model.Schedule{TaskID: task.ID, MemberID: memberID, ScheduledDate: date, RotationMonth: date[:7]}
	require.NoError(t, app.db.Create(s).Error)
	return s
}

func TestCompleteEndpoint(t *testing.T) {
	app := newTestApp(t)
	owner := app.signIn(t, "g-1", "山田太郎")
	other := app.signIn(t, "g-2", "佐藤花子")
	s := seedSchedule(t, app, owner.User.ID, "2026-02-09")
	path := "/api/schedules/" + s.ID + "/complete"

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodPost, "/api/schedules/missing/complete", owner.Token, "").Code)
	assert.Equal(t, http.StatusForbidden, app.do(http.MethodPost, path, other.Token, "").Code)

	w := app.do(http.MethodPost, path, owner.Token, `{"notes":"done"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"created":true`)

	w = app.do(http.MethodPost, path, owner.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":false`)

	w = app.do(http.MethodGet, "/api/calendar/2026-02/schedules", owner.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Schedules []model.ScheduleDetail `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Schedules, 1)
	require.NotNil(t, body.Schedules[0].Completion)
	assert.Equal(t, owner.User.ID, body.Schedules[0].Completion.CompletedBy)
}

func TestScheduleEntryEndpoint(t *testing.T) {
	app := newTestApp(t)
	owner := app.signIn(t, "g-1", "山田太郎")
	s := seedSchedule(t, app, owner.User.ID, "2026-02-12")

	assert.Equal(t, http.StatusNotFound, app.do(http.MethodGet, "/api/schedules/missing", owner.Token, "").Code)

	w := app.do(http.MethodGet, "/api/schedules/"+s.ID, owner.Token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v model.ScheduleView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, s.ID, v.ID)
	assert.Equal(t, "トイレ掃除", v.Task.Name)
	assert.Equal(t, "木", v.DayOfWeek)
	require.Len(t, v.Checklist, 5)
	assert.Equal(t, "便器を洗剤で磨く", v.Checklist[0].Label)
	assert.Nil(t, v.Completion)
}

func TestAdminEndpoints(t *testing.T) {
	app := newTestApp(t)
	admin := app.signIn(t, "g-1", "山田太郎")
	user := app.signIn(t, "g-2", "佐藤花子")

	assert.Equal(t, http.StatusForbidden, app.do(http.MethodGet, "/api/admin/stats", user.Token, "").Code)

	w := app.do(http.MethodPost, "/api/admin/departments", admin.Token, `{"name":"総務","color":"#6366f1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dept model.Department
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dept))

	w = app.do(http.MethodPost, "/api/admin/departments", admin.Token, `{"name":"総務"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = app.do(http.MethodPost, "/api/admin/departments", admin.Token, `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/admin/areas", admin.Token, fmt.Sprintf(`{"department_id":%q,"name":"受付"}`, admin.User.DepartmentID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var area model.Area
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &area))

	w = app.do(http.MethodPost, "/api/admin/tasks", admin.Token, fmt.Sprintf(`{"area_id":%q,"name":"ゴミ出し","frequency":"daily"}`, area.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/api/admin/stats", admin.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"departments":2,"members":2,"areas":1,"tasks":1}`, w.Body.String())

	w = app.do(http.MethodPost, "/api/admin/schedules/generate", admin.Token, `{"year":2026,"month":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report service.GenerateReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 28, report.Created)

	w = app.do(http.MethodPost, "/api/admin/schedules/generate", admin.Token, `{"year":2026,"month":13}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/admin/schedules/assign", admin.Token,
		fmt.Sprintf(`{"member_id":%q,"from":"2026-03-02","to":"2026-03-02"}`, user.User.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"assigned"`)

	w = app.do(http.MethodGet, "/api/admin/members", admin.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var members []model.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	assert.Len(t, members, 2)

	assert.Equal(t, http.StatusNoContent, app.do(http.MethodDelete, "/api/admin/members/"+user.User.ID, admin.Token, "").Code)
	assert.Equal(t, http.StatusNoContent, app.do(http.MethodDelete, "/api/admin/departments/"+dept.ID, admin.Token, "").Code)
	assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, "/api/admin/departments/"+dept.ID, admin.Token, "").Code)
}

func TestStreamSendsMonth(t *testing.T) {
	app := newTestApp(t)
	owner := app.signIn(t, "g-1", "山田太郎")
	s := seedSchedule(t, app, owner.User.ID, "2026-02-09")

	srv := httptest.NewServer(app.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/calendar/2026-02/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+owner.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "data: ") {
				events <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(events)
	}()

	read := func() string {
		select {
		case e := <-events:
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return ""
		}
	}

	first := read()
	assert.Contains(t, first, s.ID)
	assert.Contains(t, first, `"completion":null`)

	w := app.do(http.MethodPost, "/api/schedules/"+s.ID+"/complete", owner.Token, "")
	require.Equal(t, http.StatusCreated, w.Code)

	second := read()
	assert.NotContains(t, second, `"completion":null`)
	assert.Contains(t, second, owner.User.ID)
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(fmt.Errorf("x: %w", service.ErrInvalidInput)))
	assert.Equal(t, http.StatusForbidden, statusOf(fmt.Errorf("x: %w", service.ErrForbidden)))
	assert.Equal(t, http.StatusNotFound, statusOf(fmt.Errorf("x: %w", service.ErrNotFound)))
	assert.Equal(t, http.StatusConflict, statusOf(fmt.Errorf("x: %w", service.ErrConflict)))
	assert.Equal(t, http.StatusInternalServerError, statusOf(fmt.Errorf("boom")))
	assert.Equal(t, http.StatusUnauthorized, app401())
}

func app401() int {
	r := gin.New()
	r.GET("/x", middleware.JWTAuth(secret, time.Hour), func(c *gin.Context) {})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}
