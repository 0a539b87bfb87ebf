package handler

import (
	"net/http"
	"time"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/model"
	"cleaning-duty/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	directory *service.DirectoryService
	generate  *service.GenerateService
	rotation  *service.RotationService
	loc       *time.Location
	now       func() time.Time
}

func NewAdminHandler(directory *service.DirectoryService, generate *service.GenerateService, rotation *service.RotationService, loc *time.Location) *AdminHandler {
	return &AdminHandler{directory: directory, generate: generate, rotation: rotation, loc: loc, now: time.Now}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.directory.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// bindAndRun binds the JSON body into in, then writes run's result with code.
func bindAndRun[T any, R any](c *gin.Context, code int, run func(T) (R, error)) {
	var in T
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request")
		return
	}
	out, err := run(in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(code, out)
}

func list[R any](c *gin.Context, items []R, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []R{}
	}
	c.JSON(http.StatusOK, items)
}

func deleted(c *gin.Context, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- departments ---

func (h *AdminHandler) ListDepartments(c *gin.Context) {
	items, err := h.directory.ListDepartments(c.Request.Context())
	list(c, items, err)
}

func (h *AdminHandler) CreateDepartment(c *gin.Context) {
	bindAndRun(c, http.StatusCreated, func(in service.DepartmentInput) (*model.Department, error) {
		return h.directory.CreateDepartment(c.Request.Context(), in)
	})
}

func (h *AdminHandler) UpdateDepartment(c *gin.Context) {
	bindAndRun(c, http.StatusOK, func(in service.DepartmentInput) (*model.Department, error) {
		return h.directory.UpdateDepartment(c.Request.Context(), c.Param("id"), in)
	})
}

func (h *AdminHandler) DeleteDepartment(c *gin.Context) {
	deleted(c, h.directory.DeleteDepartment(c.Request.Context(), c.Param("id")))
}

// --- areas ---

func (h *AdminHandler) ListAreas(c *gin.Context) {
	items, err := h.directory.ListAreas(c.Request.Context(), c.Query("department_id"))
	list(c, items, err)
}

func (h *AdminHandler) CreateArea(c *gin.Context) {
	bindAndRun(c, http.StatusCreated, func(in service.AreaInput) (*model.Area, error) {
		return h.directory.CreateArea(c.Request.Context(), in)
	})
}

func (h *AdminHandler) UpdateArea(c *gin.Context) {
	bindAndRun(c, http.StatusOK, func(in service.AreaInput) (*model.Area, error) {
		return h.directory.UpdateArea(c.Request.Context(), c.Param("id"), in)
	})
}

func (h *AdminHandler) DeleteArea(c *gin.Context) {
	deleted(c, h.directory.DeleteArea(c.Request.Context(), c.Param("id")))
}

// --- tasks ---

func (h *AdminHandler) ListTasks(c *gin.Context) {
	items, err := h.directory.ListTasks(c.Request.Context(), c.Query("area_id"), c.Query("all") == "true")
	list(c, items, err)
}

func (h *AdminHandler) CreateTask(c *gin.Context) {
	bindAndRun(c, http.StatusCreated, func(in service.TaskInput) (*model.Task, error) {
		return h.directory.CreateTask(c.Request.Context(), in)
	})
}

func (h *AdminHandler) UpdateTask(c *gin.Context) {
	bindAndRun(c, http.StatusOK, func(in service.TaskInput) (*model.Task, error) {
		return h.directory.UpdateTask(c.Request.Context(), c.Param("id"), in)
	})
}

func (h *AdminHandler) DeleteTask(c *gin.Context) {
	deleted(c, h.directory.DeleteTask(c.Request.Context(), c.Param("id")))
}

// --- members ---

func (h *AdminHandler) ListMembers(c *gin.Context) {
	items, err := h.directory.ListMembers(c.Request.Context(), c.Query("department_id"), c.Query("all") == "true")
	list(c, items, err)
}

func (h *AdminHandler) CreateMember(c *gin.Context) {
	bindAndRun(c, http.StatusCreated, func(in service.MemberInput) (*model.Member, error) {
		return h.directory.CreateMember(c.Request.Context(), in)
	})
}

func (h *AdminHandler) UpdateMember(c *gin.Context) {
	bindAndRun(c, http.StatusOK, func(in service.MemberInput) (*model.Member, error) {
		return h.directory.UpdateMember(c.Request.Context(), c.Param("id"), in)
	})
}

func (h *AdminHandler) DeleteMember(c *gin.Context) {
	deleted(c, h.directory.DeleteMember(c.Request.Context(), c.Param("id")))
}

// --- schedules ---

func (h *AdminHandler) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	m, err := calendar.NewMonth(req.Year, req.Month)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	report, err := h.generate.GenerateMonth(c.Request.Context(), m)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Info("admin.generate", "month", report.Month, "created", report.Created)
	c.JSON(http.StatusOK, report)
}

// Assign places a member on one random duty. Omitted task_ids means every
// active task of the member's department; omitted dates mean today through
// the end of the month.
func (h *AdminHandler) Assign(c *gin.Context) {
	var req model.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	ctx := c.Request.Context()

	member, err := h.directory.GetMember(ctx, req.MemberID)
	if err != nil {
		fail(c, err)
		return
	}

	today := calendar.Day(h.now().In(h.loc))
	from, to := today, calendar.MonthOf(today).Last(h.loc)
	if req.From != "" {
		if from, err = calendar.ParseDate(req.From, h.loc); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.To != "" {
		if to, err = calendar.ParseDate(req.To, h.loc); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	taskIDs := req.TaskIDs
	if taskIDs == nil {
		if taskIDs, err = h.rotation.EligibleTasks(ctx, member.DepartmentID); err != nil {
			fail(c, err)
			return
		}
	}

	res, err := h.rotation.Assign(ctx, service.AssignRequest{MemberID: member.ID, TaskIDs: taskIDs, From: from, To: to})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
