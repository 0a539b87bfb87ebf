package handler

import (
	"net/http"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/middleware"
	"cleaning-duty/internal/model"
	"cleaning-duty/internal/service"

	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	calendar    *service.CalendarService
	completions *service.CompletionService
}

func NewCalendarHandler(cal *service.CalendarService, completions *service.CompletionService) *CalendarHandler {
	return &CalendarHandler{calendar: cal, completions: completions}
}

func monthParam(c *gin.Context) (calendar.Month, bool) {
	m, err := calendar.ParseMonth(c.Param("month"))
	if err != nil {
		badRequest(c, err.Error())
		return calendar.Month{}, false
	}
	return m, true
}

func (h *CalendarHandler) Grid(c *gin.Context) {
	m, ok := monthParam(c)
	if !ok {
		return
	}
	grid, err := h.calendar.Grid(c.Request.Context(), m)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, grid)
}

func (h *CalendarHandler) Schedules(c *gin.Context) {
	m, ok := monthParam(c)
	if !ok {
		return
	}
	entries, err := h.calendar.Month(c.Request.Context(), m)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"month": m.Key(), "schedules": entries})
}

// Stream pushes the month as a "schedules" event now and after every
// completion change, until the client disconnects.
func (h *CalendarHandler) Stream(c *gin.Context) {
	m, ok := monthParam(c)
	if !ok {
		return
	}
	sse := newSSE(c)
	ctx := c.Request.Context()
	member := c.GetString(middleware.KeyMemberID)
	logger.Info("calendar.stream.open", "member", member, "month", m.Key())

	err := h.calendar.Watch(ctx, m, func(entries []model.ScheduleDetail) error {
		return sse.event("schedules", gin.H{"month": m.Key(), "schedules": entries})
	})
	if err != nil {
		logger.Warn("calendar.stream.failed", "member", member, "month", m.Key(), "err", err)
		_ = sse.event("error", gin.H{"error": "stream failed"})
		return
	}
	logger.Info("calendar.stream.closed", "member", member, "month", m.Key())
}

// Entry shows one schedule entry with its checklist.
func (h *CalendarHandler) Entry(c *gin.Context) {
	v, err := h.calendar.Entry(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *CalendarHandler) Complete(c *gin.Context) {
	var req model.CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request")
			return
		}
	}

	done, created, err := h.completions.Complete(c.Request.Context(), service.CompleteRequest{
		ScheduleID: c.Param("id"),
		ActorID:    c.GetString(middleware.KeyMemberID),
		Notes:      req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, gin.H{"completion": done, "created": created})
}
