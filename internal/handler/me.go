package handler

import (
	"net/http"
	"time"

	"cleaning-duty/internal/middleware"
	"cleaning-duty/internal/service"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	directory *service.DirectoryService
	schedules *service.ScheduleService
	now       func() time.Time
}

func NewMeHandler(directory *service.DirectoryService, schedules *service.ScheduleService) *MeHandler {
	return &MeHandler{directory: directory, schedules: schedules, now: time.Now}
}

func (h *MeHandler) Me(c *gin.Context) {
	m, err := h.directory.GetMember(c.Request.Context(), c.GetString(middleware.KeyMemberID))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUser(m))
}

// Next answers {"next": null} when nothing is scheduled.
func (h *MeHandler) Next(c *gin.Context) {
	next, err := h.schedules.Next(c.Request.Context(), c.GetString(middleware.KeyMemberID), h.now())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next": next})
}
