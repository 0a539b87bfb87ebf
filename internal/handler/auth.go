package handler

import (
	"net/http"
	"time"

	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/middleware"
	"cleaning-duty/internal/model"
	"cleaning-duty/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	bootstrap *service.BootstrapService
	secret    []byte
	idpSecret []byte
	ttl       time.Duration
}

func NewAuthHandler(bootstrap *service.BootstrapService, secret, idpSecret []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{bootstrap: bootstrap, secret: secret, idpSecret: idpSecret, ttl: ttl}
}

// Callback exchanges an identity provider token for a session token,
// creating the member on first sign-in.
func (h *AuthHandler) Callback(c *gin.Context) {
	var req model.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	id, err := middleware.VerifyIdentity(h.idpSecret, req.IDToken)
	if err != nil {
		logger.Warn("auth.callback.rejected", "err", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	m, created, err := h.bootstrap.Ensure(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !m.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "member is deactivated"})
		return
	}

	token, err := middleware.IssueToken(h.secret, m.ID, m.Name, h.ttl)
	if err != nil {
		fail(c, err)
		return
	}
	logger.Info("auth.callback.ok", "member", m.ID, "created", created)

	c.JSON(http.StatusOK, model.LoginResponse{Token: token, Created: created, User: toUser(m)})
}

func toUser(m *model.Member) model.User {
	return model.User{ID: m.ID, Name: m.Name, AvatarURL: m.AvatarURL, DepartmentID: m.DepartmentID, IsAdmin: m.IsAdmin}
}
