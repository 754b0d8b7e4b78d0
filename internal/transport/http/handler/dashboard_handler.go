package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-user-dashboard/internal/core/session"
	"go-gin-user-dashboard/internal/domain"
	"go-gin-user-dashboard/internal/feature/usertable"
	"go-gin-user-dashboard/internal/service"
	mdw "go-gin-user-dashboard/internal/transport/http/middleware"
)

// DashboardService 由 service.DashboardService 实现
type DashboardService interface {
	Open(ctx context.Context, sid string, cred domain.Credential, wait time.Duration) (service.Snapshot, error)
	Dispatch(ctx context.Context, sid string, a usertable.Action) (service.Snapshot, error)
	Unmount(ctx context.Context, sid string) error
}

type DashboardHandler struct {
	svc       DashboardService
	log       *zap.Logger
	title     string
	mountWait time.Duration
}

func NewDashboardHandler(l *zap.Logger, svc DashboardService, title string, mountWait time.Duration) *DashboardHandler {
	if title == "" {
		title = "Users"
	}
	return &DashboardHandler{svc: svc, log: l, title: title, mountWait: mountWait}
}

// Page GET /users：挂载视图（首次会拉取用户列表）并渲染当前页
func (h *DashboardHandler) Page(c *gin.Context) {
	snap, err := h.svc.Open(c.Request.Context(), mdw.SessionID(c), mdw.CredentialFrom(c), h.mountWait)
	if err != nil {
		_ = c.Error(err)
		h.log.Error("open users view", zap.String("session", mdw.SessionID(c)), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.HTML(http.StatusOK, "users", gin.H{"Title": h.title, "V": snap})
}

// Action POST /users/actions：表单动作，处理后 303 回到列表页
func (h *DashboardHandler) Action(c *gin.Context) {
	var a usertable.Action
	if err := c.ShouldBind(&a); err != nil {
		_ = c.Error(err)
		c.Redirect(http.StatusSeeOther, "/users")
		return
	}
	_, err := h.svc.Dispatch(c.Request.Context(), mdw.SessionID(c), a)
	switch {
	case err == nil, errors.Is(err, session.ErrNotFound):
		// 会话不存在时回到列表页重新挂载
	case isActionError(err):
		h.log.Debug("rejected table action", zap.String("type", string(a.Type)), zap.Error(err))
	default:
		_ = c.Error(err)
		h.log.Error("dispatch table action", zap.String("session", mdw.SessionID(c)), zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Redirect(http.StatusSeeOther, "/users")
}

// Unmount POST /users/unmount：丢弃视图，取消未完成的拉取
func (h *DashboardHandler) Unmount(c *gin.Context) {
	if err := h.svc.Unmount(c.Request.Context(), mdw.SessionID(c)); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Status(http.StatusNoContent)
}

func isActionError(err error) bool {
	return errors.Is(err, usertable.ErrInvalidAction) ||
		errors.Is(err, usertable.ErrRowsPerPage) ||
		errors.Is(err, usertable.ErrPageOutOfRange) ||
		errors.Is(err, usertable.ErrUnknownRecord)
}
