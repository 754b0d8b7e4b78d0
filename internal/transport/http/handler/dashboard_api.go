package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-gin-user-dashboard/internal/core/session"
	"go-gin-user-dashboard/internal/feature/usertable"
	"go-gin-user-dashboard/internal/service"
	"go-gin-user-dashboard/internal/transport/http/ez"
	mdw "go-gin-user-dashboard/internal/transport/http/middleware"
)

// MountAPI 在 /api/v1 下注册表格的 JSON 接口
func (h *DashboardHandler) MountAPI(api *gin.RouterGroup) {
	e := ez.New(api)

	// --- GET /api/v1/table  挂载并返回当前视图 ---
	// wait_ms 覆盖首次拉取的等待时间（不超过配置值），0 表示不等，轮询 loading 即可
	type openQ struct {
		WaitMs *int `form:"wait_ms"`
	}
	ez.RegisterAction[openQ, service.Snapshot](e, ez.Action[openQ, service.Snapshot]{
		Method: http.MethodGet,
		Path:   "/table",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *openQ) (service.Snapshot, error) {
			wait := h.mountWait
			if in.WaitMs != nil {
				if *in.WaitMs < 0 {
					return service.Snapshot{}, ez.BadRequest("wait_ms must be >= 0", nil)
				}
				wait = min(wait, time.Duration(*in.WaitMs)*time.Millisecond)
			}
			snap, err := h.svc.Open(c.Request.Context(), mdw.SessionID(c), mdw.CredentialFrom(c), wait)
			if err != nil {
				return service.Snapshot{}, ez.Internal("open view failed", err)
			}
			return snap, nil
		},
	})

	// --- POST /api/v1/table/actions  单一状态更新入口 ---
	ez.RegisterAction[usertable.Action, service.Snapshot](e, ez.Action[usertable.Action, service.Snapshot]{
		Method: http.MethodPost,
		Path:   "/table/actions",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *usertable.Action) (service.Snapshot, error) {
			snap, err := h.svc.Dispatch(c.Request.Context(), mdw.SessionID(c), *in)
			switch {
			case err == nil:
				return snap, nil
			case errors.Is(err, session.ErrNotFound):
				return service.Snapshot{}, ez.NotFound("table view not mounted")
			case isActionError(err):
				return service.Snapshot{}, ez.BadRequest(err.Error(), err)
			}
			return service.Snapshot{}, ez.Internal("dispatch failed", err)
		},
	})

	// --- DELETE /api/v1/table  卸载视图 ---
	ez.RegisterAction[struct{}, gin.H](e, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/table",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			if err := h.svc.Unmount(c.Request.Context(), mdw.SessionID(c)); err != nil {
				return nil, ez.Internal("unmount failed", err)
			}
			return gin.H{"unmounted": true}, nil
		},
	})
}
