package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-user-dashboard/internal/core/server"
	"go-gin-user-dashboard/internal/transport/http/handler"
	mdw "go-gin-user-dashboard/internal/transport/http/middleware"
	"go-gin-user-dashboard/internal/transport/http/templates"
)

type Options struct {
	RequestTimeout   time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxConcurrency   int64
	MaxBodyBytes     int64
	CredentialCookie string
	Session          mdw.SessionCookie
}

func (o *Options) applyDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 200
	}
	if o.RateLimitBurst <= 0 {
		o.RateLimitBurst = 400
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 300
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	if o.CredentialCookie == "" {
		o.CredentialCookie = "access"
	}
	if o.Session.Name == "" {
		o.Session.Name = "dash_sid"
	}
}

func NewDashboardEngine(l *zap.Logger, h *handler.DashboardHandler, o Options) (*gin.Engine, error) {
	o.applyDefaults()

	r := server.NewRouter(l)
	tmpl, err := templates.Load()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(o.RateLimitRPS), o.RateLimitBurst),
		mdw.ConcurrencyLimit(o.MaxConcurrency),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.RequestTimeout),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/users") })

	// 需要会话 + 凭证的路由
	view := r.Group("", mdw.Session(o.Session), mdw.Credential(o.CredentialCookie))
	view.GET("/users", h.Page)
	view.POST("/users/actions", h.Action)
	view.POST("/users/unmount", h.Unmount)

	h.MountAPI(view.Group("/api/v1"))
	return r, nil
}
