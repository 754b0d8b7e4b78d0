package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const KeySessionID = "sessionId"

type SessionCookie struct {
	Name   string
	MaxAge int // 秒
	Secure bool
}

// Session 保证每个浏览器有一个会话 id（uuid），即表格视图的身份
func Session(opt SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(opt.Name)
		if err != nil || !validSID(sid) {
			sid = uuid.NewString()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opt.Name, sid, opt.MaxAge, "/", "", opt.Secure, true)
		c.Set(KeySessionID, sid)
		c.Next()
	}
}

func SessionID(c *gin.Context) string { return c.GetString(KeySessionID) }

func validSID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
