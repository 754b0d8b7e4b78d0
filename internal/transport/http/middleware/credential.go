package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"go-gin-user-dashboard/internal/domain"
)

const KeyCredential = "credential"

// Credential 只负责取出 bearer token（Authorization 头优先，其次 cookie），不做校验；
// 之后由 handler 显式传给上游调用
func Credential(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cred domain.Credential
		if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
			cred.Token = strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
		} else if v, err := c.Cookie(cookieName); err == nil {
			cred.Token = strings.TrimSpace(v)
		}
		c.Set(KeyCredential, cred)
		c.Next()
	}
}

func CredentialFrom(c *gin.Context) domain.Credential {
	if v, ok := c.Get(KeyCredential); ok {
		if cred, ok := v.(domain.Credential); ok {
			return cred
		}
	}
	return domain.Credential{}
}
