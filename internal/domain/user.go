package domain

import (
	"context"

	"go-gin-user-dashboard/internal/feature/user"
)

// Credential 调用上游时使用的 bearer token，由 HTTP 层显式传入
type Credential struct {
	Token string
}

func (c Credential) Empty() bool { return c.Token == "" }

// UserRepository 上游用户列表
type UserRepository interface {
	List(ctx context.Context, cred Credential) ([]user.User, error)
}
