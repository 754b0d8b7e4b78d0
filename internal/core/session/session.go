package session

import (
	"context"
	"errors"
	"time"

	"go-gin-user-dashboard/internal/feature/user"
	"go-gin-user-dashboard/internal/feature/usertable"
)

var ErrNotFound = errors.New("session not found")

// Session 一个浏览器会话对应的表格视图；生命周期即视图生命周期
type Session struct {
	ID        string          `json:"id"`
	State     usertable.State `json:"state"`
	Users     []user.User     `json:"users"`
	Loaded    bool            `json:"loaded"`
	CreatedAt time.Time       `json:"created_at"`
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
