package user

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
)

// User 上游用户列表中的一条记录
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	IsActive  bool   `json:"is_active"`
	UID       string `json:"uid,omitempty"` // 上游非数字 id 原样保留
}

// Name 展示用全名（name 字段为虚拟列）
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Field 可排序 / 可过滤的列
type Field string

const (
	FieldID        Field = "id"
	FieldName      Field = "name"
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldUsername  Field = "username"
	FieldRole      Field = "role"
)

var fields = []Field{FieldID, FieldName, FieldFirstName, FieldLastName, FieldUsername, FieldRole}

var ErrUnknownField = errors.New("unknown field")

// ParseField 解析列名（大小写不敏感）
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// Text 返回字段的字符串形式，过滤时使用
func (u User) Text(f Field) string {
	switch f {
	case FieldID:
		return fmt.Sprint(u.ID)
	case FieldName:
		return u.Name()
	case FieldFirstName:
		return u.FirstName
	case FieldLastName:
		return u.LastName
	case FieldUsername:
		return u.Username
	case FieldRole:
		return u.Role
	}
	return ""
}

// Compare 按字段比较：id 按数值，其余按码点字典序
func Compare(a, b User, f Field) int {
	if f == FieldID {
		return cmp.Compare(a.ID, b.ID)
	}
	return strings.Compare(a.Text(f), b.Text(f))
}

// IDs 提取记录 id，保持原顺序
func IDs(us []User) []int64 {
	out := make([]int64, 0, len(us))
	for _, u := range us {
		out = append(out, u.ID)
	}
	return out
}
