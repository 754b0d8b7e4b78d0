package usertable

import (
	"fmt"
	"slices"
	"strings"

	"go-gin-user-dashboard/internal/feature/user"
)

// Order 排序方向
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder 解析排序方向，空串视为 asc
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("%w: order %q", ErrInvalidAction, s)
}

// Comparator returns -1, 0 or 1.
type Comparator func(a, b user.User) int

// GetComparator builds the ordering for a column and direction. Descending flips the sign.
func GetComparator(order Order, orderBy user.Field) Comparator {
	if order == Desc {
		return func(a, b user.User) int { return -user.Compare(a, b, orderBy) }
	}
	return func(a, b user.User) int { return user.Compare(a, b, orderBy) }
}

// SortStable 返回排序后的副本；相等元素保持原相对顺序
func SortStable(in []user.User, cmp Comparator) []user.User {
	out := slices.Clone(in)
	slices.SortStableFunc(out, cmp)
	return out
}
